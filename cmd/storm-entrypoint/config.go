package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config is read from the container environment.
type Config struct {
	StormHome    string
	SetupYAML    string
	ZKConfig     string
	ZKDataDir    string
	DnsmasqHosts string
	Supervisord  string
	LogLevel     string
	LogFormat    string
}

// LoadConfig reads the entrypoint settings from the environment. The
// variable names are fixed by the images, so they are bound one by one
// instead of through a prefix.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("storm_home", "/usr/share/storm")
	v.SetDefault("storm_setup_yaml", "/etc/storm-setup.yaml")
	v.SetDefault("zk_cfg", "/opt/zookeeper/conf/zoo.cfg")
	v.SetDefault("zk_datadir", "/var/lib/zookeeper")
	v.SetDefault("dnsmasq_hosts", "/etc/dnsmasq-extra-hosts")
	v.SetDefault("supervisord", "supervisord")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	for _, key := range []string{
		"storm_home", "storm_setup_yaml", "zk_cfg", "zk_datadir",
		"dnsmasq_hosts", "supervisord", "log_level", "log_format",
	} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", strings.ToUpper(key), err)
		}
	}

	return &Config{
		StormHome:    v.GetString("storm_home"),
		SetupYAML:    v.GetString("storm_setup_yaml"),
		ZKConfig:     v.GetString("zk_cfg"),
		ZKDataDir:    v.GetString("zk_datadir"),
		DnsmasqHosts: v.GetString("dnsmasq_hosts"),
		Supervisord:  v.GetString("supervisord"),
		LogLevel:     v.GetString("log_level"),
		LogFormat:    v.GetString("log_format"),
	}, nil
}

// SetupLogger creates the entrypoint logger.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
