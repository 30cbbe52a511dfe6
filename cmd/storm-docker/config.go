package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/artpar/storm-docker/internal/core/launch"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all launcher configuration.
type Config struct {
	Setup    SetupConfig    `mapstructure:"setup"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Images   ImagesConfig   `mapstructure:"images"`
	DNS      []string       `mapstructure:"dns"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Log      LogConfig      `mapstructure:"log"`
	SSH      SSHConfig      `mapstructure:"ssh"`
}

// SetupConfig locates the topology document.
type SetupConfig struct {
	Path string `mapstructure:"path"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host   string `mapstructure:"host"`
	DryRun bool   `mapstructure:"dry_run"` // print docker commands instead of running them
}

// ImagesConfig maps components to image references.
type ImagesConfig struct {
	Zookeeper  string `mapstructure:"zookeeper"`
	Nimbus     string `mapstructure:"nimbus"`
	Supervisor string `mapstructure:"supervisor"`
	UI         string `mapstructure:"ui"`
	DRPC       string `mapstructure:"drpc"`
	Ambassador string `mapstructure:"ambassador"`
}

// Map returns the configured images keyed by component. Empty entries are
// left out so the launch defaults apply.
func (c ImagesConfig) Map() map[launch.Component]string {
	out := make(map[launch.Component]string)
	for comp, image := range map[launch.Component]string{
		launch.ComponentZookeeper:  c.Zookeeper,
		launch.ComponentNimbus:     c.Nimbus,
		launch.ComponentSupervisor: c.Supervisor,
		launch.ComponentUI:         c.UI,
		launch.ComponentDRPC:       c.DRPC,
		launch.ComponentAmbassador: c.Ambassador,
	} {
		if image != "" {
			out[comp] = image
		}
	}
	return out
}

// MetadataConfig controls cloud metadata lookups. EC2 and Hetzner enable a
// lookup even when the topology does not declare the provider.
type MetadataConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	EC2     bool          `mapstructure:"ec2"`
	Hetzner bool          `mapstructure:"hetzner"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SSHConfig holds settings for remote launches.
type SSHConfig struct {
	User       string        `mapstructure:"user"`
	KeyFile    string        `mapstructure:"key_file"`
	KnownHosts string        `mapstructure:"known_hosts"`
	Port       int           `mapstructure:"port"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Workdir    string        `mapstructure:"workdir"` // launcher checkout on the remote hosts
	Binary     string        `mapstructure:"binary"`
}

// =============================================================================
// Config Loading
// =============================================================================

// flagKeys binds command line flags to config keys.
var flagKeys = map[string]string{
	"setup":       "setup.path",
	"docker-host": "docker.host",
	"dry-run":     "docker.dry_run",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

// LoadConfig loads configuration from file, environment and flags.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("setup.path", "config/storm-setup.yaml")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.dry_run", false)
	for comp, image := range launch.DefaultImages() {
		v.SetDefault("images."+string(comp), image)
	}
	v.SetDefault("dns", launch.DefaultDNS)
	v.SetDefault("metadata.timeout", "2s")
	v.SetDefault("metadata.ec2", false)
	v.SetDefault("metadata.hetzner", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ssh.user", "")
	v.SetDefault("ssh.key_file", "")
	v.SetDefault("ssh.known_hosts", "")
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.timeout", "10s")
	v.SetDefault("ssh.workdir", "storm-docker")
	v.SetDefault("ssh.binary", "storm-docker")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// A missing file falls back to defaults.
		}
	}

	v.SetEnvPrefix("STORM_DOCKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. Logs
// go to w so that command output on stdout stays machine readable.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
