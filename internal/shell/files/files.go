// Package files writes rendered configuration into the container filesystem.
package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/stormconf"
)

const (
	StormTemplateName = "storm.yaml.sample"
	StormConfigName   = "storm.yaml"
	MyIDName          = "myid"
)

// ErrFilesystem is wrapped by every FileError.
var ErrFilesystem = errors.New("filesystem error")

// FileError reports a failed file operation.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}

// Writer writes configuration files.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteStormYAML renders $STORM_HOME/conf/storm.yaml.sample into
// $STORM_HOME/conf/storm.yaml.
func (w *Writer) WriteStormYAML(stormHome string, p stormconf.StormParams) (string, error) {
	confDir := filepath.Join(stormHome, "conf")
	src := filepath.Join(confDir, StormTemplateName)
	dst := filepath.Join(confDir, StormConfigName)

	tmpl, err := os.ReadFile(src)
	if err != nil {
		return "", &FileError{Op: "read", Path: src, Err: err}
	}
	out, err := stormconf.RenderStormYAML(string(tmpl), p)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, []byte(out), 0644); err != nil {
		return "", &FileError{Op: "write", Path: dst, Err: err}
	}
	w.logger.Debug("wrote config file", "path", dst, "template", src)
	return dst, nil
}

// AppendZooCfg appends the client port and ensemble members to zoo.cfg.
func (w *Writer) AppendZooCfg(path string, p stormconf.ZookeeperParams) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &FileError{Op: "open", Path: path, Err: err}
	}
	if _, err := f.WriteString(stormconf.RenderZooCfg(p)); err != nil {
		f.Close()
		return &FileError{Op: "append", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FileError{Op: "close", Path: path, Err: err}
	}
	w.logger.Debug("appended zookeeper config", "path", path, "servers", len(p.Servers))
	return nil
}

// WriteMyID writes dataDir/myid for an ensemble. It reports false and
// writes nothing for a single server.
func (w *Writer) WriteMyID(dataDir string, p stormconf.ZookeeperParams) (bool, error) {
	content, ok := stormconf.RenderMyID(p)
	if !ok {
		return false, nil
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return false, &FileError{Op: "mkdir", Path: dataDir, Err: err}
	}
	path := filepath.Join(dataDir, MyIDName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, &FileError{Op: "write", Path: path, Err: err}
	}
	w.logger.Debug("wrote zookeeper id", "path", path, "my_id", p.MyID())
	return true, nil
}

// WriteDnsmasqHosts replaces the dnsmasq extra hosts file with the peer
// supervisors that are not local.
func (w *Writer) WriteDnsmasqHosts(path string, hosts []stormconf.ExtraHost, local identity.LocalIdentity) error {
	content := stormconf.RenderDnsmasqHosts(hosts, local)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &FileError{Op: "write", Path: path, Err: err}
	}
	w.logger.Debug("wrote extra hosts", "path", path, "hosts", len(hosts))
	return nil
}
