// Command storm-entrypoint configures a Storm or Zookeeper container from the
// topology document and then hands the container over to supervisord.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
	"github.com/artpar/storm-docker/internal/shell/files"
)

const (
	ExitSuccess          = 0
	ExitConfigError      = 1
	ExitIdentityMismatch = 2
	ExitFilesystemError  = 5
	ExitExecError        = 6
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(ExitConfigError)
	}
	a := &app{
		cfg:    cfg,
		logger: SetupLogger(cfg, os.Stderr),
		env:    os.LookupEnv,
		exec:   execProgram,
	}
	root := newRootCmd(a)
	if err := root.ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		a.logger.Error("entrypoint failed", "error", err, "exit_code", code)
		os.Exit(code)
	}
}

// execProgram replaces the current process with name.
func execProgram(name string, args []string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%w: %v", errExec, err)
	}
	if err := unix.Exec(path, append([]string{name}, args...), os.Environ()); err != nil {
		return fmt.Errorf("%w: exec %s: %v", errExec, path, err)
	}
	return nil
}

var errExec = errors.New("cannot start process")

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, identity.ErrIdentityMismatch):
		return ExitIdentityMismatch
	case topology.IsConfigurationError(err):
		return ExitConfigError
	case errors.Is(err, files.ErrFilesystem):
		return ExitFilesystemError
	case errors.Is(err, errExec):
		return ExitExecError
	}
	return ExitConfigError
}
