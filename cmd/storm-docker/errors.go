package main

import (
	"errors"
	"io/fs"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
	"github.com/artpar/storm-docker/internal/shell/docker"
	"github.com/artpar/storm-docker/internal/shell/files"
	"github.com/artpar/storm-docker/internal/shell/remote"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess          = 0
	ExitConfigError      = 1
	ExitIdentityMismatch = 2
	ExitDockerError      = 3
	ExitRemoteError      = 4
	ExitFilesystemError  = 5
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var remoteErr *remote.RemoteError
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, identity.ErrIdentityMismatch):
		return ExitIdentityMismatch
	case topology.IsConfigurationError(err):
		return ExitConfigError
	case docker.IsDockerError(err):
		return ExitDockerError
	case errors.As(err, &remoteErr), errors.Is(err, remote.ErrCommandFailed):
		return ExitRemoteError
	case errors.Is(err, files.ErrFilesystem), errors.As(err, &pathErr):
		return ExitFilesystemError
	}
	return ExitConfigError
}
