package docker

import (
	"errors"
	"fmt"
)

var (
	ErrContainerNotFound      = errors.New("container not found")
	ErrContainerAlreadyExists = errors.New("container already exists")
	ErrPortAlreadyAllocated   = errors.New("port is already allocated")

	ErrImageNotFound   = errors.New("image not found")
	ErrImagePullFailed = errors.New("image pull failed")

	ErrConnectionFailed = errors.New("docker connection failed")
)

// DockerError is returned by every Client operation. Err carries one of the
// sentinels above when the failure is recognised.
type DockerError struct {
	Op      string
	Entity  string // "container", "image" or empty
	ID      string
	Message string
	Err     error
}

func (e *DockerError) Error() string {
	subject := e.Op
	if e.Entity != "" {
		subject += " " + e.Entity
	}
	if e.ID != "" {
		subject += " " + e.ID
	}
	return fmt.Sprintf("%s: %s", subject, e.Message)
}

func (e *DockerError) Unwrap() error { return e.Err }

func NewDockerError(op, entity, id, message string, err error) *DockerError {
	return &DockerError{Op: op, Entity: entity, ID: id, Message: message, Err: err}
}

// IsDockerError reports whether err came from the Docker daemon or client.
func IsDockerError(err error) bool {
	var de *DockerError
	return errors.As(err, &de)
}
