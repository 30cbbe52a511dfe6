// Package docker runs planned Storm containers through the Docker Engine API.
package docker

import (
	"context"
	"time"
)

// Client is the subset of the Engine API the launcher uses.
type Client interface {
	CreateContainer(ctx context.Context, spec ContainerSpec) (id string, err error)
	StartContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string, opts RemoveOptions) error
	InspectContainer(ctx context.Context, id string) (*ContainerInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)

	PullImage(ctx context.Context, ref string) error
	ImageExists(ctx context.Context, ref string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// ContainerSpec is what CreateContainer needs to reproduce a
// `docker run -d` invocation.
type ContainerSpec struct {
	Name     string
	Image    string
	Hostname string
	Command  []string
	Env      map[string]string
	Labels   map[string]string
	Ports    []PortBinding
	Exposed  []int    // tcp, not published
	Links    []string // name:alias
	DNS      []string

	// Set from extra `docker run` arguments, see ParseRunArgs.
	Binds       []string
	NetworkMode string
	Restart     RestartPolicy
	Memory      int64
	Privileged  bool
}

type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 lets the daemon pick
	Protocol      string // tcp when empty
	HostIP        string
}

type ContainerStatus string

const (
	ContainerStatusCreated    ContainerStatus = "created"
	ContainerStatusRunning    ContainerStatus = "running"
	ContainerStatusRestarting ContainerStatus = "restarting"
	ContainerStatusExited     ContainerStatus = "exited"
	ContainerStatusDead       ContainerStatus = "dead"
)

// ContainerInfo is the launcher's view of an existing container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	Status    ContainerStatus
	IPAddress string
	CreatedAt time.Time
	Labels    map[string]string
}

type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// ListOptions filters ListContainers. Filters uses Engine filter keys,
// for example "label" or "name".
type ListOptions struct {
	All     bool
	Filters map[string]string
}
