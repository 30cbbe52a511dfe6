package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
)

// DockerClient talks to the local Docker Engine through the SDK.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient connects to host, or to the environment's Docker host when
// host is empty. An unreachable default daemon falls back to the per-user
// Docker Desktop socket.
func NewDockerClient(ctx context.Context, host string) (*DockerClient, error) {
	if host != "" {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation(), client.WithHost(host))
		if err != nil {
			return nil, NewDockerError("NewDockerClient", "", host, err.Error(), ErrConnectionFailed)
		}
		return &DockerClient{cli: cli}, nil
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, NewDockerError("NewDockerClient", "", "", err.Error(), ErrConnectionFailed)
	}
	if _, err := cli.Ping(ctx); err == nil {
		return &DockerClient{cli: cli}, nil
	}
	if alt := desktopClient(ctx); alt != nil {
		cli.Close()
		return &DockerClient{cli: alt}, nil
	}
	return &DockerClient{cli: cli}, nil
}

// desktopClient returns a client for ~/.docker/run/docker.sock if a daemon
// answers there.
func desktopClient(ctx context.Context) *client.Client {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	sock := "unix://" + filepath.Join(home, ".docker", "run", "docker.sock")
	cli, err := client.NewClientWithOpts(client.WithHost(sock), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil
	}
	return cli
}

func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// containerErr maps an SDK error for a container operation onto the package
// sentinels.
func containerErr(op, id string, err error) error {
	switch {
	case errdefs.IsNotFound(err):
		return NewDockerError(op, "container", id, "container not found", ErrContainerNotFound)
	case errdefs.IsConflict(err):
		return NewDockerError(op, "container", id, "container already exists", ErrContainerAlreadyExists)
	case strings.Contains(err.Error(), "port is already allocated"):
		return NewDockerError(op, "container", id, err.Error(), ErrPortAlreadyAllocated)
	}
	return NewDockerError(op, "container", id, err.Error(), err)
}

// portSets builds the exposed set and host bindings for spec. Published
// ports are exposed implicitly; Exposed adds tcp ports with no binding.
func portSets(spec ContainerSpec) (nat.PortSet, nat.PortMap) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.ContainerPort))
		if err != nil {
			continue
		}
		exposed[port] = struct{}{}
		b := nat.PortBinding{HostIP: p.HostIP}
		if p.HostPort != 0 {
			b.HostPort = strconv.Itoa(p.HostPort)
		}
		bindings[port] = append(bindings[port], b)
	}
	for _, p := range spec.Exposed {
		if port, err := nat.NewPort("tcp", strconv.Itoa(p)); err == nil {
			exposed[port] = struct{}{}
		}
	}
	if len(exposed) == 0 {
		exposed = nil
	}
	if len(bindings) == 0 {
		bindings = nil
	}
	return exposed, bindings
}

// CreateContainer creates (but does not start) the container in spec.
func (d *DockerClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	exposed, bindings := portSets(spec)

	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Hostname:     spec.Hostname,
		Cmd:          spec.Command,
		Env:          env,
		Labels:       spec.Labels,
		ExposedPorts: exposed,
	}
	host := &container.HostConfig{
		Links:        spec.Links,
		DNS:          spec.DNS,
		PortBindings: bindings,
		Binds:        spec.Binds,
		NetworkMode:  container.NetworkMode(spec.NetworkMode),
		Privileged:   spec.Privileged,
		RestartPolicy: container.RestartPolicy{
			Name:              container.RestartPolicyMode(spec.Restart.Name),
			MaximumRetryCount: spec.Restart.MaxRetries,
		},
		Resources: container.Resources{Memory: spec.Memory},
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, host, nil, nil, spec.Name)
	if err != nil {
		return "", containerErr("CreateContainer", spec.Name, err)
	}
	return resp.ID, nil
}

func (d *DockerClient) StartContainer(ctx context.Context, id string) error {
	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return containerErr("StartContainer", id, err)
	}
	return nil
}

func (d *DockerClient) RemoveContainer(ctx context.Context, id string, opts RemoveOptions) error {
	err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{
		Force:         opts.Force,
		RemoveVolumes: opts.RemoveVolumes,
	})
	if err != nil {
		return containerErr("RemoveContainer", id, err)
	}
	return nil
}

// InspectContainer reports the state of a container by name or ID. The
// address is taken from the first attached network that has one.
func (d *DockerClient) InspectContainer(ctx context.Context, id string) (*ContainerInfo, error) {
	resp, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, containerErr("InspectContainer", id, err)
	}

	info := &ContainerInfo{ID: resp.ID, Name: strings.TrimPrefix(resp.Name, "/")}
	info.CreatedAt, _ = time.Parse(time.RFC3339Nano, resp.Created)
	if resp.Config != nil {
		info.Image = resp.Config.Image
		info.Labels = resp.Config.Labels
	}
	if resp.State != nil {
		info.Status = ContainerStatus(resp.State.Status)
	}
	if resp.NetworkSettings != nil {
		for _, ep := range resp.NetworkSettings.Networks {
			if ep != nil && ep.IPAddress != "" {
				info.IPAddress = ep.IPAddress
				break
			}
		}
	}
	return info, nil
}

func (d *DockerClient) ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error) {
	args := filters.NewArgs()
	for k, v := range opts.Filters {
		args.Add(k, v)
	}
	summaries, err := d.cli.ContainerList(ctx, container.ListOptions{All: opts.All, Filters: args})
	if err != nil {
		return nil, NewDockerError("ListContainers", "container", "", err.Error(), err)
	}

	out := make([]ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		var name string
		if len(s.Names) > 0 {
			name = strings.TrimPrefix(s.Names[0], "/")
		}
		out = append(out, ContainerInfo{
			ID:        s.ID,
			Name:      name,
			Image:     s.Image,
			Status:    ContainerStatus(s.State),
			CreatedAt: time.Unix(s.Created, 0),
			Labels:    s.Labels,
		})
	}
	return out, nil
}

// pullMissing reports whether a pull error means the reference does not
// resolve in the registry.
func pullMissing(err error) bool {
	if errdefs.IsNotFound(err) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"manifest unknown", "repository does not exist", "pull access denied"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// PullImage pulls ref and waits for the pull to finish.
func (d *DockerClient) PullImage(ctx context.Context, ref string) error {
	rc, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		if pullMissing(err) {
			return NewDockerError("PullImage", "image", ref, "image not found", ErrImageNotFound)
		}
		return NewDockerError("PullImage", "image", ref, err.Error(), ErrImagePullFailed)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return NewDockerError("PullImage", "image", ref, fmt.Sprintf("read pull progress: %v", err), ErrImagePullFailed)
	}
	return nil
}

func (d *DockerClient) ImageExists(ctx context.Context, ref string) (bool, error) {
	if _, err := d.cli.ImageInspect(ctx, ref); err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, NewDockerError("ImageExists", "image", ref, err.Error(), err)
	}
	return true, nil
}
