package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/artpar/storm-docker/internal/core/launch"
	"github.com/artpar/storm-docker/internal/core/planner"
)

// =============================================================================
// Runner - Executes Container Plans
// =============================================================================

// Runner starts and removes planned containers.
type Runner struct {
	docker Client
	logger *slog.Logger
	dryRun bool
	out    io.Writer
}

// NewRunner creates a runner. In dry-run mode the docker client may be nil:
// plans are printed to out as `docker run` commands instead of executed.
func NewRunner(docker Client, logger *slog.Logger, dryRun bool, out io.Writer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{docker: docker, logger: logger, dryRun: dryRun, out: out}
}

// Run creates and starts every plan in order. It stops at the first failure.
// Containers started by one call share a launch ID label. Extra docker
// arguments of every plan are checked before any container is created.
func (r *Runner) Run(ctx context.Context, plans []launch.ContainerPlan) ([]ContainerInfo, error) {
	for _, plan := range plans {
		fmt.Fprintln(r.out, plan.CommandLine())
	}
	if r.dryRun {
		return nil, nil
	}

	specs := make([]ContainerSpec, 0, len(plans))
	for _, plan := range plans {
		spec, err := SpecFromPlan(plan)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	var started []ContainerInfo
	launchID := uuid.NewString()
	for i, spec := range specs {
		plan := plans[i]
		r.logger.Info("starting container",
			"launch_id", launchID,
			"component", plan.Component,
			"container", plan.Name,
			"image", plan.Image,
		)

		exists, err := r.docker.ImageExists(ctx, spec.Image)
		if err != nil {
			return started, err
		}
		if !exists {
			r.logger.Info("pulling image", "image", spec.Image)
			if err := r.docker.PullImage(ctx, spec.Image); err != nil {
				r.logger.Warn("failed to pull image, trying anyway", "image", spec.Image, "error", err)
			}
		}

		spec.Labels[launch.LabelLaunch] = launchID
		id, err := r.docker.CreateContainer(ctx, spec)
		if err != nil {
			return started, err
		}
		if err := r.docker.StartContainer(ctx, id); err != nil {
			_ = r.docker.RemoveContainer(ctx, id, RemoveOptions{Force: true})
			return started, err
		}
		r.logger.Debug("started container", "container", plan.Name, "container_id", id)
		started = append(started, ContainerInfo{ID: id, Name: plan.Name, Image: plan.Image, Status: ContainerStatusRunning})
	}
	return started, nil
}

// Destroy force-removes the named containers. Containers that do not exist
// are skipped.
func (r *Runner) Destroy(ctx context.Context, names []string) error {
	for _, name := range names {
		if r.dryRun {
			fmt.Fprintf(r.out, "docker rm -f %s\n", name)
			continue
		}
		err := r.docker.RemoveContainer(ctx, name, RemoveOptions{Force: true})
		if errors.Is(err, ErrContainerNotFound) {
			r.logger.Debug("container not present", "container", name)
			continue
		}
		if err != nil {
			return err
		}
		r.logger.Info("removed container", "container", name)
	}
	return nil
}

// DestroyAll removes every container carrying the managed label.
func (r *Runner) DestroyAll(ctx context.Context) error {
	if r.dryRun {
		fmt.Fprintf(r.out, "docker rm -f $(docker ps -aq --filter label=%s=true)\n", launch.LabelManaged)
		return nil
	}
	containers, err := r.docker.ListContainers(ctx, ListOptions{
		All:     true,
		Filters: map[string]string{"label": launch.LabelManaged + "=true"},
	})
	if err != nil {
		return err
	}
	names := make([]string, 0, len(containers))
	for _, c := range containers {
		names = append(names, c.Name)
	}
	return r.Destroy(ctx, names)
}

// ContainerRunning reports whether a container with the given name is
// running.
func (r *Runner) ContainerRunning(ctx context.Context, name string) (bool, error) {
	if r.docker == nil {
		return false, nil
	}
	info, err := r.docker.InspectContainer(ctx, name)
	if errors.Is(err, ErrContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Status == ContainerStatusRunning, nil
}

// AmbassadorRunning reports whether a zk_ambassador runs on this machine.
func (r *Runner) AmbassadorRunning(ctx context.Context) (bool, error) {
	return r.ContainerRunning(ctx, planner.ContainerZKAmbassador)
}

// SpecFromPlan converts a container plan into a Docker container spec,
// applying the plan's extra docker arguments.
func SpecFromPlan(plan launch.ContainerPlan) (ContainerSpec, error) {
	extra, err := ParseRunArgs(plan.DockerArgs)
	if err != nil {
		return ContainerSpec{}, err
	}
	spec := ContainerSpec{
		Name:     plan.Name,
		Image:    plan.Image,
		Hostname: plan.Hostname,
		Command:  append([]string(nil), plan.Args...),
		Env:      make(map[string]string, len(plan.Env)),
		Labels:   make(map[string]string, len(plan.Labels)+1),
		Exposed:  append([]int(nil), plan.Exposed...),
		DNS:      append([]string(nil), plan.DNS...),
	}
	for k, v := range plan.Env {
		spec.Env[k] = v
	}
	for k, v := range plan.Labels {
		spec.Labels[k] = v
	}
	for _, p := range plan.Ports {
		spec.Ports = append(spec.Ports, PortBinding{
			ContainerPort: p.ContainerPort,
			HostPort:      p.HostPort,
			Protocol:      p.Protocol,
		})
	}
	for _, l := range plan.Links {
		spec.Links = append(spec.Links, l.String())
	}
	extra.Apply(&spec)
	return spec, nil
}
