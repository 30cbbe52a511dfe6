package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/launch"
	coreremote "github.com/artpar/storm-docker/internal/core/remote"
	"github.com/artpar/storm-docker/internal/core/topology"
	"github.com/artpar/storm-docker/internal/shell/docker"
	"github.com/artpar/storm-docker/internal/shell/netinfo"
	"github.com/artpar/storm-docker/internal/shell/remote"
)

// launcher runs remote launch steps.
type launcher interface {
	Launch(ctx context.Context, steps []coreremote.Step, workdir, binary string) error
	Close() error
}

// app carries the configuration and the I/O dependencies of the commands.
// Nil dependencies are created from the configuration on first use.
type app struct {
	cfg    *Config
	logger *slog.Logger
	out    io.Writer

	interfaces  netinfo.InterfaceLister
	sources     []netinfo.MetadataSource
	docker      docker.Client
	newLauncher func(cfg SSHConfig, logger *slog.Logger) (launcher, error)
}

func newApp(out io.Writer) *app {
	return &app{
		out:         out,
		interfaces:  netinfo.SystemInterfaces,
		newLauncher: newSSHLauncher,
	}
}

func newSSHLauncher(cfg SSHConfig, logger *slog.Logger) (launcher, error) {
	return remote.NewExecutor(remote.Config{
		User:           cfg.User,
		Port:           cfg.Port,
		KeyFile:        cfg.KeyFile,
		KnownHosts:     cfg.KnownHosts,
		ConnectTimeout: cfg.Timeout,
	}, logger)
}

// loadTopology reads and validates the topology document.
func (a *app) loadTopology() (*topology.Topology, error) {
	content, err := os.ReadFile(a.cfg.Setup.Path)
	if err != nil {
		return nil, topology.NewConfigError("setup.path", err.Error(), topology.ErrMissingKey)
	}
	return topology.Parse(content)
}

// discoverer builds the local address discoverer for a topology. Metadata
// sources follow the topology flags unless configured explicitly.
func (a *app) discoverer(t *topology.Topology) *netinfo.Discoverer {
	d := netinfo.NewDiscoverer(a.logger)
	if a.interfaces != nil {
		d.Interfaces = a.interfaces
	}
	if a.cfg.Metadata.Timeout > 0 {
		d.Timeout = a.cfg.Metadata.Timeout
	}
	if a.sources != nil {
		d.Sources = a.sources
	} else {
		d.Sources = netinfo.Sources(
			t.EC2 || a.cfg.Metadata.EC2,
			t.Hetzner || a.cfg.Metadata.Hetzner,
			d.Timeout,
		)
	}
	return d
}

// localIdentity returns the addresses of this machine.
func (a *app) localIdentity(ctx context.Context, t *topology.Topology) (identity.LocalIdentity, error) {
	local, err := a.discoverer(t).LocalIdentity(ctx, netinfo.OptionsFrom(t))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("discovered local addresses", "addresses", []string(local))
	return local, nil
}

// resolve resolves the host identity. On the host there are no link
// variables, so co-located roles keep their declared addresses.
func (a *app) resolve(ctx context.Context, t *topology.Topology) (*identity.Resolution, error) {
	local, err := a.localIdentity(ctx, t)
	if err != nil {
		return nil, err
	}
	return identity.Resolve(identity.Input{Topology: t, Local: local})
}

// dockerClient returns the configured client, connecting on first use.
func (a *app) dockerClient(ctx context.Context) (docker.Client, error) {
	if a.docker != nil {
		return a.docker, nil
	}
	cli, err := docker.NewDockerClient(ctx, a.cfg.Docker.Host)
	if err != nil {
		return nil, err
	}
	a.docker = cli
	return cli, nil
}

// runner returns a container runner. Dry runs never touch the daemon.
func (a *app) runner(ctx context.Context, dryRun bool) (*docker.Runner, error) {
	if dryRun {
		return docker.NewRunner(nil, a.logger, true, a.out), nil
	}
	cli, err := a.dockerClient(ctx)
	if err != nil {
		return nil, err
	}
	return docker.NewRunner(cli, a.logger, false, a.out), nil
}

// containerPlans resolves this machine and builds the plans for the named
// components.
func (a *app) containerPlans(ctx context.Context, names []string, runner *docker.Runner, dockerArgs []string) ([]launch.ContainerPlan, *identity.Resolution, error) {
	components, err := launch.ExpandComponents(names)
	if err != nil {
		return nil, nil, err
	}
	t, err := a.loadTopology()
	if err != nil {
		return nil, nil, err
	}
	res, err := a.resolve(ctx, t)
	if err != nil {
		return nil, nil, err
	}

	ambassador := false
	if runner != nil {
		if ambassador, err = runner.AmbassadorRunning(ctx); err != nil {
			return nil, nil, err
		}
	}

	plans, err := launch.BuildContainerPlans(components, launch.Params{
		Topology:          t,
		Resolution:        res,
		Images:            a.cfg.Images.Map(),
		DNS:               a.cfg.DNS,
		AmbassadorRunning: ambassador,
		DockerArgs:        dockerArgs,
	})
	if err != nil {
		return nil, nil, err
	}
	return plans, res, nil
}

func (a *app) close() {
	if a.docker != nil {
		a.docker.Close()
	}
}
