package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/launch"
	"github.com/artpar/storm-docker/internal/core/stormconf"
	"github.com/artpar/storm-docker/internal/core/topology"
	"github.com/artpar/storm-docker/internal/shell/files"
	"github.com/artpar/storm-docker/internal/shell/netinfo"
)

type app struct {
	cfg        *Config
	logger     *slog.Logger
	env        identity.LookupFunc
	interfaces netinfo.InterfaceLister // nil uses the system interfaces
	exec       func(name string, args []string) error
}

// common holds the flags shared by every container kind.
type common struct {
	myAddresses []string
	noExec      bool
}

func (c *common) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&c.myAddresses, launch.FlagMyIPAddress[2:], nil, "IPv4 address of the host machine (repeatable)")
	cmd.Flags().BoolVar(&c.noExec, "no-exec", false, "write the configuration and exit without starting supervisord")
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "storm-entrypoint",
		Short:         "Configure a Storm or Zookeeper container and start supervisord",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStormCmd(a), newZookeeperCmd(a))
	return root
}

func newStormCmd(a *app) *cobra.Command {
	var c common
	var supervisorHosts []string
	var isSupervisor bool

	cmd := &cobra.Command{
		Use:   launch.EntrypointStorm,
		Short: "Render storm.yaml and, for supervisors, the dnsmasq extra hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, res, err := a.resolve(cmd.Context(), c.myAddresses)
			if err != nil {
				return err
			}
			w := files.NewWriter(a.logger)

			if isSupervisor {
				hosts, err := a.extraHosts(t, supervisorHosts)
				if err != nil {
					return err
				}
				if err := w.WriteDnsmasqHosts(a.cfg.DnsmasqHosts, hosts, res.Local); err != nil {
					return err
				}
			}

			params, err := stormconf.StormParamsFrom(t, res)
			if err != nil {
				return err
			}
			path, err := w.WriteStormYAML(a.cfg.StormHome, params)
			if err != nil {
				return err
			}
			a.logger.Info("storm configured",
				"path", path,
				"zookeeper_servers", params.ZookeeperServers,
				"nimbus_host", params.NimbusHost,
			)
			return a.handOver(c.noExec)
		},
	}
	c.register(cmd)
	cmd.Flags().StringArrayVar(&supervisorHosts, launch.FlagSupervisorHost[2:], nil, "peer supervisor as ip@alias[,alias...] (repeatable)")
	cmd.Flags().BoolVar(&isSupervisor, launch.FlagIsStormSupervisor[2:], false, "this container runs a storm supervisor")
	return cmd
}

func newZookeeperCmd(a *app) *cobra.Command {
	var c common

	cmd := &cobra.Command{
		Use:     launch.EntrypointZookeeper,
		Aliases: []string{"zk"},
		Short:   "Append the client port and ensemble to zoo.cfg and write myid",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, res, err := a.resolve(cmd.Context(), c.myAddresses)
			if err != nil {
				return err
			}
			params, err := stormconf.ZookeeperParamsFrom(t, res)
			if err != nil {
				return err
			}
			w := files.NewWriter(a.logger)
			if err := w.AppendZooCfg(a.cfg.ZKConfig, params); err != nil {
				return err
			}
			if _, err := w.WriteMyID(a.cfg.ZKDataDir, params); err != nil {
				return err
			}
			a.logger.Info("zookeeper configured",
				"path", a.cfg.ZKConfig,
				"my_id", params.MyID(),
				"ensemble", params.Ensemble(),
			)
			return a.handOver(c.noExec)
		},
	}
	c.register(cmd)
	return cmd
}

// resolve loads the topology and resolves this container's view of it. The
// host addresses come from the command line; the container's own address
// stands in for co-located roles without a link variable.
func (a *app) resolve(ctx context.Context, myAddresses []string) (*topology.Topology, *identity.Resolution, error) {
	content, err := os.ReadFile(a.cfg.SetupYAML)
	if err != nil {
		return nil, nil, topology.NewConfigError("STORM_SETUP_YAML", err.Error(), topology.ErrMissingKey)
	}
	t, err := topology.Parse(content)
	if err != nil {
		return nil, nil, err
	}

	d := netinfo.NewDiscoverer(a.logger)
	if a.interfaces != nil {
		d.Interfaces = a.interfaces
	}
	primary, ok, err := d.PrimaryAddress(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		a.logger.Warn("container has no IPv4 address, keeping declared addresses")
	}

	res, err := identity.Resolve(identity.Input{
		Topology: t,
		Local:    identity.LocalIdentity(myAddresses),
		Env:      a.env,
		Primary:  primary,
	})
	if err != nil {
		return nil, nil, err
	}
	for _, rr := range res.Roles() {
		for _, addr := range rr.Addresses {
			if addr.Local {
				a.logger.Debug("resolved local role", "role", rr.Role, "address", addr.Effective, "source", addr.Source)
			}
		}
	}
	return t, res, nil
}

// extraHosts parses the supervisor host flags, falling back to the
// supervisors declared in the topology. Malformed entries are skipped.
func (a *app) extraHosts(t *topology.Topology, args []string) ([]stormconf.ExtraHost, error) {
	if len(args) == 0 {
		return stormconf.SupervisorHosts(t)
	}
	hosts := make([]stormconf.ExtraHost, 0, len(args))
	for _, arg := range args {
		h, err := stormconf.ParseExtraHost(arg)
		if err != nil {
			a.logger.Warn("skipping supervisor host", "arg", arg, "error", err)
			continue
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

func (a *app) handOver(noExec bool) error {
	if noExec {
		return nil
	}
	a.logger.Info("starting supervisord", "program", a.cfg.Supervisord)
	return a.exec(a.cfg.Supervisord, nil)
}
