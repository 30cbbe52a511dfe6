package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/launch"
	coreremote "github.com/artpar/storm-docker/internal/core/remote"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func newRootCmd(a *app) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "storm-docker",
		Short:         "Run an Apache Storm cluster as Docker containers",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg == nil {
				cfg, err := LoadConfig(configPath, cmd.Flags())
				if err != nil {
					return topology.NewConfigError("config", err.Error(), topology.ErrInvalidYAML)
				}
				a.cfg = cfg
			}
			if a.logger == nil {
				a.logger = SetupLogger(a.cfg, os.Stderr)
			}
			return nil
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to config file")
	flags.String("setup", "", "path to the storm-setup.yaml topology document")
	flags.String("docker-host", "", "Docker daemon address")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	root.AddCommand(
		newRunCmd(a),
		newDestroyCmd(a),
		newPlanCmd(a),
		newComposeCmd(a),
		newVerifyCmd(a),
		newIdentityCmd(a),
		newRemoteCmd(a),
		newVersionCmd(a),
	)
	return root
}

// =============================================================================
// run / destroy
// =============================================================================

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <component>... [-- docker-args...]",
		Short: "Start the containers of the given components on this machine",
		Long: `Start the containers of the given components on this machine.

Components: zookeeper, nimbus, supervisor, ui, drpc, ambassador and the
combined names zookeeper-with-ambassador, nimbus-with-zookeeper-ambassador
and ui-on-zk-ambassador-machine. Arguments after -- are added to every
docker run command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, dockerArgs := splitDash(cmd, args)
			if len(names) == 0 {
				return topology.NewConfigError("component", "no component given", topology.ErrUnknownRole)
			}
			ctx := cmd.Context()

			r, err := a.runner(ctx, a.dryRun(cmd))
			if err != nil {
				return err
			}
			plans, _, err := a.containerPlans(ctx, names, r, dockerArgs)
			if err != nil {
				return err
			}
			started, err := r.Run(ctx, plans)
			for _, c := range started {
				a.logger.Info("container running", "container", c.Name, "container_id", c.ID)
			}
			return err
		},
	}
	cmd.Flags().Bool("dry-run", false, "print docker commands without running them")
	return cmd
}

func newDestroyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy [component...]",
		Short: "Remove the containers of the given components, or every managed container",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := a.runner(ctx, a.dryRun(cmd))
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return r.DestroyAll(ctx)
			}
			components, err := launch.ExpandComponents(args)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(components))
			for _, c := range components {
				names = append(names, c.ContainerName())
			}
			return r.Destroy(ctx, names)
		},
	}
	cmd.Flags().Bool("dry-run", false, "print docker commands without running them")
	return cmd
}

func (a *app) dryRun(cmd *cobra.Command) bool {
	dry, _ := cmd.Flags().GetBool("dry-run")
	return dry || a.cfg.Docker.DryRun
}

// splitDash separates components from the docker arguments given after --.
func splitDash(cmd *cobra.Command, args []string) (names, dockerArgs []string) {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		return args[:dash], args[dash:]
	}
	return args, nil
}

// =============================================================================
// plan / compose
// =============================================================================

type planView struct {
	LocalAddresses []string        `yaml:"local_addresses"`
	Roles          []roleView      `yaml:"roles"`
	Containers     []containerView `yaml:"containers"`
}

type roleView struct {
	Role      string        `yaml:"role"`
	CoLocated bool          `yaml:"co_located"`
	Addresses []addressView `yaml:"addresses"`
}

type addressView struct {
	Server    string `yaml:"server"`
	Declared  string `yaml:"declared"`
	Effective string `yaml:"effective"`
	Source    string `yaml:"source"`
}

type containerView struct {
	Name      string   `yaml:"name"`
	Component string   `yaml:"component"`
	Image     string   `yaml:"image"`
	Hostname  string   `yaml:"hostname"`
	Ports     []string `yaml:"ports,omitempty"`
	Expose    []int    `yaml:"expose,omitempty,flow"`
	Links     []string `yaml:"links,omitempty"`
	Command   string   `yaml:"command"`
}

func newPlanView(res *identity.Resolution, plans []launch.ContainerPlan) planView {
	v := planView{LocalAddresses: append([]string(nil), res.Local...)}
	for _, rr := range res.Roles() {
		rv := roleView{Role: string(rr.Role), CoLocated: rr.CoLocated}
		for _, addr := range rr.Addresses {
			rv.Addresses = append(rv.Addresses, addressView{
				Server:    addr.Server,
				Declared:  addr.Declared,
				Effective: addr.Effective,
				Source:    string(addr.Source),
			})
		}
		v.Roles = append(v.Roles, rv)
	}
	for _, p := range plans {
		cv := containerView{
			Name:      p.Name,
			Component: string(p.Component),
			Image:     p.Image,
			Hostname:  p.Hostname,
			Expose:    p.Exposed,
			Command:   p.CommandLine(),
		}
		for _, pm := range p.Ports {
			cv.Ports = append(cv.Ports, pm.String())
		}
		for _, l := range p.Links {
			cv.Links = append(cv.Links, l.String())
		}
		v.Containers = append(v.Containers, cv)
	}
	return v
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <component>...",
		Short: "Print the resolved roles, ports and links without starting anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, res, err := a.containerPlans(cmd.Context(), args, nil, nil)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(newPlanView(res, plans)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newComposeCmd(a *app) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "compose <component>...",
		Short: "Print the planned containers as a compose file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, _, err := a.containerPlans(cmd.Context(), args, nil, nil)
			if err != nil {
				return err
			}
			out, err := launch.MarshalCompose(project, plans)
			if err != nil {
				return err
			}
			_, err = a.out.Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&project, "project", launch.DefaultProjectName, "compose project name")
	return cmd
}

// =============================================================================
// verify / identity
// =============================================================================

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the topology document and report every problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := os.ReadFile(a.cfg.Setup.Path)
			if err != nil {
				return topology.NewConfigError("setup.path", err.Error(), topology.ErrMissingKey)
			}
			t, err := topology.Decode(content)
			if err != nil {
				return err
			}
			issues := topology.Validate(t)
			errs, warns := issues.Errors(), issues.Warnings()
			for _, i := range errs {
				fmt.Fprintln(a.out, i.String())
			}
			for _, i := range warns {
				fmt.Fprintln(a.out, i.String())
			}
			if issues.HasErrors() {
				return topology.NewConfigError(errs[0].Field,
					fmt.Sprintf("%d error(s), %d warning(s) in %s", len(errs), len(warns), a.cfg.Setup.Path), errs[0].Err)
			}
			if len(warns) > 0 {
				fmt.Fprintf(a.out, "%s is valid with %d warning(s)\n", a.cfg.Setup.Path, len(warns))
				return nil
			}
			fmt.Fprintf(a.out, "%s is valid\n", a.cfg.Setup.Path)
			return nil
		},
	}
}

func newIdentityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Print the addresses of this machine and the roles it hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			t, err := a.loadTopology()
			if err != nil {
				return err
			}
			local, err := a.localIdentity(ctx, t)
			if err != nil {
				return err
			}
			for _, addr := range local {
				fmt.Fprintln(a.out, addr)
			}
			res, err := identity.Resolve(identity.Input{Topology: t, Local: local})
			if err != nil {
				return err
			}
			for _, rr := range res.Roles() {
				if server, ok := rr.LocalServer(); ok {
					fmt.Fprintf(a.out, "%s: %s\n", rr.Role, server)
				}
			}
			return nil
		},
	}
}

// =============================================================================
// remote / version
// =============================================================================

func newRemoteCmd(a *app) *cobra.Command {
	var sel coreremote.Selection
	var all, dryRun bool

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Launch components on their hosts over SSH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				sel = coreremote.All()
			}
			if sel.Empty() {
				return topology.NewConfigError("remote", "select --zookeeper, --nimbus, --ui, --supervisor or --all", topology.ErrUnknownRole)
			}
			t, err := a.loadTopology()
			if err != nil {
				return err
			}
			steps, err := coreremote.Plan(t, sel)
			if err != nil {
				return err
			}

			if dryRun {
				for _, s := range steps {
					destroy, run := coreremote.Commands(a.cfg.SSH.Workdir, a.cfg.SSH.Binary, s)
					fmt.Fprintf(a.out, "%s: %s\n%s: %s\n", s.Address, destroy, s.Address, run)
				}
				return nil
			}

			l, err := a.newLauncher(a.cfg.SSH, a.logger)
			if err != nil {
				return topology.NewConfigError("ssh", err.Error(), topology.ErrMissingKey)
			}
			defer l.Close()
			return l.Launch(cmd.Context(), steps, a.cfg.SSH.Workdir, a.cfg.SSH.Binary)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&sel.Zookeeper, "zookeeper", false, "run the zookeeper containers")
	f.BoolVar(&sel.Zookeeper, "zk", false, "alias of --zookeeper")
	f.BoolVar(&sel.Nimbus, "nimbus", false, "run the nimbus container")
	f.BoolVar(&sel.UI, "ui", false, "run the ui container")
	f.BoolVar(&sel.Supervisor, "supervisor", false, "run the supervisor containers")
	f.BoolVar(&all, "all", false, "run every component")
	f.BoolVar(&dryRun, "dry-run", false, "print the remote commands without running them")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.out, "storm-docker %s (built %s)\n", Version, BuildTime)
			return nil
		},
	}
}
