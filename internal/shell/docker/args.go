package docker

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/pflag"

	"github.com/artpar/storm-docker/internal/core/topology"
)

// RunOptions are the `docker run` flags that can follow `--` on the command
// line and still reach the daemon when containers start through the API.
type RunOptions struct {
	Binds       []string
	Env         map[string]string
	Labels      map[string]string
	NetworkMode string
	Restart     RestartPolicy
	Memory      int64
	Privileged  bool
}

// RestartPolicy mirrors --restart. An empty Name leaves the daemon default.
type RestartPolicy struct {
	Name       string
	MaxRetries int
}

// ParseRunArgs parses extra `docker run` arguments. Flags outside
// -v/--volume, -e/--env, -l/--label, --network/--net, --restart,
// -m/--memory and --privileged, as well as positional arguments, are
// rejected with a configuration error.
func ParseRunArgs(args []string) (RunOptions, error) {
	var (
		volumes, env, labels          []string
		network, net, restart, memory string
		opts                          RunOptions
	)
	fs := pflag.NewFlagSet("docker run", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringArrayVarP(&volumes, "volume", "v", nil, "bind mount")
	fs.StringArrayVarP(&env, "env", "e", nil, "environment variable")
	fs.StringArrayVarP(&labels, "label", "l", nil, "container label")
	fs.StringVar(&network, "network", "", "network mode")
	fs.StringVar(&net, "net", "", "network mode")
	fs.StringVar(&restart, "restart", "", "restart policy")
	fs.StringVarP(&memory, "memory", "m", "", "memory limit")
	fs.BoolVar(&opts.Privileged, "privileged", false, "extended privileges")

	if err := fs.Parse(args); err != nil {
		return RunOptions{}, runArgsError(err.Error())
	}
	if fs.NArg() > 0 {
		return RunOptions{}, runArgsError(fmt.Sprintf("unexpected argument %q", fs.Arg(0)))
	}

	opts.Binds = volumes
	opts.NetworkMode = network
	if opts.NetworkMode == "" {
		opts.NetworkMode = net
	}
	var err error
	if opts.Env, err = keyValues("--env", env); err != nil {
		return RunOptions{}, err
	}
	if opts.Labels, err = keyValues("--label", labels); err != nil {
		return RunOptions{}, err
	}
	if opts.Restart, err = parseRestart(restart); err != nil {
		return RunOptions{}, err
	}
	if memory != "" {
		if opts.Memory, err = units.RAMInBytes(memory); err != nil {
			return RunOptions{}, runArgsError(fmt.Sprintf("invalid --memory %q: %v", memory, err))
		}
	}
	return opts, nil
}

// Apply merges the options into spec. Flag values win over planned ones.
func (o RunOptions) Apply(spec *ContainerSpec) {
	spec.Binds = append(spec.Binds, o.Binds...)
	if spec.Env == nil && len(o.Env) > 0 {
		spec.Env = make(map[string]string, len(o.Env))
	}
	for k, v := range o.Env {
		spec.Env[k] = v
	}
	if spec.Labels == nil && len(o.Labels) > 0 {
		spec.Labels = make(map[string]string, len(o.Labels))
	}
	for k, v := range o.Labels {
		spec.Labels[k] = v
	}
	if o.NetworkMode != "" {
		spec.NetworkMode = o.NetworkMode
	}
	if o.Restart.Name != "" {
		spec.Restart = o.Restart
	}
	if o.Memory != 0 {
		spec.Memory = o.Memory
	}
	spec.Privileged = spec.Privileged || o.Privileged
}

// keyValues splits KEY=VALUE items. For --env a bare KEY takes its value
// from this process's environment, as docker does.
func keyValues(flag string, items []string) (map[string]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, hasValue := strings.Cut(item, "=")
		if !hasValue && flag == "--env" {
			v = os.Getenv(k)
		}
		if k == "" {
			return nil, runArgsError(fmt.Sprintf("invalid %s %q", flag, item))
		}
		out[k] = v
	}
	return out, nil
}

func parseRestart(s string) (RestartPolicy, error) {
	if s == "" {
		return RestartPolicy{}, nil
	}
	name, retries, hasRetries := strings.Cut(s, ":")
	switch name {
	case "no", "always", "unless-stopped":
		if hasRetries {
			return RestartPolicy{}, runArgsError(fmt.Sprintf("restart policy %q takes no retry count", name))
		}
		return RestartPolicy{Name: name}, nil
	case "on-failure":
		p := RestartPolicy{Name: name}
		if hasRetries {
			n, err := strconv.Atoi(retries)
			if err != nil || n < 0 {
				return RestartPolicy{}, runArgsError(fmt.Sprintf("invalid restart retry count %q", retries))
			}
			p.MaxRetries = n
		}
		return p, nil
	}
	return RestartPolicy{}, runArgsError(fmt.Sprintf("unknown restart policy %q", s))
}

func runArgsError(msg string) error {
	return topology.NewConfigError("docker args", msg, topology.ErrConfiguration)
}
