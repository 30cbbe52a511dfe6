package launch

import (
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// docker run Rendering
// =============================================================================

// DockerRunArgs renders the plan as `docker run` arguments, without the
// leading "docker run":
//
//	-d --name N -h H --dns D... -p P... --expose E... --link L... -e K=V...
//	--label K=V... [docker args...] IMAGE [args...]
//
// Environment variables and labels are sorted by key so the output is stable.
func (p ContainerPlan) DockerRunArgs() []string {
	var args []string
	if p.Detach {
		args = append(args, "-d")
	}
	if p.Name != "" {
		args = append(args, "--name", p.Name)
	}
	if p.Hostname != "" {
		args = append(args, "-h", p.Hostname)
	}
	for _, d := range p.DNS {
		args = append(args, "--dns", d)
	}
	for _, pm := range p.Ports {
		args = append(args, "-p", pm.String())
	}
	for _, e := range p.Exposed {
		args = append(args, "--expose", strconv.Itoa(e))
	}
	for _, l := range p.Links {
		args = append(args, "--link", l.String())
	}
	for _, kv := range p.EnvList() {
		args = append(args, "-e", kv)
	}
	for _, k := range sortedKeys(p.Labels) {
		args = append(args, "--label", k+"="+p.Labels[k])
	}
	args = append(args, p.DockerArgs...)
	args = append(args, p.Image)
	args = append(args, p.Args...)
	return args
}

// CommandLine renders the plan as a single printable `docker run` command.
// Arguments containing shell metacharacters are single quoted.
func (p ContainerPlan) CommandLine() string {
	args := p.DockerRunArgs()
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, "docker", "run")
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// EnvList returns the environment as sorted KEY=VALUE pairs.
func (p ContainerPlan) EnvList() []string {
	out := make([]string, 0, len(p.Env))
	for _, k := range sortedKeys(p.Env) {
		out = append(out, k+"="+p.Env[k])
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// shellQuote single-quotes s when a POSIX shell would otherwise split or
// expand it. An embedded single quote closes the quoting, is escaped with a
// backslash, and reopens it.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`;&|<>()*?[]{}!#~") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}
