package stormconf

import (
	"fmt"
	"strings"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// ExtraHost is one /etc/dnsmasq-extra-hosts entry.
type ExtraHost struct {
	IP      string
	Aliases []string
}

// Arg renders the host in the `ip@alias1,alias2` command line form.
func (h ExtraHost) Arg() string {
	return h.IP + "@" + strings.Join(h.Aliases, ",")
}

// Line renders the host as a dnsmasq hosts line.
func (h ExtraHost) Line() string {
	return h.IP + " " + strings.Join(h.Aliases, " ")
}

// ParseExtraHost parses the `ip@alias1,alias2` form.
func ParseExtraHost(arg string) (ExtraHost, error) {
	ip, rest, found := strings.Cut(strings.TrimSpace(arg), "@")
	if !found || ip == "" {
		return ExtraHost{}, fmt.Errorf("extra host %q: want ip@alias[,alias...]", arg)
	}
	if !topology.IsIPv4(ip) {
		return ExtraHost{}, fmt.Errorf("extra host %q: %q is not an IPv4 address", arg, ip)
	}
	var aliases []string
	for _, a := range strings.Split(rest, ",") {
		if a = strings.TrimSpace(a); a != "" {
			aliases = append(aliases, a)
		}
	}
	if len(aliases) == 0 {
		return ExtraHost{}, fmt.Errorf("extra host %q: no aliases", arg)
	}
	return ExtraHost{IP: ip, Aliases: aliases}, nil
}

// SupervisorHosts lists every supervisor host with the names workers use to
// reach it: the server name and the supervisor container hostname.
func SupervisorHosts(t *topology.Topology) ([]ExtraHost, error) {
	var out []ExtraHost
	for _, h := range t.RoleHosts(topology.RoleSupervisor) {
		addr, err := t.Address(h)
		if err != nil {
			return nil, err
		}
		name := t.ServerName(h)
		out = append(out, ExtraHost{
			IP:      addr,
			Aliases: []string{name, name + "-" + string(topology.RoleSupervisor)},
		})
	}
	return out, nil
}

// RenderDnsmasqHosts renders the hosts that are not local, one per line.
func RenderDnsmasqHosts(hosts []ExtraHost, local identity.LocalIdentity) string {
	var b strings.Builder
	for _, h := range hosts {
		if local.Contains(h.IP) {
			continue
		}
		b.WriteString(h.Line())
		b.WriteByte('\n')
	}
	return b.String()
}
