// Package topology describes which servers run which Storm roles.
//
// This package is part of the functional core: it decodes the
// storm-setup.yaml document into a Topology value and answers questions
// about it (role hosts, addresses, ports). Nothing here touches the network,
// the filesystem or the process environment.
package topology

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// =============================================================================
// Topology Types
// =============================================================================

// Topology is the parsed storm-setup.yaml document with defaults applied.
type Topology struct {
	// Servers maps a logical server name to its IPv4 address.
	Servers map[string]string

	// Host lists. Entries are server names or literal IPv4 addresses.
	ZookeeperServers []string
	NimbusHost       string
	UIHost           string // empty means "same as NimbusHost"
	DRPCServers      []string
	SupervisorHosts  []string

	// Ports holds every port section, defaults filled in.
	Ports map[PortKey][]int

	LocalhostSetup bool
	EC2            bool
	Hetzner        bool
}

// RoleHosts returns the raw host entries declared for a role.
// Logviewer follows the supervisor hosts.
func (t *Topology) RoleHosts(r Role) []string {
	switch r {
	case RoleZookeeper:
		return cloneStrings(t.ZookeeperServers)
	case RoleNimbus:
		if t.NimbusHost == "" {
			return nil
		}
		return []string{t.NimbusHost}
	case RoleUI:
		if t.UIHost != "" {
			return []string{t.UIHost}
		}
		if t.NimbusHost != "" {
			return []string{t.NimbusHost}
		}
		return nil
	case RoleDRPC:
		return cloneStrings(t.DRPCServers)
	case RoleSupervisor, RoleLogviewer:
		return cloneStrings(t.SupervisorHosts)
	default:
		return nil
	}
}

// Address resolves a host entry to an IPv4 address.
// Declared server names win over literal addresses.
func (t *Topology) Address(entry string) (string, error) {
	if addr, ok := t.Servers[entry]; ok {
		return addr, nil
	}
	if IsIPv4(entry) {
		return entry, nil
	}
	return "", NewConfigError("servers", fmt.Sprintf("host %q is not declared", entry), ErrUndeclaredServer)
}

// RoleAddresses resolves every host entry of a role, preserving order.
func (t *Topology) RoleAddresses(r Role) ([]string, error) {
	hosts := t.RoleHosts(r)
	addrs := make([]string, 0, len(hosts))
	for _, h := range hosts {
		addr, err := t.Address(h)
		if err != nil {
			return nil, NewConfigError(roleField(r), fmt.Sprintf("host %q is not declared in servers", h), ErrUndeclaredServer)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// ServerName returns the logical name for a host entry. Literal addresses are
// mapped back through Servers; unknown addresses become dash-separated names
// so they remain valid container hostnames.
func (t *Topology) ServerName(entry string) string {
	if _, ok := t.Servers[entry]; ok {
		return entry
	}
	names := make([]string, 0, len(t.Servers))
	for name, addr := range t.Servers {
		if addr == entry {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		sort.Strings(names)
		return names[0]
	}
	return strings.ReplaceAll(entry, ".", "-")
}

// Port returns the ports configured for a section.
func (t *Topology) Port(key PortKey) []int {
	if ports, ok := t.Ports[key]; ok && len(ports) > 0 {
		out := make([]int, len(ports))
		copy(out, ports)
		return out
	}
	spec, ok := LookupPortSpec(key)
	if !ok {
		return nil
	}
	out := make([]int, len(spec.Defaults))
	copy(out, spec.Defaults)
	return out
}

// FirstPort returns the first port of a section, or 0 when none is known.
func (t *Topology) FirstPort(key PortKey) int {
	ports := t.Port(key)
	if len(ports) == 0 {
		return 0
	}
	return ports[0]
}

// PrimaryPort returns the port that identifies a role in link variables.
func (t *Topology) PrimaryPort(r Role) int {
	key := PrimaryPortKey(r)
	if key == "" {
		return 0
	}
	return t.FirstPort(key)
}

// =============================================================================
// Helpers
// =============================================================================

func roleField(r Role) string {
	switch r {
	case RoleZookeeper:
		return "storm.yaml.storm.zookeeper.servers"
	case RoleNimbus:
		return "storm.yaml.nimbus.host"
	case RoleUI:
		return "ui.host"
	case RoleDRPC:
		return "storm.yaml.drpc.servers"
	case RoleSupervisor, RoleLogviewer:
		return "storm.supervisor.hosts"
	default:
		return string(r)
	}
}

// IsIPv4 reports whether s is a dotted-quad IPv4 address.
func IsIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && !strings.Contains(s, ":")
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
