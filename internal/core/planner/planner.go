// Package planner derives Docker port and link declarations for Storm roles.
//
// This package contains pure functions: the input is a topology, a role set
// and the identity resolution of this machine; the output is an ordered list
// of port mappings and container links ready for the command composer.
package planner

import (
	"fmt"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// =============================================================================
// Plan Types
// =============================================================================

// Protocols used in port mappings.
const (
	ProtocolTCP = "tcp"
	ProtocolUDP = "udp"
)

// Well-known container names that links point at.
const (
	ContainerZookeeper    = "zookeeper"
	ContainerNimbus       = "nimbus"
	ContainerZKAmbassador = "zk_ambassador"
)

// PortMapping is a single port forwarding rule.
type PortMapping struct {
	ContainerPort int
	HostPort      int
	Protocol      string
}

// String renders the mapping in `docker run -p` form.
func (p PortMapping) String() string {
	if p.Protocol == ProtocolUDP {
		return fmt.Sprintf("%d:%d/udp", p.HostPort, p.ContainerPort)
	}
	return fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort)
}

// Link lets a container reach another container under a fixed alias.
type Link struct {
	Container string
	Alias     string
}

// String renders the link in `docker run --link` form.
func (l Link) String() string {
	return l.Container + ":" + l.Alias
}

// RolePorts holds the mappings contributed by one role.
type RolePorts struct {
	Role    topology.Role
	Ports   []PortMapping
	Exposed []int
}

// Plan is the port and link plan for a role set.
type Plan struct {
	Roles []RolePorts
	Links []Link
}

// Ports returns every port mapping, in role order.
func (p *Plan) Ports() []PortMapping {
	out := []PortMapping{}
	for _, rp := range p.Roles {
		out = append(out, rp.Ports...)
	}
	return out
}

// Exposed returns every exposed container port, in role order.
func (p *Plan) Exposed() []int {
	out := []int{}
	for _, rp := range p.Roles {
		out = append(out, rp.Exposed...)
	}
	return out
}

// IsEmpty reports whether the plan declares nothing at all.
func (p *Plan) IsEmpty() bool {
	return len(p.Ports()) == 0 && len(p.Exposed()) == 0 && len(p.Links) == 0
}

// Options tune link planning.
type Options struct {
	// AmbassadorRunning is true when a zk_ambassador container runs on this
	// machine; it stands in for a remote zookeeper.
	AmbassadorRunning bool
}

// =============================================================================
// Planning Functions
// =============================================================================

// PlanPorts returns the port mappings and exposed ports for a single role,
// using topology overrides and falling back to defaults.
//
// Every port p yields a TCP mapping p:p; ports that need UDP also yield p:p/udp.
// Ports are exposed once each.
func PlanPorts(t *topology.Topology, role topology.Role) RolePorts {
	rp := RolePorts{Role: role, Ports: []PortMapping{}, Exposed: []int{}}
	for _, key := range topology.PortKeys(role) {
		spec, _ := topology.LookupPortSpec(key)
		for _, port := range t.Port(key) {
			rp.Ports = append(rp.Ports, PortMapping{ContainerPort: port, HostPort: port, Protocol: ProtocolTCP})
			if spec.NeedsUDP {
				rp.Ports = append(rp.Ports, PortMapping{ContainerPort: port, HostPort: port, Protocol: ProtocolUDP})
			}
			rp.Exposed = append(rp.Exposed, port)
		}
	}
	return rp
}

// Links returns the container links implied by a resolution:
//   - zookeeper:zk when zookeeper runs on this machine,
//     otherwise zk_ambassador:zk when an ambassador runs here;
//   - nimbus:nimbus when nimbus runs on this machine.
func Links(res *identity.Resolution, opts Options) []Link {
	links := []Link{}
	switch {
	case res.CoLocated(topology.RoleZookeeper):
		links = append(links, Link{Container: ContainerZookeeper, Alias: topology.RoleZookeeper.LinkAlias()})
	case opts.AmbassadorRunning:
		links = append(links, Link{Container: ContainerZKAmbassador, Alias: topology.RoleZookeeper.LinkAlias()})
	}
	if res.CoLocated(topology.RoleNimbus) {
		links = append(links, Link{Container: ContainerNimbus, Alias: topology.RoleNimbus.LinkAlias()})
	}
	return links
}

// Build plans ports and links for the requested role names.
//
// Unknown role names fail the whole request with a ConfigError and no plan.
// An empty role set yields an empty plan. Links pointing at a container that
// is itself being planned are dropped, since a container cannot link to
// itself.
func Build(t *topology.Topology, res *identity.Resolution, roleNames []string, opts Options) (*Plan, error) {
	roles, err := topology.ParseRoles(roleNames)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Roles: []RolePorts{}, Links: []Link{}}
	if len(roles) == 0 {
		return plan, nil
	}
	if t == nil {
		return nil, topology.NewConfigError("", "topology is required", topology.ErrMissingKey)
	}

	// Role names double as container names.
	planned := make(map[string]bool, len(roles))
	for _, r := range roles {
		if planned[string(r)] {
			continue
		}
		planned[string(r)] = true
		plan.Roles = append(plan.Roles, PlanPorts(t, r))
	}

	for _, l := range Links(res, opts) {
		if planned[l.Container] {
			continue
		}
		plan.Links = append(plan.Links, l)
	}
	return plan, nil
}
