package topology

import (
	"fmt"
	"strings"
)

// =============================================================================
// Roles
// =============================================================================

// Role is a Storm or Zookeeper cluster function that runs in its own container.
type Role string

const (
	RoleZookeeper  Role = "zookeeper"
	RoleNimbus     Role = "nimbus"
	RoleSupervisor Role = "supervisor"
	RoleUI         Role = "ui"
	RoleDRPC       Role = "drpc"
	// RoleLogviewer has no hosts of its own; it runs inside the supervisor container.
	RoleLogviewer Role = "logviewer"
)

// AllRoles lists every known role in canonical order.
var AllRoles = []Role{RoleZookeeper, RoleNimbus, RoleSupervisor, RoleUI, RoleDRPC, RoleLogviewer}

// HostedRoles lists the roles that have their own host list in the topology.
var HostedRoles = []Role{RoleZookeeper, RoleNimbus, RoleSupervisor, RoleUI, RoleDRPC}

// ParseRole converts a role name into a Role.
// Unknown names are rejected with a ConfigError wrapping ErrUnknownRole.
func ParseRole(name string) (Role, error) {
	normalized := Role(strings.ToLower(strings.TrimSpace(name)))
	for _, r := range AllRoles {
		if r == normalized {
			return r, nil
		}
	}
	return "", NewConfigError("role", fmt.Sprintf("unknown role %q", name), ErrUnknownRole)
}

// ParseRoles converts role names in order. It fails on the first unknown name
// so that callers never act on a partial role set.
func ParseRoles(names []string) ([]Role, error) {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// LinkAlias returns the Docker link alias other containers use for the role.
// The alias also prefixes the link environment variables (e.g. ZK_PORT_2181_TCP_ADDR).
func (r Role) LinkAlias() string {
	switch r {
	case RoleZookeeper:
		return "zk"
	default:
		return string(r)
	}
}

// =============================================================================
// Port Sections
// =============================================================================

// PortKey names a configurable port section of the topology document.
type PortKey string

const (
	PortNimbusThrift      PortKey = "nimbus.thrift.port"
	PortDRPC              PortKey = "drpc.port"
	PortDRPCInvocations   PortKey = "drpc.invocations.port"
	PortLogviewer         PortKey = "logviewer.port"
	PortUI                PortKey = "ui.port"
	PortSupervisorSlots   PortKey = "supervisor.slots.ports"
	PortZookeeperClient   PortKey = "storm.zookeeper.port"
	PortZookeeperFollower PortKey = "follower.port"
	PortZookeeperElection PortKey = "election.port"
)

// Sections of the topology document that hold port keys.
const (
	SectionStormYAML        = "storm.yaml"
	SectionZookeeperCluster = "zookeeper.multiple.setup"
)

// PortSpec describes a port section and its defaults.
type PortSpec struct {
	Key      PortKey
	Defaults []int
	NeedsUDP bool
	Section  string
}

var portSpecs = map[PortKey]PortSpec{
	PortNimbusThrift:      {Key: PortNimbusThrift, Defaults: []int{6627}, Section: SectionStormYAML},
	PortDRPC:              {Key: PortDRPC, Defaults: []int{3772}, Section: SectionStormYAML},
	PortDRPCInvocations:   {Key: PortDRPCInvocations, Defaults: []int{3773}, Section: SectionStormYAML},
	PortLogviewer:         {Key: PortLogviewer, Defaults: []int{8000}, Section: SectionStormYAML},
	PortUI:                {Key: PortUI, Defaults: []int{8080}, Section: SectionStormYAML},
	PortSupervisorSlots:   {Key: PortSupervisorSlots, Defaults: []int{6700, 6701, 6702, 6703}, Section: SectionStormYAML},
	PortZookeeperClient:   {Key: PortZookeeperClient, Defaults: []int{2181}, Section: SectionStormYAML},
	PortZookeeperFollower: {Key: PortZookeeperFollower, Defaults: []int{2888}, NeedsUDP: true, Section: SectionZookeeperCluster},
	PortZookeeperElection: {Key: PortZookeeperElection, Defaults: []int{3888}, Section: SectionZookeeperCluster},
}

var rolePortKeys = map[Role][]PortKey{
	RoleDRPC:       {PortDRPC, PortDRPCInvocations},
	RoleLogviewer:  {PortLogviewer},
	RoleNimbus:     {PortNimbusThrift},
	RoleSupervisor: {PortSupervisorSlots},
	RoleUI:         {PortUI},
	RoleZookeeper:  {PortZookeeperClient, PortZookeeperFollower, PortZookeeperElection},
}

// LookupPortSpec returns the PortSpec registered for key.
func LookupPortSpec(key PortKey) (PortSpec, bool) {
	spec, ok := portSpecs[key]
	return spec, ok
}

// PortKeys returns the port sections used by a role, in declaration order.
func PortKeys(r Role) []PortKey {
	keys := rolePortKeys[r]
	out := make([]PortKey, len(keys))
	copy(out, keys)
	return out
}

// PrimaryPortKey returns the port section whose first port identifies the role
// in link environment variables.
func PrimaryPortKey(r Role) PortKey {
	keys := rolePortKeys[r]
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
