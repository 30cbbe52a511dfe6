// Package identity decides which Storm roles run on the current machine.
//
// Given a topology and the machine's own addresses, Resolve marks each role
// as co-located or remote and picks the address other containers should use
// to reach it. For co-located roles the address comes from the Docker link
// environment variable (e.g. ZK_PORT_2181_TCP_ADDR); when that variable is
// absent the machine's primary address is used instead. A missing variable is
// never an error.
//
// Everything the resolver reads is passed in explicitly, so the same inputs
// always produce the same Resolution.
package identity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/storm-docker/internal/core/topology"
)

// =============================================================================
// Inputs
// =============================================================================

// LocalIdentity is the set of IPv4 addresses that belong to this machine.
type LocalIdentity []string

// Contains reports whether addr is one of the local addresses.
func (l LocalIdentity) Contains(addr string) bool {
	for _, a := range l {
		if a == addr {
			return true
		}
	}
	return false
}

// Normalize trims, drops empty entries and removes duplicates, keeping the
// first occurrence of each address.
func (l LocalIdentity) Normalize() LocalIdentity {
	seen := make(map[string]bool, len(l))
	out := make(LocalIdentity, 0, len(l))
	for _, a := range l {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// LookupFunc looks up an environment-style key. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// MapLookup returns a LookupFunc backed by a map.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// Input holds everything the resolver reads.
type Input struct {
	Topology *topology.Topology
	Local    LocalIdentity

	// Env is consulted for link variables. Nil means no variables are set.
	Env LookupFunc

	// Primary is the fallback address for co-located roles without a link
	// variable (the `hostname -i` of the container). When empty the
	// declared address is kept.
	Primary string
}

// =============================================================================
// Outputs
// =============================================================================

// Source tells where an effective address came from.
type Source string

const (
	SourceTopology Source = "topology"
	SourceLinkEnv  Source = "link-env"
	SourcePrimary  Source = "primary"
)

// Address is one resolved host entry of a role.
type Address struct {
	Entry     string // as written in the topology (name or IP)
	Server    string // logical server name
	Declared  string // topology-declared IPv4 address
	Effective string // address to hand to Storm/Zookeeper
	Local     bool
	Source    Source
}

// ResolvedRole is the resolution of a single role.
type ResolvedRole struct {
	Role      topology.Role
	CoLocated bool
	Addresses []Address
}

// Effective returns the effective addresses in declaration order.
func (r ResolvedRole) Effective() []string {
	out := make([]string, 0, len(r.Addresses))
	for _, a := range r.Addresses {
		out = append(out, a.Effective)
	}
	return out
}

// Declared returns the declared addresses in declaration order.
func (r ResolvedRole) Declared() []string {
	out := make([]string, 0, len(r.Addresses))
	for _, a := range r.Addresses {
		out = append(out, a.Declared)
	}
	return out
}

// LocalIndex returns the index of the first local address, or -1.
func (r ResolvedRole) LocalIndex() int {
	for i, a := range r.Addresses {
		if a.Local {
			return i
		}
	}
	return -1
}

// LastLocalIndex returns the index of the last local address, or -1.
func (r ResolvedRole) LastLocalIndex() int {
	for i := len(r.Addresses) - 1; i >= 0; i-- {
		if r.Addresses[i].Local {
			return i
		}
	}
	return -1
}

// LocalServer returns the server name of the first local address.
func (r ResolvedRole) LocalServer() (string, bool) {
	if i := r.LocalIndex(); i >= 0 {
		return r.Addresses[i].Server, true
	}
	return "", false
}

// Resolution is the result of resolving every hosted role.
type Resolution struct {
	Local LocalIdentity
	roles map[topology.Role]ResolvedRole
}

// Role returns the resolution of a role. ok is false when the topology
// declares no hosts for it.
func (r *Resolution) Role(role topology.Role) (ResolvedRole, bool) {
	if r == nil {
		return ResolvedRole{}, false
	}
	rr, ok := r.roles[role]
	return rr, ok
}

// CoLocated reports whether role runs on this machine.
func (r *Resolution) CoLocated(role topology.Role) bool {
	rr, ok := r.Role(role)
	return ok && rr.CoLocated
}

// Roles returns every resolved role in canonical order.
func (r *Resolution) Roles() []ResolvedRole {
	if r == nil {
		return nil
	}
	out := make([]ResolvedRole, 0, len(r.roles))
	for _, role := range topology.HostedRoles {
		if rr, ok := r.roles[role]; ok {
			out = append(out, rr)
		}
	}
	return out
}

// Require returns the resolution of a role that must run on this machine.
func (r *Resolution) Require(role topology.Role) (ResolvedRole, error) {
	rr, ok := r.Role(role)
	if !ok || !rr.CoLocated {
		var local []string
		if r != nil {
			local = append(local, r.Local...)
		}
		return ResolvedRole{}, &MismatchError{Role: role, Local: local, Declared: rr.Declared()}
	}
	return rr, nil
}

// =============================================================================
// Resolver
// =============================================================================

// LinkEnvKey returns the Docker link variable holding the address of role
// when it listens on port, e.g. ZK_PORT_2181_TCP_ADDR.
func LinkEnvKey(role topology.Role, port int) string {
	return fmt.Sprintf("%s_PORT_%d_TCP_ADDR", strings.ToUpper(role.LinkAlias()), port)
}

// Resolve resolves every role that has declared hosts.
//
// It fails with a ConfigError when a host entry is not declared, and with a
// MismatchError when no local address matches any declared role address.
func Resolve(in Input) (*Resolution, error) {
	if in.Topology == nil {
		return nil, topology.NewConfigError("", "topology is required", topology.ErrMissingKey)
	}
	local := in.Local.Normalize()
	if len(local) == 0 {
		return nil, &MismatchError{Local: nil, Declared: declaredAddresses(in.Topology)}
	}

	res := &Resolution{
		Local: local,
		roles: make(map[topology.Role]ResolvedRole),
	}

	anyLocal := false
	for _, role := range topology.HostedRoles {
		hosts := in.Topology.RoleHosts(role)
		if len(hosts) == 0 {
			continue
		}
		rr, err := resolveRole(in, local, role, hosts)
		if err != nil {
			return nil, err
		}
		if rr.CoLocated {
			anyLocal = true
		}
		res.roles[role] = rr
	}

	if !anyLocal {
		return nil, &MismatchError{Local: append([]string(nil), local...), Declared: declaredAddresses(in.Topology)}
	}
	return res, nil
}

func resolveRole(in Input, local LocalIdentity, role topology.Role, hosts []string) (ResolvedRole, error) {
	rr := ResolvedRole{Role: role, Addresses: make([]Address, 0, len(hosts))}
	envKey := LinkEnvKey(role, in.Topology.PrimaryPort(role))

	for _, h := range hosts {
		declared, err := in.Topology.Address(h)
		if err != nil {
			return ResolvedRole{}, err
		}
		addr := Address{
			Entry:     h,
			Server:    in.Topology.ServerName(h),
			Declared:  declared,
			Effective: declared,
			Source:    SourceTopology,
		}
		if local.Contains(declared) {
			addr.Local = true
			rr.CoLocated = true
			addr.Effective, addr.Source = colocatedAddress(in, envKey, declared)
		}
		rr.Addresses = append(rr.Addresses, addr)
	}
	return rr, nil
}

// colocatedAddress applies the fallback policy for a co-located role:
// link variable, then primary address, then the declared address.
func colocatedAddress(in Input, envKey, declared string) (string, Source) {
	if in.Env != nil {
		if v, ok := in.Env(envKey); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), SourceLinkEnv
		}
	}
	if in.Primary != "" {
		return in.Primary, SourcePrimary
	}
	return declared, SourceTopology
}

// declaredAddresses lists every resolvable role address once, sorted.
func declaredAddresses(t *topology.Topology) []string {
	seen := make(map[string]bool)
	var out []string
	for _, role := range topology.HostedRoles {
		for _, h := range t.RoleHosts(role) {
			addr, err := t.Address(h)
			if err != nil || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}
