package identity

import (
	"errors"
	"testing"

	"github.com/artpar/storm-docker/internal/core/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoHostTopology() *topology.Topology {
	return &topology.Topology{
		Servers:          map[string]string{"zk": "10.0.0.1", "nimbus": "10.0.0.2"},
		ZookeeperServers: []string{"zk"},
		NimbusHost:       "nimbus",
	}
}

// =============================================================================
// Resolve Tests
// =============================================================================

func TestResolve_ZookeeperLocalNimbusRemote(t *testing.T) {
	res, err := Resolve(Input{
		Topology: twoHostTopology(),
		Local:    LocalIdentity{"10.0.0.1"},
	})
	require.NoError(t, err)

	zk, ok := res.Role(topology.RoleZookeeper)
	require.True(t, ok)
	assert.True(t, zk.CoLocated)

	nimbus, ok := res.Role(topology.RoleNimbus)
	require.True(t, ok)
	assert.False(t, nimbus.CoLocated)
	assert.Equal(t, []string{"10.0.0.2"}, nimbus.Effective())
	assert.Equal(t, SourceTopology, nimbus.Addresses[0].Source)
}

func TestResolve_PrefersLinkVariable(t *testing.T) {
	res, err := Resolve(Input{
		Topology: twoHostTopology(),
		Local:    LocalIdentity{"10.0.0.1", "10.0.0.2"},
		Env: MapLookup(map[string]string{
			"ZK_PORT_2181_TCP_ADDR":     "172.17.0.2",
			"NIMBUS_PORT_6627_TCP_ADDR": "172.17.0.3",
		}),
		Primary: "172.17.0.9",
	})
	require.NoError(t, err)

	zk, _ := res.Role(topology.RoleZookeeper)
	assert.Equal(t, []string{"172.17.0.2"}, zk.Effective())
	assert.Equal(t, SourceLinkEnv, zk.Addresses[0].Source)

	nimbus, _ := res.Role(topology.RoleNimbus)
	assert.Equal(t, []string{"172.17.0.3"}, nimbus.Effective())
}

func TestResolve_FallsBackToPrimaryWithoutLinkVariable(t *testing.T) {
	res, err := Resolve(Input{
		Topology: twoHostTopology(),
		Local:    LocalIdentity{"10.0.0.2"},
		Env:      MapLookup(map[string]string{}),
		Primary:  "172.17.0.5",
	})
	require.NoError(t, err)

	nimbus, _ := res.Role(topology.RoleNimbus)
	assert.Equal(t, []string{"172.17.0.5"}, nimbus.Effective())
	assert.Equal(t, SourcePrimary, nimbus.Addresses[0].Source)
}

func TestResolve_EmptyLinkVariableIsAbsent(t *testing.T) {
	res, err := Resolve(Input{
		Topology: twoHostTopology(),
		Local:    LocalIdentity{"10.0.0.2"},
		Env:      MapLookup(map[string]string{"NIMBUS_PORT_6627_TCP_ADDR": "  "}),
		Primary:  "172.17.0.5",
	})
	require.NoError(t, err)

	nimbus, _ := res.Role(topology.RoleNimbus)
	assert.Equal(t, "172.17.0.5", nimbus.Addresses[0].Effective)
}

func TestResolve_NoPrimaryKeepsDeclared(t *testing.T) {
	res, err := Resolve(Input{Topology: twoHostTopology(), Local: LocalIdentity{"10.0.0.1"}})
	require.NoError(t, err)

	zk, _ := res.Role(topology.RoleZookeeper)
	assert.Equal(t, []string{"10.0.0.1"}, zk.Effective())
	assert.True(t, zk.Addresses[0].Local)
}

func TestResolve_LinkKeyFollowsPortOverride(t *testing.T) {
	topo := twoHostTopology()
	topo.Ports = map[topology.PortKey][]int{topology.PortZookeeperClient: {2182}}

	res, err := Resolve(Input{
		Topology: topo,
		Local:    LocalIdentity{"10.0.0.1"},
		Env:      MapLookup(map[string]string{"ZK_PORT_2182_TCP_ADDR": "172.17.0.4"}),
	})
	require.NoError(t, err)

	zk, _ := res.Role(topology.RoleZookeeper)
	assert.Equal(t, []string{"172.17.0.4"}, zk.Effective())
}

func TestResolve_MultipleZookeepers(t *testing.T) {
	topo := &topology.Topology{
		Servers:          map[string]string{"a": "10.0.0.1", "b": "10.0.0.2", "c": "10.0.0.3"},
		ZookeeperServers: []string{"a", "b", "c"},
	}
	res, err := Resolve(Input{Topology: topo, Local: LocalIdentity{"10.0.0.2"}, Primary: "172.17.0.8"})
	require.NoError(t, err)

	zk, _ := res.Role(topology.RoleZookeeper)
	assert.Equal(t, []string{"10.0.0.1", "172.17.0.8", "10.0.0.3"}, zk.Effective())
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, zk.Declared())
	assert.Equal(t, 1, zk.LocalIndex())

	server, ok := zk.LocalServer()
	require.True(t, ok)
	assert.Equal(t, "b", server)
}

func TestResolvedRole_LastLocalIndex(t *testing.T) {
	topo := &topology.Topology{
		Servers:          map[string]string{"a": "127.0.0.1", "b": "10.0.0.2", "c": "127.0.0.3"},
		ZookeeperServers: []string{"a", "b", "c"},
	}
	res, err := Resolve(Input{Topology: topo, Local: LocalIdentity{"127.0.0.1", "127.0.0.3"}})
	require.NoError(t, err)

	zk, _ := res.Role(topology.RoleZookeeper)
	assert.Equal(t, 0, zk.LocalIndex())
	assert.Equal(t, 2, zk.LastLocalIndex())
	assert.Equal(t, -1, ResolvedRole{}.LastLocalIndex())
}

func TestResolve_IdentityMismatch(t *testing.T) {
	_, err := Resolve(Input{Topology: twoHostTopology(), Local: LocalIdentity{"192.168.0.10"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdentityMismatch)

	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Empty(t, mm.Role)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, mm.Declared)
	assert.Contains(t, err.Error(), "192.168.0.10")
}

func TestResolve_EmptyLocalIdentity(t *testing.T) {
	_, err := Resolve(Input{Topology: twoHostTopology(), Local: LocalIdentity{" ", ""}})
	assert.ErrorIs(t, err, ErrIdentityMismatch)
}

func TestResolve_UndeclaredServerIsConfigurationError(t *testing.T) {
	topo := twoHostTopology()
	topo.SupervisorHosts = []string{"ghost"}

	_, err := Resolve(Input{Topology: topo, Local: LocalIdentity{"10.0.0.1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, topology.ErrConfiguration)
	assert.ErrorIs(t, err, topology.ErrUndeclaredServer)
}

func TestResolve_NilTopology(t *testing.T) {
	_, err := Resolve(Input{Local: LocalIdentity{"10.0.0.1"}})
	assert.True(t, topology.IsConfigurationError(err))
}

func TestResolve_Idempotent(t *testing.T) {
	in := Input{
		Topology: twoHostTopology(),
		Local:    LocalIdentity{"10.0.0.1", "10.0.0.1"},
		Env:      MapLookup(map[string]string{"ZK_PORT_2181_TCP_ADDR": "172.17.0.2"}),
		Primary:  "172.17.0.9",
	}
	first, err := Resolve(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Resolve(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// =============================================================================
// Resolution Accessor Tests
// =============================================================================

func TestRequire(t *testing.T) {
	res, err := Resolve(Input{Topology: twoHostTopology(), Local: LocalIdentity{"10.0.0.1"}})
	require.NoError(t, err)

	zk, err := res.Require(topology.RoleZookeeper)
	require.NoError(t, err)
	assert.Equal(t, topology.RoleZookeeper, zk.Role)

	_, err = res.Require(topology.RoleNimbus)
	require.Error(t, err)
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, topology.RoleNimbus, mm.Role)
	assert.Equal(t, []string{"10.0.0.2"}, mm.Declared)

	_, err = res.Require(topology.RoleSupervisor)
	assert.ErrorIs(t, err, ErrIdentityMismatch)
}

func TestRoles_CanonicalOrder(t *testing.T) {
	topo := twoHostTopology()
	topo.SupervisorHosts = []string{"zk"}
	res, err := Resolve(Input{Topology: topo, Local: LocalIdentity{"10.0.0.1"}})
	require.NoError(t, err)

	var roles []topology.Role
	for _, rr := range res.Roles() {
		roles = append(roles, rr.Role)
	}
	// ui follows nimbus.host
	assert.Equal(t, []topology.Role{topology.RoleZookeeper, topology.RoleNimbus, topology.RoleSupervisor, topology.RoleUI}, roles)
}

func TestNilResolution(t *testing.T) {
	var res *Resolution
	assert.False(t, res.CoLocated(topology.RoleNimbus))
	assert.Nil(t, res.Roles())
	_, err := res.Require(topology.RoleNimbus)
	assert.ErrorIs(t, err, ErrIdentityMismatch)
}

func TestLinkEnvKey(t *testing.T) {
	assert.Equal(t, "ZK_PORT_2181_TCP_ADDR", LinkEnvKey(topology.RoleZookeeper, 2181))
	assert.Equal(t, "NIMBUS_PORT_6627_TCP_ADDR", LinkEnvKey(topology.RoleNimbus, 6627))
}

func TestLocalIdentityNormalize(t *testing.T) {
	l := LocalIdentity{" 10.0.0.1", "", "10.0.0.2", "10.0.0.1"}
	assert.Equal(t, LocalIdentity{"10.0.0.1", "10.0.0.2"}, l.Normalize())
}
