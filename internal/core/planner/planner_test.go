package planner

import (
	"testing"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTopology() *topology.Topology {
	return &topology.Topology{
		Servers:          map[string]string{"zk": "10.0.0.1", "nimbus": "10.0.0.2"},
		ZookeeperServers: []string{"zk"},
		NimbusHost:       "nimbus",
		SupervisorHosts:  []string{"zk", "nimbus"},
	}
}

func resolve(t *testing.T, topo *topology.Topology, local ...string) *identity.Resolution {
	t.Helper()
	res, err := identity.Resolve(identity.Input{Topology: topo, Local: local})
	require.NoError(t, err)
	return res
}

// =============================================================================
// PlanPorts Tests
// =============================================================================

func TestPlanPorts_ZookeeperDefaults(t *testing.T) {
	rp := PlanPorts(testTopology(), topology.RoleZookeeper)

	assert.Equal(t, []PortMapping{
		{ContainerPort: 2181, HostPort: 2181, Protocol: "tcp"},
		{ContainerPort: 2888, HostPort: 2888, Protocol: "tcp"},
		{ContainerPort: 2888, HostPort: 2888, Protocol: "udp"},
		{ContainerPort: 3888, HostPort: 3888, Protocol: "tcp"},
	}, rp.Ports)
	assert.Equal(t, []int{2181, 2888, 3888}, rp.Exposed)
}

func TestPlanPorts_SupervisorSlots(t *testing.T) {
	topo := testTopology()
	topo.Ports = map[topology.PortKey][]int{topology.PortSupervisorSlots: {6800, 6801}}

	rp := PlanPorts(topo, topology.RoleSupervisor)
	require.Len(t, rp.Ports, 2)
	assert.Equal(t, 6800, rp.Ports[0].ContainerPort)
	assert.Equal(t, 6801, rp.Ports[1].HostPort)
	assert.Equal(t, []int{6800, 6801}, rp.Exposed)
}

func TestPortMapping_String(t *testing.T) {
	assert.Equal(t, "6627:6627", PortMapping{ContainerPort: 6627, HostPort: 6627, Protocol: "tcp"}.String())
	assert.Equal(t, "2888:2888/udp", PortMapping{ContainerPort: 2888, HostPort: 2888, Protocol: "udp"}.String())
	assert.Equal(t, "49000:8000", PortMapping{ContainerPort: 8000, HostPort: 49000}.String())
}

// =============================================================================
// Links Tests
// =============================================================================

func TestLinks_ZookeeperLocalNimbusRemote(t *testing.T) {
	topo := &topology.Topology{
		Servers:          map[string]string{"zk": "10.0.0.1", "nimbus": "10.0.0.2"},
		ZookeeperServers: []string{"zk"},
		NimbusHost:       "nimbus",
	}
	res := resolve(t, topo, "10.0.0.1")

	assert.Equal(t, []Link{{Container: "zookeeper", Alias: "zk"}}, Links(res, Options{}))
}

func TestLinks_BothLocal(t *testing.T) {
	res := resolve(t, testTopology(), "10.0.0.1", "10.0.0.2")

	links := Links(res, Options{})
	assert.Equal(t, []Link{
		{Container: "zookeeper", Alias: "zk"},
		{Container: "nimbus", Alias: "nimbus"},
	}, links)
	assert.Equal(t, "zookeeper:zk", links[0].String())
}

func TestLinks_AmbassadorStandsInForRemoteZookeeper(t *testing.T) {
	res := resolve(t, testTopology(), "10.0.0.2")

	links := Links(res, Options{AmbassadorRunning: true})
	assert.Equal(t, []Link{
		{Container: "zk_ambassador", Alias: "zk"},
		{Container: "nimbus", Alias: "nimbus"},
	}, links)
}

func TestLinks_LocalZookeeperWinsOverAmbassador(t *testing.T) {
	res := resolve(t, testTopology(), "10.0.0.1")

	links := Links(res, Options{AmbassadorRunning: true})
	assert.Equal(t, []Link{{Container: "zookeeper", Alias: "zk"}}, links)
}

// =============================================================================
// Build Tests
// =============================================================================

func TestBuild_EmptyRoleSet(t *testing.T) {
	res := resolve(t, testTopology(), "10.0.0.1", "10.0.0.2")

	plan, err := Build(testTopology(), res, nil, Options{})
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
	assert.Empty(t, plan.Ports())
	assert.Empty(t, plan.Exposed())
	assert.Empty(t, plan.Links)
}

func TestBuild_UnknownRole(t *testing.T) {
	res := resolve(t, testTopology(), "10.0.0.1")

	plan, err := Build(testTopology(), res, []string{"supervisor", "drpc2"}, Options{})
	assert.Nil(t, plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, topology.ErrConfiguration)
	assert.ErrorIs(t, err, topology.ErrUnknownRole)
}

func TestBuild_SupervisorAndLogviewer(t *testing.T) {
	topo := testTopology()
	res := resolve(t, topo, "10.0.0.1")

	plan, err := Build(topo, res, []string{"supervisor", "logviewer"}, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Roles, 2)
	assert.Equal(t, topology.RoleSupervisor, plan.Roles[0].Role)
	assert.Equal(t, topology.RoleLogviewer, plan.Roles[1].Role)
	assert.Equal(t, []int{6700, 6701, 6702, 6703, 8000}, plan.Exposed())
	assert.Len(t, plan.Ports(), 5)
	assert.Equal(t, []Link{{Container: "zookeeper", Alias: "zk"}}, plan.Links)
}

func TestBuild_DropsSelfLinks(t *testing.T) {
	topo := testTopology()
	res := resolve(t, topo, "10.0.0.1", "10.0.0.2")

	plan, err := Build(topo, res, []string{"nimbus"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []Link{{Container: "zookeeper", Alias: "zk"}}, plan.Links)

	plan, err = Build(topo, res, []string{"zookeeper"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []Link{{Container: "nimbus", Alias: "nimbus"}}, plan.Links)
}

func TestBuild_DuplicateRolesPlannedOnce(t *testing.T) {
	topo := testTopology()
	plan, err := Build(topo, nil, []string{"ui", "ui"}, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Roles, 1)
	assert.Equal(t, []int{8080}, plan.Exposed())
	assert.Empty(t, plan.Links)
}

func TestBuild_Idempotent(t *testing.T) {
	topo := testTopology()
	res := resolve(t, topo, "10.0.0.1")

	first, err := Build(topo, res, []string{"zookeeper", "supervisor"}, Options{})
	require.NoError(t, err)
	second, err := Build(topo, res, []string{"zookeeper", "supervisor"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
