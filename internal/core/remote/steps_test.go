package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/storm-docker/internal/core/topology"
)

func splitTopology() *topology.Topology {
	return &topology.Topology{
		Servers: map[string]string{
			"zk1":     "10.0.0.1",
			"zk2":     "10.0.0.4",
			"nimbus1": "10.0.0.2",
			"worker1": "10.0.0.3",
		},
		ZookeeperServers: []string{"zk1", "zk2"},
		NimbusHost:       "nimbus1",
		SupervisorHosts:  []string{"worker1"},
	}
}

func TestNeedsAmbassador(t *testing.T) {
	topo := splitTopology()
	need, err := NeedsAmbassador(topo)
	require.NoError(t, err)
	assert.True(t, need)

	topo.NimbusHost = "zk2"
	need, err = NeedsAmbassador(topo)
	require.NoError(t, err)
	assert.False(t, need)

	// Same machine declared by address.
	topo.NimbusHost = "10.0.0.1"
	need, err = NeedsAmbassador(topo)
	require.NoError(t, err)
	assert.False(t, need)
}

func TestPlan_AllWithAmbassador(t *testing.T) {
	steps, err := Plan(splitTopology(), All())
	require.NoError(t, err)

	assert.Equal(t, []Step{
		{Host: "zk1", Address: "10.0.0.1", Component: "zookeeper-with-ambassador"},
		{Host: "zk2", Address: "10.0.0.4", Component: "zookeeper"},
		{Host: "nimbus1", Address: "10.0.0.2", Component: "nimbus-with-zookeeper-ambassador"},
		{Host: "nimbus1", Address: "10.0.0.2", Component: "ui-on-zk-ambassador-machine"},
		{Host: "worker1", Address: "10.0.0.3", Component: "supervisor"},
	}, steps)
}

func TestPlan_NimbusOnZookeeperHost(t *testing.T) {
	topo := splitTopology()
	topo.NimbusHost = "zk1"

	steps, err := Plan(topo, Selection{Zookeeper: true, Nimbus: true, UI: true})
	require.NoError(t, err)

	assert.Equal(t, []Step{
		{Host: "zk1", Address: "10.0.0.1", Component: "zookeeper"},
		{Host: "zk2", Address: "10.0.0.4", Component: "zookeeper"},
		{Host: "zk1", Address: "10.0.0.1", Component: "nimbus"},
		{Host: "zk1", Address: "10.0.0.1", Component: "ui"},
	}, steps)
}

func TestPlan_SupervisorsOnly(t *testing.T) {
	steps, err := Plan(splitTopology(), Selection{Supervisor: true})
	require.NoError(t, err)
	assert.Equal(t, []Step{{Host: "worker1", Address: "10.0.0.3", Component: "supervisor"}}, steps)
}

func TestPlan_EmptySelection(t *testing.T) {
	steps, err := Plan(splitTopology(), Selection{})
	require.NoError(t, err)
	assert.Empty(t, steps)
	assert.True(t, Selection{}.Empty())
}

func TestPlan_UndeclaredHost(t *testing.T) {
	topo := splitTopology()
	topo.SupervisorHosts = []string{"ghost"}

	_, err := Plan(topo, Selection{Supervisor: true})
	assert.True(t, topology.IsConfigurationError(err))
}

func TestCommands(t *testing.T) {
	destroy, run := Commands("storm-docker", "", Step{Component: "nimbus"})
	assert.Equal(t, "cd storm-docker && storm-docker destroy nimbus", destroy)
	assert.Equal(t, "cd storm-docker && storm-docker run nimbus", run)

	destroy, run = Commands("", "./bin/storm-docker", Step{Component: "ui"})
	assert.Equal(t, "./bin/storm-docker destroy ui", destroy)
	assert.Equal(t, "./bin/storm-docker run ui", run)
}
