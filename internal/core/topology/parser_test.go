package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSetup = `
servers:
  zk1: 10.0.0.1
  nimbus1: 10.0.0.2
  worker1: 10.0.0.3
storm.supervisor.hosts:
  - zk1
  - worker1
is_localhost_setup: false
storm.yaml:
  storm.zookeeper.servers:
    - zk1
  storm.zookeeper.port: 2182
  nimbus.host: nimbus1
  drpc.servers:
    - 10.0.0.9
  supervisor.slots.ports: [6800, 6801]
zookeeper.multiple.setup:
  follower.port: 2889
`

// =============================================================================
// Decode / Parse Tests
// =============================================================================

func TestParse_Sample(t *testing.T) {
	topo, err := Parse([]byte(sampleSetup))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", topo.Servers["zk1"])
	assert.Equal(t, []string{"zk1"}, topo.ZookeeperServers)
	assert.Equal(t, "nimbus1", topo.NimbusHost)
	assert.Equal(t, []string{"zk1", "worker1"}, topo.SupervisorHosts)
	assert.Equal(t, []string{"10.0.0.9"}, topo.DRPCServers)
	assert.False(t, topo.LocalhostSetup)
}

func TestParse_PortOverridesAndDefaults(t *testing.T) {
	topo, err := Parse([]byte(sampleSetup))
	require.NoError(t, err)

	assert.Equal(t, []int{2182}, topo.Port(PortZookeeperClient))
	assert.Equal(t, []int{6800, 6801}, topo.Port(PortSupervisorSlots))
	assert.Equal(t, []int{2889}, topo.Port(PortZookeeperFollower))

	// Defaults
	assert.Equal(t, []int{6627}, topo.Port(PortNimbusThrift))
	assert.Equal(t, []int{3888}, topo.Port(PortZookeeperElection))
	assert.Equal(t, []int{8080}, topo.Port(PortUI))
	assert.Equal(t, []int{8000}, topo.Port(PortLogviewer))
	assert.Equal(t, []int{3772}, topo.Port(PortDRPC))
	assert.Equal(t, []int{3773}, topo.Port(PortDRPCInvocations))
}

func TestParse_PortReturnsCopy(t *testing.T) {
	topo, err := Parse([]byte(sampleSetup))
	require.NoError(t, err)

	ports := topo.Port(PortSupervisorSlots)
	ports[0] = 1
	assert.Equal(t, []int{6800, 6801}, topo.Port(PortSupervisorSlots))
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode([]byte("   \n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDecode_InvalidYAML(t *testing.T) {
	_, err := Decode([]byte("servers: [unclosed"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
	assert.True(t, IsConfigurationError(err))
}

func TestDecode_InvalidPortType(t *testing.T) {
	_, err := Decode([]byte("servers: {a: 10.0.0.1}\nstorm.yaml:\n  ui.port: eighty\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParse_MissingServers(t *testing.T) {
	_, err := Parse([]byte("storm.yaml:\n  nimbus.host: 10.0.0.2\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "servers", cfgErr.Field)
}

func TestParse_UndeclaredServer(t *testing.T) {
	doc := `
servers:
  zk1: 10.0.0.1
storm.yaml:
  storm.zookeeper.servers: [zk1, zk2]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndeclaredServer)
	assert.Contains(t, err.Error(), "zk2")
}

func TestParse_InvalidPortRange(t *testing.T) {
	doc := `
servers:
  zk1: 10.0.0.1
storm.yaml:
  ui.port: 70000
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPort)
}

// =============================================================================
// Address Tests
// =============================================================================

func TestAddress(t *testing.T) {
	topo := &Topology{Servers: map[string]string{"zk1": "10.0.0.1"}}

	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr bool
	}{
		{"declared name", "zk1", "10.0.0.1", false},
		{"literal ip", "192.168.1.5", "192.168.1.5", false},
		{"undeclared name", "zk9", "", true},
		{"ipv6 literal", "::1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topo.Address(tt.entry)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUndeclaredServer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleHosts_UIDefaultsToNimbus(t *testing.T) {
	topo := &Topology{NimbusHost: "nimbus1"}
	assert.Equal(t, []string{"nimbus1"}, topo.RoleHosts(RoleUI))

	topo.UIHost = "web1"
	assert.Equal(t, []string{"web1"}, topo.RoleHosts(RoleUI))
}

func TestRoleHosts_LogviewerFollowsSupervisors(t *testing.T) {
	topo := &Topology{SupervisorHosts: []string{"a", "b"}}
	assert.Equal(t, []string{"a", "b"}, topo.RoleHosts(RoleLogviewer))
}

func TestServerName(t *testing.T) {
	topo := &Topology{Servers: map[string]string{"zk1": "10.0.0.1", "alpha": "10.0.0.1"}}

	assert.Equal(t, "zk1", topo.ServerName("zk1"))
	assert.Equal(t, "alpha", topo.ServerName("10.0.0.1")) // lowest name wins
	assert.Equal(t, "10-0-0-7", topo.ServerName("10.0.0.7"))
}
