package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Nimbus ")
	require.NoError(t, err)
	assert.Equal(t, RoleNimbus, r)

	_, err = ParseRole("drpc2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), `"drpc2"`)
}

func TestParseRoles_RejectsWholeSetOnUnknown(t *testing.T) {
	roles, err := ParseRoles([]string{"nimbus", "drpc2", "ui"})
	assert.Nil(t, roles)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseRoles_Empty(t *testing.T) {
	roles, err := ParseRoles(nil)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestLinkAlias(t *testing.T) {
	assert.Equal(t, "zk", RoleZookeeper.LinkAlias())
	assert.Equal(t, "nimbus", RoleNimbus.LinkAlias())
}

func TestPortKeys(t *testing.T) {
	assert.Equal(t, []PortKey{PortZookeeperClient, PortZookeeperFollower, PortZookeeperElection}, PortKeys(RoleZookeeper))
	assert.Equal(t, []PortKey{PortDRPC, PortDRPCInvocations}, PortKeys(RoleDRPC))
	assert.Equal(t, PortNimbusThrift, PrimaryPortKey(RoleNimbus))

	spec, ok := LookupPortSpec(PortZookeeperFollower)
	require.True(t, ok)
	assert.True(t, spec.NeedsUDP)
	assert.Equal(t, SectionZookeeperCluster, spec.Section)
}
