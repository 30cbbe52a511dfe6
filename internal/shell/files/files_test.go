package files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/stormconf"
)

func stormHome(t *testing.T, template string) string {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "conf"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "conf", StormTemplateName), []byte(template), 0644))
	return home
}

func TestWriteStormYAML(t *testing.T) {
	home := stormHome(t, "storm.local.dir: \"/var/storm\"\n### nimbus section ###\n")
	w := NewWriter(nil)

	path, err := w.WriteStormYAML(home, stormconf.StormParams{
		ZookeeperServers: []string{"10.0.0.1"},
		ZookeeperPort:    2181,
		NimbusHost:       "172.17.0.3",
		NimbusThriftPort: 6627,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "conf", StormConfigName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storm.local.dir: \"/var/storm\"")
	assert.Contains(t, string(data), "nimbus.host: \"172.17.0.3\"")
	assert.Contains(t, string(data), "nimbus.thrift.port: 6627")
	assert.NotContains(t, string(data), stormconf.PlaceholderNimbus)
}

func TestWriteStormYAML_MissingTemplate(t *testing.T) {
	w := NewWriter(nil)

	_, err := w.WriteStormYAML(t.TempDir(), stormconf.StormParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFilesystem))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "read", fe.Op)
}

func TestAppendZooCfg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoo.cfg")
	require.NoError(t, os.WriteFile(path, []byte("tickTime=2000\n"), 0644))
	w := NewWriter(nil)

	p := stormconf.ZookeeperParams{
		ClientPort:   2181,
		FollowerPort: 2888,
		ElectionPort: 3888,
		Servers:      []string{"172.17.0.2", "10.0.0.5"},
		MyIndex:      0,
	}
	require.NoError(t, w.AppendZooCfg(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tickTime=2000\nclientPort=2181\nserver.1=172.17.0.2:2888:3888\nserver.2=10.0.0.5:2888:3888\n", string(data))
}

func TestWriteMyID(t *testing.T) {
	w := NewWriter(nil)
	dataDir := filepath.Join(t.TempDir(), "data")

	written, err := w.WriteMyID(dataDir, stormconf.ZookeeperParams{Servers: []string{"10.0.0.1"}})
	require.NoError(t, err)
	assert.False(t, written)
	assert.NoFileExists(t, filepath.Join(dataDir, MyIDName))

	written, err = w.WriteMyID(dataDir, stormconf.ZookeeperParams{Servers: []string{"10.0.0.1", "10.0.0.5"}, MyIndex: 1})
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(filepath.Join(dataDir, MyIDName))
	require.NoError(t, err)
	assert.Equal(t, "2\n", string(data))
}

func TestWriteDnsmasqHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dnsmasq-extra-hosts")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))
	w := NewWriter(nil)

	hosts := []stormconf.ExtraHost{
		{IP: "10.0.0.1", Aliases: []string{"zk1", "zk1-supervisor"}},
		{IP: "10.0.0.2", Aliases: []string{"nimbus1", "nimbus1-supervisor"}},
	}
	require.NoError(t, w.WriteDnsmasqHosts(path, hosts, identity.LocalIdentity{"10.0.0.2"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1 zk1 zk1-supervisor\n", string(data))
}

func TestWriteDnsmasqHosts_BadPath(t *testing.T) {
	w := NewWriter(nil)

	err := w.WriteDnsmasqHosts(filepath.Join(t.TempDir(), "missing", "hosts"), nil, nil)
	assert.ErrorIs(t, err, ErrFilesystem)
}
