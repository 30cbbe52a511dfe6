package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/storm-docker/internal/core/topology"
)

func TestParseRunArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want RunOptions
	}{
		{
			name: "empty",
			want: RunOptions{},
		},
		{
			name: "volumes and restart",
			args: []string{"-v", "/data:/data", "--volume=/logs:/logs:ro", "--restart", "unless-stopped"},
			want: RunOptions{
				Binds:   []string{"/data:/data", "/logs:/logs:ro"},
				Restart: RestartPolicy{Name: "unless-stopped"},
			},
		},
		{
			name: "env labels network",
			args: []string{"-e", "A=1", "--env", "B=x=y", "-l", "team=storm", "--net", "host"},
			want: RunOptions{
				Env:         map[string]string{"A": "1", "B": "x=y"},
				Labels:      map[string]string{"team": "storm"},
				NetworkMode: "host",
			},
		},
		{
			name: "on-failure with retries, memory, privileged",
			args: []string{"--restart=on-failure:5", "-m", "512m", "--privileged"},
			want: RunOptions{
				Restart:    RestartPolicy{Name: "on-failure", MaxRetries: 5},
				Memory:     512 * 1024 * 1024,
				Privileged: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRunArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRunArgs_EnvFromProcess(t *testing.T) {
	t.Setenv("STORM_DOCKER_TEST_PASSTHROUGH", "yes")

	got, err := ParseRunArgs([]string{"-e", "STORM_DOCKER_TEST_PASSTHROUGH"})
	require.NoError(t, err)
	assert.Equal(t, "yes", got.Env["STORM_DOCKER_TEST_PASSTHROUGH"])
}

func TestParseRunArgs_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unsupported flag", []string{"--cap-add", "NET_ADMIN"}},
		{"positional argument", []string{"-v", "/a:/a", "extra"}},
		{"unknown restart policy", []string{"--restart", "sometimes"}},
		{"retry count on always", []string{"--restart", "always:3"}},
		{"bad retry count", []string{"--restart", "on-failure:x"}},
		{"bad memory", []string{"--memory", "lots"}},
		{"label without key", []string{"-l", "=x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRunArgs(tt.args)
			require.Error(t, err)
			assert.True(t, topology.IsConfigurationError(err))
		})
	}
}

func TestRunOptions_Apply(t *testing.T) {
	spec := ContainerSpec{
		Env:    map[string]string{"A": "planned"},
		Labels: map[string]string{"io.storm-docker.managed": "true"},
	}
	RunOptions{
		Binds:   []string{"/data:/data"},
		Env:     map[string]string{"A": "flag", "B": "2"},
		Labels:  map[string]string{"team": "storm"},
		Restart: RestartPolicy{Name: "always"},
	}.Apply(&spec)

	assert.Equal(t, map[string]string{"A": "flag", "B": "2"}, spec.Env)
	assert.Equal(t, "storm", spec.Labels["team"])
	assert.Equal(t, "true", spec.Labels["io.storm-docker.managed"])
	assert.Equal(t, []string{"/data:/data"}, spec.Binds)
	assert.Equal(t, RestartPolicy{Name: "always"}, spec.Restart)
}
