package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSSHConfig = `
Host trainer
    HostName 10.0.0.5
    User ml
    Port 2222
    IdentityFile ~/.ssh/id_trainer

Host gpu-box
    HostName gpu.example.com
    User ubuntu

Host *
    ServerAliveInterval 60

Host work-*
    User workuser
`

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestListHosts(t *testing.T) {
	hosts, err := ListHosts(writeSSHConfig(t, sampleSSHConfig))
	require.NoError(t, err)

	require.Len(t, hosts, 2, "wildcard patterns are skipped")
	assert.Equal(t, "gpu-box", hosts[0].Alias)
	assert.Equal(t, "trainer", hosts[1].Alias)

	trainer := hosts[1]
	assert.Equal(t, "10.0.0.5", trainer.Hostname)
	assert.Equal(t, "ml", trainer.User)
	assert.Equal(t, 2222, trainer.Port)
	assert.Equal(t, filepath.Join(homeDir(), ".ssh", "id_trainer"), trainer.IdentityFile)

	assert.Equal(t, 0, hosts[0].Port)
}

func TestListHosts_MissingFile(t *testing.T) {
	hosts, err := ListHosts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestListHosts_StopsAtMatch(t *testing.T) {
	path := writeSSHConfig(t, `
Host early
    HostName early.example.com

Match host *.internal
    User internal

Host late
    HostName late.example.com
`)
	hosts, err := ListHosts(path)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "early", hosts[0].Alias)
}

func TestHostEntry_Label(t *testing.T) {
	tests := []struct {
		name  string
		entry HostEntry
		want  string
	}{
		{"alias only", HostEntry{Alias: "box"}, "box"},
		{"hostname same as alias", HostEntry{Alias: "box", Hostname: "box"}, "box"},
		{"full", HostEntry{Alias: "trainer", Hostname: "10.0.0.5", User: "ml", Port: 2222}, "trainer (10.0.0.5, user: ml, port: 2222)"},
		{"default port hidden", HostEntry{Alias: "box", User: "me", Port: 22}, "box (user: me)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Label())
		})
	}
}
