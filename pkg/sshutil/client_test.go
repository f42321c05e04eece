package sshutil

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	stderrors "errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// liveTarget returns a target from TBWATCH_TEST_SSH_* or skips the test.
// Tests that need a real sshd are skipped unless TBWATCH_TEST_SSH_HOST is set.
func liveTarget(t *testing.T) Target {
	t.Helper()
	host := os.Getenv("TBWATCH_TEST_SSH_HOST")
	if host == "" {
		t.Skip("Skipping SSH test: TBWATCH_TEST_SSH_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TBWATCH_TEST_SSH_PORT"))
	return Target{
		Host:    host,
		Port:    port,
		User:    os.Getenv("TBWATCH_TEST_SSH_USER"),
		KeyPath: os.Getenv("TBWATCH_TEST_SSH_KEY"),
	}
}

func TestDial_Live(t *testing.T) {
	target := liveTarget(t)

	client, err := Dial(context.Background(), target, 10*time.Second)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, target.Host, client.GetHost())
	assert.NotEmpty(t, client.GetAddress())
	assert.True(t, client.Alive())

	stdout, _, code, err := client.Exec("echo hello")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, string(stdout), "hello")

	_, _, code, err = client.Exec("exit 42")
	require.NoError(t, err)
	assert.Equal(t, 42, code)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, _, code, err = client.ExecContext(ctx, "sleep 30")
	require.Error(t, err)
	assert.Equal(t, -1, code)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}

func TestDial_Unreachable(t *testing.T) {
	keyPath := writeKey(t, "")
	// 192.0.2.0/24 is TEST-NET-1 and never routes.
	_, err := Dial(context.Background(), Target{Host: "192.0.2.1", Port: 22, User: "me", KeyPath: keyPath}, 200*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
}

func TestDial_MissingKey(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	_, err := Dial(context.Background(), Target{Host: "127.0.0.1", Port: 22, User: "me", KeyPath: filepath.Join(t.TempDir(), "id_none")}, time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
	assert.Contains(t, err.Error(), "SSH key not found")
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "gpu-box", Target{Host: "gpu-box"}.String())
	assert.Equal(t, "me@gpu-box:2222", Target{Host: "gpu-box", Port: 2222, User: "me"}.String())
	assert.Equal(t, "me@[::1]:22", Target{Host: "::1", Port: 22, User: "me"}.String())
}

func TestResolveSSHSettings_NoConfig(t *testing.T) {
	t.Setenv("USER", "fallback")
	settings := resolveSSHSettings(Target{Host: "example.com"}, filepath.Join(t.TempDir(), "none"))

	assert.Equal(t, "example.com", settings.hostname)
	assert.Equal(t, "22", settings.port)
	assert.Equal(t, "fallback", settings.user)
	assert.Equal(t, "example.com:22", settings.address())
}

func TestResolveSSHSettings_AliasFillsGaps(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	settings := resolveSSHSettings(Target{Host: "trainer"}, path)

	assert.Equal(t, "10.0.0.5", settings.hostname)
	assert.Equal(t, "2222", settings.port)
	assert.Equal(t, "ml", settings.user)
	assert.Equal(t, filepath.Join(homeDir(), ".ssh", "id_trainer"), settings.identityFile)
}

func TestResolveSSHSettings_ExplicitWins(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	settings := resolveSSHSettings(Target{Host: "trainer", Port: 22, User: "root", KeyPath: "/keys/id"}, path)

	assert.Equal(t, "10.0.0.5", settings.hostname, "HostName still maps the alias")
	assert.Equal(t, "22", settings.port)
	assert.Equal(t, "root", settings.user)
	assert.Equal(t, "/keys/id", settings.identityFile)
}

func TestBuildSSHConfig(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	t.Run("plain key", func(t *testing.T) {
		settings := &sshSettings{user: "me", identityFile: writeKey(t, "")}
		cfg, err := buildSSHConfig(settings, Target{}, 0)
		require.NoError(t, err)
		assert.Equal(t, "me", cfg.User)
		assert.Len(t, cfg.Auth, 1)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
	})

	t.Run("encrypted key without agent", func(t *testing.T) {
		keyPath := writeKey(t, "hunter2")
		settings := &sshSettings{user: "me", identityFile: keyPath}
		_, err := buildSSHConfig(settings, Target{}, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encrypted")
		assert.Equal(t, []string{keyPath}, settings.encryptedKeys)
	})

	t.Run("not a key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "id.pub")
		require.NoError(t, os.WriteFile(path, []byte("ssh-ed25519 AAAA"), 0600))
		_, err := buildSSHConfig(&sshSettings{identityFile: path}, Target{}, time.Second)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrSSH))
	})

	t.Run("strict creates known_hosts", func(t *testing.T) {
		knownHosts := filepath.Join(t.TempDir(), "ssh", "known_hosts")
		settings := &sshSettings{user: "me", identityFile: writeKey(t, "")}
		cfg, err := buildSSHConfig(settings, Target{StrictHostKey: true, KnownHostsPath: knownHosts}, time.Second)
		require.NoError(t, err)
		assert.NotNil(t, cfg.HostKeyCallback)
		assert.FileExists(t, knownHosts)
	})
}

func TestHostKeyCallback_Mismatch(t *testing.T) {
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")

	known, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	knownPub, err := ssh.NewPublicKey(known)
	require.NoError(t, err)
	line := "gpu.example.com " + string(ssh.MarshalAuthorizedKey(knownPub))
	require.NoError(t, os.WriteFile(knownHosts, []byte(line), 0600))

	callback, err := createHostKeyCallback(knownHosts)
	require.NoError(t, err)

	other, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, err := ssh.NewPublicKey(other)
	require.NoError(t, err)

	err = callback("gpu.example.com:22", remoteAddr, otherPub)
	var mismatch *HostKeyMismatchError
	require.True(t, stderrors.As(err, &mismatch))
	assert.Equal(t, "ssh-ed25519", mismatch.ReceivedType)
	assert.Contains(t, mismatch.Suggestion(), "ssh-keygen -R gpu.example.com")

	assert.NoError(t, callback("gpu.example.com:22", remoteAddr, knownPub))
}

func TestExpandPath(t *testing.T) {
	home := homeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, expandPath(tt.input), tt.input)
	}
}

func TestSuggestionForDialError(t *testing.T) {
	tests := []struct {
		errMsg   string
		contains string
	}{
		{"connection refused", "Is SSH running"},
		{"no route to host", "Can't route"},
		{"i/o timeout", "timed out"},
		{"random error", "Make sure the host is reachable"},
	}

	for _, tt := range tests {
		assert.Contains(t, suggestionForDialError(stderrors.New(tt.errMsg)), tt.contains, tt.errMsg)
	}
}

func TestSuggestionForHandshakeError(t *testing.T) {
	tests := []struct {
		errMsg    string
		encrypted []string
		contains  string
	}{
		{"ssh: unable to authenticate", nil, "Auth failed"},
		{"ssh: unable to authenticate", []string{"/k/id"}, "ssh-add"},
		{"knownhosts: key is unknown", nil, "SSH_STRICT_HOST_KEY"},
		{"random error", nil, "Something went wrong"},
	}

	for _, tt := range tests {
		assert.Contains(t, suggestionForHandshakeError(stderrors.New(tt.errMsg), tt.encrypted), tt.contains, tt.errMsg)
	}
}

// writeKey writes a fresh ed25519 private key, encrypted when passphrase is set.
func writeKey(t *testing.T, passphrase string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", []byte(passphrase))
	}
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

var remoteAddr = &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}
