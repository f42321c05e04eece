package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullEnv = `SSH_HOST=gpu-box.example.com
SSH_PORT=2222
SSH_KEY_PATH=/keys/id_ed25519
SSH_USERNAME=trainer
TENSORBOARD_LOGS_PATH=/data/runs
IMAGE_SAMPLES_PATH=/data/samples
REMOTE_VENV_PATH=/opt/venv
MAIN_THREAD_OUTPUT=/data/train.log
`

// clearEnv unsets every known key for the duration of the test so values
// from the developer's shell can't leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range append(append([]string{}, RequiredKeys...), OptionalKeys...) {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost:5000", cfg.Server.ListenAddr)
	assert.Equal(t, "static", cfg.Server.DataDir)
	assert.Equal(t, ".tbwatch/extract_scalars.py", cfg.Remote.HelperPath)
	assert.Equal(t, 10*time.Second, cfg.Monitor.GPUInterval)
	assert.Equal(t, 30*time.Second, cfg.Monitor.ScalarInterval)
	assert.Equal(t, 60*time.Second, cfg.Monitor.CommandTimeout)
	assert.False(t, cfg.SSH.StrictHostKey)
	assert.Zero(t, cfg.SSH.Port, "port has no default, it is required")
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, fullEnv+"GPU_INTERVAL=5s\nSSH_STRICT_HOST_KEY=true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpu-box.example.com", cfg.SSH.Host)
	assert.Equal(t, 2222, cfg.SSH.Port)
	assert.Equal(t, "/keys/id_ed25519", cfg.SSH.KeyPath)
	assert.Equal(t, "trainer", cfg.SSH.Username)
	assert.True(t, cfg.SSH.StrictHostKey)
	assert.Equal(t, "/data/runs", cfg.Remote.LogsPath)
	assert.Equal(t, "/data/samples", cfg.Remote.ImagesPath)
	assert.Equal(t, "/opt/venv", cfg.Remote.VenvPath)
	assert.Equal(t, "/data/train.log", cfg.Remote.OutputPath)
	assert.Equal(t, 5*time.Second, cfg.Monitor.GPUInterval)
	assert.Equal(t, 30*time.Second, cfg.Monitor.ScalarInterval, "unset optional keeps default")

	require.NoError(t, Validate(cfg))
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, fullEnv)
	t.Setenv("SSH_HOST", "override.example.com")
	t.Setenv("COMMAND_TIMEOUT", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "override.example.com", cfg.SSH.Host)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.CommandTimeout)
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	clearEnv(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, line := range strings.Split(strings.TrimSpace(fullEnv), "\n") {
		kv := strings.SplitN(line, "=", 2)
		t.Setenv(kv[0], kv[1])
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpu-box.example.com", cfg.SSH.Host)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, strings.Replace(fullEnv, "SSH_PORT=2222", "SSH_PORT=twenty", 1))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_ExpandsTilde(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	path := writeEnv(t, strings.Replace(fullEnv, "/keys/id_ed25519", "~/.ssh/id_ed25519", 1))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ssh", "id_ed25519"), cfg.SSH.KeyPath)
}

func TestValidate_MissingKeys(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, "SSH_HOST=gpu-box\nSSH_PORT=22\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	for _, key := range []string{"SSH_KEY_PATH", "SSH_USERNAME", "TENSORBOARD_LOGS_PATH", "IMAGE_SAMPLES_PATH", "REMOTE_VENV_PATH", "MAIN_THREAD_OUTPUT"} {
		assert.Contains(t, err.Error(), key)
	}
	assert.NotContains(t, err.Error(), "SSH_HOST,")
}

func TestLoadAndValidate(t *testing.T) {
	clearEnv(t)
	_, err := LoadAndValidate(writeEnv(t, "SSH_HOST=gpu-box\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH_PORT")
}

func TestValidate_Optional(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.SSH = SSHConfig{Host: "h", Port: 22, KeyPath: "k", Username: "u"}
		cfg.Remote.LogsPath = "/l"
		cfg.Remote.ImagesPath = "/i"
		cfg.Remote.VenvPath = "/v"
		cfg.Remote.OutputPath = "/o"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port too large", func(c *Config) { c.SSH.Port = 70000 }, "SSH_PORT"},
		{"helper is a directory", func(c *Config) { c.Remote.HelperPath = "tools/" }, "REMOTE_HELPER_PATH"},
		{"zero gpu interval", func(c *Config) { c.Monitor.GPUInterval = 0 }, "GPU_INTERVAL"},
		{"negative timeout", func(c *Config) { c.Monitor.CommandTimeout = -time.Second }, "COMMAND_TIMEOUT"},
		{"bad schedule", func(c *Config) { c.Server.AutoSyncSchedule = "whenever" }, "AUTO_SYNC_SCHEDULE"},
		{"every schedule", func(c *Config) { c.Server.AutoSyncSchedule = "@every 5m" }, ""},
		{"cron schedule", func(c *Config) { c.Server.AutoSyncSchedule = "*/10 * * * *" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}

func TestDerivedPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.DataDir = "/var/tbwatch"

	assert.Equal(t, "/var/tbwatch/images", cfg.ImagesDir())
	assert.Equal(t, "/var/tbwatch/output.txt", cfg.OutputFile())
	assert.Equal(t, "/var/tbwatch/helper/extract_scalars.py", cfg.HelperFile())
}
