package config

import (
	"os"
	"strings"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/spf13/viper"
)

// RequiredKeys are the settings without which tbwatch refuses to start.
var RequiredKeys = []string{
	"SSH_HOST",
	"SSH_PORT",
	"SSH_KEY_PATH",
	"SSH_USERNAME",
	"TENSORBOARD_LOGS_PATH",
	"IMAGE_SAMPLES_PATH",
	"REMOTE_VENV_PATH",
	"MAIN_THREAD_OUTPUT",
}

// OptionalKeys are the settings that fall back to DefaultConfig values.
var OptionalKeys = []string{
	"SSH_STRICT_HOST_KEY",
	"REMOTE_HELPER_PATH",
	"LISTEN_ADDR",
	"DATA_DIR",
	"AUTO_SYNC_SCHEDULE",
	"GPU_INTERVAL",
	"SCALAR_INTERVAL",
	"COMMAND_TIMEOUT",
	"LOG_LEVEL",
}

// Load resolves configuration from an env-format file and the process
// environment. The environment always wins over the file.
//
// If path is empty, .env in the working directory is used when present.
// An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, key := range append(append([]string{}, RequiredKeys...), OptionalKeys...) {
		// BindEnv makes Unmarshal see variables that never appear in the file.
		if err := v.BindEnv(strings.ToLower(key), key); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't bind environment variable "+key,
				"This is a bug, please report it.")
		}
	}

	if path == "" {
		if _, err := os.Stat(EnvFileName); err == nil {
			path = EnvFileName
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Config file not found: "+path,
			"Run 'tbwatch init' to create one, or check the --config path.")
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file "+path,
				"Each line should look like KEY=value.")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config value",
			"Check SSH_PORT is a number and intervals look like 10s or 1m.")
	}

	cfg.SSH.KeyPath = ExpandTilde(cfg.SSH.KeyPath)
	cfg.Server.DataDir = ExpandTilde(cfg.Server.DataDir)

	return cfg, nil
}

// LoadAndValidate is Load followed by Validate. Used by commands that talk to
// the remote host, where a missing setting is fatal.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("ssh_strict_host_key", def.SSH.StrictHostKey)
	v.SetDefault("remote_helper_path", def.Remote.HelperPath)
	v.SetDefault("listen_addr", def.Server.ListenAddr)
	v.SetDefault("data_dir", def.Server.DataDir)
	v.SetDefault("auto_sync_schedule", "")
	v.SetDefault("gpu_interval", def.Monitor.GPUInterval.String())
	v.SetDefault("scalar_interval", def.Monitor.ScalarInterval.String())
	v.SetDefault("command_timeout", def.Monitor.CommandTimeout.String())
	v.SetDefault("log_level", def.Log.Level)
}
