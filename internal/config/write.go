package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// EnvValues flattens cfg into the KEY=value pairs understood by Load.
// Zero-valued optional settings are omitted so defaults keep applying.
func EnvValues(cfg *Config) map[string]string {
	values := map[string]string{
		"SSH_HOST":              cfg.SSH.Host,
		"SSH_KEY_PATH":          cfg.SSH.KeyPath,
		"SSH_USERNAME":          cfg.SSH.Username,
		"TENSORBOARD_LOGS_PATH": cfg.Remote.LogsPath,
		"IMAGE_SAMPLES_PATH":    cfg.Remote.ImagesPath,
		"REMOTE_VENV_PATH":      cfg.Remote.VenvPath,
		"MAIN_THREAD_OUTPUT":    cfg.Remote.OutputPath,
		"REMOTE_HELPER_PATH":    cfg.Remote.HelperPath,
		"LISTEN_ADDR":           cfg.Server.ListenAddr,
		"DATA_DIR":              cfg.Server.DataDir,
		"AUTO_SYNC_SCHEDULE":    cfg.Server.AutoSyncSchedule,
		"LOG_LEVEL":             cfg.Log.Level,
	}
	if cfg.SSH.Port != 0 {
		values["SSH_PORT"] = strconv.Itoa(cfg.SSH.Port)
	}
	if cfg.SSH.StrictHostKey {
		values["SSH_STRICT_HOST_KEY"] = "true"
	}
	if cfg.Monitor.GPUInterval > 0 {
		values["GPU_INTERVAL"] = cfg.Monitor.GPUInterval.String()
	}
	if cfg.Monitor.ScalarInterval > 0 {
		values["SCALAR_INTERVAL"] = cfg.Monitor.ScalarInterval.String()
	}
	if cfg.Monitor.CommandTimeout > 0 {
		values["COMMAND_TIMEOUT"] = cfg.Monitor.CommandTimeout.String()
	}

	for k, v := range values {
		if v == "" {
			delete(values, k)
		}
	}
	return values
}

// WriteEnvFile writes cfg as an env-format file at path, creating parent
// directories. The file is readable only by the owner.
func WriteEnvFile(path string, cfg *Config) error {
	content, err := gotenv.Marshal(gotenv.Env(EnvValues(cfg)))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't encode settings",
			"Check the values for unusual characters.")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't create directory "+dir,
				"Check directory permissions.")
		}
	}

	if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+path,
			"Check file permissions.")
	}
	return nil
}

// MarshalYAML renders the resolved configuration for display.
func MarshalYAML(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't render config",
			"This is a bug, please report it.")
	}
	return out, nil
}
