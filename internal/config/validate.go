package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/robfig/cron/v3"
)

// Validate checks that every required setting is present and that optional
// settings are usable. All missing keys are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	present := map[string]bool{
		"SSH_HOST":              cfg.SSH.Host != "",
		"SSH_PORT":              cfg.SSH.Port != 0,
		"SSH_KEY_PATH":          cfg.SSH.KeyPath != "",
		"SSH_USERNAME":          cfg.SSH.Username != "",
		"TENSORBOARD_LOGS_PATH": cfg.Remote.LogsPath != "",
		"IMAGE_SAMPLES_PATH":    cfg.Remote.ImagesPath != "",
		"REMOTE_VENV_PATH":      cfg.Remote.VenvPath != "",
		"MAIN_THREAD_OUTPUT":    cfg.Remote.OutputPath != "",
	}

	var missing []string
	for _, key := range RequiredKeys {
		if !present[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Missing required settings: %s", strings.Join(missing, ", ")),
			"Add them to .env (run 'tbwatch init') or export them in the environment.")
	}

	if cfg.SSH.Port < 1 || cfg.SSH.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("SSH_PORT %d is out of range", cfg.SSH.Port),
			"Use a port between 1 and 65535.")
	}

	if cfg.Remote.HelperPath == "" || strings.HasSuffix(cfg.Remote.HelperPath, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("REMOTE_HELPER_PATH %q must name a file", cfg.Remote.HelperPath),
			"Use something like .tbwatch/extract_scalars.py.")
	}

	if err := validatePositive("GPU_INTERVAL", cfg.Monitor.GPUInterval.Seconds()); err != nil {
		return err
	}
	if err := validatePositive("SCALAR_INTERVAL", cfg.Monitor.ScalarInterval.Seconds()); err != nil {
		return err
	}
	if err := validatePositive("COMMAND_TIMEOUT", cfg.Monitor.CommandTimeout.Seconds()); err != nil {
		return err
	}

	if cfg.Server.AutoSyncSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Server.AutoSyncSchedule); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("AUTO_SYNC_SCHEDULE %q isn't a valid schedule", cfg.Server.AutoSyncSchedule),
				"Use a cron expression like '*/5 * * * *' or '@every 5m'.")
		}
	}

	return nil
}

func validatePositive(key string, seconds float64) error {
	if seconds <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must be greater than zero", key),
			"Use a Go duration such as 10s or 1m.")
	}
	return nil
}
