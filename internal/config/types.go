package config

import (
	"path/filepath"
	"time"
)

// EnvFileName is the default settings file read from the working directory.
const EnvFileName = ".env"

// Config is the resolved startup configuration. Every field maps to one
// environment variable (the mapstructure tag, upper-cased).
type Config struct {
	SSH     SSHConfig     `yaml:"ssh" mapstructure:",squash"`
	Remote  RemoteConfig  `yaml:"remote" mapstructure:",squash"`
	Server  ServerConfig  `yaml:"server" mapstructure:",squash"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:",squash"`
	Log     LogConfig     `yaml:"log" mapstructure:",squash"`
}

// SSHConfig holds the connection settings for the remote GPU host.
type SSHConfig struct {
	// Host is a hostname, IP, or ~/.ssh/config alias.
	Host string `yaml:"host" mapstructure:"ssh_host"`

	Port int `yaml:"port" mapstructure:"ssh_port"`

	// KeyPath is the private key used for both the SSH client and rsync.
	KeyPath string `yaml:"key_path" mapstructure:"ssh_key_path"`

	Username string `yaml:"username" mapstructure:"ssh_username"`

	// StrictHostKey enables known_hosts verification. Off by default so a
	// freshly provisioned GPU box works without a prior manual ssh.
	StrictHostKey bool `yaml:"strict_host_key" mapstructure:"ssh_strict_host_key"`
}

// RemoteConfig holds paths on the remote host.
type RemoteConfig struct {
	// LogsPath is the root scanned for TensorBoard event files.
	LogsPath string `yaml:"logs_path" mapstructure:"tensorboard_logs_path"`

	// ImagesPath is the directory of sample images pulled by sync-images.
	ImagesPath string `yaml:"images_path" mapstructure:"image_samples_path"`

	// VenvPath is the Python virtualenv activated before running the helper.
	VenvPath string `yaml:"venv_path" mapstructure:"remote_venv_path"`

	// OutputPath is the training log file pulled by sync-output.
	OutputPath string `yaml:"output_path" mapstructure:"main_thread_output"`

	// HelperPath is where the scalar extraction helper is pushed.
	// Relative paths resolve against the remote user's home directory.
	HelperPath string `yaml:"helper_path" mapstructure:"remote_helper_path"`
}

// ServerConfig controls the HTTP dashboard.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`

	// DataDir holds synced images, the synced output file, and the
	// materialized helper script.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// AutoSyncSchedule is a cron spec ("@every 5m", "*/10 * * * *") for
	// pulling images and output in the background. Empty disables it.
	AutoSyncSchedule string `yaml:"auto_sync_schedule" mapstructure:"auto_sync_schedule"`
}

// MonitorConfig controls collector cadence and remote command bounds.
type MonitorConfig struct {
	GPUInterval    time.Duration `yaml:"gpu_interval" mapstructure:"gpu_interval"`
	ScalarInterval time.Duration `yaml:"scalar_interval" mapstructure:"scalar_interval"`
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"log_level"`
}

// ImagesDir is the local directory synced images land in.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.Server.DataDir, "images")
}

// OutputFile is the local copy of the remote training log.
func (c *Config) OutputFile() string {
	return filepath.Join(c.Server.DataDir, "output.txt")
}

// HelperFile is where the embedded helper script is written before it is pushed.
func (c *Config) HelperFile() string {
	return filepath.Join(c.Server.DataDir, "helper", filepath.Base(c.Remote.HelperPath))
}

// DefaultConfig returns a Config with every optional setting filled in.
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			HelperPath: ".tbwatch/extract_scalars.py",
		},
		Server: ServerConfig{
			ListenAddr: "localhost:5000",
			DataDir:    "static",
		},
		Monitor: MonitorConfig{
			GPUInterval:    10 * time.Second,
			ScalarInterval: 30 * time.Second,
			CommandTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
