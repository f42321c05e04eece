package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/gpuview"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/spf13/cobra"
)

// MinGPUInterval keeps the terminal view from hammering nvidia-smi.
const MinGPUInterval = time.Second

var gpuInterval time.Duration

var gpuCmd = &cobra.Command{
	Use:   "gpu",
	Short: "Live GPU view in the terminal",
	Long: `Show the remote GPU's temperature, power, and memory in a full-screen
terminal view, with sparklines over the last samples.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Sample now
  ?           Show help

Examples:
  tbwatch gpu
  tbwatch gpu --interval 2s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return gpuCommand(gpuInterval)
	},
}

func init() {
	gpuCmd.Flags().DurationVar(&gpuInterval, "interval", 0, "sampling interval (default GPU_INTERVAL)")
	rootCmd.AddCommand(gpuCmd)
}

func validateInterval(d time.Duration) error {
	if d < MinGPUInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %s is too short", d),
			fmt.Sprintf("Use %s or more.", MinGPUInterval))
	}
	return nil
}

func gpuCommand(interval time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if interval == 0 {
		interval = cfg.Monitor.GPUInterval
	}
	if err := validateInterval(interval); err != nil {
		return err
	}

	a := newApp(cfg)
	defer a.Close()
	// Log lines would tear the alt screen; failures show in the view instead.
	a.collector.SetLogger(logger.Noop())
	a.executor.SetLogger(logger.Noop())

	model := gpuview.NewModel(a.collector, a.target.String(), interval, cfg.Monitor.CommandTimeout)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
