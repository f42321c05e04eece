package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/rileyhilliard/tbwatch/internal/config"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags.
var (
	configPath string
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "tbwatch",
	Short: "Watch a remote training run from your browser",
	Long: `tbwatch talks to a GPU host over SSH and shows what your training run is
doing: nvidia-smi history, TensorBoard scalars, sample images, and the
training log.

Settings are read from .env in the working directory (or --config) and the
environment. Run 'tbwatch init' to create one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !ui.IsTerminal(os.Stdout) {
			ui.DisableColors()
		}
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for tbwatch.

Examples:
  tbwatch completion bash > /etc/bash_completion.d/tbwatch
  tbwatch completion zsh > "${fpath[1]}/_tbwatch"
  tbwatch completion fish > ~/.config/fish/completions/tbwatch.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return rootCmd.GenPowerShellCompletion(out)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(completionCmd)
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError renders structured errors as-is and gives plain ones the
// same leading symbol.
func formatError(err error) string {
	var tbErr *errors.Error
	if stderrors.As(err, &tbErr) {
		return tbErr.Error()
	}
	return fmt.Sprintf("%s %s\n", ui.SymbolFail, err)
}

// loadConfig resolves and validates settings, then applies LOG_LEVEL and
// --verbose to the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Configure(cfg.Log.Level, verbose); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid LOG_LEVEL",
			"Use one of debug, info, warn, error.")
	}
	return cfg, nil
}
