package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/tbwatch/internal/config"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/sync"
	"github.com/rileyhilliard/tbwatch/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings as YAML",
	Long: `Print the settings tbwatch would use, after merging the .env file, the
environment, and defaults. Nothing is validated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return configShow(cmd.OutOrStdout(), cfg)
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which settings are set",
	Long: `List every setting with its value, check that rsync is installed
locally, then validate the settings the same way serve does.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return configCheck(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func configShow(out io.Writer, cfg *config.Config) error {
	data, err := config.MarshalYAML(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// configCheck lists every key with its value and the local rsync, then
// runs full validation.
func configCheck(out io.Writer, cfg *config.Config) error {
	values := config.EnvValues(cfg)

	fmt.Fprintln(out, "Required:")
	for _, key := range config.RequiredKeys {
		if v, ok := values[key]; ok {
			fmt.Fprintf(out, "  %s %s=%s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key, v)
		} else {
			fmt.Fprintf(out, "  %s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), key)
		}
	}

	fmt.Fprintln(out, "Optional:")
	for _, key := range config.OptionalKeys {
		if v, ok := values[key]; ok {
			fmt.Fprintf(out, "  %s %s=%s\n", ui.SymbolComplete, key, v)
		} else {
			fmt.Fprintf(out, "  %s %s\n", ui.MutedStyle().Render(ui.SymbolPending), ui.MutedStyle().Render(key+" (default)"))
		}
	}

	// Pulls and the helper push need a local rsync; a missing one is
	// reported but doesn't fail the check.
	fmt.Fprintln(out, "Local:")
	if v, err := sync.Version(); err != nil {
		fmt.Fprintf(out, "  %s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), errors.Summarize(err))
	} else {
		fmt.Fprintf(out, "  %s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), v)
	}
	fmt.Fprintln(out)

	if err := config.Validate(cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Settings OK\n", ui.SuccessStyle().Render(ui.SymbolSuccess))
	return nil
}
