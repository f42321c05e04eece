package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/monitor"
	"github.com/rileyhilliard/tbwatch/internal/ui"
	"github.com/spf13/cobra"
)

var experimentsCmd = &cobra.Command{
	Use:     "experiments",
	Aliases: []string{"ls"},
	Short:   "List experiments on the remote host",
	Long: `List every directory under TENSORBOARD_LOGS_PATH that holds a
TensorBoard event file. These are the paths accepted by start-monitoring.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a := newApp(cfg)
		defer a.Close()
		return experimentsCommand(cmd.Context(), cmd.OutOrStdout(), a.collector, cfg.Remote.LogsPath)
	},
}

func init() {
	rootCmd.AddCommand(experimentsCmd)
}

func experimentsCommand(ctx context.Context, out io.Writer, collector *monitor.Collector, root string) error {
	spinner := ui.NewSpinner("Scanning " + root)
	spinner.SetOutput(out)
	spinner.Start()

	res := collector.ListExperiments(ctx)
	if !res.OK() {
		spinner.Fail()
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return errors.WrapWithCode(stderrors.New(detail), errors.ErrExec,
			"Couldn't list experiments under "+root,
			"Check TENSORBOARD_LOGS_PATH exists on the remote host.")
	}
	spinner.Success()

	if len(res.Experiments) == 0 {
		fmt.Fprintln(out, ui.MutedStyle().Render("No event files found under "+root))
		return nil
	}

	width := len("Experiment")
	rows := make([][]string, len(res.Experiments))
	for i, exp := range res.Experiments {
		rows[i] = []string{strconv.Itoa(i + 1), exp}
		width = max(width, len(exp))
	}
	fmt.Fprintln(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "#", Width: 4},
		{Title: "Experiment", Width: width},
	}, rows))
	return nil
}
