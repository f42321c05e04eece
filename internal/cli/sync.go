package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/artifacts"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/sync"
	"github.com/rileyhilliard/tbwatch/internal/ui"
	"github.com/rileyhilliard/tbwatch/internal/util"
	"github.com/spf13/cobra"
)

// What sync pulls.
const (
	syncImages = "images"
	syncOutput = "output"
	syncAll    = "all"
)

var syncCmd = &cobra.Command{
	Use:   "sync [images|output|all]",
	Short: "Pull sample images and the training log",
	Long: `Pull IMAGE_SAMPLES_PATH and MAIN_THREAD_OUTPUT from the remote host into
DATA_DIR, the same as the dashboard's sync buttons.

Examples:
  tbwatch sync
  tbwatch sync images
  tbwatch sync output`,
	ValidArgs: []string{syncImages, syncOutput, syncAll},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		what := syncAll
		if len(args) == 1 {
			what = args[0]
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a := newApp(cfg)
		defer a.Close()
		return syncCommand(cmd.Context(), cmd.OutOrStdout(), a.puller, what)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func syncCommand(ctx context.Context, out io.Writer, puller *artifacts.Puller, what string) error {
	pd := ui.NewPhaseDisplay(out)
	var failed []string

	if what == syncImages || what == syncAll {
		start := time.Now()
		res := puller.SyncImages(ctx)
		pd.CommandPrompt(res.Command)
		switch {
		case !res.OK():
			pd.Failed("Pull images", time.Since(start), sync.Message(res.Result))
			failed = append(failed, syncImages)
		case res.Err != nil:
			pd.Failed("List images", time.Since(start), errors.Summarize(res.Err))
			failed = append(failed, syncImages)
		default:
			pd.Success(fmt.Sprintf("Pulled %s into %s", util.Count(len(res.Images), "image", "images"),
				puller.Local().ImagesDir()), time.Since(start))
		}
	}

	if what == syncOutput || what == syncAll {
		start := time.Now()
		res := puller.SyncOutput(ctx)
		pd.CommandPrompt(res.Command)
		if res.OK() {
			pd.Success("Pulled output to "+puller.Local().OutputFile(), time.Since(start))
		} else {
			pd.Failed("Pull output", time.Since(start), sync.Message(res))
			failed = append(failed, syncOutput)
		}
	}

	if len(failed) > 0 {
		return errors.WrapWithCode(stderrors.New(strings.Join(failed, ", ")+" failed"), errors.ErrSync,
			"Sync incomplete",
			"Check the remote paths in your settings and that rsync is installed on both ends.")
	}
	return nil
}
