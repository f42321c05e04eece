package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rileyhilliard/tbwatch/internal/artifacts"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/server"
	"github.com/rileyhilliard/tbwatch/internal/ui"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	Long: `Serve the dashboard and its JSON API.

Monitoring starts when you pick an experiment in the browser (or POST
/api/start-monitoring). Images and the training log are pulled on demand,
or on AUTO_SYNC_SCHEDULE when set. Prometheus metrics are on /metrics.

Examples:
  tbwatch serve
  tbwatch serve --listen 0.0.0.0:5000
  tbwatch serve --config ~/runs/llama.env`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveCommand(ctx, cmd.OutOrStdout(), serveListen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (overrides LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(ctx context.Context, out io.Writer, listen string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.ListenAddr = listen
	}

	a := newApp(cfg)
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := a.metrics.Register(reg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't register metrics",
			"This is a bug, please report it.")
	}

	fmt.Fprint(out, ui.RenderHeader(ui.HeaderInfo{
		Version: formatVersion(version),
		Tagline: "Remote training dashboard",
		Target:  a.target.String(),
	}))

	if spec := cfg.Server.AutoSyncSchedule; spec != "" {
		auto, err := artifacts.NewAutoSync(a.puller, spec, cfg.Monitor.CommandTimeout)
		if err != nil {
			return err
		}
		auto.Start()
		defer auto.Stop()
		fmt.Fprintln(out, ui.FormatPhase(ui.SymbolComplete, ui.ColorSuccess,
			"Auto sync "+spec, "next "+auto.Next().Format("15:04:05")))
	}

	srv := server.New(server.Deps{Controller: a.controller, Puller: a.puller, Gatherer: reg})
	return srv.Serve(ctx, cfg.Server.ListenAddr, func(addr net.Addr) {
		fmt.Fprintln(out, ui.FormatPhase(ui.SymbolComplete, ui.ColorSuccess,
			"Dashboard at http://"+addr.String(), ""))
		fmt.Fprintln(out, ui.MutedStyle().Render("Ctrl+C to stop"))
	})
}
