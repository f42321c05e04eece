package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/tbwatch/internal/config"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/remote"
	"github.com/rileyhilliard/tbwatch/internal/ui"
	"github.com/rileyhilliard/tbwatch/pkg/sshutil"
	"github.com/spf13/cobra"
)

// ProbeCommand is run on the host to check the connection and the GPU.
const ProbeCommand = "nvidia-smi -L"

// ProbeTimeout bounds the connection check.
const ProbeTimeout = 15 * time.Second

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string // file to write; default .env
	Host           string // pre-fills SSH_HOST
	Overwrite      bool   // replace an existing file without asking
	NonInteractive bool   // take every value from the environment and flags
	SkipProbe      bool   // don't test the connection before saving
}

var initOpts InitOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .env settings file",
	Long: `Walk through the settings tbwatch needs and write them to .env.

Hosts from ~/.ssh/config are offered first. The connection is tested with
'nvidia-smi -L' before saving.

In non-interactive mode (--non-interactive, or CI set) the values come from
the environment (SSH_HOST, TENSORBOARD_LOGS_PATH, ...) and --host.

Examples:
  tbwatch init
  tbwatch init --host gpu-box
  SSH_HOST=gpu-box ... tbwatch init --non-interactive --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initOpts
		if opts.Path == "" {
			opts.Path = configPath
		}
		if os.Getenv("CI") != "" {
			opts.NonInteractive = true
		}
		return Init(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	initCmd.Flags().StringVar(&initOpts.Host, "host", "", "pre-fill the SSH host")
	initCmd.Flags().BoolVarP(&initOpts.Overwrite, "force", "f", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&initOpts.NonInteractive, "non-interactive", false, "don't prompt; read settings from the environment")
	initCmd.Flags().BoolVar(&initOpts.SkipProbe, "skip-probe", false, "save without testing the connection")
	rootCmd.AddCommand(initCmd)
}

// Init writes a settings file from prompts (or the environment).
func Init(ctx context.Context, out io.Writer, opts InitOptions) error {
	path := opts.Path
	if path == "" {
		path = config.EnvFileName
	}

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				"Settings file already exists: "+path,
				"Use --force to overwrite.")
		}
		overwrite, err := confirm(fmt.Sprintf("%s already exists. Overwrite?", path))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite.")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	cfg, err := initialConfig(path, opts)
	if err != nil {
		return err
	}

	if !opts.NonInteractive {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if !opts.SkipProbe {
		if err := probe(ctx, out, cfg, !opts.NonInteractive); err != nil {
			return err
		}
	}

	if err := config.WriteEnvFile(path, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Wrote %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  tbwatch experiments  - List runs on the host")
	fmt.Fprintln(out, "  tbwatch serve        - Open the dashboard")
	fmt.Fprintln(out, "  tbwatch gpu          - Watch the GPU from the terminal")
	return nil
}

// initialConfig starts from the existing file and the environment, so init
// can be re-run to change one setting.
func initialConfig(path string, opts InitOptions) (*config.Config, error) {
	src := path
	if _, err := os.Stat(path); err != nil {
		src = os.DevNull
	}
	cfg, err := config.Load(src)
	if err != nil {
		return nil, err
	}
	if opts.Host != "" {
		cfg.SSH.Host = opts.Host
	}
	if cfg.SSH.Port == 0 {
		cfg.SSH.Port = 22
	}
	if cfg.SSH.Host != "" || opts.NonInteractive || !ui.IsTerminal(os.Stdin) {
		return cfg, nil
	}

	hosts, err := sshutil.ListHosts(sshutil.DefaultConfigPath())
	if err != nil {
		return cfg, nil
	}
	picked, cancelled, err := ui.PickHost(hosts)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Host picker failed",
			"Pass --host to skip the picker.")
	}
	if cancelled {
		return nil, errors.New(errors.ErrConfig, "Cancelled", "")
	}
	if picked != nil {
		applyHostEntry(cfg, *picked)
	}
	return cfg, nil
}

func applyHostEntry(cfg *config.Config, h sshutil.HostEntry) {
	cfg.SSH.Host = h.Alias
	if h.User != "" {
		cfg.SSH.Username = h.User
	}
	if h.Port != 0 {
		cfg.SSH.Port = h.Port
	}
	if h.IdentityFile != "" {
		cfg.SSH.KeyPath = config.ExpandTilde(h.IdentityFile)
	}
}

func promptConfig(cfg *config.Config) error {
	port := strconv.Itoa(cfg.SSH.Port)
	interval := cfg.Monitor.GPUInterval.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("SSH host").
				Description("Hostname, IP, or ~/.ssh/config alias").
				Value(&cfg.SSH.Host).Validate(required("SSH host")),
			huh.NewInput().Title("SSH port").Value(&port).Validate(validPort),
			huh.NewInput().Title("SSH username").Value(&cfg.SSH.Username).Validate(required("username")),
			huh.NewInput().Title("SSH key path").
				Placeholder("~/.ssh/id_ed25519").
				Value(&cfg.SSH.KeyPath).Validate(required("key path")),
		).Title("Connection"),
		huh.NewGroup(
			huh.NewInput().Title("TensorBoard logs root").
				Description("Searched for events.out.tfevents.* files").
				Placeholder("/home/ubuntu/runs").
				Value(&cfg.Remote.LogsPath).Validate(required("logs root")),
			huh.NewInput().Title("Sample images directory").
				Value(&cfg.Remote.ImagesPath).Validate(required("images directory")),
			huh.NewInput().Title("Python virtualenv").
				Description("Must have the tensorboard package installed").
				Value(&cfg.Remote.VenvPath).Validate(required("virtualenv")),
			huh.NewInput().Title("Training log file").
				Value(&cfg.Remote.OutputPath).Validate(required("log file")),
		).Title("Remote paths"),
		huh.NewGroup(
			huh.NewInput().Title("Listen address").Value(&cfg.Server.ListenAddr),
			huh.NewInput().Title("GPU sampling interval").Value(&interval).Validate(validDuration),
			huh.NewInput().Title("Auto sync schedule (optional)").
				Description("Cron spec such as '@every 5m'. Leave empty to sync by hand.").
				Value(&cfg.Server.AutoSyncSchedule),
		).Title("Dashboard"),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive.")
	}

	cfg.SSH.Port, _ = strconv.Atoi(port)
	cfg.Monitor.GPUInterval, _ = time.ParseDuration(interval)
	cfg.SSH.KeyPath = config.ExpandTilde(cfg.SSH.KeyPath)
	return nil
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validPort(s string) error {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fmt.Errorf("use a duration like 10s or 1m")
	}
	return nil
}

// probe runs ProbeCommand on the host. When interactive, a failure asks
// whether to save anyway.
func probe(ctx context.Context, out io.Writer, cfg *config.Config, interactive bool) error {
	target := sshTarget(cfg)
	spinner := ui.NewSpinner("Testing connection to " + target.String())
	spinner.SetOutput(out)
	spinner.Start()

	executor := remote.NewExecutor(target, ProbeTimeout)
	defer executor.Close()
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	res := executor.Run(ctx, ProbeCommand)
	if res.OK() {
		spinner.Success()
		for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
			fmt.Fprintln(out, "  "+ui.MutedStyle().Render(line))
		}
		return nil
	}
	spinner.Fail()

	detail := strings.TrimSpace(res.Stderr)
	connErr := errors.New(errors.ErrSSH,
		fmt.Sprintf("'%s' failed on %s: %s", ProbeCommand, target, detail),
		"Check you can run: ssh "+target.String()+" "+ProbeCommand)
	if !interactive {
		return connErr
	}

	if save, err := confirm("Save settings anyway? You can fix the connection later."); err != nil || !save {
		return connErr
	}
	return nil
}

func confirm(title string) (bool, error) {
	var yes bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(&yes),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return yes, nil
}
