package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gotd/td/tg"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fastupload/tgupbench/internal/scan"
	"github.com/fastupload/tgupbench/internal/telegram"
	"github.com/fastupload/tgupbench/internal/ui"
	uiCommands "github.com/fastupload/tgupbench/internal/ui/commands"
	tgupbench_bugsnag "github.com/fastupload/tgupbench/pkg/bugsnag"
	"github.com/fastupload/tgupbench/pkg/config"
	"github.com/fastupload/tgupbench/pkg/logrium"
)

// benchOptions are the flags of the root command
type benchOptions struct {
	connections int
	limit       int
	recursive   bool
	noProxy     bool
	reportPath  string
	interactive bool
}

func (o benchOptions) validate() error {
	if o.connections < 0 || o.connections > telegram.MaxConnections {
		return fmt.Errorf("--connections must be between 1 and %d (or 0 for auto), got %d", telegram.MaxConnections, o.connections)
	}
	if o.limit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", o.limit)
	}
	return nil
}

func (o benchOptions) scanOptions() scan.Options {
	return scan.Options{Recursive: o.recursive, Limit: o.limit}
}

// benchPlan is everything resolved before the first connection is made
type benchPlan struct {
	cfg    *config.Config
	target telegram.Target
	dir    string
	proxy  *config.Proxy
}

// planBenchmark checks the configuration without touching the network
func planBenchmark(cfg *config.Config, opts benchOptions) (*benchPlan, error) {
	if err := opts.validate(); err != nil {
		return nil, ui.NewValidationError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, ui.NewConfigurationError(err)
	}

	target, err := telegram.ParseTarget(cfg.Target)
	if err != nil {
		return nil, ui.NewConfigurationError(fmt.Errorf("%s: %w", config.EnvTarget, err))
	}

	dir, err := cfg.ResolveDownloadDir()
	if err != nil {
		return nil, ui.NewConfigurationError(err)
	}

	proxy, err := cfg.ResolveProxy(opts.noProxy)
	if err != nil {
		return nil, ui.NewConfigurationError(err)
	}

	return &benchPlan{cfg: cfg, target: target, dir: dir, proxy: proxy}, nil
}

func runBenchmark(cmd *cobra.Command, opts benchOptions) error {
	cmd.SilenceUsage = true

	displayOpts, err := ui.GetDisplayConfigFromContext(cmd)
	if err != nil {
		return ui.NewValidationError(fmt.Errorf("failed to get display options: %w", err))
	}

	cfg, err := config.GetConfigFromContext(cmd)
	if err != nil {
		return ui.NewConfigurationError(err)
	}

	out := cmd.OutOrStdout()

	if opts.interactive {
		opts, err = promptOptions(out, opts)
		if err != nil {
			return ui.NewUserCancelledError()
		}
	}

	plan, err := planBenchmark(cfg, opts)
	if err != nil {
		return err
	}

	slog.Info("Starting benchmark",
		"target", plan.target.Raw,
		"dir", plan.dir,
		"connections", opts.connections,
		"limit", opts.limit,
		"recursive", opts.recursive,
		"proxy", plan.proxy,
	)
	tgupbench_bugsnag.SetRunContext(plan.target.Kind.String(), opts.connections, plan.proxy != nil)

	sess, err := telegram.New(telegram.Options{
		APIID:       cfg.APIID,
		APIHash:     cfg.APIHash,
		SessionPath: cfg.SessionPath,
		Proxy:       plan.proxy,
		Logger:      logrium.Zap(),
	})
	if err != nil {
		return ui.NewConfigurationError(err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	err = sess.Run(ctx, func(ctx context.Context) error {
		if err := sess.Login(ctx, telegram.NewAuthenticator(cfg.Phone, cfg.Password, nil)); err != nil {
			return reportAPIError(ctx, fmt.Errorf("login failed: %w", err))
		}

		peer, files, err := preflight(ctx, sess.API(), plan, opts.scanOptions())
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Fprintf(out, "no video files found in %s\n", plan.dir)
			return nil
		}

		uploader, err := sess.Uploader(opts.connections)
		if err != nil {
			return reportAPIError(ctx, err)
		}
		defer func() {
			if err := uploader.Close(); err != nil {
				slog.Debug("Failed to close connection pool", "error", err)
			}
		}()

		return runUploads(ctx, out, displayOpts, uiCommands.UploadConfig{
			Client:      uploader,
			Peer:        peer,
			Target:      plan.target.Raw,
			Dir:         plan.dir,
			Files:       files,
			Connections: opts.connections,
		}, opts.reportPath)
	})

	// Errors from inside the run are already categorised and reported
	var uiErr *ui.UIError
	if err != nil && !errors.As(err, &uiErr) {
		notifyError(ctx, err)
	}
	return asUIError(err)
}

// preflight resolves the target chat and scans the directory concurrently
func preflight(ctx context.Context, api *tg.Client, plan *benchPlan, scanOpts scan.Options) (tg.InputPeerClass, []scan.VideoFile, error) {
	spinner := ui.NewSimpleSpinner("Resolving target and scanning files...")
	spinner.Start()
	defer spinner.Stop()

	var (
		peer  tg.InputPeerClass
		files []scan.VideoFile
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		p, err := telegram.ResolveTarget(egCtx, api, plan.target)
		if err != nil {
			return reportAPIError(egCtx, fmt.Errorf("failed to resolve target %s: %w", plan.target.Raw, err))
		}
		peer = p
		return nil
	})
	eg.Go(func() error {
		found, err := scan.ScanVideos(plan.dir, scanOpts)
		if err != nil {
			return ui.NewFileSystemError(err)
		}
		files = found
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	slog.Debug("Preflight complete", "files", len(files), "bytes", scan.TotalSize(files))
	return peer, files, nil
}

// runUploads drives the upload view and writes the report afterwards
func runUploads(ctx context.Context, out io.Writer, displayOpts ui.DisplayConfig, conf uiCommands.UploadConfig, reportPath string) error {
	conf.DisplayConfig = displayOpts
	conf.Out = out

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := uiCommands.NewUploadView(ctx, conf)

	var programOpts []tea.ProgramOption
	if !displayOpts.IsInteractive {
		programOpts = append(programOpts,
			tea.WithoutRenderer(),
			tea.WithInput(nil),
		)
	}
	programOpts = append(programOpts, tea.WithContext(ctx))

	p := tea.NewProgram(model, programOpts...)

	stopSignals := ui.SetupSignalHandling(p, 0, cancel)
	defer stopSignals()

	finalModel, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return ui.NewUserCancelledError()
	}
	if err != nil {
		return ui.NewInternalError(fmt.Errorf("internal error: %w", err))
	}

	m, ok := finalModel.(*uiCommands.UploadView)
	if !ok {
		return ui.NewInternalError(fmt.Errorf("unexpected model type"))
	}

	report := m.Report()
	if displayOpts.SimpleOutput() && len(report.Results) > 1 {
		fmt.Fprintln(out)
		report.WriteTable(out)
	}

	if reportPath != "" && len(report.Results) > 0 {
		if err := report.WriteTOML(reportPath); err != nil {
			return ui.NewFileSystemError(err)
		}
		fmt.Fprintf(out, "report written to %s\n", reportPath)
	}

	return m.Error()
}

// notifyError is swapped out in tests
var notifyError = tgupbench_bugsnag.NotifyError

// reportAPIError sends a failed Telegram call to error reporting and
// categorises it. Cancellations are returned as such and never reported.
func reportAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ui.NewUserCancelledError()
	}
	notifyError(ctx, err)
	return ui.NewAPIError(err)
}

// asUIError makes sure whatever comes back from the session is categorised
func asUIError(err error) error {
	if err == nil {
		return nil
	}

	var uiErr *ui.UIError
	if errors.As(err, &uiErr) {
		return uiErr
	}
	if errors.Is(err, context.Canceled) {
		return ui.NewUserCancelledError()
	}
	return ui.NewAPIError(err)
}
