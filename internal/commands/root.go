package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fastupload/tgupbench/internal/ui"
	"github.com/fastupload/tgupbench/internal/version"
	tgupbench_bugsnag "github.com/fastupload/tgupbench/pkg/bugsnag"
	"github.com/fastupload/tgupbench/pkg/config"
	"github.com/fastupload/tgupbench/pkg/logrium"
)

func NewRootCmd() *cobra.Command {
	var opts benchOptions

	rootCmd := &cobra.Command{
		Use:   "tgupbench",
		Short: "Benchmark multi-connection uploads to Telegram",
		Long: `Benchmark upload bandwidth to Telegram.

Video files from TELEGRAM_DOWNLOAD_DIR are uploaded one after another to
TELEGRAM_TARGET, each split into 512 KiB parts sent over several parallel
connections. Elapsed time and throughput are reported per file and in total.

Configuration is read from the environment and from a .env file.
Run without arguments to be prompted for the options.

Example:
  tgupbench
  tgupbench --connections 8 --limit 3
  tgupbench --recursive --no-proxy --report bench.toml`,
		Args: cobra.NoArgs,
		// Silence errors - we handle them in main.go
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")

			displayOpts, err := ui.NewDisplayConfig(cmd, verbose)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting display options: %v\n", err)
				os.Exit(1)
			}

			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}

			if verbose {
				logFile, err := logrium.Setup(displayOpts.IsInteractive, cfg.GetLogLevel())
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error setting up logger: %v\n", err)
					os.Exit(1)
				}
				if logFile != "" {
					fmt.Fprintf(os.Stderr, "Debug logs: %s\n", logFile)
				}
			} else {
				logrium.Disable()
			}

			if err := tgupbench_bugsnag.Initialize(cfg); err != nil {
				slog.Debug("Error reporting unavailable", "error", err)
			}
			tgupbench_bugsnag.SetCommandContext(cmd.CommandPath(), os.Args[1:])

			slog.Debug("Config loaded successfully")

			ctx := context.WithValue(cmd.Context(), config.GetContextKey(), cfg)
			ctx = context.WithValue(ctx, ui.GetDisplayConfigContextKey(), displayOpts)
			cmd.SetContext(ctx)

			if cmd.Name() != "version" {
				version.PrintUpdateNotification(cmd.Context(), os.Stderr, cfg.SkipVersionCheck)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// No flags at all on a terminal means the interactive walkthrough
			opts.interactive = cmd.Flags().NFlag() == 0 && isTerminalInput()
			return runBenchmark(cmd, opts)
		},
	}

	// Global flags (persistent flags are inherited by all subcommands)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output and animations")
	rootCmd.PersistentFlags().Bool("no-ansi", false, "Disable colored output and animations (equivalent to --no-color)")
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "Path to the .env file")

	rootCmd.Flags().IntVar(&opts.connections, "connections", 0, "Parallel connections per file (0 = auto by file size)")
	rootCmd.Flags().IntVar(&opts.limit, "limit", 0, "Upload at most N files (0 = all)")
	rootCmd.Flags().BoolVar(&opts.recursive, "recursive", false, "Scan subdirectories of the download directory")
	rootCmd.Flags().BoolVar(&opts.noProxy, "no-proxy", false, "Ignore proxy settings from the environment")
	rootCmd.Flags().StringVar(&opts.reportPath, "report", "", "Write a TOML report of the run to this path")

	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
