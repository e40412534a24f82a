package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fastupload/tgupbench/internal/bench"
	"github.com/fastupload/tgupbench/internal/scan"
	"github.com/fastupload/tgupbench/internal/telegram"
	"github.com/fastupload/tgupbench/internal/ui"
	"github.com/fastupload/tgupbench/pkg/config"
)

// NewScanCmd lists the files a benchmark run would upload
func NewScanCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the video files that would be uploaded",
		Long: `List the video files found in TELEGRAM_DOWNLOAD_DIR, in upload order,
with the connection count each one would get. Nothing is sent to Telegram.

Example:
  tgupbench scan
  tgupbench scan --recursive --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.connections, "connections", 0, "Parallel connections per file (0 = auto by file size)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "List at most N files (0 = all)")
	cmd.Flags().BoolVar(&opts.recursive, "recursive", false, "Scan subdirectories of the download directory")

	return cmd
}

func runScan(cmd *cobra.Command, opts benchOptions) error {
	cmd.SilenceUsage = true

	if err := opts.validate(); err != nil {
		return ui.NewValidationError(err)
	}

	cfg, err := config.GetConfigFromContext(cmd)
	if err != nil {
		return ui.NewConfigurationError(err)
	}

	dir, err := cfg.ResolveDownloadDir()
	if err != nil {
		return ui.NewConfigurationError(err)
	}

	files, err := scan.ScanVideos(dir, opts.scanOptions())
	if err != nil {
		return ui.NewFileSystemError(err)
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintf(out, "no video files found in %s\n", dir)
		return nil
	}

	fmt.Fprintf(out, "dir: %s\n", dir)
	writeScanTable(out, files, opts.connections)
	return nil
}

func writeScanTable(w io.Writer, files []scan.VideoFile, connections int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "File", "Type", "Size (MB)", "Parts", "Conns"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, f := range files {
		table.Append([]string{
			strconv.Itoa(i + 1),
			f.RelPath,
			strings.TrimPrefix(f.DetectMIME(), "video/"),
			fmt.Sprintf("%.2f", bench.ToMB(f.Size)),
			strconv.Itoa(telegram.PartCount(f.Size)),
			strconv.Itoa(telegram.EffectiveConnections(connections, f.Size)),
		})
	}

	table.SetFooter([]string{
		"", fmt.Sprintf("%d files", len(files)), "",
		fmt.Sprintf("%.2f", bench.ToMB(scan.TotalSize(files))), "", "",
	})
	table.Render()
}
