package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bugsnag/bugsnag-go/v2"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gotd/td/tg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fastupload/tgupbench/internal/bench"
	"github.com/fastupload/tgupbench/internal/scan"
	"github.com/fastupload/tgupbench/internal/telegram"
	"github.com/fastupload/tgupbench/internal/ui"
	tgupbench_bugsnag "github.com/fastupload/tgupbench/pkg/bugsnag"
)

type UploadState int

const (
	StateUploading UploadState = iota
	StateSuccess
	StateError
)

// progressInterval is how often the shared byte counter is polled
const progressInterval = 100 * time.Millisecond

type UploadConfig struct {
	ui.DisplayConfig

	Client      telegram.Client
	Peer        tg.InputPeerClass
	Target      string
	Dir         string
	Files       []scan.VideoFile
	Connections int // 0 picks a count per file

	// Out receives the plain-text lines in simple output mode. Defaults to stdout.
	Out io.Writer
}

// UploadView uploads the files one after another and reports throughput
type UploadView struct {
	ctx context.Context

	state       UploadState
	index       int
	meter       *bench.Meter
	lastSample  bench.Sample
	doneLines   []string
	report      *bench.Report
	spinner     *ui.SpinnerModel
	progressBar progress.Model
	err         error

	atomicBytesUploaded *atomic.Int64

	conf UploadConfig
}

func NewUploadView(ctx context.Context, conf UploadConfig) *UploadView {
	prog := progress.New(
		progress.WithSolidFill(string(ui.AccentColor)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
		progress.WithColorProfile(lipgloss.ColorProfile()),
	)
	if conf.Out == nil {
		conf.Out = os.Stdout
	}

	return &UploadView{
		ctx:         ctx,
		state:       StateUploading,
		spinner:     ui.NewSpinner(),
		progressBar: prog,
		report: &bench.Report{
			Target:      conf.Target,
			Dir:         conf.Dir,
			Connections: conf.Connections,
			Started:     time.Now(),
		},
		atomicBytesUploaded: &atomic.Int64{},
		conf:                conf,
	}
}

// Error returns the error if any occurred during execution
func (m *UploadView) Error() error {
	return m.err
}

// Report returns the results collected so far
func (m *UploadView) Report() *bench.Report {
	return m.report
}

func (m *UploadView) Init() tea.Cmd {
	if m.conf.SimpleOutput() {
		fmt.Fprintf(m.conf.Out, "target: %s\n", m.conf.Target)
		fmt.Fprintf(m.conf.Out, "dir: %s\n", m.conf.Dir)
		fmt.Fprintf(m.conf.Out, "files: %d\n", len(m.conf.Files))
	}

	if len(m.conf.Files) == 0 {
		m.state = StateSuccess
		return tea.Quit
	}

	return tea.Batch(m.spinner.Init(), m.startFile(0), m.tickProgress())
}

func (m *UploadView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case ui.SignalCancelMsg:
		return m.onCancel()

	case fileSentMsg:
		return m.onFileSent(v)

	case progressTickMsg:
		if m.state != StateUploading {
			return m, nil
		}
		m.observeProgress()
		return m, m.tickProgress()

	case *ui.UIError:
		return m.onError(v)

	case tea.KeyMsg:
		return m.onKey(v)

	default:
		return m.onDefault(msg)
	}
}

func (m *UploadView) onCancel() (tea.Model, tea.Cmd) {
	if m.conf.SimpleOutput() {
		fmt.Fprintf(os.Stderr, "\nUpload cancelled by user\n")
	}
	m.state = StateError
	m.err = ui.NewUserCancelledError()
	return m, tea.Quit
}

// startFile resets per-file progress and launches the upload of file i
func (m *UploadView) startFile(i int) tea.Cmd {
	file := m.conf.Files[i]
	m.index = i
	m.atomicBytesUploaded.Store(0)
	m.meter = bench.NewMeter(bench.DefaultMinInterval)
	m.lastSample = bench.Sample{Total: file.Size}

	if m.conf.SimpleOutput() {
		fmt.Fprintf(m.conf.Out, "\n%s\n", m.fileHeader(i))
	}

	return m.uploadFile(i)
}

func (m *UploadView) fileHeader(i int) string {
	file := m.conf.Files[i]
	return fmt.Sprintf("[%d/%d] %s (%.2f MB)", i+1, len(m.conf.Files), file.Name, bench.ToMB(file.Size))
}

// uploadFile uploads and sends file i. Elapsed time covers both steps.
func (m *UploadView) uploadFile(i int) tea.Cmd {
	file := m.conf.Files[i]
	counter := m.atomicBytesUploaded
	connections := telegram.EffectiveConnections(m.conf.Connections, file.Size)

	return func() tea.Msg {
		start := time.Now()

		onProgress := func(uploaded, _ int64) {
			for {
				cur := counter.Load()
				if uploaded <= cur || counter.CompareAndSwap(cur, uploaded) {
					return
				}
			}
		}

		handle, err := m.conf.Client.Upload(m.ctx, file, connections, onProgress)
		if err != nil {
			return m.fileError(file, connections, fmt.Errorf("failed to upload %s: %w", file.Name, err))
		}

		if err := m.conf.Client.SendVideo(m.ctx, m.conf.Peer, handle, file); err != nil {
			return m.fileError(file, connections, err)
		}

		return fileSentMsg{
			index: i,
			result: bench.Result{
				Name:        file.Name,
				Size:        file.Size,
				Elapsed:     time.Since(start),
				Connections: connections,
			},
		}
	}
}

func (m *UploadView) fileError(file scan.VideoFile, connections int, err error) tea.Msg {
	if m.ctx.Err() != nil {
		return ui.NewUserCancelledError()
	}

	tgupbench_bugsnag.NotifyWithMetadata(m.ctx, err, bugsnag.SeverityError, bugsnag.MetaData{
		"upload": {
			"file_size":   file.Size,
			"connections": connections,
			"big_file":    telegram.IsBig(file.Size),
		},
	})
	return ui.NewAPIError(err)
}

func (m *UploadView) observeProgress() {
	cur := m.atomicBytesUploaded.Load()
	if m.lastSample.Done && cur == m.lastSample.Current {
		return
	}

	sample, ok := m.meter.Observe(cur, m.conf.Files[m.index].Size)
	if !ok {
		return
	}
	m.lastSample = sample

	if m.conf.SimpleOutput() {
		fmt.Fprintln(m.conf.Out, sample.Format(m.conf.Files[m.index].Label()))
	}
}

func (m *UploadView) onFileSent(msg fileSentMsg) (tea.Model, tea.Cmd) {
	// Fast uploads can finish between ticks, so the final sample is forced here
	m.atomicBytesUploaded.Store(msg.result.Size)
	m.observeProgress()

	m.report.Add(msg.result)
	line := fmt.Sprintf("done: %s in %.2fs avg %.2f MB/s", msg.result.Name, msg.result.Elapsed.Seconds(), msg.result.Speed())
	m.doneLines = append(m.doneLines, m.fileHeader(msg.index), line)

	if m.conf.SimpleOutput() {
		fmt.Fprintln(m.conf.Out, line)
	}

	if next := msg.index + 1; next < len(m.conf.Files) {
		return m, m.startFile(next)
	}

	m.state = StateSuccess
	if m.conf.SimpleOutput() {
		fmt.Fprintf(m.conf.Out, "\n%s\n", m.report.TotalLine())
	}
	return m, tea.Quit
}

func (m *UploadView) onError(err *ui.UIError) (tea.Model, tea.Cmd) {
	if err.Type == ui.ErrorTypeUserCancelled {
		return m.onCancel()
	}

	err.SilentExit = true
	m.err = err
	m.state = StateError

	if m.conf.SimpleOutput() {
		fmt.Fprintf(m.conf.Out, "Error: %s\n", err.Error())
	}

	return m, tea.Quit
}

func (m *UploadView) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.conf.SimpleOutput() {
		return m, nil
	}

	switch msg.String() {
	case "q", "esc", tea.KeyCtrlC.String():
		return m.onCancel()
	}

	return m, nil
}

func (m *UploadView) onDefault(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.conf.SimpleOutput() {
		return m, nil
	}

	var cmd tea.Cmd
	var spinnerModel tea.Model
	spinnerModel, cmd = m.spinner.Update(msg)
	m.spinner = spinnerModel.(*ui.SpinnerModel) //nolint:errcheck // Type assertion guaranteed by SpinnerModel structure
	return m, cmd
}

type fileSentMsg struct {
	index  int
	result bench.Result
}

type progressTickMsg time.Time

func (m *UploadView) tickProgress() tea.Cmd {
	return tea.Tick(progressInterval, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m *UploadView) View() string {
	if m.conf.SimpleOutput() {
		return ""
	}

	var output strings.Builder

	output.WriteString(ui.RenderPanel("Upload benchmark", ui.RenderDetailTable([]ui.TableSection{{
		Rows: []ui.TableRow{
			{Label: "Target", Value: m.conf.Target},
			{Label: "Directory", Value: m.conf.Dir},
			{Label: "Files", Value: fmt.Sprintf("%d (%.2f MB)", len(m.conf.Files), bench.ToMB(scan.TotalSize(m.conf.Files)))},
			{Label: "Connections", Value: connectionsLabel(m.conf.Connections)},
		},
	}})))
	output.WriteString("\n")

	for i, line := range m.doneLines {
		if i%2 == 0 {
			output.WriteString(line + "\n")
		} else {
			output.WriteString("✓ " + ui.SuccessStyle.Render(line) + "\n")
		}
	}

	switch m.state {
	case StateUploading:
		m.viewProgress(&output)

	case StateSuccess:
		output.WriteString("\n" + ui.BoldStyle.Render(m.report.TotalLine()) + "\n")
		if summary := m.viewSummary(); summary != "" {
			output.WriteString("\n" + summary)
		}

	case StateError:
		if m.err != nil {
			output.WriteString("\n" + ui.FormatError(m.err))
		}
	}

	return output.String()
}

func (m *UploadView) viewProgress(output *strings.Builder) {
	if m.index >= len(m.conf.Files) {
		return
	}
	file := m.conf.Files[m.index]

	output.WriteString(m.fileHeader(m.index) + "\n")

	if m.lastSample.Current == 0 {
		initText := lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Render(fmt.Sprintf("⚡ Opening %d connections...", telegram.EffectiveConnections(m.conf.Connections, file.Size)))
		output.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), initText))
		return
	}

	fraction := m.lastSample.Percent / 100
	percentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	output.WriteString(fmt.Sprintf("%s %s %s\n",
		m.spinner.View(),
		m.progressBar.ViewAs(fraction),
		percentStyle.Render(fmt.Sprintf("%6.2f%%", m.lastSample.Percent)),
	))

	statsStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stats := []string{
		fmt.Sprintf("%.2f / %.2f MB", bench.ToMB(m.lastSample.Current), bench.ToMB(m.lastSample.Total)),
		fmt.Sprintf("inst %.2f MB/s", m.lastSample.Inst),
		fmt.Sprintf("avg %.2f MB/s", m.lastSample.Avg),
	}
	output.WriteString("  " + statsStyle.Render(strings.Join(stats, " • ")) + "\n")
}

func (m *UploadView) viewSummary() string {
	summary, err := m.report.Stats()
	if err != nil || len(m.report.Results) < 2 {
		return ""
	}

	caser := cases.Title(language.English)
	values := []struct {
		key   string
		value float64
	}{
		{"min", summary.Min},
		{"median", summary.Median},
		{"mean", summary.Mean},
		{"p90", summary.P90},
		{"max", summary.Max},
	}

	rows := make([]ui.TableRow, 0, len(values))
	for _, v := range values {
		rows = append(rows, ui.TableRow{Label: caser.String(v.key), Value: ui.ColorizeSpeed(v.value, summary.Median)})
	}

	return ui.RenderPanel("Per-file speed", ui.RenderDetailTable([]ui.TableSection{{Rows: rows}}))
}

func connectionsLabel(n int) string {
	if n <= 0 {
		return fmt.Sprintf("auto (1-%d by size)", telegram.MaxConnections)
	}
	return fmt.Sprintf("%d", n)
}
