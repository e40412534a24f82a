package bench

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

// ErrNoResults is returned by Stats when nothing was uploaded
var ErrNoResults = errors.New("no files were uploaded")

// Report collects the results of one benchmark run
type Report struct {
	Target      string
	Dir         string
	Connections int // requested; 0 means chosen per file
	Started     time.Time
	Results     []Result
}

// Add appends a finished file
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
}

// TotalBytes is the sum of all uploaded file sizes
func (r *Report) TotalBytes() int64 {
	return lo.SumBy(r.Results, func(res Result) int64 { return res.Size })
}

// TotalElapsed is the sum of per-file elapsed times
func (r *Report) TotalElapsed() time.Duration {
	return lo.SumBy(r.Results, func(res Result) time.Duration { return res.Elapsed })
}

// TotalSpeed is total bytes over total elapsed, in MB/s
func (r *Report) TotalSpeed() float64 {
	return Speed(r.TotalBytes(), r.TotalElapsed())
}

// Summary describes the spread of per-file speeds in MB/s
type Summary struct {
	Min    float64 `toml:"min"`
	Max    float64 `toml:"max"`
	Mean   float64 `toml:"mean"`
	Median float64 `toml:"median"`
	P90    float64 `toml:"p90"`
}

// Stats computes the per-file speed distribution
func (r *Report) Stats() (Summary, error) {
	if len(r.Results) == 0 {
		return Summary{}, ErrNoResults
	}

	speeds := stats.Float64Data(lo.Map(r.Results, func(res Result, _ int) float64 { return res.Speed() }))

	var s Summary
	var err error
	if s.Min, err = speeds.Min(); err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}
	if s.Max, err = speeds.Max(); err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}
	if s.Mean, err = speeds.Mean(); err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	if s.Median, err = speeds.Median(); err != nil {
		return Summary{}, fmt.Errorf("median: %w", err)
	}
	if s.P90, err = speeds.PercentileNearestRank(90); err != nil {
		return Summary{}, fmt.Errorf("p90: %w", err)
	}

	return s, nil
}

// TotalLine is the closing line printed after all files
func (r *Report) TotalLine() string {
	return fmt.Sprintf("total: %.2f MB / %.2fs = %.2f MB/s",
		ToMB(r.TotalBytes()), r.TotalElapsed().Seconds(), r.TotalSpeed())
}

// WriteTable renders one row per file plus a total footer
func (r *Report) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "File", "Size (MB)", "Conns", "Time (s)", "MB/s"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, res := range r.Results {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			res.Name,
			fmt.Sprintf("%.2f", ToMB(res.Size)),
			fmt.Sprintf("%d", res.Connections),
			fmt.Sprintf("%.2f", res.Elapsed.Seconds()),
			fmt.Sprintf("%.2f", res.Speed()),
		})
	}

	table.SetFooter([]string{
		"", "total",
		fmt.Sprintf("%.2f", ToMB(r.TotalBytes())),
		"",
		fmt.Sprintf("%.2f", r.TotalElapsed().Seconds()),
		fmt.Sprintf("%.2f", r.TotalSpeed()),
	})

	table.Render()
}

type tomlFile struct {
	Name        string  `toml:"name"`
	SizeBytes   int64   `toml:"size_bytes"`
	Connections int     `toml:"connections"`
	Seconds     float64 `toml:"seconds"`
	MBps        float64 `toml:"mb_per_sec"`
}

type tomlReport struct {
	Target       string     `toml:"target"`
	Dir          string     `toml:"dir"`
	Connections  int        `toml:"connections"`
	Started      time.Time  `toml:"started"`
	TotalBytes   int64      `toml:"total_bytes"`
	TotalSeconds float64    `toml:"total_seconds"`
	TotalMBps    float64    `toml:"total_mb_per_sec"`
	Speeds       *Summary   `toml:"speeds,omitempty"`
	Files        []tomlFile `toml:"files"`
}

// MarshalTOML encodes the report for --report
func (r *Report) MarshalTOML() ([]byte, error) {
	doc := tomlReport{
		Target:       r.Target,
		Dir:          r.Dir,
		Connections:  r.Connections,
		Started:      r.Started,
		TotalBytes:   r.TotalBytes(),
		TotalSeconds: r.TotalElapsed().Seconds(),
		TotalMBps:    r.TotalSpeed(),
		Files: lo.Map(r.Results, func(res Result, _ int) tomlFile {
			return tomlFile{
				Name:        res.Name,
				SizeBytes:   res.Size,
				Connections: res.Connections,
				Seconds:     res.Elapsed.Seconds(),
				MBps:        res.Speed(),
			}
		}),
	}
	if s, err := r.Stats(); err == nil {
		doc.Speeds = &s
	}

	return toml.Marshal(doc)
}

// WriteTOML writes the report to path, creating parent directories
func (r *Report) WriteTOML(path string) error {
	data, err := r.MarshalTOML()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // report is not sensitive
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
