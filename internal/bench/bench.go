// Package bench holds the throughput arithmetic behind the upload benchmark:
// per-file results, the throttled progress meter, and the run report.
package bench

import (
	"fmt"
	"time"
)

// MB is the unit all speeds are reported in (MiB, matching the progress output)
const MB = 1024 * 1024

// DefaultMinInterval is how often progress is printed at most
const DefaultMinInterval = 500 * time.Millisecond

// Speed returns MB/s for bytes transferred over d. Zero when d is not positive.
func Speed(bytes int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(bytes) / MB / d.Seconds()
}

// ToMB converts bytes to MB
func ToMB(bytes int64) float64 {
	return float64(bytes) / MB
}

// Sample is one progress observation
type Sample struct {
	Current int64
	Total   int64
	Percent float64
	Inst    float64 // MB/s since the previous sample
	Avg     float64 // MB/s since the meter started
	Done    bool
}

// Format renders the sample the way the progress line prints it
func (s Sample) Format(label string) string {
	return fmt.Sprintf("%s %8.2f/%8.2f MB %6.2f%% inst %6.2f MB/s avg %6.2f MB/s",
		label, ToMB(s.Current), ToMB(s.Total), s.Percent, s.Inst, s.Avg)
}

// Meter throttles progress updates and derives instantaneous and average speed.
// It is not safe for concurrent use; feed it from a single goroutine.
type Meter struct {
	minInterval time.Duration
	now         func() time.Time

	start     time.Time
	last      time.Time
	lastBytes int64
}

// NewMeter starts a meter. Samples are emitted at most every minInterval,
// except the final one (current == total), which is always emitted.
func NewMeter(minInterval time.Duration) *Meter {
	return newMeterAt(minInterval, time.Now)
}

func newMeterAt(minInterval time.Duration, now func() time.Time) *Meter {
	start := now()
	return &Meter{
		minInterval: minInterval,
		now:         now,
		start:       start,
		last:        start,
	}
}

// Observe records progress. The second return value is false when the update
// is throttled and nothing should be printed.
func (m *Meter) Observe(current, total int64) (Sample, bool) {
	now := m.now()
	done := current == total
	if now.Sub(m.last) < m.minInterval && !done {
		return Sample{}, false
	}

	s := Sample{
		Current: current,
		Total:   total,
		Inst:    Speed(current-m.lastBytes, now.Sub(m.last)),
		Avg:     Speed(current, now.Sub(m.start)),
		Done:    done,
	}
	if total > 0 {
		s.Percent = float64(current) / float64(total) * 100
	}

	m.last = now
	m.lastBytes = current

	return s, true
}

// Elapsed returns the time since the meter started
func (m *Meter) Elapsed() time.Duration {
	return m.now().Sub(m.start)
}

// Result is the outcome of uploading and sending one file
type Result struct {
	Name        string
	Size        int64
	Elapsed     time.Duration // upload plus send
	Connections int
}

// Speed returns the file's average MB/s
func (r Result) Speed() float64 {
	return Speed(r.Size, r.Elapsed)
}
