package ui

import (
	"fmt"
)

// ColorizeSpeed colors a throughput figure against a reference, usually the
// median of the run: at or above it green, under half of it red, yellow between.
func ColorizeSpeed(speed, reference float64) string {
	text := fmt.Sprintf("%.2f MB/s", speed)

	switch {
	case reference <= 0:
		return BoldStyle.Render(text)
	case speed >= reference:
		return GreenStyle.Render(text)
	case speed < reference/2:
		return RedStyle.Render(text)
	default:
		return YellowStyle.Render(text)
	}
}

// FormatError formats an error message with styling
// NOTE: Adds a new line manually. Use strings.TrimSpace if you want to strip it.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	// The last line is overwritten when bubbletea exits in some terminals,
	// see https://github.com/charmbracelet/bubbletea/issues/304
	return ErrorStyle.Render(fmt.Sprintf("✗ Error: %s", err.Error())) + "\n"
}
