// Package bugsnag reports crashes and unexpected upload failures.
// Reporting is off unless an API key is compiled in, and users can opt out
// with TGUPBENCH_TELEMETRY_DISABLED.
package bugsnag

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/bugsnag/bugsnag-go/v2"

	"github.com/fastupload/tgupbench/internal/version"
	"github.com/fastupload/tgupbench/pkg/config"
)

// Build-time variables that can be set via ldflags
// Example: go build -ldflags "-X github.com/fastupload/tgupbench/pkg/bugsnag.BugsnagAPIKey=your-key"
var (
	// BugsnagAPIKey is the API key for error reporting, injected at compile time.
	// If not set during build, error reporting will be disabled.
	BugsnagAPIKey = ""

	// DefaultReleaseStage defines the default environment for error reporting.
	DefaultReleaseStage = "prod"
)

var (
	mu          sync.Mutex
	initialized bool
	enabled     bool
)

// Initialize configures the Bugsnag client once the configuration is known.
// Calling it again is a no-op.
func Initialize(cfg *config.Config) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}
	initialized = true

	if cfg != nil && !cfg.IsTelemetryEnabled() {
		return nil
	}

	apiKey := BugsnagAPIKey
	if envKey := os.Getenv("BUGSNAG_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil
	}

	releaseStage := os.Getenv("TGUPBENCH_ENV")
	if releaseStage == "" {
		releaseStage = DefaultReleaseStage
	}

	bugsnag.Configure(bugsnag.Configuration{
		APIKey:              apiKey,
		ReleaseStage:        releaseStage,
		AppVersion:          version.Version,
		AppType:             "cli",
		ProjectPackages:     []string{"main", "github.com/fastupload/tgupbench"},
		NotifyReleaseStages: []string{"prod", "dev", "local"},
		PanicHandler:        func() {},
		Synchronous:         false,
		AutoCaptureSessions: false,
	})

	addSystemMetadata()

	enabled = true
	return nil
}

// IsEnabled returns whether error reporting is active
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func addSystemMetadata() {
	systemInfo := bugsnag.MetaData{
		"system": {
			"os_type":    runtime.GOOS,
			"os_arch":    runtime.GOARCH,
			"go_version": runtime.Version(),
			"num_cpu":    runtime.NumCPU(),
		},
	}

	bugsnag.OnBeforeNotify(func(event *bugsnag.Event, _ *bugsnag.Configuration) error {
		for tab, data := range systemInfo {
			for key, value := range data {
				event.MetaData.Add(tab, key, value)
			}
		}
		return nil
	})
}

// NotifyError reports an unexpected failure
func NotifyError(ctx context.Context, err error) {
	Notify(ctx, err, bugsnag.SeverityError)
}

// Notify reports an error with the given severity.
// Cancellations are never reported.
func Notify(ctx context.Context, err error, severity interface{}) {
	if !IsEnabled() || err == nil || IsUserCancellation(err) {
		return
	}

	_ = bugsnag.Notify(err, ctx, severity)
}

// NotifyWithMetadata reports an error with extra context about the run
func NotifyWithMetadata(ctx context.Context, err error, severity interface{}, metadata bugsnag.MetaData) {
	if !IsEnabled() || err == nil || IsUserCancellation(err) {
		return
	}

	_ = bugsnag.Notify(err, ctx, severity, metadata)
}

// NotifyOnPanic reports a panic and re-panics. Use with defer at the top of main.
func NotifyOnPanic(ctx context.Context) {
	if r := recover(); r != nil {
		var err error
		switch x := r.(type) {
		case string:
			err = fmt.Errorf("panic: %s", x)
		case error:
			err = fmt.Errorf("panic: %w", x)
		default:
			err = fmt.Errorf("panic: %v", r)
		}

		NotifyError(ctx, err)

		panic(r)
	}
}

// SetRunContext attaches the benchmark settings to every report.
// Only the kind of target is recorded, never the target itself.
func SetRunContext(targetKind string, connections int, proxied bool) {
	if !IsEnabled() {
		return
	}

	bugsnag.OnBeforeNotify(func(event *bugsnag.Event, _ *bugsnag.Configuration) error {
		event.MetaData.Add("run", "target_kind", targetKind)
		event.MetaData.Add("run", "connections", connections)
		event.MetaData.Add("run", "proxied", proxied)
		return nil
	})
}

// SetCommandContext records which command triggered an error
func SetCommandContext(command string, args []string) {
	if !IsEnabled() {
		return
	}

	bugsnag.OnBeforeNotify(func(event *bugsnag.Event, _ *bugsnag.Configuration) error {
		event.MetaData.Add("command", "name", command)
		if len(args) > 0 {
			event.MetaData.Add("command", "args", strings.Join(args, " "))
		}
		return nil
	})
}

// IsUserCancellation identifies errors from user-initiated cancellations
func IsUserCancellation(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") ||
		strings.Contains(errStr, "operation cancelled") ||
		strings.Contains(errStr, "cancelled by user")
}
