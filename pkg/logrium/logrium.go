package logrium

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sink remembers where slog was pointed so the Telegram client's zap logger can share it
var sink struct {
	mu     sync.Mutex
	output io.Writer
	level  slog.Level
}

// Setup configures the global slog logger based on display options and log level.
// It automatically handles TTY detection and respects shell redirection (2>).
//
// Logging behavior:
//   - isInteractive=true + stderr is terminal: Logs to timestamped file in temp dir
//   - isInteractive=true + stderr redirected: Logs to stderr (respects user's 2> redirect)
//   - isInteractive=false: Logs to stderr
//
// Returns the fully qualified log file path (empty string if logging to stderr).
func Setup(isInteractive bool, level slog.Level) (string, error) {
	var output io.Writer
	var logFilePath string

	// A log file keeps the progress view intact while still honouring 2> redirects.
	if isInteractive && isatty.IsTerminal(os.Stderr.Fd()) {
		timestamp := time.Now().Format("2006-01-02T15-04-05")
		logFileName := fmt.Sprintf("tgupbench-debug-%s.log", timestamp)
		logFilePath = filepath.Join(os.TempDir(), logFileName)

		logFile, err := os.OpenFile(logFilePath, //nolint:gosec // Log file in temp directory
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return "", err
		}

		output = logFile
	} else {
		output = os.Stderr
		logFilePath = ""
	}

	setDefault(output, level)

	return logFilePath, nil
}

// Disable configures slog to discard all log output.
// This is used when --verbose is not set to completely disable logging.
func Disable() {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError + 1, // Set level higher than any log level to discard everything
	})
	slog.SetDefault(slog.New(handler))

	sink.mu.Lock()
	sink.output = nil
	sink.mu.Unlock()
}

// Zap returns a zap logger writing to the same destination and level as slog.
// The Telegram client only accepts zap, so this keeps its MTProto chatter in the
// same debug log as ours. Returns a no-op logger when logging is disabled.
func Zap() *zap.Logger {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	if sink.output == nil {
		return zap.NewNop()
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(sink.output),
		zapLevel(sink.level),
	)

	return zap.New(core).Named("telegram")
}

// zapLevel maps slog levels onto zap levels
func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func setDefault(output io.Writer, level slog.Level) {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	sink.mu.Lock()
	sink.output = output
	sink.level = level
	sink.mu.Unlock()
}

// SetupForTesting configures slog to write to a custom writer for testing.
// The original logger is automatically restored when the test completes.
//
// Example usage:
//
//	func TestMyFunction(t *testing.T) {
//	    var buf bytes.Buffer
//	    logrium.SetupForTesting(t, &buf, slog.LevelDebug)
//
//	    myFunction()
//
//	    assert.Contains(t, buf.String(), "expected log message")
//	}
func SetupForTesting(t *testing.T, w io.Writer, level slog.Level) {
	originalLogger := slog.Default()

	sink.mu.Lock()
	originalOutput, originalLevel := sink.output, sink.level
	sink.mu.Unlock()

	setDefault(w, level)

	t.Cleanup(func() {
		slog.SetDefault(originalLogger)

		sink.mu.Lock()
		sink.output, sink.level = originalOutput, originalLevel
		sink.mu.Unlock()
	})
}
