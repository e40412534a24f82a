package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gotd/td/tgerr"
)

const (
	floodWaitAttempts = 3

	// maxFloodWait caps how long a single FLOOD_WAIT is honoured before giving up
	maxFloodWait = 5 * time.Minute
)

// WithFloodWait runs fn, sleeping and retrying when Telegram answers FLOOD_WAIT_X.
// Any other error is returned as is.
func WithFloodWait(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(floodWaitAttempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			d, ok := tgerr.AsFloodWait(err)
			return ok && d <= maxFloodWait
		}),
		retry.DelayType(floodWaitDelay),
		retry.OnRetry(func(n uint, err error) {
			d, _ := tgerr.AsFloodWait(err)
			slog.Warn("Flood wait, retrying", "attempt", n+1, "wait", d)
		}),
	)
}

func floodWaitDelay(_ uint, err error, _ *retry.Config) time.Duration {
	d, ok := tgerr.AsFloodWait(err)
	if !ok {
		return 0
	}
	return d
}
