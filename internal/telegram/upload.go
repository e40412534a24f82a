package telegram

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync/atomic"

	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"

	"github.com/fastupload/tgupbench/internal/scan"
)

const (
	// PartSize is the chunk size handed to the uploader
	PartSize = 512 * 1024

	// MaxConnections is the pool size used when the connection count is chosen per file
	MaxConnections = 20

	// bigFileThreshold is where Telegram switches to saveBigFilePart
	bigFileThreshold = 10 * 1024 * 1024

	// autoScaleSize is the file size at which auto mode reaches MaxConnections
	autoScaleSize = 100 * 1024 * 1024
)

// ProgressFunc receives cumulative uploaded bytes. It may be called from several goroutines.
type ProgressFunc func(uploaded, total int64)

// AutoConnections picks a connection count from the file size:
// MaxConnections above 100 MiB, proportionally fewer below, at least one.
func AutoConnections(size int64) int {
	if size > autoScaleSize {
		return MaxConnections
	}
	n := int(math.Ceil(float64(size) / autoScaleSize * MaxConnections))
	return max(n, 1)
}

// PartCount is the number of PartSize chunks needed for size bytes
func PartCount(size int64) int {
	return max(int((size+PartSize-1)/PartSize), 1)
}

// IsBig reports whether the file goes through the big-file upload path
func IsBig(size int64) bool {
	return size > bigFileThreshold
}

// EffectiveConnections resolves a requested connection count, where zero or less means auto
func EffectiveConnections(requested int, size int64) int {
	if requested > 0 {
		return requested
	}
	return AutoConnections(size)
}

// Uploader uploads files over a pooled set of connections
type Uploader struct {
	api  *tg.Client
	pool interface{ Close() error }
}

// Close releases the connection pool
func (u *Uploader) Close() error {
	if u.pool == nil {
		return nil
	}
	return u.pool.Close()
}

// Upload sends the file's parts and returns the handle to attach to a message
func (u *Uploader) Upload(ctx context.Context, file scan.VideoFile, connections int, onProgress ProgressFunc) (tg.InputFileClass, error) {
	f, err := os.Open(file.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Deferred close, error not actionable
	defer f.Close()

	threads := EffectiveConnections(connections, file.Size)
	slog.Debug("Uploading file",
		"file", file.Name,
		"size", file.Size,
		"threads", threads,
		"parts", PartCount(file.Size),
		"big", IsBig(file.Size),
	)

	up := uploader.NewUploader(u.api).
		WithPartSize(PartSize).
		WithThreads(threads).
		WithProgress(&progressAdapter{fn: onProgress})

	handle, err := up.Upload(ctx, uploader.NewUpload(file.Name, f, file.Size))
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return handle, nil
}

// SendVideo posts an uploaded file to peer as a streamable video document
func (u *Uploader) SendVideo(ctx context.Context, peer tg.InputPeerClass, handle tg.InputFileClass, file scan.VideoFile) error {
	randomID, err := randomInt64()
	if err != nil {
		return err
	}

	req := &tg.MessagesSendMediaRequest{
		Peer:     peer,
		Media:    videoMedia(handle, file),
		RandomID: randomID,
	}

	err = WithFloodWait(ctx, func() error {
		_, err := u.api.MessagesSendMedia(ctx, req)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", file.Name, err)
	}
	return nil
}

func videoMedia(handle tg.InputFileClass, file scan.VideoFile) *tg.InputMediaUploadedDocument {
	return &tg.InputMediaUploadedDocument{
		File:     handle,
		MimeType: file.DetectMIME(),
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeVideo{SupportsStreaming: true},
			&tg.DocumentAttributeFilename{FileName: file.Name},
		},
	}
}

func randomInt64() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to generate random id: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil //nolint:gosec // wraparound is fine for a random id
}

// progressAdapter forwards uploader progress as monotonic byte counts.
// Parts finish out of order across threads, so only increases are reported.
type progressAdapter struct {
	fn   ProgressFunc
	high atomic.Int64
}

func (p *progressAdapter) Chunk(_ context.Context, state uploader.ProgressState) error {
	if p.fn == nil {
		return nil
	}
	for {
		cur := p.high.Load()
		if state.Uploaded <= cur {
			return nil
		}
		if p.high.CompareAndSwap(cur, state.Uploaded) {
			p.fn(state.Uploaded, state.Total)
			return nil
		}
	}
}
