package telegram

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/fastupload/tgupbench/internal/scan"
)

// Client is what the upload view needs from Telegram
type Client interface {
	Upload(ctx context.Context, file scan.VideoFile, connections int, onProgress ProgressFunc) (tg.InputFileClass, error)
	SendVideo(ctx context.Context, peer tg.InputPeerClass, handle tg.InputFileClass, file scan.VideoFile) error
}

var _ Client = (*Uploader)(nil)
