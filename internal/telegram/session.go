// Package telegram wraps the MTProto client used for uploading: session
// storage, login, proxy dialing, target resolution and pooled uploads.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/fastupload/tgupbench/pkg/config"
)

// Options configures a Session
type Options struct {
	APIID       int
	APIHash     string
	SessionPath string
	Proxy       *config.Proxy
	Logger      *zap.Logger
}

// Session is a Telegram client bound to a session file
type Session struct {
	client *telegram.Client
	opts   Options
}

// New builds the client. Nothing connects until Run.
func New(opts Options) (*Session, error) {
	if opts.APIID <= 0 || opts.APIHash == "" {
		return nil, fmt.Errorf("api id and api hash are required")
	}
	if opts.SessionPath == "" {
		return nil, fmt.Errorf("session path is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if dir := filepath.Dir(opts.SessionPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	dial, err := NewDialer(opts.Proxy)
	if err != nil {
		return nil, err
	}

	client := telegram.NewClient(opts.APIID, opts.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: opts.SessionPath},
		Resolver: dcs.Plain(dcs.PlainOptions{
			Dial:       dcs.DialFunc(dial),
			PreferIPv6: false,
		}),
		Logger: opts.Logger,
	})

	return &Session{client: client, opts: opts}, nil
}

// Run connects and calls fn while the connection is up
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	slog.Debug("Connecting to Telegram", "session", s.opts.SessionPath, "proxy", s.opts.Proxy != nil)
	return s.client.Run(ctx, fn)
}

// API returns the raw method client. Only valid inside Run.
func (s *Session) API() *tg.Client {
	return s.client.API()
}

// Login signs in when the stored session is not authorised yet
func (s *Session) Login(ctx context.Context, authenticator auth.UserAuthenticator) error {
	status, err := s.client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}
	if status.Authorized {
		slog.Debug("Session already authorized")
		return nil
	}

	slog.Info("Session not authorized, starting login")
	flow := auth.NewFlow(authenticator, auth.SendCodeOptions{})
	if err := s.client.Auth().IfNecessary(ctx, flow); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// Uploader opens a pool of connections for uploads. Zero or less means auto,
// which sizes the pool for the largest automatic choice.
func (s *Session) Uploader(connections int) (*Uploader, error) {
	size := connections
	if size <= 0 {
		size = MaxConnections
	}

	pool, err := s.client.Pool(int64(size))
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}
	slog.Debug("Opened connection pool", "size", size)

	return &Uploader{api: tg.NewClient(pool), pool: pool}, nil
}
