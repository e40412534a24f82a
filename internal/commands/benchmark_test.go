package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastupload/tgupbench/internal/scan"
	"github.com/fastupload/tgupbench/internal/telegram"
	"github.com/fastupload/tgupbench/internal/ui"
	"github.com/fastupload/tgupbench/pkg/config"
)

func loadConfig(t *testing.T, downloadDir string) *config.Config {
	t.Helper()
	isolateEnv(t)
	t.Setenv(config.EnvAPIID, "12345")
	t.Setenv(config.EnvAPIHash, "0123456789abcdef")
	t.Setenv(config.EnvTarget, "@bench_chan")
	t.Setenv(config.EnvDownloadDir, downloadDir)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	return cfg
}

func TestBenchOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    benchOptions
		wantErr string
	}{
		{name: "auto", opts: benchOptions{}},
		{name: "explicit", opts: benchOptions{connections: 8, limit: 3}},
		{name: "max", opts: benchOptions{connections: telegram.MaxConnections}},
		{name: "too many", opts: benchOptions{connections: telegram.MaxConnections + 1}, wantErr: "--connections must be between 1 and 20"},
		{name: "negative connections", opts: benchOptions{connections: -1}, wantErr: "--connections"},
		{name: "negative limit", opts: benchOptions{limit: -2}, wantErr: "--limit must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPlanBenchmark(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, dir)

	plan, err := planBenchmark(cfg, benchOptions{connections: 4})
	require.NoError(t, err)
	assert.Equal(t, dir, plan.dir)
	assert.Equal(t, telegram.TargetUsername, plan.target.Kind)
	assert.Equal(t, "bench_chan", plan.target.Username)
	assert.Nil(t, plan.proxy)
	assert.Equal(t, 12345, plan.cfg.APIID)
}

func TestPlanBenchmark_Proxy(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, dir)
	cfg.ProxyURL = "socks5://127.0.0.1:1080"

	plan, err := planBenchmark(cfg, benchOptions{})
	require.NoError(t, err)
	require.NotNil(t, plan.proxy)
	assert.Equal(t, "socks5", plan.proxy.Scheme)

	plan, err = planBenchmark(cfg, benchOptions{noProxy: true})
	require.NoError(t, err)
	assert.Nil(t, plan.proxy, "--no-proxy ignores configured proxies")
}

func TestPlanBenchmark_Errors(t *testing.T) {
	t.Run("bad flags", func(t *testing.T) {
		cfg := loadConfig(t, t.TempDir())
		_, err := planBenchmark(cfg, benchOptions{connections: 99})
		var uiErr *ui.UIError
		require.ErrorAs(t, err, &uiErr)
		assert.Equal(t, ui.ErrorTypeValidation, uiErr.Type)
	})

	t.Run("bad target", func(t *testing.T) {
		cfg := loadConfig(t, t.TempDir())
		cfg.Target = "not a chat!"
		_, err := planBenchmark(cfg, benchOptions{})
		var uiErr *ui.UIError
		require.ErrorAs(t, err, &uiErr)
		assert.Equal(t, ui.ErrorTypeConfiguration, uiErr.Type)
		assert.ErrorContains(t, err, "TELEGRAM_TARGET")
	})

	t.Run("missing directory", func(t *testing.T) {
		cfg := loadConfig(t, filepath.Join(t.TempDir(), "nope"))
		_, err := planBenchmark(cfg, benchOptions{})
		assert.ErrorContains(t, err, "download directory does not exist")
	})

	t.Run("bad proxy", func(t *testing.T) {
		cfg := loadConfig(t, t.TempDir())
		cfg.ProxyURL = "socks5://127.0.0.1"
		_, err := planBenchmark(cfg, benchOptions{})
		assert.ErrorContains(t, err, "proxy")
	})
}

func TestAsUIError(t *testing.T) {
	assert.NoError(t, asUIError(nil))

	validation := ui.NewValidationError(errors.New("bad"))
	assert.Same(t, validation, asUIError(fmt.Errorf("callback: %w", validation)))

	var uiErr *ui.UIError
	require.ErrorAs(t, asUIError(fmt.Errorf("run: %w", context.Canceled)), &uiErr)
	assert.Equal(t, ui.ErrorTypeUserCancelled, uiErr.Type)

	require.ErrorAs(t, asUIError(errors.New("AUTH_KEY_UNREGISTERED")), &uiErr)
	assert.Equal(t, ui.ErrorTypeAPI, uiErr.Type)
}

func TestReportAPIError(t *testing.T) {
	var reported []error
	orig := notifyError
	notifyError = func(_ context.Context, err error) { reported = append(reported, err) }
	t.Cleanup(func() { notifyError = orig })

	loginErr := errors.New("PHONE_CODE_INVALID")
	err := reportAPIError(context.Background(), loginErr)

	var uiErr *ui.UIError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, ui.ErrorTypeAPI, uiErr.Type)
	assert.ErrorIs(t, err, loginErr)
	assert.Equal(t, []error{loginErr}, reported)

	t.Run("cancelled context is not reported", func(t *testing.T) {
		reported = nil
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := reportAPIError(ctx, errors.New("rpc error: context canceled"))
		require.ErrorAs(t, err, &uiErr)
		assert.Equal(t, ui.ErrorTypeUserCancelled, uiErr.Type)
		assert.Empty(t, reported)
	})

	t.Run("wrapped cancellation is not reported", func(t *testing.T) {
		reported = nil
		err := reportAPIError(context.Background(), fmt.Errorf("resolve: %w", context.Canceled))
		require.ErrorAs(t, err, &uiErr)
		assert.Equal(t, ui.ErrorTypeUserCancelled, uiErr.Type)
		assert.Empty(t, reported)
	})
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	writeVideos(t, dir, "b.mkv", "a.mp4", "notes.txt", "sub/c.mp4")
	loadConfig(t, dir)

	out, err := execute(t, "scan", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Contains(t, out, "dir: "+dir)
	assert.Contains(t, out, "a.mp4")
	assert.Contains(t, out, "b.mkv")
	assert.NotContains(t, out, "notes.txt")
	assert.NotContains(t, out, "c.mp4", "subdirectories need --recursive")
	assert.Contains(t, out, "2 FILES", "footers are upper-cased")
	assert.Less(t, strings.Index(out, "a.mp4"), strings.Index(out, "b.mkv"), "files are listed in upload order")
}

func TestScanCommand_RecursiveWithLimit(t *testing.T) {
	dir := t.TempDir()
	writeVideos(t, dir, "a.mp4", "sub/c.mp4", "sub/d.webm")
	loadConfig(t, dir)

	out, err := execute(t, "scan", "--recursive", "--limit", "2", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join("sub", "c.mp4"))
	assert.NotContains(t, out, "d.webm")
	assert.Contains(t, out, "2 FILES", "footers are upper-cased")
}

func TestScanCommand_NoVideos(t *testing.T) {
	dir := t.TempDir()
	writeVideos(t, dir, "readme.md")
	loadConfig(t, dir)

	out, err := execute(t, "scan", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Contains(t, out, "no video files found in "+dir)
}

func TestWriteScanTable(t *testing.T) {
	files := []scan.VideoFile{
		{AbsPath: "/nonexistent/big.mp4", RelPath: "big.mp4", Name: "big.mp4", Ext: ".mp4", Size: 200 * 1024 * 1024},
		{AbsPath: "/nonexistent/small.mkv", RelPath: "small.mkv", Name: "small.mkv", Ext: ".mkv", Size: 5 * 1024 * 1024},
	}

	var buf bytes.Buffer
	writeScanTable(&buf, files, 0)
	out := buf.String()

	assert.Contains(t, out, "CONNS")
	assert.Contains(t, out, "400", "200 MiB in 512 KiB parts")
	assert.Contains(t, out, "x-matroska", "type falls back to the extension")
	assert.Contains(t, out, "205.00")
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	loadConfig(t, dir)
	t.Setenv(config.EnvPassword, "hunter2-long-password")

	out, err := execute(t, "config", "--describe", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Contains(t, out, "TELEGRAM_API_ID: 12345")
	assert.Contains(t, out, "TELEGRAM_API_HASH: 01****ef")
	assert.Contains(t, out, "TELEGRAM_PASSWORD: ********")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "TELEGRAM_PHONE: (not set)")
	assert.Contains(t, out, "TELEGRAM_PROXY: none")
	assert.Contains(t, out, "API hash from my.telegram.org")
	assert.NotContains(t, out, "not ready to run")
}

func TestConfigCommand_NotReady(t *testing.T) {
	isolateEnv(t)

	var buf bytes.Buffer
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, writeConfig(&buf, cfg, false))
	assert.Contains(t, buf.String(), "not ready to run: missing TELEGRAM_API_ID")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "********", mask("short"))
	assert.Equal(t, "ab****yz", mask("abcdefghijklmnopqrstuvwxyz"))
}

func TestPromptValidators(t *testing.T) {
	limit := intAtLeast(1, true)
	assert.NoError(t, limit(""))
	assert.NoError(t, limit(" 3 "))
	assert.ErrorContains(t, limit("0"), ">= 1")
	assert.ErrorContains(t, limit("abc"), "whole number")

	assert.NoError(t, connectionsValidator("16"))
	assert.ErrorContains(t, connectionsValidator(""), "required")
	assert.ErrorContains(t, connectionsValidator("0"), ">= 1")
	assert.ErrorContains(t, connectionsValidator("21"), "<= 20")
}

func TestParseOptionalInt(t *testing.T) {
	n, err := parseOptionalInt("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = parseOptionalInt(" 7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = parseOptionalInt("seven")
	assert.Error(t, err)
}
