package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
}

func names(files []VideoFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, filepath.ToSlash(f.RelPath))
	}
	return out
}

func TestScanVideos_TopLevelOnly(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.mp4"), 10)
	touch(t, filepath.Join(root, "A.MKV"), 20)
	touch(t, filepath.Join(root, "notes.txt"), 5)
	touch(t, filepath.Join(root, "season1", "ep1.mp4"), 30)

	got, err := ScanVideos(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"A.MKV", "b.mp4"}, names(got))
	assert.Equal(t, ".mkv", got[0].Ext)
	assert.Equal(t, int64(20), got[0].Size)
	assert.Equal(t, filepath.Join(root, "A.MKV"), got[0].AbsPath)
}

func TestScanVideos_Recursive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "z.webm"), 1)
	touch(t, filepath.Join(root, "season1", "ep1.ts"), 1)
	touch(t, filepath.Join(root, "season1", "deep", "ep2.m4v"), 1)
	touch(t, filepath.Join(root, "season1", "cover.jpg"), 1)

	got, err := ScanVideos(root, Options{Recursive: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"season1/deep/ep2.m4v", "season1/ep1.ts", "z.webm"}, names(got))
}

func TestScanVideos_AllExtensions(t *testing.T) {
	root := t.TempDir()
	for _, ext := range Extensions() {
		touch(t, filepath.Join(root, "clip"+strings.ToUpper(ext)), 1)
	}

	got, err := ScanVideos(root, Options{})
	require.NoError(t, err)
	assert.Len(t, got, 8)
}

func TestScanVideos_Limit(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"c.mp4", "a.mp4", "b.mp4"} {
		touch(t, filepath.Join(root, name), 1)
	}

	got, err := ScanVideos(root, Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, names(got))

	all, err := ScanVideos(root, Options{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestScanVideos_SkipsDirectoriesWithVideoNames(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "folder.mp4"), 0o755))
	touch(t, filepath.Join(root, "real.mp4"), 1)

	got, err := ScanVideos(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.mp4"}, names(got))
}

func TestScanVideos_FollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "outside.mp4")
	touch(t, target, 7)
	require.NoError(t, os.Symlink(target, filepath.Join(root, "linked.mp4")))

	got, err := ScanVideos(root, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].Size)
}

func TestScanVideos_Errors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.mp4")
	touch(t, file, 1)

	_, err := ScanVideos(filepath.Join(root, "missing"), Options{})
	assert.ErrorContains(t, err, "directory does not exist")

	_, err = ScanVideos(file, Options{})
	assert.ErrorContains(t, err, "not a directory")
}

func TestScanVideos_Empty(t *testing.T) {
	got, err := ScanVideos(t.TempDir(), Options{Recursive: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVideoFile_Label(t *testing.T) {
	short := VideoFile{Name: "clip.mp4"}
	assert.Equal(t, "clip.mp4", short.Label())

	long := VideoFile{Name: strings.Repeat("视", 70) + ".mp4"}
	label := long.Label()
	assert.Equal(t, 60, len([]rune(label)))
	assert.True(t, strings.HasSuffix(label, ".mp4"))
}

func TestVideoFile_DetectMIME(t *testing.T) {
	root := t.TempDir()

	// Empty content cannot be sniffed, so the extension decides
	mkv := filepath.Join(root, "a.mkv")
	touch(t, mkv, 0)
	assert.Equal(t, "video/x-matroska", VideoFile{AbsPath: mkv, Ext: ".mkv"}.DetectMIME())

	// ftyp box header is recognised as MP4 regardless of extension
	mp4Header := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2'}
	sniffed := filepath.Join(root, "b.ts")
	require.NoError(t, os.WriteFile(sniffed, mp4Header, 0o600))
	assert.Equal(t, "video/mp4", VideoFile{AbsPath: sniffed, Ext: ".ts"}.DetectMIME())

	assert.Equal(t, defaultMIME, VideoFile{AbsPath: filepath.Join(root, "missing"), Ext: ".xyz"}.DetectMIME())
}

func TestTotalSize(t *testing.T) {
	files := []VideoFile{{Size: 10}, {Size: 32}}
	assert.Equal(t, int64(42), TotalSize(files))
	assert.Equal(t, int64(0), TotalSize(nil))
}
