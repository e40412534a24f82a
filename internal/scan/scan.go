package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

// videoMIMETypes maps the extensions picked up by ScanVideos to the MIME type sent
// when content sniffing cannot tell.
var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".m4v":  "video/x-m4v",
	".ts":   "video/mp2t",
}

const (
	defaultMIME = "video/mp4"

	// labelRunes is how much of a file name fits in a progress line
	labelRunes = 60
)

// Options controls which files ScanVideos returns
type Options struct {
	// Recursive descends into subdirectories (glob **/*) instead of only the top level (glob *)
	Recursive bool

	// Limit caps the number of files returned after sorting. Zero or negative means no limit.
	Limit int
}

// VideoFile is a video found on disk. Scanning only stats files; nothing is read.
type VideoFile struct {
	AbsPath string
	RelPath string
	Name    string
	Ext     string // lower-cased, e.g. ".mp4"
	Size    int64
}

// Label returns the tail of the file name, short enough for a progress line
func (v VideoFile) Label() string {
	runes := []rune(v.Name)
	if len(runes) <= labelRunes {
		return v.Name
	}
	return string(runes[len(runes)-labelRunes:])
}

// DetectMIME sniffs the file header, falling back to the extension when the
// content is not recognised as video.
func (v VideoFile) DetectMIME() string {
	if mtype, err := mimetype.DetectFile(v.AbsPath); err == nil && strings.HasPrefix(mtype.String(), "video/") {
		return mtype.String()
	}
	if mime, ok := videoMIMETypes[v.Ext]; ok {
		return mime
	}
	return defaultMIME
}

// IsVideoExt reports whether ext (with the leading dot) is a recognised video extension
func IsVideoExt(ext string) bool {
	_, ok := videoMIMETypes[strings.ToLower(ext)]
	return ok
}

// Extensions returns the recognised video extensions, sorted
func Extensions() []string {
	exts := lo.Keys(videoMIMETypes)
	sort.Strings(exts)
	return exts
}

// ScanVideos lists video files under root.
//
// Only regular files (symlinks are followed) with a recognised extension are
// returned, sorted case-insensitively by path so repeated runs upload in the
// same order.
func ScanVideos(root string, opts Options) ([]VideoFile, error) {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory does not exist: %s", root)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	pattern := "*"
	if opts.Recursive {
		pattern = "**/*"
	}

	fsys := os.DirFS(root)
	files := make([]VideoFile, 0, 64)
	err = doublestar.GlobWalk(fsys, pattern, func(path string, d fs.DirEntry) error {
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !IsVideoExt(ext) {
			return nil
		}

		// fs.Stat follows symlinks, DirEntry.Info does not
		fi, err := fs.Stat(fsys, path)
		if err != nil {
			slog.Debug("Skipping unreadable file", "path", path, "error", err)
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		relPath := filepath.FromSlash(path)
		files = append(files, VideoFile{
			AbsPath: filepath.Join(root, relPath),
			RelPath: relPath,
			Name:    d.Name(),
			Ext:     ext,
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return strings.ToLower(files[i].AbsPath) < strings.ToLower(files[j].AbsPath)
	})

	if opts.Limit > 0 && len(files) > opts.Limit {
		files = files[:opts.Limit]
	}

	slog.Debug("Scanned directory", "root", root, "recursive", opts.Recursive, "limit", opts.Limit, "files", len(files))

	return files, nil
}

// TotalSize returns the combined size of files in bytes
func TotalSize(files []VideoFile) int64 {
	return lo.SumBy(files, func(f VideoFile) int64 { return f.Size })
}
