package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
)

const (
	releasesAPI = "https://api.github.com/repos/fastupload/tgupbench/releases/latest"

	// Relative to the user's home directory
	versionCacheFile = ".tgupbench/version_cache.json"

	cacheDuration = 24 * time.Hour
	fetchTimeout  = 3 * time.Second
)

// VersionCache stores the last release lookup
type VersionCache struct {
	LatestVersion string    `json:"latestVersion"`
	CheckedAt     time.Time `json:"checkedAt"`
}

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// checker holds everything the update check touches so tests can point it elsewhere
type checker struct {
	current   string
	url       string
	cachePath string
	client    *http.Client
	now       func() time.Time
}

func defaultChecker() *checker {
	c := &checker{
		current: Version,
		url:     releasesAPI,
		client:  &http.Client{Timeout: fetchTimeout},
		now:     time.Now,
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		c.cachePath = filepath.Join(homeDir, versionCacheFile)
	}
	return c
}

// CheckForUpdate reports the latest release and whether it is newer than this build.
// Network failures are swallowed; the benchmark should never fail because GitHub is unreachable.
func CheckForUpdate(ctx context.Context) (latestVersion string, updateAvailable bool, err error) {
	return defaultChecker().check(ctx)
}

func (c *checker) check(ctx context.Context) (string, bool, error) {
	if c.current == "dev" {
		return "", false, nil
	}

	if cached, ok := c.cached(); ok {
		return compareVersions(c.current, cached)
	}

	latest, err := c.fetch(ctx)
	if err != nil {
		//nolint:nilerr
		return "", false, nil
	}
	c.store(latest)

	return compareVersions(c.current, latest)
}

func compareVersions(currentVersion, latestVersion string) (string, bool, error) {
	current, err := version.NewVersion(strings.TrimPrefix(currentVersion, "v"))
	if err != nil {
		return latestVersion, false, fmt.Errorf("invalid current version: %w", err)
	}

	latest, err := version.NewVersion(strings.TrimPrefix(latestVersion, "v"))
	if err != nil {
		return latestVersion, false, fmt.Errorf("invalid latest version: %w", err)
	}

	return latestVersion, latest.GreaterThan(current), nil
}

func (c *checker) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", err
	}
	// GitHub rejects requests without a User-Agent
	req.Header.Set("User-Agent", "tgupbench-cli")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	//nolint:errcheck // Deferred close, error not actionable
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var release githubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release has no tag")
	}

	return release.TagName, nil
}

func (c *checker) cached() (string, bool) {
	if c.cachePath == "" {
		return "", false
	}

	data, err := os.ReadFile(c.cachePath) //nolint:gosec // Cache file in user's home directory
	if err != nil {
		return "", false
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return "", false
	}

	if c.now().Sub(cache.CheckedAt) > cacheDuration {
		return "", false
	}

	return cache.LatestVersion, true
}

func (c *checker) store(latestVersion string) {
	if c.cachePath == "" {
		return
	}

	//nolint:errcheck,gosec // Best effort directory creation, error not actionable
	os.MkdirAll(filepath.Dir(c.cachePath), 0755)

	data, err := json.Marshal(VersionCache{LatestVersion: latestVersion, CheckedAt: c.now()})
	if err != nil {
		return
	}

	//nolint:errcheck,gosec // Best effort cache write, error not actionable
	os.WriteFile(c.cachePath, data, 0644)
}

// PrintUpdateNotification prints an update notice to w when a newer release exists
func PrintUpdateNotification(ctx context.Context, w io.Writer, skipVersionCheck bool) {
	if skipVersionCheck {
		return
	}

	latestVersion, updateAvailable, err := CheckForUpdate(ctx)
	if err != nil || !updateAvailable {
		return
	}

	printNotice(w, latestVersion, Version)
}

func printNotice(w io.Writer, latestVersion, currentVersion string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "⚠️  A new version of tgupbench is available: %s (you have %s)\n", latestVersion, currentVersion)
	fmt.Fprintf(w, "Update with:\n")
	fmt.Fprintf(w, "  • Go: go install github.com/fastupload/tgupbench/cmd/tgupbench@latest\n")
	fmt.Fprintf(w, "  • Download: https://github.com/fastupload/tgupbench/releases/latest\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "To disable these notifications set TGUPBENCH_SKIP_VERSION_CHECK=true\n")
	fmt.Fprintf(w, "\n")
}
