// Package artifact locates, downloads and caches versioned copies of the
// LanguageTool engine distribution.
package artifact

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kovanov/redline/internal/ltversion"
)

// Environment overrides.
const (
	EnvCacheDir     = "REDLINE_CACHE_DIR"      // engine cache directory
	EnvDownloadHost = "REDLINE_DOWNLOAD_HOST"  // archive host for both channels
	EnvJarDir       = "REDLINE_JAR_DIR"        // pre-installed jar directory, skips download
)

const (
	defaultReleaseHost  = "https://www.languagetool.org/download/"
	defaultSnapshotHost = "https://internal1.languagetool.org/snapshots/"

	// SnapshotVersion is the engine version "latest" currently resolves to.
	SnapshotVersion = "6.7-SNAPSHOT"

	dirPrefix = "LanguageTool-"
)

// jarNames are the launchable jar candidates inside an unpacked
// distribution, oldest layouts last.
var jarNames = []string{
	"languagetool-server.jar",
	"languagetool-standalone*.jar",
	"LanguageTool.jar",
	"LanguageTool.uno.jar",
}

// Installation is a located, runnable copy of the engine.
type Installation struct {
	Version ltversion.Version
	Dir     string // unpacked distribution root
	Jar     string // launchable jar path
}

// SpellingFile returns the path of the installation's custom word list.
func (i Installation) SpellingFile() string {
	return filepath.Join(i.Dir, "org", "languagetool", "resource", "en", "hunspell", "spelling.txt")
}

// PathError reports an unusable cache or installation path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string { return fmt.Sprintf("path %s: %v", e.Path, e.Err) }
func (e *PathError) Unwrap() error { return e.Err }

// DownloadError reports a failed archive download.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("downloading %s: %v", e.URL, e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

// Resolver finds or fetches engine installations. The zero value is not
// usable; construct with NewResolver.
type Resolver struct {
	CacheDir     string
	ReleaseHost  string
	SnapshotHost string
	Client       *http.Client
	Progress     func(format string, args ...any) // optional download progress sink
}

// NewResolver builds a Resolver from defaults and environment overrides.
func NewResolver() *Resolver {
	r := &Resolver{
		CacheDir:     defaultCacheDir(),
		ReleaseHost:  defaultReleaseHost,
		SnapshotHost: defaultSnapshotHost,
		Client:       http.DefaultClient,
	}
	if host := os.Getenv(EnvDownloadHost); host != "" {
		r.ReleaseHost = host
		r.SnapshotHost = host
	}
	return r
}

func defaultCacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "redline")
	}
	return filepath.Join(home, ".cache", "redline")
}

// Resolve returns an installation for the requested version, downloading it
// on a cache miss. version is "latest" (or empty) for the newest available,
// or a release number like "6.4". Repeated calls with the same version reuse
// the cached copy.
func (r *Resolver) Resolve(ctx context.Context, version string) (Installation, error) {
	if jarDir := os.Getenv(EnvJarDir); jarDir != "" {
		jar, err := findJar(jarDir)
		if err != nil {
			return Installation{}, err
		}
		return Installation{Dir: jarDir, Jar: jar}, nil
	}

	latest := version == "" || version == "latest"
	var want ltversion.Version
	if !latest {
		v, err := ltversion.Parse(version)
		if err != nil || v.Snapshot || len(v.Parts) < 2 {
			return Installation{}, fmt.Errorf(
				"engine versions look like '6.4' (or 'latest' for the newest snapshot); got %q", version)
		}
		want = v
	}

	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		return Installation{}, &PathError{Path: r.CacheDir, Err: err}
	}

	cached, err := r.Installed()
	if err != nil {
		return Installation{}, err
	}

	if latest {
		if len(cached) > 0 {
			// Newest cached version wins; Installed returns ascending order.
			return cached[len(cached)-1], nil
		}
		return r.download(ctx, ltversion.MustParse(SnapshotVersion), true)
	}

	for _, inst := range cached {
		if inst.Version.Compare(want) == 0 {
			return inst, nil
		}
	}
	return r.download(ctx, want, false)
}

// Installed lists cached installations in ascending version order.
func (r *Resolver) Installed() ([]Installation, error) {
	entries, err := os.ReadDir(r.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PathError{Path: r.CacheDir, Err: err}
	}

	var installs []Installation
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		v, err := ltversion.Parse(strings.TrimPrefix(entry.Name(), dirPrefix))
		if err != nil {
			continue
		}
		dir := filepath.Join(r.CacheDir, entry.Name())
		jar, err := findJar(dir)
		if err != nil {
			// Partial or foreign directory; not a usable installation.
			continue
		}
		installs = append(installs, Installation{Version: v, Dir: dir, Jar: jar})
	}

	sort.Slice(installs, func(i, j int) bool {
		return installs[i].Version.Less(installs[j].Version)
	})
	return installs, nil
}

// findJar locates the launchable jar inside dir.
func findJar(dir string) (string, error) {
	for _, name := range jarNames {
		hits, err := filepath.Glob(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		for _, hit := range hits {
			if info, err := os.Stat(hit); err == nil && !info.IsDir() {
				return hit, nil
			}
		}
	}
	return "", &PathError{Path: dir, Err: fmt.Errorf("no engine jar found")}
}
