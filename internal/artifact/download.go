package artifact

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kovanov/redline/internal/ltversion"
)

// download fetches the archive for version, unpacks it next to the cache
// entry and renames it into place. The rename makes concurrent resolver
// invocations from separate processes safe: whoever renames first wins, the
// loser discards its copy.
func (r *Resolver) download(ctx context.Context, version ltversion.Version, snapshot bool) (Installation, error) {
	var url string
	if snapshot {
		url = strings.TrimSuffix(r.SnapshotHost, "/") + "/LanguageTool-latest-snapshot.zip"
	} else {
		url = strings.TrimSuffix(r.ReleaseHost, "/") + "/LanguageTool-" + version.String() + ".zip"
	}

	r.progress("downloading LanguageTool %s", version)

	archive, err := r.fetch(ctx, url)
	if err != nil {
		return Installation{}, err
	}
	defer os.Remove(archive)

	target := filepath.Join(r.CacheDir, dirPrefix+version.String())
	if err := unpack(archive, target); err != nil {
		return Installation{}, err
	}
	r.progress("unpacked LanguageTool %s to %s", version, target)

	jar, err := findJar(target)
	if err != nil {
		return Installation{}, err
	}
	return Installation{Version: version, Dir: target, Jar: jar}, nil
}

// fetch downloads url to a temp file inside the cache dir and verifies the
// transfer completed.
func (r *Resolver) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &DownloadError{URL: url, Err: fmt.Errorf(
			"unexpected status %d; the requested version may not exist", resp.StatusCode)}
	}

	tmp, err := os.CreateTemp(r.CacheDir, ".download-*.zip")
	if err != nil {
		return "", &PathError{Path: r.CacheDir, Err: err}
	}

	written, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", &DownloadError{URL: url, Err: err}
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		os.Remove(tmp.Name())
		return "", &DownloadError{URL: url, Err: fmt.Errorf(
			"short download: got %d of %d bytes", written, resp.ContentLength)}
	}
	return tmp.Name(), nil
}

// unpack extracts the archive into a staging directory and atomically
// renames the distribution root to target.
func unpack(archive, target string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return &DownloadError{URL: archive, Err: fmt.Errorf("opening archive: %w", err)}
	}
	defer zr.Close()

	cacheDir := filepath.Dir(target)
	staging, err := os.MkdirTemp(cacheDir, ".extract-*")
	if err != nil {
		return &PathError{Path: cacheDir, Err: err}
	}
	defer os.RemoveAll(staging)

	for _, f := range zr.File {
		if err := extractFile(f, staging); err != nil {
			return err
		}
	}

	// Distributions carry a single top-level LanguageTool-x.y directory;
	// rename that root into place. A bare archive renames the staging dir
	// itself.
	root := staging
	if prefix := commonRoot(zr.File); prefix != "" {
		root = filepath.Join(staging, prefix)
	}
	if err := os.Rename(root, target); err != nil {
		if _, statErr := os.Stat(target); statErr == nil {
			// A concurrent resolver finished first; use its copy.
			return nil
		}
		return &PathError{Path: target, Err: err}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	// Reject entries that would escape the staging directory.
	path := filepath.Join(dest, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
		return &DownloadError{URL: f.Name, Err: fmt.Errorf("archive entry escapes destination")}
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &PathError{Path: filepath.Dir(path), Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &DownloadError{URL: f.Name, Err: err}
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return &PathError{Path: path, Err: err}
	}
	_, err = io.Copy(out, rc)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return &PathError{Path: path, Err: err}
	}
	return nil
}

// commonRoot returns the single top-level directory shared by every archive
// entry, or "" when there is none.
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		name := strings.TrimPrefix(f.Name, "/")
		idx := strings.Index(name, "/")
		if idx < 0 {
			return ""
		}
		top := name[:idx]
		if root == "" {
			root = top
		} else if root != top {
			return ""
		}
	}
	return root
}

func (r *Resolver) progress(format string, args ...any) {
	if r.Progress != nil {
		r.Progress(format, args...)
	}
}
