package artifact

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// engineZip builds an in-memory distribution archive with the usual
// top-level LanguageTool-<version> directory and a server jar.
func engineZip(t *testing.T, version string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	root := "LanguageTool-" + version + "/"
	for _, name := range []string{
		root + "languagetool-server.jar",
		root + "README.md",
		root + "org/languagetool/resource/en/hunspell/spelling.txt",
	} {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry: %v", err)
		}
		f.Write([]byte("content of " + name))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// fakeInstall creates a cached installation directory with a jar inside.
func fakeInstall(t *testing.T, cacheDir, version string) {
	t.Helper()
	dir := filepath.Join(cacheDir, "LanguageTool-"+version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "languagetool-server.jar"), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveDownloadsAndCaches(t *testing.T) {
	archive := engineZip(t, "6.4")
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/LanguageTool-6.4.zip" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive)
	}))
	defer srv.Close()

	r := &Resolver{CacheDir: t.TempDir(), ReleaseHost: srv.URL, Client: srv.Client()}

	inst, err := r.Resolve(context.Background(), "6.4")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if inst.Version.String() != "6.4" {
		t.Errorf("Version = %s", inst.Version)
	}
	if filepath.Base(inst.Jar) != "languagetool-server.jar" {
		t.Errorf("Jar = %s", inst.Jar)
	}
	if _, err := os.Stat(inst.SpellingFile()); err != nil {
		t.Errorf("spelling file missing: %v", err)
	}

	// Second resolve must reuse the cache, not re-download.
	again, err := r.Resolve(context.Background(), "6.4")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if again.Dir != inst.Dir {
		t.Errorf("second Resolve dir = %s, want %s", again.Dir, inst.Dir)
	}
	if requests != 1 {
		t.Errorf("download requests = %d, want 1", requests)
	}
}

func TestResolveLatestPicksNumericMax(t *testing.T) {
	cache := t.TempDir()
	// "5.10" sorts before "5.8" lexicographically; numeric comparison must win.
	fakeInstall(t, cache, "5.8")
	fakeInstall(t, cache, "5.10")

	r := &Resolver{CacheDir: cache}
	inst, err := r.Resolve(context.Background(), "latest")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := inst.Version.String(); got != "5.10" {
		t.Errorf("Resolve(latest) = %s, want 5.10", got)
	}
}

func TestResolveRejectsMalformedVersion(t *testing.T) {
	r := &Resolver{CacheDir: t.TempDir()}
	for _, bad := range []string{"6", "six.four", "6.4.zip", "6.7-SNAPSHOT"} {
		if _, err := r.Resolve(context.Background(), bad); err == nil {
			t.Errorf("Resolve(%q) should fail", bad)
		}
	}
}

func TestResolveMissingArchive(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	r := &Resolver{CacheDir: t.TempDir(), ReleaseHost: srv.URL, Client: srv.Client()}
	_, err := r.Resolve(context.Background(), "9.9")
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("err = %v (%T), want *DownloadError", err, err)
	}
}

func TestResolveUnusableCacheDir(t *testing.T) {
	// A regular file where the cache dir should be makes MkdirAll fail.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{CacheDir: filepath.Join(blocker, "cache")}
	_, err := r.Resolve(context.Background(), "6.4")
	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("err = %v (%T), want *PathError", err, err)
	}
}

func TestInstalledSkipsPartialDirectories(t *testing.T) {
	cache := t.TempDir()
	fakeInstall(t, cache, "6.4")
	// Directory without a jar is not a usable installation.
	if err := os.MkdirAll(filepath.Join(cache, "LanguageTool-6.5"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Unrelated directory is ignored.
	if err := os.MkdirAll(filepath.Join(cache, "not-an-engine"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{CacheDir: cache}
	installs, err := r.Installed()
	if err != nil {
		t.Fatalf("Installed: %v", err)
	}
	if len(installs) != 1 || installs[0].Version.String() != "6.4" {
		t.Errorf("Installed = %+v, want only 6.4", installs)
	}
}

func TestResolveJarDirOverride(t *testing.T) {
	jarDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(jarDir, "languagetool-server.jar"), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvJarDir, jarDir)

	r := &Resolver{CacheDir: t.TempDir()}
	inst, err := r.Resolve(context.Background(), "latest")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if inst.Dir != jarDir {
		t.Errorf("Dir = %s, want %s", inst.Dir, jarDir)
	}
}
