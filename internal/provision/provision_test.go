package provision

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"faucet-agent/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("driver binary bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()

	path, err := Download(context.Background(), zaptest.NewLogger(t), server.URL, dir, "driver.bin")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "driver binary bytes", string(content))
}

func TestDownloadSizeMismatchRemovesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more bytes than are sent; the body ends short.
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("short"))
	}))
	defer server.Close()

	dir := t.TempDir()

	_, err := Download(context.Background(), zaptest.NewLogger(t), server.URL, dir, "driver.bin")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "driver.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Download(context.Background(), zaptest.NewLogger(t), server.URL, t.TempDir(), "driver.bin")
	assert.Error(t, err)
}

func buildZip(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := writer.Create(name)
		require.NoError(t, err)

		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	path := filepath.Join(dir, "archive.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	return path
}

func TestUnpackZip(t *testing.T) {
	dir := t.TempDir()
	path := buildZip(t, dir, map[string]string{
		"chromedriver":         "binary",
		"LICENSE.chromedriver": "license text",
	})

	require.NoError(t, Unpack(zaptest.NewLogger(t), path, dir))

	content, err := os.ReadFile(filepath.Join(dir, "chromedriver"))
	require.NoError(t, err)
	assert.Equal(t, "binary", string(content))

	// The archive is consumed by a successful unpack.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestUnpackRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	path := buildZip(t, dir, map[string]string{
		"../escape": "nope",
	})

	assert.Error(t, Unpack(zaptest.NewLogger(t), path, filepath.Join(dir, "out")))
}

func TestUnpackUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.rar")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.Error(t, Unpack(zaptest.NewLogger(t), path, dir))
}

func TestExecutableVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}

	dir := t.TempDir()
	script := "#!/bin/sh\necho 'geckodriver 0.34.0 (abcdef 2024-01-01)'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geckodriver"), []byte(script), 0o755))

	driver, err := NewDriverExecutable(zaptest.NewLogger(t), "geckodriver", dir)
	require.NoError(t, err)

	if _, lookErr := os.Stat(driver.Path()); lookErr != nil {
		t.Skipf("fixture not resolvable: %v", lookErr)
	}

	assert.Equal(t, "0.34.0", driver.Version())
	assert.Equal(t, entity.Version{Minor: 34}, driver.VersionInfo())
}

func TestExecutableMissing(t *testing.T) {
	driver, err := NewDriverExecutable(zaptest.NewLogger(t), "no-such-driver-binary", t.TempDir())
	require.NoError(t, err)

	assert.False(t, driver.Exists())
	assert.Empty(t, driver.Version())
	assert.True(t, driver.VersionInfo().IsZero())
}

func TestChromeDriverUpdater(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix chmod semantics")
	}

	dir := t.TempDir()

	var archive bytes.Buffer

	writer := zip.NewWriter(&archive)
	f, err := writer.Create("chromedriver")
	require.NoError(t, err)
	_, err = f.Write([]byte("#!/bin/sh\necho 'ChromeDriver 114.0.5735.90'\n"))
	require.NoError(t, err)
	lic, err := writer.Create("LICENSE.chromedriver")
	require.NoError(t, err)
	_, err = lic.Write([]byte("license"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	mux := http.NewServeMux()
	mux.HandleFunc("/LATEST_RELEASE_114.0.5735", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("114.0.5735.90"))
	})
	mux.HandleFunc(fmt.Sprintf("/114.0.5735.90/chromedriver_%s.zip", chromePlatform()),
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(archive.Bytes())
		})

	server := httptest.NewServer(mux)
	defer server.Close()

	driver, err := NewDriverExecutable(zaptest.NewLogger(t), "chromedriver", dir)
	require.NoError(t, err)

	if driver.Exists() {
		t.Skip("a system chromedriver would preempt the update")
	}

	updater := NewChromeDriverUpdater(zaptest.NewLogger(t), driver, server.URL)

	require.NoError(t, updater.Update(context.Background(), entity.ParseVersion("114.0.5735.12")))

	content, err := os.ReadFile(filepath.Join(dir, "chromedriver"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "114.0.5735.90")

	_, err = os.Stat(filepath.Join(dir, "LICENSE.chromedriver"))
	assert.True(t, os.IsNotExist(err))
}

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	writer := tar.NewWriter(gz)

	for name, content := range files {
		require.NoError(t, writer.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o755,
			Size: int64(len(content)),
		}))

		_, err := writer.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

func TestGeckoDriverUpdater(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix chmod semantics")
	}

	dir := t.TempDir()

	archive := buildTarGz(t, map[string]string{
		"geckodriver": "#!/bin/sh\necho 'geckodriver 0.34.0'\n",
	})

	goos, ext := geckoPlatform()

	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tag/v0.34.0", http.StatusFound)
	})
	mux.HandleFunc("/tag/v0.34.0", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("release page"))
	})
	mux.HandleFunc(fmt.Sprintf("/download/v0.34.0/geckodriver-v0.34.0-%s.%s", goos, ext),
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(archive)
		})

	server := httptest.NewServer(mux)
	defer server.Close()

	driver, err := NewDriverExecutable(zaptest.NewLogger(t), "geckodriver", dir)
	require.NoError(t, err)

	if driver.Exists() {
		t.Skip("a system geckodriver would preempt the update")
	}

	updater := NewGeckoDriverUpdater(zaptest.NewLogger(t), driver, server.URL)

	require.NoError(t, updater.Update(context.Background(), entity.Version{}))

	content, err := os.ReadFile(filepath.Join(dir, "geckodriver"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "0.34.0")
}

func TestChromeDriverUpdaterUpToDate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}

	dir := t.TempDir()
	script := "#!/bin/sh\necho 'ChromeDriver 114.0.5735.90'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chromedriver"), []byte(script), 0o755))

	requests := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/LATEST_RELEASE", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("114.0.5735.90"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	driver, err := NewDriverExecutable(zaptest.NewLogger(t), "chromedriver", dir)
	require.NoError(t, err)

	if driver.Version() != "114.0.5735.90" {
		t.Skip("fixture version not readable")
	}

	updater := NewChromeDriverUpdater(zaptest.NewLogger(t), driver, server.URL)

	require.NoError(t, updater.Update(context.Background(), entity.Version{}))
	assert.Equal(t, 0, requests)
}
