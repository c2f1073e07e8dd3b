package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"faucet-agent/internal/entity"
	"faucet-agent/pkg/apperr"
	"faucet-agent/pkg/logg"

	"go.uber.org/zap"
)

const (
	ChromeDriverURL = "https://chromedriver.storage.googleapis.com"
	GeckoDriverURL  = "https://github.com/mozilla/geckodriver/releases"
)

// ChromeDriverUpdater keeps a chromedriver binary in step with the release
// index, optionally pinned to the installed browser's release line.
type ChromeDriverUpdater struct {
	logger *zap.Logger
	driver *Executable
	url    string
}

func NewChromeDriverUpdater(logger *zap.Logger, driver *Executable, url string) *ChromeDriverUpdater {
	if url == "" {
		url = ChromeDriverURL
	}

	return &ChromeDriverUpdater{
		logger: logger.With(zap.String(logg.Layer, "ChromeDriverUpdater")),
		driver: driver,
		url:    url,
	}
}

// Update resolves the latest driver release, constrained to the browser's
// major.minor.release line when browserVersion is known, and installs it
// when it differs from the version already on disk.
func (u *ChromeDriverUpdater) Update(ctx context.Context, browserVersion entity.Version) error {
	const op = "Update"

	lookup := u.url + "/LATEST_RELEASE"
	if !browserVersion.IsZero() {
		lookup += "_" + browserVersion.ReleasePrefix()
	}

	latest, err := fetchString(ctx, lookup)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeDownloadFailed, err, map[string]any{
			apperr.MetaReason: "release_lookup_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaURL:    lookup,
		})
	}

	current := u.driver.Version()
	if current == latest {
		u.logger.Info("Driver is up to date", zap.String(logg.Value, current))

		return nil
	}

	archive := fmt.Sprintf("chromedriver_%s.zip", chromePlatform())

	saved, err := Download(ctx, u.logger, u.url+"/"+latest+"/"+archive, u.driver.Dir(), archive)
	if err != nil {
		return err
	}

	if err := Unpack(u.logger, saved, u.driver.Dir()); err != nil {
		return err
	}

	// The zip carries the license next to the binary.
	_ = os.Remove(filepath.Join(u.driver.Dir(), "LICENSE.chromedriver"))

	if err := u.driver.MakeExecutable(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "chmod_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaPath:   u.driver.Path(),
		})
	}

	u.logger.Info("Driver updated",
		zap.String("from", current),
		zap.String("to", latest))

	return nil
}

// GeckoDriverUpdater keeps a geckodriver binary in step with its latest
// GitHub release.
type GeckoDriverUpdater struct {
	logger *zap.Logger
	driver *Executable
	url    string
}

func NewGeckoDriverUpdater(logger *zap.Logger, driver *Executable, url string) *GeckoDriverUpdater {
	if url == "" {
		url = GeckoDriverURL
	}

	return &GeckoDriverUpdater{
		logger: logger.With(zap.String(logg.Layer, "GeckoDriverUpdater")),
		driver: driver,
		url:    url,
	}
}

// Update resolves the latest release tag through the /latest redirect and
// installs its binary when it is newer than the one on disk.
func (u *GeckoDriverUpdater) Update(ctx context.Context, _ entity.Version) error {
	const op = "Update"

	finalURL, err := fetchFinalURL(ctx, u.url+"/latest")
	if err != nil {
		return apperr.Wrap(op, apperr.CodeDownloadFailed, err, map[string]any{
			apperr.MetaReason: "release_lookup_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaURL:    u.url,
		})
	}

	latest := strings.TrimPrefix(path.Base(finalURL), "v")

	current := u.driver.VersionInfo()
	if !current.IsZero() && current.Compare(entity.ParseVersion(latest)) >= 0 {
		u.logger.Info("Driver is up to date", zap.String(logg.Value, current.String()))

		return nil
	}

	goos, ext := geckoPlatform()
	archive := fmt.Sprintf("geckodriver-v%s-%s.%s", latest, goos, ext)

	saved, err := Download(ctx, u.logger, u.url+"/download/v"+latest+"/"+archive, u.driver.Dir(), archive)
	if err != nil {
		return err
	}

	if err := Unpack(u.logger, saved, u.driver.Dir()); err != nil {
		return err
	}

	if err := u.driver.MakeExecutable(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "chmod_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaPath:   u.driver.Path(),
		})
	}

	u.logger.Info("Driver updated",
		zap.String("from", current.String()),
		zap.String("to", latest))

	return nil
}

func fetchString(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}

// fetchFinalURL follows redirects and returns the URL the request ended on.
func fetchFinalURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	return resp.Request.URL.String(), nil
}

func chromePlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "win32"
	case "darwin":
		return "mac64"
	}

	return "linux64"
}

func geckoPlatform() (string, string) {
	arch := "64"
	if strings.HasSuffix(runtime.GOARCH, "386") || runtime.GOARCH == "arm" {
		arch = "32"
	}

	switch runtime.GOOS {
	case "windows":
		return "win" + arch, "zip"
	case "darwin":
		return "macos", "tar.gz"
	}

	return "linux" + arch, "tar.gz"
}
