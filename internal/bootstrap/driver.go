package bootstrap

import (
	"context"

	"faucet-agent/internal/browser"
	"faucet-agent/internal/config"
	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
	"faucet-agent/internal/provision"

	"go.uber.org/zap"
)

// newDriverFactory binds the configured driver kind. The selenium kind runs
// through a locally provisioned chromedriver/geckodriver binary, updated
// before the session starts when auto-update is on; playwright provisions
// its own browsers.
func newDriverFactory(conf *config.Config, logger *zap.Logger) browser.Factory {
	if conf.BrowserConfig.DriverKind == config.DriverKindPlaywright {
		return func(ctx context.Context) (ports.Driver, error) {
			return browser.NewPlaywrightDriver(conf, logger)
		}
	}

	return func(ctx context.Context) (ports.Driver, error) {
		path, err := provisionDriver(ctx, conf, logger)
		if err != nil {
			return nil, err
		}

		return browser.NewSeleniumDriver(conf, logger, path)
	}
}

func provisionDriver(ctx context.Context, conf *config.Config, logger *zap.Logger) (string, error) {
	driverName := "geckodriver"
	if conf.BrowserConfig.Name == config.BrowserChrome {
		driverName = "chromedriver"
	}

	driver, err := provision.NewDriverExecutable(logger, driverName, conf.BrowserConfig.DriversDir)
	if err != nil {
		return "", err
	}

	if conf.BrowserConfig.DriverAutoUpdate {
		var (
			updateErr      error
			browserVersion entity.Version
		)

		switch conf.BrowserConfig.Name {
		case config.BrowserChrome:
			// The driver release line has to match the installed browser's.
			browserVersion = provision.NewBrowserExecutable(logger, "google-chrome", "").VersionInfo()
			updateErr = provision.NewChromeDriverUpdater(logger, driver, "").Update(ctx, browserVersion)
		case config.BrowserFirefox:
			updateErr = provision.NewGeckoDriverUpdater(logger, driver, "").Update(ctx, browserVersion)
		}

		if updateErr != nil {
			// A stale driver on disk is still worth trying; a missing one
			// is not.
			if !driver.Exists() {
				return "", updateErr
			}

			logger.Warn("Driver update failed, using the existing binary", zap.Error(updateErr))
		}
	}

	return driver.Path(), nil
}
