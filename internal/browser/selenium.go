package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"faucet-agent/internal/config"
	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
	"faucet-agent/pkg/apperr"
	"faucet-agent/pkg/logg"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"go.uber.org/zap"
)

// seleniumDriver drives the browser through a WebDriver service started on
// a locally provisioned chromedriver/geckodriver binary.
type seleniumDriver struct {
	config  *config.Config
	logger  *zap.Logger
	service *selenium.Service
	wd      selenium.WebDriver
}

// NewSeleniumDriver starts the driver service and opens one browser
// session. Failure to start either is a fatal session fault; there is no
// half-constructed driver.
func NewSeleniumDriver(conf *config.Config, logger *zap.Logger, driverPath string) (ports.Driver, error) {
	const op = "NewSeleniumDriver"
	log := logger.With(zap.String(logg.Layer, "SeleniumDriver"))

	port := conf.BrowserConfig.DriverPort

	opts := []selenium.ServiceOption{selenium.Output(nil)}
	if conf.BrowserConfig.DriverLogFile != "" {
		if err := os.MkdirAll(filepath.Dir(conf.BrowserConfig.DriverLogFile), 0o755); err == nil {
			if f, err := os.Create(conf.BrowserConfig.DriverLogFile); err == nil {
				opts = []selenium.ServiceOption{selenium.Output(f)}
			}
		}
	}

	caps := selenium.Capabilities{"browserName": conf.BrowserConfig.Name}

	var (
		service *selenium.Service
		err     error
	)

	switch conf.BrowserConfig.Name {
	case config.BrowserChrome:
		service, err = selenium.NewChromeDriverService(driverPath, port, opts...)

		args := []string{
			"--disable-blink-features=AutomationControlled",
			"--window-size=1920,1080",
		}
		if conf.BrowserConfig.Headless {
			args = append(args, "--headless=new")
		}

		caps.AddChrome(chrome.Capabilities{Args: args})

	case config.BrowserFirefox:
		service, err = selenium.NewGeckoDriverService(driverPath, port, opts...)

		ffCaps := firefox.Capabilities{}
		if conf.BrowserConfig.Headless {
			ffCaps.Args = append(ffCaps.Args, "-headless")
		}

		caps.AddFirefox(ffCaps)

	default:
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "unsupported_browser")
	}

	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "driver_service_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
			apperr.MetaPath:   driverPath,
		})
	}

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", port))
	if err != nil {
		_ = service.Stop()

		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "session_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	d := &seleniumDriver{
		config:  conf,
		logger:  log,
		service: service,
		wd:      wd,
	}

	if err := d.SetPageLoadTimeout(secondsToDuration(conf.BrowserConfig.TimeoutPageLoad)); err != nil {
		log.Warn("Setting page load timeout failed", zap.Error(err))
	}

	log.Info("Browser session created", zap.String(logg.Browser, conf.BrowserConfig.Name))

	return d, nil
}

func (d *seleniumDriver) Navigate(ctx context.Context, url string) error {
	const op = "Navigate"

	if err := d.wd.Get(url); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	return nil
}

func (d *seleniumDriver) Refresh(ctx context.Context) error {
	const op = "Refresh"

	if err := d.wd.Refresh(); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "refresh_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return nil
}

func (d *seleniumDriver) Title() (string, error) {
	return d.wd.Title()
}

func (d *seleniumDriver) CurrentURL() string {
	url, err := d.wd.CurrentURL()
	if err != nil {
		return ""
	}

	return url
}

func (d *seleniumDriver) Find(locator entity.Locator) ([]ports.Node, error) {
	found, err := d.wd.FindElements(seleniumBy(locator.Strategy), locator.Value)
	if err != nil {
		return nil, err
	}

	nodes := make([]ports.Node, 0, len(found))
	for _, el := range found {
		nodes = append(nodes, &seleniumNode{wd: d.wd, el: el})
	}

	return nodes, nil
}

func (d *seleniumDriver) SwitchFrame(node ports.Node) error {
	n, ok := node.(*seleniumNode)
	if !ok {
		return fmt.Errorf("node is not a selenium element")
	}

	return d.wd.SwitchFrame(n.el)
}

func (d *seleniumDriver) SwitchToDefault() error {
	return d.wd.SwitchFrame(nil)
}

func (d *seleniumDriver) SetPageLoadTimeout(timeout time.Duration) error {
	return d.wd.SetPageLoadTimeout(timeout)
}

func (d *seleniumDriver) BrowserName() string {
	return d.config.BrowserConfig.Name
}

func (d *seleniumDriver) BrowserVersion() string {
	caps, err := d.wd.Capabilities()
	if err != nil {
		return ""
	}

	// W3C sessions report browserVersion; legacy ones report version.
	for _, name := range []string{"browserVersion", "version"} {
		if version, ok := caps[name].(string); ok && version != "" {
			return version
		}
	}

	return ""
}

func (d *seleniumDriver) WindowHandles() []string {
	handles, err := d.wd.WindowHandles()
	if err != nil {
		return nil
	}

	return handles
}

func (d *seleniumDriver) Quit(ctx context.Context) error {
	const op = "Quit"

	err := d.wd.Quit()

	if d.service != nil {
		if stopErr := d.service.Stop(); stopErr != nil {
			d.logger.Warn("Stopping driver service failed", zap.Error(stopErr))
		}
	}

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "quit_failed",
			apperr.MetaStage:  apperr.StageTeardown,
		})
	}

	d.logger.Info("Browser windows associated with the site are closed")

	return nil
}

func seleniumBy(strategy entity.Strategy) string {
	switch strategy {
	case entity.ByID:
		return selenium.ByID
	case entity.ByClassName:
		return selenium.ByClassName
	case entity.ByCSSSelector:
		return selenium.ByCSSSelector
	case entity.ByXPath:
		return selenium.ByXPATH
	}

	return selenium.ByID
}

type seleniumNode struct {
	wd selenium.WebDriver
	el selenium.WebElement
}

func (n *seleniumNode) Text() (string, error) {
	return n.el.Text()
}

func (n *seleniumNode) Attribute(name string) (string, error) {
	return n.el.GetAttribute(name)
}

func (n *seleniumNode) Property(name string) (string, error) {
	value, err := n.wd.ExecuteScript(
		`var v = arguments[0][arguments[1]]; return v === null || v === undefined ? '' : String(v);`,
		[]interface{}{n.el, name})
	if err != nil {
		return "", err
	}

	s, _ := value.(string)

	return s, nil
}

func (n *seleniumNode) Visible() (bool, error) {
	displayed, err := n.el.IsDisplayed()
	if err != nil {
		return false, err
	}

	if displayed {
		return true, nil
	}

	display, err := n.el.CSSProperty("display")
	if err != nil {
		return false, err
	}

	return display != "none", nil
}

// Click clicks through script injection rather than a native event, so
// overlays that intercept pointer events cannot swallow it.
func (n *seleniumNode) Click() error {
	_, err := n.wd.ExecuteScript("arguments[0].click();", []interface{}{n.el})

	return err
}

func (n *seleniumNode) Clear() error {
	return n.el.Clear()
}

func (n *seleniumNode) Type(text string) error {
	return n.el.SendKeys(text)
}

func (n *seleniumNode) Find(locator entity.Locator) ([]ports.Node, error) {
	found, err := n.el.FindElements(seleniumBy(locator.Strategy), locator.Value)
	if err != nil {
		return nil, err
	}

	nodes := make([]ports.Node, 0, len(found))
	for _, el := range found {
		nodes = append(nodes, &seleniumNode{wd: n.wd, el: el})
	}

	return nodes, nil
}
