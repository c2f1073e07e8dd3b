package browser

import (
	"context"
	"fmt"
	"time"

	"faucet-agent/internal/config"
	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
	"faucet-agent/pkg/apperr"
	"faucet-agent/pkg/logg"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// playwrightDriver is the alternate binding. Playwright provisions its own
// browsers, so it needs no external driver binary or service.
type playwrightDriver struct {
	config  *config.Config
	logger  *zap.Logger
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	// frame is non-nil while element lookups are switched into an iframe.
	frame playwright.Frame
}

func NewPlaywrightDriver(conf *config.Config, logger *zap.Logger) (ports.Driver, error) {
	const op = "NewPlaywrightDriver"
	log := logger.With(zap.String(logg.Layer, "PlaywrightDriver"))

	if err := playwright.Install(); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browserType := pw.Firefox
	if conf.BrowserConfig.Name == config.BrowserChrome {
		browserType = pw.Chromium
	}

	b, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(conf.BrowserConfig.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		_ = pw.Stop()

		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	page, err := b.NewPage()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()

		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	d := &playwrightDriver{
		config:  conf,
		logger:  log,
		pw:      pw,
		browser: b,
		page:    page,
	}

	_ = d.SetPageLoadTimeout(secondsToDuration(conf.BrowserConfig.TimeoutPageLoad))

	log.Info("Browser session created", zap.String(logg.Browser, conf.BrowserConfig.Name))

	return d, nil
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	const op = "Navigate"

	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(d.config.BrowserConfig.TimeoutPageLoad * 1000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	d.frame = nil

	return nil
}

func (d *playwrightDriver) Refresh(ctx context.Context) error {
	const op = "Refresh"

	_, err := d.page.Reload()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "refresh_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	d.frame = nil

	return nil
}

func (d *playwrightDriver) Title() (string, error) {
	return d.page.Title()
}

func (d *playwrightDriver) CurrentURL() string {
	return d.page.URL()
}

func (d *playwrightDriver) Find(locator entity.Locator) ([]ports.Node, error) {
	selector := playwrightSelector(locator)

	var (
		found []playwright.ElementHandle
		err   error
	)

	if d.frame != nil {
		found, err = d.frame.QuerySelectorAll(selector)
	} else {
		found, err = d.page.QuerySelectorAll(selector)
	}

	if err != nil {
		return nil, err
	}

	nodes := make([]ports.Node, 0, len(found))
	for _, handle := range found {
		nodes = append(nodes, &playwrightNode{page: d.page, handle: handle})
	}

	return nodes, nil
}

func (d *playwrightDriver) SwitchFrame(node ports.Node) error {
	n, ok := node.(*playwrightNode)
	if !ok {
		return fmt.Errorf("node is not a playwright element")
	}

	frame, err := n.handle.ContentFrame()
	if err != nil {
		return err
	}

	if frame == nil {
		return fmt.Errorf("element has no content frame")
	}

	d.frame = frame

	return nil
}

func (d *playwrightDriver) SwitchToDefault() error {
	d.frame = nil

	return nil
}

func (d *playwrightDriver) SetPageLoadTimeout(timeout time.Duration) error {
	d.page.SetDefaultNavigationTimeout(float64(timeout.Milliseconds()))

	return nil
}

func (d *playwrightDriver) BrowserName() string {
	return d.config.BrowserConfig.Name
}

func (d *playwrightDriver) BrowserVersion() string {
	return d.browser.Version()
}

// WindowHandles reports the pages of the session's context; playwright has
// no window-handle ids, so page URLs stand in.
func (d *playwrightDriver) WindowHandles() []string {
	pages := d.page.Context().Pages()

	handles := make([]string, 0, len(pages))
	for _, page := range pages {
		handles = append(handles, page.URL())
	}

	return handles
}

func (d *playwrightDriver) Quit(ctx context.Context) error {
	const op = "Quit"

	if err := d.browser.Close(); err != nil {
		d.logger.Warn("Failed to close browser", zap.Error(err))
	}

	if err := d.pw.Stop(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
			apperr.MetaStage:  apperr.StageTeardown,
		})
	}

	d.logger.Info("Browser windows associated with the site are closed")

	return nil
}

func playwrightSelector(locator entity.Locator) string {
	switch locator.Strategy {
	case entity.ByID:
		return fmt.Sprintf(`[id=%q]`, locator.Value)
	case entity.ByClassName:
		return "." + locator.Value
	case entity.ByXPath:
		return "xpath=" + locator.Value
	}

	return locator.Value
}

type playwrightNode struct {
	page   playwright.Page
	handle playwright.ElementHandle
}

func (n *playwrightNode) Text() (string, error) {
	return n.handle.TextContent()
}

func (n *playwrightNode) Attribute(name string) (string, error) {
	return n.handle.GetAttribute(name)
}

func (n *playwrightNode) Property(name string) (string, error) {
	property, err := n.handle.GetProperty(name)
	if err != nil {
		return "", err
	}

	value, err := property.JSONValue()
	if err != nil {
		return "", err
	}

	if value == nil {
		return "", nil
	}

	return fmt.Sprint(value), nil
}

func (n *playwrightNode) Visible() (bool, error) {
	return n.handle.IsVisible()
}

func (n *playwrightNode) Click() error {
	_, err := n.page.Evaluate("el => el.click()", n.handle)

	return err
}

func (n *playwrightNode) Clear() error {
	return n.handle.Fill("")
}

func (n *playwrightNode) Type(text string) error {
	return n.handle.Fill(text)
}

func (n *playwrightNode) Find(locator entity.Locator) ([]ports.Node, error) {
	found, err := n.handle.QuerySelectorAll(playwrightSelector(locator))
	if err != nil {
		return nil, err
	}

	nodes := make([]ports.Node, 0, len(found))
	for _, handle := range found {
		nodes = append(nodes, &playwrightNode{page: n.page, handle: handle})
	}

	return nodes, nil
}
