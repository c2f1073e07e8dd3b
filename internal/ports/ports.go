package ports

import (
	"context"
	"time"

	"faucet-agent/internal/entity"
)

// Node is one live DOM element reference. A node may go stale at any moment
// as page scripts rewrite the DOM; methods on a stale node return an error,
// which callers treat as "not found" rather than a fault.
type Node interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	Property(name string) (string, error)
	Visible() (bool, error)
	Click() error
	Clear() error
	Type(text string) error
	Find(locator entity.Locator) ([]Node, error)
}

// Driver is the browser-automation boundary. Lookups resolve inside the
// current frame (the page by default). Any conforming binding satisfies it;
// nothing above this interface sees binding-specific types.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Title() (string, error)
	CurrentURL() string
	Find(locator entity.Locator) ([]Node, error)
	SwitchFrame(node Node) error
	SwitchToDefault() error
	SetPageLoadTimeout(timeout time.Duration) error
	BrowserName() string
	BrowserVersion() string
	WindowHandles() []string
	Quit(ctx context.Context) error
}
