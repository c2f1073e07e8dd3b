// Package browsertest provides an in-memory ports.Driver for tests. The
// fake DOM is a flat map from locator to elements; tests mutate it directly
// or through OnClick hooks to simulate page scripts reacting to actions.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
)

var ErrStale = errors.New("stale element reference")

// Element is one fake DOM node. Direct field writes are fine while the page
// is being built; once a waiter polls the element from another goroutine,
// mutate it through SetDisplayed/SetGone or a click hook instead.
type Element struct {
	mu sync.Mutex

	TextVal   string
	Attrs     map[string]string
	Props     map[string]string
	Displayed bool
	// Gone marks the element stale: every method on it errors.
	Gone bool
	// OnClick runs on every click, after the click counter increments.
	OnClick func(e *Element)

	// Children answers parent-scoped lookups on this element.
	Children map[string][]*Element

	Clicks int
	Typed  string
}

// SetChildren registers the elements a parent-scoped lookup on e resolves to.
func (e *Element) SetChildren(locator entity.Locator, elements ...*Element) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Children == nil {
		e.Children = make(map[string][]*Element)
	}

	e.Children[key(locator)] = elements
}

// SetDisplayed flips visibility under the element lock, safe to call while
// a waiter is polling.
func (e *Element) SetDisplayed(displayed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Displayed = displayed
}

// SetGone marks the element stale under the element lock.
func (e *Element) SetGone(gone bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Gone = gone
}

func (e *Element) gone() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.Gone
}

// Driver is the fake ports.Driver. Elements are registered per locator with
// Set; frame contents are registered per frame element with SetFrame.
type Driver struct {
	mu sync.Mutex

	PageTitle string
	URL       string
	Browser   string
	Version   string
	Windows   []string

	NavigateErr error
	RefreshErr  error
	TitleErr    error

	Navigations int
	Refreshes   int
	QuitCalls   int

	// OnRefresh runs on every refresh, letting tests flip page state.
	OnRefresh func(d *Driver)

	dom    map[string][]*Element
	frames map[*Element]map[string][]*Element
	// current is non-nil while lookups are switched into a frame.
	current map[string][]*Element
}

func NewDriver() *Driver {
	return &Driver{
		PageTitle: "FreeBitco.in",
		Browser:   "firefox",
		Version:   "115.0",
		Windows:   []string{"main"},
		dom:       make(map[string][]*Element),
		frames:    make(map[*Element]map[string][]*Element),
	}
}

func key(locator entity.Locator) string {
	return string(locator.Strategy) + "\x00" + locator.Value
}

// Set registers the elements the locator resolves to, replacing any earlier
// registration.
func (d *Driver) Set(locator entity.Locator, elements ...*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dom[key(locator)] = elements
}

// Remove unregisters the locator.
func (d *Driver) Remove(locator entity.Locator) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.dom, key(locator))
}

// SetFrame registers the DOM served while lookups are switched into the
// frame element.
func (d *Driver) SetFrame(frame *Element, locator entity.Locator, elements ...*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frames[frame] == nil {
		d.frames[frame] = make(map[string][]*Element)
	}

	d.frames[frame][key(locator)] = elements
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Navigations++

	if d.NavigateErr != nil {
		return d.NavigateErr
	}

	d.URL = url
	d.current = nil

	return nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.Refreshes++
	hook := d.OnRefresh
	err := d.RefreshErr
	d.current = nil
	d.mu.Unlock()

	if err != nil {
		return err
	}

	if hook != nil {
		hook(d)
	}

	return nil
}

func (d *Driver) Title() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.TitleErr != nil {
		return "", d.TitleErr
	}

	return d.PageTitle, nil
}

func (d *Driver) CurrentURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.URL
}

func (d *Driver) Find(locator entity.Locator) ([]ports.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dom := d.dom
	if d.current != nil {
		dom = d.current
	}

	return liveNodes(dom[key(locator)]), nil
}

func (d *Driver) SwitchFrame(node ports.Node) error {
	n, ok := node.(*fakeNode)
	if !ok {
		return errors.New("node is not a fake element")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	frame, ok := d.frames[n.el]
	if !ok {
		return errors.New("element has no content frame")
	}

	d.current = frame

	return nil
}

func (d *Driver) SwitchToDefault() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.current = nil

	return nil
}

func (d *Driver) SetPageLoadTimeout(timeout time.Duration) error {
	return nil
}

func (d *Driver) BrowserName() string {
	return d.Browser
}

func (d *Driver) BrowserVersion() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.Version
}

func (d *Driver) WindowHandles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.Windows...)
}

func (d *Driver) Quit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.QuitCalls++

	return nil
}

func liveNodes(elements []*Element) []ports.Node {
	nodes := make([]ports.Node, 0, len(elements))
	for _, e := range elements {
		if e.gone() {
			continue
		}

		nodes = append(nodes, &fakeNode{el: e})
	}

	return nodes
}

type fakeNode struct {
	el *Element
}

func (n *fakeNode) Text() (string, error) {
	n.el.mu.Lock()
	defer n.el.mu.Unlock()

	if n.el.Gone {
		return "", ErrStale
	}

	return n.el.TextVal, nil
}

func (n *fakeNode) Attribute(name string) (string, error) {
	n.el.mu.Lock()
	defer n.el.mu.Unlock()

	if n.el.Gone {
		return "", ErrStale
	}

	return n.el.Attrs[name], nil
}

func (n *fakeNode) Property(name string) (string, error) {
	n.el.mu.Lock()
	defer n.el.mu.Unlock()

	if n.el.Gone {
		return "", ErrStale
	}

	if value, ok := n.el.Props[name]; ok {
		return value, nil
	}

	// textContent mirrors the element text unless overridden.
	if name == "textContent" {
		return n.el.TextVal, nil
	}

	return "", nil
}

func (n *fakeNode) Visible() (bool, error) {
	n.el.mu.Lock()
	defer n.el.mu.Unlock()

	if n.el.Gone {
		return false, ErrStale
	}

	return n.el.Displayed, nil
}

// Click increments the counter under the lock but runs the hook outside it,
// so hooks may freely mutate this or any other element.
func (n *fakeNode) Click() error {
	n.el.mu.Lock()

	if n.el.Gone {
		n.el.mu.Unlock()

		return ErrStale
	}

	n.el.Clicks++
	hook := n.el.OnClick

	n.el.mu.Unlock()

	if hook != nil {
		hook(n.el)
	}

	return nil
}

func (n *fakeNode) Clear() error {
	n.el.mu.Lock()
	defer n.el.mu.Unlock()

	if n.el.Gone {
		return ErrStale
	}

	if n.el.Attrs == nil {
		n.el.Attrs = make(map[string]string)
	}

	if n.el.Props == nil {
		n.el.Props = make(map[string]string)
	}

	n.el.Attrs["value"] = ""
	n.el.Props["value"] = ""

	return nil
}

func (n *fakeNode) Type(text string) error {
	n.el.mu.Lock()
	defer n.el.mu.Unlock()

	if n.el.Gone {
		return ErrStale
	}

	n.el.Typed = text

	if n.el.Attrs == nil {
		n.el.Attrs = make(map[string]string)
	}

	if n.el.Props == nil {
		n.el.Props = make(map[string]string)
	}

	n.el.Attrs["value"] = text
	n.el.Props["value"] = text

	return nil
}

func (n *fakeNode) Find(locator entity.Locator) ([]ports.Node, error) {
	n.el.mu.Lock()
	defer n.el.mu.Unlock()

	if n.el.Gone {
		return nil, ErrStale
	}

	return liveNodes(n.el.Children[key(locator)]), nil
}
