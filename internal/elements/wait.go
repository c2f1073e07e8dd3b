// Package elements implements the one polling wait primitive every page
// accessor is built on. Flakiness of the live DOM - timeouts, staleness,
// visibility races - is absorbed here: a miss is an empty result logged at
// the severity the caller asked for, never an error the caller must handle.
package elements

import (
	"context"
	"strings"
	"time"

	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
	"faucet-agent/pkg/logg"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const pollInterval = 250 * time.Millisecond

// Query describes one bounded wait over a locator-based condition.
type Query struct {
	Locator   entity.Locator
	Condition entity.Condition
	// Parent scopes the lookup to one element's subtree instead of the
	// whole current frame.
	Parent ports.Node
	// Attribute is the attribute/property name for the *Equals conditions.
	Attribute string
	// Value is the expected attribute/property value, or the title
	// substring for TitleContains.
	Value string
	// Timeout bounds the poll; zero means the waiter's default.
	Timeout time.Duration
	// Inverted waits until the condition no longer holds.
	Inverted bool
	// Level is the severity of the single log line written on a miss.
	// The zero value logs at info.
	Level zapcore.Level
}

type Waiter struct {
	driver         ports.Driver
	logger         *zap.Logger
	defaultTimeout time.Duration
}

func NewWaiter(driver ports.Driver, logger *zap.Logger, defaultTimeout time.Duration) *Waiter {
	return &Waiter{
		driver:         driver,
		logger:         logger.With(zap.String(logg.Layer, "Waiter")),
		defaultTimeout: defaultTimeout,
	}
}

func (w *Waiter) DefaultTimeout() time.Duration {
	return w.defaultTimeout
}

// SetDefaultTimeout changes the timeout used by queries that do not carry
// their own. The scenario shortens it while probing bonus tables.
func (w *Waiter) SetDefaultTimeout(timeout time.Duration) {
	w.defaultTimeout = timeout
	w.logger.Info("Element(s) wait timeout changed", zap.Duration("timeout", timeout))
}

// Wait polls the page until the query's condition holds (or, inverted,
// until it no longer holds) and returns the matched elements. Conditions
// that are boolean facts without a concrete element yield a one-element
// sentinel list. A timeout returns nil after exactly one log line at the
// query's level.
func (w *Waiter) Wait(ctx context.Context, q Query) []ports.Node {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = w.defaultTimeout
	}

	deadline := time.Now().Add(timeout)

	for {
		nodes, ok := w.evaluate(q)
		if ok != q.Inverted {
			if len(nodes) == 0 {
				nodes = []ports.Node{Sentinel()}
			}

			return nodes
		}

		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			break
		}

		interval := pollInterval
		if remaining < interval {
			interval = remaining
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	w.logger.Log(q.Level, "No matching element reached the requested state",
		zap.String(logg.Selector, q.Locator.Value),
		zap.String(logg.Strategy, string(q.Locator.Strategy)),
		zap.String(logg.Condition, q.Condition.String()),
		zap.Bool("inverted", q.Inverted),
		zap.Duration("timeout", timeout))

	return nil
}

// evaluate runs one poll of the condition. Any error from the driver or
// from a node read - including staleness - counts as "condition not met"
// for this poll.
func (w *Waiter) evaluate(q Query) ([]ports.Node, bool) {
	switch q.Condition {
	case entity.Present:
		nodes, err := w.find(q)
		if err != nil || len(nodes) == 0 {
			return nil, false
		}

		return nodes, true

	case entity.Visible:
		nodes, err := w.find(q)
		if err != nil || len(nodes) == 0 {
			return nil, false
		}

		visible, err := nodes[0].Visible()
		if err != nil || !visible {
			return nil, false
		}

		return nodes[:1], true

	case entity.NotVisible:
		nodes, err := w.find(q)
		if err != nil || len(nodes) == 0 {
			// Absent counts as not visible.
			return nil, true
		}

		visible, err := nodes[0].Visible()
		if err != nil {
			return nil, true
		}

		if visible {
			return nil, false
		}

		return nodes[:1], true

	case entity.FrameSwitch:
		nodes, err := w.find(q)
		if err != nil || len(nodes) == 0 {
			return nil, false
		}

		if err := w.driver.SwitchFrame(nodes[0]); err != nil {
			return nil, false
		}

		return nodes[:1], true

	case entity.AttributeEquals:
		nodes, err := w.find(q)
		if err != nil || len(nodes) == 0 {
			return nil, false
		}

		value, err := nodes[0].Attribute(q.Attribute)
		if err != nil || value != q.Value {
			return nil, false
		}

		return nodes[:1], true

	case entity.PropertyEquals:
		nodes, err := w.find(q)
		if err != nil || len(nodes) == 0 {
			return nil, false
		}

		value, err := nodes[0].Property(q.Attribute)
		if err != nil || value != q.Value {
			return nil, false
		}

		return nodes[:1], true

	case entity.TitleContains:
		title, err := w.driver.Title()
		if err != nil {
			return nil, false
		}

		return nil, strings.Contains(strings.ToLower(title), strings.ToLower(q.Value))
	}

	return nil, false
}

func (w *Waiter) find(q Query) ([]ports.Node, error) {
	if q.Parent != nil {
		return q.Parent.Find(q.Locator)
	}

	return w.driver.Find(q.Locator)
}
