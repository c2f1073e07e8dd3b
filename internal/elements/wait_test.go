package elements

import (
	"context"
	"testing"
	"time"

	"faucet-agent/internal/browser/browsertest"
	"faucet-agent/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testTimeout = 20 * time.Millisecond

func newWaiter(driver *browsertest.Driver) (*Waiter, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)

	return NewWaiter(driver, zap.New(core), testTimeout), logs
}

func TestWaitPresentFound(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.Set(entity.ID("balance"), &browsertest.Element{TextVal: "0.001"})

	w, logs := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("balance"),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})

	require.Len(t, nodes, 1)
	text, err := nodes[0].Text()
	require.NoError(t, err)
	assert.Equal(t, "0.001", text)
	assert.Empty(t, logs.All())
}

func TestWaitTimeoutLogsOnce(t *testing.T) {
	driver := browsertest.NewDriver()

	w, logs := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("missing"),
		Condition: entity.Present,
		Level:     zapcore.WarnLevel,
	})

	assert.Empty(t, nodes)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestWaitVisibleSkipsHidden(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.Set(entity.ID("button"), &browsertest.Element{Displayed: false})

	w, _ := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("button"),
		Condition: entity.Visible,
		Level:     zapcore.DebugLevel,
	})

	assert.Empty(t, nodes)
}

func TestWaitVisibleBecomesTrue(t *testing.T) {
	driver := browsertest.NewDriver()
	el := &browsertest.Element{Displayed: false}
	driver.Set(entity.ID("button"), el)

	w, _ := newWaiter(driver)

	go func() {
		time.Sleep(2 * time.Millisecond)
		el.SetDisplayed(true)
	}()

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("button"),
		Condition: entity.Visible,
		Timeout:   time.Second,
		Level:     zapcore.ErrorLevel,
	})

	assert.Len(t, nodes, 1)
}

func TestWaitNotVisibleAbsentCounts(t *testing.T) {
	driver := browsertest.NewDriver()

	w, logs := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("modal"),
		Condition: entity.NotVisible,
		Level:     zapcore.ErrorLevel,
	})

	require.Len(t, nodes, 1)
	assert.True(t, IsSentinel(nodes[0]))
	assert.Empty(t, logs.All())
}

func TestWaitInverted(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.Set(entity.ID("modal"), &browsertest.Element{Displayed: false})

	w, logs := newWaiter(driver)

	// Inverted Visible holds once the element is not displayed.
	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("modal"),
		Condition: entity.Visible,
		Inverted:  true,
		Level:     zapcore.ErrorLevel,
	})

	require.Len(t, nodes, 1)
	assert.Empty(t, logs.All())
}

func TestWaitInvertedTimesOutWhileVisible(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.Set(entity.ID("modal"), &browsertest.Element{Displayed: true})

	w, logs := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("modal"),
		Condition: entity.Visible,
		Inverted:  true,
		Level:     zapcore.ErrorLevel,
	})

	assert.Empty(t, nodes)
	assert.Len(t, logs.All(), 1)
}

func TestWaitAttributeEquals(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.Set(entity.ID("checkbox"), &browsertest.Element{
		Attrs: map[string]string{"aria-checked": "true"},
	})

	w, _ := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("checkbox"),
		Condition: entity.AttributeEquals,
		Attribute: "aria-checked",
		Value:     "true",
		Level:     zapcore.ErrorLevel,
	})

	assert.Len(t, nodes, 1)
}

func TestWaitTitleContains(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.PageTitle = "Free Play - FREEBITCO.IN"

	w, _ := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Condition: entity.TitleContains,
		Value:     "FreeBitco.in",
		Level:     zapcore.ErrorLevel,
	})

	require.Len(t, nodes, 1)
	assert.True(t, IsSentinel(nodes[0]))
}

func TestWaitStaleCountsAsMiss(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.Set(entity.ID("button"), &browsertest.Element{Displayed: true, Gone: true})

	w, logs := newWaiter(driver)

	nodes := w.Wait(context.Background(), Query{
		Locator:   entity.ID("button"),
		Condition: entity.Visible,
		Level:     zapcore.ErrorLevel,
	})

	assert.Empty(t, nodes)
	assert.Len(t, logs.All(), 1)
}

func TestWaitCancelledContext(t *testing.T) {
	driver := browsertest.NewDriver()

	w, logs := newWaiter(driver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	nodes := w.Wait(ctx, Query{
		Locator:   entity.ID("missing"),
		Condition: entity.Present,
		Timeout:   time.Minute,
		Level:     zapcore.DebugLevel,
	})

	assert.Empty(t, nodes)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, logs.All(), 1)
}

func TestSetDefaultTimeout(t *testing.T) {
	w, _ := newWaiter(browsertest.NewDriver())

	w.SetDefaultTimeout(5 * time.Second)
	assert.Equal(t, 5*time.Second, w.DefaultTimeout())
}
