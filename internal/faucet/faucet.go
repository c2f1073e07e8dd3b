// Package faucet projects the rewards site's live page into typed reads and
// idempotent writes. Every accessor re-queries the DOM through the wait
// primitive; nothing is cached, and a value read twice may legitimately
// differ while page scripts run.
package faucet

import (
	"context"
	"strings"
	"time"

	"faucet-agent/internal/config"
	"faucet-agent/internal/elements"
	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
	"faucet-agent/pkg/logg"
	"faucet-agent/pkg/numeric"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	faucetLayerName = "Faucet"
	faucetTracer    = "faucet"

	// siteName appears in the page title whenever the site answered.
	siteName = "FreeBitco.in"
)

type Faucet struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
	driver ports.Driver
	waiter *elements.Waiter
	coerce *numeric.Coercer

	checkForCaptcha bool

	// Credentials of the signed-in user, kept only to mirror the
	// authenticated state; cleared again on sign-out.
	password   string
	totpSecret string
}

func New(conf *config.Config, logger *zap.Logger, driver ports.Driver) *Faucet {
	log := logger.With(zap.String(logg.Layer, faucetLayerName))

	return &Faucet{
		config:          conf,
		logger:          log,
		tracer:          otel.Tracer(faucetTracer),
		driver:          driver,
		waiter:          elements.NewWaiter(driver, logger, secondsToDuration(conf.BrowserConfig.TimeoutElemWait)),
		coerce:          numeric.New(log),
		checkForCaptcha: conf.ScenarioConfig.CheckForCaptcha,
	}
}

func (f *Faucet) String() string {
	return siteName
}

func (f *Faucet) BrowserName() string {
	return f.driver.BrowserName()
}

func (f *Faucet) BrowserVersion() string {
	return f.driver.BrowserVersion()
}

func (f *Faucet) WindowHandles() []string {
	return f.driver.WindowHandles()
}

func (f *Faucet) CurrentURL() string {
	return f.driver.CurrentURL()
}

func (f *Faucet) Title() string {
	title, err := f.driver.Title()
	if err != nil {
		return ""
	}

	return title
}

func (f *Faucet) ElemWaitTimeout() time.Duration {
	return f.waiter.DefaultTimeout()
}

func (f *Faucet) SetElemWaitTimeout(timeout time.Duration) {
	f.waiter.SetDefaultTimeout(timeout)
}

func (f *Faucet) CheckForCaptcha() bool {
	return f.checkForCaptcha
}

func (f *Faucet) SetCheckForCaptcha(value bool) {
	f.checkForCaptcha = value
	f.logger.Info("Captcha check status changed", zap.Bool(logg.Value, value))
}

// text reads a node property used as element text. A reference lost
// between find and read counts as empty, logged quietly.
func (f *Faucet) text(node ports.Node) string {
	value, err := node.Property("textContent")
	if err != nil {
		f.logger.Debug("Reference to the DOM element was lost while reading its text", zap.Error(err))

		return ""
	}

	return value
}

// UserID returns the account identifier shown on the profile tab.
func (f *Faucet) UserID(ctx context.Context) string {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="edit_tab"]/p/span[2]`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return ""
	}

	return strings.TrimSpace(f.text(nodes[0]))
}

func (f *Faucet) BTCAddress(ctx context.Context) string {
	value, _ := f.inputField(ctx, "edit_profile_form_btc_address", "", zapcore.DebugLevel, "")

	return value
}

func (f *Faucet) EmailAddress(ctx context.Context) string {
	value, _ := f.inputField(ctx, "edit_profile_form_email", "", zapcore.DebugLevel, "")

	return value
}

func (f *Faucet) RecoveryPhoneNumber(ctx context.Context) string {
	value, _ := f.inputField(ctx, "rp_phone_number", "", zapcore.DebugLevel, "")

	return value
}

// BalanceBTC returns the current BTC balance.
func (f *Faucet) BalanceBTC(ctx context.Context) decimal.Decimal {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[starts-with(@id,"balance")]`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return decimal.Zero
	}

	return f.coerce.Decimal(f.text(nodes[0]))
}

// BalanceRP returns the current number of reward points.
func (f *Faucet) BalanceRP(ctx context.Context) int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="rewards_tab"]/descendant::div[contains(@class,"user_reward_points")]`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return 0
	}

	return f.coerce.Int(strings.ReplaceAll(f.text(nodes[0]), ",", ""))
}

// BalanceLT returns the current number of lottery tickets.
func (f *Faucet) BalanceLT(ctx context.Context) int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("user_lottery_tickets"),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return 0
	}

	return f.coerce.Int(strings.ReplaceAll(f.text(nodes[0]), ",", ""))
}

func (f *Faucet) Balances(ctx context.Context) entity.Balances {
	return entity.Balances{
		BTC:            f.BalanceBTC(ctx),
		RewardPoints:   f.BalanceRP(ctx),
		LotteryTickets: f.BalanceLT(ctx),
	}
}

func (f *Faucet) winningInt(ctx context.Context, id string) int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID(id),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return 0
	}

	return f.coerce.Int(strings.TrimSpace(f.text(nodes[0])))
}

// WinningBTC returns the amount of the last win in BTC.
func (f *Faucet) WinningBTC(ctx context.Context) decimal.Decimal {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("winnings"),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return decimal.Zero
	}

	return f.coerce.Decimal(strings.TrimSpace(f.text(nodes[0])))
}

func (f *Faucet) WinningRP(ctx context.Context) int {
	return f.winningInt(ctx, "fp_reward_points_won")
}

func (f *Faucet) WinningLT(ctx context.Context) int {
	return f.winningInt(ctx, "fp_lottery_tickets_won")
}

// WinningWOF returns the number of wheel-of-fortune spins won. The element
// only exists when a spin was won, so its absence is routine.
func (f *Faucet) WinningWOF(ctx context.Context) int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="fp_bonus_wins"]/a`),
		Condition: entity.Present,
		Level:     zapcore.DebugLevel,
	})
	if len(nodes) == 0 {
		return 0
	}

	return f.coerce.Int(firstField(f.text(nodes[0])))
}

func (f *Faucet) Winnings(ctx context.Context, includeWOF bool) entity.Winnings {
	w := entity.Winnings{
		BTC:            f.WinningBTC(ctx),
		RewardPoints:   f.WinningRP(ctx),
		LotteryTickets: f.WinningLT(ctx),
	}

	if includeWOF {
		w.WheelSpins = f.WinningWOF(ctx)
	}

	return w
}

// FreePlayCountdown returns the whole seconds remaining until the next free
// play, or 0 when the timer section is absent or unreadable.
func (f *Faucet) FreePlayCountdown(ctx context.Context) int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("time_remaining"),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return 0
	}

	parts := f.waiter.Wait(ctx, elements.Query{
		Parent:    nodes[0],
		Locator:   entity.CSS("span.countdown_amount"),
		Condition: entity.Present,
		Level:     zapcore.DebugLevel,
	})
	if len(parts) == 0 {
		return 0
	}

	if len(parts) < 2 {
		f.logger.Error("Countdown timer has less than two sections")

		return 0
	}

	minutes, err := parts[0].Property("textContent")
	if err != nil {
		f.logger.Error("Reference to the countdown timer section element was lost while reading it")

		return 0
	}

	seconds, err := parts[1].Property("textContent")
	if err != nil {
		f.logger.Error("Reference to the countdown timer section element was lost while reading it")

		return 0
	}

	return f.coerce.Int(strings.TrimSpace(minutes))*60 + f.coerce.Int(strings.TrimSpace(seconds))
}

// FreePlayCost returns the reward-point cost of playing without captcha.
func (f *Faucet) FreePlayCost(ctx context.Context) int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="play_without_captcha_desc"]/descendant::span`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return 0
	}

	return f.coerce.Int(strings.ReplaceAll(strings.TrimSpace(f.text(nodes[0])), ",", ""))
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}

	return ""
}
