package faucet

import (
	"context"
	"fmt"
	"time"

	"faucet-agent/internal/elements"
	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
	"faucet-agent/pkg/logg"
	"faucet-agent/pkg/tracing"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IsAvailable reports whether the site answered, judged by its name
// appearing in the page title.
func (f *Faucet) IsAvailable(ctx context.Context) bool {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Condition: entity.TitleContains,
		Value:     siteName,
		Level:     zapcore.ErrorLevel,
	})

	return len(nodes) > 0
}

func (f *Faucet) isAuthenticated(ctx context.Context, level zapcore.Level) []ports.Node {
	return f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.CSS("a.logout_link"),
		Condition: entity.Present,
		Level:     level,
	})
}

// IsAuthenticated reports whether a user session is signed in, judged by
// the logout link being present.
func (f *Faucet) IsAuthenticated(ctx context.Context) bool {
	return len(f.isAuthenticated(ctx, zapcore.ErrorLevel)) > 0
}

func (f *Faucet) isNotAuthenticated(ctx context.Context, level zapcore.Level) []ports.Node {
	return f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("login_button"),
		Condition: entity.Present,
		Level:     level,
	})
}

// IsNotAuthenticated reports whether the sign-in button is shown, meaning
// no user session exists.
func (f *Faucet) IsNotAuthenticated(ctx context.Context) bool {
	return len(f.isNotAuthenticated(ctx, zapcore.ErrorLevel)) > 0
}

// IsReadyFreePlay reports whether the free play submit button is shown.
func (f *Faucet) IsReadyFreePlay(ctx context.Context) bool {
	return len(f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("free_play_form_button"),
		Condition: entity.Visible,
		Level:     zapcore.ErrorLevel,
	})) > 0
}

// IsReadyFreePlayWithCaptcha switches into the captcha frame, ticks its
// checkbox and waits for it to confirm. Element lookups are restored to the
// top document before returning, on every path.
func (f *Faucet) IsReadyFreePlayWithCaptcha(ctx context.Context) bool {
	frames := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="free_play_recaptcha"]/descendant::iframe`),
		Condition: entity.FrameSwitch,
		Level:     zapcore.ErrorLevel,
	})
	if len(frames) == 0 {
		return false
	}

	defer func() {
		if err := f.driver.SwitchToDefault(); err != nil {
			f.logger.Error("Switching element lookups back to the top document failed", zap.Error(err))
		}
	}()

	boxes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("checkbox"),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(boxes) == 0 {
		return false
	}

	if err := boxes[0].Click(); err != nil {
		f.logger.Error("Clicking the captcha checkbox failed", zap.Error(err))

		return false
	}

	checked := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("checkbox"),
		Condition: entity.AttributeEquals,
		Attribute: "aria-checked",
		Value:     "true",
		Level:     zapcore.ErrorLevel,
	})

	return len(checked) > 0
}

// IsReadyFreePlayWithoutCaptcha switches the form to the captcha-free mode
// paid with reward points and confirms the switch took effect.
func (f *Faucet) IsReadyFreePlayWithoutCaptcha(ctx context.Context) bool {
	buttons := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("play_without_captchas_button"),
		Condition: entity.Visible,
		Level:     zapcore.ErrorLevel,
	})
	if len(buttons) == 0 {
		return false
	}

	if err := buttons[0].Click(); err != nil {
		f.logger.Error("Switching to the captcha-free play mode failed", zap.Error(err))

		return false
	}

	return len(f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("play_with_captcha_button"),
		Condition: entity.Visible,
		Level:     zapcore.ErrorLevel,
	})) > 0
}

// PlayFreePlay runs one free play round and waits for the result element to
// show up. When captcha checks are on, the captcha widget is tried first; a
// widget that never comes up falls back to the paid captcha-free mode,
// which costs reward points. With captcha checks off, the play button is
// clicked as-is.
func (f *Faucet) PlayFreePlay(ctx context.Context) (played bool) {
	const op = "PlayFreePlay"

	var err error

	ctx, step := tracing.StartSpan(ctx, f.tracer, f.logger, op)
	defer func() { step.End(err) }()

	what := "Free play"
	cost := 0

	if f.checkForCaptcha {
		if f.IsReadyFreePlayWithCaptcha(ctx) {
			what = "Free play with captcha"
		} else {
			what = "Free play without captcha"

			cost = f.FreePlayCost(ctx)
			if balance := f.BalanceRP(ctx); cost > balance {
				f.logger.Error("Not enough reward points to play without captcha",
					zap.Int("required", cost),
					zap.Int("balance", balance))

				return false
			}

			if !f.IsReadyFreePlayWithoutCaptcha(ctx) {
				f.logger.Error(what + " is not ready")

				return false
			}
		}
	}

	buttons := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("free_play_form_button"),
		Condition: entity.Visible,
		Level:     zapcore.ErrorLevel,
	})
	if len(buttons) == 0 {
		return false
	}

	if err := buttons[0].Click(); err != nil {
		f.logger.Error("Clicking the free play button failed", zap.Error(err))

		return false
	}

	results := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("free_play_result"),
		Condition: entity.Visible,
		Level:     zapcore.ErrorLevel,
	})
	if len(results) == 0 {
		f.logger.Error(what + " brought no result")

		return false
	}

	if cost > 0 {
		f.logger.Info(fmt.Sprintf("%s is played (%d RP spent)", what, cost))
	} else {
		f.logger.Info(what + " is played")
	}

	return true
}

// PlayFreePlaySound plays the win notification sound through the site's own
// test button.
func (f *Faucet) PlayFreePlaySound(ctx context.Context) bool {
	buttons := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID("test_sound"),
		Condition: entity.Present,
		Level:     zapcore.WarnLevel,
	})
	if len(buttons) == 0 {
		return false
	}

	if err := buttons[0].Click(); err != nil {
		f.logger.Warn("Playing the free play sound failed", zap.Error(err))

		return false
	}

	return true
}

// LoadBonusTable makes the browser fetch the bonus tables by visiting the
// rewards tab and returning to the tab that was open before.
func (f *Faucet) LoadBonusTable(ctx context.Context) bool {
	previous := f.currentPageTabID(ctx, "", zapcore.DebugLevel, "")

	loaded := f.currentPageTabID(ctx, "rewards_tab", zapcore.DebugLevel, "Rewards tab opened") == "rewards_tab"

	if previous != "" && previous != "rewards_tab" {
		f.currentPageTabID(ctx, previous, zapcore.DebugLevel, "Previous tab restored")
	}

	if loaded {
		f.logger.Info("Bonus tables loaded")
	}

	return loaded
}

// Open navigates to the site.
func (f *Faucet) Open(ctx context.Context, url string) bool {
	if err := f.driver.Navigate(ctx, url); err != nil {
		f.logger.Error("Opening the site failed", zap.String(logg.URL, url), zap.Error(err))

		return false
	}

	f.logger.Info("Site opened", zap.String(logg.URL, url))

	return true
}

// Refresh reloads the current page.
func (f *Faucet) Refresh(ctx context.Context) bool {
	if err := f.driver.Refresh(ctx); err != nil {
		f.logger.Error("Refreshing the page failed", zap.Error(err))

		return false
	}

	f.logger.Info("Page refreshed")

	return true
}

// SignIn authenticates the user. An already-authenticated session counts as
// success. The one-time code is derived from the TOTP secret when one is
// configured.
func (f *Faucet) SignIn(ctx context.Context, address, password, totpSecret string) (signedIn bool) {
	const op = "SignIn"

	var err error

	ctx, step := tracing.StartSpan(ctx, f.tracer, f.logger, op)
	defer func() { step.End(err) }()

	if f.IsAuthenticated(ctx) {
		f.logger.Info("User is already signed in")

		return true
	}

	if address == "" || password == "" {
		f.logger.Error("Sign in requires both the address and the password")

		return false
	}

	if f.currentSignFormID(ctx, "login_form", zapcore.DebugLevel, "Sign in form opened") != "login_form" {
		f.logger.Error("Sign in form did not open")

		return false
	}

	if got, _ := f.inputField(ctx, "login_form_btc_address", address, zapcore.DebugLevel, "Address field"); got != address {
		f.logger.Error("Address field did not accept the value")

		return false
	}

	if got, _ := f.inputField(ctx, "login_form_password", password, zapcore.DebugLevel, "Password field"); got != password {
		f.logger.Error("Password field did not accept the value")

		return false
	}

	if totpSecret != "" {
		code, codeErr := totp.GenerateCode(totpSecret, time.Now())
		if codeErr != nil {
			f.logger.Error("Generating the one-time code failed", zap.Error(codeErr))

			return false
		}

		if got, _ := f.inputField(ctx, "login_form_2fa", code, zapcore.DebugLevel, "One-time code field"); got != code {
			f.logger.Error("One-time code field did not accept the value")

			return false
		}
	}

	buttons := f.isNotAuthenticated(ctx, zapcore.ErrorLevel)
	if len(buttons) == 0 {
		return false
	}

	if clickErr := buttons[0].Click(); clickErr != nil {
		f.logger.Error("Clicking the sign in button failed", zap.Error(clickErr))

		return false
	}

	if len(f.isAuthenticated(ctx, zapcore.ErrorLevel)) == 0 {
		f.logger.Error("User is not signed in")

		return false
	}

	f.password = password
	f.totpSecret = totpSecret

	f.logger.Info("User is signed in")

	return true
}

// SignOut ends the user session. An already-anonymous session counts as
// success.
func (f *Faucet) SignOut(ctx context.Context) (signedOut bool) {
	const op = "SignOut"

	var err error

	ctx, step := tracing.StartSpan(ctx, f.tracer, f.logger, op)
	defer func() { step.End(err) }()

	links := f.isAuthenticated(ctx, zapcore.WarnLevel)
	if len(links) == 0 {
		f.logger.Info("User is already signed out")

		return true
	}

	if clickErr := links[0].Click(); clickErr != nil {
		f.logger.Error("Clicking the sign out link failed", zap.Error(clickErr))

		return false
	}

	if len(f.isNotAuthenticated(ctx, zapcore.ErrorLevel)) == 0 {
		f.logger.Error("User is not signed out")

		return false
	}

	f.password = ""
	f.totpSecret = ""

	f.logger.Info("User is signed out")

	return true
}

// Quit closes the browser session with every window it holds.
func (f *Faucet) Quit(ctx context.Context) {
	if windows := f.driver.WindowHandles(); len(windows) > 1 {
		f.logger.Debug("Closing extra browser windows", zap.Int("windows", len(windows)))
	}

	if err := f.driver.Quit(ctx); err != nil {
		f.logger.Error("Closing the browser session failed", zap.Error(err))
	}
}
