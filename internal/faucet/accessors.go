package faucet

import (
	"context"
	"strings"

	"faucet-agent/internal/elements"
	"faucet-agent/internal/entity"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// inputField fills the field with value (when non-empty) and returns the
// field's current value. The action is skipped when the field already holds
// the requested value; success is logged only after the re-read confirms
// it. ok is false when the field could not be found at all.
func (f *Faucet) inputField(ctx context.Context, id, value string, level zapcore.Level, what string) (current string, ok bool) {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ID(id),
		Condition: entity.Visible,
		Level:     zapcore.ErrorLevel,
	})
	if len(nodes) == 0 {
		return "", false
	}

	current, err := nodes[0].Attribute("value")
	if err != nil {
		f.logger.Debug("Reference to the input field was lost while reading its value", zap.Error(err))

		return "", false
	}

	if value == "" {
		return current, true
	}

	if current != value {
		if err := nodes[0].Clear(); err == nil {
			_ = nodes[0].Type(value)
		}

		current, err = nodes[0].Property("value")
		if err != nil {
			f.logger.Debug("Reference to the input field was lost after typing", zap.Error(err))

			return "", false
		}
	}

	if current == value {
		if what == "" {
			what = `Input field with id "` + id + `"`
		}

		f.logger.Log(level, what+" filled")
	}

	return current, true
}

// checkboxState returns the checkbox state and, when value is non-nil,
// clicks it into the requested state first. The click is skipped when the
// state already matches; success is logged only when the re-read agrees.
// ok is false when the state could not be determined.
func (f *Faucet) checkboxState(ctx context.Context, id string, value *bool, level zapcore.Level, what string) (state bool, ok bool) {
	// The clickable input is hidden; its styled sibling span carries the
	// visible "checked" state.
	stateNodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="` + id + `"]/following-sibling::span[contains(@class,"checkbox")]`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
	if len(stateNodes) == 0 {
		return false, false
	}

	class, err := stateNodes[0].Attribute("class")
	if err != nil {
		f.logger.Debug("Reference to the checkbox state element was lost", zap.Error(err))

		return false, false
	}

	state = strings.Contains(class, "checked")

	if value == nil {
		return state, true
	}

	if state != *value {
		inputs := f.waiter.Wait(ctx, elements.Query{
			Locator:   entity.ID(id),
			Condition: entity.Present,
			Level:     zapcore.ErrorLevel,
		})
		if len(inputs) > 0 {
			_ = inputs[0].Click()

			class, err = stateNodes[0].Attribute("class")
			if err != nil {
				f.logger.Debug("Reference to the checkbox state element was lost after clicking", zap.Error(err))

				return false, false
			}

			state = strings.Contains(class, "checked")
		}
	}

	if state == *value {
		if what == "" {
			what = `Checkbox with id "` + id + `"`
		}

		if state {
			f.logger.Log(level, what+" checked")
		} else {
			f.logger.Log(level, what+" unchecked")
		}
	}

	return state, true
}

func (f *Faucet) StateSoundFreePlay(ctx context.Context) (bool, bool) {
	return f.checkboxState(ctx, "free_play_sound", nil, zapcore.DebugLevel, "")
}

func (f *Faucet) SetSoundFreePlay(ctx context.Context, value bool) {
	f.checkboxState(ctx, "free_play_sound", &value, zapcore.InfoLevel, "Free play sound")
}

func (f *Faucet) StateDisableLottery(ctx context.Context) (bool, bool) {
	return f.checkboxState(ctx, "disable_lottery_checkbox", nil, zapcore.DebugLevel, "")
}

func (f *Faucet) SetDisableLottery(ctx context.Context, value bool) {
	f.checkboxState(ctx, "disable_lottery_checkbox", &value, zapcore.InfoLevel, "Disable lottery")
}

func (f *Faucet) StateDisableInterest(ctx context.Context) (bool, bool) {
	return f.checkboxState(ctx, "disable_interest_checkbox", nil, zapcore.DebugLevel, "")
}

func (f *Faucet) SetDisableInterest(ctx context.Context, value bool) {
	f.checkboxState(ctx, "disable_interest_checkbox", &value, zapcore.InfoLevel, "Disable interest")
}

// currentSignFormID selects the sign form with the given id (when non-empty)
// and returns the id of the form currently shown, or "" when none is.
func (f *Faucet) currentSignFormID(ctx context.Context, id string, level zapcore.Level, what string) string {
	if id != "" {
		buttons := f.waiter.Wait(ctx, elements.Query{
			Locator:   entity.ClassName(strings.Replace(id, "form", "menu_button", 1)),
			Condition: entity.Present,
			Level:     zapcore.ErrorLevel,
		})
		if len(buttons) > 0 {
			_ = buttons[0].Click()
		}
	}

	var visible []string

	for _, formID := range []string{"signup_form", "login_form"} {
		nodes := f.waiter.Wait(ctx, elements.Query{
			Locator:   entity.ID(formID),
			Condition: entity.Present,
			Level:     zapcore.ErrorLevel,
		})
		if len(nodes) == 0 {
			continue
		}

		shown, err := nodes[0].Visible()
		if err != nil || !shown {
			continue
		}

		if got, err := nodes[0].Property("id"); err == nil {
			visible = append(visible, got)
		}
	}

	if len(visible) == 0 {
		return ""
	}

	if visible[0] == id {
		if what == "" {
			what = `Current sign form id: "` + id + `"`
		}

		f.logger.Log(level, what)
	}

	return visible[0]
}

// currentPageTabID selects the page tab with the given id (when non-empty)
// and returns the id of the tab currently shown, or "" when none is.
func (f *Faucet) currentPageTabID(ctx context.Context, id string, level zapcore.Level, what string) string {
	if id != "" {
		links := f.waiter.Wait(ctx, elements.Query{
			Locator:   entity.CSS("a." + strings.Replace(id, "tab", "link", 1)),
			Condition: entity.Present,
			Level:     zapcore.ErrorLevel,
		})
		if len(links) > 0 {
			_ = links[0].Click()
		}
	}

	var visible []string

	tabs := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.ClassName("page_tabs"),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})

	for _, tab := range tabs {
		shown, err := tab.Visible()
		if err != nil || !shown {
			continue
		}

		if got, err := tab.Property("id"); err == nil {
			visible = append(visible, got)
		}
	}

	if len(visible) == 0 {
		return ""
	}

	if visible[0] == id {
		if what == "" {
			what = `Current page tab id: "` + id + `"`
		}

		f.logger.Log(level, what)
	}

	return visible[0]
}

// closeModal dismisses a modal when it is shown. Returns true once the
// modal is confirmed gone.
func (f *Faucet) closeModal(ctx context.Context, modal, closeButton entity.Locator, level zapcore.Level, what string) bool {
	modals := f.waiter.Wait(ctx, elements.Query{
		Locator:   modal,
		Condition: entity.Visible,
		Level:     zapcore.WarnLevel,
	})
	if len(modals) == 0 {
		return false
	}

	buttons := f.waiter.Wait(ctx, elements.Query{
		Parent:    modals[0],
		Locator:   closeButton,
		Condition: entity.Present,
		Level:     zapcore.WarnLevel,
	})
	if len(buttons) == 0 {
		return false
	}

	_ = buttons[0].Click()

	closed := len(f.waiter.Wait(ctx, elements.Query{
		Locator:   modal,
		Condition: entity.NotVisible,
		Level:     zapcore.DebugLevel,
	})) > 0

	if !closed {
		closed = len(f.waiter.Wait(ctx, elements.Query{
			Locator:   modal,
			Condition: entity.Visible,
			Inverted:  true,
			Level:     zapcore.WarnLevel,
		})) > 0
	}

	if closed {
		if what == "" {
			what = `Modal window with ` + string(modal.Strategy) + ` "` + modal.Value + `"`
		}

		f.logger.Log(level, what+" closed")
	}

	return closed
}

func (f *Faucet) CloseCookieWarningBanner(ctx context.Context) bool {
	return f.closeModal(ctx, entity.CSS("div.cc_banner-wrapper"), entity.CSS("a.cc_btn"),
		zapcore.InfoLevel, "Cookie warning banner")
}

func (f *Faucet) CloseNotificationModal(ctx context.Context) bool {
	return f.closeModal(ctx, entity.ID("push_notification_modal"), entity.CSS("div.pushpad_deny_button"),
		zapcore.InfoLevel, "Modal notification window")
}

func (f *Faucet) CloseAfterFreePlayModal(ctx context.Context) bool {
	return f.closeModal(ctx, entity.ID("myModal22"), entity.CSS("a.close-reveal-modal"),
		zapcore.InfoLevel, "Modal window after free play")
}
