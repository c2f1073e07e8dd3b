package faucet

import (
	"context"
	"fmt"
	"strings"

	"faucet-agent/internal/elements"
	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
	"faucet-agent/pkg/logg"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func tableID(category entity.BonusCategory) string {
	switch category {
	case entity.BonusBTC:
		return "fp_bonus_rewards"
	case entity.BonusLT:
		return "free_lott_rewards"
	case entity.BonusWOF:
		return "free_wof_rewards"
	}

	return ""
}

func (f *Faucet) bonusKeys(ctx context.Context, category entity.BonusCategory) []int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="` + tableID(category) + `"]/descendant::div[contains(@class,"reward_product_name")]`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})

	keys := make([]int, 0, len(nodes))
	for _, node := range nodes {
		keys = append(keys, f.coerce.Int(firstField(strings.ReplaceAll(f.text(node), "%", ""))))
	}

	return keys
}

func (f *Faucet) bonusCosts(ctx context.Context, category entity.BonusCategory) []int {
	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="` + tableID(category) + `"]/descendant::div[contains(@class,"reward_dollar_value_style")]`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})

	costs := make([]int, 0, len(nodes))
	for _, node := range nodes {
		costs = append(costs, f.coerce.Int(strings.ReplaceAll(strings.TrimSpace(f.text(node)), ",", "")))
	}

	return costs
}

func (f *Faucet) bonusButtons(ctx context.Context, category entity.BonusCategory) []ports.Node {
	return f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="` + tableID(category) + `"]/descendant::button[contains(@class,"reward_link_redeem_button_style")]`),
		Condition: entity.Present,
		Level:     zapcore.ErrorLevel,
	})
}

// BonusTable reads the bonus variants offered for the category. Keys and
// costs are read in separate passes, so a page mutation between them can
// leave the lists uneven; the table is then truncated to the shorter one.
func (f *Faucet) BonusTable(ctx context.Context, category entity.BonusCategory) entity.BonusTable {
	keys := f.bonusKeys(ctx, category)
	costs := f.bonusCosts(ctx, category)

	if len(keys) != len(costs) {
		f.logger.Error("Bonus keys and costs were read in different quantities",
			zap.String(logg.Category, string(category)),
			zap.Int("keys", len(keys)),
			zap.Int("costs", len(costs)))

		if len(costs) < len(keys) {
			keys = keys[:len(costs)]
		} else {
			costs = costs[:len(keys)]
		}
	}

	entries := make([]entity.BonusEntry, 0, len(keys))
	for i, key := range keys {
		entries = append(entries, entity.BonusEntry{Key: key, Cost: costs[i]})
	}

	return entity.BonusTable{Entries: entries}
}

// activeBonusKey reads which bonus of the category is currently active.
// Absence of the marker element means no bonus is active. A marker whose
// key is not offered in the table is a data fault and reported as unknown,
// which is distinct from none.
func (f *Faucet) activeBonusKey(ctx context.Context, category entity.BonusCategory, keys []int) entity.ActiveBonus {
	container := strings.Replace(tableID(category), "_rewards", "", 1)

	nodes := f.waiter.Wait(ctx, elements.Query{
		Locator:   entity.XPath(`//*[@id="bonus_container_` + container + `"]/p/span[1]`),
		Condition: entity.Present,
		Level:     zapcore.DebugLevel,
	})
	if len(nodes) == 0 {
		return entity.ActiveBonusNone
	}

	key := f.coerce.Int(firstField(strings.ReplaceAll(f.text(nodes[0]), "%", "")))

	for _, known := range keys {
		if key == known {
			return entity.ActiveBonus(key)
		}
	}

	f.logger.Error("Key of the detected active bonus was not identified",
		zap.String(logg.Category, string(category)),
		zap.Int("key", key))

	return entity.ActiveBonusUnknown
}

func (f *Faucet) ActiveBonus(ctx context.Context, category entity.BonusCategory) entity.ActiveBonus {
	return f.activeBonusKey(ctx, category, f.bonusKeys(ctx, category))
}

// ActivateBonus activates the bonus with the given key when no bonus of the
// category is active yet and the balance covers its cost plus, when captcha
// checks are on, the free play cost. Key 0 requests no activation. The
// returned state is re-read after clicking.
func (f *Faucet) ActivateBonus(ctx context.Context, category entity.BonusCategory, key int, level zapcore.Level, what string) entity.ActiveBonus {
	keys := f.bonusKeys(ctx, category)
	if len(keys) == 0 {
		return entity.ActiveBonusUnknown
	}

	current := f.activeBonusKey(ctx, category, keys)
	if current != entity.ActiveBonusNone || key == 0 {
		return current
	}

	index := -1
	for i, known := range keys {
		if key == known {
			index = i

			break
		}
	}

	if index < 0 {
		f.logger.Error("Requested bonus key is not offered",
			zap.String(logg.Category, string(category)),
			zap.Int("key", key))

		return current
	}

	cost, ok := f.BonusTable(ctx, category).Cost(key)
	if !ok {
		return current
	}

	required := cost
	if f.checkForCaptcha {
		required += f.FreePlayCost(ctx)
	}

	if balance := f.BalanceRP(ctx); required > balance {
		f.logger.Warn("Not enough reward points to activate the bonus",
			zap.String(logg.Category, string(category)),
			zap.Int("key", key),
			zap.Int("required", required),
			zap.Int("balance", balance))

		return current
	}

	buttons := f.bonusButtons(ctx, category)
	if index >= len(buttons) {
		f.logger.Error("Bonus activation button was not found",
			zap.String(logg.Category, string(category)),
			zap.Int("key", key))

		return current
	}

	_ = buttons[index].Click()

	current = f.activeBonusKey(ctx, category, keys)

	if current == entity.ActiveBonus(key) {
		if what == "" {
			what = fmt.Sprintf("Bonus %d of category %q", key, category)
		}

		f.logger.Log(level, fmt.Sprintf("%s activated (%d RP spent)", what, cost))
	}

	return current
}

// ActivateBonuses walks the requests in order. After the first request that
// does not end with its bonus active, the remaining ones are only read, not
// acted upon.
func (f *Faucet) ActivateBonuses(ctx context.Context, requests []entity.BonusRequest) []entity.BonusOutcome {
	outcomes := make([]entity.BonusOutcome, 0, len(requests))
	allOK := true

	for _, req := range requests {
		outcome := entity.BonusOutcome{
			Category:  req.Category,
			Requested: req.Key,
		}

		if allOK {
			outcome.Attempted = true
			outcome.Current = f.ActivateBonus(ctx, req.Category, req.Key, zapcore.InfoLevel,
				bonusDescription(req.Category, req.Key))
		} else {
			outcome.Current = f.ActiveBonus(ctx, req.Category)
		}

		if !outcome.Activated() {
			allOK = false
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func bonusDescription(category entity.BonusCategory, key int) string {
	switch category {
	case entity.BonusBTC:
		return fmt.Sprintf("Free BTC bonus of %d%%", key)
	case entity.BonusLT:
		return fmt.Sprintf("Bonus of %d lottery ticket%s per roll", key, plural(key))
	case entity.BonusWOF:
		return fmt.Sprintf("Bonus of %d wheel of fortune spin%s", key, plural(key))
	}

	return fmt.Sprintf("Bonus %d", key)
}
