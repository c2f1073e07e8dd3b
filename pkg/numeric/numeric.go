// Package numeric converts scraped page text into numbers. The page is
// allowed to hand us garbage; conversion failures collapse to the zero
// value with a logged error so callers never branch on parse errors.
package numeric

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Coercer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Coercer {
	return &Coercer{logger: logger}
}

// Int returns the integer parsed from s, or 0 for empty or malformed input.
func (c *Coercer) Int(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		c.logger.Error("String is not suitable for conversion to int", zap.String("value", s))

		return 0
	}

	return n
}

// Float returns the float parsed from s, or 0 for empty or malformed input.
func (c *Coercer) Float(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.logger.Error("String is not suitable for conversion to float", zap.String("value", s))

		return 0
	}

	return f
}

// Decimal returns the decimal parsed from s, or decimal zero for empty or
// malformed input. Used for BTC amounts where floats would lose precision.
func (c *Coercer) Decimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		c.logger.Error("String is not suitable for conversion to decimal", zap.String("value", s))

		return decimal.Zero
	}

	return d
}
