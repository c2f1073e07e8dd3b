package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestInt(t *testing.T) {
	c := New(zaptest.NewLogger(t))

	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "plain", in: "42", want: 42},
		{name: "padded", in: "  7 ", want: 7},
		{name: "empty", in: "", want: 0},
		{name: "blank", in: "   ", want: 0},
		{name: "garbage", in: "4,2", want: 0},
		{name: "float", in: "4.2", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Int(tt.in))
		})
	}
}

func TestFloat(t *testing.T) {
	c := New(zaptest.NewLogger(t))

	assert.Equal(t, 4.2, c.Float("4.2"))
	assert.Equal(t, 0.0, c.Float(""))
	assert.Equal(t, 0.0, c.Float("four"))
}

func TestDecimal(t *testing.T) {
	c := New(zaptest.NewLogger(t))

	assert.True(t, c.Decimal("0.00000123").Equal(decimal.RequireFromString("0.00000123")))
	assert.True(t, c.Decimal("").IsZero())
	assert.True(t, c.Decimal("x").IsZero())
}
