package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/domain/shared/money"
)

func TestNew(t *testing.T) {
	m, err := money.New(decimal.NewFromInt(10), "inr")
	require.NoError(t, err)
	assert.Equal(t, "INR", m.Currency)

	_, err = money.New(decimal.NewFromInt(10), "RUPEE")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)
}

func TestParse(t *testing.T) {
	m, err := money.Parse(" 149.99 ", "USD")
	require.NoError(t, err)
	assert.True(t, m.Amount.Equal(decimal.RequireFromString("149.99")))

	_, err = money.Parse("abc", "USD")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestArithmetic(t *testing.T) {
	a := money.Must(5000, "INR")
	b := money.Must(300, "INR")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(money.Must(5300, "INR")))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(money.Must(4700, "INR")))

	assert.True(t, a.Multiply(10).Equal(money.Must(50000, "INR")))

	_, err = a.Add(money.Must(1, "USD"))
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestPercentKeepsPrecision(t *testing.T) {
	m := money.Must(999, "INR")
	got := m.Percent(decimal.RequireFromString("12.5"))
	assert.Equal(t, "124.875", got.Amount.String())
	assert.Equal(t, "124.88", got.Round(2).Amount.StringFixed(2))
}
