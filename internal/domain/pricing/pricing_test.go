package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/domain/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func baseParams() pricing.ConfigParams {
	return pricing.ConfigParams{
		Currency:          "INR",
		BasePricePerNight: dec("5000"),
		CleaningFee:       dec("500"),
		ServiceFee:        dec("300"),
		TaxRatePercent:    dec("18"),
		MinimumStayNights: 1,
	}
}

func TestComputeReferenceScenario(t *testing.T) {
	params := baseParams()
	params.WeeklyDiscountPercent = dec("10")
	cfg := pricing.MustConfig(params)

	b, err := pricing.Compute(cfg, 10)
	require.NoError(t, err)

	assert.Equal(t, 10, b.Nights)
	assert.True(t, b.BaseTotal.Amount.Equal(dec("50000")), b.BaseTotal.String())
	assert.Equal(t, pricing.DiscountWeekly, b.Discount.Kind)
	assert.True(t, b.Discount.Percent.Equal(dec("10")))
	assert.True(t, b.Discount.Amount.Amount.Equal(dec("5000")))
	assert.True(t, b.Subtotal.Amount.Equal(dec("45800")))
	assert.True(t, b.TaxAmount.Amount.Equal(dec("8244")))
	assert.True(t, b.TotalAmount.Amount.Equal(dec("54044")))
	assert.Equal(t, "INR", b.Currency())
	assert.NoError(t, b.Verify())
}

func TestComputeDiscountTiers(t *testing.T) {
	params := baseParams()
	params.WeeklyDiscountPercent = dec("10")
	params.MonthlyDiscountPercent = dec("25")
	both := pricing.MustConfig(params)

	weeklyOnly := baseParams()
	weeklyOnly.WeeklyDiscountPercent = dec("10")

	tests := []struct {
		name    string
		cfg     pricing.Config
		nights  int
		kind    pricing.DiscountKind
		percent string
	}{
		{name: "6 nights", cfg: both, nights: 6, kind: pricing.DiscountNone, percent: "0"},
		{name: "7 nights", cfg: both, nights: 7, kind: pricing.DiscountWeekly, percent: "10"},
		{name: "27 nights", cfg: both, nights: 27, kind: pricing.DiscountWeekly, percent: "10"},
		{name: "28 nights monthly wins", cfg: both, nights: 28, kind: pricing.DiscountMonthly, percent: "25"},
		{name: "28 nights without monthly", cfg: pricing.MustConfig(weeklyOnly), nights: 28, kind: pricing.DiscountWeekly, percent: "10"},
		{name: "7 nights without discounts", cfg: pricing.MustConfig(baseParams()), nights: 7, kind: pricing.DiscountNone, percent: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := pricing.Compute(tt.cfg, tt.nights)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, b.Discount.Kind)
			assert.True(t, b.Discount.Percent.Equal(dec(tt.percent)))
			assert.NoError(t, b.Verify())
		})
	}
}

func TestComputeStayBounds(t *testing.T) {
	params := baseParams()
	params.MinimumStayNights = 3
	params.MaximumStayNights = 14
	cfg := pricing.MustConfig(params)

	_, err := pricing.Compute(cfg, 3)
	assert.NoError(t, err)
	_, err = pricing.Compute(cfg, 14)
	assert.NoError(t, err)

	_, err = pricing.Compute(cfg, 2)
	assert.ErrorIs(t, err, pricing.ErrStayLengthOutOfBounds)
	_, err = pricing.Compute(cfg, 15)
	assert.ErrorIs(t, err, pricing.ErrStayLengthOutOfBounds)

	_, err = pricing.Compute(cfg, 0)
	assert.ErrorIs(t, err, pricing.ErrInvalidPricingInput)
	_, err = pricing.Compute(pricing.Config{}, 5)
	assert.ErrorIs(t, err, pricing.ErrInvalidPricingInput)
}

func TestComputeTotalNeverBelowPreTax(t *testing.T) {
	params := baseParams()
	params.BasePricePerNight = dec("1234.57")
	params.TaxRatePercent = dec("12.5")
	params.WeeklyDiscountPercent = dec("7.5")
	params.MonthlyDiscountPercent = dec("33.3")
	params.MinimumStayNights = 2
	params.MaximumStayNights = 60
	cfg := pricing.MustConfig(params)

	for nights := 2; nights <= 60; nights++ {
		b, err := pricing.Compute(cfg, nights)
		require.NoError(t, err, "nights=%d", nights)
		preTax := b.BaseTotal.Amount.Add(b.CleaningFee.Amount).Add(b.ServiceFee.Amount).Sub(b.Discount.Amount.Amount)
		assert.True(t, b.TotalAmount.Amount.GreaterThanOrEqual(preTax), "nights=%d", nights)
		assert.NoError(t, b.Verify(), "nights=%d", nights)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	params := baseParams()
	params.TaxRatePercent = dec("18.75")
	params.WeeklyDiscountPercent = dec("12.5")
	cfg := pricing.MustConfig(params)

	first, err := pricing.Compute(cfg, 9)
	require.NoError(t, err)
	second, err := pricing.Compute(cfg, 9)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeKeepsFractions(t *testing.T) {
	params := baseParams()
	params.BasePricePerNight = dec("999")
	params.CleaningFee = decimal.Zero
	params.ServiceFee = decimal.Zero
	params.TaxRatePercent = dec("12.5")
	cfg := pricing.MustConfig(params)

	b, err := pricing.Compute(cfg, 1)
	require.NoError(t, err)
	assert.Equal(t, "124.875", b.TaxAmount.Amount.String())
	assert.Equal(t, "1123.875", b.TotalAmount.Amount.String())

	shown := b.Rounded(2)
	assert.Equal(t, "1123.88", shown.TotalAmount.Amount.StringFixed(2))
	assert.Equal(t, "1123.875", b.TotalAmount.Amount.String())
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *pricing.ConfigParams)
	}{
		{name: "zero base price", mutate: func(p *pricing.ConfigParams) { p.BasePricePerNight = decimal.Zero }},
		{name: "negative base price", mutate: func(p *pricing.ConfigParams) { p.BasePricePerNight = dec("-1") }},
		{name: "negative cleaning fee", mutate: func(p *pricing.ConfigParams) { p.CleaningFee = dec("-0.01") }},
		{name: "negative service fee", mutate: func(p *pricing.ConfigParams) { p.ServiceFee = dec("-5") }},
		{name: "tax above 100", mutate: func(p *pricing.ConfigParams) { p.TaxRatePercent = dec("100.5") }},
		{name: "negative tax", mutate: func(p *pricing.ConfigParams) { p.TaxRatePercent = dec("-1") }},
		{name: "weekly above 100", mutate: func(p *pricing.ConfigParams) { p.WeeklyDiscountPercent = dec("101") }},
		{name: "negative monthly", mutate: func(p *pricing.ConfigParams) { p.MonthlyDiscountPercent = dec("-3") }},
		{name: "minimum stay zero", mutate: func(p *pricing.ConfigParams) { p.MinimumStayNights = 0 }},
		{name: "maximum below minimum", mutate: func(p *pricing.ConfigParams) { p.MinimumStayNights = 5; p.MaximumStayNights = 4 }},
		{name: "bad currency", mutate: func(p *pricing.ConfigParams) { p.Currency = "RUPEE" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)
			_, err := pricing.NewConfig(p)
			assert.ErrorIs(t, err, pricing.ErrInvalidPricingInput)
		})
	}
}

func TestNewConfigDefaults(t *testing.T) {
	p := baseParams()
	p.Currency = ""
	cfg, err := pricing.NewConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "INR", cfg.Currency())
	assert.Equal(t, 0, cfg.MaximumStayNights())
	assert.Equal(t, "INR", cfg.Params().Currency)
}

func TestVerifyDetectsTampering(t *testing.T) {
	b, err := pricing.Compute(pricing.MustConfig(baseParams()), 2)
	require.NoError(t, err)
	b.TotalAmount.Amount = b.TotalAmount.Amount.Add(decimal.NewFromInt(1))
	assert.ErrorIs(t, b.Verify(), pricing.ErrTotalMismatch)
}
