package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stayly/internal/domain/shared/money"
)

type DiscountKind string

const (
	DiscountNone    DiscountKind = "none"
	DiscountWeekly  DiscountKind = "weekly"
	DiscountMonthly DiscountKind = "monthly"
)

type Discount struct {
	Kind    DiscountKind
	Percent decimal.Decimal
	Amount  money.Money
}

// Breakdown is the itemized price of a stay. Values are exact; nothing is rounded.
type Breakdown struct {
	Nights         int
	NightlyRate    money.Money
	BaseTotal      money.Money
	Discount       Discount
	CleaningFee    money.Money
	ServiceFee     money.Money
	Subtotal       money.Money
	TaxRatePercent decimal.Decimal
	TaxAmount      money.Money
	TotalAmount    money.Money
}

// Compute prices a stay of the given length:
//
//	baseTotal = nightly * nights
//	discount  = baseTotal * percent / 100   (monthly from 28 nights, else weekly from 7)
//	subtotal  = baseTotal - discount + cleaning + service
//	tax       = subtotal * taxRate / 100
//	total     = subtotal + tax
func Compute(cfg Config, nights int) (Breakdown, error) {
	if cfg.IsZero() {
		return Breakdown{}, invalid("pricing config is not initialized")
	}
	if nights <= 0 {
		return Breakdown{}, invalid("nights must be positive")
	}
	if nights < cfg.minimumStayNights {
		return Breakdown{}, fmt.Errorf("%w: minimum stay is %d nights, requested %d", ErrStayLengthOutOfBounds, cfg.minimumStayNights, nights)
	}
	if cfg.maximumStayNights > 0 && nights > cfg.maximumStayNights {
		return Breakdown{}, fmt.Errorf("%w: maximum stay is %d nights, requested %d", ErrStayLengthOutOfBounds, cfg.maximumStayNights, nights)
	}

	cur := cfg.currency
	nightly := money.Money{Amount: cfg.basePricePerNight, Currency: cur}
	baseTotal := nightly.Multiply(int64(nights))

	discount := selectDiscount(cfg, nights)
	discount.Amount = baseTotal.Percent(discount.Percent)

	cleaning := money.Money{Amount: cfg.cleaningFee, Currency: cur}
	service := money.Money{Amount: cfg.serviceFee, Currency: cur}
	subtotal := money.Money{
		Amount:   baseTotal.Amount.Sub(discount.Amount.Amount).Add(cleaning.Amount).Add(service.Amount),
		Currency: cur,
	}
	tax := subtotal.Percent(cfg.taxRatePercent)
	total := money.Money{Amount: subtotal.Amount.Add(tax.Amount), Currency: cur}

	return Breakdown{
		Nights:         nights,
		NightlyRate:    nightly,
		BaseTotal:      baseTotal,
		Discount:       discount,
		CleaningFee:    cleaning,
		ServiceFee:     service,
		Subtotal:       subtotal,
		TaxRatePercent: cfg.taxRatePercent,
		TaxAmount:      tax,
		TotalAmount:    total,
	}, nil
}

func selectDiscount(cfg Config, nights int) Discount {
	switch {
	case nights >= MonthlyThresholdNights && cfg.monthlyDiscountPercent.IsPositive():
		return Discount{Kind: DiscountMonthly, Percent: cfg.monthlyDiscountPercent}
	case nights >= WeeklyThresholdNights && cfg.weeklyDiscountPercent.IsPositive():
		return Discount{Kind: DiscountWeekly, Percent: cfg.weeklyDiscountPercent}
	default:
		return Discount{Kind: DiscountNone, Percent: decimal.Zero}
	}
}

// Verify re-derives subtotal and total from the components.
func (b Breakdown) Verify() error {
	subtotal := b.BaseTotal.Amount.Sub(b.Discount.Amount.Amount).Add(b.CleaningFee.Amount).Add(b.ServiceFee.Amount)
	if !subtotal.Equal(b.Subtotal.Amount) {
		return ErrTotalMismatch
	}
	if !subtotal.Add(b.TaxAmount.Amount).Equal(b.TotalAmount.Amount) {
		return ErrTotalMismatch
	}
	for _, m := range []money.Money{b.BaseTotal, b.Discount.Amount, b.CleaningFee, b.ServiceFee, b.TaxAmount, b.TotalAmount} {
		if m.IsNegative() {
			return fmt.Errorf("%w: negative component", ErrInvalidPricingInput)
		}
	}
	return nil
}

// Currency of every amount in the breakdown.
func (b Breakdown) Currency() string {
	return b.TotalAmount.Currency
}

// Rounded returns a copy with every amount rounded for display.
func (b Breakdown) Rounded(places int32) Breakdown {
	out := b
	out.NightlyRate = b.NightlyRate.Round(places)
	out.BaseTotal = b.BaseTotal.Round(places)
	out.Discount.Amount = b.Discount.Amount.Round(places)
	out.CleaningFee = b.CleaningFee.Round(places)
	out.ServiceFee = b.ServiceFee.Round(places)
	out.Subtotal = b.Subtotal.Round(places)
	out.TaxAmount = b.TaxAmount.Round(places)
	out.TotalAmount = b.TotalAmount.Round(places)
	return out
}
