package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stayly/internal/domain/availability"
	"stayly/internal/domain/pricing"
	"stayly/internal/domain/shared/daterange"
	"stayly/internal/domain/shared/money"
)

// Amounts are stored as decimal strings so no precision is lost to float64.

type moneyDocument struct {
	Amount   string `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount.String(), Currency: m.Currency}
}

func (d moneyDocument) toMoney() (money.Money, error) {
	if d.Currency == "" {
		return money.Money{}, nil
	}
	amount, err := parseDecimal(d.Amount)
	if err != nil {
		return money.Money{}, err
	}
	return money.Money{Amount: amount, Currency: d.Currency}, nil
}

type rangeDocument struct {
	CheckIn  time.Time `bson:"check_in"`
	CheckOut time.Time `bson:"check_out"`
}

func newRangeDocument(r daterange.DateRange) rangeDocument {
	return rangeDocument{CheckIn: r.CheckIn.UTC(), CheckOut: r.CheckOut.UTC()}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{CheckIn: d.CheckIn.UTC(), CheckOut: d.CheckOut.UTC()}
}

type pricingDocument struct {
	Currency               string `bson:"currency"`
	BasePricePerNight      string `bson:"base_price_per_night"`
	CleaningFee            string `bson:"cleaning_fee"`
	ServiceFee             string `bson:"service_fee"`
	TaxRatePercent         string `bson:"tax_rate_percent"`
	MinimumStayNights      int    `bson:"minimum_stay_nights"`
	MaximumStayNights      int    `bson:"maximum_stay_nights"`
	WeeklyDiscountPercent  string `bson:"weekly_discount_percent"`
	MonthlyDiscountPercent string `bson:"monthly_discount_percent"`
	// BaseNumeric duplicates the nightly rate for the search price filter and sort.
	BaseNumeric float64 `bson:"base_numeric"`
}

func newPricingDocument(cfg pricing.Config) *pricingDocument {
	if cfg.IsZero() {
		return nil
	}
	p := cfg.Params()
	base, _ := p.BasePricePerNight.Float64()
	return &pricingDocument{
		Currency:               p.Currency,
		BasePricePerNight:      p.BasePricePerNight.String(),
		CleaningFee:            p.CleaningFee.String(),
		ServiceFee:             p.ServiceFee.String(),
		TaxRatePercent:         p.TaxRatePercent.String(),
		MinimumStayNights:      p.MinimumStayNights,
		MaximumStayNights:      p.MaximumStayNights,
		WeeklyDiscountPercent:  p.WeeklyDiscountPercent.String(),
		MonthlyDiscountPercent: p.MonthlyDiscountPercent.String(),
		BaseNumeric:            base,
	}
}

func (d *pricingDocument) toConfig() (pricing.Config, error) {
	if d == nil {
		return pricing.Config{}, nil
	}
	fields := []string{d.BasePricePerNight, d.CleaningFee, d.ServiceFee, d.TaxRatePercent, d.WeeklyDiscountPercent, d.MonthlyDiscountPercent}
	values := make([]decimal.Decimal, len(fields))
	for i, raw := range fields {
		v, err := parseDecimal(raw)
		if err != nil {
			return pricing.Config{}, err
		}
		values[i] = v
	}
	return pricing.NewConfig(pricing.ConfigParams{
		Currency:               d.Currency,
		BasePricePerNight:      values[0],
		CleaningFee:            values[1],
		ServiceFee:             values[2],
		TaxRatePercent:         values[3],
		MinimumStayNights:      d.MinimumStayNights,
		MaximumStayNights:      d.MaximumStayNights,
		WeeklyDiscountPercent:  values[4],
		MonthlyDiscountPercent: values[5],
	})
}

type blockDocument struct {
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	Note      string        `bson:"note,omitempty"`
	Reference string        `bson:"reference"`
	CreatedAt time.Time     `bson:"created_at"`
}

type scheduleDocument struct {
	Windows []rangeDocument `bson:"windows"`
	Blocked []blockDocument `bson:"blocked"`
}

func newScheduleDocument(s availability.Schedule) scheduleDocument {
	doc := scheduleDocument{
		Windows: make([]rangeDocument, 0, len(s.Windows)),
		Blocked: make([]blockDocument, 0, len(s.Blocked)),
	}
	for _, w := range s.Windows {
		doc.Windows = append(doc.Windows, newRangeDocument(w.Range))
	}
	for _, b := range s.Blocked {
		doc.Blocked = append(doc.Blocked, blockDocument{
			Range:     newRangeDocument(b.Range),
			Reason:    string(b.Reason),
			Note:      b.Note,
			Reference: b.Reference,
			CreatedAt: b.CreatedAt,
		})
	}
	return doc
}

func (d scheduleDocument) toSchedule() availability.Schedule {
	s := availability.Schedule{}
	for _, w := range d.Windows {
		s.Windows = append(s.Windows, availability.Window{Range: w.toRange()})
	}
	for _, b := range d.Blocked {
		s.Blocked = append(s.Blocked, availability.BlockedRange{
			Range:     b.Range.toRange(),
			Reason:    availability.BlockReason(b.Reason),
			Note:      b.Note,
			Reference: b.Reference,
			CreatedAt: b.CreatedAt.UTC(),
		})
	}
	return s
}

type breakdownDocument struct {
	Nights          int           `bson:"nights"`
	NightlyRate     moneyDocument `bson:"nightly_rate"`
	BaseTotal       moneyDocument `bson:"base_total"`
	DiscountKind    string        `bson:"discount_kind"`
	DiscountPercent string        `bson:"discount_percent"`
	DiscountAmount  moneyDocument `bson:"discount_amount"`
	CleaningFee     moneyDocument `bson:"cleaning_fee"`
	ServiceFee      moneyDocument `bson:"service_fee"`
	Subtotal        moneyDocument `bson:"subtotal"`
	TaxRatePercent  string        `bson:"tax_rate_percent"`
	TaxAmount       moneyDocument `bson:"tax_amount"`
	TotalAmount     moneyDocument `bson:"total_amount"`
}

func newBreakdownDocument(b pricing.Breakdown) breakdownDocument {
	return breakdownDocument{
		Nights:          b.Nights,
		NightlyRate:     newMoneyDocument(b.NightlyRate),
		BaseTotal:       newMoneyDocument(b.BaseTotal),
		DiscountKind:    string(b.Discount.Kind),
		DiscountPercent: b.Discount.Percent.String(),
		DiscountAmount:  newMoneyDocument(b.Discount.Amount),
		CleaningFee:     newMoneyDocument(b.CleaningFee),
		ServiceFee:      newMoneyDocument(b.ServiceFee),
		Subtotal:        newMoneyDocument(b.Subtotal),
		TaxRatePercent:  b.TaxRatePercent.String(),
		TaxAmount:       newMoneyDocument(b.TaxAmount),
		TotalAmount:     newMoneyDocument(b.TotalAmount),
	}
}

func (d breakdownDocument) toBreakdown() (pricing.Breakdown, error) {
	out := pricing.Breakdown{Nights: d.Nights, Discount: pricing.Discount{Kind: pricing.DiscountKind(d.DiscountKind)}}
	var err error
	moneyFields := []struct {
		src moneyDocument
		dst *money.Money
	}{
		{d.NightlyRate, &out.NightlyRate},
		{d.BaseTotal, &out.BaseTotal},
		{d.DiscountAmount, &out.Discount.Amount},
		{d.CleaningFee, &out.CleaningFee},
		{d.ServiceFee, &out.ServiceFee},
		{d.Subtotal, &out.Subtotal},
		{d.TaxAmount, &out.TaxAmount},
		{d.TotalAmount, &out.TotalAmount},
	}
	for _, f := range moneyFields {
		if *f.dst, err = f.src.toMoney(); err != nil {
			return pricing.Breakdown{}, err
		}
	}
	if out.Discount.Percent, err = parseDecimal(d.DiscountPercent); err != nil {
		return pricing.Breakdown{}, err
	}
	if out.TaxRatePercent, err = parseDecimal(d.TaxRatePercent); err != nil {
		return pricing.Breakdown{}, err
	}
	return out, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("mongo: stored decimal %q: %w", raw, err)
	}
	return d, nil
}
