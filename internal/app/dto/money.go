package dto

import (
	"stayly/internal/domain/pricing"
	"stayly/internal/domain/shared/money"
)

// DisplayPlaces is the rounding applied to amounts leaving the service.
const DisplayPlaces = 2

type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MapMoney rounds half away from zero to DisplayPlaces.
func MapMoney(m money.Money) Money {
	return Money{Amount: m.Amount.StringFixed(DisplayPlaces), Currency: m.Currency}
}

type Discount struct {
	Kind    string `json:"kind"`
	Percent string `json:"percent"`
	Amount  Money  `json:"amount"`
}

// PriceBreakdown is the display form of pricing.Breakdown.
type PriceBreakdown struct {
	Nights         int      `json:"nights"`
	NightlyRate    Money    `json:"nightly_rate"`
	BaseTotal      Money    `json:"base_total"`
	Discount       Discount `json:"discount"`
	CleaningFee    Money    `json:"cleaning_fee"`
	ServiceFee     Money    `json:"service_fee"`
	Subtotal       Money    `json:"subtotal"`
	TaxRatePercent string   `json:"tax_rate_percent"`
	TaxAmount      Money    `json:"tax_amount"`
	TotalAmount    Money    `json:"total_amount"`
}

func MapBreakdown(b pricing.Breakdown) PriceBreakdown {
	return PriceBreakdown{
		Nights:      b.Nights,
		NightlyRate: MapMoney(b.NightlyRate),
		BaseTotal:   MapMoney(b.BaseTotal),
		Discount: Discount{
			Kind:    string(b.Discount.Kind),
			Percent: b.Discount.Percent.String(),
			Amount:  MapMoney(b.Discount.Amount),
		},
		CleaningFee:    MapMoney(b.CleaningFee),
		ServiceFee:     MapMoney(b.ServiceFee),
		Subtotal:       MapMoney(b.Subtotal),
		TaxRatePercent: b.TaxRatePercent.String(),
		TaxAmount:      MapMoney(b.TaxAmount),
		TotalAmount:    MapMoney(b.TotalAmount),
	}
}
