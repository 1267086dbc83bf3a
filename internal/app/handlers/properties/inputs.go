package properties

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
)

// PricingInput carries decimal amounts as strings so no precision is lost in transit.
type PricingInput struct {
	Currency               string `json:"currency"`
	BasePricePerNight      string `json:"base_price_per_night" validate:"required"`
	CleaningFee            string `json:"cleaning_fee"`
	ServiceFee             string `json:"service_fee"`
	TaxRatePercent         string `json:"tax_rate_percent"`
	MinimumStayNights      int    `json:"minimum_stay_nights"`
	MaximumStayNights      int    `json:"maximum_stay_nights"`
	WeeklyDiscountPercent  string `json:"weekly_discount_percent"`
	MonthlyDiscountPercent string `json:"monthly_discount_percent"`
}

// Config validates the input. Empty amounts are zero; a zero minimum stay becomes one night.
func (in PricingInput) Config(defaultCurrency string) (pricing.Config, error) {
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"base_price_per_night", in.BasePricePerNight, new(decimal.Decimal)},
		{"cleaning_fee", in.CleaningFee, new(decimal.Decimal)},
		{"service_fee", in.ServiceFee, new(decimal.Decimal)},
		{"tax_rate_percent", in.TaxRatePercent, new(decimal.Decimal)},
		{"weekly_discount_percent", in.WeeklyDiscountPercent, new(decimal.Decimal)},
		{"monthly_discount_percent", in.MonthlyDiscountPercent, new(decimal.Decimal)},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return pricing.Config{}, fmt.Errorf("%w: %s is not a number", pricing.ErrInvalidPricingInput, f.name)
		}
		*f.dst = d
	}
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = defaultCurrency
	}
	minNights := in.MinimumStayNights
	if minNights == 0 {
		minNights = 1
	}
	return pricing.NewConfig(pricing.ConfigParams{
		Currency:               currency,
		BasePricePerNight:      *fields[0].dst,
		CleaningFee:            *fields[1].dst,
		ServiceFee:             *fields[2].dst,
		TaxRatePercent:         *fields[3].dst,
		MinimumStayNights:      minNights,
		MaximumStayNights:      in.MaximumStayNights,
		WeeklyDiscountPercent:  *fields[4].dst,
		MonthlyDiscountPercent: *fields[5].dst,
	})
}

type AddressInput struct {
	Line1   string  `json:"line1"`
	Line2   string  `json:"line2"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func (a AddressInput) domain() domainproperty.Address {
	return domainproperty.Address{
		Line1:   strings.TrimSpace(a.Line1),
		Line2:   strings.TrimSpace(a.Line2),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Country: strings.TrimSpace(a.Country),
		Lat:     a.Lat,
		Lon:     a.Lon,
	}
}

type DetailsInput struct {
	Title                string       `json:"title" validate:"required,max=140"`
	Description          string       `json:"description" validate:"max=5000"`
	PropertyType         string       `json:"property_type"`
	Address              AddressInput `json:"address"`
	Amenities            []string     `json:"amenities" validate:"max=50"`
	MaxGuests            int          `json:"max_guests" validate:"gte=1,lte=50"`
	Bedrooms             int          `json:"bedrooms" validate:"gte=0"`
	Bathrooms            int          `json:"bathrooms" validate:"gte=0"`
	CancellationPolicyID string       `json:"cancellation_policy" validate:"omitempty,oneof=flexible moderate strict"`
}
