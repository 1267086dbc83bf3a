package dto

import (
	"time"

	"stayly/internal/domain/availability"
	domainproperty "stayly/internal/domain/property"
)

type Address struct {
	Line1   string  `json:"line1"`
	Line2   string  `json:"line2,omitempty"`
	City    string  `json:"city"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

type PricingConfig struct {
	Currency               string `json:"currency"`
	BasePricePerNight      string `json:"base_price_per_night"`
	CleaningFee            string `json:"cleaning_fee"`
	ServiceFee             string `json:"service_fee"`
	TaxRatePercent         string `json:"tax_rate_percent"`
	MinimumStayNights      int    `json:"minimum_stay_nights"`
	MaximumStayNights      int    `json:"maximum_stay_nights,omitempty"`
	WeeklyDiscountPercent  string `json:"weekly_discount_percent"`
	MonthlyDiscountPercent string `json:"monthly_discount_percent"`
}

type DateRange struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type BlockedRange struct {
	DateRange
	Reason    string `json:"reason"`
	Note      string `json:"note,omitempty"`
	Reference string `json:"reference"`
}

type Property struct {
	ID                   string         `json:"id"`
	HostID               string         `json:"host_id"`
	Title                string         `json:"title"`
	Description          string         `json:"description,omitempty"`
	PropertyType         string         `json:"property_type,omitempty"`
	Address              Address        `json:"address"`
	Amenities            []string       `json:"amenities"`
	MaxGuests            int            `json:"max_guests"`
	Bedrooms             int            `json:"bedrooms"`
	Bathrooms            int            `json:"bathrooms"`
	CancellationPolicyID string         `json:"cancellation_policy,omitempty"`
	Pricing              *PricingConfig `json:"pricing,omitempty"`
	Windows              []DateRange    `json:"availability_windows"`
	Blocked              []BlockedRange `json:"blocked_ranges"`
	Photos               []string       `json:"photos"`
	State                string         `json:"state"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func MapProperty(p *domainproperty.Property) Property {
	out := Property{
		ID:                   string(p.ID),
		HostID:               string(p.Host),
		Title:                p.Title,
		Description:          p.Description,
		PropertyType:         p.PropertyType,
		Address:              Address(p.Address),
		Amenities:            append([]string{}, p.Amenities...),
		MaxGuests:            p.MaxGuests,
		Bedrooms:             p.Bedrooms,
		Bathrooms:            p.Bathrooms,
		CancellationPolicyID: p.CancellationPolicyID,
		Windows:              make([]DateRange, 0, len(p.Schedule.Windows)),
		Blocked:              make([]BlockedRange, 0, len(p.Schedule.Blocked)),
		Photos:               append([]string{}, p.Photos...),
		State:                string(p.State),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if !p.Pricing.IsZero() {
		params := p.Pricing.Params()
		out.Pricing = &PricingConfig{
			Currency:               params.Currency,
			BasePricePerNight:      params.BasePricePerNight.String(),
			CleaningFee:            params.CleaningFee.String(),
			ServiceFee:             params.ServiceFee.String(),
			TaxRatePercent:         params.TaxRatePercent.String(),
			MinimumStayNights:      params.MinimumStayNights,
			MaximumStayNights:      params.MaximumStayNights,
			WeeklyDiscountPercent:  params.WeeklyDiscountPercent.String(),
			MonthlyDiscountPercent: params.MonthlyDiscountPercent.String(),
		}
	}
	for _, w := range p.Schedule.Windows {
		out.Windows = append(out.Windows, DateRange{CheckIn: w.Range.CheckIn.Format(dateLayout), CheckOut: w.Range.CheckOut.Format(dateLayout)})
	}
	for _, b := range p.Schedule.Blocked {
		out.Blocked = append(out.Blocked, mapBlocked(b))
	}
	return out
}

func mapBlocked(b availability.BlockedRange) BlockedRange {
	return BlockedRange{
		DateRange: DateRange{CheckIn: b.Range.CheckIn.Format(dateLayout), CheckOut: b.Range.CheckOut.Format(dateLayout)},
		Reason:    string(b.Reason),
		Note:      b.Note,
		Reference: b.Reference,
	}
}

// PropertySummary is a catalog card.
type PropertySummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	City         string `json:"city"`
	Country      string `json:"country"`
	PropertyType string `json:"property_type,omitempty"`
	MaxGuests    int    `json:"max_guests"`
	NightlyRate  *Money `json:"nightly_rate,omitempty"`
	Photo        string `json:"photo,omitempty"`
	State        string `json:"state"`
}

func MapPropertySummary(p *domainproperty.Property) PropertySummary {
	out := PropertySummary{
		ID:           string(p.ID),
		Title:        p.Title,
		City:         p.Address.City,
		Country:      p.Address.Country,
		PropertyType: p.PropertyType,
		MaxGuests:    p.MaxGuests,
		State:        string(p.State),
	}
	if !p.Pricing.IsZero() {
		m := Money{Amount: p.Pricing.BasePricePerNight().StringFixed(DisplayPlaces), Currency: p.Pricing.Currency()}
		out.NightlyRate = &m
	}
	if len(p.Photos) > 0 {
		out.Photo = p.Photos[0]
	}
	return out
}

type PropertyCollection struct {
	Items  []PropertySummary `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}
