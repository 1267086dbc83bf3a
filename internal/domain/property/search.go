package property

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stayly/internal/domain/availability"
	"stayly/internal/domain/shared/daterange"
)

type SearchSort string

const (
	SortByPriceAsc  SearchSort = "price_asc"
	SortByPriceDesc SearchSort = "price_desc"
	SortByNewest    SearchSort = "newest"

	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams filter the published catalog. Zero values mean "any".
type SearchParams struct {
	Host          HostID
	States        []State
	City          string
	Country       string
	Amenities     []string
	PropertyTypes []string
	MinGuests     int
	PriceMin      decimal.Decimal
	PriceMax      decimal.Decimal
	CheckIn       time.Time
	CheckOut      time.Time
	EmptyWindows  availability.EmptyWindowsPolicy
	Sort          SearchSort
	Limit         int
	Offset        int
}

// Normalized returns a sanitized copy with defaults applied.
func (p SearchParams) Normalized() SearchParams {
	n := p
	n.City = strings.ToLower(strings.TrimSpace(n.City))
	n.Country = strings.ToLower(strings.TrimSpace(n.Country))
	n.Amenities = normalizeTokens(n.Amenities)
	n.PropertyTypes = normalizeTokens(n.PropertyTypes)
	if !n.CheckIn.IsZero() {
		n.CheckIn = daterange.StartOfDay(n.CheckIn)
	}
	if !n.CheckOut.IsZero() {
		n.CheckOut = daterange.StartOfDay(n.CheckOut)
	}
	if !n.CheckIn.IsZero() && !n.CheckOut.After(n.CheckIn) {
		n.CheckIn, n.CheckOut = time.Time{}, time.Time{}
	}
	if n.MinGuests < 0 {
		n.MinGuests = 0
	}
	if n.PriceMin.IsNegative() {
		n.PriceMin = decimal.Zero
	}
	if n.PriceMax.IsPositive() && n.PriceMax.LessThan(n.PriceMin) {
		n.PriceMax = decimal.Zero
	}
	if n.Limit <= 0 {
		n.Limit = defaultSearchLimit
	}
	if n.Limit > maxSearchLimit {
		n.Limit = maxSearchLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	switch n.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByNewest:
	default:
		n.Sort = SortByPriceAsc
	}
	return n
}

// Stay returns the requested stay when both dates are set.
func (p SearchParams) Stay() (daterange.DateRange, bool) {
	if p.CheckIn.IsZero() || p.CheckOut.IsZero() {
		return daterange.DateRange{}, false
	}
	dr, err := daterange.New(p.CheckIn, p.CheckOut)
	if err != nil {
		return daterange.DateRange{}, false
	}
	return dr, true
}

// Matches applies every filter. With stay dates set the property must be free for the whole stay.
func (p SearchParams) Matches(prop *Property) bool {
	if p.Host != "" && prop.Host != p.Host {
		return false
	}
	if len(p.States) > 0 && !containsState(p.States, prop.State) {
		return false
	}
	if p.City != "" && strings.ToLower(prop.Address.City) != p.City {
		return false
	}
	if p.Country != "" && strings.ToLower(prop.Address.Country) != p.Country {
		return false
	}
	if p.MinGuests > 0 && prop.MaxGuests < p.MinGuests {
		return false
	}
	if len(p.PropertyTypes) > 0 && !containsToken(p.PropertyTypes, prop.PropertyType) {
		return false
	}
	for _, a := range p.Amenities {
		if !containsToken(prop.Amenities, a) {
			return false
		}
	}
	if !prop.Pricing.IsZero() {
		rate := prop.Pricing.BasePricePerNight()
		if p.PriceMin.IsPositive() && rate.LessThan(p.PriceMin) {
			return false
		}
		if p.PriceMax.IsPositive() && rate.GreaterThan(p.PriceMax) {
			return false
		}
	}
	if stay, ok := p.Stay(); ok {
		if !(availability.Checker{Policy: p.EmptyWindows}).Available(prop.Schedule, stay) {
			return false
		}
	}
	return true
}

// Page sorts items in place and returns the requested window.
func (p SearchParams) Page(items []*Property) SearchResult {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch p.Sort {
		case SortByNewest:
			return a.CreatedAt.After(b.CreatedAt)
		case SortByPriceDesc:
			return a.Pricing.BasePricePerNight().GreaterThan(b.Pricing.BasePricePerNight())
		default:
			return a.Pricing.BasePricePerNight().LessThan(b.Pricing.BasePricePerNight())
		}
	})
	total := len(items)
	if p.Offset >= total {
		return SearchResult{Items: []*Property{}, Total: total}
	}
	end := p.Offset + p.Limit
	if p.Limit <= 0 || end > total {
		end = total
	}
	return SearchResult{Items: items[p.Offset:end], Total: total}
}

type SearchResult struct {
	Items []*Property
	Total int
}

func containsState(states []State, s State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsToken(tokens []string, v string) bool {
	for _, t := range tokens {
		if t == v {
			return true
		}
	}
	return false
}
