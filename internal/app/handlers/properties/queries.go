package properties

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stayly/internal/app/dto"
	handlersupport "stayly/internal/app/handlers/support"
	"stayly/internal/app/uow"
	"stayly/internal/domain/availability"
	domainproperty "stayly/internal/domain/property"
)

const (
	getPropertyKey        = "property.get"
	listHostPropertiesKey = "property.list_host"
	searchPropertiesKey   = "property.search"
)

// GetPropertyQuery returns published properties to anyone and drafts only to their host.
type GetPropertyQuery struct {
	PropertyID string
	ViewerID   string
}

func (GetPropertyQuery) Key() string { return getPropertyKey }

type ListHostPropertiesQuery struct {
	HostID string
	Limit  int
	Offset int
}

func (ListHostPropertiesQuery) Key() string { return listHostPropertiesKey }

type SearchPropertiesQuery struct {
	City          string
	Country       string
	Guests        int `validate:"gte=0"`
	MinNightly    decimal.Decimal
	MaxNightly    decimal.Decimal
	Amenities     []string
	PropertyTypes []string
	CheckIn       time.Time
	CheckOut      time.Time
	Sort          string
	Limit         int `validate:"gte=0"`
	Offset        int `validate:"gte=0"`
}

func (SearchPropertiesQuery) Key() string { return searchPropertiesKey }

type QueryHandler struct {
	UoWFactory   uow.UoWFactory
	EmptyWindows availability.EmptyWindowsPolicy
}

func (h *QueryHandler) Get(ctx context.Context, q GetPropertyQuery) (dto.Property, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Property{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	prop, err := unit.Properties().ByID(execCtx, domainproperty.ID(q.PropertyID))
	if err != nil {
		return dto.Property{}, err
	}
	if prop.State != domainproperty.StatePublished && !prop.OwnedBy(q.ViewerID) {
		return dto.Property{}, domainproperty.ErrNotFound
	}
	return dto.MapProperty(prop), nil
}

func (h *QueryHandler) ListForHost(ctx context.Context, q ListHostPropertiesQuery) (dto.PropertyCollection, error) {
	return h.search(ctx, domainproperty.SearchParams{
		Host:   domainproperty.HostID(strings.TrimSpace(q.HostID)),
		Sort:   domainproperty.SortByNewest,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

func (h *QueryHandler) Search(ctx context.Context, q SearchPropertiesQuery) (dto.PropertyCollection, error) {
	return h.search(ctx, domainproperty.SearchParams{
		States:        []domainproperty.State{domainproperty.StatePublished},
		City:          q.City,
		Country:       q.Country,
		MinGuests:     q.Guests,
		PriceMin:      q.MinNightly,
		PriceMax:      q.MaxNightly,
		Amenities:     q.Amenities,
		PropertyTypes: q.PropertyTypes,
		CheckIn:       q.CheckIn,
		CheckOut:      q.CheckOut,
		EmptyWindows:  h.EmptyWindows,
		Sort:          domainproperty.SearchSort(q.Sort),
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
}

func (h *QueryHandler) search(ctx context.Context, params domainproperty.SearchParams) (dto.PropertyCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PropertyCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	params = params.Normalized()
	res, err := unit.Properties().Search(execCtx, params)
	if err != nil {
		return dto.PropertyCollection{}, err
	}
	out := dto.PropertyCollection{
		Items:  make([]dto.PropertySummary, 0, len(res.Items)),
		Total:  res.Total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for _, p := range res.Items {
		out.Items = append(out.Items, dto.MapPropertySummary(p))
	}
	return out, nil
}
