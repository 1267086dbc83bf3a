package booking

import (
	"context"
	"fmt"
	"time"

	"stayly/internal/app/dto"
	handlersupport "stayly/internal/app/handlers/support"
	"stayly/internal/app/queries"
	"stayly/internal/app/uow"
	"stayly/internal/domain/availability"
	domainbooking "stayly/internal/domain/booking"
	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
)

const quoteStayKey = "booking.quote"

// QuoteStayQuery previews the price of a stay without reserving it.
type QuoteStayQuery struct {
	PropertyID string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required"`
	Guests     int       `validate:"gte=1"`
}

func (QuoteStayQuery) Key() string { return quoteStayKey }

type QuoteStayHandler struct {
	UoWFactory uow.UoWFactory
	Checker    availability.Checker
}

func (h *QuoteStayHandler) Handle(ctx context.Context, q QuoteStayQuery) (dto.Quote, error) {
	stay, err := domainbooking.NewStayRequest(q.CheckIn, q.CheckOut, q.Guests)
	if err != nil {
		return dto.Quote{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	prop, err := unit.Properties().ByID(execCtx, domainproperty.ID(q.PropertyID))
	if err != nil {
		return dto.Quote{}, err
	}
	if prop.Pricing.IsZero() {
		return dto.Quote{}, domainproperty.ErrPricingRequired
	}
	if stay.GuestCount > prop.MaxGuests {
		return dto.Quote{}, fmt.Errorf("%w: property hosts at most %d guests", domainbooking.ErrInvalidStayRange, prop.MaxGuests)
	}
	breakdown, err := pricing.Compute(prop.Pricing, stay.Nights())
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.Quote{
		PropertyID: string(prop.ID),
		CheckIn:    stay.Range.CheckIn.Format("2006-01-02"),
		CheckOut:   stay.Range.CheckOut.Format("2006-01-02"),
		Guests:     stay.GuestCount,
		Available:  prop.Bookable() && h.Checker.Available(prop.Schedule, stay.Range),
		Price:      dto.MapBreakdown(breakdown),
	}, nil
}

var _ queries.Handler[QuoteStayQuery, dto.Quote] = (*QuoteStayHandler)(nil)
