package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayly/internal/app/commands"
	"stayly/internal/app/dto"
	handlersupport "stayly/internal/app/handlers/support"
	"stayly/internal/app/middleware"
	"stayly/internal/app/outbox"
	"stayly/internal/app/uow"
	"stayly/internal/domain/availability"
	domainbooking "stayly/internal/domain/booking"
	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
)

const requestBookingKey = "booking.request"

var (
	ErrOwnProperty    = errors.New("booking: hosts cannot book their own property")
	ErrNotParticipant = errors.New("booking: caller is not a party to this booking")
)

type RequestBookingCommand struct {
	CommandID       string
	PropertyID      string    `validate:"required"`
	GuestID         string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required"`
	Guests          int       `validate:"gte=1"`
	IdempotencyKeyV string
}

func (RequestBookingCommand) Key() string { return requestBookingKey }

// IdempotencyKey is scoped to the guest so two callers never share a key space.
func (c RequestBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.GuestID + ":" + c.IdempotencyKeyV
}

// IdempotencyFingerprint covers the stay being requested, not the per-attempt CommandID.
func (c RequestBookingCommand) IdempotencyFingerprint() []byte {
	return []byte(strings.Join([]string{
		c.PropertyID,
		c.GuestID,
		c.CheckIn.UTC().Format(time.DateOnly),
		c.CheckOut.UTC().Format(time.DateOnly),
		strconv.Itoa(c.Guests),
	}, "|"))
}

func (RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

type RequestBookingResult struct {
	BookingID string             `json:"booking_id"`
	Status    string             `json:"status"`
	Price     dto.PriceBreakdown `json:"price"`
}

type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Checker    availability.Checker
	Now        func() time.Time
	Logger     *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	stay, err := domainbooking.NewStayRequest(cmd.CheckIn, cmd.CheckOut, cmd.Guests)
	if err != nil {
		return nil, err
	}
	now := h.now()
	if err := domainbooking.ValidateCheckIn(stay.Range, now); err != nil {
		return nil, err
	}

	var created *domainbooking.Booking
	err = handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		prop, err := unit.Properties().ByID(ctx, domainproperty.ID(cmd.PropertyID))
		if err != nil {
			return err
		}
		if !prop.Bookable() {
			return domainproperty.ErrNotBookable
		}
		if prop.OwnedBy(cmd.GuestID) {
			return ErrOwnProperty
		}
		if stay.GuestCount > prop.MaxGuests {
			return fmt.Errorf("%w: property hosts at most %d guests", domainbooking.ErrInvalidStayRange, prop.MaxGuests)
		}
		if !h.Checker.Available(prop.Schedule, stay.Range) {
			return availability.ErrStayUnavailable
		}
		breakdown, err := pricing.Compute(prop.Pricing, stay.Nights())
		if err != nil {
			return err
		}

		id := strings.TrimSpace(cmd.CommandID)
		if id == "" {
			id = uuid.NewString()
		}
		b, err := domainbooking.Build(domainbooking.BuildParams{
			ID:        domainbooking.BookingID(id),
			Stay:      stay,
			Breakdown: breakdown,
			Parties: domainbooking.Parties{
				PropertyID: string(prop.ID),
				GuestID:    cmd.GuestID,
				HostID:     string(prop.Host),
			},
			Policy:    domainbooking.SnapshotPolicy(prop.CancellationPolicyID, stay.Range.CheckIn),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if err := unit.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if err := prop.BlockDates(stay.Range, availability.ReasonBooking, "", string(b.ID), now); err != nil {
			if errors.Is(err, availability.ErrOverlappingBlock) {
				return availability.ErrStayUnavailable
			}
			return err
		}
		if err := unit.Properties().Save(ctx, prop); err != nil {
			return err
		}
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b, prop); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger().InfoContext(ctx, "booking requested",
		"booking_id", created.ID,
		"property_id", created.Parties.PropertyID,
		"nights", created.Stay.Nights(),
		"total", created.Price.TotalAmount.String(),
	)
	return &RequestBookingResult{
		BookingID: string(created.ID),
		Status:    string(created.Status),
		Price:     dto.MapBreakdown(created.Price),
	}, nil
}

func (h *RequestBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *RequestBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
