package booking

import (
	"context"
	"errors"
	"sort"
	"strings"

	"stayly/internal/app/dto"
	handlersupport "stayly/internal/app/handlers/support"
	"stayly/internal/app/uow"
	domainbooking "stayly/internal/domain/booking"
)

const (
	listGuestBookingsKey = "booking.list_guest"
	listHostBookingsKey  = "booking.list_host"
	getBookingKey        = "booking.get"
	allStatuses          = "all"
)

var ErrActorRequired = errors.New("booking: caller id is required")

type ListGuestBookingsQuery struct {
	GuestID string
	Status  string
}

func (ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListHostBookingsQuery struct {
	HostID string
	Status string
}

func (ListHostBookingsQuery) Key() string { return listHostBookingsKey }

type GetBookingQuery struct {
	BookingID string
	ActorID   string
}

func (GetBookingQuery) Key() string { return getBookingKey }

type ListHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListHandler) ForGuest(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	guestID := strings.TrimSpace(q.GuestID)
	if guestID == "" {
		return dto.BookingCollection{}, ErrActorRequired
	}
	return h.list(ctx, q.Status, func(ctx context.Context, repo domainbooking.Repository) ([]*domainbooking.Booking, error) {
		return repo.ListByGuest(ctx, guestID)
	})
}

func (h *ListHandler) ForHost(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	hostID := strings.TrimSpace(q.HostID)
	if hostID == "" {
		return dto.BookingCollection{}, ErrActorRequired
	}
	return h.list(ctx, q.Status, func(ctx context.Context, repo domainbooking.Repository) ([]*domainbooking.Booking, error) {
		return repo.ListByHost(ctx, hostID)
	})
}

func (h *ListHandler) Get(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	if q.ActorID != b.Parties.GuestID && q.ActorID != b.Parties.HostID {
		// hide existence from strangers
		return dto.Booking{}, domainbooking.ErrBookingNotFound
	}
	return dto.MapBooking(b), nil
}

func (h *ListHandler) list(ctx context.Context, status string, load func(context.Context, domainbooking.Repository) ([]*domainbooking.Booking, error)) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := load(execCtx, unit.Bookings())
	if err != nil {
		return dto.BookingCollection{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && status != allStatuses {
		filtered := items[:0]
		for _, b := range items {
			if string(b.Status) == status {
				filtered = append(filtered, b)
			}
		}
		items = filtered
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Stay.Range.CheckIn.Before(items[j].Stay.Range.CheckIn)
	})
	return dto.MapBookings(items), nil
}
