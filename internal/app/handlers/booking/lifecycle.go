package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stayly/internal/app/dto"
	handlersupport "stayly/internal/app/handlers/support"
	"stayly/internal/app/outbox"
	"stayly/internal/app/uow"
	"stayly/internal/domain/availability"
	domainbooking "stayly/internal/domain/booking"
	domainproperty "stayly/internal/domain/property"
	"stayly/internal/domain/shared/money"
)

const (
	confirmBookingKey  = "booking.confirm"
	rejectBookingKey   = "booking.reject"
	cancelBookingKey   = "booking.cancel"
	completeBookingKey = "booking.complete"
	paymentBookingKey  = "booking.payment"

	hostRole = "host"
)

type ConfirmBookingCommand struct {
	BookingID string `validate:"required"`
	HostID    string `validate:"required"`
}

func (ConfirmBookingCommand) Key() string { return confirmBookingKey }

func (ConfirmBookingCommand) RequiredRole() string { return hostRole }

type RejectBookingCommand struct {
	BookingID string `validate:"required"`
	HostID    string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (RejectBookingCommand) Key() string { return rejectBookingKey }

func (RejectBookingCommand) RequiredRole() string { return hostRole }

// CancelBookingCommand cancels on behalf of the guest or the host, whichever ActorID is.
type CancelBookingCommand struct {
	BookingID string `validate:"required"`
	ActorID   string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (CancelBookingCommand) Key() string { return cancelBookingKey }

type CompleteBookingCommand struct {
	BookingID string `validate:"required"`
	HostID    string `validate:"required"`
}

func (CompleteBookingCommand) Key() string { return completeBookingKey }

func (CompleteBookingCommand) RequiredRole() string { return hostRole }

type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentDeclined  PaymentOutcome = "failed"
)

// RecordPaymentCommand records the outcome reported by an external payment flow.
type RecordPaymentCommand struct {
	BookingID string         `validate:"required"`
	GuestID   string         `validate:"required"`
	Outcome   PaymentOutcome `validate:"oneof=succeeded failed"`
}

func (RecordPaymentCommand) Key() string { return paymentBookingKey }

// LifecycleHandler moves bookings between statuses and keeps the property
// calendar in sync with the booking's hold on the dates.
type LifecycleHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
	Logger     *slog.Logger
}

func (h *LifecycleHandler) Confirm(ctx context.Context, cmd ConfirmBookingCommand) (dto.Booking, error) {
	return h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, _ *domainproperty.Property, now time.Time) error {
		if b.Parties.HostID != cmd.HostID {
			return ErrNotParticipant
		}
		return b.Confirm(now)
	})
}

func (h *LifecycleHandler) Reject(ctx context.Context, cmd RejectBookingCommand) (dto.Booking, error) {
	return h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, prop *domainproperty.Property, now time.Time) error {
		if b.Parties.HostID != cmd.HostID {
			return ErrNotParticipant
		}
		if err := b.Reject(strings.TrimSpace(cmd.Reason), now); err != nil {
			return err
		}
		return releaseHold(prop, b, now)
	})
}

func (h *LifecycleHandler) Cancel(ctx context.Context, cmd CancelBookingCommand) (dto.Refund, error) {
	var refund money.Money
	out, err := h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, prop *domainproperty.Property, now time.Time) error {
		var err error
		reason := strings.TrimSpace(cmd.Reason)
		switch cmd.ActorID {
		case b.Parties.GuestID:
			refund, err = b.CancelByGuest(reason, now)
		case b.Parties.HostID:
			refund, err = b.CancelByHost(reason, now)
		default:
			return ErrNotParticipant
		}
		if err != nil {
			return err
		}
		if b.PaymentStatus == domainbooking.PaymentCompleted && refund.Amount.IsPositive() {
			if err := b.Refund(refund, now); err != nil {
				return err
			}
		}
		return releaseHold(prop, b, now)
	})
	if err != nil {
		return dto.Refund{}, err
	}
	return dto.Refund{BookingID: out.ID, Status: out.Status, Refund: dto.MapMoney(refund)}, nil
}

func (h *LifecycleHandler) Complete(ctx context.Context, cmd CompleteBookingCommand) (dto.Booking, error) {
	return h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, _ *domainproperty.Property, now time.Time) error {
		if b.Parties.HostID != cmd.HostID {
			return ErrNotParticipant
		}
		return b.Complete(now)
	})
}

func (h *LifecycleHandler) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (dto.Booking, error) {
	return h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, _ *domainproperty.Property, now time.Time) error {
		if b.Parties.GuestID != cmd.GuestID {
			return ErrNotParticipant
		}
		if cmd.Outcome == PaymentDeclined {
			return b.MarkPaymentFailed(now)
		}
		return b.MarkPaid(now)
	})
}

func (h *LifecycleHandler) mutate(ctx context.Context, id string, fn func(*domainbooking.Booking, *domainproperty.Property, time.Time) error) (dto.Booking, error) {
	now := h.now()
	var out dto.Booking
	err := handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
		if err != nil {
			return err
		}
		prop, err := unit.Properties().ByID(ctx, domainproperty.ID(b.Parties.PropertyID))
		if err != nil {
			return err
		}
		before := b.Status
		if err := fn(b, prop, now); err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if len(prop.PendingEvents()) > 0 {
			if err := unit.Properties().Save(ctx, prop); err != nil {
				return err
			}
		}
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b, prop); err != nil {
			return err
		}
		if before != b.Status {
			h.logger().InfoContext(ctx, "booking status changed", "booking_id", b.ID, "from", before, "to", b.Status)
		}
		out = dto.MapBooking(b)
		return nil
	})
	return out, err
}

// releaseHold frees the nights held by an inactive booking.
func releaseHold(prop *domainproperty.Property, b *domainbooking.Booking, now time.Time) error {
	if err := prop.ReleaseBlock(string(b.ID), now); err != nil && !errors.Is(err, availability.ErrBlockNotFound) {
		return err
	}
	return nil
}

func (h *LifecycleHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *LifecycleHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
