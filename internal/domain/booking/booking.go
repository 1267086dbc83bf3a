package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stayly/internal/domain/pricing"
	"stayly/internal/domain/shared/daterange"
	"stayly/internal/domain/shared/events"
	"stayly/internal/domain/shared/money"
)

var (
	ErrInvalidStayRange  = errors.New("booking: invalid stay range")
	ErrInvalidState      = errors.New("booking: invalid status transition")
	ErrInvalidPayment    = errors.New("booking: invalid payment transition")
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrStayConflict      = errors.New("booking: dates already booked")
	ErrPartiesRequired   = errors.New("booking: property, guest and host ids are required")
	ErrBreakdownRequired = errors.New("booking: price breakdown is required")
)

type BookingID string

type Status string

const (
	StatusPending          Status = "pending"
	StatusConfirmed        Status = "confirmed"
	StatusCompleted        Status = "completed"
	StatusCancelledByGuest Status = "cancelled_by_guest"
	StatusCancelledByHost  Status = "cancelled_by_host"
	StatusRejected         Status = "rejected"
)

// Active reports whether the booking still holds its dates.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentCompleted         PaymentStatus = "completed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentFailed            PaymentStatus = "failed"
)

// StayRequest is a validated request for a range of nights.
type StayRequest struct {
	Range      daterange.DateRange
	GuestCount int
}

func NewStayRequest(checkIn, checkOut time.Time, guests int) (StayRequest, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return StayRequest{}, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidStayRange)
	}
	if guests <= 0 {
		return StayRequest{}, fmt.Errorf("%w: guest count must be positive", ErrInvalidStayRange)
	}
	return StayRequest{Range: dr, GuestCount: guests}, nil
}

func (s StayRequest) Nights() int {
	return s.Range.Nights()
}

type Parties struct {
	PropertyID string
	GuestID    string
	HostID     string
}

func (p Parties) validate() error {
	if strings.TrimSpace(p.PropertyID) == "" || strings.TrimSpace(p.GuestID) == "" || strings.TrimSpace(p.HostID) == "" {
		return ErrPartiesRequired
	}
	return nil
}

// Booking is the persisted record of a stay. Price is frozen at Build time; only Status
// and PaymentStatus change afterwards.
type Booking struct {
	ID            BookingID
	Parties       Parties
	Stay          StayRequest
	Price         pricing.Breakdown
	Status        Status
	PaymentStatus PaymentStatus
	Refunded      money.Money
	Policy        CancellationPolicySnapshot
	StatusReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Create stores a new booking and must atomically reject any active booking of the
	// same property whose stay overlaps, returning ErrStayConflict.
	Create(ctx context.Context, booking *Booking) error
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
}

type BuildParams struct {
	ID        BookingID
	Stay      StayRequest
	Breakdown pricing.Breakdown
	Parties   Parties
	Policy    CancellationPolicySnapshot
	CreatedAt time.Time
}

// Build assembles a pending booking. The breakdown is stored as given.
func Build(p BuildParams) (*Booking, error) {
	if strings.TrimSpace(string(p.ID)) == "" {
		return nil, errors.New("booking: id is required")
	}
	if err := p.Stay.Range.Validate(); err != nil || p.Stay.GuestCount <= 0 {
		return nil, ErrInvalidStayRange
	}
	if err := p.Parties.validate(); err != nil {
		return nil, err
	}
	if p.Breakdown.Nights == 0 || p.Breakdown.TotalAmount.Currency == "" {
		return nil, ErrBreakdownRequired
	}
	now := p.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	b := &Booking{
		ID:            p.ID,
		Parties:       p.Parties,
		Stay:          p.Stay,
		Price:         p.Breakdown,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Refunded:      money.Zero(p.Breakdown.Currency()),
		Policy:        p.Policy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		PropertyID: b.Parties.PropertyID,
		GuestID:    b.Parties.GuestID,
		HostID:     b.Parties.HostID,
		Range:      b.Stay.Range,
		Guests:     b.Stay.GuestCount,
		Total:      b.Price.TotalAmount,
		At:         now,
	})
	return b, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.setStatus(StatusConfirmed, "", now)
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.Parties.PropertyID, GuestID: b.Parties.GuestID, Range: b.Stay.Range, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Reject(reason string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.setStatus(StatusRejected, reason, now)
	b.Record(BookingRejected{BookingID: b.ID, GuestID: b.Parties.GuestID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// CancelByGuest cancels and returns the refund due under the cancellation policy.
func (b *Booking) CancelByGuest(reason string, now time.Time) (money.Money, error) {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return money.Money{}, ErrInvalidState
	}
	refund, penalty, err := b.Policy.CalculateRefund(b.Price.TotalAmount, now, b.Stay.Range.CheckIn)
	if err != nil {
		return money.Money{}, err
	}
	b.setStatus(StatusCancelledByGuest, reason, now)
	b.recordCancelled(StatusCancelledByGuest, refund, penalty, reason)
	return refund, nil
}

// CancelByHost cancels and returns a full refund.
func (b *Booking) CancelByHost(reason string, now time.Time) (money.Money, error) {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return money.Money{}, ErrInvalidState
	}
	refund := b.Price.TotalAmount
	b.setStatus(StatusCancelledByHost, reason, now)
	b.recordCancelled(StatusCancelledByHost, refund, money.Zero(refund.Currency), reason)
	return refund, nil
}

// Complete closes a confirmed booking once the guest has checked out.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if now.UTC().Before(b.Stay.Range.CheckOut) {
		return fmt.Errorf("%w: stay has not ended", ErrInvalidState)
	}
	b.setStatus(StatusCompleted, "", now)
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkPaid(now time.Time) error {
	if b.PaymentStatus != PaymentPending && b.PaymentStatus != PaymentFailed {
		return ErrInvalidPayment
	}
	b.PaymentStatus = PaymentCompleted
	b.UpdatedAt = now.UTC()
	b.Record(PaymentStatusChanged{BookingID: b.ID, Status: b.PaymentStatus, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkPaymentFailed(now time.Time) error {
	if b.PaymentStatus != PaymentPending {
		return ErrInvalidPayment
	}
	b.PaymentStatus = PaymentFailed
	b.UpdatedAt = now.UTC()
	b.Record(PaymentStatusChanged{BookingID: b.ID, Status: b.PaymentStatus, At: b.UpdatedAt})
	return nil
}

// Refund records a refund of a completed payment. Refunds accumulate up to the total.
func (b *Booking) Refund(amount money.Money, now time.Time) error {
	if b.PaymentStatus != PaymentCompleted && b.PaymentStatus != PaymentPartiallyRefunded {
		return ErrInvalidPayment
	}
	if !amount.Amount.IsPositive() {
		return fmt.Errorf("%w: refund must be positive", ErrInvalidPayment)
	}
	refunded, err := b.Refunded.Add(amount)
	if err != nil {
		return err
	}
	switch refunded.Cmp(b.Price.TotalAmount) {
	case 1:
		return fmt.Errorf("%w: refund exceeds total", ErrInvalidPayment)
	case 0:
		b.PaymentStatus = PaymentRefunded
	default:
		b.PaymentStatus = PaymentPartiallyRefunded
	}
	b.Refunded = refunded
	b.UpdatedAt = now.UTC()
	b.Record(PaymentStatusChanged{BookingID: b.ID, Status: b.PaymentStatus, At: b.UpdatedAt})
	return nil
}

func (b *Booking) recordCancelled(by Status, refund, penalty money.Money, reason string) {
	b.Record(BookingCancelled{
		BookingID:  b.ID,
		PropertyID: b.Parties.PropertyID,
		GuestID:    b.Parties.GuestID,
		HostID:     b.Parties.HostID,
		By:         by,
		Refund:     refund,
		Penalty:    penalty,
		Reason:     reason,
		At:         b.UpdatedAt,
	})
}

func (b *Booking) setStatus(s Status, reason string, now time.Time) {
	b.Status = s
	b.StatusReason = reason
	b.UpdatedAt = now.UTC()
}
