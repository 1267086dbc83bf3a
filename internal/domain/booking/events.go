package booking

import (
	"time"

	"stayly/internal/domain/shared/daterange"
	"stayly/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID string              `json:"property_id"`
	GuestID    string              `json:"guest_id"`
	HostID     string              `json:"host_id"`
	Range      daterange.DateRange `json:"range"`
	Guests     int                 `json:"guests"`
	Total      money.Money         `json:"total"`
	At         time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID string              `json:"property_id"`
	GuestID    string              `json:"guest_id"`
	Range      daterange.DateRange `json:"range"`
	At         time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID BookingID `json:"booking_id"`
	GuestID   string    `json:"guest_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  BookingID   `json:"booking_id"`
	PropertyID string      `json:"property_id"`
	GuestID    string      `json:"guest_id"`
	HostID     string      `json:"host_id"`
	By         Status      `json:"by"`
	Refund     money.Money `json:"refund"`
	Penalty    money.Money `json:"penalty"`
	Reason     string      `json:"reason"`
	At         time.Time   `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID `json:"booking_id"`
	At        time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type PaymentStatusChanged struct {
	BookingID BookingID     `json:"booking_id"`
	Status    PaymentStatus `json:"status"`
	At        time.Time     `json:"at"`
}

func (e PaymentStatusChanged) EventName() string     { return "booking.payment_status_changed" }
func (e PaymentStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e PaymentStatusChanged) OccurredAt() time.Time { return e.At }
