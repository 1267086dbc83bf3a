package dto

import (
	"time"

	domainbooking "stayly/internal/domain/booking"
)

const dateLayout = "2006-01-02"

type Booking struct {
	ID            string         `json:"id"`
	PropertyID    string         `json:"property_id"`
	GuestID       string         `json:"guest_id"`
	HostID        string         `json:"host_id"`
	CheckIn       string         `json:"check_in"`
	CheckOut      string         `json:"check_out"`
	Nights        int            `json:"nights"`
	Guests        int            `json:"guests"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	StatusReason  string         `json:"status_reason,omitempty"`
	Price         PriceBreakdown `json:"price"`
	Refunded      Money          `json:"refunded"`
	Policy        string         `json:"cancellation_policy,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:            string(b.ID),
		PropertyID:    b.Parties.PropertyID,
		GuestID:       b.Parties.GuestID,
		HostID:        b.Parties.HostID,
		CheckIn:       b.Stay.Range.CheckIn.Format(dateLayout),
		CheckOut:      b.Stay.Range.CheckOut.Format(dateLayout),
		Nights:        b.Stay.Nights(),
		Guests:        b.Stay.GuestCount,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		StatusReason:  b.StatusReason,
		Price:         MapBreakdown(b.Price),
		Refunded:      MapMoney(b.Refunded),
		Policy:        b.Policy.PolicyID,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

type BookingCollection struct {
	Items []Booking `json:"items"`
	Total int       `json:"total"`
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := BookingCollection{Items: make([]Booking, 0, len(items)), Total: len(items)}
	for _, b := range items {
		out.Items = append(out.Items, MapBooking(b))
	}
	return out
}

// Quote is a price preview for a stay that is not persisted.
type Quote struct {
	PropertyID string         `json:"property_id"`
	CheckIn    string         `json:"check_in"`
	CheckOut   string         `json:"check_out"`
	Guests     int            `json:"guests"`
	Available  bool           `json:"available"`
	Price      PriceBreakdown `json:"price"`
}

// Refund reports a cancellation outcome.
type Refund struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Refund    Money  `json:"refund"`
}
