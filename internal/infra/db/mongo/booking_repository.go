package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayly/internal/app/uow"
	domainbooking "stayly/internal/domain/booking"
)

// BookingRepository stores bookings next to one lock document per booked night. The
// unique (property_id, night) index on the locks makes overlapping inserts fail.
type BookingRepository struct {
	col   *mongo.Collection
	locks *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{
		col:   db.Collection("agg_booking"),
		locks: db.Collection("booking_night_locks"),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	var locks []any
	b.Stay.Range.EachNight(func(night time.Time) {
		locks = append(locks, nightLockDocument{
			PropertyID: b.Parties.PropertyID,
			Night:      night.UTC(),
			BookingID:  string(b.ID),
		})
	})
	if len(locks) == 0 {
		return domainbooking.ErrInvalidStayRange
	}
	if _, err := r.locks.InsertMany(ctx, locks); err != nil {
		return lockError(err)
	}
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		if isWriteConflict(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	if !b.Status.Active() {
		if _, err := r.locks.DeleteMany(ctx, bson.M{"booking_id": doc.ID}); err != nil {
			if isWriteConflict(err) {
				return uow.ErrConcurrentUpdate
			}
			return fmt.Errorf("mongo: release nights: %w", err)
		}
	}
	return nil
}

// lockError maps a failed night lock insert. A committed overlapping booking shows up
// as a duplicate key; one still in flight in another transaction as a write conflict.
func lockError(err error) error {
	if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
		return domainbooking.ErrStayConflict
	}
	return fmt.Errorf("mongo: lock nights: %w", err)
}

// isWriteConflict reports errors the server labels as retryable transaction conflicts.
func isWriteConflict(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorLabel(transientTxnLabel)
}

const transientTxnLabel = "TransientTransactionError"

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"host_id": hostID})
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type nightLockDocument struct {
	PropertyID string    `bson:"property_id"`
	Night      time.Time `bson:"night"`
	BookingID  string    `bson:"booking_id"`
}

type policyDocument struct {
	PolicyID                  string    `bson:"policy_id"`
	FreeCancellationUntil     time.Time `bson:"free_cancellation_until"`
	PreCheckInPenaltyPercent  int       `bson:"pre_check_in_penalty_percent"`
	PostCheckInPenaltyPercent int       `bson:"post_check_in_penalty_percent"`
}

type bookingDocument struct {
	ID            string            `bson:"_id"`
	PropertyID    string            `bson:"property_id"`
	GuestID       string            `bson:"guest_id"`
	HostID        string            `bson:"host_id"`
	Range         rangeDocument     `bson:"range"`
	Guests        int               `bson:"guests"`
	Price         breakdownDocument `bson:"price"`
	Status        string            `bson:"status"`
	PaymentStatus string            `bson:"payment_status"`
	Refunded      moneyDocument     `bson:"refunded"`
	Policy        policyDocument    `bson:"policy"`
	StatusReason  string            `bson:"status_reason,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
	Version       int64             `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:            string(b.ID),
		PropertyID:    b.Parties.PropertyID,
		GuestID:       b.Parties.GuestID,
		HostID:        b.Parties.HostID,
		Range:         newRangeDocument(b.Stay.Range),
		Guests:        b.Stay.GuestCount,
		Price:         newBreakdownDocument(b.Price),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Refunded:      newMoneyDocument(b.Refunded),
		Policy: policyDocument{
			PolicyID:                  b.Policy.PolicyID,
			FreeCancellationUntil:     b.Policy.FreeCancellationUntil,
			PreCheckInPenaltyPercent:  b.Policy.PreCheckInPenaltyPercent,
			PostCheckInPenaltyPercent: b.Policy.PostCheckInPenaltyPercent,
		},
		StatusReason: b.StatusReason,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		Version:      b.Version,
	}
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	price, err := d.Price.toBreakdown()
	if err != nil {
		return nil, fmt.Errorf("mongo: booking %s price: %w", d.ID, err)
	}
	refunded, err := d.Refunded.toMoney()
	if err != nil {
		return nil, fmt.Errorf("mongo: booking %s refund: %w", d.ID, err)
	}
	return &domainbooking.Booking{
		ID: domainbooking.BookingID(d.ID),
		Parties: domainbooking.Parties{
			PropertyID: d.PropertyID,
			GuestID:    d.GuestID,
			HostID:     d.HostID,
		},
		Stay:          domainbooking.StayRequest{Range: d.Range.toRange(), GuestCount: d.Guests},
		Price:         price,
		Status:        domainbooking.Status(d.Status),
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		Refunded:      refunded,
		Policy: domainbooking.CancellationPolicySnapshot{
			PolicyID:                  d.Policy.PolicyID,
			FreeCancellationUntil:     d.Policy.FreeCancellationUntil.UTC(),
			PreCheckInPenaltyPercent:  d.Policy.PreCheckInPenaltyPercent,
			PostCheckInPenaltyPercent: d.Policy.PostCheckInPenaltyPercent,
		},
		StatusReason: d.StatusReason,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
		Version:      d.Version,
	}, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
