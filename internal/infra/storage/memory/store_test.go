package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stayly/internal/app/outbox"
	"stayly/internal/app/uow"
	domainbooking "stayly/internal/domain/booking"
	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
	"stayly/internal/infra/storage/memory"
)

func day(d int) time.Time {
	return time.Date(2025, time.July, d, 0, 0, 0, 0, time.UTC)
}

func newBooking(t *testing.T, id string, from, to int) *domainbooking.Booking {
	t.Helper()
	cfg := pricing.MustConfig(pricing.ConfigParams{Currency: "INR", BasePricePerNight: decimal.NewFromInt(1000), MinimumStayNights: 1})
	stay, err := domainbooking.NewStayRequest(day(from), day(to), 1)
	require.NoError(t, err)
	breakdown, err := pricing.Compute(cfg, stay.Nights())
	require.NoError(t, err)
	b, err := domainbooking.Build(domainbooking.BuildParams{
		ID:        domainbooking.BookingID(id),
		Stay:      stay,
		Breakdown: breakdown,
		Parties:   domainbooking.Parties{PropertyID: "p1", GuestID: "g1", HostID: "h1"},
		CreatedAt: day(1),
	})
	require.NoError(t, err)
	return b
}

func begin(t *testing.T, f memory.Factory) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return unit
}

func TestUnitStagesWritesUntilCommit(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}

	unit := begin(t, f)
	p, err := domainproperty.New(domainproperty.CreateParams{ID: "p1", Host: "h1", Title: "Cabin", MaxGuests: 2, Now: day(1)})
	require.NoError(t, err)
	require.NoError(t, unit.Properties().Save(ctx, p))

	other := begin(t, f)
	_, err = other.Properties().ByID(ctx, "p1")
	assert.ErrorIs(t, err, domainproperty.ErrNotFound)

	require.NoError(t, unit.Commit(ctx))
	loaded, err := begin(t, f).Properties().ByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Empty(t, loaded.PendingEvents())
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}

	unit := begin(t, f)
	require.NoError(t, unit.Bookings().Create(ctx, newBooking(t, "b1", 10, 12)))
	require.NoError(t, unit.Rollback(ctx))

	_, err := begin(t, f).Bookings().ByID(ctx, "b1")
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestCreateRejectsOverlappingActiveBooking(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}

	first := begin(t, f)
	require.NoError(t, first.Bookings().Create(ctx, newBooking(t, "b1", 10, 12)))
	require.NoError(t, first.Commit(ctx))

	second := begin(t, f)
	assert.ErrorIs(t, second.Bookings().Create(ctx, newBooking(t, "b2", 11, 13)), domainbooking.ErrStayConflict)
	assert.NoError(t, second.Bookings().Create(ctx, newBooking(t, "b3", 12, 14)), "check-out day is free")

	cancel := begin(t, f)
	b, err := cancel.Bookings().ByID(ctx, "b1")
	require.NoError(t, err)
	_, err = b.CancelByHost("", day(2))
	require.NoError(t, err)
	require.NoError(t, cancel.Bookings().Save(ctx, b))
	require.NoError(t, cancel.Commit(ctx))

	third := begin(t, f)
	assert.NoError(t, third.Bookings().Create(ctx, newBooking(t, "b4", 10, 12)))
}

func TestCommitDetectsRaces(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}

	a := begin(t, f)
	b := begin(t, f)
	require.NoError(t, a.Bookings().Create(ctx, newBooking(t, "b1", 10, 12)))
	require.NoError(t, b.Bookings().Create(ctx, newBooking(t, "b2", 11, 12)))
	require.NoError(t, a.Commit(ctx))
	assert.ErrorIs(t, b.Commit(ctx), domainbooking.ErrStayConflict)

	x := begin(t, f)
	y := begin(t, f)
	bx, err := x.Bookings().ByID(ctx, "b1")
	require.NoError(t, err)
	by, err := y.Bookings().ByID(ctx, "b1")
	require.NoError(t, err)
	require.NoError(t, bx.Confirm(day(2)))
	require.NoError(t, by.Reject("no", day(2)))
	require.NoError(t, x.Bookings().Save(ctx, bx))
	require.NoError(t, y.Bookings().Save(ctx, by))
	require.NoError(t, x.Commit(ctx))
	assert.ErrorIs(t, y.Commit(ctx), uow.ErrConcurrentUpdate)
}

func TestOutboxRecordsFollowCommit(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}
	box := memory.NewOutbox()

	rolledBack := begin(t, f)
	require.NoError(t, box.Add(uow.Bind(ctx, rolledBack), appoutbox.EventRecord{ID: "e1", Name: "booking.requested"}))
	require.NoError(t, rolledBack.Rollback(ctx))

	committed := begin(t, f)
	require.NoError(t, box.Add(uow.Bind(ctx, committed), appoutbox.EventRecord{ID: "e2", Name: "booking.requested"}))
	assert.Empty(t, box.Pending())
	require.NoError(t, committed.Commit(ctx))

	pending := box.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "e2", pending[0].ID)

	msg, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	again, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, again)
	require.NoError(t, box.MarkSent(ctx, msg.ID))
	assert.Empty(t, box.Pending())
}

func TestBrokerAndInbox(t *testing.T) {
	ctx := context.Background()
	broker := memory.NewBroker()
	var got []string
	broker.Subscribe("booking.events.v1", func(ctx context.Context, payload []byte) error {
		got = append(got, string(payload))
		return nil
	})
	require.NoError(t, broker.Publish(ctx, "booking.events.v1", "b1", []byte("one"), nil))
	require.NoError(t, broker.Publish(ctx, "property.events.v1", "p1", []byte("two"), nil))
	assert.Equal(t, []string{"one"}, got)

	inbox := memory.NewInbox()
	done, err := inbox.Processed(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, done)
	done, err = inbox.Processed(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, done, "checking does not mark")
	require.NoError(t, inbox.MarkProcessed(ctx, "e1"))
	done, err = inbox.Processed(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, done)
}
