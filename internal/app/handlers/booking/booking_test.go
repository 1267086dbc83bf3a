package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/app/handlers/booking"
	"stayly/internal/app/outbox"
	"stayly/internal/app/uow"
	"stayly/internal/domain/availability"
	domainbooking "stayly/internal/domain/booking"
	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
	"stayly/internal/domain/shared/daterange"
	"stayly/internal/infra/storage/memory"
)

var clock = time.Date(2030, time.June, 1, 12, 0, 0, 0, time.UTC)

func june(d int) time.Time {
	return time.Date(2030, time.June, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	factory   memory.Factory
	box       *memory.Outbox
	request   *booking.RequestBookingHandler
	quote     *booking.QuoteStayHandler
	lifecycle *booking.LifecycleHandler
	list      *booking.ListHandler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	factory := memory.Factory{Store: memory.NewStore()}
	box := memory.NewOutbox()
	encoder := outbox.JSONEventEncoder{}
	checker := availability.Checker{Policy: availability.EmptyWindowsClosed}
	now := func() time.Time { return clock }
	f := fixture{
		factory:   factory,
		box:       box,
		request:   &booking.RequestBookingHandler{UoWFactory: factory, Outbox: box, Encoder: encoder, Checker: checker, Now: now},
		quote:     &booking.QuoteStayHandler{UoWFactory: factory, Checker: checker},
		lifecycle: &booking.LifecycleHandler{UoWFactory: factory, Outbox: box, Encoder: encoder, Now: now},
		list:      &booking.ListHandler{UoWFactory: factory},
	}
	f.seed(t, "prop-1", true)
	return f
}

func (f fixture) seed(t *testing.T, id string, publish bool) {
	t.Helper()
	p, err := domainproperty.New(domainproperty.CreateParams{
		ID:                   domainproperty.ID(id),
		Host:                 "host-1",
		Title:                "Lake house",
		Address:              domainproperty.Address{Line1: "1 Shore Rd", City: "Nainital", Country: "IN"},
		MaxGuests:            4,
		CancellationPolicyID: domainbooking.PolicyModerate,
		Pricing: pricing.MustConfig(pricing.ConfigParams{
			Currency:          "INR",
			BasePricePerNight: decimal.NewFromInt(5000),
			CleaningFee:       decimal.NewFromInt(500),
			MinimumStayNights: 1,
		}),
		Now: clock,
	})
	require.NoError(t, err)
	require.NoError(t, p.AddWindow(daterange.Must(june(1), time.Date(2030, time.September, 1, 0, 0, 0, 0, time.UTC)), clock))
	if publish {
		require.NoError(t, p.Publish(clock))
	}
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Properties().Save(context.Background(), p))
	require.NoError(t, unit.Commit(context.Background()))
}

func (f fixture) property(t *testing.T, id string) *domainproperty.Property {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(context.Background())
	p, err := unit.Properties().ByID(context.Background(), domainproperty.ID(id))
	require.NoError(t, err)
	return p
}

func requestCmd(id, guest string, from, to int) booking.RequestBookingCommand {
	return booking.RequestBookingCommand{
		CommandID:  id,
		PropertyID: "prop-1",
		GuestID:    guest,
		CheckIn:    june(from),
		CheckOut:   june(to),
		Guests:     2,
	}
}

func eventNames(box *memory.Outbox) []string {
	var names []string
	for _, rec := range box.Pending() {
		names = append(names, rec.Name)
	}
	return names
}

func TestRequestBookingHoldsDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.request.Handle(ctx, requestCmd("bk-1", "guest-1", 10, 13))
	require.NoError(t, err)
	assert.Equal(t, "bk-1", res.BookingID)
	assert.Equal(t, string(domainbooking.StatusPending), res.Status)
	assert.Equal(t, "15500.00", res.Price.TotalAmount.Amount)

	p := f.property(t, "prop-1")
	require.Len(t, p.Schedule.Blocked, 1)
	assert.Equal(t, "bk-1", p.Schedule.Blocked[0].Reference)
	assert.Equal(t, availability.ReasonBooking, p.Schedule.Blocked[0].Reason)

	assert.ElementsMatch(t, []string{"booking.requested", "property.schedule_changed"}, eventNames(f.box))
}

func TestRequestBookingRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f fixture, cmd *booking.RequestBookingCommand)
		wantErr error
	}{
		{
			name:    "host books own property",
			mutate:  func(_ fixture, cmd *booking.RequestBookingCommand) { cmd.GuestID = "host-1" },
			wantErr: booking.ErrOwnProperty,
		},
		{
			name:    "too many guests",
			mutate:  func(_ fixture, cmd *booking.RequestBookingCommand) { cmd.Guests = 9 },
			wantErr: domainbooking.ErrInvalidStayRange,
		},
		{
			name:    "outside windows",
			mutate:  func(_ fixture, cmd *booking.RequestBookingCommand) { cmd.CheckOut = time.Date(2030, time.September, 3, 0, 0, 0, 0, time.UTC) },
			wantErr: availability.ErrStayUnavailable,
		},
		{
			name:    "check-in in the past",
			mutate:  func(_ fixture, cmd *booking.RequestBookingCommand) { cmd.CheckIn = time.Date(2030, time.May, 20, 0, 0, 0, 0, time.UTC) },
			wantErr: domainbooking.ErrCheckInInPast,
		},
		{
			name: "draft property",
			mutate: func(f fixture, cmd *booking.RequestBookingCommand) {
				cmd.PropertyID = "draft-1"
			},
			wantErr: domainproperty.ErrNotBookable,
		},
		{
			name:    "unknown property",
			mutate:  func(_ fixture, cmd *booking.RequestBookingCommand) { cmd.PropertyID = "missing" },
			wantErr: domainproperty.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "draft-1", false)
			cmd := requestCmd("bk-x", "guest-1", 10, 13)
			tt.mutate(f, &cmd)

			_, err := f.request.Handle(context.Background(), cmd)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.box.Pending())
		})
	}
}

func TestOverlappingRequestIsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.request.Handle(ctx, requestCmd("bk-1", "guest-1", 10, 13))
	require.NoError(t, err)

	_, err = f.request.Handle(ctx, requestCmd("bk-2", "guest-2", 12, 15))
	assert.ErrorIs(t, err, availability.ErrStayUnavailable)

	_, err = f.request.Handle(ctx, requestCmd("bk-3", "guest-2", 13, 15))
	assert.NoError(t, err, "checkout day is free for the next check-in")
}

func TestConcurrentRequestsBookOnce(t *testing.T) {
	f := newFixture(t)
	const attempts = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := requestCmd("bk-"+string(rune('a'+i)), "guest-"+string(rune('a'+i)), 10, 13)
			_, err := f.request.Handle(context.Background(), cmd)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, uow.ErrConcurrentUpdate) && !errors.Is(err, domainbooking.ErrStayConflict) && !errors.Is(err, availability.ErrStayUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	p := f.property(t, "prop-1")
	assert.Len(t, p.Schedule.Blocked, 1)
}

func TestQuoteDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	q, err := f.quote.Handle(context.Background(), booking.QuoteStayQuery{PropertyID: "prop-1", CheckIn: june(10), CheckOut: june(12), Guests: 2})
	require.NoError(t, err)
	assert.True(t, q.Available)
	assert.Equal(t, "10500.00", q.Price.TotalAmount.Amount)
	assert.Empty(t, f.property(t, "prop-1").Schedule.Blocked)
}

func TestLifecycleConfirmAndComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request.Handle(ctx, requestCmd("bk-1", "guest-1", 10, 13))
	require.NoError(t, err)

	_, err = f.lifecycle.Confirm(ctx, booking.ConfirmBookingCommand{BookingID: "bk-1", HostID: "host-2"})
	assert.ErrorIs(t, err, booking.ErrNotParticipant)

	out, err := f.lifecycle.Confirm(ctx, booking.ConfirmBookingCommand{BookingID: "bk-1", HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusConfirmed), out.Status)

	_, err = f.lifecycle.Complete(ctx, booking.CompleteBookingCommand{BookingID: "bk-1", HostID: "host-1"})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidState, "stay has not ended")

	out, err = f.lifecycle.RecordPayment(ctx, booking.RecordPaymentCommand{BookingID: "bk-1", GuestID: "guest-1", Outcome: booking.PaymentSucceeded})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.PaymentCompleted), out.PaymentStatus)
}

func TestRejectReleasesDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request.Handle(ctx, requestCmd("bk-1", "guest-1", 10, 13))
	require.NoError(t, err)

	out, err := f.lifecycle.Reject(ctx, booking.RejectBookingCommand{BookingID: "bk-1", HostID: "host-1", Reason: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusRejected), out.Status)
	assert.Empty(t, f.property(t, "prop-1").Schedule.Blocked)

	_, err = f.request.Handle(ctx, requestCmd("bk-2", "guest-2", 10, 13))
	assert.NoError(t, err)
}

func TestCancelByGuestRefundsAndFreesDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request.Handle(ctx, requestCmd("bk-1", "guest-1", 10, 13))
	require.NoError(t, err)
	_, err = f.lifecycle.RecordPayment(ctx, booking.RecordPaymentCommand{BookingID: "bk-1", GuestID: "guest-1", Outcome: booking.PaymentSucceeded})
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(ctx, booking.CancelBookingCommand{BookingID: "bk-1", ActorID: "stranger"})
	assert.ErrorIs(t, err, booking.ErrNotParticipant)

	refund, err := f.lifecycle.Cancel(ctx, booking.CancelBookingCommand{BookingID: "bk-1", ActorID: "guest-1", Reason: "plans changed"})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusCancelledByGuest), refund.Status)
	assert.Equal(t, "15500.00", refund.Refund.Amount, "moderate policy refunds in full more than five days out")
	assert.Empty(t, f.property(t, "prop-1").Schedule.Blocked)

	got, err := f.list.Get(ctx, booking.GetBookingQuery{BookingID: "bk-1", ActorID: "guest-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.PaymentRefunded), got.PaymentStatus)

	_, err = f.list.Get(ctx, booking.GetBookingQuery{BookingID: "bk-1", ActorID: "stranger"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestListsFilterByParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request.Handle(ctx, requestCmd("bk-1", "guest-1", 10, 12))
	require.NoError(t, err)
	_, err = f.request.Handle(ctx, requestCmd("bk-2", "guest-2", 14, 16))
	require.NoError(t, err)

	mine, err := f.list.ForGuest(ctx, booking.ListGuestBookingsQuery{GuestID: "guest-1"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "bk-1", mine.Items[0].ID)

	hosted, err := f.list.ForHost(ctx, booking.ListHostBookingsQuery{HostID: "host-1"})
	require.NoError(t, err)
	assert.Len(t, hosted.Items, 2)

	_, err = f.list.ForGuest(ctx, booking.ListGuestBookingsQuery{})
	assert.ErrorIs(t, err, booking.ErrActorRequired)
}
