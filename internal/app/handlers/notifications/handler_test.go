package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/app/handlers/notifications"
	"stayly/internal/app/policies"
	domainbooking "stayly/internal/domain/booking"
	"stayly/internal/domain/shared/money"
	domainuser "stayly/internal/domain/user"
	"stayly/internal/infra/storage/memory"
)

type recordingNotifier struct {
	sent []policies.Notification
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, n policies.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func envelope(t *testing.T, id, typ string, data any) notifications.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return notifications.Envelope{ID: id, Type: typ, Source: "app://stayly", Data: raw}
}

func newHandler(t *testing.T) (*notifications.Handler, *recordingNotifier) {
	t.Helper()
	users := memory.NewUserRepository()
	for id, email := range map[string]string{"guest-1": "guest@example.com", "host-1": "host@example.com"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(id), Email: email})
		require.NoError(t, err)
		require.NoError(t, users.Save(context.Background(), u))
	}
	n := &recordingNotifier{}
	return &notifications.Handler{Inbox: memory.NewInbox(), Notifier: n, Users: users}, n
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := notifications.DecodeEnvelope([]byte(`{"id":"e1","type":"booking.requested.v1","source":"app://stayly","data":{"booking_id":"b1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "e1", env.ID)
	assert.JSONEq(t, `{"booking_id":"b1"}`, string(env.Data))

	_, err = notifications.DecodeEnvelope([]byte(`{"type":"booking.requested.v1"}`))
	assert.ErrorIs(t, err, notifications.ErrMalformedEvent)

	_, err = notifications.DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestRequestedNotifiesBothParties(t *testing.T) {
	h, n := newHandler(t)
	ev := domainbooking.BookingRequested{BookingID: "b1", PropertyID: "p1", GuestID: "guest-1", HostID: "host-1", At: time.Now()}

	require.NoError(t, h.Handle(context.Background(), envelope(t, "e1", "booking.requested.v1", ev)))
	require.Len(t, n.sent, 2)
	assert.Equal(t, "host@example.com", n.sent[0].To)
	assert.Equal(t, "host_booking_requested", n.sent[0].Template)
	assert.Equal(t, "guest@example.com", n.sent[1].To)
	assert.Equal(t, "b1", n.sent[1].Data["booking_id"])
}

func TestDuplicateDeliveryIsSkipped(t *testing.T) {
	h, n := newHandler(t)
	env := envelope(t, "e1", "booking.confirmed.v1", domainbooking.BookingConfirmed{BookingID: "b1", GuestID: "guest-1"})

	require.NoError(t, h.Handle(context.Background(), env))
	require.NoError(t, h.Handle(context.Background(), env))
	assert.Len(t, n.sent, 1)
}

func TestCancelledCarriesRefund(t *testing.T) {
	h, n := newHandler(t)
	ev := domainbooking.BookingCancelled{
		BookingID: "b1", PropertyID: "p1", GuestID: "guest-1", HostID: "host-1",
		By: domainbooking.StatusCancelledByGuest, Refund: money.Must(7500, "INR"), Reason: "flu",
	}

	require.NoError(t, h.Handle(context.Background(), envelope(t, "e2", "booking.cancelled.v1", ev)))
	require.Len(t, n.sent, 2)
	assert.Equal(t, "guest_booking_cancelled", n.sent[0].Template)
	assert.Equal(t, "7500 INR", n.sent[0].Data["refund"])
	assert.Equal(t, "cancelled_by_guest", n.sent[0].Data["cancelled_by"])
	assert.Equal(t, "flu", n.sent[1].Data["reason"])
}

func TestIgnoresOtherEvents(t *testing.T) {
	h, n := newHandler(t)
	require.NoError(t, h.Handle(context.Background(), envelope(t, "e3", "property.published.v1", map[string]string{"property_id": "p1"})))
	require.NoError(t, h.Handle(context.Background(), envelope(t, "e4", "booking.completed.v1", domainbooking.BookingCompleted{BookingID: "b1"})))
	assert.Empty(t, n.sent)
}

func TestUnknownUserFallsBackToID(t *testing.T) {
	h, n := newHandler(t)
	ev := domainbooking.BookingRejected{BookingID: "b1", GuestID: "guest-9", Reason: "dates held"}
	require.NoError(t, h.Handle(context.Background(), envelope(t, "e5", "booking.rejected.v1", ev)))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "guest-9", n.sent[0].To)
}

func TestNotifierFailureSurfaces(t *testing.T) {
	h, n := newHandler(t)
	n.err = errors.New("smtp down")
	env := envelope(t, "e6", "booking.confirmed.v1", domainbooking.BookingConfirmed{BookingID: "b1", GuestID: "guest-1"})
	assert.ErrorContains(t, h.Handle(context.Background(), env), "smtp down")
}

func TestFailedEventIsDeliveredOnRedelivery(t *testing.T) {
	h, n := newHandler(t)
	ctx := context.Background()
	env := envelope(t, "e7", "booking.requested.v1", domainbooking.BookingRequested{
		BookingID: "b1", PropertyID: "p1", GuestID: "guest-1", HostID: "host-1", At: time.Now(),
	})

	n.err = errors.New("smtp down")
	require.Error(t, h.Handle(ctx, env))
	assert.Empty(t, n.sent)

	n.err = nil
	require.NoError(t, h.Handle(ctx, env))
	require.Len(t, n.sent, 2)

	require.NoError(t, h.Handle(ctx, env))
	assert.Len(t, n.sent, 2, "a fully delivered event is not sent again")
}
