package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/app/commands"
	bookingapp "stayly/internal/app/handlers/booking"
	"stayly/internal/app/middleware"
	"stayly/internal/infra/storage/memory"
)

type holdResult struct {
	BookingID string `json:"booking_id"`
}

type holdCommand struct {
	key  string
	name string
}

func (holdCommand) Key() string { return "test.hold" }

func (c holdCommand) IdempotencyKey() string { return c.key }

func (holdCommand) ResultPrototype() any { return &holdResult{} }

type otherCommand struct{ key string }

func (otherCommand) Key() string { return "test.other" }

func (c otherCommand) IdempotencyKey() string { return c.key }

func (otherCommand) ResultPrototype() any { return &holdResult{} }

type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	if h, ok := cmd.(holdCommand); ok {
		return &holdResult{BookingID: "bk-" + h.name}, nil
	}
	return &holdResult{BookingID: "other"}, nil
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))
	ctx := context.Background()

	first, err := bus.Dispatch(ctx, holdCommand{key: "k1", name: "a"})
	require.NoError(t, err)
	second, err := bus.Dispatch(ctx, holdCommand{key: "k1", name: "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, base.calls)
	assert.Equal(t, &holdResult{BookingID: "bk-a"}, first)
	assert.Equal(t, &holdResult{BookingID: "bk-a"}, second)
}

func TestIdempotencySkipsEmptyKey(t *testing.T) {
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))

	for i := 0; i < 2; i++ {
		_, err := bus.Dispatch(context.Background(), holdCommand{name: "a"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, base.calls)
}

func TestIdempotencyRejectsKeyReuseAcrossCommands(t *testing.T) {
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, holdCommand{key: "k1", name: "a"})
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, otherCommand{key: "k1"})
	assert.ErrorIs(t, err, middleware.ErrKeyReused)
	assert.Equal(t, 1, base.calls)
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	base := &countingBus{err: errors.New("dates taken")}
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, holdCommand{key: "k1", name: "a"})
	require.Error(t, err)

	base.err = nil
	res, err := bus.Dispatch(ctx, holdCommand{key: "k1", name: "b"})
	require.NoError(t, err)
	assert.Equal(t, &holdResult{BookingID: "bk-b"}, res)
	assert.Equal(t, 2, base.calls)
}

func TestIdempotencyHonoursStoreTTL(t *testing.T) {
	now := time.Date(2030, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewIdempotencyStore(time.Minute)
	store.Now = func() time.Time { return now }
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Idempotency(store, nil))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{
		Key: "k1", Command: "test.hold", Payload: []byte(`{"booking_id":"old"}`), OccurredAt: now.Add(-2 * time.Minute),
	}))
	res, err := bus.Dispatch(ctx, holdCommand{key: "k1", name: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, &holdResult{BookingID: "bk-fresh"}, res)
	assert.Equal(t, 1, base.calls)
}

type bookingBus struct{ calls int }

func (b *bookingBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	b.calls++
	req := cmd.(bookingapp.RequestBookingCommand)
	return &bookingapp.RequestBookingResult{BookingID: "bk-" + req.GuestID + "-" + req.CheckIn.Format("0102"), Status: "requested"}, nil
}

func TestIdempotencyKeyScopedToCommandContent(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2030, time.August, d, 0, 0, 0, 0, time.UTC) }
	request := func(guest string, in, out int, commandID string) bookingapp.RequestBookingCommand {
		return bookingapp.RequestBookingCommand{
			CommandID: commandID, PropertyID: "prop-1", GuestID: guest,
			CheckIn: day(in), CheckOut: day(out), Guests: 2, IdempotencyKeyV: "retry-1",
		}
	}
	base := &bookingBus{}
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))
	ctx := context.Background()

	alice, err := bus.Dispatch(ctx, request("alice", 10, 12, "c1"))
	require.NoError(t, err)
	bob, err := bus.Dispatch(ctx, request("bob", 10, 12, "c2"))
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls, "different guests sharing a client key must both execute")
	assert.NotEqual(t, alice.(*bookingapp.RequestBookingResult).BookingID, bob.(*bookingapp.RequestBookingResult).BookingID)

	_, err = bus.Dispatch(ctx, request("alice", 20, 22, "c3"))
	assert.ErrorIs(t, err, middleware.ErrKeyReused)

	replay, err := bus.Dispatch(ctx, request("alice", 10, 12, "c4"))
	require.NoError(t, err)
	assert.Equal(t, alice, replay)
	assert.Equal(t, 2, base.calls)
}

func TestIdempotencyRejectsChangedPayloadWithoutFingerprinter(t *testing.T) {
	store := memory.NewIdempotencyStore(time.Hour)
	base := &countingBus{}
	bus := middleware.ChainCommands(base, middleware.Idempotency(store, nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, payloadCommand{IdemKey: "k1", Amount: 10})
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, payloadCommand{IdemKey: "k1", Amount: 10})
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, payloadCommand{IdemKey: "k1", Amount: 99})
	assert.ErrorIs(t, err, middleware.ErrKeyReused)
	assert.Equal(t, 1, base.calls)
}

type payloadCommand struct {
	IdemKey string `json:"-"`
	Amount  int    `json:"amount"`
}

func (payloadCommand) Key() string { return "test.payload" }

func (c payloadCommand) IdempotencyKey() string { return c.IdemKey }

func (payloadCommand) ResultPrototype() any { return &holdResult{} }

type orderMiddleware struct {
	name string
	log  *[]string
}

func (o orderMiddleware) wrap(next commands.Bus) commands.Bus {
	return dispatchFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		*o.log = append(*o.log, o.name)
		return next.Dispatch(ctx, cmd)
	})
}

type dispatchFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f dispatchFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func TestChainCommandsRunsInOrder(t *testing.T) {
	var log []string
	bus := middleware.ChainCommands(&countingBus{},
		orderMiddleware{name: "first", log: &log}.wrap,
		orderMiddleware{name: "second", log: &log}.wrap,
	)
	_, err := bus.Dispatch(context.Background(), holdCommand{name: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, log)
}

type rejectAll struct{ err error }

func (r rejectAll) Validate(context.Context, any) error { return r.err }

func TestValidationShortCircuits(t *testing.T) {
	base := &countingBus{}
	invalid := errors.New("invalid")
	bus := middleware.ChainCommands(base, middleware.Validation(rejectAll{err: invalid}))

	_, err := bus.Dispatch(context.Background(), holdCommand{name: "a"})
	assert.ErrorIs(t, err, invalid)
	assert.Zero(t, base.calls)
}
