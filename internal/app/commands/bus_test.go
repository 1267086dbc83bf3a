package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/app/commands"
)

type ping struct{ N int }

func (ping) Key() string { return "test.ping" }

type pong struct{}

func (pong) Key() string { return "test.pong" }

func TestInMemoryBusDispatch(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.Register[ping, int](bus, commands.HandlerFunc[ping, int](func(_ context.Context, c ping) (int, error) {
		return c.N * 2, nil
	}))

	got, err := commands.Dispatch[ping, int](context.Background(), bus, ping{N: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = commands.Dispatch[ping, string](context.Background(), bus, ping{N: 1})
	assert.ErrorIs(t, err, commands.ErrResultType)

	_, err = bus.Dispatch(context.Background(), pong{})
	assert.ErrorIs(t, err, commands.ErrHandlerNotFound)

	_, err = commands.Dispatch[ping, int](context.Background(), nil, ping{})
	assert.ErrorIs(t, err, commands.ErrNilBus)

	assert.Equal(t, []string{"test.ping"}, bus.Keys())
	assert.Panics(t, func() {
		commands.Register[ping, int](bus, commands.HandlerFunc[ping, int](func(context.Context, ping) (int, error) { return 0, nil }))
	})
}
