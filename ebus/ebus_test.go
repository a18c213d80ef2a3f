package ebus

import (
	"context"
	"testing"

	"github.com/streamfi/streamfi/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	N int
}

type otherEvent struct{}

func TestEmitTyped(t *testing.T) {
	bus := New()

	var got []int
	bus.Subscribe(pingEvent{}, Typed(func(ctx context.Context, e pingEvent) error {
		got = append(got, e.N)
		return nil
	}))
	bus.Subscribe(pingEvent{}, Typed(func(ctx context.Context, e pingEvent) error {
		got = append(got, e.N*10)
		return nil
	}))

	require.NoError(t, bus.Emit(context.Background(), pingEvent{N: 3}))
	assert.Equal(t, []int{3, 30}, got)

	// events without listeners are dropped
	require.NoError(t, bus.Emit(context.Background(), otherEvent{}))
	assert.Len(t, got, 2)
}

func TestEmitStopsOnError(t *testing.T) {
	bus := New()

	calls := 0
	bus.Subscribe(pingEvent{}, Typed(func(ctx context.Context, e pingEvent) error {
		calls++
		return errors.Wrap(errors.ErrState, "refused")
	}))
	bus.Subscribe(pingEvent{}, Typed(func(ctx context.Context, e pingEvent) error {
		calls++
		return nil
	}))

	err := bus.Emit(context.Background(), pingEvent{N: 1})
	assert.True(t, errors.ErrState.Is(err))
	assert.Equal(t, 1, calls)
}

func TestTypedRejectsWrongType(t *testing.T) {
	handler := Typed(func(ctx context.Context, e pingEvent) error { return nil })
	err := handler(context.Background(), otherEvent{})
	assert.True(t, errors.ErrInput.Is(err))
}
