package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := New(Config{MaxFailures: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Calls are rejected without running fn.
	ran := false
	err := cb.Call(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New(Config{MaxFailures: 1, Cooldown: 10 * time.Millisecond, HalfOpenSuccess: 1})

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New(Config{MaxFailures: 1, Cooldown: 10 * time.Millisecond})

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	time.Sleep(20 * time.Millisecond)

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerClosedResetsOnSuccess(t *testing.T) {
	cb := New(Config{MaxFailures: 2, Cooldown: time.Minute})

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)

	// The intervening success reset the count, so one more failure is
	// still tolerated.
	assert.Equal(t, StateClosed, cb.State())
}
