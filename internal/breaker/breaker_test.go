package breaker

import (
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterFailures(t *testing.T) {
	cb := New[int]("test-open", 3, nil)

	for i := 0; i < 3; i++ {
		_, err := Execute(cb, func() (int, error) { return 0, errBoom })
		require.ErrorIs(t, err, errBoom)
	}

	_, err := Execute(cb, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestBreakerIgnoresSuccessfulErrors(t *testing.T) {
	cb := New[int]("test-ignore", 3, func(err error) bool { return err == nil || errors.Is(err, errBoom) })

	for i := 0; i < 5; i++ {
		_, err := Execute(cb, func() (int, error) { return 0, errBoom })
		require.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	v, err := Execute(cb, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
