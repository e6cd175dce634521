package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_NextExhausts(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitBackoff: time.Millisecond, Factor: 2, MaxBackoff: time.Second}
	p := New(cfg)
	assert.True(t, p.Next())
	assert.True(t, p.Next())
	assert.True(t, p.Next())
	assert.False(t, p.Next())
	assert.Equal(t, 0, p.Remaining())
}

func TestPolicy_BackoffCapsAtMax(t *testing.T) {
	cfg := Config{MaxRetries: 50, InitBackoff: time.Second, Factor: 2, MaxBackoff: 5 * time.Second}
	p := New(cfg)
	for i := 0; i < 10; i++ {
		require.True(t, p.Next())
	}
	assert.LessOrEqual(t, p.backoff, cfg.MaxBackoff)
}

func TestPolicy_DelayNoOpWhenExhausted(t *testing.T) {
	cfg := Config{MaxRetries: 1, InitBackoff: time.Hour, Factor: 2, MaxBackoff: time.Hour}
	p := New(cfg)
	require.True(t, p.Next())
	require.False(t, p.Next())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Delay(ctx)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitBackoff: time.Millisecond, Factor: 1.5, MaxBackoff: 10 * time.Millisecond}
	attempts := 0
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAndReturnsLastError(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitBackoff: time.Millisecond, Factor: 1, MaxBackoff: time.Millisecond}
	attempts := 0
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, "permanent", err.Error())
	assert.Equal(t, 2, attempts) // exactly MaxRetries total attempts
}
