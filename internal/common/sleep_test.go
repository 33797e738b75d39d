package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepContext_ZeroDuration(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), 0))
}

func TestJitter_StaysInBounds(t *testing.T) {
	min, max := 40*time.Millisecond, 120*time.Millisecond
	for i := 0; i < 500; i++ {
		d := Jitter(min, max)
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}
	assert.Equal(t, min, Jitter(min, min))
}
