package extractor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func sleeper(d time.Duration, value string, err error) watcher[string] {
	return func(ctx context.Context) (string, error) {
		select {
		case <-time.After(d):
			return value, err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func TestFirstOf_FirstFinisherWins(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	value, err := firstOf(context.Background(),
		sleeper(time.Second, "slow", nil),
		sleeper(10*time.Millisecond, "fast", nil),
		sleeper(time.Second, "slower", nil),
	)

	require.NoError(t, err)
	assert.Equal(t, "fast", value)
}

func TestFirstOf_LosersAreCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var cancelled atomic.Int32
	loser := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		cancelled.Add(1)
		return "", ctx.Err()
	}

	value, err := firstOf(context.Background(), loser, sleeper(5*time.Millisecond, "win", nil), loser)

	require.NoError(t, err)
	assert.Equal(t, "win", value)
	assert.EqualValues(t, 2, cancelled.Load(), "losers have returned before firstOf does")
}

func TestFirstOf_ErrorFinishes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("boom")
	_, err := firstOf(context.Background(),
		sleeper(time.Second, "slow", nil),
		sleeper(5*time.Millisecond, "", boom),
	)

	assert.ErrorIs(t, err, boom)
}

func TestFirstOf_Deadline(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := firstOf(ctx, sleeper(time.Second, "a", nil), sleeper(time.Second, "b", nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFirstOf_NoWatchers(t *testing.T) {
	_, err := firstOf[string](context.Background())
	assert.NoError(t, err)
}

func TestPoll_StopsWhenDone(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	calls := 0
	value, err := poll(context.Background(), time.Millisecond, func(ctx context.Context) (int, bool, error) {
		calls++
		return calls, calls == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, value)
}

func TestPoll_ReturnsCheckError(t *testing.T) {
	boom := errors.New("boom")
	_, err := poll(context.Background(), time.Millisecond, func(ctx context.Context) (int, bool, error) {
		return 0, false, boom
	})
	assert.ErrorIs(t, err, boom)
}
