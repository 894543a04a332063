package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstQualifyingStopsAtFirstSuccess(t *testing.T) {
	var tried []string
	res, winner := FirstQualifying(context.Background(), []string{"a", "b", "c"}, time.Second,
		func(ctx context.Context, c string) (int, error) {
			tried = append(tried, c)
			if c == "b" {
				return 42, nil
			}
			return 0, errors.New("nope")
		})

	require.True(t, res.OK())
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, "b", winner)
	assert.Equal(t, []string{"a", "b"}, tried, "c must not be tried")
}

func TestFirstQualifyingAllFail(t *testing.T) {
	res, winner := FirstQualifying(context.Background(), []string{"a", "b"}, time.Second,
		func(ctx context.Context, c string) (string, error) {
			if c == "a" {
				return "", ErrHostNotAllowed
			}
			return "", ErrTooFewPods
		})

	assert.False(t, res.OK())
	assert.Empty(t, winner)
	assert.ErrorIs(t, res.Err, ErrHostNotAllowed)
	assert.ErrorIs(t, res.Err, ErrTooFewPods)
	assert.Equal(t, "fallback", res.ValueOr("fallback"))
}

func TestFirstQualifyingPerAttemptTimeout(t *testing.T) {
	start := time.Now()
	res, winner := FirstQualifying(context.Background(), []string{"slow", "fast"}, 50*time.Millisecond,
		func(ctx context.Context, c string) (string, error) {
			if c == "slow" {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "ok", nil
		})

	require.True(t, res.OK())
	assert.Equal(t, "fast", winner)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFirstQualifyingRespectsParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	res, _ := FirstQualifying(ctx, []string{"a", "b"}, time.Second,
		func(ctx context.Context, c string) (int, error) {
			calls++
			return 1, nil
		})

	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Zero(t, calls)
}

func TestFirstQualifyingNoCandidates(t *testing.T) {
	res, _ := FirstQualifying(context.Background(), nil, time.Second,
		func(ctx context.Context, c string) (int, error) { return 1, nil })
	assert.ErrorIs(t, res.Err, ErrNoCandidates)
}
