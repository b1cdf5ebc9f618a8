package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xscrape/internal/types"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func newTestController(p Policy) (*Controller, *sleepRecorder) {
	rec := &sleepRecorder{}
	return NewController("golang", p, rec.sleep, zerolog.Nop()), rec
}

// script returns an op that replays outcomes and counts calls
func script(calls *int, outcomes ...Outcome) func(context.Context) Outcome {
	return func(context.Context) Outcome {
		o := outcomes[min(*calls, len(outcomes)-1)]
		*calls++
		return o
	}
}

func TestAttemptRetriesTransientThenSucceeds(t *testing.T) {
	c, rec := newTestController(testPolicy)
	calls := 0

	out := c.Attempt(context.Background(), "open", script(&calls, Retryable(errors.New("timeout")), Ok()))
	assert.Equal(t, Success, out.Kind)
	assert.Equal(t, 2, calls)
	require.Len(t, rec.waits, 1)
	assert.InDelta(t, float64(2*time.Second), float64(rec.waits[0]), float64(400*time.Millisecond))
}

func TestAttemptExhaustedBecomesTerminal(t *testing.T) {
	c, rec := newTestController(testPolicy)
	calls := 0

	out := c.Attempt(context.Background(), "open", script(&calls, Retryable(errors.New("timeout"))))
	assert.Equal(t, TerminalForAccount, out.Kind)
	assert.Equal(t, types.ReasonRetriesExhausted, out.Reason)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.waits, 2)
}

func TestAttemptTerminalNotRetried(t *testing.T) {
	c, rec := newTestController(testPolicy)
	calls := 0

	out := c.Attempt(context.Background(), "open", script(&calls, Terminal(types.ReasonNotFound, nil)))
	assert.Equal(t, TerminalForAccount, out.Kind)
	assert.Equal(t, types.ReasonNotFound, out.Reason)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestAttemptRateLimitContainment(t *testing.T) {
	p := testPolicy
	p.MaxRetries = 10
	c, rec := newTestController(p)
	calls := 0

	out := c.Attempt(context.Background(), "open", script(&calls, Throttled(nil)))
	assert.Equal(t, RateLimited, out.Kind)
	assert.Equal(t, 3, calls)
	assert.True(t, c.RateLimited())

	// cooldowns are longer than ordinary backoff
	require.Len(t, rec.waits, 2)
	assert.GreaterOrEqual(t, rec.waits[0], 8*time.Second)

	// later steps of the same account are refused without running
	out = c.Attempt(context.Background(), "scroll", script(&calls, Ok()))
	assert.Equal(t, RateLimited, out.Kind)
	assert.Equal(t, 3, calls)
}

func TestAttemptRateLimitStreakResetBySuccess(t *testing.T) {
	p := testPolicy
	p.MaxRetries = 10
	c, _ := newTestController(p)
	calls := 0

	op := script(&calls, Throttled(nil), Throttled(nil), Ok())
	assert.Equal(t, Success, c.Attempt(context.Background(), "open", op).Kind)

	calls = 0
	op = script(&calls, Throttled(nil), Throttled(nil), Ok())
	assert.Equal(t, Success, c.Attempt(context.Background(), "scroll", op).Kind)
	assert.False(t, c.RateLimited())
}

func TestAttemptCanceled(t *testing.T) {
	c, _ := newTestController(testPolicy)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	out := c.Attempt(ctx, "open", script(&calls, Ok()))
	assert.Equal(t, Canceled, out.Kind)
	assert.Zero(t, calls)
}

func TestAttemptCanceledDuringBackoff(t *testing.T) {
	c, _ := newTestController(testPolicy)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	out := c.Attempt(ctx, "open", func(context.Context) Outcome {
		calls++
		cancel()
		return Retryable(errors.New("timeout"))
	})
	assert.Equal(t, Canceled, out.Kind)
	assert.Equal(t, 1, calls)
}
