package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/xscrape/internal/types"
)

var testPolicy = Policy{
	MaxRetries:          3,
	BaseDelay:           2 * time.Second,
	MaxDelay:            60 * time.Second,
	Jitter:              0.2,
	RateLimitMultiplier: 5,
	RateLimitThreshold:  3,
	RateLimitWindow:     10 * time.Minute,
}

func TestDecide(t *testing.T) {
	errTimeout := errors.New("timeout")

	tests := []struct {
		name    string
		attempt int
		outcome Outcome
		want    Decision
	}{
		{name: "success proceeds", attempt: 0, outcome: Ok(), want: Decision{Action: Proceed}},
		{name: "first transient", attempt: 0, outcome: Retryable(errTimeout), want: Decision{Action: Retry, Delay: 2 * time.Second}},
		{name: "second transient", attempt: 1, outcome: Retryable(errTimeout), want: Decision{Action: Retry, Delay: 4 * time.Second}},
		{name: "transient exhausted", attempt: 2, outcome: Retryable(errTimeout), want: Decision{Action: GiveUp}},
		{name: "rate limit cools down longer", attempt: 0, outcome: Throttled(nil), want: Decision{Action: Retry, Delay: 10 * time.Second}},
		{name: "rate limit second", attempt: 1, outcome: Throttled(nil), want: Decision{Action: Retry, Delay: 20 * time.Second}},
		{name: "terminal never retried", attempt: 0, outcome: Terminal(types.ReasonNotFound, nil), want: Decision{Action: GiveUp}},
		{name: "fatal never retried", attempt: 0, outcome: Abort(errors.New("boom")), want: Decision{Action: GiveUp}},
		{name: "canceled never retried", attempt: 0, outcome: Stopped(errors.New("canceled")), want: Decision{Action: GiveUp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testPolicy.Decide(tt.attempt, tt.outcome))
		})
	}
}

func TestBackoffCapped(t *testing.T) {
	assert.Equal(t, 2*time.Second, testPolicy.Backoff(0))
	assert.Equal(t, 32*time.Second, testPolicy.Backoff(4))
	assert.Equal(t, 60*time.Second, testPolicy.Backoff(5))
	assert.Equal(t, 60*time.Second, testPolicy.Backoff(40))
}

func TestCooldownCapped(t *testing.T) {
	p := testPolicy
	p.MaxDelay = 5 * time.Second
	assert.Equal(t, 10*time.Second, p.Cooldown(0))
	assert.Equal(t, 10*time.Second, p.Cooldown(3))
}

func TestJittered(t *testing.T) {
	d := 10 * time.Second
	assert.InDelta(t, float64(8*time.Second), float64(testPolicy.Jittered(d, 0)), float64(time.Millisecond))
	assert.Equal(t, d, testPolicy.Jittered(d, 0.5))
	assert.InDelta(t, float64(12*time.Second), float64(testPolicy.Jittered(d, 0.999999)), float64(time.Millisecond))

	p := testPolicy
	p.Jitter = 0
	assert.Equal(t, d, p.Jittered(d, 0.9))
}
