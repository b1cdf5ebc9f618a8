package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/ibeckermayer/xscrape/internal/types"
)

// Controller runs the steps of one account under a Policy. A circuit breaker
// counts consecutive rate-limit signatures; once it opens, every further
// step of the account ends RateLimited.
type Controller struct {
	account string
	policy  Policy
	breaker *gobreaker.CircuitBreaker
	rng     *rand.Rand
	log     zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates the controller for one account
func NewController(account string, policy Policy, sleep func(ctx context.Context, d time.Duration) error, log zerolog.Logger) *Controller {
	threshold := policy.RateLimitThreshold
	if threshold < 1 {
		threshold = 1
	}
	log = log.With().Str("account", account).Logger()

	c := &Controller{
		account: account,
		policy:  policy,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(len(account)))),
		log:     log,
		sleep:   sleep,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ratelimit:" + account,
		MaxRequests: 1,
		Interval:    policy.RateLimitWindow,
		Timeout:     policy.RateLimitWindow,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("rate-limit breaker changed state")
		},
	})
	return c
}

// Attempt runs fn until it succeeds, fails terminally or the policy gives
// up. Transient failures never escape: exhausting retries turns them into a
// TerminalForAccount outcome.
func (c *Controller) Attempt(ctx context.Context, op string, fn func(ctx context.Context) Outcome) Outcome {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Stopped(err)
		}

		out, open := c.execute(ctx, fn)
		if open {
			c.log.Warn().Str("op", op).Msg("repeated rate limiting, abandoning account")
			return Throttled(out.Err)
		}

		d := c.policy.Decide(attempt, out)
		switch d.Action {
		case Proceed:
			return out
		case GiveUp:
			return c.escalate(op, attempt, out)
		}

		delay := c.policy.Jittered(d.Delay, c.rng.Float64())
		ev := c.log.Info()
		if out.Kind == RateLimited {
			ev = c.log.Warn()
		}
		ev.Str("op", op).
			Int("attempt", attempt+1).
			Str("outcome", out.Kind.String()).
			Err(out.Err).
			Dur("delay", delay).
			Msg("retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return Stopped(err)
		}
	}
}

// execute runs fn through the breaker. Only rate-limit outcomes count as
// breaker failures, so any other outcome resets the streak.
func (c *Controller) execute(ctx context.Context, fn func(ctx context.Context) Outcome) (Outcome, bool) {
	var out Outcome
	_, err := c.breaker.Execute(func() (interface{}, error) {
		out = fn(ctx)
		if out.Kind == RateLimited {
			return nil, out.Err
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Throttled(err), true
	}
	return out, c.breaker.State() == gobreaker.StateOpen
}

func (c *Controller) escalate(op string, attempt int, out Outcome) Outcome {
	switch out.Kind {
	case Transient:
		c.log.Warn().Str("op", op).Int("attempts", attempt+1).Err(out.Err).Msg("retries exhausted")
		return Terminal(types.ReasonRetriesExhausted, out.Err)
	case RateLimited:
		c.log.Warn().Str("op", op).Int("attempts", attempt+1).Msg("still rate limited after retries")
		return out
	default:
		return out
	}
}

// RateLimited reports whether the account's breaker has opened
func (c *Controller) RateLimited() bool {
	return c.breaker.State() == gobreaker.StateOpen
}
