package resilience

import (
	"time"

	"github.com/ibeckermayer/xscrape/internal/config"
)

// Action is what the controller does after an attempt
type Action int

const (
	Proceed Action = iota
	Retry
	GiveUp
)

func (a Action) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case Retry:
		return "retry"
	default:
		return "give-up"
	}
}

// Decision is the policy's verdict on one attempt
type Decision struct {
	Action Action
	Delay  time.Duration
}

// Policy holds the retry parameters for one run
type Policy struct {
	MaxRetries          int
	BaseDelay           time.Duration
	MaxDelay            time.Duration
	Jitter              float64
	RateLimitMultiplier float64
	RateLimitThreshold  int
	RateLimitWindow     time.Duration
}

// PolicyFromConfig builds a policy from the retry config
func PolicyFromConfig(rc config.RetryConfig) Policy {
	return Policy{
		MaxRetries:          rc.MaxRetries,
		BaseDelay:           rc.BaseDelay,
		MaxDelay:            rc.MaxDelay,
		Jitter:              rc.Jitter,
		RateLimitMultiplier: rc.RateLimitMultiplier,
		RateLimitThreshold:  rc.RateLimitThreshold,
		RateLimitWindow:     rc.RateLimitWindow,
	}
}

// Decide is the pure decision over a zero-based attempt index and its
// outcome. MaxRetries bounds the total number of attempts. Returned delays
// carry no jitter.
func (p Policy) Decide(attempt int, o Outcome) Decision {
	switch o.Kind {
	case Success:
		return Decision{Action: Proceed}
	case Transient:
		if attempt+1 >= p.MaxRetries {
			return Decision{Action: GiveUp}
		}
		return Decision{Action: Retry, Delay: p.Backoff(attempt)}
	case RateLimited:
		if attempt+1 >= p.MaxRetries {
			return Decision{Action: GiveUp}
		}
		return Decision{Action: Retry, Delay: p.Cooldown(attempt)}
	default:
		return Decision{Action: GiveUp}
	}
}

// Backoff is BaseDelay * 2^attempt capped at MaxDelay
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for range attempt {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Cooldown is the backoff scaled by RateLimitMultiplier, capped at the
// larger of MaxDelay and the first cooldown
func (p Policy) Cooldown(attempt int) time.Duration {
	mult := p.RateLimitMultiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.Backoff(attempt)) * mult)
	limit := max(p.MaxDelay, time.Duration(float64(p.BaseDelay)*mult))
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// Jittered spreads d by up to ±Jitter using u drawn from [0, 1)
func (p Policy) Jittered(d time.Duration, u float64) time.Duration {
	if p.Jitter <= 0 || d <= 0 {
		return d
	}
	f := 1 + p.Jitter*(2*u-1)
	return time.Duration(float64(d) * f)
}
