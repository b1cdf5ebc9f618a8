// Package resilience decides whether browser steps are retried, cooled down
// or abandoned, and runs them under that policy.
package resilience

import (
	"errors"
	"fmt"
)

// Kind classifies the result of one attempt
type Kind int

const (
	Success Kind = iota
	Transient
	RateLimited
	TerminalForAccount
	Fatal
	Canceled
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Transient:
		return "transient"
	case RateLimited:
		return "rate-limited"
	case TerminalForAccount:
		return "terminal-for-account"
	case Fatal:
		return "fatal"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the typed result of a step. Reason names why an account ended
// for TerminalForAccount outcomes.
type Outcome struct {
	Kind   Kind
	Reason string
	Err    error
}

// Ok reports a successful step
func Ok() Outcome { return Outcome{Kind: Success} }

// Retryable reports a failure worth retrying
func Retryable(err error) Outcome { return Outcome{Kind: Transient, Err: err} }

// Throttled reports a rate-limit signature
func Throttled(err error) Outcome {
	if err == nil {
		err = errors.New("rate limit detected")
	}
	return Outcome{Kind: RateLimited, Err: err}
}

// Terminal ends the current account without retrying
func Terminal(reason string, err error) Outcome {
	return Outcome{Kind: TerminalForAccount, Reason: reason, Err: err}
}

// Abort stops the whole run
func Abort(err error) Outcome { return Outcome{Kind: Fatal, Err: err} }

// Stopped reports that the caller's context ended
func Stopped(err error) Outcome { return Outcome{Kind: Canceled, Err: err} }

func (o Outcome) String() string {
	switch {
	case o.Reason != "" && o.Err != nil:
		return fmt.Sprintf("%s(%s): %v", o.Kind, o.Reason, o.Err)
	case o.Reason != "":
		return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
	case o.Err != nil:
		return fmt.Sprintf("%s: %v", o.Kind, o.Err)
	default:
		return o.Kind.String()
	}
}
