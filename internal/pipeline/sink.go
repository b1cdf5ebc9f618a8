package pipeline

import (
	"context"
	"errors"

	"github.com/ibeckermayer/xscrape/internal/browser"
	"github.com/ibeckermayer/xscrape/internal/types"
)

// Sink receives each account's records in encounter order once the account
// is finished
type Sink interface {
	Write(account string, records []types.PostRecord) error
}

// MultiSink writes to every sink, continuing past failures
type MultiSink []Sink

func (m MultiSink) Write(account string, records []types.PostRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(account, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(account string, records []types.PostRecord) error

func (f SinkFunc) Write(account string, records []types.PostRecord) error {
	return f(account, records)
}

// Sessions acquires and releases the browser used for a run.
// *browser.Manager implements it.
type Sessions interface {
	Acquire(ctx context.Context, sessionPath string) (browser.Handle, error)
	Release(h browser.Handle)
	ProbeAuthenticated(ctx context.Context, h browser.Handle) (bool, error)
	Anonymize(ctx context.Context, h browser.Handle) error
}

var _ Sessions = (*browser.Manager)(nil)
