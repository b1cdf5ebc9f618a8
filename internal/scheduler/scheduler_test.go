package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New("Mars/Olympus", 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestAddAndRemoveJob(t *testing.T) {
	s, err := New("UTC", 0, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.AddJob("scrape", "0 */6 * * *", noop))
	assert.Error(t, s.AddJob("bad", "every tuesday", noop))

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "scrape", jobs[0].Name)

	s.RemoveJob("scrape")
	assert.Empty(t, s.ListJobs())
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s, err := New("UTC", time.Minute, zerolog.Nop())
	require.NoError(t, err)

	var deadline time.Time
	var hasDeadline bool
	err = s.RunNow(context.Background(), "scrape", func(ctx context.Context) error {
		deadline, hasDeadline = ctx.Deadline()
		return nil
	})
	require.NoError(t, err)
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestRunNowReturnsJobError(t *testing.T) {
	s, err := New("UTC", 0, zerolog.Nop())
	require.NoError(t, err)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.RunNow(context.Background(), "scrape", func(context.Context) error { return boom }), boom)
}

func TestStopCancelsJobs(t *testing.T) {
	s, err := New("UTC", 0, zerolog.Nop())
	require.NoError(t, err)

	s.Start()
	done := s.Stop()

	select {
	case <-done.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
}
