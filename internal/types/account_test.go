package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jack", "jack"},
		{"@jack", "jack"},
		{"  @jack  ", "jack"},
		{"https://x.com/jack", "jack"},
		{"https://twitter.com/jack", "jack"},
		{"http://www.twitter.com/jack/", "jack"},
		{"HTTPS://X.COM/Jack", "Jack"},
		{"x.com/jack/status/123", "jack"},
		{"https://mobile.twitter.com/jack?lang=en", "jack"},
		{"https://x.com/@jack", "jack"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHandle(tt.in))
		})
	}
}

func TestNormalizeHandlesDedupesInOrder(t *testing.T) {
	got := NormalizeHandles([]string{"@OpenAI", "jack", "https://x.com/openai", " ", "x.com/jack"})
	assert.Equal(t, []string{"OpenAI", "jack"}, got)
}

func TestAccountResultLabel(t *testing.T) {
	assert.Equal(t, "Completed", AccountResult{Status: StatusCompleted}.Label())
	assert.Equal(t, "RateLimited", AccountResult{Status: StatusRateLimited}.Label())
	assert.Equal(t, "Skipped:not-found", AccountResult{Status: StatusSkipped, Reason: ReasonNotFound}.Label())
}

func TestPostRecordAge(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	p := PostRecord{ScrapedAt: now, Timestamp: now.Add(-48 * time.Hour)}
	assert.Equal(t, 48*time.Hour, p.Age())

	assert.Zero(t, PostRecord{ScrapedAt: now}.Age())
}
