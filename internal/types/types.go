package types

import (
	"fmt"
	"time"
)

// PostRecord is one normalized post scraped from an account timeline
type PostRecord struct {
	PostID             string    `json:"post_id"`
	PostURL            string    `json:"post_url"`
	AccountHandle      string    `json:"account_handle"`
	AccountDisplayName string    `json:"account_display_name"`
	Timestamp          time.Time `json:"timestamp,omitzero"`
	TextContent        string    `json:"text_content"`
	MediaURLs          []string  `json:"media_urls"`
	ReplyCount         int       `json:"reply_count"`
	RepostCount        int       `json:"repost_count"`
	LikeCount          int       `json:"like_count"`
	ViewCount          int       `json:"view_count"`
	IsRepost           bool      `json:"is_repost"`
	IsQuote            bool      `json:"is_quote"`
	ScrapedAt          time.Time `json:"scraped_at"`
}

// Age returns how old the post was when it was captured.
// Posts without a parsed timestamp report zero.
func (p PostRecord) Age() time.Duration {
	if p.Timestamp.IsZero() {
		return 0
	}
	return p.ScrapedAt.Sub(p.Timestamp)
}

// AccountTarget is one account queued for scraping
type AccountTarget struct {
	Handle    string
	Limit     int
	CutoffAge time.Duration // zero disables the cutoff
}

// TimelineURL returns the canonical profile timeline URL
func (t AccountTarget) TimelineURL() string {
	return "https://x.com/" + t.Handle
}

// Status is the terminal state of one account
type Status string

const (
	StatusPending     Status = "pending"
	StatusCompleted   Status = "completed"
	StatusSkipped     Status = "skipped"
	StatusRateLimited Status = "rate_limited"
)

// Skip reasons
const (
	ReasonNotFound         = "not-found"
	ReasonSuspended        = "suspended"
	ReasonProtected        = "protected"
	ReasonRetriesExhausted = "retries-exhausted"
	ReasonCanceled         = "canceled"
	ReasonAborted          = "aborted"
)

// AccountResult summarizes the processing of one account
type AccountResult struct {
	Handle   string        `json:"handle"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Records  int           `json:"records"`
	Scrolls  int           `json:"scrolls"`
	StopCond string        `json:"stop_condition,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Label renders the status the way it appears in summaries, e.g. "Skipped:not-found"
func (r AccountResult) Label() string {
	switch r.Status {
	case StatusCompleted:
		return "Completed"
	case StatusRateLimited:
		return "RateLimited"
	case StatusSkipped:
		return fmt.Sprintf("Skipped:%s", r.Reason)
	default:
		return "Pending"
	}
}
