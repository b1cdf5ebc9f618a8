package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Cookies that must be present for a logged-in X session
var authCookieNames = []string{"auth_token", "ct0"}

// SessionState is the persisted cookie snapshot of an authenticated browser
type SessionState struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewSessionState wraps captured cookies, recording the earliest expiry
// among the auth cookies.
func NewSessionState(cookies []*network.Cookie, now time.Time) *SessionState {
	var earliest time.Time
	for _, c := range cookies {
		if !isAuthCookie(c.Name) || c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}
	return &SessionState{Cookies: cookies, CapturedAt: now, ExpiresAt: earliest}
}

// DecodeSessionState parses a session blob
func DecodeSessionState(blob []byte) (*SessionState, error) {
	var st SessionState
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if len(st.Cookies) == 0 {
		return nil, errors.New("session holds no cookies")
	}
	return &st, nil
}

// Encode serializes the state for the session file
func (s *SessionState) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// HasAuthCookies reports whether every auth cookie is present and non-empty
func (s *SessionState) HasAuthCookies() bool {
	found := make(map[string]bool)
	for _, c := range s.Cookies {
		if isAuthCookie(c.Name) && c.Value != "" {
			found[c.Name] = true
		}
	}
	return len(found) == len(authCookieNames)
}

// Expired reports whether the auth cookies have lapsed at now
func (s *SessionState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// XCookies returns only the x.com and twitter.com cookies
func (s *SessionState) XCookies() []*network.Cookie {
	var out []*network.Cookie
	for _, c := range s.Cookies {
		switch c.Domain {
		case ".x.com", "x.com", ".twitter.com", "twitter.com":
			out = append(out, c)
		}
	}
	return out
}

func isAuthCookie(name string) bool {
	for _, n := range authCookieNames {
		if n == name {
			return true
		}
	}
	return false
}
