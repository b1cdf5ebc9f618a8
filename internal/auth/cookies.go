// Package auth captures and stores the X session used for scraping.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/xscrape/internal/browser"
)

// SessionStore persists the session file read by browser.Manager
type SessionStore struct {
	path string
}

// NewSessionStore creates a session store at the given path
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path returns the session file location
func (s *SessionStore) Path() string {
	return s.path
}

// Save persists cookies to disk
func (s *SessionStore) Save(cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := browser.NewSessionState(cookies, time.Now()).Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load retrieves the session from disk
func (s *SessionStore) Load() (*browser.SessionState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return browser.DecodeSessionState(data)
}

// Check reports why the stored session cannot be used, or nil when it looks
// usable. A usable file can still be rejected by X; only a probe tells.
func (s *SessionStore) Check(now time.Time) error {
	st, err := s.Load()
	if err != nil {
		return err
	}
	if !st.HasAuthCookies() {
		return fmt.Errorf("session %s is missing auth_token or ct0", s.path)
	}
	if st.Expired(now) {
		return fmt.Errorf("session %s expired at %s", s.path, st.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// Clear removes the stored session
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
