package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xscrape/internal/config"
)

// HomeURL is only reachable with a logged-in session
const HomeURL = "https://x.com/home"

// Auth state selectors
const (
	homeIndicator    = `[data-testid="SideNav_NewTweet_Button"], [data-testid="AppTabBar_Profile_Link"]`
	loggedOutMarkers = `[data-testid="loginButton"], [data-testid="login"], a[href="/login"], a[href="/i/flow/login"]`
)

// SessionError reports that no browser could be started. It is fatal for a run.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// AuthState is the outcome of inspecting a page for login state
type AuthState int

const (
	AuthUnknown AuthState = iota
	AuthLoggedIn
	AuthLoggedOut
)

// Manager launches and releases browsers and probes their login state
type Manager struct {
	headless       bool
	userAgent      string
	pageTimeout    time.Duration
	elementTimeout time.Duration
	pollInterval   time.Duration
	log            zerolog.Logger
}

// NewManager creates a session manager from the browser and timing config
func NewManager(bc config.BrowserConfig, tc config.TimingConfig, log zerolog.Logger) *Manager {
	poll := tc.PollInterval
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &Manager{
		headless:       bc.Headless,
		userAgent:      bc.UserAgent,
		pageTimeout:    tc.PageTimeout,
		elementTimeout: tc.ElementTimeout,
		pollInterval:   poll,
		log:            log.With().Str("component", "browser").Logger(),
	}
}

// Acquire starts a browser. When sessionPath names a readable session file
// its cookies are restored; otherwise the browser starts anonymous.
func (m *Manager) Acquire(ctx context.Context, sessionPath string) (Handle, error) {
	// The browser outlives operator cancellation until Release is called
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), Options(m.headless, m.userAgent)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			m.log.Debug().Msgf(format, args...)
		}),
	)

	// First Run must use the NewContext context so the browser is tied to it
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, &SessionError{Err: err}
	}

	h := &chromeHandle{
		page:          &chromePage{tab: browserCtx},
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}
	m.log.Info().Bool("headless", m.headless).Msg("browser started")

	if sessionPath != "" {
		m.restore(ctx, h, sessionPath)
	}
	return h, nil
}

func (m *Manager) restore(ctx context.Context, h *chromeHandle, path string) {
	blob, err := os.ReadFile(path)
	if err != nil {
		m.log.Warn().Err(err).Str("session_file", path).Msg("session file unreadable, browsing anonymously")
		return
	}

	st, err := DecodeSessionState(blob)
	if err != nil {
		m.log.Warn().Err(err).Str("session_file", path).Msg("session file invalid, browsing anonymously")
		return
	}
	if st.Expired(time.Now()) {
		m.log.Warn().Time("expires_at", st.ExpiresAt).Msg("session cookies look expired, restoring anyway")
	}

	rctx, cancel := context.WithTimeout(ctx, m.pageTimeout)
	defer cancel()
	if err := h.page.run(rctx, setCookies(st.XCookies())); err != nil {
		m.log.Warn().Err(err).Msg("failed to restore session cookies, browsing anonymously")
		return
	}
	m.log.Info().Str("session_file", path).Time("captured_at", st.CapturedAt).Msg("restored saved session")
}

// setCookies sets cookies in the browser context
func setCookies(cookies []*network.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Release closes the browser. Safe to call with nil or more than once.
func (m *Manager) Release(h Handle) {
	if h == nil {
		return
	}
	if err := h.Close(); err != nil && !errors.Is(err, context.Canceled) {
		m.log.Debug().Err(err).Msg("browser close reported an error")
	}
	m.log.Info().Msg("browser released")
}

// Anonymize clears the session cookies of a handle
func (m *Manager) Anonymize(ctx context.Context, h Handle) error {
	rctx, cancel := context.WithTimeout(ctx, m.pageTimeout)
	defer cancel()
	return h.ClearSession(rctx)
}

// ProbeAuthenticated opens the home timeline and reports whether the page
// shows the logged-in navigation rather than a login wall.
func (m *Manager) ProbeAuthenticated(ctx context.Context, h Handle) (bool, error) {
	page := h.Page()

	nctx, cancel := context.WithTimeout(ctx, m.pageTimeout)
	_, err := page.Navigate(nctx, HomeURL)
	cancel()
	if err != nil {
		return false, fmt.Errorf("failed to open home timeline: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, m.elementTimeout)
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		loc, _ := page.Location(wctx)
		html, err := page.OuterHTML(wctx)
		if err == nil {
			doc, perr := goquery.NewDocumentFromReader(strings.NewReader(html))
			if perr == nil {
				switch ClassifyAuth(doc, loc) {
				case AuthLoggedIn:
					return true, nil
				case AuthLoggedOut:
					return false, nil
				}
			}
		}

		select {
		case <-wctx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			m.log.Warn().Str("location", loc).Msg("login state inconclusive, treating session as logged out")
			return false, nil
		case <-ticker.C:
		}
	}
}

// ClassifyAuth inspects a page snapshot for login state
func ClassifyAuth(doc *goquery.Document, location string) AuthState {
	if strings.Contains(location, "/login") || strings.Contains(location, "/i/flow/") {
		return AuthLoggedOut
	}
	if doc.Find(homeIndicator).Length() > 0 {
		return AuthLoggedIn
	}
	if doc.Find(loggedOutMarkers).Length() > 0 {
		return AuthLoggedOut
	}
	return AuthUnknown
}
