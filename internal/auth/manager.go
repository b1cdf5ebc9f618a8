package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/ibeckermayer/xscrape/internal/browser"
)

const loginURL = "https://x.com/login"

// Manager runs the interactive login that creates the session file
type Manager struct {
	store     *SessionStore
	userAgent string
	timeout   time.Duration
	log       zerolog.Logger

	// stdin is where the operator confirms the login; nil disables the prompt
	stdin io.Reader
}

// NewManager creates a new auth manager. The operator is prompted on stdin
// only when stdin is a terminal.
func NewManager(store *SessionStore, userAgent string, log zerolog.Logger) *Manager {
	m := &Manager{
		store:     store,
		userAgent: userAgent,
		timeout:   5 * time.Minute,
		log:       log.With().Str("component", "auth").Logger(),
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		m.stdin = os.Stdin
	}
	return m
}

// Login opens a visible browser on the X login page, waits for the operator
// to sign in and writes the captured cookies to the session store.
func (m *Manager) Login(ctx context.Context) error {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, browser.Options(false, m.userAgent)...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	var confirm <-chan struct{}
	if m.stdin != nil {
		fmt.Fprintln(os.Stderr, "Log in to X in the browser window, then press Enter here.")
		confirm = m.awaitEnter()
	}

	m.log.Info().Dur("timeout", m.timeout).Msg("waiting for login")
	if err := m.waitForLogin(browserCtx, confirm); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := m.store.Save(cookies); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.log.Info().Str("session_file", m.store.Path()).Int("cookies", len(cookies)).Msg("session saved")
	return nil
}

// awaitEnter signals each line the operator enters
func (m *Manager) awaitEnter() <-chan struct{} {
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		r := bufio.NewReader(m.stdin)
		for {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch
}

// waitForLogin polls until the browser lands on the home timeline with the
// auth cookies set. A confirmation from the operator forces an early check.
func (m *Manager) waitForLogin(ctx context.Context, confirm <-chan struct{}) error {
	timeout := time.After(m.timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("login timeout exceeded")
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-confirm:
			if !ok {
				confirm = nil
				continue
			}
			if loggedIn(ctx) {
				return nil
			}
			fmt.Fprintln(os.Stderr, "Not logged in yet, finish signing in and press Enter again.")
		case <-ticker.C:
			if loggedIn(ctx) {
				return nil
			}
		}
	}
}

func loggedIn(ctx context.Context) bool {
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return false
	}
	if !isHomeURL(url) {
		return false
	}

	cookies, err := extractCookies(ctx)
	if err != nil {
		return false
	}
	return browser.NewSessionState(cookies, time.Now()).HasAuthCookies()
}

func isHomeURL(url string) bool {
	url = strings.TrimSuffix(strings.SplitN(url, "?", 2)[0], "/")
	return url == "https://x.com/home" || url == "https://twitter.com/home"
}

// extractCookies gets all cookies from the browser
func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout removes the stored session
func (m *Manager) Logout() error {
	return m.store.Clear()
}
