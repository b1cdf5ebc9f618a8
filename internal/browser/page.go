package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Page is the single tab the pipeline drives. Every call blocks until the
// browser answers or ctx expires.
type Page interface {
	// Navigate loads url and returns the HTTP status of the main document
	// (0 when the browser did not report one).
	Navigate(ctx context.Context, url string) (int, error)
	Location(ctx context.Context) (string, error)
	OuterHTML(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, expression string, res any) error
}

// Handle is an acquired browser with its page
type Handle interface {
	Page() Page
	// ClearSession drops cookies so browsing continues anonymously
	ClearSession(ctx context.Context) error
	Close() error
}

// ErrBrowserClosed means the browser went away; no further page action can
// succeed
var ErrBrowserClosed = errors.New("browser closed")

// chromePage runs actions on the tab context. Caller contexts only bound
// the action; cancelling them never closes the tab.
type chromePage struct {
	tab context.Context
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	_, err := p.runResponse(ctx, false, actions...)
	return err
}

func (p *chromePage) runResponse(ctx context.Context, wantResponse bool, actions ...chromedp.Action) (*network.Response, error) {
	rctx, cancel := context.WithCancel(p.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		rctx, cancelDeadline = context.WithDeadline(rctx, deadline)
		defer cancelDeadline()
	}

	var resp *network.Response
	var err error
	if wantResponse {
		resp, err = chromedp.RunResponse(rctx, actions...)
	} else {
		err = chromedp.Run(rctx, actions...)
	}
	if err != nil && p.tab.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserClosed, err)
	}
	return resp, err
}

func (p *chromePage) Navigate(ctx context.Context, url string) (int, error) {
	resp, err := p.runResponse(ctx, true, chromedp.Navigate(url))
	if err != nil {
		return 0, err
	}
	if resp == nil {
		return 0, nil
	}
	return int(resp.Status), nil
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var url string
	err := p.run(ctx, chromedp.Location(&url))
	return url, err
}

func (p *chromePage) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Evaluate(ctx context.Context, expression string, res any) error {
	return p.run(ctx, chromedp.Evaluate(expression, res))
}

// chromeHandle owns the allocator and browser contexts
type chromeHandle struct {
	page          *chromePage
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	once          sync.Once
}

func (h *chromeHandle) Page() Page { return h.page }

func (h *chromeHandle) ClearSession(ctx context.Context) error {
	return h.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.ClearBrowserCookies().Do(ctx)
	}))
}

// Close shuts down the tab, the browser process and the allocator. Safe to
// call more than once.
func (h *chromeHandle) Close() error {
	var err error
	h.once.Do(func() {
		err = chromedp.Cancel(h.page.tab)
		h.browserCancel()
		h.allocCancel()
	})
	return err
}
