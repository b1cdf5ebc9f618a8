package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xscrape/internal/browser"
	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/types"
)

// ErrTimelineTimeout means neither timeline content nor an account-state
// marker appeared within the element timeout
var ErrTimelineTimeout = errors.New("timed out waiting for timeline")

// bottomEpsilon is how close to the document end counts as the bottom
const bottomEpsilon = 4

// DelayRange bounds the randomized wait after each scroll
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Pick draws a delay uniformly from the range
func (d DelayRange) Pick(r *rand.Rand) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(r.Int64N(int64(d.Max-d.Min)+1))
}

// ScrollOutcome reports what one scroll did
type ScrollOutcome struct {
	Grew     bool
	AtBottom bool
}

// OpenResult is the timeline state once the page settled
type OpenResult struct {
	State  PageState
	Status int
	Doc    *goquery.Document
}

// Navigator drives the page to account timelines and scrolls them
type Navigator struct {
	pageTimeout    time.Duration
	elementTimeout time.Duration
	pollInterval   time.Duration
	rng            *rand.Rand
	log            zerolog.Logger

	// sleep waits for d or until ctx is done
	sleep func(ctx context.Context, d time.Duration) error
}

// NewNavigator creates a navigator from the timing config
func NewNavigator(tc config.TimingConfig, log zerolog.Logger) *Navigator {
	poll := tc.PollInterval
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &Navigator{
		pageTimeout:    tc.PageTimeout,
		elementTimeout: tc.ElementTimeout,
		pollInterval:   poll,
		rng:            rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		log:            log.With().Str("component", "navigator").Logger(),
		sleep:          Sleep,
	}
}

// WithSleep replaces the wait used between polls and after scrolls
func (n *Navigator) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Navigator {
	n.sleep = sleep
	return n
}

// Open navigates to the account timeline and waits until it shows posts or
// an account-state marker. Timing out is returned as ErrTimelineTimeout.
func (n *Navigator) Open(ctx context.Context, page browser.Page, target types.AccountTarget) (*OpenResult, error) {
	url := target.TimelineURL()
	n.log.Debug().Str("account", target.Handle).Str("url", url).Msg("navigating")

	nctx, cancel := context.WithTimeout(ctx, n.pageTimeout)
	status, err := page.Navigate(nctx, url)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	deadline := time.Now().Add(n.elementTimeout)
	for {
		sctx, cancel := context.WithTimeout(ctx, n.pageTimeout)
		doc, err := Snapshot(sctx, page)
		cancel()
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			if state := ClassifyPage(doc, status); state != PageLoading {
				return &OpenResult{State: state, Status: status, Doc: doc}, nil
			}
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%s: %w", target.Handle, ErrTimelineTimeout)
		}
		if err := n.sleep(ctx, n.pollInterval); err != nil {
			return nil, err
		}
	}
}

// scrollMetrics is read from the page before and after a scroll
type scrollMetrics struct {
	Height   float64 `json:"height"`
	LastID   string  `json:"lastId"`
	Y        float64 `json:"y"`
	Viewport float64 `json:"viewport"`
}

const metricsJS = `(() => {
	const posts = document.querySelectorAll('article[data-testid="tweet"], article[role="article"]');
	const last = posts.length ? posts[posts.length - 1] : null;
	const link = last ? last.querySelector('a[href*="/status/"]') : null;
	return {
		height: document.documentElement.scrollHeight,
		lastId: link ? link.getAttribute('href') : '',
		y: window.scrollY,
		viewport: window.innerHeight
	};
})()`

const scrollJS = `window.scrollTo(0, document.documentElement.scrollHeight)`

// ScrollOnce scrolls to the bottom, waits a random delay from delay and
// reports whether new content loaded
func (n *Navigator) ScrollOnce(ctx context.Context, page browser.Page, delay DelayRange) (ScrollOutcome, error) {
	var before, after scrollMetrics

	if err := n.eval(ctx, page, metricsJS, &before); err != nil {
		return ScrollOutcome{}, err
	}
	if err := n.eval(ctx, page, scrollJS, nil); err != nil {
		return ScrollOutcome{}, err
	}

	wait := delay.Pick(n.rng)
	if err := n.sleep(ctx, wait); err != nil {
		return ScrollOutcome{}, err
	}

	if err := n.eval(ctx, page, metricsJS, &after); err != nil {
		return ScrollOutcome{}, err
	}

	out := ScrollOutcome{
		Grew:     after.Height > before.Height || after.LastID != before.LastID,
		AtBottom: after.Y+after.Viewport >= after.Height-bottomEpsilon,
	}
	n.log.Debug().
		Float64("height", after.Height).
		Bool("grew", out.Grew).
		Bool("at_bottom", out.AtBottom).
		Dur("delay", wait).
		Msg("scrolled")
	return out, nil
}

func (n *Navigator) eval(ctx context.Context, page browser.Page, js string, res any) error {
	ectx, cancel := context.WithTimeout(ctx, n.elementTimeout)
	defer cancel()
	if err := page.Evaluate(ectx, js, res); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to evaluate scroll script: %w", err)
	}
	return nil
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
