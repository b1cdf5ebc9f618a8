// Package pipeline runs the account timeline scrape: one browser, accounts
// processed in order, each ending Completed, Skipped or RateLimited.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ibeckermayer/xscrape/internal/browser"
	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/resilience"
	"github.com/ibeckermayer/xscrape/internal/scraper"
	"github.com/ibeckermayer/xscrape/internal/types"
)

// Orchestrator sequences navigation, scrolling and extraction per account
type Orchestrator struct {
	cfg      *config.Config
	sessions Sessions
	sink     Sink
	nav      *scraper.Navigator
	ext      *scraper.Extractor
	policy   resilience.Policy
	limiter  *rate.Limiter
	delay    scraper.DelayRange
	log      zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSleep replaces every wait the pipeline makes (poll, scroll delay,
// backoff)
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// WithClock replaces the capture-time clock
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator for a resolved configuration
func New(cfg *config.Config, sessions Sessions, sink Sink, log zerolog.Logger, opts ...Option) *Orchestrator {
	limit := rate.Inf
	if cfg.Timing.AccountDelay > 0 {
		limit = rate.Every(cfg.Timing.AccountDelay)
	}

	o := &Orchestrator{
		cfg:      cfg,
		sessions: sessions,
		sink:     sink,
		ext:      scraper.NewExtractor(log),
		policy:   resilience.PolicyFromConfig(cfg.Retry),
		limiter:  rate.NewLimiter(limit, 1),
		delay:    scraper.DelayRange{Min: cfg.Timing.ScrollDelayMin, Max: cfg.Timing.ScrollDelayMax},
		log:      log.With().Str("component", "pipeline").Logger(),
		sleep:    scraper.Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.nav = scraper.NewNavigator(cfg.Timing, log).WithSleep(o.sleep)
	return o
}

// Run scrapes every configured account in order. The browser is released
// exactly once on every exit path. Only fatal failures are returned as an
// error; the report is returned even then.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	targets := o.cfg.Targets()
	if len(targets) == 0 {
		return nil, config.ErrNoAccounts
	}

	report := &RunReport{ID: uuid.NewString(), StartedAt: o.now()}
	log := o.log.With().Str("run_id", report.ID).Logger()
	log.Info().Int("accounts", len(targets)).Msg("run started")

	h, err := o.sessions.Acquire(ctx, o.cfg.Browser.SessionFile)
	if err != nil {
		report.FinishedAt = o.now()
		return report, err
	}
	defer o.sessions.Release(h)

	if o.cfg.Browser.SessionFile != "" {
		o.checkSession(ctx, h)
	}

	var fatal error
	for i, t := range targets {
		if fatal != nil {
			report.Results = append(report.Results, skipped(t.Handle, types.ReasonAborted))
			continue
		}
		if ctx.Err() != nil {
			report.Results = append(report.Results, skipped(t.Handle, types.ReasonCanceled))
			continue
		}
		if i > 0 {
			if err := o.limiter.Wait(ctx); err != nil {
				report.Results = append(report.Results, skipped(t.Handle, types.ReasonCanceled))
				continue
			}
		}

		var res types.AccountResult
		res, fatal = o.scrapeAccount(ctx, h.Page(), t)
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = o.now()
	for _, res := range report.Results {
		summary(log, res)
	}
	log.Info().
		Int("records", report.Records()).
		Int("completed", report.Count(types.StatusCompleted)).
		Int("skipped", report.Count(types.StatusSkipped)).
		Int("rate_limited", report.Count(types.StatusRateLimited)).
		Dur("duration", report.Duration()).
		Msg("run finished")

	return report, fatal
}

// checkSession falls back to anonymous browsing when the restored session
// turns out to be logged out
func (o *Orchestrator) checkSession(ctx context.Context, h browser.Handle) {
	ok, err := o.sessions.ProbeAuthenticated(ctx, h)
	switch {
	case err != nil:
		o.log.Warn().Err(err).Msg("could not verify session, continuing")
	case ok:
		o.log.Info().Msg("session is authenticated")
	default:
		o.log.Warn().Msg("session is stale, continuing anonymously")
		if err := o.sessions.Anonymize(ctx, h); err != nil {
			o.log.Warn().Err(err).Msg("failed to clear stale session")
		}
	}
}

// scrapeAccount drives one account through
// Navigating -> Scrolling <-> Extracting -> Completed | Skipped | RateLimited.
// The error is non-nil only for failures fatal to the whole run.
func (o *Orchestrator) scrapeAccount(ctx context.Context, page browser.Page, t types.AccountTarget) (types.AccountResult, error) {
	start := o.now()
	log := o.log.With().Str("account", t.Handle).Logger()
	res := types.AccountResult{Handle: t.Handle, Status: types.StatusPending}

	ctl := resilience.NewController(t.Handle, o.policy, o.sleep, o.log)
	col := scraper.NewCollector(t)
	pag := scraper.NewPaginator(o.cfg.Pagination.StallLimit, o.cfg.Pagination.MaxScrolls)

	ingest := func(r *scraper.OpenResult) {
		pag.Collected(col.Ingest(o.ext.Records(r.Doc, t.Handle, o.now())))
	}

	// open loads the timeline and classifies it
	open := func(ctx context.Context) (*scraper.OpenResult, resilience.Outcome) {
		r, err := o.nav.Open(ctx, page, t)
		if err != nil {
			return nil, classify(ctx, err)
		}
		switch {
		case r.State.Terminal():
			return r, resilience.Terminal(r.State.String(), nil)
		case r.State == scraper.PageRateLimited:
			return r, resilience.Throttled(fmt.Errorf("rate limit page (status %d)", r.Status))
		}
		return r, resilience.Ok()
	}

	log.Info().Str("state", "navigating").Msg("account started")
	var opened *scraper.OpenResult
	out := ctl.Attempt(ctx, "open", func(ctx context.Context) resilience.Outcome {
		r, out := open(ctx)
		if out.Kind == resilience.Success {
			opened = r
		}
		return out
	})

	if out.Kind == resilience.Success {
		if opened.State == scraper.PageEmpty {
			res.StopCond = string(scraper.StopEndOfContent)
		} else {
			ingest(opened)
			log.Debug().Str("state", "scrolling").Msg("timeline loaded")
			out = o.paginate(ctx, page, ctl, pag, open, ingest)
			if reason, stop := pag.Stop(); stop {
				res.StopCond = string(reason)
			}
		}
	}

	records := col.Records()
	res.Records = len(records)
	res.Scrolls = pag.Scrolls()
	if err := o.sink.Write(t.Handle, records); err != nil {
		log.Error().Err(err).Msg("failed to write records")
		res.Err = err.Error()
	}

	var fatal error
	switch out.Kind {
	case resilience.Success:
		res.Status = types.StatusCompleted
	case resilience.RateLimited:
		res.Status = types.StatusRateLimited
	case resilience.TerminalForAccount:
		res.Status, res.Reason = types.StatusSkipped, out.Reason
	case resilience.Canceled:
		res.Status, res.Reason = types.StatusSkipped, types.ReasonCanceled
	case resilience.Fatal:
		res.Status, res.Reason = types.StatusSkipped, types.ReasonAborted
		fatal = out.Err
	}
	if out.Err != nil && res.Err == "" {
		res.Err = out.Err.Error()
	}
	res.Duration = o.now().Sub(start)
	return res, fatal
}

// paginate alternates scrolling and extracting until a stop predicate holds.
// After a rate-limit signature the next attempt reloads the timeline.
func (o *Orchestrator) paginate(
	ctx context.Context,
	page browser.Page,
	ctl *resilience.Controller,
	pag *scraper.Paginator,
	open func(context.Context) (*scraper.OpenResult, resilience.Outcome),
	ingest func(*scraper.OpenResult),
) resilience.Outcome {
	reload := false

	step := func(ctx context.Context) resilience.Outcome {
		if reload {
			r, out := open(ctx)
			if out.Kind != resilience.Success {
				return out
			}
			reload = false
			ingest(r)
			if _, stop := pag.Stop(); stop {
				return resilience.Ok()
			}
		}

		so, err := o.nav.ScrollOnce(ctx, page, o.delay)
		if err != nil {
			return classify(ctx, err)
		}

		sctx, cancel := context.WithTimeout(ctx, o.cfg.Timing.ElementTimeout)
		doc, err := scraper.Snapshot(sctx, page)
		cancel()
		if err != nil {
			return classify(ctx, err)
		}

		if !so.Grew && scraper.ClassifyPage(doc, 0) == scraper.PageRateLimited {
			reload = true
			return resilience.Throttled(errors.New("rate limit banner while scrolling"))
		}

		pag.Scrolled(so)
		ingest(&scraper.OpenResult{State: scraper.PageLoaded, Doc: doc})
		return resilience.Ok()
	}

	for {
		if _, stop := pag.Stop(); stop {
			return resilience.Ok()
		}
		if err := ctx.Err(); err != nil {
			return resilience.Stopped(err)
		}
		if out := ctl.Attempt(ctx, "scroll", step); out.Kind != resilience.Success {
			return out
		}
	}
}

// classify maps a step error to an outcome. Timeouts and navigation errors
// are transient; a vanished browser ends the run.
func classify(ctx context.Context, err error) resilience.Outcome {
	switch {
	case ctx.Err() != nil:
		return resilience.Stopped(ctx.Err())
	case errors.Is(err, browser.ErrBrowserClosed):
		return resilience.Abort(err)
	default:
		return resilience.Retryable(err)
	}
}

func skipped(handle, reason string) types.AccountResult {
	return types.AccountResult{Handle: handle, Status: types.StatusSkipped, Reason: reason}
}

// summary logs the per-account line every run ends with
func summary(log zerolog.Logger, res types.AccountResult) {
	ev := log.Info()
	if res.Status != types.StatusCompleted {
		ev = log.Warn()
	}
	ev.Str("account", res.Handle).
		Str("status", res.Label()).
		Int("records", res.Records).
		Int("scrolls", res.Scrolls).
		Str("stop", res.StopCond).
		Dur("duration", res.Duration).
		Msg("account summary")
}
