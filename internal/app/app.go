// Package app wires configuration, browser, sinks and the pipeline into the
// operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xscrape/internal/auth"
	xbrowser "github.com/ibeckermayer/xscrape/internal/browser"
	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/notifier"
	"github.com/ibeckermayer/xscrape/internal/output"
	"github.com/ibeckermayer/xscrape/internal/pipeline"
	"github.com/ibeckermayer/xscrape/internal/report"
	"github.com/ibeckermayer/xscrape/internal/scheduler"
	"github.com/ibeckermayer/xscrape/internal/store"
)

// Exit codes of a scrape run
const (
	ExitOK         = 0
	ExitFatal      = 1
	ExitIncomplete = 3
)

// reportPostsPerAccount bounds the posts shown per account in report.html
const reportPostsPerAccount = 10

// App holds the application state
type App struct {
	mu  sync.RWMutex
	log zerolog.Logger

	// Mutable fields, replaced by ReloadConfig. Use getSnapshot().
	configPath string
	config     *config.Config
	sessions   pipeline.Sessions

	// newSessions builds the browser manager for a config
	newSessions func(cfg *config.Config) pipeline.Sessions
}

// snapshot holds fields that may be replaced by ReloadConfig
type snapshot struct {
	config   *config.Config
	sessions pipeline.Sessions
}

func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{config: a.config, sessions: a.sessions}
}

// New creates an App for a loaded configuration. configPath is where
// ReloadConfig reads from.
func New(cfg *config.Config, configPath string, log zerolog.Logger) *App {
	a := &App{
		log:        log,
		configPath: configPath,
		config:     cfg,
	}
	a.newSessions = func(cfg *config.Config) pipeline.Sessions {
		return xbrowser.NewManager(cfg.Browser, cfg.Timing, a.log)
	}
	a.sessions = a.newSessions(cfg)
	return a
}

// Result is the outcome of one scrape
type Result struct {
	Run        *pipeline.RunReport
	Summary    string
	ReportPath string
}

// Scrape runs the pipeline once over every configured account, writing
// files, database rows and the HTML report
func (a *App) Scrape(ctx context.Context) (*Result, error) {
	s := a.getSnapshot()
	cfg := s.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	files, err := output.NewFileSink(cfg.Output.Dir, cfg.Output.Formats, a.log)
	if err != nil {
		return nil, err
	}
	sinks := pipeline.MultiSink{files}

	var db *store.Store
	if cfg.Database.Driver != "" {
		db, err = store.Open(cfg.Database, cfg.Output.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	mailer, err := notifier.NewFromConfig(cfg.Email)
	if err != nil {
		return nil, err
	}

	var rb *report.Builder
	if cfg.Output.Report || mailer != nil {
		rb, err = report.New(reportPostsPerAccount)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, rb)
	}

	run, runErr := pipeline.New(cfg, s.sessions, sinks, a.log).Run(ctx)
	if run == nil {
		return nil, runErr
	}
	res := &Result{Run: run}

	if err := files.Close(); err != nil {
		a.log.Error().Err(err).Msg("failed to write combined results")
	}

	if db != nil && len(run.Results) > 0 {
		// The run is recorded even when the operator canceled it
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := db.RecordRun(rctx, run.ID, run.StartedAt, run.FinishedAt, run.Results); err != nil {
			a.log.Error().Err(err).Msg("failed to record run")
		}
		cancel()
	}

	if rb != nil && len(run.Results) > 0 {
		a.publish(res, rb, mailer, cfg.Output.Report, files.Dir())
	}

	return res, runErr
}

// publish writes report.html and mails the report when configured
func (a *App) publish(res *Result, rb *report.Builder, mailer *notifier.Notifier, toFile bool, dir string) {
	var r *report.Report
	var err error
	if toFile {
		r, res.ReportPath, err = rb.WriteFile(dir, res.Run)
	} else {
		r, err = rb.Build(res.Run)
	}
	if err != nil {
		a.log.Error().Err(err).Msg("failed to build report")
		return
	}
	res.Summary = r.PlainBody
	if res.ReportPath != "" {
		a.log.Info().Str("path", res.ReportPath).Msg("report written")
	}

	if mailer == nil {
		return
	}
	sent, err := mailer.SendReport(r, res.Run.AllCompleted())
	switch {
	case err != nil:
		a.log.Error().Err(err).Msg("failed to mail report")
	case sent:
		a.log.Info().Msg("report mailed")
	}
}

// ExitCode maps a scrape outcome to the process exit code
func ExitCode(res *Result, err error) int {
	switch {
	case err != nil:
		return ExitFatal
	case res == nil || res.Run == nil || !res.Run.AllCompleted():
		return ExitIncomplete
	default:
		return ExitOK
	}
}

// Schedule runs Scrape on the configured cron schedule until ctx is done.
// The config file is reloaded before every run.
func (a *App) Schedule(ctx context.Context, timeout time.Duration) error {
	cfg := a.getSnapshot().config
	sched, err := scheduler.New(cfg.Schedule.Timezone, timeout, a.log)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		if err := a.ReloadConfig(); err != nil {
			a.log.Warn().Err(err).Msg("config reload failed, using previous config")
		}
		res, err := a.Scrape(ctx)
		if err != nil {
			return err
		}
		if !res.Run.AllCompleted() {
			a.log.Warn().Str("run_id", res.Run.ID).Msg("run finished with incomplete accounts")
		}
		return nil
	}

	if err := sched.AddJob("scrape", cfg.Schedule.Cron, job); err != nil {
		return err
	}
	sched.Start()
	for _, j := range sched.ListJobs() {
		a.log.Info().Str("job", j.Name).Time("next_run", j.NextRun).Msg("scheduled")
	}

	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

// Login opens a visible browser for the operator to sign in and saves the
// session file
func (a *App) Login(ctx context.Context) (string, error) {
	path, err := a.sessionPath()
	if err != nil {
		return "", err
	}
	m := auth.NewManager(auth.NewSessionStore(path), a.getSnapshot().config.Browser.UserAgent, a.log)
	if err := m.Login(ctx); err != nil {
		return "", err
	}
	return path, nil
}

// Logout removes the session file
func (a *App) Logout() error {
	path, err := a.sessionPath()
	if err != nil {
		return err
	}
	return auth.NewManager(auth.NewSessionStore(path), "", a.log).Logout()
}

// VerifySession checks the session file offline, then restores it in a
// browser and probes the home timeline
func (a *App) VerifySession(ctx context.Context) (bool, error) {
	path, err := a.sessionPath()
	if err != nil {
		return false, err
	}
	if err := auth.NewSessionStore(path).Check(time.Now()); err != nil {
		return false, err
	}

	sessions := a.getSnapshot().sessions
	h, err := sessions.Acquire(ctx, path)
	if err != nil {
		return false, err
	}
	defer sessions.Release(h)
	return sessions.ProbeAuthenticated(ctx, h)
}

// Open opens the config file or the output directory with the system handler
func (a *App) Open(target string) error {
	var path string
	switch target {
	case "config":
		path = a.configPath
		if path == "" {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
	case "output":
		path = a.getSnapshot().config.Output.Dir
	default:
		return fmt.Errorf("unknown target %q (want config or output)", target)
	}

	a.log.Info().Str("path", path).Msg("opening")
	return browser.OpenFile(path)
}

// ReloadConfig reloads the configuration from disk
func (a *App) ReloadConfig() error {
	if a.configPath == "" {
		return errors.New("no config file to reload")
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.config = cfg
	a.sessions = a.newSessions(cfg)
	a.mu.Unlock()

	a.log.Info().Int("accounts", len(cfg.Accounts)).Msg("configuration reloaded")
	return nil
}

func (a *App) sessionPath() (string, error) {
	if p := a.getSnapshot().config.Browser.SessionFile; p != "" {
		return p, nil
	}
	return config.DefaultSessionPath()
}
