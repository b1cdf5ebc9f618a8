package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xscrape/internal/browser"
	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/pipeline"
	"github.com/ibeckermayer/xscrape/internal/store"
	"github.com/ibeckermayer/xscrape/internal/types"
)

// missingPage shows every timeline as a deleted account
type missingPage struct{}

func (missingPage) Navigate(context.Context, string) (int, error) { return 200, nil }
func (missingPage) Location(context.Context) (string, error)      { return "", nil }
func (missingPage) OuterHTML(context.Context) (string, error) {
	return `<main><span>This account doesn't exist</span></main>`, nil
}
func (missingPage) Evaluate(context.Context, string, any) error { return nil }

type stubHandle struct{}

func (stubHandle) Page() browser.Page                { return missingPage{} }
func (stubHandle) ClearSession(context.Context) error { return nil }
func (stubHandle) Close() error                      { return nil }

type stubSessions struct {
	released int
}

func (s *stubSessions) Acquire(context.Context, string) (browser.Handle, error) {
	return stubHandle{}, nil
}
func (s *stubSessions) Release(browser.Handle) { s.released++ }
func (s *stubSessions) ProbeAuthenticated(context.Context, browser.Handle) (bool, error) {
	return true, nil
}
func (s *stubSessions) Anonymize(context.Context, browser.Handle) error { return nil }

func testApp(t *testing.T, cfg *config.Config) (*App, *stubSessions) {
	t.Helper()
	sessions := &stubSessions{}
	a := New(cfg, "", zerolog.Nop())
	a.newSessions = func(*config.Config) pipeline.Sessions { return sessions }
	a.sessions = sessions
	return a, sessions
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Accounts = []string{"nobody"}
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.Formats = []string{"json"}
	cfg.Database.DSN = filepath.Join(dir, "xscrape.db")
	cfg.Timing.AccountDelay = 0
	return cfg
}

func TestScrapeWritesReportAndRecordsRun(t *testing.T) {
	cfg := testConfig(t)
	a, sessions := testApp(t, cfg)

	res, err := a.Scrape(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Run)
	assert.Equal(t, ExitIncomplete, ExitCode(res, err))
	assert.Equal(t, 1, sessions.released)

	require.Len(t, res.Run.Results, 1)
	assert.Equal(t, "Skipped:not-found", res.Run.Results[0].Label())

	assert.FileExists(t, res.ReportPath)
	assert.Contains(t, res.Summary, "1 accounts: 0 completed, 1 skipped")

	db, err := store.New(cfg.Database.DSN)
	require.NoError(t, err)
	defer db.Close()
	results, err := db.AccountResults(res.Run.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusSkipped, results[0].Status)
}

func TestScrapeWithoutDatabaseOrReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = ""
	cfg.Output.Report = false
	a, _ := testApp(t, cfg)

	res, err := a.Scrape(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.ReportPath)
	assert.NoFileExists(t, cfg.Database.DSN)
}

func TestScrapeRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Accounts = nil
	a, sessions := testApp(t, cfg)

	_, err := a.Scrape(context.Background())
	assert.ErrorIs(t, err, config.ErrNoAccounts)
	assert.Zero(t, sessions.released)
}

func TestExitCode(t *testing.T) {
	completed := &Result{Run: &pipeline.RunReport{Results: []types.AccountResult{{Status: types.StatusCompleted}}}}
	limited := &Result{Run: &pipeline.RunReport{Results: []types.AccountResult{
		{Status: types.StatusCompleted},
		{Status: types.StatusRateLimited},
	}}}

	assert.Equal(t, ExitOK, ExitCode(completed, nil))
	assert.Equal(t, ExitIncomplete, ExitCode(limited, nil))
	assert.Equal(t, ExitFatal, ExitCode(limited, errors.New("browser closed")))
	assert.Equal(t, ExitFatal, ExitCode(nil, errors.New("no browser")))
}

func TestReloadConfig(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	updated := config.Default()
	updated.Accounts = []string{"@golang", "rustlang"}
	require.NoError(t, updated.Save(path))

	a, _ := testApp(t, cfg)
	a.configPath = path
	require.NoError(t, a.ReloadConfig())
	assert.Equal(t, []string{"golang", "rustlang"}, a.getSnapshot().config.Accounts)
}

func TestReloadConfigWithoutPath(t *testing.T) {
	a, _ := testApp(t, testConfig(t))
	assert.Error(t, a.ReloadConfig())
}

func TestVerifySessionChecksFileFirst(t *testing.T) {
	cfg := testConfig(t)
	cfg.Browser.SessionFile = filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(cfg.Browser.SessionFile, []byte(`{"cookies":[]}`), 0600))
	a, sessions := testApp(t, cfg)

	ok, err := a.VerifySession(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Zero(t, sessions.released)
}

func TestOpenUnknownTarget(t *testing.T) {
	a, _ := testApp(t, testConfig(t))
	assert.Error(t, a.Open("cache"))
}
