package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xscrape/internal/app"
	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/types"
)

var scrapeFlags struct {
	accounts []string
	limit    int
	cutoff   int
	output   string
	formats  []string
	session  string
	headful  bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [account...]",
	Short: "Scrape the configured accounts once",
	Long: `Scrape every configured account in order and write the collected posts.

Accounts given as arguments replace the configured list. Handles may be
written as "name", "@name" or a profile URL.

Exit status is 0 when every account completed, 3 when any account was
skipped or rate limited and 1 on a fatal error.`,
	Example: `  # Scrape the accounts from the config file
  xscrape scrape

  # Scrape two accounts, 50 posts each, from the last week
  xscrape scrape golang @rustlang --limit 50 --cutoff-days 7`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	f := scrapeCmd.Flags()
	f.IntVarP(&scrapeFlags.limit, "limit", "n", 0, "posts per account (overrides config)")
	f.IntVar(&scrapeFlags.cutoff, "cutoff-days", -1, "ignore posts older than this many days, 0 for no cutoff")
	f.StringVarP(&scrapeFlags.output, "output", "o", "", "output directory")
	f.StringSliceVarP(&scrapeFlags.formats, "format", "f", nil, "output formats (json, csv, xlsx)")
	f.StringVar(&scrapeFlags.session, "session", "", "session file from `xscrape login`")
	f.BoolVar(&scrapeFlags.headful, "show-browser", false, "run the browser with a visible window")
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, log, closer, err := setup(func(cfg *config.Config) {
		if len(args) > 0 {
			cfg.Accounts = types.NormalizeHandles(args)
		}
		if scrapeFlags.limit > 0 {
			cfg.PostsPerAccount = scrapeFlags.limit
		}
		if scrapeFlags.cutoff >= 0 {
			cfg.DateCutoffDays = scrapeFlags.cutoff
		}
		if scrapeFlags.output != "" {
			cfg.Output.Dir = scrapeFlags.output
		}
		if len(scrapeFlags.formats) > 0 {
			cfg.Output.Formats = scrapeFlags.formats
		}
		if scrapeFlags.session != "" {
			cfg.Browser.SessionFile = scrapeFlags.session
		}
		if scrapeFlags.headful {
			cfg.Browser.Headless = false
		}
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Scrape(ctx)
	exitCode = app.ExitCode(res, err)
	if res != nil && res.Summary != "" {
		fmt.Print(res.Summary)
	}
	if res != nil && res.ReportPath != "" {
		fmt.Printf("Report: %s\n", res.ReportPath)
	}
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		printErr("Error: %v", err)
	}
	return nil
}
