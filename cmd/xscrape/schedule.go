package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xscrape/internal/config"
)

var (
	scheduleCron    string
	scheduleTimeout time.Duration
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Scrape on a cron schedule until interrupted",
	Long: `Run a scrape every time the cron schedule fires. The config file is
re-read before each run, so account lists can change without a restart.
A run still in progress when the next one is due is not started twice.`,
	Example: `  # Every six hours (the default schedule)
  xscrape schedule

  # Weekdays at 07:30
  xscrape schedule --cron "30 7 * * 1-5"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, closer, err := setup(func(cfg *config.Config) {
			if scheduleCron != "" {
				cfg.Schedule.Cron = scheduleCron
			}
		})
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Msg("scheduler running, press Ctrl+C to stop")
		return a.Schedule(ctx, scheduleTimeout)
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron schedule (overrides config)")
	scheduleCmd.Flags().DurationVar(&scheduleTimeout, "timeout", 2*time.Hour, "upper bound for a single run")
	rootCmd.AddCommand(scheduleCmd)
}
