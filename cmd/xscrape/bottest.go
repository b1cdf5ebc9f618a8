package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xscrape/internal/browser"
)

const botTestURL = "https://bot.sannysoft.com"

var botTestCmd = &cobra.Command{
	Use:   "bot-test",
	Short: "Open bot.sannysoft.com to audit the browser fingerprint",
	Long: `Open bot.sannysoft.com in a visible browser launched with the same options
the scraper uses, so the fingerprint checks can be inspected by hand.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		allocCtx, cancel := chromedp.NewExecAllocator(ctx, browser.Options(false, cfg.Browser.UserAgent)...)
		defer cancel()

		tab, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		err = chromedp.Run(tab,
			chromedp.Navigate(botTestURL),
			chromedp.WaitVisible("body", chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", botTestURL, err)
		}

		fmt.Println("Press Enter to close the browser...")
		done := make(chan struct{})
		go func() {
			bufio.NewReader(os.Stdin).ReadString('\n')
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(botTestCmd)
}
