package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to X and save the session",
	Long: `Open a visible browser on the X login page. Sign in there, then press
Enter in this terminal (or just wait: the home timeline is detected
automatically). The session cookies are written to the session file with
owner-only permissions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closer, err := setup(nil)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		path, err := a.Login(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Session saved to %s\n", path)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closer, err := setup(nil)
		if err != nil {
			return err
		}
		defer closer.Close()

		if err := a.Logout(); err != nil {
			return err
		}
		fmt.Println("Session removed")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify-session",
	Short: "Check that the saved session is still logged in",
	Long: `Check the saved session file, restore it in a headless browser and open
the home timeline to confirm X still accepts it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closer, err := setup(nil)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		ok, err := a.VerifySession(ctx)
		if err != nil {
			return fmt.Errorf("session unusable: %w", err)
		}
		if !ok {
			exitCode = 1
			fmt.Println("Session is logged out. Run `xscrape login` again.")
			return nil
		}
		fmt.Println("Session is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(verifyCmd)
}
