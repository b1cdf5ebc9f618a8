package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xscrape/internal/config"
)

var initForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write an example configuration file",
	Long: `Write an example configuration file with every available option.

The file goes to the path given with --config, or to the default location
in the user config directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			path = p
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}

		if err := config.Sample().Save(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Check the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if path == "" {
			path = "built-in defaults"
		}
		fmt.Printf("%s: %d accounts, %d posts each\n", path, len(cfg.Accounts), cfg.PostsPerAccount)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:       "open <config|output>",
	Short:     "Open the config file or the output directory",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"config", "output"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closer, err := setup(nil)
		if err != nil {
			return err
		}
		defer closer.Close()
		return a.Open(args[0])
	},
}

func init() {
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(openCmd)
}
