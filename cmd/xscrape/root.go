package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xscrape/internal/app"
	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/logging"
)

var (
	// Version information
	version   = "0.1.0"
	gitCommit = "unknown"

	// Global flags
	configFile string
	logLevel   string

	// exitCode is returned by main once the command finished
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "xscrape",
	Short: "Collect recent posts from X account timelines",
	Long: `xscrape drives a real Chrome browser through the timelines of the configured
X accounts, scrolls until enough posts are collected and writes them to JSON,
CSV or XLSX files and an SQLite or PostgreSQL database.

A saved login session is optional; without one only public timelines load.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, gitCommit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is <user config dir>/xscrape/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`xscrape {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig reads the config file. A missing default config file falls
// back to the built-in defaults; a missing explicit one is an error.
func loadConfig() (*config.Config, string, error) {
	path := configFile
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && configFile == "" {
		cfg = config.Default()
		if err := cfg.Resolve(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config, applies flag overrides and builds the logger and
// app. The returned closer flushes the log file.
func setup(override func(*config.Config)) (*app.App, zerolog.Logger, io.Closer, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if override != nil {
		override(cfg)
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if path == "" {
		log.Debug().Msg("no config file found, using defaults")
	}
	return app.New(cfg, path, log), log, closer, nil
}

func printErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
