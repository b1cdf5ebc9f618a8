package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ibeckermayer/xscrape/internal/types"
)

// ErrNoAccounts is returned by Validate when nothing is configured to scrape
var ErrNoAccounts = errors.New("no accounts configured")

// Config holds all application configuration
type Config struct {
	Version         int              `toml:"version"`
	Accounts        []string         `toml:"accounts"`
	AccountsFile    string           `toml:"accounts_file"`
	PostsPerAccount int              `toml:"posts_per_account"`
	DateCutoffDays  int              `toml:"date_cutoff_days"`
	Browser         BrowserConfig    `toml:"browser"`
	Timing          TimingConfig     `toml:"timing"`
	Pagination      PaginationConfig `toml:"pagination"`
	Retry           RetryConfig      `toml:"retry"`
	Output          OutputConfig     `toml:"output"`
	Database        DatabaseConfig   `toml:"database"`
	Logging         LoggingConfig    `toml:"logging"`
	Schedule        ScheduleConfig   `toml:"schedule"`
	Email           EmailConfig      `toml:"email"`
}

type BrowserConfig struct {
	Headless    bool   `toml:"headless"`
	UserAgent   string `toml:"user_agent"`
	SessionFile string `toml:"session_file"`
}

type TimingConfig struct {
	ScrollDelayMin time.Duration `toml:"scroll_delay_min"`
	ScrollDelayMax time.Duration `toml:"scroll_delay_max"`
	PageTimeout    time.Duration `toml:"page_timeout"`
	ElementTimeout time.Duration `toml:"element_timeout"`
	PollInterval   time.Duration `toml:"poll_interval"`
	AccountDelay   time.Duration `toml:"account_delay"`
}

type PaginationConfig struct {
	StallLimit int `toml:"stall_limit"`
	MaxScrolls int `toml:"max_scrolls"`
}

type RetryConfig struct {
	MaxRetries          int           `toml:"max_retries"`
	BaseDelay           time.Duration `toml:"base_delay"`
	MaxDelay            time.Duration `toml:"max_delay"`
	Jitter              float64       `toml:"jitter"`
	RateLimitMultiplier float64       `toml:"rate_limit_multiplier"`
	RateLimitThreshold  int           `toml:"rate_limit_threshold"`
	RateLimitWindow     time.Duration `toml:"rate_limit_window"`
}

type OutputConfig struct {
	Dir     string   `toml:"dir"`
	Formats []string `toml:"formats"` // json, csv, xlsx
	Report  bool     `toml:"report"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite, postgres or empty to disable
	DSN    string `toml:"dsn"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

// EmailConfig controls mailing the run report. An empty provider disables it.
type EmailConfig struct {
	Provider       string   `toml:"provider"` // smtp
	SMTPHost       string   `toml:"smtp_host"`
	SMTPPort       int      `toml:"smtp_port"`
	SMTPUser       string   `toml:"smtp_user"`
	SMTPPass       string   `toml:"smtp_pass"`
	FromAddr       string   `toml:"from_addr"`
	To             []string `toml:"to"`
	OnlyIncomplete bool     `toml:"only_incomplete"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version:         1,
		Accounts:        []string{},
		PostsPerAccount: 20,
		Browser: BrowserConfig{
			Headless: true,
		},
		Timing: TimingConfig{
			ScrollDelayMin: 1500 * time.Millisecond,
			ScrollDelayMax: 3 * time.Second,
			PageTimeout:    30 * time.Second,
			ElementTimeout: 10 * time.Second,
			PollInterval:   250 * time.Millisecond,
			AccountDelay:   3 * time.Second,
		},
		Pagination: PaginationConfig{
			StallLimit: 3,
			MaxScrolls: 200,
		},
		Retry: RetryConfig{
			MaxRetries:          3,
			BaseDelay:           2 * time.Second,
			MaxDelay:            60 * time.Second,
			Jitter:              0.2,
			RateLimitMultiplier: 5,
			RateLimitThreshold:  3,
			RateLimitWindow:     10 * time.Minute,
		},
		Output: OutputConfig{
			Dir:     "./data",
			Formats: []string{"json", "csv"},
			Report:  true,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Schedule: ScheduleConfig{
			Cron:     "0 */6 * * *",
			Timezone: "UTC",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "xscrape"), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultSessionPath returns where the login command stores the session by default
func DefaultSessionPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// Load reads config from path (the default path when empty), layered over
// Default(). Environment overrides and the accounts file are applied after.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve applies .env/environment overrides, merges the accounts file and
// normalizes account handles.
func (c *Config) Resolve() error {
	// .env is optional
	_ = godotenv.Load()
	c.applyEnv()

	if c.AccountsFile != "" {
		extra, err := LoadAccountsFile(c.AccountsFile)
		if err != nil {
			return err
		}
		c.Accounts = append(c.Accounts, extra...)
	}
	c.Accounts = types.NormalizeHandles(c.Accounts)
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("XSCRAPE_SESSION_FILE"); v != "" {
		c.Browser.SessionFile = v
	}
	if v := os.Getenv("XSCRAPE_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("XSCRAPE_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("XSCRAPE_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("XSCRAPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("XSCRAPE_SMTP_PASS"); v != "" {
		c.Email.SMTPPass = v
	}
}

// LoadAccountsFile reads a YAML file of the form `accounts: [a, b, c]`
func LoadAccountsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var doc struct {
		Accounts []string `yaml:"accounts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	return doc.Accounts, nil
}

// Validate checks the resolved configuration before a run
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return ErrNoAccounts
	}
	if c.PostsPerAccount <= 0 {
		return fmt.Errorf("posts_per_account must be positive, got %d", c.PostsPerAccount)
	}
	if c.DateCutoffDays < 0 {
		return fmt.Errorf("date_cutoff_days must not be negative, got %d", c.DateCutoffDays)
	}
	if c.Timing.ScrollDelayMax < c.Timing.ScrollDelayMin {
		return fmt.Errorf("scroll_delay_max (%s) is below scroll_delay_min (%s)",
			c.Timing.ScrollDelayMax, c.Timing.ScrollDelayMin)
	}
	if c.Timing.PageTimeout <= 0 || c.Timing.ElementTimeout <= 0 {
		return errors.New("page_timeout and element_timeout must be positive")
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.Retry.MaxRetries)
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch strings.ToLower(c.Email.Provider) {
	case "":
	case "smtp":
		if c.Email.SMTPHost == "" || c.Email.FromAddr == "" || len(c.Email.To) == 0 {
			return errors.New("email: smtp_host, from_addr and to are required")
		}
	default:
		return fmt.Errorf("unknown email provider %q", c.Email.Provider)
	}
	for _, f := range c.Output.Formats {
		switch strings.ToLower(f) {
		case "json", "csv", "xlsx":
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	return nil
}

// Targets builds the per-account scrape units in configured order
func (c *Config) Targets() []types.AccountTarget {
	cutoff := time.Duration(c.DateCutoffDays) * 24 * time.Hour
	targets := make([]types.AccountTarget, 0, len(c.Accounts))
	for _, h := range c.Accounts {
		targets = append(targets, types.AccountTarget{
			Handle:    h,
			Limit:     c.PostsPerAccount,
			CutoffAge: cutoff,
		})
	}
	return targets
}

// Save writes config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Sample returns the config written by `xscrape init-config`
func Sample() *Config {
	cfg := Default()
	cfg.Accounts = []string{"OpenAI", "@AnthropicAI", "https://x.com/golang"}
	cfg.PostsPerAccount = 25
	cfg.DateCutoffDays = 30
	cfg.Browser.Headless = false
	cfg.Database.DSN = "./data/xscrape.db"
	cfg.Logging.File = "./logs/xscrape.log"
	return cfg
}
