// Package config defines the configuration for the shelfarb service and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SHELFARB_* environment variables.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Extraction ExtractionConfig `toml:"extraction"`
	Intake     IntakeConfig     `toml:"intake"`
	Scan       ScanConfig       `toml:"scan"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // empty disables authentication
}

// ExtractionConfig holds parameters for the external structured-extraction
// service.
type ExtractionConfig struct {
	BaseURL        string   `toml:"base_url"`
	APIKey         string   `toml:"api_key"`
	RequestTimeout duration `toml:"request_timeout"`
}

// IntakeConfig holds notification intake parameters.
type IntakeConfig struct {
	// RecordWindow bounds the ring of recent NotificationRecords kept for
	// dedup observability.
	RecordWindow int `toml:"record_window"`
}

// ScanConfig holds scan orchestration parameters.
type ScanConfig struct {
	// GlobalConcurrency caps concurrent extraction calls across all scans.
	GlobalConcurrency int `toml:"global_concurrency"`
	// MaxAttempts is the per-marketplace retry bound, counting the first try.
	MaxAttempts int      `toml:"max_attempts"`
	BackoffBase duration `toml:"backoff_base"`
	BackoffMax  duration `toml:"backoff_max"`
	// RescanCron schedules a full rescan of all active products. Empty
	// disables the schedule.
	RescanCron string `toml:"rescan_cron"`
}

// ArbitrageConfig holds opportunity thresholds and per-marketplace fee rates.
type ArbitrageConfig struct {
	// MinNetMargin is the minimum absolute fee-adjusted profit (in currency
	// units) for an opportunity to surface.
	MinNetMargin float64 `toml:"min_net_margin"`
	// MinROI is the minimum net_margin / landed_buy_cost ratio.
	MinROI float64 `toml:"min_roi"`
	// FeeRates maps a marketplace tag to the seller fee charged when
	// selling there, as a fraction of sale price (0.15 == 15%).
	FeeRates map[string]float64 `toml:"fee_rates"`
}

// NotifyConfig holds outbound alerting parameters.
type NotifyConfig struct {
	Enabled           bool   `toml:"enabled"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	TelegramBotToken  string `toml:"telegram_bot_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding ("30s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with sane defaults for local development.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Extraction: ExtractionConfig{
			BaseURL:        "http://localhost:9100",
			RequestTimeout: duration{15 * time.Second},
		},
		Intake: IntakeConfig{
			RecordWindow: 1024,
		},
		Scan: ScanConfig{
			GlobalConcurrency: 8,
			MaxAttempts:       3,
			BackoffBase:       duration{500 * time.Millisecond},
			BackoffMax:        duration{10 * time.Second},
			RescanCron:        "@every 6h",
		},
		Arbitrage: ArbitrageConfig{
			MinNetMargin: 5.0,
			MinROI:       0.05,
			FeeRates: map[string]float64{
				"amazon":  0.15,
				"bestbuy": 0.0,
			},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for obvious mistakes and returns a single
// error listing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.Extraction.BaseURL == "" {
		errs = append(errs, "extraction: base_url must not be empty")
	}
	if c.Extraction.RequestTimeout.Duration <= 0 {
		errs = append(errs, "extraction: request_timeout must be positive")
	}

	if c.Intake.RecordWindow <= 0 {
		errs = append(errs, "intake: record_window must be positive")
	}

	if c.Scan.GlobalConcurrency <= 0 {
		errs = append(errs, "scan: global_concurrency must be positive")
	}
	if c.Scan.MaxAttempts <= 0 {
		errs = append(errs, "scan: max_attempts must be positive")
	}
	if c.Scan.BackoffBase.Duration <= 0 {
		errs = append(errs, "scan: backoff_base must be positive")
	}
	if c.Scan.BackoffMax.Duration < c.Scan.BackoffBase.Duration {
		errs = append(errs, "scan: backoff_max must be >= backoff_base")
	}

	if c.Arbitrage.MinROI < 0 {
		errs = append(errs, "arbitrage: min_roi must not be negative")
	}
	for tag, rate := range c.Arbitrage.FeeRates {
		if rate < 0 || rate >= 1 {
			errs = append(errs, fmt.Sprintf("arbitrage: fee rate for %q must be in [0,1), got %v", tag, rate))
		}
	}

	if c.Notify.Enabled && c.Notify.DiscordWebhookURL == "" &&
		(c.Notify.TelegramBotToken == "" || c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: enabled but no discord webhook or telegram credentials configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
