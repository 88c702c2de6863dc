package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SHELFARB_* environment variable overrides, and
// returns the final Config. A missing file is not an error; defaults plus
// environment overrides apply. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SHELFARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Server.Port, "SHELFARB_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SHELFARB_SERVER_API_KEY")

	setStr(&cfg.Extraction.BaseURL, "SHELFARB_EXTRACTION_BASE_URL")
	setStr(&cfg.Extraction.APIKey, "SHELFARB_EXTRACTION_API_KEY")
	setDuration(&cfg.Extraction.RequestTimeout, "SHELFARB_EXTRACTION_REQUEST_TIMEOUT")

	setInt(&cfg.Intake.RecordWindow, "SHELFARB_INTAKE_RECORD_WINDOW")

	setInt(&cfg.Scan.GlobalConcurrency, "SHELFARB_SCAN_GLOBAL_CONCURRENCY")
	setInt(&cfg.Scan.MaxAttempts, "SHELFARB_SCAN_MAX_ATTEMPTS")
	setDuration(&cfg.Scan.BackoffBase, "SHELFARB_SCAN_BACKOFF_BASE")
	setDuration(&cfg.Scan.BackoffMax, "SHELFARB_SCAN_BACKOFF_MAX")
	setStr(&cfg.Scan.RescanCron, "SHELFARB_SCAN_RESCAN_CRON")

	setFloat64(&cfg.Arbitrage.MinNetMargin, "SHELFARB_ARBITRAGE_MIN_NET_MARGIN")
	setFloat64(&cfg.Arbitrage.MinROI, "SHELFARB_ARBITRAGE_MIN_ROI")

	setBool(&cfg.Notify.Enabled, "SHELFARB_NOTIFY_ENABLED")
	setStr(&cfg.Notify.DiscordWebhookURL, "SHELFARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.TelegramBotToken, "SHELFARB_NOTIFY_TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SHELFARB_NOTIFY_TELEGRAM_CHAT_ID")

	setStr(&cfg.LogLevel, "SHELFARB_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
