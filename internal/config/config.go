package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/orchestrator"
)

// Config is the process configuration, read from the environment
type Config struct {
	Exchange      ExchangeSettings
	Server        ServerSettings
	Trading       TradingSettings
	Venue         VenueSettings
	Logging       LoggingSettings
	Notifications NotificationSettings
}

type ExchangeSettings struct {
	Name         string
	Bybit        exchange.BybitConfig
	Binance      exchange.BinanceConfig
	PaperBalance float64
}

type ServerSettings struct {
	Port            int
	WebhookSecret   string
	ShutdownTimeout time.Duration
}

type TradingSettings struct {
	DefaultRiskUSD  float64
	MaxRiskUSD      float64 // 0 disables the ceiling
	ReferenceSymbol string
	LockMode        string
	RulesFile       string
}

// VenueSettings tunes the guard around every venue call
type VenueSettings struct {
	Timeout          time.Duration
	RateLimit        int
	Retries          int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type LoggingSettings struct {
	Level  string
	Format string
	File   string
	Dir    string // journal directory
}

type NotificationSettings struct {
	TelegramToken  string
	TelegramChatID string
}

// Load reads the configuration from the environment. A value that is set
// but cannot be parsed is a KindConfig error; missing values take defaults.
// Call Validate before use.
func Load() (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		Exchange: ExchangeSettings{
			Name: strings.ToLower(env.str("EXCHANGE_NAME", exchange.VenueBybit)),
			Bybit: exchange.BybitConfig{
				APIKey:    env.str("BYBIT_API_KEY", ""),
				APISecret: env.str("BYBIT_API_SECRET", ""),
				Testnet:   env.boolean("BYBIT_TESTNET", false),
				Demo:      env.boolean("BYBIT_DEMO", true),
				Category:  env.str("BYBIT_CATEGORY", "linear"),
			},
			Binance: exchange.BinanceConfig{
				APIKey:    env.str("BINANCE_API_KEY", ""),
				APISecret: env.str("BINANCE_SECRET_KEY", ""),
				Testnet:   env.boolean("BINANCE_TESTNET", true),
			},
			PaperBalance: env.float("PAPER_BALANCE", 10000),
		},
		Server: ServerSettings{
			Port:            env.integer("PORT", 10000),
			WebhookSecret:   env.str("WEBHOOK_SECRET", ""),
			ShutdownTimeout: env.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Trading: TradingSettings{
			DefaultRiskUSD:  env.float("DEFAULT_RISK_USD", 100),
			MaxRiskUSD:      env.float("MAX_RISK_USD", 0),
			ReferenceSymbol: strings.ToUpper(env.str("REFERENCE_SYMBOL", "BTCUSDT")),
			LockMode:        env.str("LOCK_MODE", string(orchestrator.LockBlock)),
			RulesFile:       env.str("VENUE_RULES_FILE", ""),
		},
		Venue: VenueSettings{
			Timeout:          env.duration("VENUE_TIMEOUT", 8*time.Second),
			RateLimit:        env.integer("VENUE_RATE_LIMIT", 10),
			Retries:          env.integer("VENUE_RETRIES", 1),
			BreakerThreshold: env.integer("VENUE_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  env.duration("VENUE_BREAKER_COOLDOWN", 30*time.Second),
		},
		Logging: LoggingSettings{
			Level:  env.str("LOG_LEVEL", "info"),
			Format: env.str("LOG_FORMAT", "console"),
			File:   env.str("LOG_FILE", ""),
			Dir:    env.str("LOG_DIR", "logs"),
		},
		Notifications: NotificationSettings{
			TelegramToken:  env.str("TELEGRAM_TOKEN", ""),
			TelegramChatID: env.str("TELEGRAM_CHAT_ID", ""),
		},
	}

	if err := env.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, boterrors.NewConfigurationError(boterrors.CodeInvalidSetting, fmt.Sprintf(format, args...)))
	}
	missing := func(key string) {
		errs = append(errs, boterrors.NewConfigurationError(boterrors.CodeMissingSetting, key+" is required"))
	}

	if c.Server.WebhookSecret == "" {
		missing("WEBHOOK_SECRET")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		invalid("PORT %d is out of range", c.Server.Port)
	}

	switch c.Exchange.Name {
	case exchange.VenueBybit:
		if c.Exchange.Bybit.APIKey == "" {
			missing("BYBIT_API_KEY")
		}
		if c.Exchange.Bybit.APISecret == "" {
			missing("BYBIT_API_SECRET")
		}
	case exchange.VenueBinance:
		if c.Exchange.Binance.APIKey == "" {
			missing("BINANCE_API_KEY")
		}
		if c.Exchange.Binance.APISecret == "" {
			missing("BINANCE_SECRET_KEY")
		}
	case exchange.VenuePaper:
	default:
		invalid("EXCHANGE_NAME %q is not supported, use one of %s", c.Exchange.Name, strings.Join(exchange.SupportedVenues(), ", "))
	}

	if c.Trading.DefaultRiskUSD <= 0 {
		invalid("DEFAULT_RISK_USD must be positive")
	}
	if c.Trading.MaxRiskUSD < 0 {
		invalid("MAX_RISK_USD must not be negative")
	}
	if c.Trading.MaxRiskUSD > 0 && c.Trading.DefaultRiskUSD > c.Trading.MaxRiskUSD {
		invalid("DEFAULT_RISK_USD %.2f exceeds MAX_RISK_USD %.2f", c.Trading.DefaultRiskUSD, c.Trading.MaxRiskUSD)
	}
	if _, err := orchestrator.ParseLockMode(c.Trading.LockMode); err != nil {
		invalid("LOCK_MODE: %v", err)
	}

	if c.Venue.Timeout <= 0 {
		invalid("VENUE_TIMEOUT must be positive")
	}
	if c.Venue.RateLimit <= 0 {
		invalid("VENUE_RATE_LIMIT must be positive")
	}
	if c.Venue.Retries < 0 || c.Venue.Retries > 1 {
		invalid("VENUE_RETRIES must be 0 or 1, rejected orders are never retried and transport errors at most once")
	}

	if (c.Notifications.TelegramToken == "") != (c.Notifications.TelegramChatID == "") {
		invalid("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return errors.Join(errs...)
}

// LockMode returns the parsed LOCK_MODE
func (c *Config) LockMode() orchestrator.LockMode {
	mode, err := orchestrator.ParseLockMode(c.Trading.LockMode)
	if err != nil {
		return orchestrator.LockBlock
	}
	return mode
}

// ExchangeConfig returns the venue factory configuration
func (c *Config) ExchangeConfig() exchange.ExchangeConfig {
	cfg := exchange.ExchangeConfig{Name: c.Exchange.Name}
	switch c.Exchange.Name {
	case exchange.VenueBybit:
		bybit := c.Exchange.Bybit
		cfg.Bybit = &bybit
	case exchange.VenueBinance:
		binance := c.Exchange.Binance
		cfg.Binance = &binance
	case exchange.VenuePaper:
		cfg.Paper = &exchange.PaperConfig{InitialBalance: c.Exchange.PaperBalance}
	}
	return cfg
}

// GuardConfig returns the venue call guard settings
func (c *Config) GuardConfig() exchange.GuardConfig {
	guard := exchange.DefaultGuardConfig()
	guard.CallTimeout = c.Venue.Timeout
	guard.RequestsPerSecond = c.Venue.RateLimit
	guard.Burst = c.Venue.RateLimit
	guard.Retry.MaxTransientRetries = c.Venue.Retries
	if c.Venue.BreakerThreshold > 0 {
		guard.BreakerThreshold = uint32(c.Venue.BreakerThreshold)
	}
	if c.Venue.BreakerCooldown > 0 {
		guard.BreakerCooldown = c.Venue.BreakerCooldown
	}
	return guard
}

// envReader reads typed values and keeps every parse failure
type envReader struct {
	errs []error
}

func (r *envReader) fail(key, value, want string) {
	r.errs = append(r.errs, boterrors.NewConfigurationError(boterrors.CodeInvalidSetting,
		fmt.Sprintf("%s=%q is not a valid %s", key, value, want)))
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) str(key, defaultVal string) string {
	return getEnv(key, defaultVal)
}

func (r *envReader) boolean(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, "boolean")
		return defaultVal
	}
	return parsed
}

func (r *envReader) integer(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, "integer")
		return defaultVal
	}
	return parsed
}

func (r *envReader) float(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, val, "number")
		return defaultVal
	}
	return parsed
}

// duration accepts Go durations ("8s") or plain seconds ("8")
func (r *envReader) duration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		r.fail(key, val, "duration")
		return defaultVal
	}
	return parsed
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}
