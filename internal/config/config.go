package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	infisical "github.com/infisical/go-sdk"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	FrontendOrigin string
	LogLevel       string

	SettingsBackend string
	RedisURL        string
	RedisPassword   string
	DatabaseURL     string

	// initial credentials, overridden by persisted settings
	PoolAPIKey    string
	WalletAddress string

	PoolURL        string
	PoolAuthHeader string
	PoolCoin       string
	BalanceURL     string
	TickerURL      string
	TickerCurrency string
	PriceFeed      string
	BinanceURL     string
	BinanceSymbol  string
	FearGreedURL   string

	PollIntervalTicks int
	PollGraceTicks    int
	TickInterval      time.Duration
	FetchTimeout      time.Duration
	PollOnStart       bool

	TracingEnabled bool
	OTLPEndpoint   string
}

func Load() Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Config{
		Port:           envOr("PORT", "8080"),
		FrontendOrigin: envOr("FRONTEND_ORIGIN", "*"),
		LogLevel:       envOr("LOG_LEVEL", "info"),

		SettingsBackend: strings.ToLower(os.Getenv("SETTINGS_BACKEND")),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),

		PoolAPIKey:    os.Getenv("POOL_API_KEY"),
		WalletAddress: os.Getenv("WALLET_ADDRESS"),

		PoolURL:        os.Getenv("POOL_URL"),
		PoolAuthHeader: os.Getenv("POOL_AUTH_HEADER"),
		PoolCoin:       envOr("POOL_COIN", "btc"),
		BalanceURL:     os.Getenv("BALANCE_URL"),
		TickerURL:      os.Getenv("TICKER_URL"),
		TickerCurrency: envOr("TICKER_CURRENCY", "USD"),
		PriceFeed:      strings.ToLower(envOr("PRICE_FEED", "blockchain")),
		BinanceURL:     os.Getenv("BINANCE_URL"),
		BinanceSymbol:  envOr("BINANCE_SYMBOL", "BTCUSDT"),
		FearGreedURL:   os.Getenv("FEAR_GREED_URL"),

		PollIntervalTicks: envInt("POLL_INTERVAL_TICKS", 60),
		PollGraceTicks:    envInt("POLL_GRACE_TICKS", 5),
		TickInterval:      envDuration("TICK_INTERVAL", time.Second),
		FetchTimeout:      envDuration("FETCH_TIMEOUT", 15*time.Second),
		PollOnStart:       envBool("POLL_ON_START", false),

		TracingEnabled: envBool("TRACING_ENABLED", false),
		OTLPEndpoint:   envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	return cfg
}

// Validate reports settings that would leave the poller unable to run.
func (c Config) Validate() error {
	var errs []error
	if c.PollIntervalTicks <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL_TICKS must be positive, got %d", c.PollIntervalTicks))
	}
	if c.PollGraceTicks < 0 {
		errs = append(errs, fmt.Errorf("POLL_GRACE_TICKS must not be negative, got %d", c.PollGraceTicks))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout))
	}
	switch c.SettingsBackend {
	case "", "memory", "redis", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown SETTINGS_BACKEND %q", c.SettingsBackend))
	}
	if c.SettingsBackend == "redis" && c.RedisURL == "" {
		errs = append(errs, errors.New("SETTINGS_BACKEND=redis needs REDIS_URL"))
	}
	if c.SettingsBackend == "postgres" && c.DatabaseURL == "" {
		errs = append(errs, errors.New("SETTINGS_BACKEND=postgres needs DATABASE_URL"))
	}
	switch c.PriceFeed {
	case "blockchain", "binance":
	default:
		errs = append(errs, fmt.Errorf("unknown PRICE_FEED %q", c.PriceFeed))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL",
		"http://infisical-infisical-standalone-infisical.infisical.svc.cluster.local:8080")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	secrets := map[string]*string{
		"POOL_API_KEY":   &cfg.PoolAPIKey,
		"REDIS_PASSWORD": &cfg.RedisPassword,
		"DATABASE_URL":   &cfg.DatabaseURL,
	}

	for key, target := range secrets {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("invalid boolean, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
	return fallback
}
