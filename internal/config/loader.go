package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ZAPPER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ZAPPER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject endpoints and secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Widget ──
	setStr(&cfg.Widget.Mode, "ZAPPER_WIDGET_MODE")
	setUint64(&cfg.Widget.ChainID, "ZAPPER_WIDGET_CHAIN_ID")
	setStr(&cfg.Widget.DTFAddress, "ZAPPER_WIDGET_DTF_ADDRESS")
	setStr(&cfg.Widget.DTFTicker, "ZAPPER_WIDGET_DTF_TICKER")
	setBool(&cfg.Widget.Debug, "ZAPPER_WIDGET_DEBUG")
	setStr(&cfg.Widget.DefaultSource, "ZAPPER_WIDGET_DEFAULT_SOURCE")

	// ── API ──
	setStr(&cfg.API.URL, "ZAPPER_API_URL")

	// ── Quote ──
	setUint64(&cfg.Quote.SlippageBps, "ZAPPER_QUOTE_SLIPPAGE_BPS")
	setInt(&cfg.Quote.RefreshIntervalSec, "ZAPPER_QUOTE_REFRESH_INTERVAL_SEC")
	setInt(&cfg.Quote.MaxTransportRetries, "ZAPPER_QUOTE_MAX_TRANSPORT_RETRIES")
	setInt(&cfg.Quote.MaxDustRetries, "ZAPPER_QUOTE_MAX_DUST_RETRIES")
	setInt(&cfg.Quote.MaxPriceImpactRetries, "ZAPPER_QUOTE_MAX_PRICE_IMPACT_RETRIES")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "ZAPPER_CHAIN_RPC_URL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ZAPPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ZAPPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ZAPPER_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "ZAPPER_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ZAPPER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ZAPPER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ZAPPER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ZAPPER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ZAPPER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ZAPPER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ZAPPER_POSTGRES_SSLMODE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ZAPPER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ZAPPER_SERVER_PORT")

	// ── Logging ──
	setStr(&cfg.LogLevel, "ZAPPER_LOG_LEVEL")
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
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
