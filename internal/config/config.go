// Package config defines the top-level configuration for the zapper engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ZAPPER_* environment variables.
type Config struct {
	Widget   WidgetConfig   `toml:"widget"`
	API      APIConfig      `toml:"api"`
	Quote    QuoteConfig    `toml:"quote"`
	Tx       TxConfig       `toml:"tx"`
	Chain    ChainConfig    `toml:"chain"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// WidgetConfig holds the host-facing widget parameters.
type WidgetConfig struct {
	Mode          string `toml:"mode"`           // "modal" or "inline"
	ChainID       uint64 `toml:"chain_id"`
	DTFAddress    string `toml:"dtf_address"`
	DTFTicker     string `toml:"dtf_ticker"`
	Debug         bool   `toml:"debug"`
	DefaultSource string `toml:"default_source"` // "best", "zap" or "odos"
}

// APIConfig holds the remote quoting service endpoints.
type APIConfig struct {
	URL string `toml:"url"`
}

// QuoteConfig tunes the quote orchestrator.
type QuoteConfig struct {
	SlippageBps           uint64  `toml:"slippage_bps"`
	DebounceMs            int     `toml:"debounce_ms"`
	RefreshIntervalSec    int     `toml:"refresh_interval_sec"`
	MaxTransportRetries   int     `toml:"max_transport_retries"`
	BackoffBaseMs         int     `toml:"backoff_base_ms"`
	BackoffCapMs          int     `toml:"backoff_cap_ms"`
	MaxDustRetries        int     `toml:"max_dust_retries"`
	MaxPriceImpactRetries int     `toml:"max_price_impact_retries"`
	DustRetryThreshold    float64 `toml:"dust_retry_threshold"`   // fraction of output value
	PriceImpactRetryPct   float64 `toml:"price_impact_retry_pct"` // percent
	CacheTTLSec           int     `toml:"cache_ttl_sec"`
	HealthIntervalSec     int     `toml:"health_interval_sec"`
	HealthStaleSec        int     `toml:"health_stale_sec"`
}

// TxConfig tunes the transaction execution state machine.
type TxConfig struct {
	ApproveHeadroomPct   uint64  `toml:"approve_headroom_pct"`
	PrimaryChainID       uint64  `toml:"primary_chain_id"`
	GasMultiplierPrimary uint64  `toml:"gas_multiplier_primary"`
	GasMultiplierOther   uint64  `toml:"gas_multiplier_other"`
	StalenessIntervalMs  int     `toml:"staleness_interval_ms"`
	PriceImpactBlockPct  float64 `toml:"price_impact_block_pct"`
	DustBlockPct         float64 `toml:"dust_block_pct"`
	ReceiptPollMs        int     `toml:"receipt_poll_ms"`
	ReceiptTimeoutSec    int     `toml:"receipt_timeout_sec"`
}

// ChainConfig holds RPC endpoints per chain.
type ChainConfig struct {
	RPCURL string `toml:"rpc_url"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables
// Redis and the engine falls back to in-memory caches.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds history-store connection parameters. An empty DSN
// and Host disables persistence.
type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
	MaxConns int    `toml:"pool_max_conns"`
	MinConns int    `toml:"pool_min_conns"`
}

// NotifyConfig holds operator notification channels. All channels are
// optional; an empty value disables that sender.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// ServerConfig holds the embedding HTTP/WS server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Defaults returns a Config populated with the built-in defaults. The quote
// and tx numbers mirror the production widget behavior.
func Defaults() Config {
	return Config{
		Widget: WidgetConfig{
			Mode:          "modal",
			ChainID:       1,
			DefaultSource: "best",
		},
		API: APIConfig{URL: "https://api.reserve.org/"},
		Quote: QuoteConfig{
			SlippageBps:           100,
			DebounceMs:            500,
			RefreshIntervalSec:    12,
			MaxTransportRetries:   3,
			BackoffBaseMs:         1000,
			BackoffCapMs:          10000,
			MaxDustRetries:        0,
			MaxPriceImpactRetries: 0,
			DustRetryThreshold:    0.025,
			PriceImpactRetryPct:   2,
			CacheTTLSec:           12,
			HealthIntervalSec:     60,
			HealthStaleSec:        120,
		},
		Tx: TxConfig{
			ApproveHeadroomPct:   120,
			PrimaryChainID:       1,
			GasMultiplierPrimary: 2,
			GasMultiplierOther:   3,
			StalenessIntervalMs:  2000,
			PriceImpactBlockPct:  3,
			DustBlockPct:         10,
			ReceiptPollMs:        2000,
			ReceiptTimeoutSec:    300,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies that would only
// surface later as confusing runtime failures.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Widget.Mode) {
	case "modal", "inline":
	default:
		return fmt.Errorf("config: unsupported widget mode %q", c.Widget.Mode)
	}

	switch strings.ToLower(c.Widget.DefaultSource) {
	case "best", "zap", "odos":
	default:
		return fmt.Errorf("config: unsupported default source %q", c.Widget.DefaultSource)
	}

	if c.Widget.DTFAddress == "" {
		return fmt.Errorf("config: widget dtf_address is required")
	}
	if c.API.URL == "" {
		return fmt.Errorf("config: api url is required")
	}
	if c.Quote.SlippageBps == 0 {
		return fmt.Errorf("config: quote slippage_bps must be positive")
	}
	if c.Quote.MaxTransportRetries < 0 || c.Quote.MaxDustRetries < 0 || c.Quote.MaxPriceImpactRetries < 0 {
		return fmt.Errorf("config: retry counts must not be negative")
	}
	if c.Tx.ApproveHeadroomPct < 100 {
		return fmt.Errorf("config: tx approve_headroom_pct must be at least 100")
	}
	if c.Tx.GasMultiplierPrimary == 0 || c.Tx.GasMultiplierOther == 0 {
		return fmt.Errorf("config: tx gas multipliers must be positive")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	return nil
}

// Debounce returns the orchestrator debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Quote.DebounceMs) * time.Millisecond
}

// RefreshInterval returns the quote auto-refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Quote.RefreshIntervalSec) * time.Second
}

// StalenessInterval returns the keep-warm simulation cadence.
func (c *Config) StalenessInterval() time.Duration {
	return time.Duration(c.Tx.StalenessIntervalMs) * time.Millisecond
}
