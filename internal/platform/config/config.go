// Package config loads and validates application configuration from a
// YAML file and environment variables.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the trading client
type Config struct {
	Chain         ChainConfig         `mapstructure:"chain"`
	Routers       []RouterConfig      `mapstructure:"routers"`
	Trading       TradingConfig       `mapstructure:"trading"`
	Gas           GasConfig           `mapstructure:"gas"`
	Tokens        TokensConfig        `mapstructure:"tokens"`
	Redis         RedisConfig         `mapstructure:"redis"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	HTTP          HTTPConfig          `mapstructure:"http"`
}

// ChainConfig holds chain connection configuration
type ChainConfig struct {
	ChainID      int64         `mapstructure:"chain_id"`
	RPCEndpoints []RPCEndpoint `mapstructure:"rpc_endpoints"`
}

// RPCEndpoint represents one RPC endpoint with its provider limits
type RPCEndpoint struct {
	URL            string `mapstructure:"url"`
	RatePerSecond  int    `mapstructure:"rate_per_second"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// RouterConfig describes one swap venue the client can quote and trade on
type RouterConfig struct {
	Name     string   `mapstructure:"name"`
	Kind     string   `mapstructure:"kind"` // "v3" or "v2"
	Router   string   `mapstructure:"router"`
	Factory  string   `mapstructure:"factory"`
	FeeTiers []uint32 `mapstructure:"fee_tiers"` // v3 only, e.g. [100, 500, 3000, 10000]
	FeeBps   uint32   `mapstructure:"fee_bps"`   // v2 only, e.g. 30
	GasUnits uint64   `mapstructure:"gas_units"` // estimated gas per swap
}

// TradingConfig holds trade sizing and loop settings
type TradingConfig struct {
	Pairs             []string      `mapstructure:"pairs"` // e.g. ["ETH-USDC"]
	NotionalUSD       float64       `mapstructure:"notional_usd"`
	MinProfitUSD      float64       `mapstructure:"min_profit_usd"`
	SlippageBps       int64         `mapstructure:"slippage_bps"`
	MaxSlippageBps    int64         `mapstructure:"max_slippage_bps"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	TickBudget        time.Duration `mapstructure:"tick_budget"`
	ConfirmTimeout    time.Duration `mapstructure:"confirm_timeout"`
	DryRun            bool          `mapstructure:"dry_run"`
	MinPoolLiquidity  string        `mapstructure:"min_pool_liquidity"` // raw units
	parsedMinPoolLiq  *big.Int
}

// MinPoolLiquidityWei returns the parsed minimum pool liquidity.
func (t *TradingConfig) MinPoolLiquidityWei() *big.Int {
	return t.parsedMinPoolLiq
}

// GasConfig holds gas pricing settings
type GasConfig struct {
	MaxPriceGwei       int64         `mapstructure:"max_price_gwei"`
	PriceTTL           time.Duration `mapstructure:"price_ttl"`
	FallbackETHUSD     float64       `mapstructure:"fallback_eth_usd"`
}

// TokensConfig holds token metadata the resolver consults before
// touching the chain
type TokensConfig struct {
	Stables           []string            `mapstructure:"stables"`            // stablecoin addresses
	DecimalsOverrides map[string]int      `mapstructure:"decimals_overrides"` // address -> decimals
	USDSymbolHints    []string            `mapstructure:"usd_symbol_hints"`   // symbols treated as USD-pegged
	Registry          map[string]TokenDef `mapstructure:"registry"`           // symbol -> token
}

// TokenDef is one configured token
type TokenDef struct {
	Address      string `mapstructure:"address"`
	Decimals     int    `mapstructure:"decimals"`
	IsStablecoin bool   `mapstructure:"is_stablecoin"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AWSConfig holds AWS service configuration
type AWSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Region      string `mapstructure:"region"`
	SNSTopicARN string `mapstructure:"sns_topic_arn"`
}

// CacheConfig holds caching configuration
type CacheConfig struct {
	L1MaxSize          int           `mapstructure:"l1_max_size"`
	L2TTL              time.Duration `mapstructure:"l2_ttl"`
	NegativeMissingTTL time.Duration `mapstructure:"negative_missing_ttl"`
	NegativeShallowTTL time.Duration `mapstructure:"negative_shallow_ttl"`
	NegativeFoundTTL   time.Duration `mapstructure:"negative_found_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TracingConfig holds tracing settings
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.parse(); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Chain defaults
	v.SetDefault("chain.chain_id", 1)

	// Trading defaults
	v.SetDefault("trading.notional_usd", 1000.0)
	v.SetDefault("trading.min_profit_usd", 1.0)
	v.SetDefault("trading.slippage_bps", 30)
	v.SetDefault("trading.max_slippage_bps", 200)
	v.SetDefault("trading.max_attempts", 3)
	v.SetDefault("trading.tick_interval", "3s")
	v.SetDefault("trading.tick_budget", "10s")
	v.SetDefault("trading.confirm_timeout", "90s")
	v.SetDefault("trading.dry_run", true)
	v.SetDefault("trading.min_pool_liquidity", "0")

	// Gas defaults
	v.SetDefault("gas.max_price_gwei", 500)
	v.SetDefault("gas.price_ttl", "12s")
	v.SetDefault("gas.fallback_eth_usd", 3000.0)

	// Token defaults
	v.SetDefault("tokens.usd_symbol_hints", []string{"USDC", "USDT", "DAI", "BUSD", "TUSD", "USDP", "GUSD"})

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// AWS defaults
	v.SetDefault("aws.enabled", false)
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.region", "us-east-1")

	// Cache defaults
	v.SetDefault("cache.l1_max_size", 1000)
	v.SetDefault("cache.l2_ttl", "60s")
	v.SetDefault("cache.negative_missing_ttl", "4h")
	v.SetDefault("cache.negative_shallow_ttl", "10m")
	v.SetDefault("cache.negative_found_ttl", "5m")

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 9091)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")

	// HTTP defaults
	v.SetDefault("http.port", 8080)
}

// parse parses string values into their proper types
func (c *Config) parse() error {
	minLiq := new(big.Int)
	if c.Trading.MinPoolLiquidity == "" {
		c.Trading.MinPoolLiquidity = "0"
	}
	if _, ok := minLiq.SetString(c.Trading.MinPoolLiquidity, 10); !ok {
		return fmt.Errorf("invalid min pool liquidity: %s", c.Trading.MinPoolLiquidity)
	}
	c.Trading.parsedMinPoolLiq = minLiq

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive")
	}

	if len(c.Chain.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}
	for i, ep := range c.Chain.RPCEndpoints {
		if ep.URL == "" {
			return fmt.Errorf("rpc endpoint %d: url is required", i)
		}
		if ep.RatePerSecond <= 0 {
			return fmt.Errorf("rpc endpoint %d: rate_per_second must be positive", i)
		}
		if ep.MaxConcurrency <= 0 {
			return fmt.Errorf("rpc endpoint %d: max_concurrency must be positive", i)
		}
	}

	if len(c.Routers) == 0 {
		return fmt.Errorf("at least one router is required")
	}
	for i, r := range c.Routers {
		switch r.Kind {
		case "v3":
			if len(r.FeeTiers) == 0 {
				return fmt.Errorf("router %s: v3 router needs fee_tiers", r.Name)
			}
		case "v2":
			if r.FeeBps == 0 {
				return fmt.Errorf("router %s: v2 router needs fee_bps", r.Name)
			}
		default:
			return fmt.Errorf("router %d: kind must be v3 or v2, got %q", i, r.Kind)
		}
		if r.Router == "" || r.Factory == "" {
			return fmt.Errorf("router %s: router and factory addresses are required", r.Name)
		}
	}

	if len(c.Trading.Pairs) == 0 {
		return fmt.Errorf("at least one trading pair is required")
	}
	if c.Trading.NotionalUSD <= 0 {
		return fmt.Errorf("notional_usd must be positive")
	}
	if c.Trading.MinProfitUSD < 0 {
		return fmt.Errorf("min_profit_usd must be >= 0")
	}
	if c.Trading.SlippageBps <= 0 || c.Trading.MaxSlippageBps < c.Trading.SlippageBps {
		return fmt.Errorf("slippage_bps must be positive and <= max_slippage_bps")
	}
	if c.Trading.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.AWS.Enabled {
		if c.AWS.Region == "" {
			return fmt.Errorf("AWS region is required when AWS is enabled")
		}
		if c.AWS.SNSTopicARN == "" {
			return fmt.Errorf("SNS topic ARN is required when AWS is enabled")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	return nil
}
