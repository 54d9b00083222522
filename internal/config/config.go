package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the hunter.
type Config struct {
	General   GeneralConfig          `yaml:"general"`
	Chains    map[string]ChainConfig `yaml:"chains"`
	Scanner   ScannerConfig          `yaml:"scanner"`
	Security  SecurityConfig         `yaml:"security"`
	Risk      RiskConfig             `yaml:"risk"`
	Honeypot  HoneypotConfig         `yaml:"honeypot"`
	Pricefeed PricefeedConfig        `yaml:"pricefeed"`
	Trading   TradingConfig          `yaml:"trading"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

// EndpointConfig is one RPC node in a chain's pool.
type EndpointConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Priority int    `yaml:"priority"` // higher is preferred
}

// FactoryConfig is one DEX factory watched for PairCreated events.
type FactoryConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// ChainConfig describes one scanned network.
type ChainConfig struct {
	Enabled        bool             `yaml:"enabled"`
	Endpoints      []EndpointConfig `yaml:"endpoints"`
	Factories      []FactoryConfig  `yaml:"factories"`
	WrappedNative  string           `yaml:"wrapped_native"`
	NativePriceUSD float64          `yaml:"native_price_usd"`
	CallTimeoutMs  int              `yaml:"call_timeout_ms"`
	RetryDelayMs   int              `yaml:"retry_delay_ms"`
	RateLimitRPS   float64          `yaml:"rate_limit_rps"`
}

type ScannerConfig struct {
	ScanIntervalS   int     `yaml:"scan_interval_s"`
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
}

type SecurityConfig struct {
	Preset string `yaml:"preset"` // CONSERVATIVE|MODERATE|AGGRESSIVE
}

type RiskConfig struct {
	MaxPositionSizeUSD     float64 `yaml:"max_position_size_usd"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	MaxDailyLossUSD        float64 `yaml:"max_daily_loss_usd"`
	MaxTradesPerHour       int     `yaml:"max_trades_per_hour"`
	MaxTradesPerDay        int     `yaml:"max_trades_per_day"`
	LossCooldownMin        int     `yaml:"loss_cooldown_min"`
	CircuitBreakerMin      int     `yaml:"circuit_breaker_min"`
}

type HoneypotConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	TimeoutS    int    `yaml:"timeout_s"`
	CacheTTLMin int    `yaml:"cache_ttl_min"`
}

type PricefeedConfig struct {
	// WSEndpoint streams price ticks for open positions; empty disables
	// the websocket feed.
	WSEndpoint string `yaml:"ws_endpoint"`
}

type TradingConfig struct {
	Mode                  string             `yaml:"mode"` // PAPER
	PortfolioUSD          float64            `yaml:"portfolio_usd"`
	SlippageBps           float64            `yaml:"slippage_bps"`
	Balances              map[string]float64 `yaml:"balances"`
	MonitorTickS          int                `yaml:"monitor_tick_s"`
	TrailingActivationPct float64            `yaml:"trailing_activation_pct"`
	TrailingDistancePct   float64            `yaml:"trailing_distance_pct"`
}

// Load reads a YAML config file, expands $ENV references, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the stock two-chain configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "hunter-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}

	if len(cfg.Chains) == 0 {
		cfg.Chains = map[string]ChainConfig{
			"ethereum": {
				Enabled: true,
				Endpoints: []EndpointConfig{
					{Name: "llamarpc", URL: "https://eth.llamarpc.com", Priority: 10},
					{Name: "ankr", URL: "https://rpc.ankr.com/eth", Priority: 9},
				},
				Factories: []FactoryConfig{
					{Name: "uniswap_v2", Address: "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"},
				},
				WrappedNative:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
				NativePriceUSD: 2000,
			},
			"bsc": {
				Enabled: true,
				Endpoints: []EndpointConfig{
					{Name: "binance", URL: "https://bsc-dataseed1.binance.org", Priority: 10},
					{Name: "defibit", URL: "https://bsc-dataseed1.defibit.io", Priority: 9},
				},
				Factories: []FactoryConfig{
					{Name: "pancakeswap_v2", Address: "0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73"},
				},
				WrappedNative:  "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
				NativePriceUSD: 300,
			},
		}
	}
	for name, chain := range cfg.Chains {
		if chain.CallTimeoutMs == 0 {
			chain.CallTimeoutMs = 30_000
		}
		if chain.RetryDelayMs == 0 {
			chain.RetryDelayMs = 1000
		}
		if chain.RateLimitRPS == 0 {
			chain.RateLimitRPS = 10
		}
		cfg.Chains[name] = chain
	}

	if cfg.Scanner.ScanIntervalS == 0 {
		cfg.Scanner.ScanIntervalS = 3
	}
	if cfg.Scanner.MinLiquidityUSD == 0 {
		cfg.Scanner.MinLiquidityUSD = 5000
	}

	if cfg.Security.Preset == "" {
		cfg.Security.Preset = "MODERATE"
	}

	if cfg.Risk.MaxPositionSizeUSD == 0 {
		cfg.Risk.MaxPositionSizeUSD = 500
	}
	if cfg.Risk.MaxConcurrentPositions == 0 {
		cfg.Risk.MaxConcurrentPositions = 5
	}
	if cfg.Risk.MaxDailyLossUSD == 0 {
		cfg.Risk.MaxDailyLossUSD = 500
	}
	if cfg.Risk.MaxTradesPerHour == 0 {
		cfg.Risk.MaxTradesPerHour = 5
	}
	if cfg.Risk.MaxTradesPerDay == 0 {
		cfg.Risk.MaxTradesPerDay = 20
	}
	if cfg.Risk.LossCooldownMin == 0 {
		cfg.Risk.LossCooldownMin = 120
	}
	if cfg.Risk.CircuitBreakerMin == 0 {
		cfg.Risk.CircuitBreakerMin = 60
	}

	if cfg.Honeypot.BaseURL == "" {
		cfg.Honeypot.Enabled = true
		cfg.Honeypot.BaseURL = "https://api.honeypot.is"
	}
	if cfg.Honeypot.TimeoutS == 0 {
		cfg.Honeypot.TimeoutS = 15
	}
	if cfg.Honeypot.CacheTTLMin == 0 {
		cfg.Honeypot.CacheTTLMin = 10
	}

	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "PAPER"
	}
	if cfg.Trading.PortfolioUSD == 0 {
		cfg.Trading.PortfolioUSD = 10_000
	}
	if cfg.Trading.SlippageBps == 0 {
		cfg.Trading.SlippageBps = 50
	}
	if len(cfg.Trading.Balances) == 0 {
		cfg.Trading.Balances = map[string]float64{"ethereum": 1.0, "bsc": 0.5}
	}
	if cfg.Trading.MonitorTickS == 0 {
		cfg.Trading.MonitorTickS = 5
	}
	if cfg.Trading.TrailingActivationPct == 0 {
		cfg.Trading.TrailingActivationPct = 10
	}
	if cfg.Trading.TrailingDistancePct == 0 {
		cfg.Trading.TrailingDistancePct = 5
	}
}

// Validate rejects configurations the hunter cannot run with.
func (c *Config) Validate() error {
	if c.Trading.Mode != "PAPER" {
		return fmt.Errorf("trading mode %q not supported, only PAPER", c.Trading.Mode)
	}

	switch c.Security.Preset {
	case "CONSERVATIVE", "MODERATE", "AGGRESSIVE":
	default:
		return fmt.Errorf("unknown security preset %q", c.Security.Preset)
	}

	enabled := 0
	for name, chain := range c.Chains {
		if !chain.Enabled {
			continue
		}
		enabled++
		if len(chain.Endpoints) == 0 {
			return fmt.Errorf("chain %s: no rpc endpoints", name)
		}
		if len(chain.Factories) == 0 {
			return fmt.Errorf("chain %s: no dex factories", name)
		}
		if !isHexAddress(chain.WrappedNative) {
			return fmt.Errorf("chain %s: invalid wrapped native address %q", name, chain.WrappedNative)
		}
		for _, f := range chain.Factories {
			if !isHexAddress(f.Address) {
				return fmt.Errorf("chain %s: invalid factory address %q", name, f.Address)
			}
		}
		if chain.NativePriceUSD <= 0 {
			return fmt.Errorf("chain %s: native_price_usd must be positive", name)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no chains enabled")
	}
	return nil
}

// EnabledChains returns the names of enabled chains, for wiring.
func (c *Config) EnabledChains() []string {
	out := make([]string, 0, len(c.Chains))
	for name, chain := range c.Chains {
		if chain.Enabled {
			out = append(out, name)
		}
	}
	return out
}

// NativePrices returns the configured chain -> native USD price table.
func (c *Config) NativePrices() map[string]float64 {
	out := make(map[string]float64, len(c.Chains))
	for name, chain := range c.Chains {
		if chain.Enabled {
			out[name] = chain.NativePriceUSD
		}
	}
	return out
}

func isHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 42 {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
