// Package config loads and validates the agent's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/deluthium/darkpool-mm/internal/quote"
)

// Default pair parameters applied when a field is omitted.
const (
	defaultSpreadBps    = 30
	defaultOrderAmount  = "1.0"
	defaultMinOrderSize = "0.01"
	defaultMaxOrderSize = "1000"
)

// Config is the root configuration.
type Config struct {
	App           AppConfig       `yaml:"app"`
	Signer        SignerConfig    `yaml:"signer"`
	WebSocket     WebSocketConfig `yaml:"websocket"`
	Metrics       MetricsConfig   `yaml:"metrics"`
	Pricing       PricingConfig   `yaml:"pricing"`
	EIP712Domains []DomainConfig  `yaml:"eip712Domains"`
	Pairs         []PairConfig    `yaml:"pairs"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"logLevel"`
}

// SignerConfig selects the signing key: the literal hex value wins, otherwise
// the named environment variable is read. The key never appears in logs or
// outbound frames.
type SignerConfig struct {
	PrivateKey    string `yaml:"privateKey"`
	PrivateKeyEnv string `yaml:"privateKeyEnv"`
}

// WebSocketConfig holds the hub connection parameters.
type WebSocketConfig struct {
	ServerURL        string        `yaml:"serverUrl"`
	APIToken         string        `yaml:"apiToken"`
	APITokenEnv      string        `yaml:"apiTokenEnv"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
}

// Token resolves the JWT, preferring the literal value and falling back to
// the environment variable.
func (w *WebSocketConfig) Token() (string, error) {
	if w.APIToken != "" {
		return w.APIToken, nil
	}
	if w.APITokenEnv != "" {
		token := os.Getenv(w.APITokenEnv)
		if token == "" {
			return "", fmt.Errorf("environment variable %s is not set and no apiToken in config", w.APITokenEnv)
		}
		return token, nil
	}
	return "", fmt.Errorf("neither apiToken nor apiTokenEnv is configured")
}

// MetricsConfig controls the Prometheus endpoint. An empty listen address
// disables it.
type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// PricingConfig configures the static price feed.
type PricingConfig struct {
	FallbackParity *bool         `yaml:"fallbackParity"`
	Prices         []PriceConfig `yaml:"prices"`
}

// ParityFallback reports whether unknown pairs fall back to a 1.0 mid price.
// Enabled unless explicitly disabled.
func (p *PricingConfig) ParityFallback() bool {
	return p.FallbackParity == nil || *p.FallbackParity
}

// PriceConfig is one configured mid price for baseToken -> quoteToken.
type PriceConfig struct {
	BaseToken  string `yaml:"baseToken"`
	QuoteToken string `yaml:"quoteToken"`
	Price      string `yaml:"price"`
}

// DomainConfig overrides or adds an EIP-712 signing domain for a chain.
type DomainConfig struct {
	ChainID           uint64 `yaml:"chainId"`
	Name              string `yaml:"name"`
	Version           string `yaml:"version"`
	VerifyingContract string `yaml:"verifyingContract"`
}

// LevelConfig is one configured depth level.
type LevelConfig struct {
	SpreadBps uint32 `yaml:"spreadBps"`
	Amount    string `yaml:"amount"`
}

// PairConfig is one configured offering. Amounts are decimal strings in
// whole-token units.
type PairConfig struct {
	ChainID      uint64        `yaml:"chainId"`
	BaseToken    string        `yaml:"baseToken"`
	QuoteToken   string        `yaml:"quoteToken"`
	BidSpreadBps *uint32       `yaml:"bidSpreadBps"`
	AskSpreadBps *uint32       `yaml:"askSpreadBps"`
	OrderAmount  string        `yaml:"orderAmount"`
	MinOrderSize string        `yaml:"minOrderSize"`
	MaxOrderSize string        `yaml:"maxOrderSize"`
	Levels       []LevelConfig `yaml:"levels"`
}

// Pair converts the config entry into a registry pair, applying defaults for
// omitted fields.
func (p *PairConfig) Pair() (*quote.Pair, error) {
	if p.ChainID == 0 {
		return nil, fmt.Errorf("chainId is required")
	}
	if !common.IsHexAddress(p.BaseToken) {
		return nil, fmt.Errorf("invalid baseToken address: %q", p.BaseToken)
	}
	if !common.IsHexAddress(p.QuoteToken) {
		return nil, fmt.Errorf("invalid quoteToken address: %q", p.QuoteToken)
	}

	orderAmount, err := parseAmount("orderAmount", p.OrderAmount, defaultOrderAmount)
	if err != nil {
		return nil, err
	}
	minSize, err := parseAmount("minOrderSize", p.MinOrderSize, defaultMinOrderSize)
	if err != nil {
		return nil, err
	}
	maxSize, err := parseAmount("maxOrderSize", p.MaxOrderSize, defaultMaxOrderSize)
	if err != nil {
		return nil, err
	}
	if maxSize.LessThan(minSize) {
		return nil, fmt.Errorf("maxOrderSize %s is below minOrderSize %s", maxSize, minSize)
	}

	bid := spreadOrDefault(p.BidSpreadBps)
	ask := spreadOrDefault(p.AskSpreadBps)
	if bid >= 10000 || ask >= 10000 {
		return nil, fmt.Errorf("spread must be below 10000 bps (bid=%d ask=%d)", bid, ask)
	}

	levels := make([]quote.Level, 0, len(p.Levels))
	for i, l := range p.Levels {
		if l.SpreadBps >= 10000 {
			return nil, fmt.Errorf("levels[%d]: spread must be below 10000 bps", i)
		}
		amount, err := parseAmount(fmt.Sprintf("levels[%d].amount", i), l.Amount, "")
		if err != nil {
			return nil, err
		}
		levels = append(levels, quote.Level{SpreadBps: l.SpreadBps, Amount: amount})
	}

	return &quote.Pair{
		ChainID:      p.ChainID,
		BaseToken:    common.HexToAddress(p.BaseToken),
		QuoteToken:   common.HexToAddress(p.QuoteToken),
		BidSpreadBps: bid,
		AskSpreadBps: ask,
		OrderAmount:  orderAmount,
		MinOrderSize: minSize,
		MaxOrderSize: maxSize,
		Levels:       levels,
	}, nil
}

func spreadOrDefault(v *uint32) uint32 {
	if v == nil {
		return defaultSpreadBps
	}
	return *v
}

func parseAmount(field, value, fallback string) (decimal.Decimal, error) {
	if value == "" {
		if fallback == "" {
			return decimal.Decimal{}, fmt.Errorf("%s is required", field)
		}
		value = fallback
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return d, nil
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "darkpool-mm"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.WebSocket.HandshakeTimeout == 0 {
		c.WebSocket.HandshakeTimeout = 10 * time.Second
	}
	if c.WebSocket.ReadTimeout == 0 {
		c.WebSocket.ReadTimeout = 90 * time.Second
	}
	if c.WebSocket.WriteTimeout == 0 {
		c.WebSocket.WriteTimeout = 10 * time.Second
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.WebSocket.ServerURL == "" {
		return fmt.Errorf("websocket.serverUrl is required")
	}
	if c.WebSocket.APIToken == "" && c.WebSocket.APITokenEnv == "" {
		return fmt.Errorf("websocket.apiToken or websocket.apiTokenEnv is required")
	}
	if c.Signer.PrivateKey == "" && c.Signer.PrivateKeyEnv == "" {
		return fmt.Errorf("signer.privateKey or signer.privateKeyEnv is required")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one pair must be configured")
	}
	for i := range c.Pairs {
		if _, err := c.Pairs[i].Pair(); err != nil {
			return fmt.Errorf("pairs[%d]: %w", i, err)
		}
	}
	for i, d := range c.EIP712Domains {
		if d.ChainID == 0 {
			return fmt.Errorf("eip712Domains[%d]: chainId is required", i)
		}
		if !common.IsHexAddress(d.VerifyingContract) {
			return fmt.Errorf("eip712Domains[%d]: invalid verifyingContract: %q", i, d.VerifyingContract)
		}
	}
	for i, p := range c.Pricing.Prices {
		if !common.IsHexAddress(p.BaseToken) {
			return fmt.Errorf("pricing.prices[%d]: invalid baseToken: %q", i, p.BaseToken)
		}
		if !common.IsHexAddress(p.QuoteToken) {
			return fmt.Errorf("pricing.prices[%d]: invalid quoteToken: %q", i, p.QuoteToken)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("pricing.prices[%d]: invalid price %q: %w", i, p.Price, err)
		}
		if price.Sign() <= 0 {
			return fmt.Errorf("pricing.prices[%d]: price must be positive, got %s", i, price)
		}
	}
	return nil
}
