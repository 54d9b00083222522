package honeypot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ---------------------------------------------------------------------------
// Honeypot check — sell-simulation verdict for a candidate token
// ---------------------------------------------------------------------------

// Result is the outcome of one honeypot check. Unknown means the check
// could not run; callers proceed with caution rather than blocking.
type Result struct {
	IsHoneypot bool    `json:"is_honeypot"`
	CanBuy     bool    `json:"can_buy"`
	CanSell    bool    `json:"can_sell"`
	BuyTaxPct  float64 `json:"buy_tax_pct"`
	SellTaxPct float64 `json:"sell_tax_pct"`
	Unknown    bool    `json:"unknown"`
	Reason     string  `json:"reason"`
}

// UnknownResult is returned when a check fails or times out.
func UnknownResult(reason string) Result {
	return Result{
		CanBuy:  true,
		CanSell: true,
		Unknown: true,
		Reason:  reason,
	}
}

// Checker runs the honeypot verdict for a token.
type Checker interface {
	Check(ctx context.Context, token, chain string) Result
}

// ---------------------------------------------------------------------------
// honeypot.is v2 API client
// ---------------------------------------------------------------------------

// chainIDs maps chain names to the API's numeric chain ids.
var chainIDs = map[string]int{
	"ethereum": 1,
	"bsc":      56,
}

// APIConfig configures the honeypot.is client.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DefaultAPIConfig returns defaults matching the public API.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:  "https://api.honeypot.is",
		Timeout:  15 * time.Second,
		CacheTTL: 10 * time.Minute,
	}
}

// APIClient checks tokens against the honeypot.is v2 endpoint with a
// per-(chain, token) cache. Every failure degrades to UnknownResult.
type APIClient struct {
	config APIConfig
	client *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	result Result
	at     time.Time
}

var _ Checker = (*APIClient)(nil)

// NewAPIClient creates a honeypot.is client.
func NewAPIClient(config APIConfig) *APIClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.honeypot.is"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 10 * time.Minute
	}
	return &APIClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		cache:  make(map[string]cacheEntry),
	}
}

// apiResponse is the subset of the v2 IsHoneypot payload we consume.
type apiResponse struct {
	HoneypotResult struct {
		IsHoneypot bool `json:"isHoneypot"`
	} `json:"honeypotResult"`
	SimulationResult struct {
		BuyTax  float64 `json:"buyTax"`
		SellTax float64 `json:"sellTax"`
		// Gas figures arrive as numbers or quoted strings per chain.
		BuyGas  gasAmount `json:"buyGas"`
		SellGas gasAmount `json:"sellGas"`
	} `json:"simulationResult"`
}

type gasAmount float64

func (g *gasAmount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*g = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*g = 0
		return nil
	}
	*g = gasAmount(v)
	return nil
}

// Check queries the API, serving cached verdicts inside the TTL.
func (c *APIClient) Check(ctx context.Context, token, chain string) Result {
	key := strings.ToLower(chain) + ":" + strings.ToLower(token)

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && time.Since(entry.at) < c.config.CacheTTL {
		c.mu.Unlock()
		return entry.result
	}
	c.mu.Unlock()

	chainID, ok := chainIDs[strings.ToLower(chain)]
	if !ok {
		return UnknownResult(fmt.Sprintf("unsupported chain %q", chain))
	}

	endpoint := fmt.Sprintf("%s/v2/IsHoneypot?%s", c.config.BaseURL, url.Values{
		"address": {token},
		"chainID": {fmt.Sprintf("%d", chainID)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return UnknownResult(err.Error())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("token", token).Str("chain", chain).Msg("honeypot: api request failed")
		return UnknownResult("api unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("token", token).Msg("honeypot: unexpected api status")
		return UnknownResult(fmt.Sprintf("api status %d", resp.StatusCode))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return UnknownResult("malformed api response")
	}

	result := Result{
		IsHoneypot: payload.HoneypotResult.IsHoneypot,
		CanBuy:     payload.SimulationResult.BuyGas > 0,
		CanSell:    payload.SimulationResult.SellGas > 0,
		BuyTaxPct:  payload.SimulationResult.BuyTax,
		SellTaxPct: payload.SimulationResult.SellTax,
		Reason:     "verified via honeypot.is",
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{result: result, at: time.Now()}
	c.mu.Unlock()
	return result
}

// ClearCache drops all cached verdicts.
func (c *APIClient) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// ---------------------------------------------------------------------------
// Static checker for tests and offline runs
// ---------------------------------------------------------------------------

// Static returns preset results per token and a default for the rest.
type Static struct {
	mu      sync.RWMutex
	results map[string]Result
	fall    Result
}

var _ Checker = (*Static)(nil)

// NewStatic creates a static checker with the given default result.
func NewStatic(fallback Result) *Static {
	return &Static{results: make(map[string]Result), fall: fallback}
}

// SetResult fixes the result for one token.
func (s *Static) SetResult(token string, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[strings.ToLower(token)] = result
}

// Check returns the preset or fallback result.
func (s *Static) Check(_ context.Context, token, _ string) Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[strings.ToLower(token)]; ok {
		return r
	}
	return s.fall
}
