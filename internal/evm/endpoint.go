package evm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ---------------------------------------------------------------------------
// Multi-RPC Endpoint Pool — health tracking, best-endpoint selection, failover
// ---------------------------------------------------------------------------

// unhealthyAfter is the consecutive-failure streak that marks an endpoint down.
const unhealthyAfter = 3

// Endpoint is a single RPC node with health and latency accounting.
// Endpoints are created at pool configuration time and never removed;
// they are only flipped between healthy and unhealthy.
type Endpoint struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`

	client *ethclient.Client

	mu                  sync.Mutex
	healthy             bool
	consecutiveFailures int
	totalRequests       int64
	totalFailures       int64
	avgLatencyMs        float64
	lastError           string
}

// recordSuccess blends the observed latency into the running average
// (80/20 EWMA) and restores health.
func (e *Endpoint) recordSuccess(latencyMs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalRequests++
	e.consecutiveFailures = 0
	e.healthy = true
	if e.avgLatencyMs == 0 {
		e.avgLatencyMs = latencyMs
	} else {
		e.avgLatencyMs = e.avgLatencyMs*0.8 + latencyMs*0.2
	}
}

// recordFailure bumps the failure streak and marks the endpoint unhealthy
// once the streak reaches the threshold.
func (e *Endpoint) recordFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalRequests++
	e.totalFailures++
	e.consecutiveFailures++
	e.lastError = err.Error()
	if e.consecutiveFailures >= unhealthyAfter {
		e.healthy = false
	}
}

// IsHealthy reports whether the endpoint is currently considered live.
func (e *Endpoint) IsHealthy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.healthy
}

// SuccessRate returns the lifetime success percentage (100 when unused).
func (e *Endpoint) SuccessRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.totalRequests == 0 {
		return 100.0
	}
	return float64(e.totalRequests-e.totalFailures) / float64(e.totalRequests) * 100.0
}

// EndpointStatus is a point-in-time snapshot of one endpoint.
type EndpointStatus struct {
	Name                string  `json:"name"`
	URL                 string  `json:"url"`
	Priority            int     `json:"priority"`
	Healthy             bool    `json:"is_healthy"`
	SuccessRate         float64 `json:"success_rate"`
	AvgLatencyMs        float64 `json:"avg_latency_ms"`
	TotalRequests       int64   `json:"total_requests"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	LastError           string  `json:"last_error,omitempty"`
}

func (e *Endpoint) status() EndpointStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	sr := 100.0
	if e.totalRequests > 0 {
		sr = float64(e.totalRequests-e.totalFailures) / float64(e.totalRequests) * 100.0
	}
	return EndpointStatus{
		Name:                e.Name,
		URL:                 e.URL,
		Priority:            e.Priority,
		Healthy:             e.healthy,
		SuccessRate:         sr,
		AvgLatencyMs:        e.avgLatencyMs,
		TotalRequests:       e.totalRequests,
		ConsecutiveFailures: e.consecutiveFailures,
		LastError:           e.lastError,
	}
}

// PoolConfig configures an endpoint pool for one chain.
type PoolConfig struct {
	// Per-call timeout for a single RPC operation.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// Delay between failover attempts inside Call.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Requests per second across the whole pool (0 = unlimited).
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// DefaultPoolConfig returns defaults suitable for public RPC nodes.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		CallTimeout:  30 * time.Second,
		RetryDelay:   time.Second,
		RateLimitRPS: 10,
	}
}

// Pool owns the RPC endpoints for a single chain and executes calls with
// retry-and-failover. It is safe for concurrent use; endpoint counters are
// guarded per endpoint, the endpoint set by the pool mutex.
type Pool struct {
	Chain  string
	config PoolConfig

	mu        sync.RWMutex
	endpoints []*Endpoint
	active    *Endpoint

	limiter *rate.Limiter
}

// NewPool creates an empty endpoint pool for the named chain.
func NewPool(chain string, config PoolConfig) *Pool {
	if config.CallTimeout == 0 {
		config.CallTimeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	var limiter *rate.Limiter
	if config.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimitRPS), int(config.RateLimitRPS)+1)
	}
	return &Pool{
		Chain:   chain,
		config:  config,
		limiter: limiter,
	}
}

// Add registers an endpoint. The set stays sorted by descending priority,
// and the first endpoint added becomes the active one.
func (p *Pool) Add(url, name string, priority int) error {
	client, err := ethclient.Dial(url)
	if err != nil {
		return fmt.Errorf("dial rpc %s: %w", name, err)
	}

	ep := &Endpoint{
		URL:      url,
		Name:     name,
		Priority: priority,
		client:   client,
		healthy:  true,
	}

	p.mu.Lock()
	p.endpoints = append(p.endpoints, ep)
	sort.SliceStable(p.endpoints, func(i, j int) bool {
		return p.endpoints[i].Priority > p.endpoints[j].Priority
	})
	if p.active == nil {
		p.active = ep
	}
	p.mu.Unlock()

	log.Info().
		Str("chain", p.Chain).
		Str("rpc", name).
		Int("priority", priority).
		Msg("pool: endpoint added")
	return nil
}

// SelectBest returns the highest-priority healthy endpoint. If every
// endpoint is unhealthy the failures are assumed transient at the network
// level: all endpoints are reset to healthy and selection retried once.
// Returns nil only when the pool is empty.
func (p *Pool) SelectBest() *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectBestLocked()
}

func (p *Pool) selectBestLocked() *Endpoint {
	for _, ep := range p.endpoints {
		if ep.IsHealthy() {
			if ep != p.active {
				log.Info().
					Str("chain", p.Chain).
					Str("rpc", ep.Name).
					Msg("pool: switching active endpoint")
				p.active = ep
			}
			return ep
		}
	}

	if len(p.endpoints) == 0 {
		return nil
	}

	// Full recovery attempt: no healthy endpoint left, reset everything.
	log.Warn().Str("chain", p.Chain).Msg("pool: no healthy endpoint, resetting all")
	for _, ep := range p.endpoints {
		ep.mu.Lock()
		ep.healthy = true
		ep.consecutiveFailures = 0
		ep.mu.Unlock()
	}
	p.active = p.endpoints[0]
	return p.active
}

// Operation is a single RPC call executed against the currently best endpoint.
type Operation func(ctx context.Context, client *ethclient.Client) error

// Call executes op with retry-and-failover, re-selecting the best endpoint
// after each failure. This is the sole retry policy for chain RPC: every
// caller that talks to the chain goes through here.
func (p *Pool) Call(ctx context.Context, op Operation, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		ep := p.SelectBest()
		if ep == nil {
			return fmt.Errorf("pool %s: no endpoints configured", p.Chain)
		}

		callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
		start := time.Now()
		err := op(callCtx, ep.client)
		cancel()

		if err == nil {
			ep.recordSuccess(float64(time.Since(start).Microseconds()) / 1000.0)
			return nil
		}

		lastErr = err
		ep.recordFailure(err)
		log.Warn().
			Str("chain", p.Chain).
			Str("rpc", ep.Name).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Err(err).
			Msg("pool: rpc call failed")

		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryDelay):
			}
		}
	}

	return fmt.Errorf("pool %s: all rpc endpoints exhausted after %d attempts: %w",
		p.Chain, maxRetries, lastErr)
}

// PoolStatus is the health snapshot exposed to callers.
type PoolStatus struct {
	Chain     string           `json:"chain"`
	Active    string           `json:"active_endpoint"`
	Endpoints []EndpointStatus `json:"endpoints"`
}

// Status returns the current health/latency snapshot of every endpoint.
func (p *Pool) Status() PoolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := PoolStatus{Chain: p.Chain}
	if p.active != nil {
		st.Active = p.active.Name
	}
	for _, ep := range p.endpoints {
		st.Endpoints = append(st.Endpoints, ep.status())
	}
	return st
}

// Close releases the underlying RPC connections.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		if ep.client != nil {
			ep.client.Close()
		}
	}
}
