package evm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPool builds a pool with pre-wired endpoints, skipping Dial.
func newTestPool(chain string, names ...string) *Pool {
	cfg := DefaultPoolConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RateLimitRPS = 0
	p := NewPool(chain, cfg)
	for i, name := range names {
		ep := &Endpoint{
			URL:      "http://" + name,
			Name:     name,
			Priority: 100 - i*10,
			healthy:  true,
		}
		p.endpoints = append(p.endpoints, ep)
		if p.active == nil {
			p.active = ep
		}
	}
	return p
}

func TestEndpointHealth(t *testing.T) {
	t.Run("unhealthy after three consecutive failures", func(t *testing.T) {
		ep := &Endpoint{Name: "a", healthy: true}
		ep.recordFailure(fmt.Errorf("boom"))
		ep.recordFailure(fmt.Errorf("boom"))
		assert.True(t, ep.IsHealthy())

		ep.recordFailure(fmt.Errorf("boom"))
		assert.False(t, ep.IsHealthy())
	})

	t.Run("success resets the streak and restores health", func(t *testing.T) {
		ep := &Endpoint{Name: "a", healthy: true}
		for i := 0; i < 5; i++ {
			ep.recordFailure(fmt.Errorf("boom"))
		}
		require.False(t, ep.IsHealthy())

		ep.recordSuccess(12)
		assert.True(t, ep.IsHealthy())
		assert.Equal(t, 0, ep.status().ConsecutiveFailures)
	})

	t.Run("latency is an 80/20 moving average", func(t *testing.T) {
		ep := &Endpoint{Name: "a", healthy: true}
		ep.recordSuccess(100)
		assert.InDelta(t, 100.0, ep.status().AvgLatencyMs, 0.001)

		ep.recordSuccess(200)
		// 100*0.8 + 200*0.2
		assert.InDelta(t, 120.0, ep.status().AvgLatencyMs, 0.001)
	})

	t.Run("success rate counts failures", func(t *testing.T) {
		ep := &Endpoint{Name: "a", healthy: true}
		assert.Equal(t, 100.0, ep.SuccessRate())

		ep.recordSuccess(10)
		ep.recordSuccess(10)
		ep.recordFailure(fmt.Errorf("boom"))
		ep.recordSuccess(10)
		assert.InDelta(t, 75.0, ep.SuccessRate(), 0.001)
	})
}

func TestPoolSelectBest(t *testing.T) {
	t.Run("prefers highest priority healthy endpoint", func(t *testing.T) {
		p := newTestPool("ethereum", "primary", "backup")
		require.Equal(t, "primary", p.SelectBest().Name)

		for i := 0; i < unhealthyAfter; i++ {
			p.endpoints[0].recordFailure(fmt.Errorf("down"))
		}
		assert.Equal(t, "backup", p.SelectBest().Name)
		assert.Equal(t, "backup", p.Status().Active)
	})

	t.Run("resets all endpoints when none are healthy", func(t *testing.T) {
		p := newTestPool("ethereum", "primary", "backup")
		for _, ep := range p.endpoints {
			for i := 0; i < unhealthyAfter; i++ {
				ep.recordFailure(fmt.Errorf("down"))
			}
		}

		ep := p.SelectBest()
		require.NotNil(t, ep)
		assert.Equal(t, "primary", ep.Name)
		for _, ep := range p.endpoints {
			assert.True(t, ep.IsHealthy())
			assert.Equal(t, 0, ep.status().ConsecutiveFailures)
		}
	})

	t.Run("nil only for an empty pool", func(t *testing.T) {
		p := newTestPool("ethereum")
		assert.Nil(t, p.SelectBest())
	})
}

func TestPoolCall(t *testing.T) {
	t.Run("returns after first success", func(t *testing.T) {
		p := newTestPool("ethereum", "primary")
		calls := 0
		err := p.Call(context.Background(), func(_ context.Context, _ *ethclient.Client) error {
			calls++
			return nil
		}, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.InDelta(t, 100.0, p.endpoints[0].SuccessRate(), 0.001)
	})

	t.Run("fails over to the backup endpoint", func(t *testing.T) {
		p := newTestPool("ethereum", "primary", "backup")
		var served []string
		err := p.Call(context.Background(), func(_ context.Context, _ *ethclient.Client) error {
			ep := p.Status().Active
			served = append(served, ep)
			if ep == "primary" {
				return fmt.Errorf("primary down")
			}
			return nil
		}, 5)
		require.NoError(t, err)

		// Primary has to fail the full streak before backup takes over.
		assert.Equal(t, []string{"primary", "primary", "primary", "backup"}, served)
	})

	t.Run("exhausts retries and wraps the last error", func(t *testing.T) {
		p := newTestPool("ethereum", "primary")
		err := p.Call(context.Background(), func(_ context.Context, _ *ethclient.Client) error {
			return fmt.Errorf("always down")
		}, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all rpc endpoints exhausted after 2 attempts")
		assert.Contains(t, err.Error(), "always down")
	})

	t.Run("empty pool is an error", func(t *testing.T) {
		p := newTestPool("ethereum")
		err := p.Call(context.Background(), func(_ context.Context, _ *ethclient.Client) error {
			return nil
		}, 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no endpoints configured")
	})

	t.Run("honours context cancellation between retries", func(t *testing.T) {
		p := newTestPool("ethereum", "primary")
		p.config.RetryDelay = time.Second

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := p.Call(ctx, func(_ context.Context, _ *ethclient.Client) error {
			return fmt.Errorf("down")
		}, 3)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}
