package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rughunter/rughunter/internal/monitor"
	"github.com/rughunter/rughunter/internal/pricefeed"
)

func fixedCheck(level Level, msg string) Check {
	return func(_ context.Context) ComponentHealth {
		return ComponentHealth{Level: level, Message: msg}
	}
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates to the worst component level", func(t *testing.T) {
		h := NewHealth(time.Minute)
		h.Register("a", fixedCheck(LevelHealthy, ""))
		h.Register("b", fixedCheck(LevelDegraded, "wobbly"))
		h.Register("c", fixedCheck(LevelHealthy, ""))

		snap := h.Snapshot(ctx)
		assert.Equal(t, LevelDegraded, snap.Level)
		assert.Len(t, snap.Components, 3)

		h.Register("d", fixedCheck(LevelUnhealthy, "down"))
		snap = h.Snapshot(ctx)
		assert.Equal(t, LevelUnhealthy, snap.Level)
	})

	t.Run("empty monitor is healthy", func(t *testing.T) {
		h := NewHealth(time.Minute)
		snap := h.Snapshot(ctx)
		assert.Equal(t, LevelHealthy, snap.Level)
		assert.Empty(t, snap.Components)
	})

	t.Run("component lookup returns the latest result", func(t *testing.T) {
		h := NewHealth(time.Minute)
		h.Register("pool-ethereum", fixedCheck(LevelDegraded, "1/2 endpoints healthy"))
		h.Snapshot(ctx)

		result, ok := h.Component("pool-ethereum")
		require.True(t, ok)
		assert.Equal(t, LevelDegraded, result.Level)
		assert.Equal(t, "pool-ethereum", result.Name)
		assert.False(t, result.LastChecked.IsZero())

		_, ok = h.Component("nope")
		assert.False(t, ok)
	})
}

func TestAlerts(t *testing.T) {
	ctx := context.Background()

	t.Run("level transitions emit alerts", func(t *testing.T) {
		h := NewHealth(time.Minute)
		level := LevelHealthy
		h.Register("scanner-bsc", func(_ context.Context) ComponentHealth {
			return ComponentHealth{Level: level, Message: "m"}
		})

		h.Snapshot(ctx) // first run always alerts
		select {
		case alert := <-h.Alerts():
			assert.Equal(t, "info", alert.Level)
		default:
			t.Fatal("expected the initial alert")
		}

		h.Snapshot(ctx) // steady state: no alert
		select {
		case alert := <-h.Alerts():
			t.Fatalf("unexpected alert: %+v", alert)
		default:
		}

		level = LevelUnhealthy
		h.Snapshot(ctx)
		select {
		case alert := <-h.Alerts():
			assert.Equal(t, "critical", alert.Level)
			assert.Equal(t, "scanner-bsc", alert.Component)
			assert.Equal(t, "m", alert.Message)
		default:
			t.Fatal("expected a transition alert")
		}
	})
}

func TestMonitorCheck(t *testing.T) {
	ctx := context.Background()

	m := monitor.New(monitor.Config{
		TickInterval:          10 * time.Millisecond,
		TrailingActivationPct: 10,
		TrailingDistancePct:   5,
	}, pricefeed.NewStub(), nil)

	check := MonitorCheck(m, time.Minute)

	t.Run("degraded before the first tick", func(t *testing.T) {
		result := check(ctx)
		assert.Equal(t, LevelDegraded, result.Level)
	})

	t.Run("healthy once the loop ticks", func(t *testing.T) {
		runCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_ = m.Run(runCtx)

		result := check(ctx)
		assert.Equal(t, LevelHealthy, result.Level)
	})
}
