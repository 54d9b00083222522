package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestManager() (*Manager, *time.Time) {
	m := NewManager(DefaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func loss(usd float64) decimal.Decimal { return decimal.NewFromFloat(-usd) }
func win(usd float64) decimal.Decimal  { return decimal.NewFromFloat(usd) }

func TestCanOpenPosition(t *testing.T) {
	t.Run("accepts within all limits", func(t *testing.T) {
		m, _ := newTestManager()
		ok, reason := m.CanOpenPosition(100)
		assert.True(t, ok)
		assert.Equal(t, "OK", reason)
	})

	t.Run("rejects oversized positions first", func(t *testing.T) {
		m, _ := newTestManager()
		ok, reason := m.CanOpenPosition(600)
		assert.False(t, ok)
		assert.Contains(t, reason, "position too large")
	})

	t.Run("rejects at max concurrent positions", func(t *testing.T) {
		m, _ := newTestManager()
		for i := 0; i < 5; i++ {
			m.PositionOpened()
		}
		ok, reason := m.CanOpenPosition(100)
		assert.False(t, ok)
		assert.Contains(t, reason, "too many active positions")

		m.PositionClosed()
		ok, _ = m.CanOpenPosition(100)
		assert.True(t, ok)
	})

	t.Run("rejects at the daily loss cap", func(t *testing.T) {
		m, now := newTestManager()
		m.RecordTrade(loss(300))
		*now = now.Add(61 * time.Minute) // stay clear of the hourly limit
		m.RecordTrade(loss(250))

		ok, reason := m.CanOpenPosition(100)
		assert.False(t, ok)
		assert.Contains(t, reason, "daily loss limit")
	})

	t.Run("rejects at the hourly trade cap", func(t *testing.T) {
		m, _ := newTestManager()
		for i := 0; i < 5; i++ {
			m.RecordTrade(win(10))
		}
		ok, reason := m.CanOpenPosition(100)
		assert.False(t, ok)
		assert.Contains(t, reason, "hourly trade limit")
	})

	t.Run("hourly window rolls over", func(t *testing.T) {
		m, now := newTestManager()
		for i := 0; i < 5; i++ {
			m.RecordTrade(win(10))
		}
		*now = now.Add(61 * time.Minute)
		ok, _ := m.CanOpenPosition(100)
		assert.True(t, ok)
	})

	t.Run("rejects at the daily trade cap", func(t *testing.T) {
		m, now := newTestManager()
		for i := 0; i < 20; i++ {
			if i%4 == 3 {
				*now = now.Add(61 * time.Minute)
			}
			m.RecordTrade(win(10))
		}
		*now = now.Add(61 * time.Minute)
		ok, reason := m.CanOpenPosition(100)
		assert.False(t, ok)
		assert.Contains(t, reason, "daily trade limit")
	})

	t.Run("three consecutive losses start the cooldown", func(t *testing.T) {
		m, now := newTestManager()
		m.RecordTrade(loss(10))
		m.RecordTrade(loss(10))
		m.RecordTrade(loss(10))

		ok, reason := m.CanOpenPosition(100)
		assert.False(t, ok)
		assert.Contains(t, reason, "cooldown active")
		assert.True(t, m.CircuitBreakerActive())

		// After the cooldown window the gate opens again.
		*now = now.Add(3 * time.Hour)
		ok, _ = m.CanOpenPosition(100)
		assert.True(t, ok)
		assert.False(t, m.CircuitBreakerActive())
	})
}

func TestRecordTrade(t *testing.T) {
	t.Run("win resets the loss streak", func(t *testing.T) {
		m, _ := newTestManager()
		m.RecordTrade(loss(10))
		m.RecordTrade(loss(10))
		m.RecordTrade(win(5))

		st := m.Snapshot()
		assert.Zero(t, st.ConsecutiveLosses)
		assert.Equal(t, 20.0, st.DailyLossUSD, "wins never reduce accumulated loss")
		assert.Equal(t, 3, st.TradesToday)
	})

	t.Run("losses accumulate daily and weekly", func(t *testing.T) {
		m, _ := newTestManager()
		m.RecordTrade(loss(30))
		m.RecordTrade(loss(20))

		st := m.Snapshot()
		assert.Equal(t, 50.0, st.DailyLossUSD)
		assert.Equal(t, 50.0, st.WeeklyLossUSD)
		assert.Equal(t, 2, st.ConsecutiveLosses)
	})

	t.Run("daily reset keeps the weekly accumulator", func(t *testing.T) {
		m, _ := newTestManager()
		m.RecordTrade(loss(30))
		m.ResetDaily()

		st := m.Snapshot()
		assert.Zero(t, st.DailyLossUSD)
		assert.Zero(t, st.TradesToday)
		assert.Equal(t, 30.0, st.WeeklyLossUSD)

		m.ResetWeekly()
		assert.Zero(t, m.Snapshot().WeeklyLossUSD)
	})
}

func TestPositionSize(t *testing.T) {
	m, _ := newTestManager()

	t.Run("tiers by rug risk", func(t *testing.T) {
		cases := []struct {
			risk float64
			want float64
		}{
			{10, 600}, // 6% of 10k
			{30, 400},
			{50, 200},
			{60, 100},
			{75, 80},
		}
		for _, tc := range cases {
			size := m.PositionSize(10_000, tc.risk, "")
			got, _ := size.Float64()
			assert.InDelta(t, tc.want, got, 0.001, "risk %.0f", tc.risk)
		}
	})

	t.Run("extreme rug risk sizes to zero", func(t *testing.T) {
		assert.True(t, m.PositionSize(10_000, 81, "").IsZero())
	})

	t.Run("strategy modifiers", func(t *testing.T) {
		scalp, _ := m.PositionSize(5_000, 10, "scalping").Float64()
		assert.InDelta(t, 240, scalp, 0.001) // 6% * 0.8

		mom, _ := m.PositionSize(5_000, 10, "momentum").Float64()
		assert.InDelta(t, 330, mom, 0.001) // 6% * 1.1
	})

	t.Run("capped at the configured maximum", func(t *testing.T) {
		size, _ := m.PositionSize(1_000_000, 10, "").Float64()
		assert.Equal(t, 500.0, size)
	})
}
