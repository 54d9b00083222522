package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rughunter/rughunter/internal/pricefeed"
)

var monToken = common.HexToAddress("0x2222222222222222222222222222222222222222")

type execCall struct {
	id     string
	pct    float64
	reason string
}

// stubExecutor records sells and can fail the first N calls.
type stubExecutor struct {
	mu        sync.Mutex
	calls     []execCall
	failFirst int
}

func (s *stubExecutor) Sell(_ context.Context, id string, pct float64, reason string) (SellReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFirst > 0 {
		s.failFirst--
		return SellReceipt{}, errors.New("executor down")
	}
	s.calls = append(s.calls, execCall{id, pct, reason})
	return SellReceipt{PnLPercent: 10, PnLUSD: decimal.NewFromInt(100)}, nil
}

func (s *stubExecutor) recorded() []execCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]execCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func newTestMonitor() (*Monitor, *pricefeed.Stub, *stubExecutor) {
	feed := pricefeed.NewStub()
	exec := &stubExecutor{}
	m := New(Config{
		TickInterval:          time.Second,
		TrailingActivationPct: 10,
		TrailingDistancePct:   5,
	}, feed, exec)
	return m, feed, exec
}

func setPrice(feed *pricefeed.Stub, price float64) {
	feed.Set(monToken.Hex(), "ethereum", decimal.NewFromFloat(price))
}

// aggressiveSteps mirrors the x1.5/30 x2.0/40 x3.0/30 ladder for entry 1.0.
func aggressiveSteps() []ExitStep {
	return []ExitStep{
		{Price: decimal.NewFromFloat(1.5), SellPercent: 30, Reason: "TAKE_PROFIT_1"},
		{Price: decimal.NewFromFloat(2.0), SellPercent: 40, Reason: "TAKE_PROFIT_2"},
		{Price: decimal.NewFromFloat(3.0), SellPercent: 30, Reason: "TAKE_PROFIT_3"},
	}
}

func track(m *Monitor, stop float64, steps []ExitStep) *Position {
	return m.Track("pos-1", monToken, "ethereum", "TEST",
		decimal.NewFromInt(1), decimal.NewFromFloat(stop), steps)
}

func TestStopLoss(t *testing.T) {
	ctx := context.Background()

	t.Run("price at or under the stop closes everything", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		track(m, 0.85, aggressiveSteps())

		setPrice(feed, 0.80)
		m.tick(ctx)

		calls := exec.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, 100.0, calls[0].pct)
		assert.Equal(t, "STOP_LOSS", calls[0].reason)

		view, ok := m.PositionStatus("pos-1")
		require.True(t, ok)
		assert.Equal(t, StatusClosed, view.Status)
		assert.Zero(t, view.RemainingPct)

		select {
		case closed := <-m.Closed():
			assert.Equal(t, "pos-1", closed.ID)
			assert.Equal(t, "STOP_LOSS", closed.Reason)
		default:
			t.Fatal("expected a closed event")
		}
	})

	t.Run("stop only sells what remains after partial exits", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		track(m, 0.85, aggressiveSteps())

		setPrice(feed, 1.6) // TP1 fires, 70% remains
		m.tick(ctx)
		setPrice(feed, 0.5)
		m.tick(ctx)

		calls := exec.recorded()
		require.Len(t, calls, 2)
		assert.Equal(t, 30.0, calls[0].pct)
		assert.Equal(t, 70.0, calls[1].pct)
		assert.Equal(t, "STOP_LOSS", calls[1].reason)

		total := 0.0
		for _, c := range calls {
			total += c.pct
		}
		assert.Equal(t, 100.0, total)
	})
}

func TestTrailingStop(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive below the activation gain", func(t *testing.T) {
		m, feed, _ := newTestMonitor()
		track(m, 0.85, nil)

		setPrice(feed, 1.05) // +5%, under the 10% activation
		m.tick(ctx)

		view, _ := m.PositionStatus("pos-1")
		assert.False(t, view.TrailingActive)
		assert.True(t, view.StopPrice.Equal(decimal.NewFromFloat(0.85)))
	})

	t.Run("ratchets on new highs and never lowers", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		track(m, 0.85, nil)

		setPrice(feed, 1.2)
		m.tick(ctx)
		view, _ := m.PositionStatus("pos-1")
		assert.True(t, view.TrailingActive)
		assert.True(t, view.StopPrice.Equal(decimal.NewFromFloat(1.14)), "got %s", view.StopPrice)

		setPrice(feed, 1.3)
		m.tick(ctx)
		view, _ = m.PositionStatus("pos-1")
		assert.True(t, view.StopPrice.Equal(decimal.NewFromFloat(1.235)), "got %s", view.StopPrice)

		// Falling back toward, but not through, the stop changes nothing.
		setPrice(feed, 1.25)
		m.tick(ctx)
		view, _ = m.PositionStatus("pos-1")
		assert.True(t, view.StopPrice.Equal(decimal.NewFromFloat(1.235)))
		assert.Equal(t, StatusActive, view.Status)
		assert.Empty(t, exec.recorded())

		// Crossing the ratcheted stop closes in profit.
		setPrice(feed, 1.2)
		m.tick(ctx)
		calls := exec.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, "STOP_LOSS", calls[0].reason)
	})
}

func TestExitSteps(t *testing.T) {
	ctx := context.Background()

	t.Run("a jump past every level sells each step in order, exactly once", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		track(m, 0.85, aggressiveSteps())

		setPrice(feed, 3.5)
		m.tick(ctx)

		calls := exec.recorded()
		require.Len(t, calls, 3)
		assert.Equal(t, []execCall{
			{"pos-1", 30, "TAKE_PROFIT_1"},
			{"pos-1", 40, "TAKE_PROFIT_2"},
			{"pos-1", 30, "TAKE_PROFIT_3"},
		}, calls)

		view, _ := m.PositionStatus("pos-1")
		assert.Equal(t, StatusClosed, view.Status)
		assert.Zero(t, view.RemainingPct)
	})

	t.Run("steps are sorted by trigger price at registration", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		steps := aggressiveSteps()
		steps[0], steps[2] = steps[2], steps[0]
		track(m, 0.85, steps)

		setPrice(feed, 3.5)
		m.tick(ctx)

		calls := exec.recorded()
		require.Len(t, calls, 3)
		assert.Equal(t, "TAKE_PROFIT_1", calls[0].reason)
		assert.Equal(t, "TAKE_PROFIT_3", calls[2].reason)
	})

	t.Run("an executed step never fires again", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		track(m, 0.85, aggressiveSteps())

		setPrice(feed, 1.6)
		m.tick(ctx)
		m.tick(ctx)

		calls := exec.recorded()
		require.Len(t, calls, 1)
		view, _ := m.PositionStatus("pos-1")
		assert.Equal(t, 70.0, view.RemainingPct)
	})

	t.Run("oversized ladders are capped at 100 percent total", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		track(m, 0.85, []ExitStep{
			{Price: decimal.NewFromFloat(1.2), SellPercent: 50, Reason: "TAKE_PROFIT_1"},
			{Price: decimal.NewFromFloat(1.4), SellPercent: 60, Reason: "TAKE_PROFIT_2"},
			{Price: decimal.NewFromFloat(1.6), SellPercent: 70, Reason: "TAKE_PROFIT_3"},
		})

		setPrice(feed, 2.0)
		m.tick(ctx)

		total := 0.0
		for _, c := range exec.recorded() {
			total += c.pct
		}
		assert.Equal(t, 100.0, total)

		view, _ := m.PositionStatus("pos-1")
		assert.Equal(t, StatusClosed, view.Status)
	})

	t.Run("a ladder under 100 closes once every step fired", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		track(m, 0.85, []ExitStep{
			{Price: decimal.NewFromFloat(1.5), SellPercent: 50, Reason: "TAKE_PROFIT_1"},
		})

		setPrice(feed, 1.6)
		m.tick(ctx)

		calls := exec.recorded()
		require.Len(t, calls, 2)
		assert.Equal(t, 50.0, calls[1].pct)
		assert.Equal(t, "EXITS_COMPLETE", calls[1].reason)

		view, _ := m.PositionStatus("pos-1")
		assert.Equal(t, StatusClosed, view.Status)
	})

	t.Run("a failed sell leaves the step pending for the next tick", func(t *testing.T) {
		m, feed, exec := newTestMonitor()
		exec.failFirst = 1
		track(m, 0.85, aggressiveSteps())

		setPrice(feed, 1.6)
		m.tick(ctx)
		require.Empty(t, exec.recorded())
		view, _ := m.PositionStatus("pos-1")
		assert.Equal(t, 100.0, view.RemainingPct)

		m.tick(ctx)
		calls := exec.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, 30.0, calls[0].pct)
	})
}

func TestTickPlumbing(t *testing.T) {
	ctx := context.Background()

	t.Run("a missing price skips the position untouched", func(t *testing.T) {
		m, _, exec := newTestMonitor()
		track(m, 0.85, aggressiveSteps())

		m.tick(ctx)
		assert.Empty(t, exec.recorded())
		view, _ := m.PositionStatus("pos-1")
		assert.Equal(t, StatusActive, view.Status)
	})

	t.Run("stats reflect closed positions and stop losses", func(t *testing.T) {
		m, feed, _ := newTestMonitor()
		track(m, 0.85, nil)

		setPrice(feed, 0.5)
		m.tick(ctx)

		stats := m.CurrentStats()
		assert.Zero(t, stats.ActivePositions)
		assert.Equal(t, 1, stats.ClosedPositions)
		assert.Equal(t, uint64(1), stats.StopLosses)
		assert.Equal(t, uint64(1), stats.SellsExecuted)
		assert.Equal(t, uint64(1), stats.Ticks)
		assert.False(t, m.LastTick().IsZero())
	})
}

func TestClosedRetention(t *testing.T) {
	ctx := context.Background()

	feed := pricefeed.NewStub()
	exec := &stubExecutor{}
	m := New(Config{
		TickInterval:          time.Second,
		TrailingActivationPct: 10,
		TrailingDistancePct:   5,
		ClosedRetention:       2,
	}, feed, exec)

	tokens := map[string]common.Address{
		"pos-a": common.HexToAddress("0xaaa0000000000000000000000000000000000001"),
		"pos-b": common.HexToAddress("0xaaa0000000000000000000000000000000000002"),
		"pos-c": common.HexToAddress("0xaaa0000000000000000000000000000000000003"),
	}
	for id, token := range tokens {
		m.Track(id, token, "ethereum", "TEST",
			decimal.NewFromInt(1), decimal.NewFromFloat(0.85), nil)
	}

	// Close one per tick so prune sees a strict close order.
	for _, id := range []string{"pos-a", "pos-b", "pos-c"} {
		feed.Set(tokens[id].Hex(), "ethereum", decimal.NewFromFloat(0.5))
		m.tick(ctx)
	}

	// The oldest close falls out of the window; the rest stay queryable.
	_, ok := m.PositionStatus("pos-a")
	assert.False(t, ok)
	for _, id := range []string{"pos-b", "pos-c"} {
		view, ok := m.PositionStatus(id)
		require.True(t, ok, id)
		assert.Equal(t, StatusClosed, view.Status)
	}

	stats := m.CurrentStats()
	assert.Zero(t, stats.ActivePositions)
	assert.Equal(t, 3, stats.ClosedPositions)
}
