package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/rughunter/rughunter/internal/evm"
	"github.com/rughunter/rughunter/internal/monitor"
	"github.com/rughunter/rughunter/internal/pipeline"
	"github.com/rughunter/rughunter/internal/scanner"
)

// ---------------------------------------------------------------------------
// Component checks
// ---------------------------------------------------------------------------

// ScannerCheck reports one chain scanner's loop state.
func ScannerCheck(s *scanner.Scanner) Check {
	return func(_ context.Context) ComponentHealth {
		status := s.Status()
		stats := s.Stats()

		details := map[string]any{
			"chain":                status.Chain,
			"last_scanned_block":   status.LastScannedBlock,
			"consecutive_failures": status.ConsecutiveFailures,
			"blocks_scanned":       stats.BlocksScanned,
			"detections":           stats.Detections,
		}

		switch {
		case status.TerminalError != "":
			return ComponentHealth{
				Level:   LevelUnhealthy,
				Message: "scanner stopped: " + status.TerminalError,
				Details: details,
			}
		case !status.Running:
			return ComponentHealth{
				Level:   LevelUnhealthy,
				Message: "scan loop not running",
				Details: details,
			}
		case status.ConsecutiveFailures > 0:
			return ComponentHealth{
				Level:   LevelDegraded,
				Message: fmt.Sprintf("%d consecutive cycle failures", status.ConsecutiveFailures),
				Details: details,
			}
		}
		return ComponentHealth{Level: LevelHealthy, Details: details}
	}
}

// PoolCheck reports one chain's RPC endpoint pool: unhealthy when no
// endpoint is live, degraded when some are down.
func PoolCheck(p *evm.Pool) Check {
	return func(_ context.Context) ComponentHealth {
		status := p.Status()

		healthy := 0
		for _, ep := range status.Endpoints {
			if ep.Healthy {
				healthy++
			}
		}

		details := map[string]any{
			"chain":     status.Chain,
			"active":    status.Active,
			"endpoints": len(status.Endpoints),
			"healthy":   healthy,
		}

		switch {
		case len(status.Endpoints) == 0:
			return ComponentHealth{Level: LevelUnhealthy, Message: "no endpoints configured", Details: details}
		case healthy == 0:
			return ComponentHealth{Level: LevelUnhealthy, Message: "all rpc endpoints down", Details: details}
		case healthy < len(status.Endpoints):
			return ComponentHealth{
				Level:   LevelDegraded,
				Message: fmt.Sprintf("%d/%d endpoints healthy", healthy, len(status.Endpoints)),
				Details: details,
			}
		}
		return ComponentHealth{Level: LevelHealthy, Details: details}
	}
}

// MonitorCheck reports the position supervisor's liveness. With no open
// positions an idle loop is still expected to tick.
func MonitorCheck(m *monitor.Monitor, staleAfter time.Duration) Check {
	return func(_ context.Context) ComponentHealth {
		stats := m.CurrentStats()
		last := m.LastTick()

		details := map[string]any{
			"active_positions": stats.ActivePositions,
			"closed_positions": stats.ClosedPositions,
			"ticks":            stats.Ticks,
			"stop_losses":      stats.StopLosses,
		}

		switch {
		case last.IsZero():
			return ComponentHealth{Level: LevelDegraded, Message: "loop has not ticked yet", Details: details}
		case time.Since(last) > staleAfter:
			return ComponentHealth{
				Level:   LevelUnhealthy,
				Message: fmt.Sprintf("no tick for %s", time.Since(last).Round(time.Second)),
				Details: details,
			}
		}
		return ComponentHealth{Level: LevelHealthy, Details: details}
	}
}

// PipelineCheck reports the detection consumer. An idle consumer is
// healthy; sustained handler errors degrade it.
func PipelineCheck(p *pipeline.Pipeline) Check {
	return func(_ context.Context) ComponentHealth {
		stats := p.CurrentStats()

		details := map[string]any{
			"processed":     stats.Processed,
			"buys_executed": stats.BuysExecuted,
			"buys_rejected": stats.BuysRejected,
			"errors":        stats.Errors,
		}

		if stats.Errors > 0 && stats.Errors*2 > stats.Processed {
			return ComponentHealth{
				Level:   LevelDegraded,
				Message: fmt.Sprintf("%d/%d detections failed", stats.Errors, stats.Processed),
				Details: details,
			}
		}
		return ComponentHealth{Level: LevelHealthy, Details: details}
	}
}
