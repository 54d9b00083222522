package observability

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ---------------------------------------------------------------------------
// Health — periodic component checks aggregated into a system snapshot
// ---------------------------------------------------------------------------

// Level is a component health level.
type Level string

const (
	LevelHealthy   Level = "healthy"
	LevelDegraded  Level = "degraded"
	LevelUnhealthy Level = "unhealthy"
)

// Check probes one component.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is one component's report.
type ComponentHealth struct {
	Name        string         `json:"name"`
	Level       Level          `json:"level"`
	Message     string         `json:"message,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Details     map[string]any `json:"details,omitempty"`
}

// SystemHealth is the worst-of aggregate across every component.
type SystemHealth struct {
	Level      Level                      `json:"level"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"ts"`
	Uptime     time.Duration              `json:"uptime"`
}

// Alert is emitted when a component changes level.
type Alert struct {
	Level     string    `json:"level"` // info|warn|critical
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"ts"`
}

// Health runs registered checks on an interval and keeps the latest
// results for the status queries.
type Health struct {
	mu        sync.RWMutex
	checks    map[string]Check
	results   map[string]ComponentHealth
	startTime time.Time
	interval  time.Duration
	alertCh   chan Alert
}

// NewHealth creates a health aggregator checking at the given interval.
func NewHealth(interval time.Duration) *Health {
	return &Health{
		checks:    make(map[string]Check),
		results:   make(map[string]ComponentHealth),
		startTime: time.Now(),
		interval:  interval,
		alertCh:   make(chan Alert, 256),
	}
}

// Register adds a named check. Call before Run.
func (h *Health) Register(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes checks periodically until the context ends.
func (h *Health) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", h.interval).
		Msg("health: monitor started")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.runChecks(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("health: monitor stopped")
			return nil
		case <-ticker.C:
			h.runChecks(ctx)
		}
	}
}

// Snapshot runs every check now and returns the aggregate. Usable
// without the periodic loop.
func (h *Health) Snapshot(ctx context.Context) SystemHealth {
	h.runChecks(ctx)
	return h.aggregate()
}

// Alerts delivers level-transition alerts.
func (h *Health) Alerts() <-chan Alert {
	return h.alertCh
}

// Component returns the latest result for one component.
func (h *Health) Component(name string) (ComponentHealth, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result, ok := h.results[name]
	return result, ok
}

// runChecks probes every component and alerts on level transitions.
func (h *Health) runChecks(ctx context.Context) {
	h.mu.RLock()
	checks := make(map[string]Check, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()

	results := make(map[string]ComponentHealth, len(checks))
	for name, fn := range checks {
		result := fn(ctx)
		result.Name = name
		result.LastChecked = time.Now()
		results[name] = result
	}

	h.mu.Lock()
	previous := h.results
	h.results = results
	h.mu.Unlock()

	for name, cur := range results {
		prev, existed := previous[name]
		if !existed || prev.Level != cur.Level {
			h.emitAlert(name, cur)
		}
	}
}

func (h *Health) emitAlert(name string, result ComponentHealth) {
	var level string
	switch result.Level {
	case LevelUnhealthy:
		level = "critical"
	case LevelDegraded:
		level = "warn"
	default:
		level = "info"
	}

	msg := result.Message
	if msg == "" {
		msg = "level changed to " + string(result.Level)
	}

	if result.Level != LevelHealthy {
		log.Warn().
			Str("component", name).
			Str("level", string(result.Level)).
			Str("message", msg).
			Msg("health: component degraded")
	}

	select {
	case h.alertCh <- Alert{Level: level, Component: name, Message: msg, Timestamp: time.Now()}:
	default:
	}
}

// aggregate builds the worst-of system view from the stored results.
func (h *Health) aggregate() SystemHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	components := make(map[string]ComponentHealth, len(h.results))
	worst := LevelHealthy
	for name, result := range h.results {
		components[name] = result
		if severity(result.Level) > severity(worst) {
			worst = result.Level
		}
	}

	return SystemHealth{
		Level:      worst,
		Components: components,
		Timestamp:  time.Now(),
		Uptime:     time.Since(h.startTime),
	}
}

func severity(l Level) int {
	switch l {
	case LevelDegraded:
		return 1
	case LevelUnhealthy:
		return 2
	default:
		return 0
	}
}
