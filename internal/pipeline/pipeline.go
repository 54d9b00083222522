package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/rughunter/rughunter/internal/ml"
	"github.com/rughunter/rughunter/internal/monitor"
	"github.com/rughunter/rughunter/internal/paper"
	"github.com/rughunter/rughunter/internal/pricefeed"
	"github.com/rughunter/rughunter/internal/recommend"
	"github.com/rughunter/rughunter/internal/risk"
	"github.com/rughunter/rughunter/internal/scanner"
)

// ---------------------------------------------------------------------------
// Pipeline — detection consumer: recommend -> risk gate -> paper buy -> monitor
// ---------------------------------------------------------------------------

// WindowSource supplies recent trade activity for a token. Scanners see
// pairs at birth, so a live source is optional; without one the engine
// scores on an empty window.
type WindowSource interface {
	Window(token common.Address, chain string) ml.TradeWindow
}

// DetectionRecord is the fully processed detection fanned out to
// subscribers. PositionID is set only when a paper buy was executed.
type DetectionRecord struct {
	Detection      scanner.Detection         `json:"detection"`
	Recommendation *recommend.Recommendation `json:"recommendation"`
	PositionID     string                    `json:"position_id,omitempty"`
	ProcessedAt    time.Time                 `json:"processed_at"`
}

// Config controls the consumer.
type Config struct {
	// SubscriberBuffer sizes each subscriber channel; slow subscribers
	// drop records rather than stall the consumer.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{SubscriberBuffer: 32}
}

// Stats are running totals for the consumer.
type Stats struct {
	Processed     int64 `json:"processed"`
	BuysExecuted  int64 `json:"buys_executed"`
	BuysRejected  int64 `json:"buys_rejected"`
	Errors        int64 `json:"errors"`
	ClosedApplied int64 `json:"closed_applied"`
}

// Pipeline drains the detection queue, runs the recommendation engine,
// gates buys through the risk manager, executes accepted buys on the
// paper engine, and hands the position to the monitor. One consumer
// goroutine; per-token failures are logged and skipped.
type Pipeline struct {
	config  Config
	engine  *recommend.Engine
	risk    *risk.Manager
	broker  *paper.Engine
	mon     *monitor.Monitor
	windows WindowSource
	in      <-chan scanner.Detection

	seeder pricefeed.Seeder

	mu   sync.Mutex
	subs []chan DetectionRecord

	processed     atomic.Int64
	buys          atomic.Int64
	rejected      atomic.Int64
	errors        atomic.Int64
	closedApplied atomic.Int64
	lastActiveNs  atomic.Int64
}

// New wires the consumer. windows may be nil.
func New(
	config Config,
	engine *recommend.Engine,
	riskMgr *risk.Manager,
	broker *paper.Engine,
	mon *monitor.Monitor,
	windows WindowSource,
	in <-chan scanner.Detection,
) *Pipeline {
	if config.SubscriberBuffer == 0 {
		config.SubscriberBuffer = 32
	}
	return &Pipeline{
		config:  config,
		engine:  engine,
		risk:    riskMgr,
		broker:  broker,
		mon:     mon,
		windows: windows,
		in:      in,
	}
}

// SeedFeed primes the given feed with each detection's discovery price,
// so paper fills can execute before any live tick arrives.
func (p *Pipeline) SeedFeed(seeder pricefeed.Seeder) {
	p.seeder = seeder
}

// Run consumes detections and closed-position events until the context
// ends or the detection channel closes.
func (p *Pipeline) Run(ctx context.Context) error {
	log.Info().Msg("pipeline: started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.consumeClosed(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pipeline: stopped")
			return nil
		case d, ok := <-p.in:
			if !ok {
				log.Info().Msg("pipeline: detection queue closed")
				return nil
			}
			p.process(ctx, d)
		}
	}
}

// process handles one detection end to end. A panic in any stage is
// contained to that token.
func (p *Pipeline) process(ctx context.Context, d scanner.Detection) {
	defer func() {
		if r := recover(); r != nil {
			p.errors.Add(1)
			log.Error().
				Str("token", d.Profile.Token.Hex()).
				Str("chain", d.Profile.Chain).
				Interface("panic", r).
				Msg("pipeline: detection handler panic recovered")
		}
	}()

	p.processed.Add(1)
	p.lastActiveNs.Store(time.Now().UnixNano())

	if p.seeder != nil && d.Profile.PriceUSD.IsPositive() {
		p.seeder.Set(d.Profile.Token.Hex(), d.Profile.Chain, d.Profile.PriceUSD)
	}

	var window ml.TradeWindow
	if p.windows != nil {
		window = p.windows.Window(d.Profile.Token, d.Profile.Chain)
	}

	rec := p.engine.Recommend(d.Profile, window)

	record := DetectionRecord{
		Detection:      d,
		Recommendation: rec,
		ProcessedAt:    time.Now(),
	}

	log.Info().
		Str("token", d.Profile.Token.Hex()).
		Str("symbol", d.Profile.Symbol).
		Str("chain", d.Profile.Chain).
		Str("action", string(rec.Plan.Action)).
		Float64("score", rec.Final.Overall).
		Float64("confidence", rec.Final.Confidence).
		Msg("pipeline: detection processed")

	if rec.Plan.Action.IsBuy() {
		record.PositionID = p.tryBuy(ctx, d, rec)
	}

	p.publish(record)
}

// tryBuy runs the risk gate and, when it passes, executes the paper buy
// and registers the position with the monitor. Returns the position id,
// empty when no position opened.
func (p *Pipeline) tryBuy(ctx context.Context, d scanner.Detection, rec *recommend.Recommendation) string {
	sizeUSD, _ := rec.Plan.Sizing.AmountUSD.Float64()

	if p.risk.CircuitBreakerActive() {
		p.rejected.Add(1)
		log.Warn().
			Str("token", d.Profile.Token.Hex()).
			Msg("pipeline: buy skipped, circuit breaker active")
		return ""
	}

	ok, reason := p.risk.CanOpenPosition(sizeUSD)
	if !ok {
		p.rejected.Add(1)
		log.Info().
			Str("token", d.Profile.Token.Hex()).
			Str("reason", reason).
			Msg("pipeline: buy rejected by risk gate")
		return ""
	}

	res, err := p.broker.Buy(ctx, d.Profile.Token, d.Profile.Chain, rec.Plan.Sizing.AmountNative)
	if err != nil {
		p.errors.Add(1)
		log.Error().
			Str("token", d.Profile.Token.Hex()).
			Err(err).
			Msg("pipeline: paper buy failed")
		return ""
	}

	p.risk.PositionOpened()
	p.buys.Add(1)

	steps := make([]monitor.ExitStep, 0, len(rec.Plan.ExitSteps))
	for _, s := range rec.Plan.ExitSteps {
		steps = append(steps, monitor.ExitStep{
			Price:       s.Price,
			SellPercent: s.SellPercent,
			Reason:      s.Reason,
		})
	}

	p.mon.Track(res.PositionID, d.Profile.Token, d.Profile.Chain, d.Profile.Symbol,
		res.EntryPrice, rec.Plan.StopLoss.Price, steps)

	log.Info().
		Str("position_id", res.PositionID).
		Str("token", d.Profile.Token.Hex()).
		Str("action", string(rec.Plan.Action)).
		Str("entry_price", res.EntryPrice.String()).
		Msg("pipeline: position opened and tracked")

	return res.PositionID
}

// consumeClosed feeds finished positions back into the risk manager.
func (p *Pipeline) consumeClosed(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case closed := <-p.mon.Closed():
			p.risk.RecordTrade(closed.RealizedPnLUSD)
			p.risk.PositionClosed()
			p.closedApplied.Add(1)
			log.Info().
				Str("position_id", closed.ID).
				Str("reason", closed.Reason).
				Str("pnl_usd", closed.RealizedPnLUSD.StringFixed(2)).
				Msg("pipeline: closed position applied to risk state")
		}
	}
}

// Subscribe returns a channel receiving every processed detection.
// Slow subscribers lose records, never block the consumer.
func (p *Pipeline) Subscribe() <-chan DetectionRecord {
	ch := make(chan DetectionRecord, p.config.SubscriberBuffer)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Pipeline) publish(record DetectionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- record:
		default:
			log.Warn().
				Str("token", record.Detection.Profile.Token.Hex()).
				Msg("pipeline: subscriber full, record dropped")
		}
	}
}

// LastActivity reports when the consumer last handled a detection.
func (p *Pipeline) LastActivity() time.Time {
	ns := p.lastActiveNs.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// CurrentStats returns running totals.
func (p *Pipeline) CurrentStats() Stats {
	return Stats{
		Processed:     p.processed.Load(),
		BuysExecuted:  p.buys.Load(),
		BuysRejected:  p.rejected.Load(),
		Errors:        p.errors.Load(),
		ClosedApplied: p.closedApplied.Load(),
	}
}
