package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rughunter/rughunter/internal/evm"
	"github.com/rughunter/rughunter/internal/honeypot"
	"github.com/rughunter/rughunter/internal/security"
)

// ---------------------------------------------------------------------------
// Chain Scanner — block-window polling for new liquidity pairs
// ---------------------------------------------------------------------------

const (
	// Block batches are capped per cycle to bound RPC load per poll.
	maxBlocksPerCycle = 10

	// Consecutive cycle failures before the chain's scanner stops.
	maxConsecutiveFailures = 5
)

// Factory identifies one DEX factory contract to watch.
type Factory struct {
	Name    string         `json:"name"`
	Address common.Address `json:"address"`
}

// Config configures one chain's scanner.
type Config struct {
	Chain           string        `yaml:"chain"`
	ScanInterval    time.Duration `yaml:"scan_interval"`
	MinLiquidityUSD float64       `yaml:"min_liquidity_usd"`
}

// DefaultConfig returns scan defaults.
func DefaultConfig(chain string) Config {
	return Config{
		Chain:           chain,
		ScanInterval:    3 * time.Second,
		MinLiquidityUSD: 5000,
	}
}

// Detection is emitted for every token that survives dedup, the native
// pairing filter, the liquidity floor, and security scoring.
type Detection struct {
	Profile    *evm.TokenProfile    `json:"profile"`
	Assessment *security.Assessment `json:"assessment"`
	Honeypot   honeypot.Result      `json:"honeypot"`
	Links      map[string]string    `json:"links"`
}

// Status is the point-in-time state of one chain's scan loop.
type Status struct {
	Chain               string `json:"chain"`
	Running             bool   `json:"running"`
	LastScannedBlock    uint64 `json:"last_scanned_block"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	TerminalError       string `json:"terminal_error,omitempty"`
}

// Stats are running totals for one chain's scanner.
type Stats struct {
	BlocksScanned  int64 `json:"blocks_scanned"`
	PairsSeen      int64 `json:"pairs_seen"`
	PairsSkipped   int64 `json:"pairs_skipped"`
	Detections     int64 `json:"detections"`
}

// Scanner polls one chain for new pairs and pushes detections downstream.
// Scanners for different chains share only the SeenSet.
type Scanner struct {
	config        Config
	factories     []Factory
	wrappedNative common.Address

	reader   evm.ChainReader
	builder  *ProfileBuilder
	honeypot honeypot.Checker
	checker  *security.Checker
	seen     *SeenSet
	out      chan<- Detection

	mu            sync.Mutex
	running       bool
	lastScanned   uint64
	cycleFailures int
	terminalErr   string

	blocksScanned atomic.Int64
	pairsSeen     atomic.Int64
	pairsSkipped  atomic.Int64
	detections    atomic.Int64
}

// New creates a scanner for one chain.
func New(
	config Config,
	factories []Factory,
	wrappedNative common.Address,
	reader evm.ChainReader,
	builder *ProfileBuilder,
	hp honeypot.Checker,
	checker *security.Checker,
	seen *SeenSet,
	out chan<- Detection,
) *Scanner {
	if config.ScanInterval == 0 {
		config.ScanInterval = 3 * time.Second
	}
	return &Scanner{
		config:        config,
		factories:     factories,
		wrappedNative: wrappedNative,
		reader:        reader,
		builder:       builder,
		honeypot:      hp,
		checker:       checker,
		seen:          seen,
		out:           out,
	}
}

// Run scans forward from the current height until ctx is cancelled or the
// chain accumulates five consecutive cycle failures. Historical blocks are
// never backfilled.
func (s *Scanner) Run(ctx context.Context) error {
	start, err := s.reader.BlockNumber(ctx)
	if err != nil {
		s.recordTerminal(fmt.Sprintf("initial height fetch failed: %v", err))
		return fmt.Errorf("scanner %s: initial height: %w", s.config.Chain, err)
	}

	s.mu.Lock()
	s.running = true
	s.lastScanned = start
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Info().
		Str("chain", s.config.Chain).
		Uint64("start_block", start).
		Int("factories", len(s.factories)).
		Float64("min_liquidity_usd", s.config.MinLiquidityUSD).
		Msg("scanner: starting")

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("chain", s.config.Chain).Msg("scanner: stopped")
			return nil
		case <-ticker.C:
		}

		if err := s.scanCycle(ctx); err != nil {
			s.mu.Lock()
			s.cycleFailures++
			failures := s.cycleFailures
			s.mu.Unlock()

			log.Error().
				Str("chain", s.config.Chain).
				Int("consecutive_failures", failures).
				Err(err).
				Msg("scanner: cycle failed")

			if failures >= maxConsecutiveFailures {
				s.recordTerminal(fmt.Sprintf("connection lost after %d consecutive failures: %v", failures, err))
				return fmt.Errorf("scanner %s: too many consecutive failures: %w", s.config.Chain, err)
			}
			continue
		}

		s.mu.Lock()
		s.cycleFailures = 0
		s.mu.Unlock()
	}
}

// scanCycle processes the next batch of unseen blocks.
func (s *Scanner) scanCycle(ctx context.Context) error {
	current, err := s.reader.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("block height: %w", err)
	}

	s.mu.Lock()
	last := s.lastScanned
	s.mu.Unlock()

	if current <= last {
		return nil
	}

	end := last + maxBlocksPerCycle
	if end > current {
		end = current
	}

	for block := last + 1; block <= end; block++ {
		if err := s.processBlock(ctx, block); err != nil {
			return err
		}
		s.blocksScanned.Add(1)
	}

	s.mu.Lock()
	s.lastScanned = current
	s.mu.Unlock()
	return nil
}

// processBlock extracts pair events from every watched factory in one block.
func (s *Scanner) processBlock(ctx context.Context, block uint64) error {
	for _, factory := range s.factories {
		events, err := s.reader.FilterPairCreated(ctx, factory.Address, block)
		if err != nil {
			return fmt.Errorf("factory %s block %d: %w", factory.Name, block, err)
		}
		for _, ev := range events {
			s.handleEvent(ctx, factory.Name, ev)
		}
	}
	return nil
}

// handleEvent filters, profiles, and scores one PairCreated event.
// Per-event failures never abort the scan loop.
func (s *Scanner) handleEvent(ctx context.Context, dex string, ev evm.PairCreated) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("chain", s.config.Chain).
				Str("pair", ev.Pair.Hex()).
				Interface("panic", r).
				Msg("scanner: event handler panic recovered")
		}
	}()

	s.pairsSeen.Add(1)

	// Only native-quoted pairs are tracked.
	var token common.Address
	switch s.wrappedNative {
	case ev.Token0:
		token = ev.Token1
	case ev.Token1:
		token = ev.Token0
	default:
		s.pairsSkipped.Add(1)
		return
	}

	if !s.seen.Add(s.config.Chain, token.Hex()) {
		s.pairsSkipped.Add(1)
		return
	}

	profile := s.builder.Build(ctx, s.config.Chain, dex, token, ev.Pair, s.wrappedNative, ev.BlockNumber)

	// Liquidity floor: discard silently.
	if profile.LiquidityUSD.LessThan(decimal.NewFromFloat(s.config.MinLiquidityUSD)) {
		s.pairsSkipped.Add(1)
		log.Debug().
			Str("chain", s.config.Chain).
			Str("token", token.Hex()).
			Str("liquidity_usd", profile.LiquidityUSD.StringFixed(0)).
			Msg("scanner: below liquidity floor")
		return
	}

	hpResult := s.honeypot.Check(ctx, token.Hex(), s.config.Chain)
	profile.BuyTaxPct = hpResult.BuyTaxPct
	profile.SellTaxPct = hpResult.SellTaxPct
	profile.CanBuy = hpResult.CanBuy
	profile.CanSell = hpResult.CanSell

	assessment := s.checker.Assess(profile)

	detection := Detection{
		Profile:    profile,
		Assessment: assessment,
		Honeypot:   hpResult,
		Links:      BuildLinks(s.config.Chain, token.Hex(), ev.Pair.Hex()),
	}

	s.detections.Add(1)
	log.Info().
		Str("chain", s.config.Chain).
		Str("token", token.Hex()).
		Str("symbol", profile.Symbol).
		Str("dex", dex).
		Str("liquidity_usd", profile.LiquidityUSD.StringFixed(0)).
		Float64("risk_score", assessment.Score).
		Str("risk_level", string(assessment.Level)).
		Msg("scanner: NEW TOKEN DETECTED")

	select {
	case s.out <- detection:
	case <-ctx.Done():
	}
}

func (s *Scanner) recordTerminal(msg string) {
	s.mu.Lock()
	s.terminalErr = msg
	s.mu.Unlock()
}

// Status returns the scan loop state.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Chain:               s.config.Chain,
		Running:             s.running,
		LastScannedBlock:    s.lastScanned,
		ConsecutiveFailures: s.cycleFailures,
		TerminalError:       s.terminalErr,
	}
}

// Stats returns running totals.
func (s *Scanner) Stats() Stats {
	return Stats{
		BlocksScanned: s.blocksScanned.Load(),
		PairsSeen:     s.pairsSeen.Load(),
		PairsSkipped:  s.pairsSkipped.Load(),
		Detections:    s.detections.Load(),
	}
}
