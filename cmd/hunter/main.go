package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rughunter/rughunter/internal/config"
	"github.com/rughunter/rughunter/internal/evm"
	"github.com/rughunter/rughunter/internal/honeypot"
	"github.com/rughunter/rughunter/internal/ml"
	"github.com/rughunter/rughunter/internal/monitor"
	"github.com/rughunter/rughunter/internal/observability"
	"github.com/rughunter/rughunter/internal/paper"
	"github.com/rughunter/rughunter/internal/pipeline"
	"github.com/rughunter/rughunter/internal/pricefeed"
	"github.com/rughunter/rughunter/internal/recommend"
	"github.com/rughunter/rughunter/internal/risk"
	"github.com/rughunter/rughunter/internal/scanner"
	"github.com/rughunter/rughunter/internal/security"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (empty = built-in defaults)")
	stubMode := flag.Bool("stub", false, "Use stub chain readers (no real RPC connections)")
	flag.Parse()

	// Optional .env for ${VAR} expansion in the config file.
	_ = godotenv.Load()

	var cfg *config.Config
	if *configPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	setupLogging(cfg.General)

	log.Info().Msg("=============================================")
	log.Info().Msg("Rug Hunter - Starting")
	log.Info().Msg("DETECT -> PROFILE -> SCORE -> RECOMMEND -> PAPER")
	log.Info().Msg("=============================================")

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Bool("stub_mode", *stubMode).
		Strs("chains", cfg.EnabledChains()).
		Str("preset", cfg.Security.Preset).
		Float64("min_liquidity_usd", cfg.Scanner.MinLiquidityUSD).
		Str("trading_mode", cfg.Trading.Mode).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Shared price sources. The stub feed is seeded by the pipeline with
	// discovery prices; a websocket feed, when configured, takes priority.
	native := pricefeed.NewStaticTable(cfg.NativePrices())
	stubFeed := pricefeed.NewStub()
	var feed pricefeed.Feed = stubFeed
	if cfg.Pricefeed.WSEndpoint != "" {
		wsConfig := pricefeed.DefaultWSFeedConfig()
		wsConfig.Endpoint = cfg.Pricefeed.WSEndpoint
		ws := pricefeed.NewWSFeed(wsConfig)
		go ws.Start(ctx)
		feed = pricefeed.NewFallback(ws, stubFeed)
		log.Info().Str("endpoint", cfg.Pricefeed.WSEndpoint).Msg("websocket price feed enabled")
	}

	// Trading stack: paper engine, position monitor, risk manager.
	broker := paper.NewEngine(paper.Config{
		SlippageBps: cfg.Trading.SlippageBps,
		Balances:    cfg.Trading.Balances,
	}, feed, native)

	mon := monitor.New(monitor.Config{
		TickInterval:          time.Duration(cfg.Trading.MonitorTickS) * time.Second,
		TrailingActivationPct: cfg.Trading.TrailingActivationPct,
		TrailingDistancePct:   cfg.Trading.TrailingDistancePct,
	}, feed, pipeline.NewPaperExecutor(broker))

	riskMgr := risk.NewManager(risk.Config{
		MaxPositionSizeUSD:     cfg.Risk.MaxPositionSizeUSD,
		MaxConcurrentPositions: cfg.Risk.MaxConcurrentPositions,
		MaxDailyLossUSD:        cfg.Risk.MaxDailyLossUSD,
		MaxTradesPerHour:       cfg.Risk.MaxTradesPerHour,
		MaxTradesPerDay:        cfg.Risk.MaxTradesPerDay,
		LossCooldown:           time.Duration(cfg.Risk.LossCooldownMin) * time.Minute,
		CircuitBreakerFor:      time.Duration(cfg.Risk.CircuitBreakerMin) * time.Minute,
	})

	// Scoring stack, shared by every chain.
	checker := security.NewChecker(security.Preset(cfg.Security.Preset))
	engine := recommend.NewEngine(ml.NewHeuristic())

	var hp honeypot.Checker
	if cfg.Honeypot.Enabled && !*stubMode {
		hp = honeypot.NewAPIClient(honeypot.APIConfig{
			BaseURL:  cfg.Honeypot.BaseURL,
			Timeout:  time.Duration(cfg.Honeypot.TimeoutS) * time.Second,
			CacheTTL: time.Duration(cfg.Honeypot.CacheTTLMin) * time.Minute,
		})
	} else {
		hp = honeypot.NewStatic(honeypot.UnknownResult("honeypot api disabled"))
	}

	// Per-chain scanners over a shared seen-set and detection queue.
	seen := scanner.NewSeenSet()
	detections := make(chan scanner.Detection, 256)
	health := observability.NewHealth(30 * time.Second)

	var wg sync.WaitGroup
	scanners := make(map[string]*scanner.Scanner)

	for _, chainName := range cfg.EnabledChains() {
		chain := cfg.Chains[chainName]

		var reader evm.ChainReader
		if *stubMode {
			stub := evm.NewStubReader()
			stub.SetHeight(1)
			reader = stub
			log.Info().Str("chain", chainName).Msg("chain reader: STUB mode")
		} else {
			pool := evm.NewPool(chainName, evm.PoolConfig{
				CallTimeout:  time.Duration(chain.CallTimeoutMs) * time.Millisecond,
				RetryDelay:   time.Duration(chain.RetryDelayMs) * time.Millisecond,
				RateLimitRPS: chain.RateLimitRPS,
			})
			for _, ep := range chain.Endpoints {
				if err := pool.Add(ep.URL, ep.Name, ep.Priority); err != nil {
					log.Warn().
						Str("chain", chainName).
						Str("rpc", ep.Name).
						Err(err).
						Msg("rpc endpoint unavailable, skipping")
				}
			}
			defer pool.Close()
			health.Register("pool-"+chainName, observability.PoolCheck(pool))
			reader = evm.NewLiveReader(pool, 3)
		}

		factories := make([]scanner.Factory, 0, len(chain.Factories))
		for _, f := range chain.Factories {
			factories = append(factories, scanner.Factory{
				Name:    f.Name,
				Address: common.HexToAddress(f.Address),
			})
		}

		sc := scanner.New(
			scanner.Config{
				Chain:           chainName,
				ScanInterval:    time.Duration(cfg.Scanner.ScanIntervalS) * time.Second,
				MinLiquidityUSD: cfg.Scanner.MinLiquidityUSD,
			},
			factories,
			common.HexToAddress(chain.WrappedNative),
			reader,
			scanner.NewProfileBuilder(reader, native),
			hp,
			checker,
			seen,
			detections,
		)
		scanners[chainName] = sc
		health.Register("scanner-"+chainName, observability.ScannerCheck(sc))

		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := sc.Run(ctx); err != nil {
				log.Error().Str("chain", name).Err(err).Msg("scanner terminated")
			}
		}(chainName)
	}

	// Detection consumer.
	pipe := pipeline.New(pipeline.DefaultConfig(), engine, riskMgr, broker, mon, nil, detections)
	pipe.SeedFeed(stubFeed)
	health.Register("monitor", observability.MonitorCheck(mon, 1*time.Minute))
	health.Register("pipeline", observability.PipelineCheck(pipe))

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = pipe.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = mon.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = health.Run(ctx)
	}()

	// Daily/weekly risk counter resets.
	wg.Add(1)
	go func() {
		defer wg.Done()
		daily := time.NewTicker(24 * time.Hour)
		weekly := time.NewTicker(7 * 24 * time.Hour)
		defer daily.Stop()
		defer weekly.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-daily.C:
				riskMgr.ResetDaily()
			case <-weekly.C:
				riskMgr.ResetWeekly()
			}
		}
	}()

	// Periodic stats logging.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evt := log.Info()
				for name, sc := range scanners {
					stats := sc.Stats()
					evt = evt.
						Int64(name+"_blocks", stats.BlocksScanned).
						Int64(name+"_detections", stats.Detections)
				}
				ps := pipe.CurrentStats()
				ms := mon.CurrentStats()
				rs := riskMgr.Snapshot()
				evt.
					Int64("processed", ps.Processed).
					Int64("buys", ps.BuysExecuted).
					Int64("rejected", ps.BuysRejected).
					Int("open_positions", ms.ActivePositions).
					Int("closed_positions", ms.ClosedPositions).
					Float64("daily_loss_usd", rs.DailyLossUSD).
					Int("loss_streak", rs.ConsecutiveLosses).
					Msg("[STATS]")
			}
		}
	}()

	log.Info().Msg("Rug Hunter - Running")
	log.Info().Msg("Pipeline: Scanner -> Profile -> Security -> Honeypot -> Recommend -> Risk Gate -> Paper -> Monitor")

	<-ctx.Done()

	log.Info().Msg("shutting down...")
	wg.Wait()

	finalPipe := pipe.CurrentStats()
	finalMon := mon.CurrentStats()
	log.Info().
		Int64("detections_processed", finalPipe.Processed).
		Int64("buys_executed", finalPipe.BuysExecuted).
		Int64("buys_rejected", finalPipe.BuysRejected).
		Int("positions_closed", finalMon.ClosedPositions).
		Uint64("stop_losses", finalMon.StopLosses).
		Msg("Rug Hunter - Final Statistics")

	log.Info().Msg("Rug Hunter - Shutdown complete")
}

func setupLogging(general config.GeneralConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "hunter").
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", "hunter").
			Str("instance", general.InstanceID).Logger()
	}
}
