package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"AstroSwap/internal/api"
	"AstroSwap/internal/config"
	"AstroSwap/internal/fund"
	"AstroSwap/internal/gate"
	"AstroSwap/internal/gateway"
	"AstroSwap/internal/metrics"
	"AstroSwap/internal/notifier"
	"AstroSwap/internal/recorder"
	"AstroSwap/internal/scheduler"
	"AstroSwap/internal/strategy"
	"AstroSwap/internal/trader"

	"github.com/shopspring/decimal"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] AstroSwap starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	eph, err := cfg.Ephemeris()
	if err != nil {
		log.Fatalf("[FATAL] build ephemeris: %v", err)
	}

	// Init exchange
	var ex gateway.Exchange
	if cfg.Exchange.BaseURL != "" {
		ex = gateway.NewHTTPExchange(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Proxy)
	} else {
		ex = gateway.NewMockExchange(decimal.NewFromFloat(cfg.Exchange.MockPrice), decimal.NewFromFloat(cfg.Exchange.MockBalance))
	}
	log.Printf("[INFO] exchange: %s", ex.Name())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	m := metrics.New("astroswap")
	hub := notifier.NewHub(m)

	orch := trader.New(trader.Config{
		Wallet:     cfg.Wallet.Address,
		TokenIn:    cfg.Trading.TokenIn,
		TokenOut:   cfg.Trading.TokenOut,
		Slippage:   decimal.NewFromFloat(cfg.Trading.Slippage),
		TestAmount: decimal.NewFromFloat(cfg.Trading.TestTradeAmount),
	}, trader.Deps{
		Scorer:   strategy.NewEngine(eph),
		Exchange: ex,
		Gate:     gate.New(cfg.Trading.TradeWindow),
		Policy: fund.NewPolicy(
			decimal.NewFromFloat(cfg.Trading.MaxPerTrade),
			decimal.NewFromFloat(cfg.Reserve()),
			decimal.NewFromFloat(cfg.Trading.MinDefensiveAmount),
		),
		Hub:      hub,
		Recorder: rec,
		Metrics:  m,
	})
	hub.SetSnapshot(orch.Snapshot)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.ResolvePair(ctx); err != nil {
		log.Fatalf("[FATAL] resolve token pair: %v", err)
	}

	if cfg.Trading.ImmediateTest {
		log.Println("[INFO] immediate_test enabled, executing test trade now")
		if err := orch.ImmediateTest(ctx); err != nil {
			log.Printf("[WARN] immediate test failed, continuing: %v", err)
		}
	}

	sched := scheduler.NewScheduler(orch, hub, rec, m, cfg.CheckInterval())

	// Start Telegram mirror and polling
	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		tobs := notifier.NewTelegramObserver(tn)
		go tobs.Run(ctx)
		if err := hub.Register(tobs); err != nil {
			log.Printf("[WARN] register telegram observer: %v", err)
		}
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Start API server
	srv := api.NewServer(sched, orch, hub, m, cfg.Server.RateLimitPerMinute, cfg.Server.WSPath)
	go func() {
		if err := srv.ListenAndServe(ctx, cfg.Server.APIAddr); err != nil {
			log.Printf("[ERROR] %v", err)
		}
	}()

	if cfg.Trading.AutoStart {
		if err := sched.Start(ctx); err != nil {
			log.Printf("[WARN] auto start: %v", err)
		}
	} else {
		log.Println("[INFO] waiting for POST /api/start or /start to begin trading")
	}

	log.Println("[INFO] AstroSwap is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	if sched.Running() {
		sched.Stop()
	}
	cancel()
	log.Println("[INFO] AstroSwap stopped")
}
