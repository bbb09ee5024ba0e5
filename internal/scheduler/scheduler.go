package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"AstroSwap/internal/metrics"
	"AstroSwap/internal/model"
	"AstroSwap/internal/notifier"
	"AstroSwap/internal/recorder"
	"AstroSwap/internal/trader"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the spacing between decision cycles.
const DefaultInterval = 60 * time.Second

var (
	ErrAlreadyRunning = errors.New("bot already running")
	ErrNotRunning     = errors.New("bot not running")
)

// Scheduler drives the orchestrator on a fixed interval between Start and Stop.
type Scheduler struct {
	orch     *trader.Orchestrator
	hub      trader.Broadcaster
	recorder recorder.Recorder
	metrics  *metrics.Metrics
	interval time.Duration

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewScheduler creates a stopped Scheduler and wires its running flag into
// the orchestrator's status reports.
func NewScheduler(orch *trader.Orchestrator, hub trader.Broadcaster, rec recorder.Recorder, m *metrics.Metrics, interval time.Duration) *Scheduler {
	if m == nil {
		m = metrics.New("")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Scheduler{
		orch:     orch,
		hub:      hub,
		recorder: rec,
		metrics:  m,
		interval: interval,
	}
	orch.SetRunningSource(s.Running)
	return s
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start runs one cycle immediately and then one per interval. Cycles use a
// context detached from ctx so that cancellation never aborts a trade.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("[WARN] scheduler already running")
		return ErrAlreadyRunning
	}
	if !s.orch.Resolved() {
		s.mu.Unlock()
		log.Println("[ERROR] token pair not resolved, cannot start")
		return fmt.Errorf("start scheduler: %w", model.ErrConfigurationMissing)
	}

	cycleCtx := context.WithoutCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Default()))))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		if s.Running() {
			s.orch.Tick(cycleCtx)
		}
	}))
	s.running = true
	s.cron = c
	s.mu.Unlock()

	log.Printf("[INFO] scheduler started, checking every %s", s.interval)
	s.lifecycle(model.EventBotStarted, 1)

	s.orch.RunCycle(cycleCtx)

	s.mu.Lock()
	if s.running && s.cron == c {
		c.Start()
	}
	s.mu.Unlock()
	return nil
}

// Stop cancels future cycles. A cycle already in flight runs to completion.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		log.Println("[WARN] scheduler not running")
		return ErrNotRunning
	}
	s.running = false
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	c.Stop()
	log.Println("[INFO] scheduler stopped")
	s.lifecycle(model.EventBotStopped, 0)
	return nil
}

func (s *Scheduler) lifecycle(evt model.EventType, running float64) {
	now := time.Now()
	s.metrics.BotRunning.Set(running)
	if err := s.recorder.RecordLifecycle(&recorder.LifecycleEvent{Event: evt, Timestamp: now}); err != nil {
		log.Printf("[ERROR] record lifecycle: %v", err)
	}
	s.hub.Broadcast(model.Event{Type: evt, Data: model.LifecyclePayload{Timestamp: now}})
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/status":
		status := s.orch.Status(time.Now())
		return notifier.FormatStatus(&status)
	case "/start":
		switch err := s.Start(ctx); {
		case err == nil:
			return "🚀 Bot started"
		case errors.Is(err, ErrAlreadyRunning):
			return "⚠️ Bot already running"
		default:
			return fmt.Sprintf("❌ Start failed: %v", err)
		}
	case "/stop":
		if err := s.Stop(); err != nil {
			return "⚠️ Bot not running"
		}
		return "🛑 Bot stopped"
	case "/analyze":
		a, err := s.orch.ForceAnalysis(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Analysis failed: %v", err)
		}
		return notifier.FormatAnalysis(a)
	case "/test":
		if err := s.orch.TestTrade(ctx); err != nil {
			return fmt.Sprintf("❌ Test trade failed: %v", err)
		}
		return "🧪 Test trade executed"
	default:
		return "Available commands:\n• /status\n• /start\n• /stop\n• /analyze\n• /test"
	}
}
