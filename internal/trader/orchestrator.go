package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"AstroSwap/internal/fund"
	"AstroSwap/internal/gate"
	"AstroSwap/internal/gateway"
	"AstroSwap/internal/metrics"
	"AstroSwap/internal/model"
	"AstroSwap/internal/recorder"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotTrades is how many recent trades a status snapshot carries.
const SnapshotTrades = 10

// Scorer produces the analysis for an instant.
type Scorer interface {
	Evaluate(now time.Time) *model.AnalysisResult
}

// Broadcaster pushes events to observers.
type Broadcaster interface {
	Broadcast(evt model.Event)
}

// Config holds the trading parameters that are not part of the sizing policy.
type Config struct {
	Wallet          string
	TokenIn         string
	TokenOut        string
	Slippage        decimal.Decimal // fraction, 0.05 = 5%
	TestAmount      decimal.Decimal
	ImmediateAmount decimal.Decimal
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Scorer   Scorer
	Exchange gateway.Exchange
	Gate     *gate.Gate
	Policy   *fund.Policy
	Hub      Broadcaster
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
}

// Orchestrator runs decision cycles and owns the trade history and the
// latest analysis. Business operations are serialised on cycleMu.
type Orchestrator struct {
	cfg Config
	Deps

	now     func() time.Time
	running func() bool

	cycleMu sync.Mutex

	mu       sync.RWMutex
	latest   *model.AnalysisResult
	history  []model.TradeRecord
	resolved bool
}

// New creates an Orchestrator. Zero amounts in cfg fall back to 5% slippage,
// a 0.5 unit test trade and a 1 unit immediate test.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Slippage.IsZero() {
		cfg.Slippage = decimal.RequireFromString("0.05")
	}
	if cfg.TestAmount.IsZero() {
		cfg.TestAmount = decimal.RequireFromString("0.5")
	}
	if cfg.ImmediateAmount.IsZero() {
		cfg.ImmediateAmount = decimal.NewFromInt(1)
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New("")
	}
	return &Orchestrator{
		cfg:     cfg,
		Deps:    deps,
		now:     time.Now,
		running: func() bool { return false },
	}
}

// SetClock replaces the wall clock.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// SetRunningSource tells the orchestrator how to read the scheduler state
// reported in status events.
func (o *Orchestrator) SetRunningSource(fn func() bool) { o.running = fn }

// ResolvePair verifies the configured token pair by quoting one unit.
// Start refuses to run until this has succeeded.
func (o *Orchestrator) ResolvePair(ctx context.Context) error {
	if o.cfg.TokenIn == "" || o.cfg.TokenOut == "" {
		return fmt.Errorf("token pair not configured: %w", model.ErrConfigurationMissing)
	}
	log.Printf("[INFO] verifying token pair %s -> %s", o.cfg.TokenIn, o.cfg.TokenOut)
	q, err := o.Exchange.Quote(ctx, o.cfg.TokenIn, o.cfg.TokenOut, decimal.NewFromInt(1))
	if err != nil {
		return fmt.Errorf("verify pair %s/%s: %w", o.cfg.TokenIn, o.cfg.TokenOut, err)
	}
	log.Printf("[INFO] token pair verified: 1 %s = %s %s (fee tier %d)", o.cfg.TokenIn, q.AmountOut, o.cfg.TokenOut, q.FeeTier)

	o.mu.Lock()
	o.resolved = true
	o.mu.Unlock()
	return nil
}

// Resolved reports whether ResolvePair has succeeded.
func (o *Orchestrator) Resolved() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.resolved
}

// Tick runs a cycle unless one is already in flight, in which case the
// tick is dropped. It reports whether a cycle ran.
func (o *Orchestrator) Tick(ctx context.Context) bool {
	if !o.cycleMu.TryLock() {
		log.Println("[WARN] previous cycle still running, skipping tick")
		o.Metrics.CyclesSkipped.Inc()
		return false
	}
	defer o.cycleMu.Unlock()
	o.runCycle(ctx)
	return true
}

// RunCycle waits for any in-flight cycle and then runs one.
func (o *Orchestrator) RunCycle(ctx context.Context) Action {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()
	return o.runCycle(ctx)
}

func (o *Orchestrator) runCycle(ctx context.Context) Action {
	start := time.Now()
	now := o.now()

	analysis := o.analyse(now)
	action := Decide(analysis, o.Gate.CanTrade(now))

	switch action {
	case ActionLiveTrade:
		log.Printf("[INFO] %s (score %d): executing live trade", analysis.Tier, analysis.Score)
		o.executeLive(ctx, analysis)
	case ActionWaitGate:
		o.waitGate(now, analysis)
	case ActionDefensive:
		log.Printf("[WARN] weak signals (score %d), taking defensive action", analysis.Score)
		o.executeDefensive(ctx, analysis)
	case ActionWatch:
		log.Printf("[INFO] %s (score %d): signals mixed, waiting for a clearer window", analysis.Tier, analysis.Score)
	default:
		log.Printf("[INFO] %s (score %d): no action", analysis.Tier, analysis.Score)
	}

	o.Metrics.CyclesTotal.WithLabelValues(string(action)).Inc()
	o.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
	o.Metrics.LastCycleEpoch.Set(float64(now.Unix()))
	return action
}

// analyse evaluates, stores, records and broadcasts the analysis for now.
func (o *Orchestrator) analyse(now time.Time) *model.AnalysisResult {
	a := o.Scorer.Evaluate(now)

	o.mu.Lock()
	o.latest = a
	o.mu.Unlock()

	logAnalysis(a)
	o.Metrics.LastScore.Set(float64(a.Score))
	if err := o.Recorder.RecordAnalysis(a); err != nil {
		log.Printf("[ERROR] record analysis: %v", err)
	}
	o.Hub.Broadcast(model.Event{Type: model.EventAnalysis, Data: a})
	return a
}

func logAnalysis(a *model.AnalysisResult) {
	log.Printf("[INFO] analysis at %s:", a.Timestamp.Format(time.RFC3339))
	for _, f := range a.Factors {
		log.Printf("[INFO]   %-8s %+4d  %s: %s", f.Kind, f.Points, f.Label, f.Description)
	}
	log.Printf("[INFO]   score %d/%d -> %s (%s)", a.Score, a.MaxScore, a.Tier, a.Confidence)
}

func (o *Orchestrator) executeLive(ctx context.Context, a *model.AnalysisResult) {
	balance, err := o.Exchange.Balance(ctx, o.cfg.Wallet, o.cfg.TokenIn)
	if err != nil {
		o.fail("trade_preparation", fmt.Errorf("read balance: %w", err), model.ErrorPayload{})
		return
	}
	amount, err := o.Policy.SizeNormalTrade(balance)
	if err != nil {
		log.Printf("[WARN] short by %s %s for a live trade", o.Policy.Shortfall(balance), o.cfg.TokenIn)
		o.fail("trade_preparation", err, model.ErrorPayload{
			Balance:  balance.String(),
			Required: o.Policy.Required(o.Policy.MaxPerTrade).String(),
			Reserve:  o.Policy.ReserveFloor.String(),
		})
		return
	}

	quote, receipt, err := o.execute(ctx, amount)
	if err != nil {
		o.fail("trade_execution", err, model.ErrorPayload{})
		return
	}

	executedAt := o.now()
	o.Gate.RecordTrade(executedAt)
	score := a.Score
	rec := o.appendTrade(model.TradeRecord{
		Timestamp:      executedAt,
		Kind:           model.TradeLive,
		AmountIn:       amount,
		AmountOut:      quote.AmountOut,
		Score:          &score,
		Recommendation: string(a.Tier),
		FeeTier:        quote.FeeTier,
		Reserved:       o.Policy.ReserveFloor,
		Receipt:        json.RawMessage(receipt),
	})
	log.Printf("[INFO] live trade done: %s %s -> ~%s %s, next window in %s",
		rec.AmountIn, rec.TokenIn, rec.AmountOut, rec.TokenOut, gate.FormatRemaining(o.Gate.Window()))

	o.Hub.Broadcast(model.Event{Type: model.EventTrade, Data: rec})
	o.Hub.Broadcast(model.Event{Type: model.EventStatus, Data: o.gateStatus(o.now(), "")})
}

func (o *Orchestrator) waitGate(now time.Time, a *model.AnalysisResult) {
	wait := gate.FormatRemaining(o.Gate.TimeUntilNextTrade(now))
	msg := fmt.Sprintf("%s but the trade window is closed, next trade in %s", a.Tier, wait)
	log.Printf("[INFO] %s", msg)
	o.Hub.Broadcast(model.Event{Type: model.EventStatus, Data: o.gateStatus(now, msg)})
}

func (o *Orchestrator) executeDefensive(ctx context.Context, a *model.AnalysisResult) {
	balance, err := o.Exchange.Balance(ctx, o.cfg.Wallet, o.cfg.TokenIn)
	if err != nil {
		o.fail("defensive_swap", fmt.Errorf("read balance: %w", err), model.ErrorPayload{})
		return
	}
	amount, err := o.Policy.SizeDefensiveTrade(balance)
	if errors.Is(err, model.ErrSizingNoop) {
		log.Printf("[INFO] defensive swap skipped: %v", err)
		return
	}
	if err != nil {
		o.fail("defensive_swap", err, model.ErrorPayload{})
		return
	}

	quote, receipt, err := o.execute(ctx, amount)
	if err != nil {
		o.fail("defensive_swap", err, model.ErrorPayload{
			Action:  "Protect assets during weak signals",
			Reserve: o.Policy.ReserveFloor.String(),
		})
		return
	}

	score := a.Score
	rec := o.appendTrade(model.TradeRecord{
		Timestamp:      o.now(),
		Kind:           model.TradeDefensiveSwap,
		AmountIn:       amount,
		AmountOut:      quote.AmountOut,
		Score:          &score,
		Recommendation: model.RecommendationDefensiveSwap,
		FeeTier:        quote.FeeTier,
		Reserved:       o.Policy.ReserveFloor,
		Receipt:        json.RawMessage(receipt),
	})
	log.Printf("[INFO] defensive swap done: %s %s -> ~%s %s, %s %s kept in reserve",
		rec.AmountIn, rec.TokenIn, rec.AmountOut, rec.TokenOut, o.Policy.ReserveFloor, rec.TokenIn)

	o.Hub.Broadcast(model.Event{Type: model.EventTrade, Data: rec})
	o.Hub.Broadcast(model.Event{Type: model.EventDefensiveAction, Data: model.DefensiveAction{
		Action:       "DEFENSIVE_SWAP_EXECUTED",
		Reason:       "Weak cosmic signals",
		Amount:       amount,
		Reserved:     o.Policy.ReserveFloor,
		Score:        a.Score,
		FinalBalance: balance.Sub(amount),
	}})
}

// ForceAnalysis evaluates and broadcasts without trading.
func (o *Orchestrator) ForceAnalysis(ctx context.Context) (*model.AnalysisResult, error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.analyse(o.now()), nil
}

// TestTrade sells the configured test amount outside the trade window.
// The reserve still applies.
func (o *Orchestrator) TestTrade(ctx context.Context) error {
	return o.fixedTrade(ctx, "test_trade", o.cfg.TestAmount, model.TradeTest, model.RecommendationTest)
}

// ImmediateTest sells one unit right after boot to prove connectivity.
func (o *Orchestrator) ImmediateTest(ctx context.Context) error {
	return o.fixedTrade(ctx, "immediate_test", o.cfg.ImmediateAmount, model.TradeImmediateTest, model.RecommendationImmediateTest)
}

func (o *Orchestrator) fixedTrade(ctx context.Context, label string, want decimal.Decimal, kind model.TradeKind, recommendation string) error {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	if !o.Resolved() {
		return fmt.Errorf("%s: %w", label, model.ErrConfigurationMissing)
	}
	log.Printf("[INFO] %s: selling %s %s", label, want, o.cfg.TokenIn)

	balance, err := o.Exchange.Balance(ctx, o.cfg.Wallet, o.cfg.TokenIn)
	if err != nil {
		err = fmt.Errorf("read balance: %w", err)
		o.fail(label, err, model.ErrorPayload{})
		return err
	}
	amount, err := o.Policy.SizeFixedTrade(balance, want)
	if err != nil {
		o.fail(label, err, model.ErrorPayload{
			Balance:  balance.String(),
			Required: o.Policy.Required(want).String(),
			Reserve:  o.Policy.ReserveFloor.String(),
		})
		return err
	}
	quote, receipt, err := o.execute(ctx, amount)
	if err != nil {
		o.fail(label, err, model.ErrorPayload{})
		return err
	}

	rec := o.appendTrade(model.TradeRecord{
		Timestamp:      o.now(),
		Kind:           kind,
		AmountIn:       amount,
		AmountOut:      quote.AmountOut,
		Recommendation: recommendation,
		FeeTier:        quote.FeeTier,
		Reserved:       o.Policy.ReserveFloor,
		Receipt:        json.RawMessage(receipt),
	})
	log.Printf("[INFO] %s done: %s %s -> ~%s %s", label, rec.AmountIn, rec.TokenIn, rec.AmountOut, rec.TokenOut)
	o.Hub.Broadcast(model.Event{Type: model.EventTrade, Data: rec})
	return nil
}

// execute quotes amount and submits the swap with the slippage floor.
func (o *Orchestrator) execute(ctx context.Context, amount decimal.Decimal) (gateway.Quote, gateway.Receipt, error) {
	quote, err := o.Exchange.Quote(ctx, o.cfg.TokenIn, o.cfg.TokenOut, amount)
	if err != nil {
		return gateway.Quote{}, nil, fmt.Errorf("quote %s %s: %w", amount, o.cfg.TokenIn, err)
	}
	minOut := quote.AmountOut.Mul(decimal.NewFromInt(1).Sub(o.cfg.Slippage))
	log.Printf("[INFO] quote: %s %s -> %s %s (min %s, fee tier %d)",
		amount, o.cfg.TokenIn, quote.AmountOut, o.cfg.TokenOut, minOut, quote.FeeTier)

	receipt, err := o.Exchange.Swap(ctx, gateway.SwapRequest{
		TokenIn:          o.cfg.TokenIn,
		TokenOut:         o.cfg.TokenOut,
		FeeTier:          quote.FeeTier,
		ExactIn:          amount,
		AmountOutMinimum: minOut,
		Wallet:           o.cfg.Wallet,
	})
	if err != nil {
		return quote, nil, fmt.Errorf("swap %s %s: %w", amount, o.cfg.TokenIn, err)
	}
	return quote, receipt, nil
}

// fail classifies, logs, counts, records and broadcasts a trade-path failure.
func (o *Orchestrator) fail(where string, err error, payload model.ErrorPayload) {
	kind := model.Classify(err)
	switch kind {
	case model.KindInsufficientBalance:
		log.Printf("[WARN] %s: insufficient balance: %v", where, err)
	case model.KindSlippageExceeded:
		log.Printf("[WARN] %s: price moved beyond slippage tolerance: %v", where, err)
	default:
		log.Printf("[ERROR] %s: %v", where, err)
	}

	o.Metrics.FailuresTotal.WithLabelValues(where, string(kind)).Inc()
	if rerr := o.Recorder.RecordFailure(&recorder.FailureEvent{Context: where, Kind: kind, Message: err.Error()}); rerr != nil {
		log.Printf("[ERROR] record failure: %v", rerr)
	}

	payload.Message = err.Error()
	payload.Kind = kind
	payload.Context = where
	o.Hub.Broadcast(model.Event{Type: model.EventError, Data: payload})
}

func (o *Orchestrator) appendTrade(rec model.TradeRecord) model.TradeRecord {
	rec.ID = uuid.NewString()
	rec.TokenIn = o.cfg.TokenIn
	rec.TokenOut = o.cfg.TokenOut
	rec.Receipt = json.RawMessage(gateway.NewReceipt(rec.Receipt))

	o.mu.Lock()
	o.history = append(o.history, rec)
	o.mu.Unlock()

	o.Metrics.TradesTotal.WithLabelValues(string(rec.Kind)).Inc()
	if err := o.Recorder.RecordTrade(&rec); err != nil {
		log.Printf("[ERROR] record trade: %v", err)
	}
	return rec
}

// Latest returns the most recent analysis, or nil before the first one.
func (o *Orchestrator) Latest() *model.AnalysisResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest
}

// RecentTrades returns a copy of the last n trades, oldest first.
func (o *Orchestrator) RecentTrades(n int) []model.TradeRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if n <= 0 || n > len(o.history) {
		n = len(o.history)
	}
	out := make([]model.TradeRecord, n)
	copy(out, o.history[len(o.history)-n:])
	return out
}

// Status reports the full bot state at now.
func (o *Orchestrator) Status(now time.Time) model.StatusPayload {
	s := o.gateStatus(now, "")
	s.CurrentAnalysis = o.Latest()
	s.TradeHistory = o.RecentTrades(SnapshotTrades)
	return s
}

// Snapshot is the status event sent to a newly connected observer.
func (o *Orchestrator) Snapshot() model.Event {
	return model.Event{Type: model.EventStatus, Data: o.Status(o.now())}
}

func (o *Orchestrator) gateStatus(now time.Time, msg string) model.StatusPayload {
	canTrade := o.Gate.CanTrade(now)
	s := model.StatusPayload{
		IsRunning:     o.running(),
		CanTrade:      &canTrade,
		NextTradeTime: gate.FormatRemaining(o.Gate.TimeUntilNextTrade(now)),
		Message:       msg,
	}
	if last, ok := o.Gate.LastTrade(); ok {
		s.LastTradeTime = &last
	}
	return s
}
