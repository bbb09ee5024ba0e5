package trader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"AstroSwap/internal/fund"
	"AstroSwap/internal/gate"
	"AstroSwap/internal/gateway"
	"AstroSwap/internal/metrics"
	"AstroSwap/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

type fixedScorer struct{ score int }

func (s *fixedScorer) Evaluate(now time.Time) *model.AnalysisResult {
	a := &model.AnalysisResult{
		Score:     s.score,
		MaxScore:  model.MaxScore,
		Factors:   []model.Factor{{Kind: model.FactorNeutral, Label: "fixed", Points: s.score}},
		Timestamp: now,
	}
	switch {
	case s.score >= 60:
		a.Tier, a.Confidence, a.BuyImmediately = model.TierStrongBuy, model.ConfidenceHigh, true
	case s.score >= 40:
		a.Tier, a.Confidence = model.TierWeakBuy, model.ConfidenceMedium
	default:
		a.Tier, a.Confidence = model.TierHold, model.ConfidenceHigh
	}
	return a
}

type recordingHub struct {
	mu     sync.Mutex
	events []model.Event
}

func (h *recordingHub) Broadcast(evt model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
}

func (h *recordingHub) types() []model.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.EventType, len(h.events))
	for i, e := range h.events {
		out[i] = e.Type
	}
	return out
}

func (h *recordingHub) last(t model.EventType) model.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Type == t {
			return h.events[i]
		}
	}
	return model.Event{}
}

type fixture struct {
	o      *Orchestrator
	ex     *gateway.MockExchange
	hub    *recordingHub
	gate   *gate.Gate
	scorer *fixedScorer
}

func newFixture(t *testing.T, score int, balance string) *fixture {
	t.Helper()
	f := &fixture{
		ex:     gateway.NewMockExchange(decimal.RequireFromString("0.02"), decimal.RequireFromString(balance)),
		hub:    &recordingHub{},
		gate:   gate.New(time.Hour),
		scorer: &fixedScorer{score: score},
	}
	f.o = New(Config{
		Wallet:   "client|test",
		TokenIn:  "GALA|Unit|none|none",
		TokenOut: "GUSDC|Unit|none|none",
	}, Deps{
		Scorer:   f.scorer,
		Exchange: f.ex,
		Gate:     f.gate,
		Policy:   fund.NewPolicy(decimal.Zero, fund.DefaultReserveFloor, decimal.Zero),
		Hub:      f.hub,
		Metrics:  metrics.New(""),
	})
	f.o.SetClock(func() time.Time { return t0 })
	return f
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		tier     model.Tier
		score    int
		gateOpen bool
		want     Action
	}{
		{"strong buy, gate open", model.TierStrongBuy, 65, true, ActionLiveTrade},
		{"strong buy, gate closed", model.TierStrongBuy, 65, false, ActionWaitGate},
		{"strong buy wins over low score", model.TierStrongBuy, 10, false, ActionWaitGate},
		{"weak buy", model.TierWeakBuy, 45, true, ActionWatch},
		{"low score defensive", model.TierHold, 29, true, ActionDefensive},
		{"low score ignores gate", model.TierHold, 29, false, ActionDefensive},
		{"threshold holds", model.TierHold, 30, true, ActionHold},
		{"negative score", model.TierHold, -15, false, ActionDefensive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(&model.AnalysisResult{Tier: tt.tier, Score: tt.score}, tt.gateOpen)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunCycle_StrongBuyGateOpen(t *testing.T) {
	f := newFixture(t, 65, "10")

	action := f.o.RunCycle(context.Background())

	assert.Equal(t, ActionLiveTrade, action)
	trades := f.o.RecentTrades(0)
	require.Len(t, trades, 1)
	assert.Equal(t, model.TradeLive, trades[0].Kind)
	assert.True(t, decimal.NewFromInt(1).Equal(trades[0].AmountIn))
	assert.Equal(t, "GALA|Unit|none|none", trades[0].TokenIn)
	require.NotNil(t, trades[0].Score)
	assert.Equal(t, 65, *trades[0].Score)
	assert.Equal(t, string(model.TierStrongBuy), trades[0].Recommendation)
	assert.NotEmpty(t, trades[0].ID)
	assert.NotEmpty(t, trades[0].Receipt)

	last, ok := f.gate.LastTrade()
	require.True(t, ok)
	assert.Equal(t, t0, last)

	assert.Equal(t, []model.EventType{model.EventAnalysis, model.EventTrade, model.EventStatus}, f.hub.types())

	require.Len(t, f.ex.Swaps, 1)
	assert.True(t, decimal.RequireFromString("0.019").Equal(f.ex.Swaps[0].AmountOutMinimum))

	status := f.hub.last(model.EventStatus).Data.(model.StatusPayload)
	require.NotNil(t, status.CanTrade)
	assert.False(t, *status.CanTrade)
	assert.Equal(t, "60m 0s", status.NextTradeTime)
}

func TestRunCycle_StrongBuyGateClosed(t *testing.T) {
	f := newFixture(t, 65, "10")
	f.gate.RecordTrade(t0.Add(-10 * time.Minute))

	action := f.o.RunCycle(context.Background())

	assert.Equal(t, ActionWaitGate, action)
	assert.Empty(t, f.o.RecentTrades(0))
	assert.Equal(t, 0, f.ex.SwapCount())
	last, _ := f.gate.LastTrade()
	assert.Equal(t, t0.Add(-10*time.Minute), last)

	assert.Equal(t, []model.EventType{model.EventAnalysis, model.EventStatus}, f.hub.types())
	status := f.hub.last(model.EventStatus).Data.(model.StatusPayload)
	assert.Equal(t, "50m 0s", status.NextTradeTime)
	assert.Contains(t, status.Message, "50m 0s")
}

func TestRunCycle_DefensiveSwap(t *testing.T) {
	f := newFixture(t, 25, "6")
	// A recent live trade does not block the defensive path.
	f.gate.RecordTrade(t0.Add(-time.Minute))

	action := f.o.RunCycle(context.Background())

	assert.Equal(t, ActionDefensive, action)
	trades := f.o.RecentTrades(0)
	require.Len(t, trades, 1)
	assert.Equal(t, model.TradeDefensiveSwap, trades[0].Kind)
	assert.True(t, decimal.NewFromInt(1).Equal(trades[0].AmountIn))
	assert.Equal(t, model.RecommendationDefensiveSwap, trades[0].Recommendation)

	assert.Equal(t, []model.EventType{model.EventAnalysis, model.EventTrade, model.EventDefensiveAction}, f.hub.types())
	d := f.hub.last(model.EventDefensiveAction).Data.(model.DefensiveAction)
	assert.True(t, decimal.NewFromInt(5).Equal(d.FinalBalance))
	assert.Equal(t, 25, d.Score)

	bal, err := f.ex.Balance(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(bal))

	// Defensive swaps are not gated, so the gate keeps its earlier trade.
	last, _ := f.gate.LastTrade()
	assert.Equal(t, t0.Add(-time.Minute), last)
}

func TestRunCycle_DefensiveThreshold(t *testing.T) {
	f29 := newFixture(t, 29, "10")
	assert.Equal(t, ActionDefensive, f29.o.RunCycle(context.Background()))
	assert.Equal(t, 1, f29.ex.SwapCount())

	f30 := newFixture(t, 30, "10")
	assert.Equal(t, ActionHold, f30.o.RunCycle(context.Background()))
	assert.Equal(t, 0, f30.ex.SwapCount())
	assert.Equal(t, []model.EventType{model.EventAnalysis}, f30.hub.types())
}

func TestRunCycle_DefensiveNoop(t *testing.T) {
	f := newFixture(t, 25, "5.05")

	assert.Equal(t, ActionDefensive, f.o.RunCycle(context.Background()))
	assert.Empty(t, f.o.RecentTrades(0))
	assert.Equal(t, []model.EventType{model.EventAnalysis}, f.hub.types())
}

func TestRunCycle_FailedExecution(t *testing.T) {
	f := newFixture(t, 65, "10")
	f.ex.SwapErr = errors.New("price moved: slippage tolerance exceeded")

	assert.Equal(t, ActionLiveTrade, f.o.RunCycle(context.Background()))

	assert.Empty(t, f.o.RecentTrades(0))
	_, traded := f.gate.LastTrade()
	assert.False(t, traded)
	assert.True(t, f.gate.CanTrade(t0))

	assert.Equal(t, []model.EventType{model.EventAnalysis, model.EventError}, f.hub.types())
	p := f.hub.last(model.EventError).Data.(model.ErrorPayload)
	assert.Equal(t, model.KindSlippageExceeded, p.Kind)
	assert.Equal(t, "trade_execution", p.Context)

	// The next eligible tick retries.
	f.ex.SwapErr = nil
	assert.Equal(t, ActionLiveTrade, f.o.RunCycle(context.Background()))
	assert.Len(t, f.o.RecentTrades(0), 1)
}

func TestRunCycle_QuoteFailureIsExternal(t *testing.T) {
	f := newFixture(t, 25, "8")
	f.ex.QuoteErr = errors.New("connection reset")

	f.o.RunCycle(context.Background())

	p := f.hub.last(model.EventError).Data.(model.ErrorPayload)
	assert.Equal(t, model.KindExternalService, p.Kind)
	assert.Equal(t, "defensive_swap", p.Context)
	assert.Equal(t, "5", p.Reserve)
}

func TestRunCycle_LiveInsufficientBalance(t *testing.T) {
	f := newFixture(t, 70, "5.5")

	f.o.RunCycle(context.Background())

	assert.Equal(t, 0, f.ex.SwapCount())
	p := f.hub.last(model.EventError).Data.(model.ErrorPayload)
	assert.Equal(t, model.KindInsufficientBalance, p.Kind)
	assert.Equal(t, "trade_preparation", p.Context)
	assert.Equal(t, "5.5", p.Balance)
	assert.Equal(t, "6", p.Required)
}

func TestRunCycle_NeverBreachesReserve(t *testing.T) {
	reserve := fund.DefaultReserveFloor
	for _, score := range []int{25, 65} {
		for b := 0.0; b <= 12; b += 0.25 {
			f := newFixture(t, score, decimal.NewFromFloat(b).String())
			f.o.RunCycle(context.Background())
			if f.ex.SwapCount() == 0 {
				continue
			}
			bal, _ := f.ex.Balance(context.Background(), "", "")
			assert.True(t, bal.GreaterThanOrEqual(reserve), "score %d balance %.2f left %s", score, b, bal)
		}
	}
}

func TestTick_SkipsWhileCycleInFlight(t *testing.T) {
	f := newFixture(t, 35, "10")

	f.o.cycleMu.Lock()
	assert.False(t, f.o.Tick(context.Background()))
	f.o.cycleMu.Unlock()

	assert.True(t, f.o.Tick(context.Background()))
	assert.Equal(t, []model.EventType{model.EventAnalysis}, f.hub.types())
}

func TestForceAnalysis_DoesNotTrade(t *testing.T) {
	f := newFixture(t, 80, "10")

	a, err := f.o.ForceAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80, a.Score)
	assert.Same(t, a, f.o.Latest())
	assert.Equal(t, 0, f.ex.SwapCount())
	assert.Equal(t, []model.EventType{model.EventAnalysis}, f.hub.types())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.o.ForceAnalysis(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTestTrade(t *testing.T) {
	f := newFixture(t, 0, "10")

	err := f.o.TestTrade(context.Background())
	assert.ErrorIs(t, err, model.ErrConfigurationMissing)

	require.NoError(t, f.o.ResolvePair(context.Background()))
	require.NoError(t, f.o.TestTrade(context.Background()))

	trades := f.o.RecentTrades(0)
	require.Len(t, trades, 1)
	assert.Equal(t, model.TradeTest, trades[0].Kind)
	assert.True(t, decimal.RequireFromString("0.5").Equal(trades[0].AmountIn))
	assert.Nil(t, trades[0].Score)
	assert.Equal(t, model.EventTrade, f.hub.last(model.EventTrade).Type)

	// A test trade does not touch the gate.
	assert.True(t, f.gate.CanTrade(t0))
}

func TestTestTrade_RespectsReserve(t *testing.T) {
	f := newFixture(t, 0, "5.2")
	require.NoError(t, f.o.ResolvePair(context.Background()))

	err := f.o.TestTrade(context.Background())
	assert.ErrorIs(t, err, model.ErrInsufficientBalance)
	assert.Equal(t, 0, f.ex.SwapCount())
	p := f.hub.last(model.EventError).Data.(model.ErrorPayload)
	assert.Equal(t, "test_trade", p.Context)
	assert.Equal(t, "5.5", p.Required)
}

func TestImmediateTest(t *testing.T) {
	f := newFixture(t, 0, "10")
	require.NoError(t, f.o.ResolvePair(context.Background()))
	require.NoError(t, f.o.ImmediateTest(context.Background()))

	trades := f.o.RecentTrades(0)
	require.Len(t, trades, 1)
	assert.Equal(t, model.TradeImmediateTest, trades[0].Kind)
	assert.Equal(t, model.RecommendationImmediateTest, trades[0].Recommendation)
	assert.True(t, decimal.NewFromInt(1).Equal(trades[0].AmountIn))
}

func TestResolvePair(t *testing.T) {
	f := newFixture(t, 0, "10")
	assert.False(t, f.o.Resolved())

	f.ex.QuoteErr = errors.New("pool not found")
	assert.Error(t, f.o.ResolvePair(context.Background()))
	assert.False(t, f.o.Resolved())

	f.ex.QuoteErr = nil
	require.NoError(t, f.o.ResolvePair(context.Background()))
	assert.True(t, f.o.Resolved())

	empty := New(Config{}, Deps{Exchange: f.ex, Metrics: metrics.New("")})
	assert.ErrorIs(t, empty.ResolvePair(context.Background()), model.ErrConfigurationMissing)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, 65, "20")
	f.o.SetRunningSource(func() bool { return true })

	snap := f.o.Snapshot().Data.(model.StatusPayload)
	assert.True(t, snap.IsRunning)
	assert.Nil(t, snap.CurrentAnalysis)
	assert.Empty(t, snap.TradeHistory)
	assert.Equal(t, "now", snap.NextTradeTime)

	f.o.RunCycle(context.Background())

	snap = f.o.Snapshot().Data.(model.StatusPayload)
	require.NotNil(t, snap.CurrentAnalysis)
	assert.Equal(t, 65, snap.CurrentAnalysis.Score)
	assert.Len(t, snap.TradeHistory, 1)
	require.NotNil(t, snap.LastTradeTime)
	assert.Equal(t, t0, *snap.LastTradeTime)
}

func TestRecentTrades_LimitsAndCopies(t *testing.T) {
	f := newFixture(t, 25, "100")
	for i := 0; i < 12; i++ {
		f.ex.SetBalance(decimal.NewFromInt(10))
		f.o.RunCycle(context.Background())
	}

	all := f.o.RecentTrades(0)
	require.Len(t, all, 12)
	recent := f.o.RecentTrades(SnapshotTrades)
	require.Len(t, recent, SnapshotTrades)
	assert.Equal(t, all[2].ID, recent[0].ID)

	recent[0].ID = "mutated"
	assert.NotEqual(t, "mutated", f.o.RecentTrades(SnapshotTrades)[0].ID)
}

func TestRunCycle_PlainTextReceiptStaysEncodable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/quote":
			w.Write([]byte(`{"outTokenAmount":"0.02","feeTier":3000}`))
		case "/v1/balance":
			w.Write([]byte(`{"balance":"10"}`))
		case "/v1/swap":
			w.Write([]byte("submitted tx 0xabc"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newFixture(t, 65, "10")
	ex := gateway.NewHTTPExchange(srv.URL, "", "")
	ex.Backoff = time.Millisecond
	f.o.Exchange = ex

	assert.Equal(t, ActionLiveTrade, f.o.RunCycle(context.Background()))

	trades := f.o.RecentTrades(0)
	require.Len(t, trades, 1)
	assert.JSONEq(t, `"submitted tx 0xabc"`, string(trades[0].Receipt))

	_, err := json.Marshal(f.hub.last(model.EventTrade))
	require.NoError(t, err)
	_, err = json.Marshal(f.o.Snapshot())
	require.NoError(t, err)
}

func TestNew_DefaultsMetrics(t *testing.T) {
	o := New(Config{TokenIn: "A", TokenOut: "B"}, Deps{
		Scorer:   &fixedScorer{score: 45},
		Exchange: gateway.NewMockExchange(decimal.RequireFromString("0.02"), decimal.NewFromInt(10)),
		Gate:     gate.New(time.Hour),
		Policy:   fund.NewPolicy(decimal.Zero, fund.DefaultReserveFloor, decimal.Zero),
		Hub:      &recordingHub{},
	})
	require.NotNil(t, o.Metrics)

	assert.NotPanics(t, func() {
		assert.Equal(t, ActionWatch, o.RunCycle(context.Background()))
	})
}
