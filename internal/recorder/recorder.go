package recorder

import (
	"time"

	"AstroSwap/internal/model"
)

// FailureEvent records a caught trade-path failure.
type FailureEvent struct {
	Context string // "trade_execution", "defensive_swap", ...
	Kind    model.ErrorKind
	Message string
}

// LifecycleEvent records a scheduler transition.
type LifecycleEvent struct {
	Event     model.EventType // bot_started or bot_stopped
	Timestamp time.Time
}

// Recorder writes an audit trail. It is never read back into memory.
type Recorder interface {
	RecordAnalysis(a *model.AnalysisResult) error
	RecordTrade(tr *model.TradeRecord) error
	RecordFailure(evt *FailureEvent) error
	RecordLifecycle(evt *LifecycleEvent) error
	Close() error
}
