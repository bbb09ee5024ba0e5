package recorder

import "AstroSwap/internal/model"

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *model.AnalysisResult) error { return nil }
func (n *NoopRecorder) RecordTrade(_ *model.TradeRecord) error       { return nil }
func (n *NoopRecorder) RecordFailure(_ *FailureEvent) error          { return nil }
func (n *NoopRecorder) RecordLifecycle(_ *LifecycleEvent) error      { return nil }
func (n *NoopRecorder) Close() error                                 { return nil }
