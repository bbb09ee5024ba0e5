package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a push-channel message.
type EventType string

const (
	EventStatus          EventType = "status"
	EventAnalysis        EventType = "analysis"
	EventTrade           EventType = "trade"
	EventDefensiveAction EventType = "defensive_action"
	EventError           EventType = "error"
	EventBotStarted      EventType = "bot_started"
	EventBotStopped      EventType = "bot_stopped"
)

// Event is the envelope delivered to observers.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// StatusPayload is the data of a status event and of the status endpoint.
// Fields that do not apply to a given status message are omitted.
type StatusPayload struct {
	IsRunning       bool            `json:"isRunning"`
	LastTradeTime   *time.Time      `json:"lastTradeTime,omitempty"`
	CanTrade        *bool           `json:"canTrade,omitempty"`
	NextTradeTime   string          `json:"nextTradeTime,omitempty"`
	CurrentAnalysis *AnalysisResult `json:"currentAnalysis"`
	TradeHistory    []TradeRecord   `json:"tradeHistory,omitempty"`
	Message         string          `json:"message,omitempty"`
}

// DefensiveAction is broadcast after a defensive swap executes.
type DefensiveAction struct {
	Action       string          `json:"action"`
	Reason       string          `json:"reason"`
	Amount       decimal.Decimal `json:"amount"`
	Reserved     decimal.Decimal `json:"reserved"`
	Score        int             `json:"score"`
	FinalBalance decimal.Decimal `json:"finalBalance"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message  string    `json:"message"`
	Kind     ErrorKind `json:"kind"`
	Context  string    `json:"context"`
	Action   string    `json:"action,omitempty"`
	Balance  string    `json:"currentBalance,omitempty"`
	Required string    `json:"requiredBalance,omitempty"`
	Reserve  string    `json:"reserve,omitempty"`
}

// LifecyclePayload is the data of bot_started and bot_stopped events.
type LifecyclePayload struct {
	Timestamp time.Time `json:"timestamp"`
}
