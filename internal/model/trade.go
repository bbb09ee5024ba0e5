package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TradeKind indicates which path produced a trade.
type TradeKind string

const (
	TradeImmediateTest TradeKind = "immediate_test"
	TradeTest          TradeKind = "test"
	TradeLive          TradeKind = "live"
	TradeDefensiveSwap TradeKind = "defensive_swap"
)

// Recommendation labels stored on records that were not driven by a tier.
const (
	RecommendationImmediateTest = "IMMEDIATE_TEST"
	RecommendationTest          = "TEST"
	RecommendationDefensiveSwap = "DEFENSIVE_SWAP"
)

// TradeRecord is one successfully executed trade. Records are append-only.
type TradeRecord struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Kind           TradeKind       `json:"type"`
	AmountIn       decimal.Decimal `json:"amountIn"`
	TokenIn        string          `json:"tokenIn"`
	AmountOut      decimal.Decimal `json:"amountOut"`
	TokenOut       string          `json:"tokenOut"`
	Score          *int            `json:"score"` // nil when no analysis drove the trade
	Recommendation string          `json:"recommendation"`
	FeeTier        int             `json:"feeTier"`
	Reserved       decimal.Decimal `json:"reserved"`
	Receipt        json.RawMessage `json:"transaction,omitempty"`
}
