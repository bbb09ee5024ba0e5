package model

import "time"

// MaxScore is the soft ceiling of the astrological score.
const MaxScore = 100

// FactorKind classifies a factor's influence on the score.
type FactorKind string

const (
	FactorPositive FactorKind = "positive"
	FactorNeutral  FactorKind = "neutral"
	FactorNegative FactorKind = "negative"
)

// Factor is a single itemised contribution to the score.
type Factor struct {
	Kind        FactorKind `json:"type"`
	Icon        string     `json:"icon"`
	Label       string     `json:"factor"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
}

// Tier is the recommendation bucket derived from the score.
type Tier string

const (
	TierStrongBuy Tier = "BUY - COSMIC ALIGNMENT"
	TierWeakBuy   Tier = "WEAK BUY"
	TierHold      Tier = "HOLD"
)

// Confidence accompanies a Tier.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// AnalysisResult is the output of one scoring pass. It must not be mutated after construction.
type AnalysisResult struct {
	Score          int        `json:"score"`
	MaxScore       int        `json:"maxScore"`
	Factors        []Factor   `json:"factors"`
	Tier           Tier       `json:"recommendation"`
	Confidence     Confidence `json:"confidence"`
	BuyImmediately bool       `json:"buyImmediately"`
	MoonPhase      string     `json:"moonPhase"`
	Timestamp      time.Time  `json:"timestamp"`
}

// FactorSum returns the sum of all factor points.
func (a *AnalysisResult) FactorSum() int {
	sum := 0
	for _, f := range a.Factors {
		sum += f.Points
	}
	return sum
}
