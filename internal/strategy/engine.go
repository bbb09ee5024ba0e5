package strategy

import (
	"time"

	"AstroSwap/internal/model"
)

// Tiers maps score thresholds to recommendations, highest first.
var Tiers = []struct {
	MinScore   int
	Tier       model.Tier
	Confidence model.Confidence
}{
	{60, model.TierStrongBuy, model.ConfidenceHigh},
	{40, model.TierWeakBuy, model.ConfidenceMedium},
}

// DefaultTier applies to scores below every threshold.
var DefaultTier = struct {
	Tier       model.Tier
	Confidence model.Confidence
}{model.TierHold, model.ConfidenceHigh}

// mapTier maps a total score to its tier and confidence.
func mapTier(score int) (model.Tier, model.Confidence) {
	for _, t := range Tiers {
		if score >= t.MinScore {
			return t.Tier, t.Confidence
		}
	}
	return DefaultTier.Tier, DefaultTier.Confidence
}

// Engine scores instants against a retrograde ephemeris.
type Engine struct {
	Ephemeris Ephemeris
}

// NewEngine creates an Engine. A nil ephemeris uses DefaultEphemeris.
func NewEngine(eph Ephemeris) *Engine {
	if eph == nil {
		eph = DefaultEphemeris()
	}
	return &Engine{Ephemeris: eph}
}

var defaultEngine = NewEngine(nil)

// Evaluate scores now with the default ephemeris.
func Evaluate(now time.Time) *model.AnalysisResult {
	return defaultEngine.Evaluate(now)
}

// Evaluate computes the six independent factors for now and sums them.
// Calendar fields are read in now's location.
func (e *Engine) Evaluate(now time.Time) *model.AnalysisResult {
	phase := moonPhaseAt(now)
	retro, known := e.Ephemeris.Retrograde(now)

	factors := []model.Factor{
		scoreMoonPhase(phase),
		scoreWeekday(now.Weekday()),
		scorePlanetaryHour(planetaryHour(now.Hour(), now.Weekday())),
		scoreNumerology(now.Day()),
		scoreRetrograde(retro, known),
		scoreSeason(seasonOf(now.Month())),
	}

	score := 0
	for _, f := range factors {
		score += f.Points
	}
	tier, confidence := mapTier(score)

	return &model.AnalysisResult{
		Score:          score,
		MaxScore:       model.MaxScore,
		Factors:        factors,
		Tier:           tier,
		Confidence:     confidence,
		BuyImmediately: tier == model.TierStrongBuy,
		MoonPhase:      string(phase),
		Timestamp:      now,
	}
}
