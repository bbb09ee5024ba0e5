package trader

import "AstroSwap/internal/model"

// DefensiveThreshold is the score below which holdings are divested.
const DefensiveThreshold = 30

// Action is what one decision cycle chose to do.
type Action string

const (
	ActionLiveTrade Action = "live_trade"
	ActionWaitGate  Action = "wait_gate"
	ActionDefensive Action = "defensive"
	ActionWatch     Action = "watch"
	ActionHold      Action = "hold"
)

// Decide picks the action for an analysis. The first matching rule wins:
// strong buy trades if the gate is open and waits otherwise, a low score
// divests regardless of tier, weak buy only watches, anything else holds.
func Decide(a *model.AnalysisResult, gateOpen bool) Action {
	switch {
	case a.Tier == model.TierStrongBuy && gateOpen:
		return ActionLiveTrade
	case a.Tier == model.TierStrongBuy:
		return ActionWaitGate
	case a.Score < DefensiveThreshold:
		return ActionDefensive
	case a.Tier == model.TierWeakBuy:
		return ActionWatch
	default:
		return ActionHold
	}
}
