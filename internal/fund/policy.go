package fund

import (
	"fmt"

	"AstroSwap/internal/model"

	"github.com/shopspring/decimal"
)

// Defaults in units of the tradeable asset.
var (
	DefaultMaxPerTrade  = decimal.NewFromInt(1)
	DefaultReserveFloor = decimal.NewFromInt(5)
	DefaultMinDefensive = decimal.RequireFromString("0.1")
)

// Policy sizes trades so the wallet never drops below the reserve floor.
type Policy struct {
	MaxPerTrade  decimal.Decimal
	ReserveFloor decimal.Decimal
	MinDefensive decimal.Decimal
}

// NewPolicy creates a Policy. A zero trade size or defensive minimum falls
// back to the default; a zero reserve floor is kept.
func NewPolicy(maxPerTrade, reserveFloor, minDefensive decimal.Decimal) *Policy {
	if maxPerTrade.IsZero() {
		maxPerTrade = DefaultMaxPerTrade
	}
	if minDefensive.IsZero() {
		minDefensive = DefaultMinDefensive
	}
	return &Policy{MaxPerTrade: maxPerTrade, ReserveFloor: reserveFloor, MinDefensive: minDefensive}
}

// Required returns the balance needed to sell amount and keep the reserve.
func (p *Policy) Required(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(p.ReserveFloor)
}

// SizeNormalTrade returns the fixed per-trade amount.
func (p *Policy) SizeNormalTrade(balance decimal.Decimal) (decimal.Decimal, error) {
	return p.SizeFixedTrade(balance, p.MaxPerTrade)
}

// SizeFixedTrade returns amount if the balance covers it plus the reserve.
func (p *Policy) SizeFixedTrade(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	need := p.Required(amount)
	if balance.LessThan(need) {
		return decimal.Zero, fmt.Errorf("%w: have %s, need %s (%s + %s reserve)",
			model.ErrInsufficientBalance, balance, need, amount, p.ReserveFloor)
	}
	return amount, nil
}

// SizeDefensiveTrade returns everything above the reserve floor. Balances at or
// under the floor, and surpluses not above the worthwhile minimum, are no-ops.
func (p *Policy) SizeDefensiveTrade(balance decimal.Decimal) (decimal.Decimal, error) {
	if balance.LessThanOrEqual(p.ReserveFloor) {
		return decimal.Zero, fmt.Errorf("%w: balance %s does not exceed reserve %s",
			model.ErrSizingNoop, balance, p.ReserveFloor)
	}
	amount := balance.Sub(p.ReserveFloor)
	if amount.LessThanOrEqual(p.MinDefensive) {
		return decimal.Zero, fmt.Errorf("%w: %s available, minimum is above %s",
			model.ErrSizingNoop, amount, p.MinDefensive)
	}
	return amount, nil
}

// Shortfall returns how much is missing for a normal trade, or zero.
func (p *Policy) Shortfall(balance decimal.Decimal) decimal.Decimal {
	missing := p.Required(p.MaxPerTrade).Sub(balance)
	if missing.IsNegative() {
		return decimal.Zero
	}
	return missing
}
