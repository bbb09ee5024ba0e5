package gateway

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Quote is the expected output of selling a given amount.
type Quote struct {
	AmountOut decimal.Decimal `json:"outTokenAmount"`
	FeeTier   int             `json:"feeTier"`
}

// SwapRequest describes an exact-input sell.
type SwapRequest struct {
	TokenIn          string          `json:"tokenIn"`
	TokenOut         string          `json:"tokenOut"`
	FeeTier          int             `json:"feeTier"`
	ExactIn          decimal.Decimal `json:"exactIn"`
	AmountOutMinimum decimal.Decimal `json:"amountOutMinimum"`
	Wallet           string          `json:"wallet"`
}

// Receipt is the opaque transaction result returned by the swap backend.
type Receipt json.RawMessage

// NewReceipt keeps a JSON body as is and quotes anything else as a JSON
// string, so a receipt always marshals.
func NewReceipt(raw []byte) Receipt {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return Receipt(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return Receipt(quoted)
}

// Quoter retrieves quotes for a token pair.
type Quoter interface {
	Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal) (Quote, error)
}

// Swapper submits swaps. Submissions are not safe to retry or cancel.
type Swapper interface {
	Swap(ctx context.Context, req SwapRequest) (Receipt, error)
}

// BalanceSource reports wallet holdings.
type BalanceSource interface {
	Balance(ctx context.Context, wallet, token string) (decimal.Decimal, error)
}

// Exchange bundles the collaborators the trader needs.
type Exchange interface {
	Quoter
	Swapper
	BalanceSource
	Name() string
}
