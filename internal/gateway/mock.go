package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"AstroSwap/internal/model"

	"github.com/shopspring/decimal"
)

// MockExchange is an in-memory exchange for development and tests.
// Swaps debit the wallet balance at a fixed price.
type MockExchange struct {
	mu      sync.Mutex
	Price   decimal.Decimal
	FeeTier int
	balance decimal.Decimal

	QuoteErr   error
	SwapErr    error
	BalanceErr error

	Swaps []SwapRequest
}

// NewMockExchange creates a mock with the given price per unit and starting balance.
func NewMockExchange(price, balance decimal.Decimal) *MockExchange {
	return &MockExchange{Price: price, FeeTier: 10000, balance: balance}
}

func (m *MockExchange) Name() string { return "mock" }

// SetBalance overrides the wallet balance.
func (m *MockExchange) SetBalance(b decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = b
}

// SwapCount returns how many swaps succeeded.
func (m *MockExchange) SwapCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Swaps)
}

func (m *MockExchange) Quote(_ context.Context, _, _ string, amountIn decimal.Decimal) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QuoteErr != nil {
		return Quote{}, m.QuoteErr
	}
	return Quote{AmountOut: amountIn.Mul(m.Price), FeeTier: m.FeeTier}, nil
}

func (m *MockExchange) Balance(_ context.Context, _, _ string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BalanceErr != nil {
		return decimal.Zero, m.BalanceErr
	}
	return m.balance, nil
}

func (m *MockExchange) Swap(_ context.Context, req SwapRequest) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SwapErr != nil {
		return nil, m.SwapErr
	}
	if m.balance.LessThan(req.ExactIn) {
		return nil, fmt.Errorf("%w: wallet holds %s, swap needs %s", model.ErrInsufficientBalance, m.balance, req.ExactIn)
	}
	if out := req.ExactIn.Mul(m.Price); out.LessThan(req.AmountOutMinimum) {
		return nil, fmt.Errorf("%w: output %s below minimum %s", model.ErrSlippageExceeded, out, req.AmountOutMinimum)
	}
	m.balance = m.balance.Sub(req.ExactIn)
	m.Swaps = append(m.Swaps, req)

	raw, _ := json.Marshal(map[string]any{
		"txId":   fmt.Sprintf("mock-%d", len(m.Swaps)),
		"status": "CONFIRMED",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
	return Receipt(raw), nil
}
