package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"AstroSwap/internal/model"

	"github.com/shopspring/decimal"
)

// HTTPExchange implements Exchange against a swap gateway REST API.
type HTTPExchange struct {
	BaseURL    string
	APIKey     string
	Client     *http.Client
	MaxRetries int
	Backoff    time.Duration
}

// NewHTTPExchange creates an exchange client with optional proxy support.
func NewHTTPExchange(baseURL, apiKey, proxyURL string) *HTTPExchange {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPExchange{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

func (h *HTTPExchange) Name() string { return "http" }

// apiError is the error body returned by the gateway.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusError carries a non-200 response. Server errors are retryable.
type statusError struct {
	status int
	body   apiError
	raw    string
}

func (e *statusError) Error() string {
	if e.body.Message != "" {
		return fmt.Sprintf("gateway: status %d, %s: %s", e.status, e.body.Code, e.body.Message)
	}
	return fmt.Sprintf("gateway: status %d, body: %s", e.status, e.raw)
}

func (e *statusError) Unwrap() error {
	switch e.body.Code {
	case "INSUFFICIENT_BALANCE":
		return model.ErrInsufficientBalance
	case "SLIPPAGE_EXCEEDED":
		return model.ErrSlippageExceeded
	default:
		return model.ErrExternalService
	}
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500
	}
	// Transport failures are worth another attempt.
	return true
}

func (h *HTTPExchange) Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal) (Quote, error) {
	q := url.Values{}
	q.Set("tokenIn", tokenIn)
	q.Set("tokenOut", tokenOut)
	q.Set("amountIn", amountIn.String())

	var quote Quote
	if err := h.getWithRetry(ctx, "/v1/quote?"+q.Encode(), &quote); err != nil {
		return Quote{}, fmt.Errorf("quote %s %s->%s: %w", amountIn, tokenIn, tokenOut, err)
	}
	return quote, nil
}

func (h *HTTPExchange) Balance(ctx context.Context, wallet, token string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("wallet", wallet)
	q.Set("token", token)

	var result struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := h.getWithRetry(ctx, "/v1/balance?"+q.Encode(), &result); err != nil {
		return decimal.Zero, fmt.Errorf("balance %s: %w", token, err)
	}
	return result.Balance, nil
}

// Swap is sent exactly once.
func (h *HTTPExchange) Swap(ctx context.Context, req SwapRequest) (Receipt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal swap: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/v1/swap", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	raw, err := h.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("swap %s %s->%s: %w", req.ExactIn, req.TokenIn, req.TokenOut, err)
	}
	return NewReceipt(raw), nil
}

func (h *HTTPExchange) getWithRetry(ctx context.Context, path string, out any) error {
	var lastErr error
	for i := 0; i <= h.MaxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+path, nil)
		if err != nil {
			return err
		}
		raw, err := h.do(req)
		if err == nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("%w: decode response: %v", model.ErrExternalService, err)
			}
			return nil
		}
		lastErr = err
		if !retryable(err) || i == h.MaxRetries {
			break
		}
		backoff := h.Backoff * time.Duration(1<<uint(i))
		log.Printf("[WARN] gateway request failed (attempt %d/%d): %v, retrying in %v", i+1, h.MaxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

func (h *HTTPExchange) do(req *http.Request) ([]byte, error) {
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrExternalService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrExternalService, err)
	}
	if resp.StatusCode != http.StatusOK {
		se := &statusError{status: resp.StatusCode, raw: string(raw)}
		_ = json.Unmarshal(raw, &se.body)
		return nil, se
	}
	return raw, nil
}
