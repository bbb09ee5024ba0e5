package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"AstroSwap/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL
	require.NoError(t, tn.Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL
	err := tn.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTelegramObserver_SendsActionableEvents(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		texts = append(texts, body["text"])
		mu.Unlock()
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL
	obs := NewTelegramObserver(tn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx)

	// Hold analysis and status events are not sent.
	require.NoError(t, obs.Deliver(model.Event{Type: model.EventAnalysis, Data: &model.AnalysisResult{Score: 45, Tier: model.TierWeakBuy}}))
	require.NoError(t, obs.Deliver(model.Event{Type: model.EventStatus, Data: model.StatusPayload{}}))
	require.NoError(t, obs.Deliver(model.Event{Type: model.EventTrade, Data: model.TradeRecord{
		Kind: model.TradeLive, AmountIn: decimal.NewFromInt(1), TokenIn: "GALA", TokenOut: "GUSDC",
	}}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(texts) == 1
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.True(t, strings.Contains(texts[0], "Trade executed"))
	mu.Unlock()
}

func TestStartPolling_HandlesOwnChatOnly(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":1,"message":{"text":"/status","chat":{"id":42}}},
					{"update_id":2,"message":{"text":"/stop","chat":{"id":7}}}]}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL

	var handled []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tn.StartPolling(ctx, func(cmd string) string {
			mu.Lock()
			handled = append(handled, cmd)
			mu.Unlock()
			return "ok " + cmd
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/status"}, handled)
	assert.Equal(t, "ok /status", replies[0])
}

func TestFormatEvent(t *testing.T) {
	strong := &model.AnalysisResult{Score: 65, MaxScore: 100, Tier: model.TierStrongBuy, BuyImmediately: true,
		Factors: []model.Factor{{Icon: "🌙", Label: "New Moon", Points: 25}}}
	assert.Contains(t, FormatEvent(model.Event{Type: model.EventAnalysis, Data: strong}), "New Moon: +25")
	assert.Contains(t, FormatEvent(model.Event{Type: model.EventAnalysis, Data: &model.AnalysisResult{Score: 25}}), "Score: 25")
	assert.Empty(t, FormatEvent(model.Event{Type: model.EventAnalysis, Data: &model.AnalysisResult{Score: 35}}))

	errText := FormatEvent(model.Event{Type: model.EventError, Data: model.ErrorPayload{
		Message: "boom", Kind: model.KindExternalService, Context: "trade_execution",
	}})
	assert.Contains(t, errText, "trade_execution failed")
	assert.Contains(t, errText, "external_service_failure")

	htmlErr := FormatEvent(model.Event{Type: model.EventError, Data: model.ErrorPayload{
		Message: "gateway: status 502, body: <html>502 Bad Gateway</html>", Kind: model.KindExternalService, Context: "trade_execution",
	}})
	assert.Contains(t, htmlErr, "&lt;html&gt;502 Bad Gateway&lt;/html&gt;")
	assert.NotContains(t, htmlErr, "<html>")
	assert.Contains(t, htmlErr, "<b>trade_execution failed</b>")

	assert.Contains(t, FormatEvent(model.Event{Type: model.EventBotStopped, Data: model.LifecyclePayload{Timestamp: time.Now()}}), "Bot stopped")
}
