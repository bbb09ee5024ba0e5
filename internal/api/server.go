package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"AstroSwap/internal/metrics"
	"AstroSwap/internal/model"
	"AstroSwap/internal/notifier"
	"AstroSwap/internal/scheduler"
	"AstroSwap/internal/trader"

	"golang.org/x/time/rate"
)

// Response is the body of every control endpoint except status.
type Response struct {
	Success  bool                  `json:"success"`
	Message  string                `json:"message,omitempty"`
	Error    string                `json:"error,omitempty"`
	Analysis *model.AnalysisResult `json:"analysis,omitempty"`
}

// Server exposes the control API, the push channel and metrics.
type Server struct {
	sched   *scheduler.Scheduler
	orch    *trader.Orchestrator
	hub     *notifier.Hub
	metrics *metrics.Metrics
	limiter *rate.Limiter
	mux     *http.ServeMux
}

// NewServer wires the routes. POST endpoints share one limiter allowing
// ratePerMinute requests with a burst of a tenth of that.
func NewServer(sched *scheduler.Scheduler, orch *trader.Orchestrator, hub *notifier.Hub, m *metrics.Metrics, ratePerMinute int, wsPath string) *Server {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	burst := ratePerMinute / 10
	if burst < 1 {
		burst = 1
	}
	if wsPath == "" {
		wsPath = "/ws"
	}
	if m == nil {
		m = metrics.New("")
	}
	s := &Server{
		sched:   sched,
		orch:    orch,
		hub:     hub,
		metrics: m,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60), burst),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/start", s.limited(s.handleStart))
	s.mux.HandleFunc("POST /api/stop", s.limited(s.handleStop))
	s.mux.HandleFunc("POST /api/force-analysis", s.limited(s.handleForceAnalysis))
	s.mux.HandleFunc("POST /api/test-trade", s.limited(s.handleTestTrade))
	s.mux.Handle("GET "+wsPath, notifier.ServeWS(hub))
	s.mux.Handle("GET /metrics", m.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return s
}

// Handler returns the root handler with CORS and request metrics.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		s.mux.ServeHTTP(rec, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.APIRequests.WithLabelValues(pattern, strconv.Itoa(rec.code)).Inc()
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] API server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Println("[INFO] API server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.APIRateLimited.Inc()
			writeJSON(w, http.StatusTooManyRequests, Response{Error: "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Status(time.Now()))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	switch err := s.sched.Start(r.Context()); {
	case err == nil:
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Bot started"})
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		writeJSON(w, http.StatusOK, Response{Message: "Bot already running"})
	default:
		writeJSON(w, http.StatusOK, Response{Error: err.Error()})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Stop(); err != nil {
		writeJSON(w, http.StatusOK, Response{Message: "Bot not running"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Bot stopped"})
}

func (s *Server) handleForceAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.orch.ForceAnalysis(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, Response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Analysis: a})
}

func (s *Server) handleTestTrade(w http.ResponseWriter, r *http.Request) {
	// A submitted swap cannot be recalled, so a client hanging up must not cancel it.
	if err := s.orch.TestTrade(context.WithoutCancel(r.Context())); err != nil {
		writeJSON(w, http.StatusOK, Response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Test trade executed"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
