package gate

import (
	"fmt"
	"sync"
	"time"
)

// DefaultWindow is the minimum spacing between live trades.
const DefaultWindow = time.Hour

// Gate enforces one live trade per window. It only remembers the last trade.
type Gate struct {
	mu        sync.RWMutex
	window    time.Duration
	lastTrade time.Time // zero means no trade yet
}

// New creates a Gate. A non-positive window falls back to DefaultWindow.
func New(window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gate{window: window}
}

// Window returns the configured spacing.
func (g *Gate) Window() time.Duration { return g.window }

// CanTrade reports whether a live trade may start at now.
func (g *Gate) CanTrade(now time.Time) bool {
	return g.TimeUntilNextTrade(now) == 0
}

// TimeUntilNextTrade returns how long until the gate opens, or zero if it is open.
func (g *Gate) TimeUntilNextTrade(now time.Time) time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.lastTrade.IsZero() {
		return 0
	}
	remaining := g.window - now.Sub(g.lastTrade)
	if remaining <= 0 {
		return 0
	}
	return remaining
}

// RecordTrade closes the gate for one window starting at at.
func (g *Gate) RecordTrade(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastTrade = at
}

// LastTrade returns the last live trade time and whether one has happened.
func (g *Gate) LastTrade() (time.Time, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastTrade, !g.lastTrade.IsZero()
}

// FormatRemaining renders a wait as "now" or whole minutes and seconds, e.g. "49m 59s".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
