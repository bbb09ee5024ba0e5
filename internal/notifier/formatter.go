package notifier

import (
	"fmt"
	"html"
	"strings"

	"AstroSwap/internal/model"
)

// FormatEvent renders an event for the chat. It returns "" for events that
// are not worth a message: status snapshots and analyses that lead nowhere.
func FormatEvent(evt model.Event) string {
	switch d := evt.Data.(type) {
	case *model.AnalysisResult:
		if d == nil || !(d.BuyImmediately || d.Score < 30) {
			return ""
		}
		return FormatAnalysis(d)
	case model.TradeRecord:
		return FormatTrade(&d)
	case model.DefensiveAction:
		return FormatDefensive(&d)
	case model.ErrorPayload:
		return FormatError(&d)
	case model.LifecyclePayload:
		if evt.Type == model.EventBotStarted {
			return fmt.Sprintf("🚀 <b>Bot started</b> | %s", d.Timestamp.Format("2006-01-02 15:04:05"))
		}
		return fmt.Sprintf("🛑 <b>Bot stopped</b> | %s", d.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return ""
}

// FormatAnalysis renders the itemised score breakdown.
func FormatAnalysis(a *model.AnalysisResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🔮 <b>Cosmic analysis</b> | %s\n\n", a.Timestamp.Format("2006-01-02 15:04")))
	for _, f := range a.Factors {
		b.WriteString(fmt.Sprintf("  %s %s: %+d\n", f.Icon, f.Label, f.Points))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  Score: %d/%d\n\n", a.Score, a.MaxScore))
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> (%s confidence)\n", a.Tier, a.Confidence))
	if a.MoonPhase != "" {
		b.WriteString(fmt.Sprintf("Moon: %s\n", a.MoonPhase))
	}
	return b.String()
}

// FormatTrade renders an executed trade.
func FormatTrade(tr *model.TradeRecord) string {
	var b strings.Builder

	icon := "✅"
	switch tr.Kind {
	case model.TradeDefensiveSwap:
		icon = "🛡️"
	case model.TradeTest, model.TradeImmediateTest:
		icon = "🧪"
	}
	b.WriteString(fmt.Sprintf("%s <b>Trade executed</b> (%s)\n\n", icon, tr.Kind))
	b.WriteString(fmt.Sprintf("Sold: %s %s\n", tr.AmountIn, tr.TokenIn))
	b.WriteString(fmt.Sprintf("Expected: ~%s %s\n", tr.AmountOut, tr.TokenOut))
	if tr.Score != nil {
		b.WriteString(fmt.Sprintf("Score: %d | %s\n", *tr.Score, tr.Recommendation))
	}
	if !tr.Reserved.IsZero() {
		b.WriteString(fmt.Sprintf("Reserve kept: %s %s\n", tr.Reserved, tr.TokenIn))
	}
	return b.String()
}

// FormatDefensive renders a defensive swap summary.
func FormatDefensive(d *model.DefensiveAction) string {
	return fmt.Sprintf("🛡️ <b>Defensive swap</b>\n\n%s\nScore: %d\nSwapped: %s\nReserve protected: %s\nFinal balance: %s\n",
		d.Reason, d.Score, d.Amount, d.Reserved, d.FinalBalance)
}

// FormatError renders a caught trade-path failure.
func FormatError(e *model.ErrorPayload) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("❌ <b>%s failed</b> [%s]\n\n%s\n",
		html.EscapeString(e.Context), e.Kind, html.EscapeString(e.Message)))
	if e.Balance != "" {
		b.WriteString(fmt.Sprintf("Balance: %s / %s needed\n", e.Balance, e.Required))
	}
	if e.Action != "" {
		b.WriteString(html.EscapeString(e.Action) + "\n")
	}
	return b.String()
}

// FormatStatus renders the bot status for the /status command.
func FormatStatus(s *model.StatusPayload) string {
	var b strings.Builder
	b.WriteString("📦 <b>Bot status</b>\n\n")
	b.WriteString(fmt.Sprintf("Running: %v\n", s.IsRunning))
	if s.CanTrade != nil {
		b.WriteString(fmt.Sprintf("Can trade: %v (next: %s)\n", *s.CanTrade, s.NextTradeTime))
	}
	if s.LastTradeTime != nil {
		b.WriteString(fmt.Sprintf("Last live trade: %s\n", s.LastTradeTime.Format("2006-01-02 15:04:05")))
	}
	if a := s.CurrentAnalysis; a != nil {
		b.WriteString(fmt.Sprintf("Latest score: %d/%d (%s)\n", a.Score, a.MaxScore, a.Tier))
	}
	b.WriteString(fmt.Sprintf("Trades: %d recent\n", len(s.TradeHistory)))
	return b.String()
}
