package notifier

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"StockScreener/internal/exporter"
	"StockScreener/internal/pipeline"
)

// maxListed caps the tickers listed in a summary.
const maxListed = 15

// FormatRunSummary formats a finished run for Telegram.
func FormatRunSummary(rep *pipeline.Report, preset string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Stock screen</b> | %s | %s\n\n", html.EscapeString(preset), rep.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Universe: %d tickers (%d fetch failures)\n", rep.Universe, rep.FetchFailures)
	if rep.HasMarketPE {
		fmt.Fprintf(&b, "Market average P/E: %.2f\n", rep.MarketPE)
	} else {
		b.WriteString("Market average P/E: n/a\n")
	}
	fmt.Fprintf(&b, "Duration: %s\n\n", rep.Duration.Round(time.Second))

	if rep.Diagnostics != nil {
		b.WriteString("🔎 <b>Filters:</b>\n")
		for _, c := range rep.Diagnostics.Snapshot() {
			fmt.Fprintf(&b, "  %s: %d passed, %d rejected\n", c.Stage, c.Passed, c.Rejected)
		}
		b.WriteString("\n")
	}

	if rep.NoMatches || len(rep.Results) == 0 {
		b.WriteString("No stocks met the criteria.")
		return b.String()
	}

	fmt.Fprintf(&b, "✅ <b>%d matches</b> (by P/E):\n", len(rep.Results))
	for i, r := range exporter.Sorted(rep.Results) {
		if i == maxListed {
			fmt.Fprintf(&b, "  … and %d more\n", len(rep.Results)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s  P/E %.2f  D/E %.2f", html.EscapeString(r.Symbol.String()), r.PE, r.DebtToEquity)
		if r.Price > 0 {
			fmt.Fprintf(&b, "  $%.2f", r.Price)
		}
		b.WriteString("\n")
	}
	if rep.OutputPath != "" {
		fmt.Fprintf(&b, "\nSaved to %s", html.EscapeString(filepath.Base(rep.OutputPath)))
	}
	return b.String()
}

// FormatRunError formats a failed run.
func FormatRunError(preset string, err error) string {
	return fmt.Sprintf("⚠️ <b>Stock screen failed</b> | %s\n\n%s", html.EscapeString(preset), html.EscapeString(err.Error()))
}
