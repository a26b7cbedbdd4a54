package notify

import (
	"fmt"
	"strings"
	"time"

	"fxsignal-go/internal/signal"
	"fxsignal-go/internal/strategy"
)

// FormatStartup builds the launch announcement message.
func FormatStartup(pairs []string) string {
	return fmt.Sprintf("✅ Signal Bot Started Successfully!\nMonitoring: %s", strings.Join(pairs, ", "))
}

// FormatAlert builds the per-cycle alert text for one pair. Non-None signals
// carry a suggested validity window and a risk disclaimer; None readings get
// the shorter no-opportunity variant.
func FormatAlert(pair string, eval strategy.Evaluation, timeframe string, ts time.Time) string {
	if eval.Signal == signal.None {
		return fmt.Sprintf(
			"🔄 No Trading Opportunity\n"+
				"*Pair*: %s\n"+
				"*Time*: %s\n"+
				"*RSI*: %.2f\n"+
				"*Price*: %.4f",
			pair, ts.Format("15:04"), eval.Reading.Current, eval.Price,
		)
	}
	return fmt.Sprintf(
		"🚨 *%s Signal Alert* 🚨\n"+
			"*Pair*: %s\n"+
			"*Time*: %s\n"+
			"*RSI*: %.2f\n"+
			"*Price*: %.4f\n"+
			"*Timeframe*: %s\n"+
			"*Expiry Window*: 5-15 minutes\n\n"+
			"⚠️ *Risk Management Recommended*",
		eval.Signal, pair, ts.Format("15:04"), eval.Reading.Current, eval.Price, timeframe,
	)
}
