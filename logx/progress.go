package logx

import (
	"fmt"
	"strings"
	"time"
)

// LogReplayProgress - single line replay progress log
func LogReplayProgress(races, totalRaces, bets int, fund int64) {
	if quiet {
		return
	}
	fmt.Printf("%s  %s  Races: %s/%s | Bets: %s | Fund: %s yen\n",
		stamp(), Channel("SIM "),
		formatNumber(races), formatNumber(totalRaces), formatNumber(bets),
		FormatYen(fund))
}

// LogTrialProgress - Monte Carlo trial completion progress
func LogTrialProgress(done, total int, rate float64, meanFinal float64, bankruptcyPct float64) {
	if quiet {
		return
	}
	fmt.Printf("%s  %s  Trials: %s/%s | Rate: %.0f/s | Mean: %s yen | Bankrupt: %s\n",
		stamp(), Channel("MC  "),
		formatNumber(done), formatNumber(total), rate,
		FormatYen(int64(meanFinal)), ColorPercent(bankruptcyPct))
}

// LogWindowProgress - walk-forward window completion
func LogWindowProgress(window, totalWindows int, label string, finalFund int64, roi float64) {
	if quiet {
		return
	}
	fmt.Printf("%s  %s  Window %d/%d [%s]: Final: %s yen | ROI: %s\n",
		stamp(), Channel("WF  "),
		window, totalWindows, label, FormatYen(finalFund), ROIColor(roi))
}

// ColorPercent returns a color-coded percentage string.
// Low (<5%) is green, medium (5-10%) is yellow, high (>=10%) is red.
func ColorPercent(pct float64) string {
	if pct < 5 {
		return Success(fmt.Sprintf("%.1f%%", pct))
	}
	if pct < 10 {
		return Warn(fmt.Sprintf("%.1f%%", pct))
	}
	return Error(fmt.Sprintf("%.1f%%", pct))
}

// FormatDuration formats a duration in a human-readable way
// ("1h23m", "45m32s", "23s").
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}

// Box formatting helpers for compact display

// BoxHeader creates a top border for a boxed section with title
func BoxHeader(title string, width int) string {
	if width < 20 {
		width = 50
	}
	padding := width - len(title) - 6
	if padding < 2 {
		padding = 2
	}
	return fmt.Sprintf("┌─ %s %s┐\n", C(bold, title), C(gray, strings.Repeat("─", padding)+"─"))
}

// BoxFooter creates a bottom border for a boxed section
func BoxFooter(width int) string {
	if width < 20 {
		width = 50
	}
	return C(gray, "└"+strings.Repeat("─", width-2)+"┘") + "\n"
}

// BoxRow creates a content row for a boxed section (auto-pads to width)
func BoxRow(content string, width int) string {
	if width < 20 {
		width = 50
	}
	padding := width - len(content) - 4
	if padding < 0 {
		padding = 0
	}
	return fmt.Sprintf("│ %s%s │\n", content, strings.Repeat(" ", padding))
}

// formatNumber formats a number with thousands separators (e.g., 12,345)
func formatNumber(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var parts []string
		for i := len(s); i > 0; i -= 3 {
			start := i - 3
			if start < 0 {
				start = 0
			}
			parts = append([]string{s[start:i]}, parts...)
		}
		s = strings.Join(parts, ",")
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatNumber formats a number with thousands separators (exported version)
func FormatNumber(n int) string {
	return formatNumber(n)
}

// FormatYen formats a yen amount with thousands separators.
func FormatYen(yen int64) string {
	return formatNumber(int(yen))
}
