package logx

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

const (
	reset   = "\x1b[0m"
	bold    = "\x1b[1m"
	gray    = "\x1b[90m"
	cyan    = "\x1b[36m"
	blue    = "\x1b[34m"
	yellow  = "\x1b[33m"
	green   = "\x1b[32m"
	magenta = "\x1b[35m"
	red     = "\x1b[31m"
)

var enableColor = true

var quiet = false

func init() {
	// Disable color if NO_COLOR is set or stdout is not a terminal
	if os.Getenv("NO_COLOR") != "" {
		enableColor = false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		enableColor = false
	}
}

// SetQuiet suppresses informational output (warnings still print).
func SetQuiet(q bool) { quiet = q }

// C returns a color-coded string (or plain string if color disabled)
func C(color, s string) string {
	if !enableColor {
		return s
	}
	return color + s + reset
}

// Cf returns a color-coded formatted string
func Cf(color, format string, args ...any) string {
	return C(color, fmt.Sprintf(format, args...))
}

// Channel returns a consistently-padded colored channel tag.
// All channels are 4 chars: "LOAD", "FILT", "SIM ", "MC  ", "WF  ", "RPT "
// (note the trailing spaces for padding).
func Channel(ch string) string {
	color := map[string]string{
		"LOAD": blue,
		"FILT": yellow,
		"SIM ": green,
		"MC  ": magenta,
		"WF  ": cyan,
		"RPT ": gray,
	}[ch]
	label := fmt.Sprintf("[%-4s]", ch)
	return C(color, label)
}

func stamp() string {
	return C(gray, time.Now().UTC().Format("15:04:05Z"))
}

// Logf prints a channel-tagged, timestamped line.
func Logf(ch, format string, args ...any) {
	if quiet {
		return
	}
	fmt.Printf("%s  %s  %s\n", stamp(), Channel(ch), fmt.Sprintf(format, args...))
}

// Warnln prints a channel-tagged warning line; never suppressed by quiet.
func Warnln(ch, msg string) {
	fmt.Printf("%s  %s  %s\n", stamp(), Channel(ch), C(yellow, msg))
}

// Errorln prints a channel-tagged error line; never suppressed by quiet.
func Errorln(ch, msg string) {
	fmt.Printf("%s  %s  %s\n", stamp(), Channel(ch), C(red, msg))
}

// Success returns a green message (for ✓, GO, etc.)
func Success(s string) string {
	return C(green, s)
}

// Successf returns a formatted green message
func Successf(format string, args ...any) string {
	return C(green, fmt.Sprintf(format, args...))
}

// Error returns a red message (for ✗, NO-GO, etc.)
func Error(s string) string {
	return C(red, s)
}

// Errorf returns a formatted red message
func Errorf(format string, args ...any) string {
	return C(red, fmt.Sprintf(format, args...))
}

// Warn returns a yellow message
func Warn(s string) string {
	return C(yellow, s)
}

// Warnf returns a formatted yellow message
func Warnf(format string, args ...any) string {
	return C(yellow, fmt.Sprintf(format, args...))
}

// Info returns a cyan message
func Info(s string) string {
	return C(cyan, s)
}

// Infof returns a formatted cyan message
func Infof(format string, args ...any) string {
	return C(cyan, fmt.Sprintf(format, args...))
}

// Highlight returns a bold message
func Highlight(s string) string {
	return C(bold, s)
}

// Dim returns a gray message (for less important info)
func Dim(s string) string {
	return C(gray, s)
}

// Checkmark returns a colored checkmark (green) or X (red)
func Checkmark(passed bool) string {
	if passed {
		return Success("✓")
	}
	return Error("✗")
}

// Money color-codes a yen delta: green when positive, red when negative.
func Money(yen int64) string {
	s := FormatYen(yen)
	if yen > 0 {
		return Success("+" + s)
	}
	if yen < 0 {
		return Error(s)
	}
	return Dim(s)
}

// ROIColor color-codes an ROI percentage against break-even (100%).
func ROIColor(roi float64) string {
	s := fmt.Sprintf("%.2f%%", roi)
	if roi >= 100 {
		return Success(s)
	}
	return Error(s)
}

// DDColor color-codes a drawdown percentage.
func DDColor(dd float64) string {
	s := fmt.Sprintf("%.2f%%", dd)
	switch {
	case dd <= 20:
		return Success(s)
	case dd <= 50:
		return Warn(s)
	default:
		return Error(s)
	}
}
