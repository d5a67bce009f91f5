package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Styles (defined at package init for reuse)
var (
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleGray   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	styleEventInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styleEventWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleEventError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	bar := m.renderProgress()
	funds := m.renderFunds()
	risk := m.renderRisk()
	trial := m.renderTrial()
	events := m.renderEvents()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		bar,
		lipgloss.JoinHorizontal(lipgloss.Top, funds, risk),
		trial,
		events,
		footer,
	)
}

func (m Model) renderHeader() string {
	runtime := time.Since(m.snapshot.StartTime)
	return styleHeader.Render(fmt.Sprintf(
		"%s │ mode=%s │ data=%s │ runtime=%s",
		m.snapshot.Title,
		m.snapshot.Mode,
		m.snapshot.Dataset,
		FormatDuration(runtime),
	))
}

func (m Model) renderProgress() string {
	s := m.snapshot
	if s.TrialsTotal == 0 {
		return ""
	}
	pct := float64(s.TrialsDone) / float64(s.TrialsTotal)
	label := fmt.Sprintf("%d/%d trials │ %.0f/s", s.TrialsDone, s.TrialsTotal, s.RatePerSec)
	return stylePanel.Render(m.progress.ViewAs(pct) + "  " + styleDim.Render(label))
}

func (m Model) renderFunds() string {
	s := m.snapshot
	return stylePanel.Width(50).Render(fmt.Sprintf(
		"Funds: mean=%s │ median=%.0f │ best=%d │ worst=%d",
		m.meanChangeColor(s.MeanFinal),
		s.MedianFinal,
		s.BestFinal,
		s.WorstFinal,
	))
}

func (m Model) renderRisk() string {
	s := m.snapshot
	return stylePanel.Width(50).Render(fmt.Sprintf(
		"Risk: bankrupt=%s │ profitable=%s",
		m.bankruptcyColor(s.BankruptcyPct),
		styleGreen.Render(fmt.Sprintf("%.1f%%", s.ProfitPct)),
	))
}

func (m Model) renderTrial() string {
	s := m.snapshot

	// Stale (> 5 seconds) or never set
	if s.LastTrialTime.IsZero() || time.Since(s.LastTrialTime) > 5*time.Second {
		return stylePanel.Render(fmt.Sprintf(
			"Last trial: %s", styleDim.Render("(idle)"),
		))
	}

	fundColor := styleGreen
	if s.LastTrialFund < s.InitialFund {
		fundColor = styleRed
	}
	return stylePanel.Render(fmt.Sprintf(
		"Last trial: final=%s yen",
		fundColor.Render(fmt.Sprintf("%d", s.LastTrialFund)),
	))
}

func (m Model) renderEvents() string {
	// viewport.Model is a struct, not a pointer - never nil
	if !m.ready || m.width == 0 {
		return stylePanel.Render("Events: initializing...")
	}
	return stylePanel.Render("Events (scroll):") + "\n" + m.viewport.View()
}

func (m Model) renderFooter() string {
	hints := []string{"q: quit", "p: pause"}
	if m.paused {
		hints = append(hints, "(PAUSED)")
	}

	hintStrings := make([]string, len(hints))
	for i, h := range hints {
		hintStrings[i] = styleDim.Render(h)
	}

	return styleGray.Render("│ " + strings.Join(hintStrings, " │ ") + " │")
}

func (m Model) meanChangeColor(mean float64) string {
	if mean > m.prevMean {
		return styleGreen.Render(fmt.Sprintf("%.0f ↑", mean))
	}
	if mean < m.prevMean {
		return styleRed.Render(fmt.Sprintf("%.0f ↓", mean))
	}
	return styleDim.Render(fmt.Sprintf("%.0f =", mean))
}

func (m Model) bankruptcyColor(pct float64) string {
	if pct < 5 {
		return styleGreen.Render(fmt.Sprintf("%.1f%%", pct))
	}
	if pct < 10 {
		return styleYellow.Render(fmt.Sprintf("%.1f%%", pct))
	}
	return styleRed.Render(fmt.Sprintf("%.1f%%", pct))
}

func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if minutes > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dh", hours)
}
