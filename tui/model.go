package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// StateSnapshot represents the complete Monte Carlo state at a point in
// time.
type StateSnapshot struct {
	Title    string
	Mode     string
	Dataset  string
	StartTime time.Time

	TrialsDone  int
	TrialsTotal int
	RatePerSec  float64

	InitialFund int64
	MeanFinal   float64
	MedianFinal float64
	BestFinal   int64
	WorstFinal  int64

	BankruptcyPct float64
	ProfitPct     float64

	LastTrialFund int64
	LastTrialTime time.Time
}

// Event represents a significant event pushed into the scrolling log.
type Event struct {
	Timestamp time.Time
	Type      string // "TRIAL", "MILESTONE", "WARN", etc.
	Severity  string // "info", "warning", "error"
	Message   string
}

type (
	MsgStateSnapshot StateSnapshot
	MsgEvent         Event
	MsgShutdown      struct{}
	MsgTick          time.Time
)

type Model struct {
	snapshot StateSnapshot
	events   []Event // ring buffer, max 1000
	paused   bool

	width  int
	height int
	ready  bool

	progress progress.Model // NOT a pointer
	viewport viewport.Model // NOT a pointer

	// Track previous mean to show ↑ ↓
	prevMean float64
}

func NewModel() Model {
	return Model{
		snapshot: StateSnapshot{StartTime: time.Now()},
		events:   make([]Event, 0, 1000),
		progress: progress.New(progress.WithWidth(40)),
		viewport: viewport.New(0, 10),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return MsgTick(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		var cmd tea.Cmd
		m2, keyCmd := m.handleKey(msg)
		m = m2.(Model)

		// Pass to viewport for scrolling
		m.viewport, cmd = m.viewport.Update(msg)
		return m, tea.Batch(cmd, keyCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = m.width - 4
		m.viewport.Height = 10
		return m, nil

	case MsgStateSnapshot:
		// Explicit cast needed (MsgStateSnapshot is a distinct type)
		s := StateSnapshot(msg)
		m.prevMean = m.snapshot.MeanFinal
		m.snapshot = s
		return m, nil

	case MsgEvent:
		e := Event(msg)
		m.addEvent(e)
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case MsgTick:
		return m, tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
			return MsgTick(t)
		})

	case MsgShutdown:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
		return m, nil
	}
	return m, nil
}

func (m *Model) addEvent(e Event) {
	m.events = append(m.events, e)
	if len(m.events) > 1000 {
		m.events = m.events[1:]
	}
}

// updateViewportContent rebuilds events content for viewport.
// Called only when events change (on MsgEvent), not every render.
func (m *Model) updateViewportContent() {
	var eventStrings []string
	for _, e := range m.events {
		style := styleEventInfo
		if e.Severity == "warning" {
			style = styleEventWarn
		} else if e.Severity == "error" {
			style = styleEventError
		}

		icon := "•"
		if e.Type == "MILESTONE" {
			icon = "↗"
		} else if e.Severity == "warning" {
			icon = "⚠"
		} else if e.Severity == "error" {
			icon = "✗"
		}

		eventStrings = append(eventStrings, style.Render(
			fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("15:04:05"), icon, e.Message),
		))
	}
	m.viewport.SetContent(strings.Join(eventStrings, "\n"))
}
