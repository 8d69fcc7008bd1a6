package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"squeeze/internal/processor"
)

type Model struct {
	updates    <-chan processor.ProgressUpdate
	stop       func()
	started    time.Time
	width      int
	total      int
	processed  int
	errors     int
	warnings   int
	bytesSaved int64
	stopping   bool
	quitting   bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

// NewModel renders progress from updates until the channel is closed. stop is
// called once when the user presses q or ctrl+c; the view keeps running until
// the in-flight files drain.
func NewModel(updates <-chan processor.ProgressUpdate, stop func()) Model {
	return Model{updates: updates, stop: stop, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.processed += msg.ProcessedDelta
		m.errors += msg.ErrorDelta
		m.warnings += msg.WarningDelta
		m.bytesSaved += msg.BytesSavedDelta
		return m, listenForUpdates(m.updates)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.stopping && m.stop != nil {
				m.stop()
			}
			m.stopping = true
		}
		return m, nil
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.processed) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	status := dimStyle.Render("q to stop")
	if m.stopping {
		status = warnStyle.Render("stopping after files in progress...")
	}

	lines := []string{
		titleStyle.Render("squeeze"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.processed, m.total)) +
			dimStyle.Render(fmt.Sprintf("  errors:%d  warnings:%d", m.errors, m.warnings)),
		labelStyle.Render(fmt.Sprintf("Saved: %s", FormatBytes(m.bytesSaved))),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
		status,
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// Shared with the inspect report so both screens read as one tool.
var (
	Heading = lipgloss.AdaptiveColor{Light: "#B4541A", Dark: "#F2A65A"}
	Subhead = lipgloss.AdaptiveColor{Light: "#7A4E9C", Dark: "#C39BD3"}
	Text    = lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#F4F1EA"}
	Muted   = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#8E8A80"}
	Saved   = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#7FD48A"}
	Caution = lipgloss.AdaptiveColor{Light: "#A66A00", Dark: "#FFD166"}
	Failed  = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(Heading)
	labelStyle = lipgloss.NewStyle().Foreground(Text)
	barStyle   = lipgloss.NewStyle().Foreground(Saved)
	dimStyle   = lipgloss.NewStyle().Foreground(Muted)
	warnStyle  = lipgloss.NewStyle().Foreground(Caution)
)
