package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/murmur/internal/models"
	"github.com/balkashynov/murmur/internal/session"
)

// Session is the part of the session controller the timer drives
type Session interface {
	RequestStop(ctx context.Context) (*models.Recording, error)
	Observe(ctx context.Context) <-chan session.State
}

// RecordModel shows the running capture session as a big clock
type RecordModel struct {
	width  int
	height int

	sess      Session
	states    <-chan session.State
	state     session.State
	startedAt time.Time

	// Animation frame for the recording indicator
	frame int

	stopping bool
	saved    *models.Recording
	err      error
}

type stateMsg session.State

type stateClosedMsg struct{}

type stoppedMsg struct {
	rec *models.Recording
	err error
}

type animationTickMsg struct{}

// NewRecordModel subscribes to session state for the lifetime of ctx
func NewRecordModel(ctx context.Context, sess Session, startedAt time.Time) RecordModel {
	return RecordModel{
		sess:      sess,
		states:    sess.Observe(ctx),
		startedAt: startedAt,
		state:     session.State{Recording: true},
	}
}

func (m RecordModel) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), animationTick())
}

func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg(s)
	}
}

func animationTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func (m RecordModel) stop() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		rec, err := sess.RequestStop(context.Background())
		return stoppedMsg{rec: rec, err: err}
	}
}

func (m RecordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = session.State(msg)
		// The session ended without us asking, typically a capture failure
		if !m.state.Recording && m.state.Failure != "" && !m.stopping {
			m.err = errors.New(m.state.Failure)
			return m, tea.Quit
		}
		return m, waitForState(m.states)

	case stateClosedMsg:
		return m, nil

	case animationTickMsg:
		m.frame = (m.frame + 1) % 2
		if m.stopping {
			return m, nil
		}
		return m, animationTick()

	case stoppedMsg:
		m.saved = msg.rec
		m.err = msg.err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s", "S", "q", "esc", "ctrl+c":
			// Every exit path stops and saves
			if m.stopping {
				return m, nil
			}
			m.stopping = true
			return m, m.stop()
		}
	}

	return m, nil
}

func (m RecordModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpBar := m.renderHelpBar()
	contentHeight := m.height - 2

	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderClockPanel(m.width, contentHeight), helpBar)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderClockPanel(leftWidth, contentHeight),
		"  ",
		m.renderInfoPanel(rightWidth, contentHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, content, helpBar)
}

func (m RecordModel) renderClockPanel(width, height int) string {
	centered := lipgloss.NewStyle().Align(lipgloss.Center).Width(width)

	var components []string

	dot := "●"
	if m.frame == 1 {
		dot = "○"
	}
	header := fmt.Sprintf("%s  RECORDING  %s", dot, dot)
	headerColor := ColorRecordOn
	if m.stopping {
		header = "SAVING..."
		headerColor = ColorWarning
	}
	components = append(components, centered.
		Foreground(lipgloss.Color(headerColor)).
		Bold(true).
		Render(header))

	var clock []string
	for _, line := range strings.Split(renderBigClock(m.state.ElapsedSeconds), "\n") {
		clock = append(clock, centered.Render(line))
	}
	components = append(components, strings.Join(clock, "\n"))

	components = append(components, centered.
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Italic(true).
		Render(fmt.Sprintf("Started at %s", m.startedAt.Format("15:04:05"))))

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(components, "\n\n"))
}

func (m RecordModel) renderInfoPanel(width, height int) string {
	inner := width - 8
	centered := lipgloss.NewStyle().Align(lipgloss.Center).Width(inner)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centered.
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Render(strings.Join(logoLines, "\n")))
	b.WriteString("\n\n")

	b.WriteString(centered.
		Foreground(lipgloss.Color(ColorBorder)).
		Render(strings.Repeat("─", max(0, min(width-12, 40)))))
	b.WriteString("\n\n")

	status := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRecordOn)).Bold(true).Render("recording")
	if m.stopping {
		status = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Bold(true).Render("saving")
	}
	lines := []string{
		fmt.Sprintf("🎙  Status: %s", status),
		fmt.Sprintf("⏱  Elapsed: %s", lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorAccentBright)).
			Render(FormatClock(m.state.ElapsedSeconds))),
		fmt.Sprintf("📝 Started: %s", lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Render(m.startedAt.Format("Jan 02, 15:04"))),
	}
	if m.state.LastRecordingID != 0 {
		lines = append(lines, fmt.Sprintf("💾 Last saved: #%d", m.state.LastRecordingID))
	}
	for _, line := range lines {
		b.WriteString(centered.Render(line))
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().Height(height).Render(b.String())
}

func (m RecordModel) renderHelpBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("s stop & save · q/esc stop & save · ctrl+c stop & save")
}

// Five-row block glyphs for the clock
var bigDigits = map[rune][5]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

func renderBigClock(seconds int) string {
	var rows [5]strings.Builder
	for _, r := range FormatClock(seconds) {
		glyph, ok := bigDigits[r]
		if !ok {
			continue
		}
		for i := range rows {
			rows[i].WriteString(glyph[i])
			rows[i].WriteString(" ")
		}
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
	lines := make([]string, len(rows))
	for i := range rows {
		lines[i] = style.Render(rows[i].String())
	}
	return strings.Join(lines, "\n")
}
