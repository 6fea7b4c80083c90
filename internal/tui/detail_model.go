package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/murmur/internal/models"
)

// DetailSource opens a live view of one recording, queuing enrichment when
// its summary is still missing
type DetailSource interface {
	OpenDetail(ctx context.Context, id uint) (<-chan *models.Recording, error)
}

type detailTab int

const (
	tabSummary detailTab = iota
	tabTranscript
)

// DetailModel shows one recording's summary and transcript as they arrive
type DetailModel struct {
	id      uint
	updates <-chan *models.Recording
	cancel  context.CancelFunc

	rec    *models.Recording
	loaded bool
	tab    detailTab

	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

type detailValueMsg struct {
	id  uint
	rec *models.Recording
}

type detailClosedMsg struct{ id uint }

// closeDetailMsg asks the dashboard to return to the list
type closeDetailMsg struct{}

// NewDetailModel takes ownership of updates, cancel ends the subscription
func NewDetailModel(id uint, updates <-chan *models.Recording, cancel context.CancelFunc, width, height int) DetailModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))

	m := DetailModel{
		id:       id,
		updates:  updates,
		cancel:   cancel,
		spinner:  s,
		viewport: viewport.New(width, max(1, height-detailChromeHeight)),
	}
	return m.resize(width, height)
}

// Header (title, meta, tabs) plus help bar
const detailChromeHeight = 7

func (m DetailModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForDetail(m.id, m.updates))
}

func waitForDetail(id uint, ch <-chan *models.Recording) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-ch
		if !ok {
			return detailClosedMsg{id: id}
		}
		return detailValueMsg{id: id, rec: rec}
	}
}

// Close ends the live subscription
func (m DetailModel) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m DetailModel) processing() bool {
	return m.rec == nil || m.rec.Summary == "" || m.rec.Transcript == ""
}

func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case detailValueMsg:
		if msg.id != m.id {
			return m, nil
		}
		m.rec = msg.rec
		m.loaded = true
		m.viewport.SetContent(m.renderBody())
		return m, waitForDetail(m.id, m.updates)

	case detailClosedMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.processing() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.viewport.SetContent(m.renderBody())
		return m, cmd

	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "backspace":
			return m, func() tea.Msg { return closeDetailMsg{} }
		case "tab", "left", "right", "h", "l":
			if m.tab == tabSummary {
				m.tab = tabTranscript
			} else {
				m.tab = tabSummary
			}
			m.viewport.SetContent(m.renderBody())
			m.viewport.GotoTop()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DetailModel) resize(width, height int) DetailModel {
	m.width = width
	m.height = height
	m.viewport.Width = max(1, width-4)
	m.viewport.Height = max(1, height-detailChromeHeight)
	m.viewport.SetContent(m.renderBody())
	return m
}

func (m DetailModel) View() string {
	if !m.loaded {
		return fmt.Sprintf("\n  %s Loading recording #%d...", m.spinner.View(), m.id)
	}
	if m.rec == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			"",
			lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorError)).
				Padding(0, 2).
				Render(fmt.Sprintf("Recording #%d not found", m.id)),
			"",
			m.renderHelpBar(),
		)
	}

	rec := m.rec
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Padding(0, 2)
	if rec.Summary == "" {
		titleStyle = titleStyle.Foreground(lipgloss.Color(ColorWarning))
	}

	meta := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Padding(0, 2).
		Render(fmt.Sprintf("#%d · %s · %s", rec.ID, rec.CreatedAt.Local().Format("Jan 02, 03:04 PM"), FormatClock(rec.DurationSeconds)))

	body := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Render(m.viewport.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		titleStyle.Render(DisplayTitle(*rec)),
		meta,
		m.renderTabs(),
		body,
		m.renderHelpBar(),
	)
}

func (m DetailModel) renderTabs() string {
	active := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright)).
		Underline(true).
		Padding(0, 2)
	inactive := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDisabledText)).
		Padding(0, 2)

	summary, transcript := inactive.Render("Summary"), inactive.Render("Transcript")
	if m.tab == tabSummary {
		summary = active.Render("Summary")
	} else {
		transcript = active.Render("Transcript")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, summary, transcript)
}

// renderBody is the scrollable content of the active tab
func (m DetailModel) renderBody() string {
	if m.rec == nil {
		return ""
	}

	text, placeholder := m.rec.Summary, "Generating summary..."
	if m.tab == tabTranscript {
		text, placeholder = m.rec.Transcript, "Transcribing audio..."
	}

	if text == "" {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning)).
			Italic(true).
			Padding(1, 1).
			Render(m.spinner.View() + " " + placeholder)
	}

	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Width(max(1, m.viewport.Width-2)).
		Padding(0, 1).
		Render(strings.TrimSpace(text))
}

func (m DetailModel) renderHelpBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("tab switch section · ↑/↓ scroll · esc back")
}
