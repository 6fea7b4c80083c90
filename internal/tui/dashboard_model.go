package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/murmur/internal/models"
)

// RecordingSource streams the full recordings list, newest first
type RecordingSource interface {
	ObserveAll(ctx context.Context) <-chan []models.Recording
}

// Focus is the UI element receiving keys
type Focus int

const (
	FocusTable Focus = iota
	FocusDetail
)

// DashboardModel lists recordings and updates as they are created and enriched
type DashboardModel struct {
	ctx     context.Context
	details DetailSource
	updates <-chan []models.Recording

	width  int
	height int

	recordings []models.Recording
	selected   int
	loaded     bool

	focus   Focus
	shimmer *ShimmerState
	detail  *DetailModel

	currentPage int
	perPage     int

	err error
}

type recordingsMsg []models.Recording

type recordingsClosedMsg struct{}

func NewDashboardModel(ctx context.Context, recordings RecordingSource, details DetailSource) DashboardModel {
	return DashboardModel{
		ctx:     ctx,
		details: details,
		updates: recordings.ObserveAll(ctx),
		shimmer: NewShimmerState(DefaultShimmerConfig()),
		perPage: 10,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(waitForRecordings(m.updates), m.shimmer.Tick())
}

func waitForRecordings(ch <-chan []models.Recording) tea.Cmd {
	return func() tea.Msg {
		recs, ok := <-ch
		if !ok {
			return recordingsClosedMsg{}
		}
		return recordingsMsg(recs)
	}
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordingsMsg:
		m = m.setRecordings(msg)
		return m, waitForRecordings(m.updates)

	case recordingsClosedMsg:
		return m, nil

	case shimmerTickMsg:
		if m.focus == FocusTable {
			return m, m.shimmer.Tick()
		}
		return m, nil

	case closeDetailMsg:
		return m.closeDetail(), m.shimmer.Tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Header, column headers, pagination, help and borders
		m.perPage = max(3, m.height-12)
		m.currentPage = m.selected / m.perPage
		if m.detail != nil {
			d := m.detail.resize(msg.Width, msg.Height)
			m.detail = &d
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m = m.closeDetail()
			return m, tea.Quit
		}
		if m.focus == FocusDetail {
			return m.updateDetail(msg)
		}

		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "up", "k":
			return m.moveSelection(-1), nil
		case "down", "j":
			return m.moveSelection(1), nil
		case "left", "h":
			return m.changePage(-1), nil
		case "right", "l":
			return m.changePage(1), nil
		case "enter":
			return m.openDetail()
		}
	}

	if m.focus == FocusDetail {
		return m.updateDetail(msg)
	}
	return m, nil
}

func (m DashboardModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.detail == nil {
		m.focus = FocusTable
		return m, nil
	}
	d, cmd := m.detail.Update(msg)
	m.detail = &d
	return m, cmd
}

// setRecordings replaces the list, keeping the selection on the same id
func (m DashboardModel) setRecordings(recs []models.Recording) DashboardModel {
	var selectedID uint
	if m.selected < len(m.recordings) {
		selectedID = m.recordings[m.selected].ID
	}

	m.recordings = recs
	m.loaded = true

	for i, rec := range m.recordings {
		if rec.ID == selectedID {
			m.selected = i
			break
		}
	}
	if m.selected >= len(m.recordings) {
		m.selected = max(0, len(m.recordings)-1)
	}
	m.currentPage = m.selected / m.perPage
	return m
}

func (m DashboardModel) moveSelection(delta int) DashboardModel {
	next := m.selected + delta
	if next < 0 || next >= len(m.recordings) {
		return m
	}
	m.selected = next
	m.currentPage = m.selected / m.perPage
	m.shimmer.Reset()
	return m
}

func (m DashboardModel) changePage(delta int) DashboardModel {
	pages := (len(m.recordings) + m.perPage - 1) / m.perPage
	next := m.currentPage + delta
	if next < 0 || next >= pages {
		return m
	}
	m.currentPage = next
	m.selected = min(next*m.perPage, len(m.recordings)-1)
	m.shimmer.Reset()
	return m
}

func (m DashboardModel) openDetail() (tea.Model, tea.Cmd) {
	if m.selected >= len(m.recordings) {
		return m, nil
	}
	id := m.recordings[m.selected].ID

	ctx, cancel := context.WithCancel(m.ctx)
	updates, err := m.details.OpenDetail(ctx, id)
	if err != nil {
		cancel()
		m.err = err
		return m, tea.Quit
	}

	d := NewDetailModel(id, updates, cancel, m.width, m.height)
	m.detail = &d
	m.focus = FocusDetail
	m.shimmer.SetActive(false)
	return m, d.Init()
}

func (m DashboardModel) closeDetail() DashboardModel {
	if m.detail != nil {
		m.detail.Close()
		m.detail = nil
	}
	m.focus = FocusTable
	m.shimmer.SetActive(true)
	return m
}

func (m DashboardModel) View() string {
	if m.focus == FocusDetail && m.detail != nil {
		return m.detail.View()
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 1

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTable(leftWidth),
		" ",
		m.renderPreview(rightWidth),
	)

	return lipgloss.JoinVertical(lipgloss.Left, "", content, "", m.renderHelpBar())
}

func (m DashboardModel) renderTable(width int) string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright)).
		Render("🎙  Recordings"))
	b.WriteString("\n\n")

	empty := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true)
	switch {
	case !m.loaded:
		b.WriteString(empty.Render("Loading..."))
	case len(m.recordings) == 0:
		b.WriteString(empty.Render("No recordings yet. Run `murmur record` to capture one."))
	default:
		m.renderRows(&b, width)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width).
		Render(b.String())
}

func (m DashboardModel) renderRows(b *strings.Builder, width int) {
	const (
		idWidth       = 5
		createdWidth  = 8
		durationWidth = 6
	)
	titleWidth := max(20, width-4-idWidth-createdWidth-durationWidth-6)

	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright)).
		Padding(0, 1).
		Render(fmt.Sprintf("%-*s %-*s %-*s %*s",
			idWidth, "ID",
			titleWidth, "TITLE",
			createdWidth, "CREATED",
			durationWidth, "LENGTH")))
	b.WriteString("\n\n")

	start := m.currentPage * m.perPage
	end := min(start+m.perPage, len(m.recordings))

	for i := start; i < end; i++ {
		rec := m.recordings[i]
		isSelected := i == m.selected

		title := Truncate(DisplayTitle(rec), titleWidth)
		titleCell := fmt.Sprintf("%-*s", titleWidth, title)
		if rec.Summary == "" {
			titleCell = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Italic(true).Render(titleCell)
		} else if isSelected {
			titleCell = m.shimmer.Render(title, titleWidth) + strings.Repeat(" ", titleWidth-len([]rune(title)))
		}

		row := fmt.Sprintf("%-*s %s %-*s %*s",
			idWidth, fmt.Sprintf("#%d", rec.ID),
			titleCell,
			createdWidth, lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorSecondaryText)).
				Render(rec.CreatedAt.Local().Format("03:04 PM")),
			durationWidth, FormatClock(rec.DurationSeconds))

		if isSelected {
			b.WriteString(lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorAccentMain)).
				Bold(true).
				Padding(0, 1).
				Render(row))
		} else {
			b.WriteString(" " + row)
		}
		b.WriteString("\n")
	}

	if m.perPage < len(m.recordings) {
		pages := (len(m.recordings) + m.perPage - 1) / m.perPage
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorHelpText)).
			Align(lipgloss.Center).
			Width(width - 2).
			MarginTop(1).
			Render(fmt.Sprintf("Page %d/%d (%d recordings)", m.currentPage+1, pages, len(m.recordings))))
	}
}

// renderPreview shows the selected recording's summary beside the table
func (m DashboardModel) renderPreview(width int) string {
	var b strings.Builder

	if m.selected >= len(m.recordings) {
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorAccentMain)).
			Bold(true).
			Align(lipgloss.Center).
			Width(width).
			Render("murmur"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true).
			Align(lipgloss.Center).
			Width(width).
			MarginTop(2).
			Render("Select a recording to preview it"))
	} else {
		rec := m.recordings[m.selected]

		b.WriteString(lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimaryText)).
			Width(width).
			Render("🎙  " + DisplayTitle(rec)))
		b.WriteString("\n\n")

		label := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
		b.WriteString(label.Render("Created: "))
		b.WriteString(rec.CreatedAt.Local().Format("Jan 02, 03:04 PM"))
		b.WriteString("\n")
		b.WriteString(label.Render("Length: "))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render(FormatClock(rec.DurationSeconds)))
		b.WriteString("\n")

		status, color := "enriched", ColorSuccess
		switch {
		case rec.Transcript == "":
			status, color = "transcribing", ColorWarning
		case rec.Summary == "":
			status, color = "summarizing", ColorWarning
		}
		b.WriteString(label.Render("Status: "))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(status))
		b.WriteString("\n")

		if rec.Summary != "" {
			b.WriteString("\nSummary:\n")
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorSecondaryText)).
				Italic(true).
				Width(width - 2).
				Render(rec.Summary))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width).
		Render(b.String())
}

func (m DashboardModel) renderHelpBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("↑/↓ nav · ←/→ page · enter open · q/esc quit")
}
