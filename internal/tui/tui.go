package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/murmur/internal/models"
)

var logoLines = []string{
	"███╗   ███╗██╗   ██╗██████╗ ███╗   ███╗██╗   ██╗██████╗ ",
	"████╗ ████║██║   ██║██╔══██╗████╗ ████║██║   ██║██╔══██╗",
	"██╔████╔██║██║   ██║██████╔╝██╔████╔██║██║   ██║██████╔╝",
	"██║╚██╔╝██║██║   ██║██╔══██╗██║╚██╔╝██║██║   ██║██╔══██╗",
	"██║ ╚═╝ ██║╚██████╔╝██║  ██║██║ ╚═╝ ██║╚██████╔╝██║  ██║",
	"╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═╝╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═╝",
}

// RunRecordTUI shows the live timer for an already started session and
// returns the saved recording once the user stops it
func RunRecordTUI(ctx context.Context, sess Session, startedAt time.Time) (*models.Recording, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewRecordModel(ctx, sess, startedAt), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	return finishRecord(ctx, sess, final, err)
}

// finishRecord maps how the timer exited to the saved recording. A kill from
// the signal context still stops the session so the capture is kept.
func finishRecord(ctx context.Context, sess Session, final tea.Model, err error) (*models.Recording, error) {
	if errors.Is(err, tea.ErrProgramKilled) {
		if m, ok := final.(RecordModel); ok && m.saved != nil {
			return m.saved, nil
		}
		return sess.RequestStop(context.WithoutCancel(ctx))
	}
	if err != nil {
		return nil, err
	}

	m := final.(RecordModel)
	return m.saved, m.err
}

// RunDashboardTUI shows the live recordings list until the user quits
func RunDashboardTUI(ctx context.Context, recordings RecordingSource, details DetailSource) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewDashboardModel(ctx, recordings, details), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := final.(DashboardModel); ok && m.err != nil {
		return m.err
	}
	return nil
}

// FormatClock renders seconds as mm:ss, minutes keep counting past an hour
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// DisplayTitle is what lists show for a record: its title once enrichment
// has finished, a processing marker before that
func DisplayTitle(rec models.Recording) string {
	if rec.Summary == "" {
		return "Processing..."
	}
	return rec.Title
}

// Truncate shortens s to width runes, ending in "..." when cut
func Truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
