package tui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ShimmerConfig controls the highlight that sweeps across the selected title
type ShimmerConfig struct {
	Enabled        bool
	ReduceMotion   bool    // static highlight instead of the sweep
	SpeedMs        int     // tick interval
	WidthRatio     float64 // highlight width relative to text length
	CycleMs        int     // time for one sweep
	PauseBetweenMs int
}

// DefaultShimmerConfig returns the shimmer used by the dashboard.
// MURMUR_REDUCE_MOTION=1 turns the sweep into a static highlight.
func DefaultShimmerConfig() ShimmerConfig {
	return ShimmerConfig{
		Enabled:        true,
		ReduceMotion:   os.Getenv("MURMUR_REDUCE_MOTION") == "1",
		SpeedMs:        100,
		WidthRatio:     0.25,
		CycleMs:        1800,
		PauseBetweenMs: 500,
	}
}

// ShimmerState is the position of one running shimmer
type ShimmerState struct {
	Config    ShimmerConfig
	Center    float64
	Active    bool
	TrueColor bool

	lastUpdate time.Time
	paused     bool
	pauseStart time.Time
}

type shimmerTickMsg struct{}

func NewShimmerState(config ShimmerConfig) *ShimmerState {
	return &ShimmerState{
		Config:     config,
		Active:     config.Enabled && !config.ReduceMotion,
		TrueColor:  os.Getenv("COLORTERM") == "truecolor",
		lastUpdate: time.Now(),
	}
}

// Advance moves the highlight for text of the given length
func (s *ShimmerState) Advance(textLen int, now time.Time) {
	if !s.Active || textLen <= 0 {
		return
	}
	if now.Sub(s.lastUpdate) < time.Duration(s.Config.SpeedMs)*time.Millisecond {
		return
	}
	s.lastUpdate = now

	if s.paused {
		if now.Sub(s.pauseStart) >= time.Duration(s.Config.PauseBetweenMs)*time.Millisecond {
			s.paused = false
			s.Center = -float64(textLen) * s.Config.WidthRatio
		}
		return
	}

	// Travel past both ends so the highlight enters and leaves cleanly
	ticksPerCycle := float64(s.Config.CycleMs) / float64(s.Config.SpeedMs)
	distance := float64(textLen) * (1 + 2*s.Config.WidthRatio)
	s.Center += distance / ticksPerCycle

	end := float64(textLen) * (1 + s.Config.WidthRatio)
	if s.Center >= end {
		s.Center = end
		s.paused = true
		s.pauseStart = now
	}
}

// Reset restarts the sweep, used when the selection changes
func (s *ShimmerState) Reset() {
	s.Center = 0
	s.lastUpdate = time.Now()
	s.paused = false
}

func (s *ShimmerState) SetActive(active bool) {
	s.Active = active && s.Config.Enabled && !s.Config.ReduceMotion
}

// Tick schedules the next animation frame, nil when the shimmer is idle
func (s *ShimmerState) Tick() tea.Cmd {
	if !s.Active {
		return nil
	}
	return tea.Tick(time.Duration(s.Config.SpeedMs)*time.Millisecond, func(time.Time) tea.Msg {
		return shimmerTickMsg{}
	})
}

// Render truncates text to maxWidth and paints the highlight over it
func (s *ShimmerState) Render(text string, maxWidth int) string {
	text = Truncate(text, maxWidth)
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	s.Advance(len(runes), time.Now())

	if !s.Active {
		return fmt.Sprintf("\033[38;2;167;139;250m%s\033[0m", text)
	}
	if !s.TrueColor {
		return s.renderFallback(runes)
	}

	base := [3]float64{177, 184, 199}  // #B1B8C7
	light := [3]float64{234, 230, 255} // #EAE6FF
	sigma := math.Max(1, s.Config.WidthRatio*float64(len(runes))/2)

	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.Center
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		fmt.Fprintf(&b, "\033[38;2;%d;%d;%dm%c",
			int(base[0]*(1-w)+light[0]*w),
			int(base[1]*(1-w)+light[1]*w),
			int(base[2]*(1-w)+light[2]*w),
			r)
	}
	b.WriteString("\033[0m")
	return b.String()
}

// renderFallback highlights a band of characters using the 256-color palette
func (s *ShimmerState) renderFallback(runes []rune) string {
	width := max(1, int(s.Config.WidthRatio*float64(len(runes))))
	start := int(s.Center) - width/2

	var b strings.Builder
	for i, r := range runes {
		if i >= start && i < start+width {
			fmt.Fprintf(&b, "\033[38;5;147m%c", r)
		} else {
			fmt.Fprintf(&b, "\033[38;5;250m%c", r)
		}
	}
	b.WriteString("\033[0m")
	return b.String()
}
