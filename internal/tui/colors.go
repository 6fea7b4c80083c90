package tui

// Color constants for the murmur TUI theme
const (
	// Base Colors
	ColorBorder = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Titles, transcript and summary body
	ColorSecondaryText = "#B1B8C7" // Timestamps, durations, hints
	ColorDisabledText  = "#6D7383" // Muted text
	ColorHelpText      = "240"     // Dark grey for help text

	// Accent Colors
	ColorAccentMain   = "#7C3AED" // Logo, active borders
	ColorAccentBright = "#A78BFA" // Highlights, clock digits

	// State Colors
	ColorError    = "#EF4444"
	ColorSuccess  = "#22C55E"
	ColorWarning  = "#F59E0B" // Processing placeholders
	ColorRecordOn = "#F43F5E" // Live recording indicator
)
