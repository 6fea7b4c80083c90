package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/balkashynov/murmur/internal/audio"
	"github.com/balkashynov/murmur/internal/db"
	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/logger"
	"github.com/balkashynov/murmur/internal/tui"
)

var showCmd = &cobra.Command{
	Use:   "show [recording-id]",
	Short: "Show a recording's summary, transcript and audio details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseRecordingID(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		a, err := newApp(appOptions{})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()
		ctx := a.context(cmd.Context())

		rec, err := a.store.Get(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			fmt.Printf("Error: recording #%d not found\n", id)
			return
		}
		if err != nil {
			printErr(ctx, "Failed to load recording", err)
			return
		}

		fmt.Printf("🎙  #%d %s\n", rec.ID, tui.DisplayTitle(rec))
		fmt.Printf("Created: %s\n", rec.CreatedAt.Local().Format("Jan 02, 2006 03:04 PM"))
		fmt.Printf("Length: %s\n", tui.FormatClock(rec.DurationSeconds))
		fmt.Printf("Status: %s\n", enrich.Describe(rec))
		fmt.Printf("Audio: %s\n", rec.FilePath)

		info, err := audio.Inspect(rec.FilePath)
		switch {
		case errors.Is(err, audio.ErrEmptyAudio):
			fmt.Println("Format: no audio captured")
		case err != nil:
			logger.Warn(ctx, "Failed to inspect audio", "recordingID", id, "error", err)
			fmt.Printf("Format: unavailable (%v)\n", err)
		default:
			fmt.Printf("Format: %d Hz, %d channel(s), %d-bit, %.1fs\n",
				info.SampleRate, info.Channels, info.BitsPerSample, info.Duration.Seconds())
		}

		fmt.Println("\nSummary:")
		if rec.Summary == "" {
			fmt.Println("  Processing...")
		} else {
			fmt.Printf("  %s\n", rec.Summary)
		}

		fmt.Println("\nTranscript:")
		if rec.Transcript == "" {
			fmt.Println("  Processing...")
		} else {
			fmt.Printf("  %s\n", rec.Transcript)
		}

		if !rec.Enriched() {
			fmt.Printf("\n💡 Run 'murmur enrich %d' to finish processing\n", rec.ID)
		}
	},
}

func parseRecordingID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid recording ID '%s'", s)
	}
	return uint(id), nil
}
