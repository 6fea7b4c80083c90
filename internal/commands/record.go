package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/murmur/internal/capture"
	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/logger"
	"github.com/balkashynov/murmur/internal/models"
	"github.com/balkashynov/murmur/internal/session"
	"github.com/balkashynov/murmur/internal/tui"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a voice note",
	Long: `Record from the microphone until you stop. Opens a live timer by default.

Examples:
  murmur record               # Live timer, press s to stop and save
  murmur record --no-ui       # Record until Ctrl-C
  murmur record --for 30s     # Record for 30 seconds
  murmur record --enrich      # Transcribe and summarize right after saving`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		noUI, _ := cmd.Flags().GetBool("no-ui")
		limit, _ := cmd.Flags().GetDuration("for")
		enrichAfter, _ := cmd.Flags().GetBool("enrich")

		a, err := newApp(appOptions{})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(a.context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := a.controller.RequestStart(ctx); err != nil {
			printErr(ctx, "Failed to start recording", err)
			if errors.Is(err, capture.ErrInsufficientSpace) {
				fmt.Printf("Free up space in %s or lower capture.min_free_bytes\n", a.cfg.RecordingsDir)
			}
			return
		}
		startedAt := time.Now()

		var rec *models.Recording
		if noUI || limit > 0 {
			rec, err = recordHeadless(ctx, a.controller, limit)
		} else {
			rec, err = tui.RunRecordTUI(ctx, a.controller, startedAt)
		}
		if err != nil {
			printErr(ctx, "Recording failed", err)
			return
		}
		if rec == nil {
			fmt.Println("No recording saved")
			return
		}

		fmt.Printf("⏹️  Saved recording #%d (%s)\n", rec.ID, tui.FormatClock(rec.DurationSeconds))
		fmt.Printf("Audio: %s\n", rec.FilePath)

		if !enrichAfter {
			fmt.Printf("💡 Open it with 'murmur ls' or run 'murmur enrich %d' to transcribe now\n", rec.ID)
			return
		}
		enrichAndPrint(ctx, a, rec.ID)
	},
}

// recordHeadless waits for ctx to end (Ctrl-C or the --for limit), then saves
func recordHeadless(ctx context.Context, ctrl *session.Controller, limit time.Duration) (*models.Recording, error) {
	waitCtx := ctx
	if limit > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
		fmt.Printf("🎙  Recording for %s... press Ctrl-C to stop early\n", limit)
	} else {
		fmt.Println("🎙  Recording... press Ctrl-C to stop")
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	states := ctrl.Observe(watchCtx)

	for {
		select {
		case <-waitCtx.Done():
			return ctrl.RequestStop(context.WithoutCancel(ctx))
		case s, ok := <-states:
			if !ok {
				return nil, nil
			}
			if !s.Recording && s.Failure != "" {
				return nil, errors.New(s.Failure)
			}
			if s.Recording && s.ElapsedSeconds > 0 {
				logger.FromContext(ctx).Debug("Recording", "elapsedSeconds", s.ElapsedSeconds)
			}
		}
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the library and any running session",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(appOptions{})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()
		ctx := a.context(cmd.Context())

		state, err := fetchServerState(ctx, a.cfg.Server.Addr)
		switch {
		case err != nil:
			logger.Info(ctx, "No server reachable", "addr", a.cfg.Server.Addr, "error", err)
			fmt.Printf("No murmur server running at %s\n", a.cfg.Server.Addr)
		case state.Recording:
			fmt.Printf("🎙  Recording in progress: %s elapsed\n", tui.FormatClock(state.ElapsedSeconds))
		case state.Failure != "":
			fmt.Printf("⚠️  Last session failed: %s\n", state.Failure)
		default:
			fmt.Println("No active recording session")
		}

		recs, err := a.store.List(ctx)
		if err != nil {
			printErr(ctx, "Failed to list recordings", err)
			return
		}

		var enriched, total int
		for _, rec := range recs {
			total += rec.DurationSeconds
			if rec.Enriched() {
				enriched++
			}
		}
		fmt.Printf("Recordings: %d (%d enriched, %d pending)\n", len(recs), enriched, len(recs)-enriched)
		fmt.Printf("Total audio: %s\n", formatDuration(time.Duration(total)*time.Second))
		if len(recs) > 0 {
			last := recs[0]
			fmt.Printf("Latest: #%d %s, %s\n", last.ID, tui.DisplayTitle(last), enrich.Describe(last))
		}
	},
}

// fetchServerState asks a running `murmur serve` for its session state
func fetchServerState(ctx context.Context, addr string) (session.State, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var state session.State
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/session", nil)
	if err != nil {
		return state, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return state, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return state, fmt.Errorf("server returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return state, fmt.Errorf("decode session state: %w", err)
	}
	return state, nil
}

func init() {
	recordCmd.Flags().Bool("no-ui", false, "Record without the interactive timer")
	recordCmd.Flags().Duration("for", 0, "Stop automatically after this long (implies --no-ui)")
	recordCmd.Flags().Bool("enrich", false, "Transcribe and summarize right after saving")
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	} else {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}
