package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/logger"
	"github.com/balkashynov/murmur/internal/tui"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [recording-id]",
	Short: "Transcribe and summarize a recording now",
	Long: `Run enrichment synchronously. Stages that already completed are skipped, so this
also retries a recording whose transcription or summary failed earlier.

Examples:
  murmur enrich 42      # Enrich one recording
  murmur enrich --all   # Enrich every pending recording`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			fmt.Println("Error: give a recording ID or --all")
			return
		}

		a, err := newApp(appOptions{})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(a.context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !all {
			id, err := parseRecordingID(args[0])
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				return
			}
			enrichAndPrint(ctx, a, id)
			return
		}
		enrichPending(ctx, a)
	},
}

func enrichAndPrint(ctx context.Context, a *app, id uint) {
	fmt.Printf("⏳ Enriching recording #%d...\n", id)

	rec, err := a.pipeline.Run(ctx, id)
	if err != nil {
		printErr(ctx, "Enrichment failed", err)
		return
	}

	fmt.Printf("✅ #%d %s\n", rec.ID, rec.Title)
	fmt.Printf("Summary: %s\n", rec.Summary)
}

// enrichPending runs every unfinished recording, bounded by enrichment.workers
func enrichPending(ctx context.Context, a *app) {
	recs, err := a.store.List(ctx)
	if err != nil {
		printErr(ctx, "Failed to list recordings", err)
		return
	}

	var pending []uint
	for _, rec := range recs {
		if !rec.Enriched() {
			pending = append(pending, rec.ID)
		}
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to enrich, every recording is up to date")
		return
	}
	fmt.Printf("⏳ Enriching %d recording(s)...\n", len(pending))

	// Errors are kept per id, the group itself never fails
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Enrichment.Workers)

	results := make([]error, len(pending))
	for i, id := range pending {
		g.Go(func() error {
			_, err := a.pipeline.Run(gctx, id)
			results[i] = err
			return nil
		})
	}
	g.Wait()

	var failed int
	for i, id := range pending {
		if err := results[i]; err != nil {
			failed++
			logger.ErrorErr(ctx, "Enrichment failed", err, "recordingID", id)
			fmt.Printf("❌ #%d: %v\n", id, err)
			continue
		}
		rec, err := a.store.Get(ctx, id)
		if err != nil {
			continue
		}
		fmt.Printf("✅ #%d %s (%s)\n", id, tui.DisplayTitle(rec), enrich.Describe(rec))
	}
	fmt.Printf("Done: %d enriched, %d failed\n", len(pending)-failed, failed)
}

func init() {
	enrichCmd.Flags().Bool("all", false, "Enrich every pending recording")
}
