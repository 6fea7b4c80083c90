package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/models"
	"github.com/balkashynov/murmur/internal/tui"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List recordings",
	Long: `List recordings newest first. Opens a live dashboard by default; selecting a
recording shows its summary and transcript and starts enrichment if needed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		noUI, _ := cmd.Flags().GetBool("no-ui")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(appOptions{})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()
		ctx := a.context(cmd.Context())

		if !noUI && !asJSON {
			a.pipeline.Start(ctx)
			if err := tui.RunDashboardTUI(ctx, a.store, a.controller); err != nil {
				printErr(ctx, "Dashboard failed", err)
			}
			return
		}

		recs, err := a.store.List(ctx)
		if err != nil {
			printErr(ctx, "Failed to list recordings", err)
			return
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(recs); err != nil {
				printErr(ctx, "Failed to encode recordings", err)
			}
			return
		}

		if len(recs) == 0 {
			fmt.Println("No recordings yet. Use 'murmur record' to capture your first voice note.")
			return
		}

		fmt.Printf("%-5s %-40s %-17s %-6s %s\n", "ID", "TITLE", "CREATED", "LENGTH", "STATUS")
		fmt.Println(strings.Repeat("-", 90))

		for _, rec := range recs {
			fmt.Println(listRow(rec))
		}
	},
}

// listRow formats one recording for the plain-text table
func listRow(rec models.Recording) string {
	return fmt.Sprintf("%-5d %-40s %-17s %-6s %s",
		rec.ID,
		tui.Truncate(tui.DisplayTitle(rec), 38),
		rec.CreatedAt.Local().Format("Jan 02 03:04 PM"),
		tui.FormatClock(rec.DurationSeconds),
		enrich.Describe(rec))
}

func init() {
	listCmd.Flags().Bool("no-ui", false, "Simple text output")
	listCmd.Flags().Bool("json", false, "JSON output")
}
