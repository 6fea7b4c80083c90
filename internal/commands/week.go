package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/murmur/internal/models"
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show recordings per day for a calendar week",
	Long: `Show how many voice notes were recorded each day of the calendar week and
how much audio they hold.

Example output:
  Day         Notes  Minutes  Enriched
  Mon Oct 13      2        7         2
  Tue Oct 14      -        -         -
  Wed Oct 15      1       12         0
  Total           3       19         2`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		weeksAgo, _ := cmd.Flags().GetInt("ago")
		if weeksAgo < 0 {
			fmt.Println("Error: --ago cannot be negative")
			return
		}

		a, err := newApp(appOptions{})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()
		ctx := a.context(cmd.Context())

		weekStart := getWeekStart(time.Now()).AddDate(0, 0, -7*weeksAgo)
		recs, err := a.store.ListRange(ctx, weekStart, weekStart.AddDate(0, 0, 7))
		if err != nil {
			printErr(ctx, "Failed to load recordings", err)
			return
		}

		if len(recs) == 0 {
			fmt.Println("No recordings this week.")
			return
		}
		displayWeek(summarizeWeek(recs, weekStart), weekStart)
	},
}

// dayTotals is one row of the weekly table
type dayTotals struct {
	Day      time.Time
	Notes    int
	Seconds  int
	Enriched int
}

// getWeekStart returns the start of the calendar week (Monday) for the given time
func getWeekStart(t time.Time) time.Time {
	weekday := t.Weekday()
	daysFromMonday := int(weekday - time.Monday)
	if weekday == time.Sunday {
		daysFromMonday = 6
	}

	weekStart := t.AddDate(0, 0, -daysFromMonday)
	return time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
}

// summarizeWeek buckets recordings into the seven local days starting at weekStart
func summarizeWeek(recs []models.Recording, weekStart time.Time) [7]dayTotals {
	var days [7]dayTotals
	for i := range days {
		days[i].Day = weekStart.AddDate(0, 0, i)
	}

	for _, rec := range recs {
		local := rec.CreatedAt.In(weekStart.Location())
		for i := range days {
			if local.Before(days[i].Day) || !local.Before(days[i].Day.AddDate(0, 0, 1)) {
				continue
			}
			days[i].Notes++
			days[i].Seconds += rec.DurationSeconds
			if rec.Enriched() {
				days[i].Enriched++
			}
			break
		}
	}
	return days
}

// minutes rounds up so a short note never shows as zero
func minutes(seconds int) int {
	return (seconds + 59) / 60
}

func displayWeek(days [7]dayTotals, weekStart time.Time) {
	fmt.Printf("%-12s %6s %8s %9s\n", "Day", "Notes", "Minutes", "Enriched")
	fmt.Println(strings.Repeat("-", 38))

	var total dayTotals
	for i, d := range days {
		// Weekends only show up when something was recorded
		if i >= 5 && d.Notes == 0 {
			continue
		}

		label := d.Day.Format("Mon Jan 02")
		if d.Notes == 0 {
			fmt.Printf("%-12s %6s %8s %9s\n", label, "-", "-", "-")
			continue
		}
		fmt.Printf("%-12s %6d %8d %9d\n", label, d.Notes, minutes(d.Seconds), d.Enriched)

		total.Notes += d.Notes
		total.Seconds += d.Seconds
		total.Enriched += d.Enriched
	}

	fmt.Println(strings.Repeat("-", 38))
	fmt.Printf("%-12s %6d %8d %9d\n", "Total", total.Notes, minutes(total.Seconds), total.Enriched)

	fmt.Printf("\nWeek of %s to %s\n",
		weekStart.Format("Jan 2"),
		weekStart.AddDate(0, 0, 6).Format("Jan 2, 2006"))
}

func init() {
	weekCmd.Flags().Int("ago", 0, "Show the week this many weeks back")
}
