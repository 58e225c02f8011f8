package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicinbox/inboxd/internal/agenda"
)

var deadlinesPastMonths int

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "Sync and print the calendar-bucketed deadline agenda",
	Long: `Show messages carrying a due date, grouped by calendar day. The view
starts at today; --past-months pages older months in, three at a time,
with explicit placeholders for months that have nothing due.`,
	RunE: runDeadlines,
}

func init() {
	deadlinesCmd.Flags().IntVar(&deadlinesPastMonths, "past-months", 0, "how many past months to include")
	rootCmd.AddCommand(deadlinesCmd)
}

func runDeadlines(cmd *cobra.Command, args []string) error {
	mgr, statuses, err := newManager()
	if err != nil {
		return err
	}
	defer statuses.Close()

	if _, err := mgr.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	pag := agenda.NewPaginator(time.Local, nil)
	pag.Rebuild(mgr.Snapshot())
	for paged := 0; paged < deadlinesPastMonths; paged += agenda.PastDataMonths {
		if result := pag.LoadMore(); !result.HasMore {
			break
		}
	}

	window := pag.Window()
	if len(window) == 0 {
		fmt.Println("No deadlines.")
		return nil
	}

	for _, section := range window {
		if section.Placeholder {
			fmt.Printf("%s: nothing due this month\n", section.Day.Format("January 2006"))
			continue
		}
		fmt.Printf("%s\n", section.Day.Format("Mon, 02 Jan 2006"))
		for _, item := range section.Items {
			marker := " "
			if !item.IsRead {
				marker = "*"
			}
			fmt.Printf("  %s %-28s  %s\n", marker, item.ID, item.Subject)
		}
	}

	if next := pag.NextDeadlineID(); next != "" {
		fmt.Printf("\nNext deadline: %s\n", next)
	}
	if pag.HasMore() {
		fmt.Println("Older deadlines available; raise --past-months to see them.")
	}
	return nil
}
