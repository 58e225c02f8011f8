package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/civicinbox/inboxd/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Sync and search the inbox by free text",
	Long: `Search message subjects and bodies, plus the resolved sender service's
name and organization, with a case-insensitive substring match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	mgr, statuses, err := newManager()
	if err != nil {
		return err
	}
	defer statuses.Close()

	if _, err := mgr.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	snap := mgr.Snapshot()
	matches := search.Filter(snap, query)
	if len(matches) == 0 {
		fmt.Printf("No messages match %q.\n", query)
		return nil
	}

	for _, item := range matches {
		subject := ""
		if content, ok := item.Content.Value(); ok {
			subject = content.Subject
		}
		service := item.Meta.SenderServiceID
		if svc, ok := snap.Services[item.Meta.SenderServiceID].Value(); ok {
			service = svc.Name
		}
		fmt.Printf("%-28s  %-30s  %s\n", item.Meta.ID, service, subject)
	}
	fmt.Printf("\n%d message(s) match.\n", len(matches))
	return nil
}
