package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listArchived bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Sync and print the inbox, newest first",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "include archived messages")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	mgr, statuses, err := newManager()
	if err != nil {
		return err
	}
	defer statuses.Close()

	if _, err := mgr.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	snap := mgr.Snapshot()
	shown := 0
	for _, item := range snap.Items {
		if item.Status.IsArchived && !listArchived {
			continue
		}
		marker := " "
		if !item.Status.IsRead {
			marker = "*"
		}
		subject := "(content not loaded)"
		if content, ok := item.Content.Value(); ok {
			subject = content.Subject
		} else if item.Content.IsError() {
			subject = "(fetch failed)"
		}
		service := item.Meta.SenderServiceID
		if svc, ok := snap.Services[item.Meta.SenderServiceID].Value(); ok {
			service = svc.OrganizationName
		}
		fmt.Printf("%s %-28s  %-30s  %s\n", marker, item.Meta.ID, service, subject)
		shown++
	}
	if shown == 0 {
		fmt.Println("No messages.")
	}
	return nil
}
