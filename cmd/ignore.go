package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tidylist/contactscan/internal/model"
)

var (
	ignoreName   string
	ignoreReason string
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage the safe list of contacts excluded from scanning",
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <id-or-number>",
	Short: "Add a contact to the safe list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		entry := model.IgnoredContact{
			ID:          args[0],
			DisplayName: ignoreName,
			Reason:      ignoreReason,
			Timestamp:   time.Now().UTC(),
		}
		if err := s.AddIgnored(ctx, entry); err != nil {
			return err
		}
		zap.L().Info("safe list entry added", zap.String("id", entry.ID))
		return nil
	},
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove <id-or-number>",
	Short: "Remove a contact from the safe list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.RemoveIgnored(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("safe list entry removed", zap.String("id", args[0]))
		return nil
	},
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List safe-list entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.ListIgnored(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Safe list is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-24s %-20s %s\n", e.ID, e.DisplayName, e.Reason)
		}
		return nil
	},
}

func init() {
	ignoreAddCmd.Flags().StringVar(&ignoreName, "name", "", "display name for the entry")
	ignoreAddCmd.Flags().StringVar(&ignoreReason, "reason", "", "why the contact is safe-listed")
	ignoreCmd.AddCommand(ignoreAddCmd, ignoreRemoveCmd, ignoreListCmd)
	rootCmd.AddCommand(ignoreCmd)
}
