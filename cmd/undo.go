package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var undoSnapshotID string

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Restore the contacts of a snapshot (latest by default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		eng := buildEngine(s)
		restored, err := eng.executor.Undo(ctx, undoSnapshotID)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d contacts\n", restored)
		return nil
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List undo snapshots, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		eng := buildEngine(s)
		snaps, err := eng.ledger.List(ctx, 0)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots")
			return nil
		}
		for _, snap := range snaps {
			fmt.Printf("%s  %-6s  %4d contacts  %s  %s\n",
				snap.Timestamp.Format("2006-01-02 15:04:05"),
				snap.ActionType,
				len(snap.Contacts),
				snap.ID,
				snap.Description,
			)
		}
		return nil
	},
}

func init() {
	undoCmd.Flags().StringVar(&undoSnapshotID, "snapshot", "", "snapshot id to restore (default: latest)")
	rootCmd.AddCommand(undoCmd, snapshotsCmd)
}
