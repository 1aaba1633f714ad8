package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/scan"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Apply cleanup operations (a snapshot is taken before any change)",
}

var cleanJunkCmd = &cobra.Command{
	Use:   "junk",
	Short: "Delete contacts flagged as junk",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCleanup(cmd.Context(), func(eng *engine, report *scan.Report) (<-chan model.CleanupStatus, error) {
			var targets []model.Contact
			for _, c := range report.Contacts {
				if c.IsJunk {
					targets = append(targets, c)
				}
			}
			if len(targets) == 0 {
				return nil, eris.New("no junk contacts found")
			}
			return eng.executor.Delete(cmd.Context(), targets)
		})
	},
}

var cleanDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Merge duplicate groups into their richest member",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCleanup(cmd.Context(), func(eng *engine, report *scan.Report) (<-chan model.CleanupStatus, error) {
			// Cross-account groups may overlap the exact tiers; merging them
			// in the same pass could touch an already-deleted contact.
			var groups []model.DuplicateGroup
			for _, g := range report.DuplicateGroups {
				if g.DuplicateType != model.DupCrossAccount {
					groups = append(groups, g)
				}
			}
			if len(groups) == 0 {
				return nil, eris.New("no duplicate groups found")
			}
			return eng.executor.Merge(cmd.Context(), groups)
		})
	},
}

var cleanFormatCmd = &cobra.Command{
	Use:   "format",
	Short: "Rewrite numbers that are missing their international prefix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCleanup(cmd.Context(), func(eng *engine, report *scan.Report) (<-chan model.CleanupStatus, error) {
			var targets []model.Contact
			for _, c := range report.Contacts {
				if c.FormatIssue != nil {
					targets = append(targets, c)
				}
			}
			if len(targets) == 0 {
				return nil, eris.New("no format issues found")
			}
			return eng.executor.Standardize(cmd.Context(), targets)
		})
	},
}

// runCleanup scans first, then hands the report to the selected operation
// and drains its status stream.
func runCleanup(ctx context.Context, op func(*engine, *scan.Report) (<-chan model.CleanupStatus, error)) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	eng := buildEngine(s)
	statuses, err := eng.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	for status := range statuses {
		if st, ok := status.(model.ScanError); ok {
			return fmt.Errorf("scan failed: %s", st.Message)
		}
	}
	report := eng.pipeline.Report()
	if report == nil {
		return eris.New("scan produced no report")
	}

	cleanups, err := op(eng, report)
	if err != nil {
		return err
	}
	for status := range cleanups {
		switch st := status.(type) {
		case model.CleanupProgress:
			if st.Warning != "" {
				fmt.Printf("warning: %s\n", st.Warning)
			}
			if st.Total > 0 && st.Processed > 0 {
				fmt.Printf("\r%-60s", st.Message)
			}
		case model.CleanupSuccess:
			fmt.Printf("\n%s\n", st.Message)
		case model.CleanupError:
			fmt.Println()
			return fmt.Errorf("cleanup failed: %s", st.Message)
		}
	}
	return nil
}

func init() {
	cleanCmd.AddCommand(cleanJunkCmd, cleanDuplicatesCmd, cleanFormatCmd)
	rootCmd.AddCommand(cleanCmd)
}
