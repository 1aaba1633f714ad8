package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidylist/contactscan/internal/model"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the contact store for junk, duplicates, sensitive data and format issues",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

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
			switch st := status.(type) {
			case model.ScanProgress:
				fmt.Printf("\r%-60s", fmt.Sprintf("[%3.0f%%] %s", st.Fraction*100, st.Message))
			case model.ScanSuccess:
				fmt.Println()
				printScanResult(st.Result)
			case model.ScanError:
				fmt.Println()
				return fmt.Errorf("scan failed: %s", st.Message)
			}
		}
		return nil
	},
}

func printScanResult(r model.ScanResult) {
	fmt.Printf("Scanned %d contacts across %d accounts\n", r.Total, r.AccountCount)
	fmt.Printf("  Junk:            %d\n", r.JunkCount)
	if r.JunkCount > 0 {
		for _, row := range []struct {
			label string
			count int
		}{
			{"blank", r.BlankCount},
			{"invalid chars", r.InvalidCharCount},
			{"too short", r.ShortNumberCount},
			{"too long", r.LongNumberCount},
			{"repetitive", r.RepetitiveCount},
			{"symbol name", r.SymbolNameCount},
			{"emoji name", r.EmojiNameCount},
			{"fancy font", r.FancyFontCount},
			{"numeric name", r.NumericNameCount},
		} {
			if row.count > 0 {
				fmt.Printf("    %-15s %d\n", row.label, row.count)
			}
		}
	}
	fmt.Printf("  Duplicate groups: %d (number %d, email %d, name %d, similar %d, cross-account %d)\n",
		r.DuplicateCount, r.NumberDuplicateCount, r.EmailDuplicateCount,
		r.NameDuplicateCount, r.SimilarNameCount, r.CrossAccountDupeCount)
	fmt.Printf("  Sensitive:        %d\n", r.SensitiveCount)
	fmt.Printf("  Format issues:    %d\n", r.FormatIssueCount)
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
