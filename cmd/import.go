package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tidylist/contactscan/internal/importer"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import contacts from a CSV or plain-text number list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importFilePath)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFilePath)
		}

		res := importer.NewParser().Parse(string(data), importFilePath)
		if len(res.Contacts) == 0 {
			return eris.Errorf("no contacts found in %s (%d lines skipped)", importFilePath, res.SkippedLines)
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		ids, err := s.InsertContacts(ctx, res.Contacts)
		if err != nil {
			return eris.Wrap(err, "import contacts")
		}

		zap.L().Info("import complete",
			zap.Int("imported", len(ids)),
			zap.Int("skipped_lines", res.SkippedLines),
			zap.String("file", importFilePath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to CSV or text file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
