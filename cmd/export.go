package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tidylist/contactscan/internal/export"
	"github.com/tidylist/contactscan/internal/model"
)

var (
	exportOutPath string
	exportFormat  string
)

// exportPageSize bounds each read while draining the store.
const exportPageSize = 1000

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all contacts to CSV, vCard or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var contacts []model.Contact
		for offset := 0; ; offset += exportPageSize {
			batch, err := s.ListContacts(ctx, offset, exportPageSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				break
			}
			contacts = append(contacts, batch...)
		}

		switch strings.ToLower(exportFormat) {
		case "csv":
			err = os.WriteFile(exportOutPath, []byte(export.ContactsToCSV(contacts)), 0o644)
		case "vcard", "vcf":
			err = os.WriteFile(exportOutPath, []byte(export.ContactsToVCard(contacts)), 0o644)
		case "xlsx":
			err = export.ContactsToXLSX(contacts, exportOutPath)
		default:
			return eris.Errorf("unknown export format %q (csv, vcard, xlsx)", exportFormat)
		}
		if err != nil {
			return eris.Wrapf(err, "export to %s", exportOutPath)
		}

		zap.L().Info("export complete",
			zap.Int("contacts", len(contacts)),
			zap.String("format", exportFormat),
			zap.String("path", exportOutPath),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "", "output file path (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv, vcard or xlsx")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
