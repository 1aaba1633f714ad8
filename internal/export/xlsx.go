package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/tidylist/contactscan/internal/model"
)

// ContactsToXLSX writes contacts to a spreadsheet at path, one row per
// contact. Cell values are stored as strings so phone numbers keep their
// leading '+' and zero padding.
func ContactsToXLSX(contacts []model.Contact, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contacts")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, title := range []string{"Name", "Phone Numbers", "Emails"} {
		header.AddCell().SetString(title)
	}

	for _, c := range contacts {
		row := sheet.AddRow()
		row.AddCell().SetString(c.Name)
		row.AddCell().SetString(strings.Join(c.Numbers, "; "))
		row.AddCell().SetString(strings.Join(c.Emails, "; "))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
