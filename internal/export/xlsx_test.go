package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/tidylist/contactscan/internal/model"
)

func TestContactsToXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xlsx")

	err := ContactsToXLSX([]model.Contact{
		{Name: "Jane Doe", Numbers: []string{"+2348012345678"}, Emails: []string{"jane@example.com"}},
		{Name: "Bob", Numbers: []string{"08012345678", "08098765432"}},
	}, path)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Contacts", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Name", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Jane Doe", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "+2348012345678", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "08012345678; 08098765432", sheet.Rows[2].Cells[1].String())
}
