// Package export renders contact sets to interchange formats (CSV, vCard,
// XLSX) with injection-safe escaping.
package export

import (
	"strings"

	"github.com/tidylist/contactscan/internal/model"
)

// EscapeCSVValue makes a value safe for spreadsheet consumption. Values
// starting with '=', '+', '-' or '@' get a literal apostrophe prefix so
// spreadsheet applications never evaluate them as formulas; then standard
// RFC-4180 quoting applies when the value contains a comma, quote or
// newline.
func EscapeCSVValue(value string) string {
	if value != "" {
		switch value[0] {
		case '=', '+', '-', '@':
			value = "'" + value
		}
	}
	if strings.ContainsAny(value, ",\"\n\r") {
		value = `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// ContactsToCSV renders contacts as CSV with a header row. Every field goes
// through EscapeCSVValue, including phone numbers whose leading '+' would
// otherwise be formula-prefixed silently by spreadsheet tools.
func ContactsToCSV(contacts []model.Contact) string {
	var b strings.Builder
	b.WriteString("Name,Phone Numbers,Emails\n")
	for _, c := range contacts {
		b.WriteString(EscapeCSVValue(c.Name))
		b.WriteByte(',')
		b.WriteString(EscapeCSVValue(strings.Join(c.Numbers, "; ")))
		b.WriteByte(',')
		b.WriteString(EscapeCSVValue(strings.Join(c.Emails, "; ")))
		b.WriteByte('\n')
	}
	return b.String()
}
