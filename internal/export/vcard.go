package export

import (
	"strings"

	"github.com/tidylist/contactscan/internal/model"
)

// escapeVCardValue escapes per RFC 6350: backslash first, then comma,
// semicolon and newline.
func escapeVCardValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ",", `\,`)
	value = strings.ReplaceAll(value, ";", `\;`)
	value = strings.ReplaceAll(value, "\r\n", `\n`)
	value = strings.ReplaceAll(value, "\n", `\n`)
	return value
}

// ContactsToVCard renders contacts as a VERSION:3.0 vCard stream, one card
// per contact.
func ContactsToVCard(contacts []model.Contact) string {
	var b strings.Builder
	for _, c := range contacts {
		b.WriteString("BEGIN:VCARD\r\n")
		b.WriteString("VERSION:3.0\r\n")
		b.WriteString("FN:" + escapeVCardValue(c.Name) + "\r\n")
		for _, n := range c.Numbers {
			b.WriteString("TEL:" + escapeVCardValue(n) + "\r\n")
		}
		for _, e := range c.Emails {
			b.WriteString("EMAIL:" + escapeVCardValue(e) + "\r\n")
		}
		b.WriteString("END:VCARD\r\n")
	}
	return b.String()
}
