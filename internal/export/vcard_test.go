package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tidylist/contactscan/internal/model"
)

func TestContactsToVCard(t *testing.T) {
	out := ContactsToVCard([]model.Contact{
		{Name: "Doe; Jane", Numbers: []string{"+2348012345678"}, Emails: []string{"jane@example.com"}},
	})

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCARD\r\nVERSION:3.0\r\n"))
	assert.Contains(t, out, `FN:Doe\; Jane`)
	assert.Contains(t, out, "TEL:+2348012345678\r\n")
	assert.Contains(t, out, "EMAIL:jane@example.com\r\n")
	assert.True(t, strings.HasSuffix(out, "END:VCARD\r\n"))
}

func TestEscapeVCardValue(t *testing.T) {
	assert.Equal(t, `a\\b`, escapeVCardValue(`a\b`))
	assert.Equal(t, `a\,b\;c`, escapeVCardValue("a,b;c"))
	assert.Equal(t, `a\nb`, escapeVCardValue("a\nb"))
}
