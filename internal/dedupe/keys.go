// Package dedupe groups contacts into duplicate sets using multi-key
// indexes and picks merge survivors.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameFolder strips diacritics so "José" and "Jose" share a key.
var nameFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName produces the canonical name key: trimmed, lower-cased,
// diacritic-folded, inner whitespace collapsed.
func FoldName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return ""
	}
	if folded, _, err := transform.String(nameFolder, name); err == nil {
		name = folded
	}
	return strings.Join(strings.Fields(name), " ")
}

// FoldEmail produces the canonical email key.
func FoldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// accountIdentity collapses a contact's source account into one comparable
// string.
func accountIdentity(accountType, accountName string) string {
	return accountType + "\x00" + accountName
}
