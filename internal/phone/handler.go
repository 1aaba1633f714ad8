// Package phone provides region-aware phone number canonicalization.
//
// The Handler contract is the platform seam: the engine depends on the
// interface, and the libphonenumber-backed implementation is injected at
// startup.
package phone

import (
	"strings"

	"github.com/tidylist/contactscan/internal/model"
)

// maxParseLen bounds the cleaned number length accepted by the parser.
// Longer inputs skip parsing entirely and fall back to the cleaned form.
const maxParseLen = 64

// Handler parses and canonicalizes phone numbers.
type Handler interface {
	// NormalizeToE164 canonicalizes a raw number. It never fails: on
	// unparseable input it returns the cleaned form of the input (digits
	// plus any leading '+'), which is empty only when the input contains no
	// digits. The result is a pure function of the input and region, and
	// normalizing its own output returns the same value.
	NormalizeToE164(raw, defaultRegion string) string

	// IsValidNumber reports whether the region-specific parser accepts the
	// number as a plausible subscriber number.
	IsValidNumber(number, region string) bool

	// AnalyzeFormatIssue suggests a fix for a number missing its
	// international prefix. It returns nil unless restoring the prefix
	// reproduces the original digits exactly; it never guesses.
	AnalyzeFormatIssue(raw, defaultRegion string) *model.FormatIssue
}

// Clean strips everything except digits and a single leading '+'.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DigitsOnly strips everything except ASCII digits.
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
