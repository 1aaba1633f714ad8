// Package classify implements the heuristic contact classifiers: junk
// detection, sensitive-data detection, and format-issue analysis.
package classify

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// TextAnalyzer answers Unicode questions about contact names. It is an
// interface so platforms with richer text facilities can substitute their
// own implementation at startup.
type TextAnalyzer interface {
	// IsEmojiOnly reports whether the string consists solely of emoji and
	// symbol clusters plus whitespace, with at least one emoji present.
	IsEmojiOnly(s string) bool

	// HasFancyFonts reports whether the string uses stylized Unicode
	// alphanumeric blocks (mathematical alphanumerics, fullwidth forms,
	// enclosed letters) in place of plain letters.
	HasFancyFonts(s string) bool
}

// UnicodeTextAnalyzer implements TextAnalyzer with Unicode range tables and
// grapheme-cluster segmentation.
type UnicodeTextAnalyzer struct{}

// NewUnicodeTextAnalyzer returns the default text analyzer.
func NewUnicodeTextAnalyzer() *UnicodeTextAnalyzer {
	return &UnicodeTextAnalyzer{}
}

var _ TextAnalyzer = (*UnicodeTextAnalyzer)(nil)

// emojiRanges covers the pictographic blocks contact names actually use.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x26FF, Stride: 1}, // miscellaneous symbols
		{Lo: 0x2700, Hi: 0x27BF, Stride: 1}, // dingbats
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1}, // arrows, stars
		{Lo: 0xFE0F, Hi: 0xFE0F, Stride: 1}, // variation selector-16
	},
	R32: []unicode.Range32{
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1}, // regional indicators
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1}, // symbols & pictographs
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1}, // emoticons
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1}, // transport
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1}, // supplemental pictographs
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1}, // symbols extended-A
	},
}

// fancyRanges covers stylized alphanumeric blocks used by "font" apps.
var fancyRanges = &unicode.RangeTable{
	// Ranges must stay sorted ascending; unicode.Is binary-searches them.
	R16: []unicode.Range16{
		{Lo: 0x2460, Hi: 0x24FF, Stride: 1}, // enclosed alphanumerics
		{Lo: 0xFF10, Hi: 0xFF19, Stride: 1}, // fullwidth 0-9
		{Lo: 0xFF21, Hi: 0xFF3A, Stride: 1}, // fullwidth A-Z
		{Lo: 0xFF41, Hi: 0xFF5A, Stride: 1}, // fullwidth a-z
	},
	R32: []unicode.Range32{
		{Lo: 0x1D400, Hi: 0x1D7FF, Stride: 1}, // mathematical alphanumerics
		{Lo: 0x1F110, Hi: 0x1F189, Stride: 1}, // enclosed alphanumeric supplement
	},
}

// IsEmojiOnly walks grapheme clusters so multi-rune emoji (flags, ZWJ
// sequences, skin tones) count as a single unit.
func (a *UnicodeTextAnalyzer) IsEmojiOnly(s string) bool {
	sawEmoji := false
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		runes := g.Runes()
		if len(runes) == 0 {
			continue
		}
		if len(runes) == 1 && unicode.IsSpace(runes[0]) {
			continue
		}
		if clusterIsEmoji(runes) {
			sawEmoji = true
			continue
		}
		if clusterIsSymbol(runes) {
			continue
		}
		return false
	}
	return sawEmoji
}

func clusterIsEmoji(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(emojiRanges, r) {
			return true
		}
	}
	return false
}

func clusterIsSymbol(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// HasFancyFonts reports stylized alphanumerics anywhere in the string.
func (a *UnicodeTextAnalyzer) HasFancyFonts(s string) bool {
	for _, r := range s {
		if unicode.Is(fancyRanges, r) {
			return true
		}
	}
	return false
}

// hasAlphanumeric reports whether any rune is a letter or digit.
func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// isDigitsOnly reports whether s is non-empty and entirely ASCII digits.
func isDigitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
