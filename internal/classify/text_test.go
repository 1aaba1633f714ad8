package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmojiOnly(t *testing.T) {
	a := NewUnicodeTextAnalyzer()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"single emoji", "😀", true},
		{"multiple emoji", "😀🚀⭐", true},
		{"emoji with spaces", "😀 🚀", true},
		{"flag sequence", "🇳🇬", true},
		{"zwj family", "👨‍👩‍👧", true},
		{"emoji plus letters", "😀 hi", false},
		{"plain name", "Jane", false},
		{"symbols without emoji", "!!!", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.IsEmojiOnly(tt.in))
		})
	}
}

func TestHasFancyFonts(t *testing.T) {
	a := NewUnicodeTextAnalyzer()

	assert.True(t, a.HasFancyFonts("\U0001d400\U0001d401"))    // mathematical bold AB
	assert.True(t, a.HasFancyFonts("ＪＡＮＥ"))                    // fullwidth upper
	assert.True(t, a.HasFancyFonts("ｊａｎｅ"))                    // fullwidth lower
	assert.True(t, a.HasFancyFonts("ＪＡＮＥ　００７"))                 // fullwidth digits
	assert.True(t, a.HasFancyFonts("Ⓙⓐⓝⓔ"))                    // enclosed
	assert.True(t, a.HasFancyFonts("plain with one ⓐ inside")) // mixed
	assert.False(t, a.HasFancyFonts("Jane Doe"))
	assert.False(t, a.HasFancyFonts("José Müller"))
	assert.False(t, a.HasFancyFonts(""))
}
