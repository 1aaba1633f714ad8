package classify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidylist/contactscan/internal/model"
)

func newTestClassifier() *JunkClassifier {
	return NewJunkClassifier(NewUnicodeTextAnalyzer())
}

func TestJunkType_RulePriority(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name       string
		cname      string
		normalized string
		want       model.JunkType
		isJunk     bool
	}{
		{"blank entry", "", "", model.JunkBlank, true},
		{"whitespace name no number", "   ", "", model.JunkBlank, true},
		{"invalid chars", "Bob", "0801#2345", model.JunkInvalidChars, true},
		{"too short", "Bob", "12345", model.JunkTooShort, true},
		{"too long", "Bob", "12345678901234567890", model.JunkTooLong, true},
		{"repetitive single digit", "Bob", "1111111111", model.JunkRepetitive, true},
		{"repetitive two digits", "Bob", "1212121212", model.JunkRepetitive, true},
		{"symbol name", "!!!", "+2348012345678", model.JunkSymbolName, true},
		{"emoji name", "😀😀", "+2348012345678", model.JunkEmojiName, true},
		{"numeric name", "12345", "+2348012345678", model.JunkNumericName, true},
		{"clean contact", "Jane Doe", "+2348012345678", "", false},
		{"name only", "Jane Doe", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.JunkType(tt.cname, tt.normalized)
			assert.Equal(t, tt.isJunk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJunkType_ValidLengthNeverFlagged(t *testing.T) {
	c := newTestClassifier()

	// 7 to 15 digits, digits plus optional leading '+': never short, long
	// or invalid.
	for digits := 7; digits <= 15; digits++ {
		for _, prefix := range []string{"", "+"} {
			num := prefix + "1234567890123456"[:digits]
			got, ok := c.JunkType("Jane", num)
			if ok {
				assert.NotContains(t,
					[]model.JunkType{model.JunkTooShort, model.JunkTooLong, model.JunkInvalidChars},
					got,
					"number %q", num)
			}
		}
	}
}

func TestJunkType_FancyFontName(t *testing.T) {
	c := newTestClassifier()

	// Mathematical bold "John".
	fancy := "\U0001d40a\U0001d428\U0001d421\U0001d427"
	got, ok := c.JunkType(fancy, "+2348012345678")
	require.True(t, ok)
	assert.Equal(t, model.JunkFancyFont, got)
}

func TestJunkType_OversizedFields(t *testing.T) {
	c := newTestClassifier()

	got, ok := c.JunkType("Bob", strings.Repeat("1", 2000))
	require.True(t, ok)
	assert.Equal(t, model.JunkTooLong, got)

	// An oversized name skips the name rules rather than burning cycles on
	// grapheme analysis.
	_, ok = c.JunkType(strings.Repeat("!", 2000), "+2348012345678")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	c := newTestClassifier()

	junk := c.Classify(model.Contact{
		ID:               7,
		Name:             "Bob",
		Numbers:          []string{"123 45"},
		NormalizedNumber: "12345",
	})
	require.NotNil(t, junk)
	assert.Equal(t, int64(7), junk.ID)
	assert.Equal(t, "123 45", junk.Number)
	assert.Equal(t, model.JunkTooShort, junk.Type)

	assert.Nil(t, c.Classify(model.Contact{
		ID:               8,
		Name:             "Jane Doe",
		Numbers:          []string{"+2348012345678"},
		NormalizedNumber: "+2348012345678",
	}))
}

func TestIsRepetitive(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"1111", true},
		{"121212", true},
		{"12121", false}, // below the length floor for two-digit repetition
		{"1234567", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.digits), func(t *testing.T) {
			assert.Equal(t, tt.want, isRepetitive(tt.digits))
		})
	}
}
