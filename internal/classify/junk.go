package classify

import (
	"strings"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/phone"
)

const (
	// maxFieldLen guards the rule evaluation against adversarial inputs.
	// Anything longer is classified by length alone.
	maxFieldLen = 1000

	// minDigits and maxDigits bound a plausible subscriber number.
	// maxDigits is the E.164 limit.
	minDigits = 7
	maxDigits = 15

	// repetitiveMinLen and repetitiveDistinct define the repetition rule:
	// a number of at least repetitiveMinLen digits drawn from at most
	// repetitiveDistinct distinct digits is junk.
	repetitiveMinLen   = 6
	repetitiveDistinct = 2
)

// JunkClassifier flags low-value contact entries. Rules run in a fixed
// priority order and stop at the first match, so a contact gets at most one
// junk type.
type JunkClassifier struct {
	text TextAnalyzer
}

// NewJunkClassifier creates a junk classifier using the given text analyzer.
func NewJunkClassifier(text TextAnalyzer) *JunkClassifier {
	return &JunkClassifier{text: text}
}

// Classify returns the junk annotation for a contact, or nil when the
// contact matches no rule.
func (c *JunkClassifier) Classify(contact model.Contact) *model.JunkContact {
	junkType, ok := c.JunkType(contact.Name, contact.NormalizedNumber)
	if !ok {
		return nil
	}
	return &model.JunkContact{
		ID:     contact.ID,
		Name:   contact.Name,
		Number: contact.PrimaryNumber(),
		Type:   junkType,
	}
}

// JunkType evaluates the rules against a name and a normalized number.
func (c *JunkClassifier) JunkType(name, normalized string) (model.JunkType, bool) {
	name = strings.TrimSpace(name)

	// 1. Blank entry.
	if name == "" && normalized == "" {
		return model.JunkBlank, true
	}

	if normalized != "" {
		if len(normalized) > maxFieldLen {
			return model.JunkTooLong, true
		}

		// 2. The normalized form should contain nothing but digits and '+'.
		if !isCleanNumber(normalized) {
			return model.JunkInvalidChars, true
		}

		digits := phone.DigitsOnly(normalized)

		// 3-4. Digit count bounds.
		if len(digits) < minDigits {
			return model.JunkTooShort, true
		}
		if len(digits) > maxDigits {
			return model.JunkTooLong, true
		}

		// 5. Repetitive digits.
		if isRepetitive(digits) {
			return model.JunkRepetitive, true
		}
	}

	if name != "" && len(name) <= maxFieldLen {
		// 6-7. Names with no alphanumeric content: plain symbols first,
		// emoji when any pictograph is present.
		if !hasAlphanumeric(name) {
			if c.text.IsEmojiOnly(name) {
				return model.JunkEmojiName, true
			}
			return model.JunkSymbolName, true
		}

		// 8. Stylized Unicode "fonts".
		if c.text.HasFancyFonts(name) {
			return model.JunkFancyFont, true
		}

		// 9. Name is nothing but digits.
		if isDigitsOnly(name) {
			return model.JunkNumericName, true
		}
	}

	return "", false
}

// isCleanNumber reports whether s contains only digits and '+'.
func isCleanNumber(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '+' {
			return false
		}
	}
	return true
}

// isRepetitive reports whether the digit string is all one digit, or long
// enough that drawing on at most two distinct digits marks it as filler.
func isRepetitive(digits string) bool {
	if digits == "" {
		return false
	}
	distinct := map[rune]struct{}{}
	for _, r := range digits {
		distinct[r] = struct{}{}
	}
	if len(distinct) == 1 {
		return true
	}
	return len(digits) >= repetitiveMinLen && len(distinct) <= repetitiveDistinct
}
