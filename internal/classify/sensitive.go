package classify

import (
	"regexp"
	"strings"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/phone"
)

// maxSensitiveInputLen bounds regex evaluation on adversarial inputs.
const maxSensitiveInputLen = 100

var (
	// USA SSN: strict XXX-XX-XXXX shape; range exclusions are applied
	// programmatically (RE2 has no lookahead).
	usSSNRe = regexp.MustCompile(`\b(\d{3})-(\d{2})-(\d{4})\b`)

	// UK National Insurance: 2 letters, 6 digits, optional suffix letter.
	ukNINORe = regexp.MustCompile(`(?i)\b[A-CEGHJ-PR-TW-Z][A-CEGHJ-NPR-TW-Z]\d{6}[A-D]?\b`)

	// India passport: 1 letter + 7 digits.
	indiaPassportRe = regexp.MustCompile(`\b[A-Z]\d{7}\b`)

	// China resident ID: 17 digits + digit or X check character.
	chinaIDRe = regexp.MustCompile(`\b\d{17}[0-9Xx]\b`)

	// Credit card issuer prefixes (Visa, Mastercard, Amex, Discover).
	creditCardRe = regexp.MustCompile(`\b(?:4\d{12}(?:\d{3})?|5[1-5]\d{14}|3[47]\d{13}|6(?:011|5\d{2})\d{12})\b`)

	// Nigeria NIN/BVN: exactly 11 digits.
	nigeriaElevenRe = regexp.MustCompile(`^\d{11}$`)
)

// SensitiveDetector matches contact field values against known PII shapes.
// Valid phone numbers are whitelisted before any pattern runs, since they
// are by far the most common 10-18 digit strings in an address book.
type SensitiveDetector struct {
	handler phone.Handler
}

// NewSensitiveDetector creates a detector backed by the given phone handler.
func NewSensitiveDetector(handler phone.Handler) *SensitiveDetector {
	return &SensitiveDetector{handler: handler}
}

// Analyze returns a match when value looks like PII, or nil.
func (d *SensitiveDetector) Analyze(value, defaultRegion string) *model.SensitiveMatch {
	clean := strings.TrimSpace(value)
	if clean == "" || len(clean) > maxSensitiveInputLen {
		return nil
	}

	// Whitelist anything the phone parser accepts, in the local region or
	// as an international number.
	if d.handler.IsValidNumber(clean, defaultRegion) {
		return nil
	}
	intl := clean
	if !strings.HasPrefix(intl, "+") {
		intl = "+" + intl
	}
	if d.handler.IsValidNumber(intl, "ZZ") {
		return nil
	}

	// A leading '+' means the value was intended as a phone number. It
	// failed validation above, so it is a malformed number, not an ID.
	if strings.HasPrefix(clean, "+") {
		return nil
	}

	if v := matchSSN(clean); v != nil {
		return v
	}

	if ukNINORe.MatchString(clean) {
		return &model.SensitiveMatch{
			OriginalValue: clean,
			Type:          model.SensitiveUKNINO,
			Confidence:    1.0,
			Description:   "UK National Insurance Number",
		}
	}

	if indiaPassportRe.MatchString(clean) {
		return &model.SensitiveMatch{
			OriginalValue: clean,
			Type:          model.SensitiveUnknownPII,
			Confidence:    0.9,
			Description:   "Potential Passport Number (India Format)",
		}
	}

	if chinaIDRe.MatchString(clean) {
		return &model.SensitiveMatch{
			OriginalValue: clean,
			Type:          model.SensitiveUnknownPII,
			Confidence:    0.9,
			Description:   "Potential Resident ID (China Format)",
		}
	}

	cardDigits := strings.NewReplacer("-", "", " ", "").Replace(clean)
	if m := creditCardRe.FindString(cardDigits); m != "" {
		confidence := 0.6
		description := "Possible Credit Card Number"
		if luhnValid(m) {
			confidence = 1.0
			description = "Credit Card Number"
		}
		return &model.SensitiveMatch{
			OriginalValue: clean,
			Type:          model.SensitiveCreditCard,
			Confidence:    confidence,
			Description:   description,
		}
	}

	ninDigits := strings.ReplaceAll(clean, " ", "")
	if nigeriaElevenRe.MatchString(ninDigits) {
		// 11 digits that the phone parser rejected: high probability NIN/BVN.
		return &model.SensitiveMatch{
			OriginalValue: clean,
			Type:          model.SensitiveNINBVN,
			Confidence:    0.9,
			Description:   "Potential Nigeria NIN/BVN (11-digit non-phone number)",
		}
	}

	return nil
}

// matchSSN applies the structural exclusions the SSA documents: area not
// 000/666/9xx, group not 00, serial not 0000.
func matchSSN(value string) *model.SensitiveMatch {
	m := usSSNRe.FindStringSubmatch(value)
	if m == nil {
		return nil
	}
	area, group, serial := m[1], m[2], m[3]
	if area == "000" || area == "666" || area[0] == '9' {
		return nil
	}
	if group == "00" || serial == "0000" {
		return nil
	}
	return &model.SensitiveMatch{
		OriginalValue: value,
		Type:          model.SensitiveUSSSN,
		Confidence:    1.0,
		Description:   "USA Social Security Number",
	}
}

// luhnValid runs the Luhn checksum over a digit string.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
