package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/tidylist/contactscan/internal/model"
)

// unknownRegion is the libphonenumber sentinel for "derive region from the
// country code in the number itself".
const unknownRegion = "ZZ"

// LibHandler implements Handler on top of the libphonenumber port.
type LibHandler struct{}

// NewLibHandler returns the default phone number handler.
func NewLibHandler() *LibHandler {
	return &LibHandler{}
}

var _ Handler = (*LibHandler)(nil)

// NormalizeToE164 canonicalizes raw to +<countrycode><national>.
//
// The cleaned value is parsed, never the raw input, so repeated
// normalization is stable: a valid result parses to itself, and the
// digit-only fallback cleans to itself.
func (h *LibHandler) NormalizeToE164(raw, defaultRegion string) string {
	clean := Clean(raw)
	digits := strings.TrimPrefix(clean, "+")
	if digits == "" {
		return ""
	}
	if len(digits) > maxParseLen {
		return clean
	}

	// Already international: keep it verbatim when it parses as valid.
	if strings.HasPrefix(clean, "+") {
		if num, err := phonenumbers.Parse(clean, unknownRegion); err == nil && phonenumbers.IsValidNumber(num) {
			return clean
		}
	}

	if num, err := phonenumbers.Parse(digits, defaultRegion); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164)
	}

	// Fallback keeps the cleaned form, '+' included: cleaning is a fixed
	// point, so re-normalizing the output cannot drift.
	return clean
}

// IsValidNumber reports whether number parses as a valid subscriber number
// for the region.
func (h *LibHandler) IsValidNumber(number, region string) bool {
	if len(Clean(number)) > maxParseLen {
		return false
	}
	num, err := phonenumbers.Parse(number, region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// AnalyzeFormatIssue reports a missing-prefix fix for raw, or nil.
//
// The fix is offered only when prefixing '+' to the cleaned digits yields a
// valid number whose E.164 form contains exactly those digits. The equality
// check is the safety rule: it prevents a local number from being silently
// reinterpreted as a different international one.
func (h *LibHandler) AnalyzeFormatIssue(raw, defaultRegion string) *model.FormatIssue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "+") {
		return nil
	}

	digits := DigitsOnly(trimmed)
	if digits == "" || len(digits) > maxParseLen {
		return nil
	}

	plussed := "+" + digits
	num, err := phonenumbers.Parse(plussed, unknownRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return nil
	}
	if phonenumbers.Format(num, phonenumbers.E164) != plussed {
		return nil
	}

	regionCode := phonenumbers.GetRegionCodeForNumber(num)
	if regionCode == "" {
		regionCode = unknownRegion
	}

	return &model.FormatIssue{
		RawNumber:        raw,
		NormalizedNumber: plussed,
		CountryCode:      int(num.GetCountryCode()),
		RegionCode:       regionCode,
		DisplayCountry:   countryName(regionCode, int(num.GetCountryCode())),
	}
}

// countryName resolves a human-readable country name for a region code,
// falling back to the calling code when the region is unknown.
func countryName(regionCode string, countryCode int) string {
	if regionCode != unknownRegion {
		if region, err := language.ParseRegion(regionCode); err == nil {
			if name := display.English.Regions().Name(region); name != "" {
				return name
			}
		}
	}
	return fmt.Sprintf("Region +%d", countryCode)
}
