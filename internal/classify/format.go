package classify

import (
	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/phone"
)

// FormatAnalyzer finds numbers that work internationally but are stored
// without the '+' prefix.
type FormatAnalyzer struct {
	handler phone.Handler
}

// NewFormatAnalyzer creates a format analyzer backed by the given handler.
func NewFormatAnalyzer(handler phone.Handler) *FormatAnalyzer {
	return &FormatAnalyzer{handler: handler}
}

// Analyze checks a contact's primary number for a missing-prefix issue.
// Returns nil when no unambiguous fix exists.
func (a *FormatAnalyzer) Analyze(contact model.Contact, defaultRegion string) *model.FormatIssue {
	raw := contact.PrimaryNumber()
	if raw == "" {
		return nil
	}
	issue := a.handler.AnalyzeFormatIssue(raw, defaultRegion)
	if issue == nil {
		return nil
	}
	issue.ContactID = contact.ID
	return issue
}
