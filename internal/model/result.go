package model

import "fmt"

// ScanResult aggregates one completed scan pass. Immutable once produced.
type ScanResult struct {
	Total          int `json:"total"`
	WhatsAppCount  int `json:"whatsapp_count"`
	TelegramCount  int `json:"telegram_count"`
	JunkCount      int `json:"junk_count"`
	DuplicateCount int `json:"duplicate_count"`

	// Per-junk-subtype counts.
	BlankCount       int `json:"blank_count"`
	InvalidCharCount int `json:"invalid_char_count"`
	ShortNumberCount int `json:"short_number_count"`
	LongNumberCount  int `json:"long_number_count"`
	RepetitiveCount  int `json:"repetitive_count"`
	SymbolNameCount  int `json:"symbol_name_count"`
	EmojiNameCount   int `json:"emoji_name_count"`
	FancyFontCount   int `json:"fancy_font_count"`
	NumericNameCount int `json:"numeric_name_count"`

	// Per-duplicate-subtype counts (groups, not members).
	NumberDuplicateCount  int `json:"number_duplicate_count"`
	EmailDuplicateCount   int `json:"email_duplicate_count"`
	NameDuplicateCount    int `json:"name_duplicate_count"`
	SimilarNameCount      int `json:"similar_name_count"`
	CrossAccountDupeCount int `json:"cross_account_duplicate_count"`

	SensitiveCount   int `json:"sensitive_count"`
	FormatIssueCount int `json:"format_issue_count"`
	AccountCount     int `json:"account_count"`
}

// SensitiveType identifies the PII shape a value matched.
type SensitiveType string

// Sensitive data types.
const (
	SensitiveUSSSN      SensitiveType = "usa_ssn"
	SensitiveUKNINO     SensitiveType = "uk_nino"
	SensitiveCreditCard SensitiveType = "credit_card"
	SensitiveNINBVN     SensitiveType = "nigeria_nin_bvn"
	SensitiveUnknownPII SensitiveType = "unknown_pii"
)

// redactionMask prefixes the retained tail of a matched value.
const redactionMask = "***"

// SensitiveMatch records a PII detection. The original value is kept for
// in-memory use (e.g. safe-listing by number) but must never be rendered
// whole: String redacts to at most the last 4 characters.
type SensitiveMatch struct {
	OriginalValue string        `json:"-"`
	Type          SensitiveType `json:"type"`
	Confidence    float64       `json:"confidence"`
	Description   string        `json:"description"`
}

// Redacted returns the mask token plus at most the last 4 characters of the
// matched value.
func (m SensitiveMatch) Redacted() string {
	tail := m.OriginalValue
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return redactionMask + tail
}

// String never exposes more than the last 4 characters of the original value.
// Hard contract: this is what ends up in logs and crash reports.
func (m SensitiveMatch) String() string {
	return fmt.Sprintf("SensitiveMatch(type=%s, confidence=%.2f, description=%q, value=%s)",
		m.Type, m.Confidence, m.Description, m.Redacted())
}
