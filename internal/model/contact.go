// Package model defines the core domain types for the contact intelligence engine.
package model

import "time"

// Contact is a single address-book entry as read from the contact store.
// Values are transient: they are produced per scan pass and never owned
// long-term by the engine.
type Contact struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name,omitempty"`
	Numbers          []string      `json:"numbers"`
	Emails           []string      `json:"emails,omitempty"`
	NormalizedNumber string        `json:"normalized_number,omitempty"`
	IsWhatsApp       bool          `json:"is_whatsapp,omitempty"`
	IsTelegram       bool          `json:"is_telegram,omitempty"`
	IsJunk           bool          `json:"is_junk,omitempty"`
	IsSensitive      bool          `json:"is_sensitive,omitempty"`
	JunkType         JunkType      `json:"junk_type,omitempty"`
	DuplicateType    DuplicateType `json:"duplicate_type,omitempty"`
	MatchingKey      string        `json:"matching_key,omitempty"`
	FormatIssue      *FormatIssue  `json:"format_issue,omitempty"`
	AccountType      string        `json:"account_type,omitempty"`
	AccountName      string        `json:"account_name,omitempty"`
}

// PrimaryNumber returns the first raw number, or "" when the contact has none.
func (c Contact) PrimaryNumber() string {
	if len(c.Numbers) == 0 {
		return ""
	}
	return c.Numbers[0]
}

// FieldRichness scores how much data a contact carries. Used as the
// merge survivor rule: most populated fields wins, smallest id breaks ties.
func (c Contact) FieldRichness() int {
	score := 0
	if c.Name != "" {
		score++
	}
	score += len(c.Numbers)
	score += len(c.Emails)
	return score
}

// JunkType classifies why a contact was flagged as junk.
type JunkType string

// Junk types, in rule priority order. A contact gets at most one.
const (
	JunkBlank        JunkType = "blank"
	JunkInvalidChars JunkType = "invalid_chars"
	JunkTooShort     JunkType = "too_short"
	JunkTooLong      JunkType = "too_long"
	JunkRepetitive   JunkType = "repetitive_digits"
	JunkSymbolName   JunkType = "symbol_name"
	JunkEmojiName    JunkType = "emoji_name"
	JunkFancyFont    JunkType = "fancy_font_name"
	JunkNumericName  JunkType = "numeric_name"
)

// JunkContact is a per-contact junk annotation.
type JunkContact struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name,omitempty"`
	Number string   `json:"number,omitempty"`
	Type   JunkType `json:"type"`
}

// DuplicateType identifies the key tier a duplicate group was built from.
type DuplicateType string

// Duplicate tiers, highest priority first. Cross-account groups are produced
// by an independent pass and may overlap the others.
const (
	DupNumber       DuplicateType = "number"
	DupEmail        DuplicateType = "email"
	DupName         DuplicateType = "name"
	DupSimilarName  DuplicateType = "similar_name"
	DupCrossAccount DuplicateType = "cross_account"
)

// DuplicateGroup is a set of at least two contacts sharing a matching key.
type DuplicateGroup struct {
	MatchingKey   string        `json:"matching_key"`
	DuplicateType DuplicateType `json:"duplicate_type"`
	Contacts      []Contact     `json:"contacts"`
}

// FormatIssue describes a number that parses cleanly once the missing
// international prefix is restored.
type FormatIssue struct {
	ContactID        int64  `json:"contact_id,omitempty"`
	RawNumber        string `json:"raw_number,omitempty"`
	NormalizedNumber string `json:"normalized_number"`
	CountryCode      int    `json:"country_code"`
	RegionCode       string `json:"region_code"`
	DisplayCountry   string `json:"display_country"`
}

// IgnoredContact is a safe-list entry. Contacts on the safe list are excluded
// from classification and grouping until explicitly removed.
type IgnoredContact struct {
	ID          string    `json:"id"` // lookup key or phone number
	DisplayName string    `json:"display_name"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// ActionType labels the destructive operation a snapshot was taken for.
type ActionType string

// Snapshot action types.
const (
	ActionDelete ActionType = "Delete"
	ActionMerge  ActionType = "Merge"
	ActionFormat ActionType = "Format"
)

// Snapshot is one undo unit: the serialized contact set captured immediately
// before a destructive operation.
type Snapshot struct {
	ID          string     `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	ActionType  ActionType `json:"action_type"`
	Contacts    []Contact  `json:"contacts"`
	Description string     `json:"description"`
}
