// Package importer parses external contact lists (CSV or plain text) into
// contacts for pre-merge deduplication.
package importer

import (
	"strings"

	"go.uber.org/zap"

	"github.com/tidylist/contactscan/internal/model"
)

// MaxLineLength is the per-line size limit. Longer lines are dropped whole,
// never truncated; a line of exactly this length is kept.
const MaxLineLength = 2000

// Result carries parsed contacts plus counts of what was skipped.
type Result struct {
	Contacts     []model.Contact
	SkippedLines int
}

// Parser turns raw import text into contacts. Format is detected per line:
// a comma makes it a quoted-field CSV row, anything else is a bare number.
type Parser struct{}

// NewParser creates an import parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse splits content into lines and parses each independently. Offending
// lines are dropped and parsing continues; Parse itself never fails.
// The filename is only used for logging context.
func (p *Parser) Parse(content, filename string) Result {
	var res Result

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) > MaxLineLength {
			res.SkippedLines++
			continue
		}

		contact, ok := parseLine(line)
		if !ok {
			res.SkippedLines++
			continue
		}
		res.Contacts = append(res.Contacts, contact)
	}

	zap.L().Info("import parsed",
		zap.String("file", filename),
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("skipped", res.SkippedLines),
	)
	return res
}

func parseLine(line string) (model.Contact, bool) {
	if strings.Contains(line, ",") {
		return parseCSVLine(line)
	}

	// Bare line: a single phone number, needing at least one digit.
	number := strings.TrimSpace(line)
	if !containsDigit(number) {
		return model.Contact{}, false
	}
	return model.Contact{Numbers: []string{number}}, true
}

// parseCSVLine splits on commas with quote awareness: a '"' toggles quote
// state and commas inside quotes do not separate fields. Fields are trimmed
// and stripped of surrounding quotes.
func parseCSVLine(line string) (model.Contact, bool) {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			field.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, cleanField(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, cleanField(field.String()))

	switch {
	case len(fields) >= 2 && fields[1] != "":
		return model.Contact{Name: fields[0], Numbers: []string{fields[1]}}, true
	case len(fields) == 1 && fields[0] != "":
		return model.Contact{Numbers: []string{fields[0]}}, true
	default:
		return model.Contact{}, false
	}
}

func cleanField(field string) string {
	field = strings.TrimSpace(field)
	if len(field) >= 2 && strings.HasPrefix(field, `"`) && strings.HasSuffix(field, `"`) {
		field = field[1 : len(field)-1]
	}
	return strings.TrimSpace(field)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
