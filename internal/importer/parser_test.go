package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PlainNumbers(t *testing.T) {
	p := NewParser()

	res := p.Parse("+2348012345678\n08012345678\n\n  \n", "numbers.txt")
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, []string{"+2348012345678"}, res.Contacts[0].Numbers)
	assert.Equal(t, "", res.Contacts[0].Name)
	assert.Equal(t, []string{"08012345678"}, res.Contacts[1].Numbers)
	assert.Zero(t, res.SkippedLines)
}

func TestParse_BareLineNeedsDigit(t *testing.T) {
	p := NewParser()

	res := p.Parse("no digits here\n+080 1234", "junk.txt")
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, []string{"+080 1234"}, res.Contacts[0].Numbers)
	assert.Equal(t, 1, res.SkippedLines)
}

func TestParse_CSVRows(t *testing.T) {
	p := NewParser()

	res := p.Parse("Jane Doe,+2348012345678\nBob,08012345678\n", "contacts.csv")
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "Jane Doe", res.Contacts[0].Name)
	assert.Equal(t, []string{"+2348012345678"}, res.Contacts[0].Numbers)
}

func TestParse_QuotedFields(t *testing.T) {
	p := NewParser()

	res := p.Parse(`"Doe, Jane","+2348012345678"`, "contacts.csv")
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Doe, Jane", res.Contacts[0].Name)
	assert.Equal(t, []string{"+2348012345678"}, res.Contacts[0].Numbers)
}

func TestParse_SingleFieldCSV(t *testing.T) {
	p := NewParser()

	// A trailing comma makes the second field empty; the row degrades to an
	// unusable pair and is skipped.
	res := p.Parse("Jane Doe,\n", "contacts.csv")
	assert.Empty(t, res.Contacts)
	assert.Equal(t, 1, res.SkippedLines)
}

func TestParse_LineLengthBoundary(t *testing.T) {
	p := NewParser()

	exact := strings.Repeat("1", MaxLineLength)
	over := strings.Repeat("1", MaxLineLength+1)

	res := p.Parse(exact+"\n"+over, "boundary.txt")
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, []string{exact}, res.Contacts[0].Numbers)
	assert.Equal(t, 1, res.SkippedLines)
}

func TestParse_CRLF(t *testing.T) {
	p := NewParser()

	res := p.Parse("Jane,+2348012345678\r\nBob,08012345678\r\n", "windows.csv")
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, []string{"08012345678"}, res.Contacts[1].Numbers)
}

func TestParse_Empty(t *testing.T) {
	p := NewParser()

	res := p.Parse("", "empty.txt")
	assert.Empty(t, res.Contacts)
	assert.Zero(t, res.SkippedLines)
}
