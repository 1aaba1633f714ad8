package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/phone"
)

func TestFormatAnalyzer(t *testing.T) {
	a := NewFormatAnalyzer(phone.NewLibHandler())

	t.Run("missing prefix", func(t *testing.T) {
		issue := a.Analyze(model.Contact{ID: 3, Numbers: []string{"2348012345678"}}, "NG")
		require.NotNil(t, issue)
		assert.Equal(t, int64(3), issue.ContactID)
		assert.Equal(t, "+2348012345678", issue.NormalizedNumber)
	})

	t.Run("already international", func(t *testing.T) {
		assert.Nil(t, a.Analyze(model.Contact{ID: 4, Numbers: []string{"+2348012345678"}}, "NG"))
	})

	t.Run("no numbers", func(t *testing.T) {
		assert.Nil(t, a.Analyze(model.Contact{ID: 5}, "NG"))
	})
}
