package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/phone"
)

func newTestResolver() *Resolver {
	return NewResolver(phone.NewLibHandler(), "US", 0.82)
}

func TestResolve_NumberGroup(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 1, Name: "John Doe", Numbers: []string{"+1234567890"}},
		{ID: 2, Name: "John D", Numbers: []string{"+1234567890"}},
		{ID: 3, Name: "Jane Doe", Numbers: []string{"+9876543210"}},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, model.DupNumber, groups[0].DuplicateType)
	assert.Equal(t, "+1234567890", groups[0].MatchingKey)
	require.Len(t, groups[0].Contacts, 2)
	assert.Equal(t, int64(1), groups[0].Contacts[0].ID)
	assert.Equal(t, int64(2), groups[0].Contacts[1].ID)
}

func TestResolve_NeverEmitsSingletons(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 1, Name: "Alice", Numbers: []string{"+12125550101"}},
		{ID: 2, Name: "Bob", Numbers: []string{"+12125550102"}, Emails: []string{"bob@example.com"}},
		{ID: 3, Name: "Carol", Emails: []string{"carol@example.com"}},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestResolve_Deterministic(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 5, Name: "John Doe", Numbers: []string{"+1234567890"}, Emails: []string{"jd@example.com"}},
		{ID: 2, Name: "Jon Doe", Emails: []string{"JD@example.com"}},
		{ID: 9, Name: "John Doe", Numbers: []string{"+1234567890"}},
		{ID: 1, Name: "Johnny", Numbers: []string{"+15551230000"}},
	}

	first, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Resolve(context.Background(), contacts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_TierPriority(t *testing.T) {
	r := newTestResolver()

	// Both contacts share a number and an email: only the number-tier group
	// is emitted, the email tier never re-offers claimed contacts.
	contacts := []model.Contact{
		{ID: 1, Name: "A", Numbers: []string{"+1234567890"}, Emails: []string{"x@example.com"}},
		{ID: 2, Name: "B", Numbers: []string{"+1234567890"}, Emails: []string{"x@example.com"}},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, model.DupNumber, groups[0].DuplicateType)
}

func TestResolve_EmailCaseInsensitive(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 1, Name: "A", Emails: []string{"Jane@Example.COM"}},
		{ID: 2, Name: "B", Emails: []string{"jane@example.com"}},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, model.DupEmail, groups[0].DuplicateType)
	assert.Equal(t, "jane@example.com", groups[0].MatchingKey)
}

func TestResolve_NameFolding(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 1, Name: "José  García"},
		{ID: 2, Name: "jose garcia"},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, model.DupName, groups[0].DuplicateType)
	assert.Equal(t, "jose garcia", groups[0].MatchingKey)
}

func TestResolve_SimilarNames(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 1, Name: "Jonathan Smith"},
		{ID: 2, Name: "Jonathon Smith"},
		{ID: 3, Name: "Completely Different"},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, model.DupSimilarName, groups[0].DuplicateType)
	require.Len(t, groups[0].Contacts, 2)
}

func TestResolve_CrossAccount(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 1, Name: "Jane", Numbers: []string{"+1234567890"}, AccountType: "com.google", AccountName: "jane@gmail.com"},
		{ID: 2, Name: "Jane", Numbers: []string{"+1234567890"}, AccountType: "com.whatsapp", AccountName: "WhatsApp"},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)

	var cross []model.DuplicateGroup
	for _, g := range groups {
		if g.DuplicateType == model.DupCrossAccount {
			cross = append(cross, g)
		}
	}
	require.Len(t, cross, 1)
	assert.Equal(t, "+1234567890", cross[0].MatchingKey)

	// The exact number tier still emits its own group; the cross-account
	// pass is independent and may overlap.
	assert.Len(t, groups, 2)
}

func TestResolve_SameAccountNotCrossAccount(t *testing.T) {
	r := newTestResolver()

	contacts := []model.Contact{
		{ID: 1, Name: "Jane", Numbers: []string{"+1234567890"}, AccountType: "com.google", AccountName: "jane@gmail.com"},
		{ID: 2, Name: "Jane", Numbers: []string{"+1234567890"}, AccountType: "com.google", AccountName: "jane@gmail.com"},
	}

	groups, err := r.Resolve(context.Background(), contacts)
	require.NoError(t, err)
	for _, g := range groups {
		assert.NotEqual(t, model.DupCrossAccount, g.DuplicateType)
	}
}

func TestSelectSurvivor(t *testing.T) {
	group := model.DuplicateGroup{Contacts: []model.Contact{
		{ID: 10, Name: "Jane", Numbers: []string{"+1234567890"}},
		{ID: 4, Name: "Jane Doe", Numbers: []string{"+1234567890"}, Emails: []string{"jane@example.com"}},
		{ID: 2, Name: "Jane"},
	}}

	survivor := SelectSurvivor(group)
	assert.Equal(t, int64(4), survivor.ID)
}

func TestSelectSurvivor_TieBreaksOnSmallestID(t *testing.T) {
	group := model.DuplicateGroup{Contacts: []model.Contact{
		{ID: 10, Name: "Jane", Numbers: []string{"+1234567890"}},
		{ID: 4, Name: "Jane", Numbers: []string{"+1234567890"}},
	}}

	assert.Equal(t, int64(4), SelectSurvivor(group).ID)
}

func TestMergeInto(t *testing.T) {
	group := model.DuplicateGroup{Contacts: []model.Contact{
		{ID: 1, Name: "Jane", Numbers: []string{"+1234567890"}, Emails: []string{"jane@example.com"}},
		{ID: 2, Numbers: []string{"+1234567890", "+15551230000"}, Emails: []string{"JANE@example.com", "j2@example.com"}},
	}}

	merged := MergeInto(group.Contacts[0], group)
	assert.Equal(t, int64(1), merged.ID)
	assert.Equal(t, []string{"+1234567890", "+15551230000"}, merged.Numbers)
	assert.Equal(t, []string{"jane@example.com", "j2@example.com"}, merged.Emails)
}

func TestMergeInto_FillsEmptyName(t *testing.T) {
	group := model.DuplicateGroup{Contacts: []model.Contact{
		{ID: 1, Numbers: []string{"+1234567890"}},
		{ID: 2, Name: "Jane Doe", Numbers: []string{"+1234567890"}},
	}}

	merged := MergeInto(group.Contacts[0], group)
	assert.Equal(t, "Jane Doe", merged.Name)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "jose garcia", FoldName("  José   GARCÍA "))
	assert.Equal(t, "", FoldName("   "))
	assert.Equal(t, "a b", FoldName("A\t B"))
}

func TestResolve_Cancellation(t *testing.T) {
	r := newTestResolver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, []model.Contact{{ID: 1, Name: "A"}})
	assert.Error(t, err)
}
