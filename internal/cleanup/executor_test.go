package cleanup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidylist/contactscan/internal/backup"
	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/oplock"
	"github.com/tidylist/contactscan/internal/store"
)

func newTestExecutor(t *testing.T) (*Executor, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "cleanup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	ledger := backup.NewLedger(s, 0, 0)
	return NewExecutor(s, ledger, &oplock.Guard{}, 0), s
}

func seedContacts(t *testing.T, s *store.SQLiteStore, contacts []model.Contact) []model.Contact {
	t.Helper()
	ctx := context.Background()
	ids, err := s.InsertContacts(ctx, contacts)
	require.NoError(t, err)
	stored, err := s.ListContacts(ctx, 0, 1000)
	require.NoError(t, err)
	require.Len(t, stored, len(ids))
	return stored
}

func drain(t *testing.T, statuses <-chan model.CleanupStatus) (model.CleanupSuccess, []string) {
	t.Helper()
	var warnings []string
	for status := range statuses {
		switch st := status.(type) {
		case model.CleanupProgress:
			if st.Warning != "" {
				warnings = append(warnings, st.Warning)
			}
		case model.CleanupSuccess:
			return st, warnings
		case model.CleanupError:
			t.Fatalf("cleanup error: %s", st.Message)
		}
	}
	t.Fatal("status stream closed without a terminal event")
	return model.CleanupSuccess{}, nil
}

func TestDelete_SnapshotsBeforeMutation(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{
		{Name: "Junk1", Numbers: []string{"111"}},
		{Name: "Junk2", Numbers: []string{"222"}},
		{Name: "Keep", Numbers: []string{"+2348012345678"}},
	})

	statuses, err := e.Delete(ctx, stored[:2])
	require.NoError(t, err)
	success, warnings := drain(t, statuses)
	assert.Equal(t, 2, success.Succeeded)
	assert.Zero(t, success.Failed)
	assert.Empty(t, warnings)

	remaining, err := s.ListContacts(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Keep", remaining[0].Name)

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, model.ActionDelete, snap.ActionType)
	assert.Len(t, snap.Contacts, 2)
}

func TestDelete_EmptySelection(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Delete(context.Background(), nil)
	require.Error(t, err)
}

func TestUndo_RoundTrip(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{
		{Name: "Jane", Numbers: []string{"+2348012345678"}, Emails: []string{"jane@example.com"}},
		{Name: "Bob", Numbers: []string{"08012345678"}},
	})

	statuses, err := e.Delete(ctx, stored)
	require.NoError(t, err)
	drain(t, statuses)

	n, err := s.CountContacts(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)

	restored, err := e.Undo(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	contacts, err := s.ListContacts(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Jane", contacts[0].Name)
	assert.Equal(t, []string{"+2348012345678"}, contacts[0].Numbers)
	// The store assigns fresh identities on restore.
	assert.NotEqual(t, stored[0].ID, contacts[0].ID)

	// The consumed snapshot is gone; a second undo has nothing to restore.
	_, err = e.Undo(ctx, "")
	require.Error(t, err)
	gone, err := s.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMerge_CollapsesGroup(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{
		{Name: "Jane Doe", Numbers: []string{"+1234567890"}, Emails: []string{"jane@example.com"}},
		{Name: "Jane", Numbers: []string{"+1234567890", "+15551230000"}},
	})

	group := model.DuplicateGroup{
		MatchingKey:   "+1234567890",
		DuplicateType: model.DupNumber,
		Contacts:      stored,
	}
	statuses, err := e.Merge(ctx, []model.DuplicateGroup{group})
	require.NoError(t, err)
	success, _ := drain(t, statuses)
	assert.Equal(t, 1, success.Succeeded)

	contacts, err := s.ListContacts(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	// Richest record survives and absorbs the other's numbers.
	assert.Equal(t, "Jane Doe", contacts[0].Name)
	assert.ElementsMatch(t, []string{"+1234567890", "+15551230000"}, contacts[0].Numbers)
}

func TestStandardize_RewritesPrimaryNumber(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{
		{Name: "Jane", Numbers: []string{"2348012345678"}},
	})
	stored[0].FormatIssue = &model.FormatIssue{
		ContactID:        stored[0].ID,
		RawNumber:        "2348012345678",
		NormalizedNumber: "+2348012345678",
	}

	statuses, err := e.Standardize(ctx, stored)
	require.NoError(t, err)
	success, _ := drain(t, statuses)
	assert.Equal(t, 1, success.Succeeded)

	contacts, err := s.ListContacts(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, []string{"+2348012345678"}, contacts[0].Numbers)

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, model.ActionFormat, snap.ActionType)
}

// failingLedgerStore rejects snapshot writes while delegating nothing else;
// only the methods the ledger save path touches matter here.
type failingLedgerStore struct {
	store.LedgerStore
}

func (failingLedgerStore) InsertSnapshot(context.Context, model.Snapshot) error {
	return eris.New("disk full")
}

func TestDelete_BackupFailureIsNonFatal(t *testing.T) {
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "cleanup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	ledger := backup.NewLedger(failingLedgerStore{}, 0, 0)
	e := NewExecutor(s, ledger, &oplock.Guard{}, 0)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{{Name: "Junk", Numbers: []string{"111"}}})

	statuses, err := e.Delete(ctx, stored)
	require.NoError(t, err)
	success, warnings := drain(t, statuses)

	// The mutation proceeds; the failed backup surfaces as a warning only.
	assert.Equal(t, 1, success.Succeeded)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "cannot be undone")

	n, err := s.CountContacts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExecutor_GuardSerializesOperations(t *testing.T) {
	e, s := newTestExecutor(t)
	seedContacts(t, s, []model.Contact{{Name: "A", Numbers: []string{"111"}}})

	guarded := e.guard
	require.NoError(t, guarded.Acquire())
	defer guarded.Release()

	_, err := e.Delete(context.Background(), []model.Contact{{ID: 1}})
	assert.ErrorIs(t, err, oplock.ErrBusy)
}

func TestStandardize_ContactWithoutNumbers(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{{Name: "Jane"}})
	stored[0].FormatIssue = &model.FormatIssue{
		ContactID:        stored[0].ID,
		NormalizedNumber: "+2348012345678",
	}

	statuses, err := e.Standardize(ctx, stored)
	require.NoError(t, err)
	success, _ := drain(t, statuses)
	assert.Equal(t, 1, success.Succeeded)

	contacts, err := s.ListContacts(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, []string{"+2348012345678"}, contacts[0].Numbers)
}

func TestDelete_GuardFreeAtTerminalEvent(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{
		{Name: "First", Numbers: []string{"111"}},
		{Name: "Second", Numbers: []string{"222"}},
	})

	statuses, err := e.Delete(ctx, stored[:1])
	require.NoError(t, err)
	drain(t, statuses)

	// The terminal event ends the operation; the next one must be able to
	// start immediately, without waiting for the stream to close.
	statuses, err = e.Delete(ctx, stored[1:])
	require.NoError(t, err)
	success, _ := drain(t, statuses)
	assert.Equal(t, 1, success.Succeeded)
}

func TestUndo_SpecificSnapshot(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	stored := seedContacts(t, s, []model.Contact{
		{Name: "First", Numbers: []string{"111"}},
		{Name: "Second", Numbers: []string{"222"}},
	})

	statuses, err := e.Delete(ctx, stored[:1])
	require.NoError(t, err)
	drain(t, statuses)
	firstSnap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	statuses, err = e.Delete(ctx, stored[1:])
	require.NoError(t, err)
	drain(t, statuses)

	restored, err := e.Undo(ctx, firstSnap.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	contacts, err := s.ListContacts(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "First", contacts[0].Name)
}
