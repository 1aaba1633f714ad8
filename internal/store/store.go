// Package store holds the persistence contracts the engine consumes and
// their SQLite and Postgres implementations.
//
// The contacts table stands in for the externally-owned address book: the
// store assigns ids, and the engine only touches it through this contract.
// The snapshot ledger and safe list are the only state the engine durably
// owns.
package store

import (
	"context"
	"time"

	"github.com/tidylist/contactscan/internal/model"
)

// ContactStore is the batched CRUD contract over the external address book.
type ContactStore interface {
	// CountContacts returns the total number of contacts.
	CountContacts(ctx context.Context) (int, error)

	// ListContacts returns a page of contacts ordered by id. Permission
	// revocation mid-read surfaces as a permanent fault, distinct from
	// transient I/O errors.
	ListContacts(ctx context.Context, offset, limit int) ([]model.Contact, error)

	// InsertContacts creates contacts and returns the store-assigned ids,
	// in input order. Ids are never chosen by the caller.
	InsertContacts(ctx context.Context, contacts []model.Contact) ([]int64, error)

	// UpdateContact replaces the stored fields of an existing contact.
	UpdateContact(ctx context.Context, contact model.Contact) error

	// DeleteContacts removes contacts by id and reports how many rows were
	// actually removed.
	DeleteContacts(ctx context.Context, ids []int64) (int, error)
}

// LedgerStore persists undo snapshots.
type LedgerStore interface {
	InsertSnapshot(ctx context.Context, snap model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error

	// PruneSnapshots removes snapshots older than cutoff or beyond the
	// newest keep entries, returning the number removed.
	PruneSnapshots(ctx context.Context, cutoff time.Time, keep int) (int, error)
}

// SafeListStore persists the user-curated ignore list.
type SafeListStore interface {
	AddIgnored(ctx context.Context, entry model.IgnoredContact) error
	RemoveIgnored(ctx context.Context, id string) error
	ListIgnored(ctx context.Context) ([]model.IgnoredContact, error)
}

// Store is the full persistence surface.
type Store interface {
	ContactStore
	LedgerStore
	SafeListStore

	Migrate(ctx context.Context) error
	Close() error
}
