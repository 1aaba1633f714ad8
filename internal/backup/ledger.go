// Package backup maintains the snapshot ledger that makes destructive
// operations reversible.
package backup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/store"
)

const (
	// DefaultMaxAge is how long snapshots are retained.
	DefaultMaxAge = 7 * 24 * time.Hour

	// DefaultMaxCount caps the number of retained snapshots.
	DefaultMaxCount = 50
)

// Ledger captures pre-mutation snapshots and prunes old ones.
type Ledger struct {
	store    store.LedgerStore
	maxAge   time.Duration
	maxCount int
	now      func() time.Time
}

// NewLedger creates a ledger over the given store. Zero maxAge or maxCount
// fall back to the defaults.
func NewLedger(ledgerStore store.LedgerStore, maxAge time.Duration, maxCount int) *Ledger {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	return &Ledger{
		store:    ledgerStore,
		maxAge:   maxAge,
		maxCount: maxCount,
		now:      time.Now,
	}
}

// SaveSnapshot persists the full state of the affected contacts before a
// destructive operation and returns the stored snapshot. Old snapshots are
// pruned opportunistically; prune failures never fail the save.
func (l *Ledger) SaveSnapshot(ctx context.Context, action model.ActionType, contacts []model.Contact, description string) (*model.Snapshot, error) {
	if len(contacts) == 0 {
		return nil, eris.New("backup: snapshot needs at least one contact")
	}

	snap := model.Snapshot{
		ID:          uuid.New().String(),
		Timestamp:   l.now().UTC(),
		ActionType:  action,
		Contacts:    contacts,
		Description: description,
	}
	if err := l.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, eris.Wrap(err, "backup: save snapshot")
	}

	if pruned, err := l.store.PruneSnapshots(ctx, l.now().Add(-l.maxAge), l.maxCount); err != nil {
		zap.L().Warn("snapshot prune failed", zap.Error(err))
	} else if pruned > 0 {
		zap.L().Debug("pruned snapshots", zap.Int("count", pruned))
	}

	zap.L().Info("snapshot saved",
		zap.String("snapshot_id", snap.ID),
		zap.String("action", string(action)),
		zap.Int("contacts", len(contacts)),
	)
	return &snap, nil
}

// Latest returns the most recent snapshot, or nil when the ledger is empty.
func (l *Ledger) Latest(ctx context.Context) (*model.Snapshot, error) {
	snap, err := l.store.LatestSnapshot(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "backup: latest snapshot")
	}
	return snap, nil
}

// Get returns a snapshot by id, or nil when it does not exist.
func (l *Ledger) Get(ctx context.Context, id string) (*model.Snapshot, error) {
	snap, err := l.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "backup: get snapshot %s", id)
	}
	return snap, nil
}

// List returns up to limit snapshots, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	snaps, err := l.store.ListSnapshots(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "backup: list snapshots")
	}
	return snaps, nil
}

// Discard removes a snapshot. Called after a successful restore so a
// snapshot cannot be replayed twice.
func (l *Ledger) Discard(ctx context.Context, id string) error {
	return eris.Wrapf(l.store.DeleteSnapshot(ctx, id), "backup: discard snapshot %s", id)
}
