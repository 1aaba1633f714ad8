// Package cleanup applies destructive operations (delete, merge,
// standardize) through the contact store, with a snapshot taken first and
// an undo path back.
package cleanup

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tidylist/contactscan/internal/backup"
	"github.com/tidylist/contactscan/internal/dedupe"
	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/oplock"
	"github.com/tidylist/contactscan/internal/store"
)

const (
	// deleteChunkSize bounds a single delete call against the store.
	deleteChunkSize = 100

	// defaultMutationsPerSecond throttles writes so a large cleanup never
	// starves concurrent readers of the contact store.
	defaultMutationsPerSecond = 200
)

// Executor runs cleanup operations one at a time, each as
// BackingUp -> Executing -> Success | Error over its status stream.
type Executor struct {
	contacts store.ContactStore
	ledger   *backup.Ledger
	guard    *oplock.Guard
	limiter  *rate.Limiter
}

// NewExecutor wires an executor. The guard is shared with the scan pipeline.
// mutationsPerSecond <= 0 uses the default throttle.
func NewExecutor(contacts store.ContactStore, ledger *backup.Ledger, guard *oplock.Guard, mutationsPerSecond float64) *Executor {
	if mutationsPerSecond <= 0 {
		mutationsPerSecond = defaultMutationsPerSecond
	}
	return &Executor{
		contacts: contacts,
		ledger:   ledger,
		guard:    guard,
		limiter:  rate.NewLimiter(rate.Limit(mutationsPerSecond), deleteChunkSize),
	}
}

// Delete removes the given contacts, snapshotting them first.
func (e *Executor) Delete(ctx context.Context, targets []model.Contact) (<-chan model.CleanupStatus, error) {
	return e.run(ctx, model.ActionDelete, targets, fmt.Sprintf("Delete %d contacts", len(targets)), e.executeDelete)
}

// Standardize rewrites each target's primary number to the normalized form
// carried on its format issue. Targets without an issue are skipped.
func (e *Executor) Standardize(ctx context.Context, targets []model.Contact) (<-chan model.CleanupStatus, error) {
	withIssue := make([]model.Contact, 0, len(targets))
	for _, c := range targets {
		if c.FormatIssue != nil && c.FormatIssue.NormalizedNumber != "" {
			withIssue = append(withIssue, c)
		}
	}
	return e.run(ctx, model.ActionFormat, withIssue, fmt.Sprintf("Standardize %d numbers", len(withIssue)), e.executeStandardize)
}

// Merge collapses each duplicate group into its survivor: the survivor is
// updated with the union of the members' fields and the rest are deleted.
// The snapshot covers every member of every group.
func (e *Executor) Merge(ctx context.Context, groups []model.DuplicateGroup) (<-chan model.CleanupStatus, error) {
	if err := e.guard.Acquire(); err != nil {
		return nil, err
	}

	var targets []model.Contact
	for _, g := range groups {
		targets = append(targets, g.Contacts...)
	}
	if len(targets) == 0 {
		e.guard.Release()
		return nil, eris.New("cleanup: no duplicate groups selected")
	}

	out := make(chan model.CleanupStatus, 1)
	go func() {
		defer close(out)

		e.backUp(ctx, model.ActionMerge, targets, fmt.Sprintf("Merge %d duplicate groups", len(groups)), out)

		succeeded, failed := 0, 0
		for i, g := range groups {
			if err := ctx.Err(); err != nil {
				// The terminal event ends the operation: release first so a
				// caller reacting to it can start the next one immediately.
				e.guard.Release()
				out <- model.CleanupError{Message: "merge cancelled"}
				return
			}
			if err := e.mergeGroup(ctx, g); err != nil {
				zap.L().Warn("merge group failed", zap.String("key", g.MatchingKey), zap.Error(err))
				failed++
			} else {
				succeeded++
			}
			out <- model.CleanupProgress{
				Fraction:  float64(i+1) / float64(len(groups)),
				Message:   fmt.Sprintf("Merged %d of %d groups", i+1, len(groups)),
				Processed: i + 1,
				Total:     len(groups),
			}
		}
		e.guard.Release()
		out <- model.CleanupSuccess{
			Message:   fmt.Sprintf("Merged %d groups (%d failed)", succeeded, failed),
			Succeeded: succeeded,
			Failed:    failed,
		}
	}()
	return out, nil
}

// Undo restores the contacts of a snapshot with new store-assigned ids and
// removes the snapshot once the restore succeeds. An empty id restores the
// most recent snapshot. Returns the number of contacts restored.
func (e *Executor) Undo(ctx context.Context, snapshotID string) (int, error) {
	if err := e.guard.Acquire(); err != nil {
		return 0, err
	}
	defer e.guard.Release()

	var snap *model.Snapshot
	var err error
	if snapshotID == "" {
		snap, err = e.ledger.Latest(ctx)
	} else {
		snap, err = e.ledger.Get(ctx, snapshotID)
	}
	if err != nil {
		return 0, err
	}
	if snap == nil {
		return 0, eris.New("cleanup: no snapshot to restore")
	}

	// The store owns id assignment; restored contacts always get new ids.
	restore := make([]model.Contact, len(snap.Contacts))
	copy(restore, snap.Contacts)
	for i := range restore {
		restore[i].ID = 0
	}
	ids, err := e.contacts.InsertContacts(ctx, restore)
	if err != nil {
		return 0, eris.Wrap(err, "cleanup: restore snapshot")
	}

	// Only a fully restored snapshot is consumed.
	if err := e.ledger.Discard(ctx, snap.ID); err != nil {
		return len(ids), err
	}
	zap.L().Info("snapshot restored",
		zap.String("snapshot_id", snap.ID),
		zap.Int("contacts", len(ids)),
	)
	return len(ids), nil
}

type executeFunc func(ctx context.Context, targets []model.Contact, out chan<- model.CleanupStatus) (succeeded, failed int, err error)

func (e *Executor) run(ctx context.Context, action model.ActionType, targets []model.Contact, description string, execute executeFunc) (<-chan model.CleanupStatus, error) {
	if err := e.guard.Acquire(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		e.guard.Release()
		return nil, eris.New("cleanup: no contacts selected")
	}

	out := make(chan model.CleanupStatus, 1)
	go func() {
		defer close(out)

		e.backUp(ctx, action, targets, description, out)

		succeeded, failed, err := execute(ctx, targets, out)
		// The terminal event ends the operation: release first so a caller
		// reacting to it can start the next one immediately.
		e.guard.Release()
		if err != nil {
			zap.L().Error("cleanup failed", zap.String("action", string(action)), zap.Error(err))
			out <- model.CleanupError{Message: eris.Cause(err).Error()}
			return
		}
		out <- model.CleanupSuccess{
			Message:   fmt.Sprintf("%s: %d succeeded, %d failed", description, succeeded, failed),
			Succeeded: succeeded,
			Failed:    failed,
		}
	}()
	return out, nil
}

// backUp snapshots the targets before any mutation. A failed backup write
// is surfaced as a warning and the operation proceeds; blocking the cleanup
// on ledger health would make a full ledger disk un-cleanable.
func (e *Executor) backUp(ctx context.Context, action model.ActionType, targets []model.Contact, description string, out chan<- model.CleanupStatus) {
	out <- model.CleanupProgress{Message: "Backing up", Total: len(targets)}
	if _, err := e.ledger.SaveSnapshot(ctx, action, targets, description); err != nil {
		zap.L().Warn("backup failed, proceeding without snapshot", zap.Error(err))
		out <- model.CleanupProgress{
			Message: "Backing up",
			Total:   len(targets),
			Warning: "backup failed; this operation cannot be undone",
		}
	}
}

func (e *Executor) executeDelete(ctx context.Context, targets []model.Contact, out chan<- model.CleanupStatus) (int, int, error) {
	succeeded, failed := 0, 0
	for start := 0; start < len(targets); start += deleteChunkSize {
		end := min(start+deleteChunkSize, len(targets))
		chunk := targets[start:end]

		if err := e.limiter.WaitN(ctx, len(chunk)); err != nil {
			return succeeded, failed, eris.Wrap(err, "cleanup: delete cancelled")
		}
		ids := make([]int64, len(chunk))
		for i, c := range chunk {
			ids[i] = c.ID
		}
		n, err := e.contacts.DeleteContacts(ctx, ids)
		if err != nil {
			return succeeded, failed, eris.Wrap(err, "cleanup: delete contacts")
		}
		succeeded += n
		failed += len(chunk) - n

		out <- model.CleanupProgress{
			Fraction:  float64(end) / float64(len(targets)),
			Message:   fmt.Sprintf("Deleted %d of %d contacts", end, len(targets)),
			Processed: end,
			Total:     len(targets),
		}
	}
	return succeeded, failed, nil
}

func (e *Executor) executeStandardize(ctx context.Context, targets []model.Contact, out chan<- model.CleanupStatus) (int, int, error) {
	succeeded, failed := 0, 0
	for i, c := range targets {
		if err := e.limiter.Wait(ctx); err != nil {
			return succeeded, failed, eris.Wrap(err, "cleanup: standardize cancelled")
		}

		rest := c.Numbers
		if len(rest) > 0 {
			rest = rest[1:]
		}
		updated := c
		updated.Numbers = append([]string{c.FormatIssue.NormalizedNumber}, rest...)
		if err := e.contacts.UpdateContact(ctx, updated); err != nil {
			zap.L().Warn("standardize failed", zap.Int64("contact_id", c.ID), zap.Error(err))
			failed++
		} else {
			succeeded++
		}

		out <- model.CleanupProgress{
			Fraction:  float64(i+1) / float64(len(targets)),
			Message:   fmt.Sprintf("Standardized %d of %d numbers", i+1, len(targets)),
			Processed: i + 1,
			Total:     len(targets),
		}
	}
	return succeeded, failed, nil
}

func (e *Executor) mergeGroup(ctx context.Context, g model.DuplicateGroup) error {
	if len(g.Contacts) < 2 {
		return eris.New("cleanup: merge group needs at least two contacts")
	}
	if err := e.limiter.WaitN(ctx, len(g.Contacts)); err != nil {
		return eris.Wrap(err, "cleanup: merge cancelled")
	}

	survivor := dedupe.SelectSurvivor(g)
	merged := dedupe.MergeInto(survivor, g)
	if err := e.contacts.UpdateContact(ctx, merged); err != nil {
		return eris.Wrap(err, "cleanup: update survivor")
	}

	var losers []int64
	for _, c := range g.Contacts {
		if c.ID != survivor.ID {
			losers = append(losers, c.ID)
		}
	}
	if _, err := e.contacts.DeleteContacts(ctx, losers); err != nil {
		return eris.Wrap(err, "cleanup: delete merged contacts")
	}
	return nil
}
