package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL DEFAULT '',
	numbers      TEXT NOT NULL DEFAULT '[]',
	emails       TEXT NOT NULL DEFAULT '[]',
	account_type TEXT NOT NULL DEFAULT '',
	account_name TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshots (
	id            TEXT PRIMARY KEY,
	action_type   TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	original_data TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ignored_contacts (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	reason       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CountContacts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n)
	if err != nil {
		return 0, mapSQLiteErr(err, "sqlite: count contacts")
	}
	return n, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, offset, limit int) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, numbers, emails, account_type, account_name FROM contacts
		 ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, mapSQLiteErr(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) InsertContacts(ctx context.Context, contacts []model.Contact) ([]int64, error) {
	if len(contacts) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert contacts")
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(contacts))
	for _, c := range contacts {
		numbersJSON, emailsJSON, err := marshalContactFields(c)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO contacts (name, numbers, emails, account_type, account_name) VALUES (?, ?, ?, ?, ?)`,
			c.Name, numbersJSON, emailsJSON, c.AccountType, c.AccountName,
		)
		if err != nil {
			return nil, mapSQLiteErr(err, "sqlite: insert contact")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: last insert id")
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert contacts")
	}
	return ids, nil
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, contact model.Contact) error {
	numbersJSON, emailsJSON, err := marshalContactFields(contact)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, numbers = ?, emails = ?, account_type = ?, account_name = ? WHERE id = ?`,
		contact.Name, numbersJSON, emailsJSON, contact.AccountType, contact.AccountName, contact.ID,
	)
	if err != nil {
		return mapSQLiteErr(err, "sqlite: update contact")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("contact not found: %d", contact.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteContacts(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return 0, mapSQLiteErr(err, "sqlite: delete contacts")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) InsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	contactsJSON, err := json.Marshal(snap.Contacts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot contacts")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, action_type, description, original_data, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, string(snap.ActionType), snap.Description, string(contactsJSON), snap.Timestamp.UTC(),
	)
	return mapSQLiteErr(err, "sqlite: insert snapshot")
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, action_type, description, original_data, created_at FROM snapshots WHERE id = ?`,
		id,
	)
	return scanSnapshot(row)
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, action_type, description, original_data, created_at FROM snapshots
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	return scanSnapshot(row)
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action_type, description, original_data, created_at FROM snapshots
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, mapSQLiteErr(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteErr(err, "sqlite: delete snapshot")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("snapshot not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) PruneSnapshots(ctx context.Context, cutoff time.Time, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE created_at < ?
		 OR id NOT IN (SELECT id FROM snapshots ORDER BY created_at DESC, id DESC LIMIT ?)`,
		cutoff.UTC(), keep,
	)
	if err != nil {
		return 0, mapSQLiteErr(err, "sqlite: prune snapshots")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) AddIgnored(ctx context.Context, entry model.IgnoredContact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ignored_contacts (id, display_name, reason, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, reason = excluded.reason`,
		entry.ID, entry.DisplayName, entry.Reason, entry.Timestamp.UTC(),
	)
	return mapSQLiteErr(err, "sqlite: add ignored")
}

func (s *SQLiteStore) RemoveIgnored(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ignored_contacts WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteErr(err, "sqlite: remove ignored")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("ignored contact not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) ListIgnored(ctx context.Context) ([]model.IgnoredContact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, reason, created_at FROM ignored_contacts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, mapSQLiteErr(err, "sqlite: list ignored")
	}
	defer rows.Close()

	var entries []model.IgnoredContact
	for rows.Next() {
		var e model.IgnoredContact
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Reason, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ignored")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list ignored iterate")
}

// helpers

func marshalContactFields(c model.Contact) (string, string, error) {
	numbers := c.Numbers
	if numbers == nil {
		numbers = []string{}
	}
	emails := c.Emails
	if emails == nil {
		emails = []string{}
	}
	numbersJSON, err := json.Marshal(numbers)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal numbers")
	}
	emailsJSON, err := json.Marshal(emails)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal emails")
	}
	return string(numbersJSON), string(emailsJSON), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	var numbersJSON, emailsJSON string

	err := row.Scan(&c.ID, &c.Name, &numbersJSON, &emailsJSON, &c.AccountType, &c.AccountName)
	if err == sql.ErrNoRows {
		return nil, eris.New("contact not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan contact")
	}

	if err := json.Unmarshal([]byte(numbersJSON), &c.Numbers); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal numbers")
	}
	if err := json.Unmarshal([]byte(emailsJSON), &c.Emails); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal emails")
	}
	return &c, nil
}

func scanSnapshot(row scannable) (*model.Snapshot, error) {
	var snap model.Snapshot
	var actionType, contactsJSON string

	err := row.Scan(&snap.ID, &actionType, &snap.Description, &contactsJSON, &snap.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan snapshot")
	}

	snap.ActionType = model.ActionType(actionType)
	if err := json.Unmarshal([]byte(contactsJSON), &snap.Contacts); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal snapshot contacts")
	}
	return &snap, nil
}

// mapSQLiteErr wraps a store error and lifts permission failures into the
// permanent taxonomy so callers stop retrying them.
func mapSQLiteErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if resilience.IsPermissionDenied(err) {
		return resilience.NewPermissionDenied(eris.Wrap(err, msg))
	}
	return eris.Wrap(err, msg)
}
