package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Tests hand in a pgxmock pool.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	numbers      JSONB NOT NULL DEFAULT '[]',
	emails       JSONB NOT NULL DEFAULT '[]',
	account_type TEXT NOT NULL DEFAULT '',
	account_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	id            TEXT PRIMARY KEY,
	action_type   TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	original_data JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ignored_contacts (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	reason       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) CountContacts(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n)
	return n, mapPgErr(err, "postgres: count contacts")
}

func (s *PostgresStore) ListContacts(ctx context.Context, offset, limit int) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, numbers, emails, account_type, account_name FROM contacts
		 ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, mapPgErr(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var numbersJSON, emailsJSON []byte
		if err := rows.Scan(&c.ID, &c.Name, &numbersJSON, &emailsJSON, &c.AccountType, &c.AccountName); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		if err := json.Unmarshal(numbersJSON, &c.Numbers); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal numbers")
		}
		if err := json.Unmarshal(emailsJSON, &c.Emails); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal emails")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) InsertContacts(ctx context.Context, contacts []model.Contact) ([]int64, error) {
	if len(contacts) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(contacts))
	for _, c := range contacts {
		numbersJSON, emailsJSON, err := marshalContactFields(c)
		if err != nil {
			return nil, err
		}
		var id int64
		err = s.pool.QueryRow(ctx,
			`INSERT INTO contacts (name, numbers, emails, account_type, account_name)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			c.Name, numbersJSON, emailsJSON, c.AccountType, c.AccountName,
		).Scan(&id)
		if err != nil {
			return nil, mapPgErr(err, "postgres: insert contact")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, contact model.Contact) error {
	numbersJSON, emailsJSON, err := marshalContactFields(contact)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET name = $1, numbers = $2, emails = $3, account_type = $4, account_name = $5 WHERE id = $6`,
		contact.Name, numbersJSON, emailsJSON, contact.AccountType, contact.AccountName, contact.ID,
	)
	if err != nil {
		return mapPgErr(err, fmt.Sprintf("postgres: update contact %d", contact.ID))
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", contact.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteContacts(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM contacts WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return 0, mapPgErr(err, "postgres: delete contacts")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	contactsJSON, err := json.Marshal(snap.Contacts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal snapshot contacts")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, action_type, description, original_data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, string(snap.ActionType), snap.Description, contactsJSON, snap.Timestamp.UTC(),
	)
	return mapPgErr(err, "postgres: insert snapshot")
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, action_type, description, original_data, created_at FROM snapshots WHERE id = $1`,
		id,
	)
	return scanPgSnapshot(row)
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, action_type, description, original_data, created_at FROM snapshots
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	return scanPgSnapshot(row)
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, action_type, description, original_data, created_at FROM snapshots
		 ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, mapPgErr(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanPgSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

func (s *PostgresStore) DeleteSnapshot(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return mapPgErr(err, fmt.Sprintf("postgres: delete snapshot %s", id))
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("snapshot not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) PruneSnapshots(ctx context.Context, cutoff time.Time, keep int) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM snapshots WHERE created_at < $1
		 OR id NOT IN (SELECT id FROM snapshots ORDER BY created_at DESC, id DESC LIMIT $2)`,
		cutoff.UTC(), keep,
	)
	if err != nil {
		return 0, mapPgErr(err, "postgres: prune snapshots")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) AddIgnored(ctx context.Context, entry model.IgnoredContact) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ignored_contacts (id, display_name, reason, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET display_name = $2, reason = $3`,
		entry.ID, entry.DisplayName, entry.Reason, entry.Timestamp.UTC(),
	)
	return mapPgErr(err, "postgres: add ignored")
}

func (s *PostgresStore) RemoveIgnored(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ignored_contacts WHERE id = $1`, id)
	if err != nil {
		return mapPgErr(err, fmt.Sprintf("postgres: remove ignored %s", id))
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("ignored contact not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListIgnored(ctx context.Context) ([]model.IgnoredContact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, reason, created_at FROM ignored_contacts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, mapPgErr(err, "postgres: list ignored")
	}
	defer rows.Close()

	var entries []model.IgnoredContact
	for rows.Next() {
		var e model.IgnoredContact
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Reason, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ignored")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list ignored iterate")
}

func scanPgSnapshot(row pgx.Row) (*model.Snapshot, error) {
	var snap model.Snapshot
	var actionType string
	var contactsJSON []byte

	err := row.Scan(&snap.ID, &actionType, &snap.Description, &contactsJSON, &snap.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: scan snapshot")
	}

	snap.ActionType = model.ActionType(actionType)
	if err := json.Unmarshal(contactsJSON, &snap.Contacts); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal snapshot contacts")
	}
	return &snap, nil
}

// mapPgErr wraps a store error and lifts permission failures into the
// permanent taxonomy so callers stop retrying them.
func mapPgErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501", // insufficient_privilege
			"28000", // invalid_authorization_specification
			"28P01": // invalid_password
			return resilience.NewPermissionDenied(eris.Wrap(err, msg))
		}
	}
	return eris.Wrap(err, msg)
}
