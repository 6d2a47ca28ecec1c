// Package postgres implements storage.Store on PostgreSQL. Array columns
// are native text[] and membership uses the @> containment operator.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS geo_contacts (
	id BIGSERIAL PRIMARY KEY,
	team_name TEXT NOT NULL,
	contacts TEXT[] NOT NULL DEFAULT '{}',
	manager_ids TEXT[] NOT NULL DEFAULT '{}',
	regions TEXT[] NOT NULL DEFAULT '{}',
	UNIQUE (team_name, contacts)
);
CREATE INDEX IF NOT EXISTS idx_geo_contacts_regions ON geo_contacts USING GIN (regions);
CREATE INDEX IF NOT EXISTS idx_geo_contacts_managers ON geo_contacts USING GIN (manager_ids);

CREATE TABLE IF NOT EXISTS geo_requests (
	id BIGSERIAL PRIMARY KEY,
	team TEXT NOT NULL,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	geo TEXT NOT NULL,
	request_date TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_geo_requests_team_date ON geo_requests (team, request_date DESC);

CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	message_date TIMESTAMPTZ NOT NULL
);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create postgres schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const contactColumns = `id, team_name, contacts, manager_ids, regions`

// LookupByRegion returns every entry whose regions contain code, ordered by id.
func (s *Store) LookupByRegion(ctx context.Context, code string) ([]storage.ContactEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM geo_contacts WHERE regions @> ARRAY[$1]::text[] ORDER BY id`, code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to lookup region",
			"region", code,
			"error", err)
		return nil, fmt.Errorf("lookup region %s: %w", code, err)
	}
	defer func() { _ = rows.Close() }()
	return scanContacts(rows)
}

// LookupTeamByManager returns the team of the first entry listing managerID.
func (s *Store) LookupTeamByManager(ctx context.Context, managerID string) (string, error) {
	var team string
	err := s.db.QueryRowContext(ctx,
		`SELECT team_name FROM geo_contacts WHERE manager_ids @> ARRAY[$1]::text[] ORDER BY id LIMIT 1`,
		managerID).Scan(&team)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup team by manager: %w", err)
	}
	return team, nil
}

// AddContact inserts a new entry with one contact, one manager id and no regions.
func (s *Store) AddContact(ctx context.Context, team, contact, managerID string) (*storage.ContactEntry, error) {
	entry := &storage.ContactEntry{
		Team:       team,
		Contacts:   []string{contact},
		ManagerIDs: []string{managerID},
		Regions:    []string{},
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO geo_contacts (team_name, contacts, manager_ids, regions)
		VALUES ($1, $2, $3, '{}')
		ON CONFLICT (team_name, contacts) DO NOTHING
		RETURNING id`,
		team, pq.Array(entry.Contacts), pq.Array(entry.ManagerIDs)).Scan(&entry.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("add contact: %w", err)
	}
	return entry, nil
}

// ChangeContact swaps the contact and manager id in every matching entry.
func (s *Store) ChangeContact(ctx context.Context, team, oldContact, oldManagerID, newContact, newManagerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE geo_contacts
		SET contacts = array_replace(contacts, $2, $4),
			manager_ids = array_replace(manager_ids, $3, $5)
		WHERE team_name = $1
		AND contacts @> ARRAY[$2]::text[]
		AND manager_ids @> ARRAY[$3]::text[]`,
		team, oldContact, oldManagerID, newContact, newManagerID)
	return affected(res, err, "change contact")
}

// DeleteContact removes every entry of team listing both contact and managerID.
func (s *Store) DeleteContact(ctx context.Context, team, contact, managerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM geo_contacts
		WHERE team_name = $1
		AND contacts @> ARRAY[$2]::text[]
		AND manager_ids @> ARRAY[$3]::text[]`,
		team, contact, managerID)
	return affected(res, err, "delete contact")
}

// AssignRegions replaces the regions of every entry of team listing contact.
func (s *Store) AssignRegions(ctx context.Context, team, contact string, regions []string) (int64, error) {
	if regions == nil {
		regions = []string{}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE geo_contacts SET regions = $3
		WHERE team_name = $1 AND contacts @> ARRAY[$2]::text[]`,
		team, contact, pq.Array(regions))
	return affected(res, err, "assign regions")
}

func affected(res sql.Result, err error, op string) (int64, error) {
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return 0, storage.ErrNotFound
	}
	return n, nil
}

// ListContacts returns the whole directory ordered by id.
func (s *Store) ListContacts(ctx context.Context) ([]storage.ContactEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM geo_contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanContacts(rows)
}

// SaveContactsBatch upserts entries keyed by team and contact list.
func (s *Store) SaveContactsBatch(ctx context.Context, entries []*storage.ContactEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO geo_contacts (team_name, contacts, manager_ids, regions)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (team_name, contacts) DO UPDATE SET
				manager_ids = EXCLUDED.manager_ids,
				regions = EXCLUDED.regions`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, e := range entries {
			_, err := stmt.ExecContext(ctx, e.Team,
				pq.Array(orEmpty(e.Contacts)), pq.Array(orEmpty(e.ManagerIDs)), pq.Array(orEmpty(e.Regions)))
			if err != nil {
				return fmt.Errorf("save entry for %s: %w", e.Team, err)
			}
		}
		return nil
	})
}

// AppendRequests inserts request rows in one transaction, lower-casing teams.
func (s *Store) AppendRequests(ctx context.Context, requests []storage.Request) error {
	if len(requests) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("geo_requests", "team", "user_id", "username", "geo", "request_date"))
		if err != nil {
			return fmt.Errorf("prepare copy: %w", err)
		}
		for _, r := range requests {
			date := r.RequestDate
			if date.IsZero() {
				date = time.Now()
			}
			if _, err := stmt.ExecContext(ctx, strings.ToLower(r.Team), r.UserID, r.Username, r.Geo, date.UTC()); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("copy request for %s: %w", r.Team, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("flush copy: %w", err)
		}
		return stmt.Close()
	})
}

// ListRequests returns a team's requests, newest first.
func (s *Store) ListRequests(ctx context.Context, team string) ([]storage.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT team, user_id, username, geo, request_date FROM geo_requests
		WHERE team = $1
		ORDER BY request_date DESC, id DESC`, strings.ToLower(team))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var requests []storage.Request
	for rows.Next() {
		var r storage.Request
		if err := rows.Scan(&r.Team, &r.UserID, &r.Username, &r.Geo, &r.RequestDate); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		r.RequestDate = r.RequestDate.UTC()
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

// AppendMessage stores a non-GEO chat message.
func (s *Store) AppendMessage(ctx context.Context, msg storage.Message) error {
	date := msg.MessageDate
	if date.IsZero() {
		date = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (user_id, username, text, message_date) VALUES ($1, $2, $3, $4)`,
		msg.UserID, msg.Username, msg.Text, date.UTC())
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanContacts(rows *sql.Rows) ([]storage.ContactEntry, error) {
	var entries []storage.ContactEntry
	for rows.Next() {
		var e storage.ContactEntry
		if err := rows.Scan(&e.ID, &e.Team, pq.Array(&e.Contacts), pq.Array(&e.ManagerIDs), pq.Array(&e.Regions)); err != nil {
			return nil, fmt.Errorf("scan contact entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact entries: %w", err)
	}
	return entries, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
