package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const contactColumns = `id, team_name, contacts, manager_ids, regions`

// LookupByRegion returns every directory entry serving code, ordered by id.
func (db *DB) LookupByRegion(ctx context.Context, code string) ([]ContactEntry, error) {
	query := `SELECT ` + contactColumns + ` FROM geo_contacts
		WHERE EXISTS (SELECT 1 FROM json_each(geo_contacts.regions) WHERE value = ?)
		ORDER BY id`

	start := time.Now()
	rows, err := db.reader.QueryContext(ctx, query, code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to lookup region",
			"region", code,
			"error", err)
		return nil, fmt.Errorf("lookup region %s: %w", code, err)
	}
	defer func() { _ = rows.Close() }()

	entries, err := scanContacts(rows)
	if err != nil {
		return nil, fmt.Errorf("lookup region %s: %w", code, err)
	}

	// Warn on slow queries (>100ms)
	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "LookupByRegion",
			"duration_ms", duration.Milliseconds(),
			"region", code)
	}
	return entries, nil
}

// LookupTeamByManager returns the team of the first entry listing managerID.
func (db *DB) LookupTeamByManager(ctx context.Context, managerID string) (string, error) {
	query := `SELECT team_name FROM geo_contacts
		WHERE EXISTS (SELECT 1 FROM json_each(geo_contacts.manager_ids) WHERE value = ?)
		ORDER BY id LIMIT 1`

	var team string
	err := db.reader.QueryRowContext(ctx, query, managerID).Scan(&team)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to lookup team by manager",
			"manager_id", managerID,
			"error", err)
		return "", fmt.Errorf("lookup team by manager: %w", err)
	}
	return team, nil
}

// AddContact inserts a new entry with a single contact and manager id and no
// regions. Returns ErrAlreadyExists if the team already has that contact.
func (db *DB) AddContact(ctx context.Context, team, contact, managerID string) (*ContactEntry, error) {
	entry := &ContactEntry{
		Team:       team,
		Contacts:   []string{contact},
		ManagerIDs: []string{managerID},
		Regions:    []string{},
	}

	contacts, managers, regions, err := encodeArrays(entry)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO geo_contacts (team_name, contacts, manager_ids, regions)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(team_name, contacts) DO NOTHING`
	res, err := db.writer.ExecContext(ctx, query, team, contacts, managers, regions)
	if err != nil {
		slog.ErrorContext(ctx, "failed to add contact",
			"team", team,
			"error", err)
		return nil, fmt.Errorf("add contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlreadyExists
	}
	entry.ID, _ = res.LastInsertId()
	return entry, nil
}

// ChangeContact replaces oldContact and oldManagerID with the new values in
// every entry of team that lists both. Returns the number of entries changed.
func (db *DB) ChangeContact(ctx context.Context, team, oldContact, oldManagerID, newContact, newManagerID string) (int64, error) {
	return db.updateMatching(ctx, "ChangeContact", team, oldContact, oldManagerID, func(e *ContactEntry) {
		e.Contacts = replaceValue(e.Contacts, oldContact, newContact)
		e.ManagerIDs = replaceValue(e.ManagerIDs, oldManagerID, newManagerID)
	})
}

// AssignRegions sets the region list of every entry of team listing contact.
func (db *DB) AssignRegions(ctx context.Context, team, contact string, regions []string) (int64, error) {
	return db.updateMatching(ctx, "AssignRegions", team, contact, "", func(e *ContactEntry) {
		e.Regions = slices.Clone(regions)
	})
}

// updateMatching applies mutate to the entries of team whose contacts contain
// contact (and whose manager ids contain managerID, when set) in one
// transaction.
func (db *DB) updateMatching(ctx context.Context, op, team, contact, managerID string, mutate func(*ContactEntry)) (int64, error) {
	var changed int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		entries, err := selectMatching(ctx, tx, team, contact, managerID)
		if err != nil {
			return err
		}
		for i := range entries {
			mutate(&entries[i])
			contacts, managers, regions, err := encodeArrays(&entries[i])
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE geo_contacts SET contacts = ?, manager_ids = ?, regions = ? WHERE id = ?`,
				contacts, managers, regions, entries[i].ID)
			if err != nil {
				return fmt.Errorf("update entry %d: %w", entries[i].ID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to update directory",
			"operation", op,
			"team", team,
			"error", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if changed == 0 {
		return 0, ErrNotFound
	}
	return changed, nil
}

// DeleteContact removes every entry of team listing both contact and managerID.
func (db *DB) DeleteContact(ctx context.Context, team, contact, managerID string) (int64, error) {
	query := `DELETE FROM geo_contacts
		WHERE team_name = ?
		AND EXISTS (SELECT 1 FROM json_each(geo_contacts.contacts) WHERE value = ?)
		AND EXISTS (SELECT 1 FROM json_each(geo_contacts.manager_ids) WHERE value = ?)`

	res, err := db.writer.ExecContext(ctx, query, team, contact, managerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete contact",
			"team", team,
			"error", err)
		return 0, fmt.Errorf("delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete contact: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// ListContacts returns the whole directory ordered by id.
func (db *DB) ListContacts(ctx context.Context) ([]ContactEntry, error) {
	rows, err := db.reader.QueryContext(ctx, `SELECT `+contactColumns+` FROM geo_contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanContacts(rows)
}

// SaveContactsBatch upserts entries in a single transaction. An entry with the
// same team and contact list gets its manager ids and regions replaced.
func (db *DB) SaveContactsBatch(ctx context.Context, entries []*ContactEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `INSERT INTO geo_contacts (team_name, contacts, manager_ids, regions)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(team_name, contacts) DO UPDATE SET
			manager_ids = excluded.manager_ids,
			regions = excluded.regions`

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, e := range entries {
			contacts, managers, regions, err := encodeArrays(e)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, e.Team, contacts, managers, regions); err != nil {
				return fmt.Errorf("save entry for %s: %w", e.Team, err)
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to save contacts batch",
			"count", len(entries),
			"error", err)
		return err
	}

	slog.DebugContext(ctx, "batch operation completed",
		"operation", "SaveContactsBatch",
		"count", len(entries),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func selectMatching(ctx context.Context, tx *sql.Tx, team, contact, managerID string) ([]ContactEntry, error) {
	query := `SELECT ` + contactColumns + ` FROM geo_contacts
		WHERE team_name = ?
		AND EXISTS (SELECT 1 FROM json_each(geo_contacts.contacts) WHERE value = ?)`
	args := []any{team, contact}
	if managerID != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(geo_contacts.manager_ids) WHERE value = ?)`
		args = append(args, managerID)
	}
	query += ` ORDER BY id`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanContacts(rows)
}

func scanContacts(rows *sql.Rows) ([]ContactEntry, error) {
	var entries []ContactEntry
	for rows.Next() {
		var (
			e                           ContactEntry
			contacts, managers, regions string
		)
		if err := rows.Scan(&e.ID, &e.Team, &contacts, &managers, &regions); err != nil {
			return nil, fmt.Errorf("scan contact entry: %w", err)
		}
		if err := decodeArray(contacts, &e.Contacts); err != nil {
			return nil, fmt.Errorf("entry %d contacts: %w", e.ID, err)
		}
		if err := decodeArray(managers, &e.ManagerIDs); err != nil {
			return nil, fmt.Errorf("entry %d manager_ids: %w", e.ID, err)
		}
		if err := decodeArray(regions, &e.Regions); err != nil {
			return nil, fmt.Errorf("entry %d regions: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact entries: %w", err)
	}
	return entries, nil
}

func encodeArrays(e *ContactEntry) (contacts, managers, regions string, err error) {
	if contacts, err = encodeArray(e.Contacts); err != nil {
		return "", "", "", err
	}
	if managers, err = encodeArray(e.ManagerIDs); err != nil {
		return "", "", "", err
	}
	if regions, err = encodeArray(e.Regions); err != nil {
		return "", "", "", err
	}
	return contacts, managers, regions, nil
}

func encodeArray(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode array: %w", err)
	}
	return string(b), nil
}

func decodeArray(raw string, dst *[]string) error {
	if raw == "" {
		*dst = []string{}
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func replaceValue(values []string, old, replacement string) []string {
	out := slices.Clone(values)
	for i, v := range out {
		if v == old {
			out[i] = replacement
		}
	}
	return out
}
