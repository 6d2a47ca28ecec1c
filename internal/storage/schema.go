package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Array columns hold JSON arrays and are queried with json_each.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createContactsTable(ctx, db); err != nil {
		return err
	}
	if err := createRequestsTable(ctx, db); err != nil {
		return err
	}
	return createMessagesTable(ctx, db)
}

func createContactsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS geo_contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_name TEXT NOT NULL,
		contacts TEXT NOT NULL DEFAULT '[]',
		manager_ids TEXT NOT NULL DEFAULT '[]',
		regions TEXT NOT NULL DEFAULT '[]',
		UNIQUE(team_name, contacts)
	);
	CREATE INDEX IF NOT EXISTS idx_geo_contacts_team ON geo_contacts(team_name);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create geo_contacts table: %w", err)
	}
	return nil
}

func createRequestsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS geo_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		geo TEXT NOT NULL,
		request_date INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_geo_requests_team_date ON geo_requests(team, request_date);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create geo_requests table: %w", err)
	}
	return nil
}

func createMessagesTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		message_date INTEGER NOT NULL
	);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}
	return nil
}
