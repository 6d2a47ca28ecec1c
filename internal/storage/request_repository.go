package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AppendRequests inserts request rows in a single transaction.
// Team names are stored lower-cased.
func (db *DB) AppendRequests(ctx context.Context, requests []Request) error {
	if len(requests) == 0 {
		return nil
	}

	query := `INSERT INTO geo_requests (team, user_id, username, geo, request_date) VALUES (?, ?, ?, ?, ?)`

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range requests {
			date := r.RequestDate
			if date.IsZero() {
				date = time.Now()
			}
			_, err := stmt.ExecContext(ctx, strings.ToLower(r.Team), r.UserID, r.Username, r.Geo, date.UnixMilli())
			if err != nil {
				return fmt.Errorf("insert request for %s: %w", r.Team, err)
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to append requests",
			"count", len(requests),
			"error", err)
		return err
	}

	if duration := time.Since(start); duration > 500*time.Millisecond {
		slog.WarnContext(ctx, "slow batch operation",
			"operation", "AppendRequests",
			"count", len(requests),
			"duration_ms", duration.Milliseconds())
	}
	return nil
}

// ListRequests returns a team's requests, newest first.
func (db *DB) ListRequests(ctx context.Context, team string) ([]Request, error) {
	query := `SELECT team, user_id, username, geo, request_date FROM geo_requests
		WHERE team = ?
		ORDER BY request_date DESC, id DESC`

	rows, err := db.reader.QueryContext(ctx, query, strings.ToLower(team))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list requests",
			"team", team,
			"error", err)
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var requests []Request
	for rows.Next() {
		var (
			r    Request
			date int64
		)
		if err := rows.Scan(&r.Team, &r.UserID, &r.Username, &r.Geo, &date); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		r.RequestDate = time.UnixMilli(date).UTC()
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

// AppendMessage stores a non-GEO chat message.
func (db *DB) AppendMessage(ctx context.Context, msg Message) error {
	date := msg.MessageDate
	if date.IsZero() {
		date = time.Now()
	}

	_, err := db.writer.ExecContext(ctx,
		`INSERT INTO messages (user_id, username, text, message_date) VALUES (?, ?, ?, ?)`,
		msg.UserID, msg.Username, msg.Text, date.UnixMilli())
	if err != nil {
		slog.ErrorContext(ctx, "failed to append message",
			"user_id", msg.UserID,
			"error", err)
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// CountMessages returns the number of stored messages.
func (db *DB) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
