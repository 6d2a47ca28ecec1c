// Package storage provides repository interfaces for data access abstraction.
// These interfaces decouple bot handlers from the concrete store, which is
// SQLite by default (this package) or PostgreSQL (subpackage postgres).
package storage

import (
	"context"
)

// DirectoryReader looks up the contact directory. Results are read fresh on
// every call; implementations must not cache.
type DirectoryReader interface {
	// LookupByRegion returns every entry serving code, in directory order.
	LookupByRegion(ctx context.Context, code string) ([]ContactEntry, error)

	// LookupTeamByManager returns the team whose manager ids contain managerID.
	// Returns ErrNotFound when the user manages no team.
	LookupTeamByManager(ctx context.Context, managerID string) (string, error)
}

// DirectoryWriter mutates the contact directory. Mutations that match no
// entry return ErrNotFound.
type DirectoryWriter interface {
	AddContact(ctx context.Context, team, contact, managerID string) (*ContactEntry, error)
	ChangeContact(ctx context.Context, team, oldContact, oldManagerID, newContact, newManagerID string) (int64, error)
	DeleteContact(ctx context.Context, team, contact, managerID string) (int64, error)
	AssignRegions(ctx context.Context, team, contact string, regions []string) (int64, error)
	ListContacts(ctx context.Context) ([]ContactEntry, error)

	// SaveContactsBatch upserts entries keyed by team and contact list.
	SaveContactsBatch(ctx context.Context, entries []*ContactEntry) error
}

// RequestLogStore persists GEO requests per team.
type RequestLogStore interface {
	AppendRequests(ctx context.Context, requests []Request) error

	// ListRequests returns a team's requests, newest first.
	ListRequests(ctx context.Context, team string) ([]Request, error)
}

// MessageLogStore persists messages that were not GEO requests.
type MessageLogStore interface {
	AppendMessage(ctx context.Context, msg Message) error
}

// HealthRepository defines the interface for health check operations.
type HealthRepository interface {
	// Ping verifies database connection is alive.
	Ping(ctx context.Context) error
}

// Store is the aggregate interface that combines all repository interfaces.
type Store interface {
	DirectoryReader
	DirectoryWriter
	RequestLogStore
	MessageLogStore
	HealthRepository
	Close() error
}

// Ensure DB implements all repository interfaces at compile time.
var (
	_ DirectoryReader  = (*DB)(nil)
	_ DirectoryWriter  = (*DB)(nil)
	_ RequestLogStore  = (*DB)(nil)
	_ MessageLogStore  = (*DB)(nil)
	_ HealthRepository = (*DB)(nil)
	_ Store            = (*DB)(nil)
)
