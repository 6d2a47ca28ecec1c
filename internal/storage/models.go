package storage

import (
	"strings"
	"time"

	apperrors "github.com/garyellow/geo-linebot-go/internal/errors"
)

// Common errors
var (
	// ErrNotFound is returned when a mutation or lookup matches no row.
	ErrNotFound = apperrors.ErrNotFound

	// ErrAlreadyExists is returned when an insert would duplicate a directory entry
	ErrAlreadyExists = apperrors.ErrAlreadyExists
)

// ContactEntry is one row of the contact directory: a team, its contact
// handles, the chat user ids of its managers, and the regions it serves.
type ContactEntry struct {
	ID         int64    `json:"id" yaml:"-"`
	Team       string   `json:"team" yaml:"team"`
	Contacts   []string `json:"contacts" yaml:"contacts"`
	ManagerIDs []string `json:"manager_ids" yaml:"manager_ids"`
	Regions    []string `json:"regions" yaml:"regions"`
}

// Display renders the entry the way it appears in replies: "Team – @a, @b".
func (e ContactEntry) Display() string {
	return e.Team + " – " + strings.Join(e.Contacts, ", ")
}

// Request is one row of a team's request log.
type Request struct {
	Team        string    `json:"team"` // lower-cased team name
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Geo         string    `json:"geo"` // one code, or space-joined codes
	RequestDate time.Time `json:"request_date"`
}

// Message is a chat message that was not a GEO request.
type Message struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Text        string    `json:"text"`
	MessageDate time.Time `json:"message_date"`
}
