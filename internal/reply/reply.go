// Package reply renders the answer to a GEO request.
package reply

import (
	"strings"

	"github.com/garyellow/geo-linebot-go/internal/grouping"
)

// ErrorText is sent when a request fails unexpectedly.
const ErrorText = "❌ An error occurred while processing your request. Please try again later."

// Input is everything the composer needs for one reply.
type Input struct {
	Entries    []grouping.Entry
	Empty      []string // resolved regions with no contacts
	Failed     []string // resolved regions whose lookup failed
	Unresolved []string // words that matched no region
	Resolved   bool     // at least one word resolved
	Username   string   // display name used in the footer greeting
}

// Composer formats replies with a fixed footer.
type Composer struct {
	footer Footer
}

// NewComposer creates a composer using footer.
func NewComposer(footer Footer) *Composer {
	return &Composer{footer: footer}
}

// Compose builds the reply text. The footer is appended after a blank line
// only when at least one word resolved.
func (c *Composer) Compose(in Input) string {
	var lines []string

	for _, e := range in.Entries {
		lines = append(lines, "GEO: "+strings.Join(e.Regions, ", ")+" – "+strings.Join(e.Contacts, ", "))
	}
	for _, code := range in.Empty {
		lines = append(lines, "⚠️ No managers assigned for "+code+" yet")
	}
	for _, code := range in.Failed {
		lines = append(lines, "⚠️ Could not load managers for "+code+", please try again later")
	}
	for _, word := range in.Unresolved {
		lines = append(lines, "❌ No managers found for "+word)
	}

	text := strings.Join(lines, "\n")
	if !in.Resolved {
		return text
	}

	footer := c.footer.Render(in.Username)
	if text == "" {
		return footer
	}
	return text + "\n\n" + footer
}
