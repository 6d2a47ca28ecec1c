// Package bot provides the handler interface and the event processor shared
// by the LINE bot modules. Each module (start, admin, export, geo) implements
// Handler to answer text messages and postback events.
package bot

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// NameResolver looks up a user's display name. An empty string means unknown.
type NameResolver interface {
	DisplayName(ctx context.Context, groupID, userID string) string
}

// Request is one incoming text or postback, already sanitized.
type Request struct {
	Text     string // message text with bot mentions removed
	UserID   string
	ChatID   string // user, group or room id
	GroupID  string // set for group chats
	Personal bool

	Names NameResolver
}

// Username resolves the sender's display name on demand.
func (r Request) Username(ctx context.Context) string {
	if r.Names == nil {
		return ""
	}
	return r.Names.DisplayName(ctx, r.GroupID, r.UserID)
}

// Handler defines the interface that all bot modules must implement.
type Handler interface {
	// Name identifies the module in logs and metrics.
	Name() string

	// PostbackPrefix is the "module$" prefix of postbacks this module owns.
	// Empty means the module handles no postbacks.
	PostbackPrefix() string

	// CanHandle reports whether the module answers this text.
	CanHandle(text string) bool

	// HandleMessage answers a text message (max 5 messages per reply).
	HandleMessage(ctx context.Context, req Request) []messaging_api.MessageInterface

	// HandlePostback answers a postback. data has the prefix removed.
	//
	// Postback Format Convention:
	//   - Format: "module$action$param1$param2..." using $ as delimiter
	//   - Example: "start$geo"
	//   - Max 300 bytes per LINE API limit
	HandlePostback(ctx context.Context, req Request, data string) []messaging_api.MessageInterface
}
