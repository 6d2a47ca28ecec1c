// Package lineutil builds Messaging API values that stay inside LINE's
// size limits, and fetches user profiles.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Rune limits enforced by the Messaging API. Longer values are rejected
// with a 400, so everything built here is truncated first.
const (
	MaxTextMessageLength   = 5000
	MaxSenderName          = 20
	MaxQuickReplyItemCount = 13
	MaxQuickReplyLabel     = 20
)

// QuickReplyItem is one quick reply button.
type QuickReplyItem struct {
	ImageURL string
	Action   messaging_api.ActionInterface
}

// NewSender returns the name and icon shown on every message of a reply.
// An empty iconURL keeps the bot's profile image.
func NewSender(name, iconURL string) *messaging_api.Sender {
	return &messaging_api.Sender{Name: TruncateRunes(name, MaxSenderName), IconUrl: iconURL}
}

// NewTextMessageWithSender builds a text message. sender may be nil.
func NewTextMessageWithSender(text string, sender *messaging_api.Sender) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text:   TruncateRunes(text, MaxTextMessageLength),
		Sender: sender,
	}
}

// NewTextMessageWithQuickReply is NewTextMessageWithSender plus quick
// reply buttons. Buttons past the thirteenth are dropped.
func NewTextMessageWithQuickReply(text string, sender *messaging_api.Sender, items ...QuickReplyItem) *messaging_api.TextMessage {
	msg := NewTextMessageWithSender(text, sender)
	if len(items) == 0 {
		return msg
	}
	items = items[:min(len(items), MaxQuickReplyItemCount)]
	qr := &messaging_api.QuickReply{Items: make([]messaging_api.QuickReplyItem, 0, len(items))}
	for _, it := range items {
		qr.Items = append(qr.Items, messaging_api.QuickReplyItem{ImageUrl: it.ImageURL, Action: it.Action})
	}
	msg.QuickReply = qr
	return msg
}

// NewPostbackActionWithDisplayText sends data back to the bot while
// echoing displayText into the chat.
func NewPostbackActionWithDisplayText(label, displayText, data string) messaging_api.ActionInterface {
	return &messaging_api.PostbackAction{
		Label:       TruncateRunes(label, MaxQuickReplyLabel),
		DisplayText: displayText,
		Data:        data,
	}
}

// NewURIAction opens uri.
func NewURIAction(label, uri string) messaging_api.ActionInterface {
	return &messaging_api.UriAction{Label: TruncateRunes(label, MaxQuickReplyLabel), Uri: uri}
}

// TruncateRunes cuts text to at most n runes, marking the cut with "..."
// when there is room for it.
func TruncateRunes(text string, n int) string {
	runes := []rune(text)
	switch {
	case len(runes) <= n:
		return text
	case n <= 3:
		return string(runes[:max(n, 0)])
	default:
		return string(runes[:n-3]) + "..."
	}
}
