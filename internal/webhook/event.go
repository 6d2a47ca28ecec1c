package webhook

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/geo-linebot-go/internal/bot"
)

// envelope is what the handler needs from any replyable event.
type envelope struct {
	kind       string // metric label: message, postback, follow or join
	id         string
	timestamp  int64
	redelivery *bool
	replyToken string
	chat       bot.Chat
	messageID  string
}

// unpack returns false for events the bot does not answer.
func unpack(event webhook.EventInterface) (envelope, bool) {
	var (
		env envelope
		src webhook.SourceInterface
		dc  *webhook.DeliveryContext
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		env = envelope{kind: "message", id: e.WebhookEventId, timestamp: e.Timestamp, replyToken: e.ReplyToken}
		src, dc = e.Source, e.DeliveryContext
		if m, ok := e.Message.(webhook.TextMessageContent); ok {
			env.messageID = m.Id
		}
	case webhook.PostbackEvent:
		env = envelope{kind: "postback", id: e.WebhookEventId, timestamp: e.Timestamp, replyToken: e.ReplyToken}
		src, dc = e.Source, e.DeliveryContext
	case webhook.FollowEvent:
		env = envelope{kind: "follow", id: e.WebhookEventId, timestamp: e.Timestamp, replyToken: e.ReplyToken}
		src, dc = e.Source, e.DeliveryContext
	case webhook.JoinEvent:
		env = envelope{kind: "join", id: e.WebhookEventId, timestamp: e.Timestamp, replyToken: e.ReplyToken}
		src, dc = e.Source, e.DeliveryContext
	default:
		return envelope{}, false
	}
	env.chat = bot.ChatOf(src)
	if dc != nil {
		r := dc.IsRedelivery
		env.redelivery = &r
	}
	return env, true
}

// showsLoading reports whether the loading animation fits the event. LINE
// only offers it in personal chats, and a follow always comes from one.
func (e envelope) showsLoading() bool {
	switch e.kind {
	case "message", "postback":
		return e.chat.Personal()
	case "follow":
		return true
	}
	return false
}
