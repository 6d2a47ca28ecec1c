package bot

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// ChatKind tells personal chats from multi-person ones.
type ChatKind int

const (
	ChatUnknown ChatKind = iota
	ChatPersonal
	ChatGroup
	ChatRoom
)

// Chat is where an event came from.
type Chat struct {
	Kind    ChatKind
	ID      string // user, group or room id
	UserID  string // sender; may be empty in groups when the user hid it
	GroupID string // groups only, member profiles are fetched through it
}

// Personal reports a 1-on-1 chat with the bot.
func (c Chat) Personal() bool { return c.Kind == ChatPersonal }

// ChatOf reads the chat out of an event source. Unknown sources yield
// the zero Chat.
func ChatOf(source webhook.SourceInterface) Chat {
	switch s := source.(type) {
	case webhook.UserSource:
		return Chat{Kind: ChatPersonal, ID: s.UserId, UserID: s.UserId}
	case webhook.GroupSource:
		return Chat{Kind: ChatGroup, ID: s.GroupId, UserID: s.UserId, GroupID: s.GroupId}
	case webhook.RoomSource:
		return Chat{Kind: ChatRoom, ID: s.RoomId, UserID: s.UserId}
	}
	return Chat{}
}
