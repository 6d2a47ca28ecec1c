package bot

import (
	"cmp"
	"slices"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// span is a rune range [start, end) inside a message.
type span struct{ start, end int }

// StripSelfMentions removes every mention of the bot from msg.Text.
// The second result reports whether the bot was mentioned at all; group
// chats only answer when it was. Mention indexes count runes.
func StripSelfMentions(msg webhook.TextMessageContent) (string, bool) {
	if msg.Mention == nil {
		return msg.Text, false
	}

	var spans []span
	for _, m := range msg.Mention.Mentionees {
		um, ok := m.(webhook.UserMentionee)
		if !ok || !um.IsSelf {
			continue
		}
		spans = append(spans, span{start: int(um.Index), end: int(um.Index + um.Length)})
	}
	if len(spans) == 0 {
		return msg.Text, false
	}

	return cutSpans([]rune(msg.Text), spans), true
}

// cutSpans drops the given ranges, clamped to text. Overlapping ranges are fine.
func cutSpans(text []rune, spans []span) string {
	slices.SortFunc(spans, func(a, b span) int { return cmp.Compare(a.start, b.start) })

	out := make([]rune, 0, len(text))
	pos := 0
	for _, s := range spans {
		start := min(max(s.start, pos), len(text))
		end := min(max(s.end, start), len(text))
		out = append(out, text[pos:start]...)
		pos = end
	}
	out = append(out, text[pos:]...)
	return string(out)
}
