package bot

import (
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

func selfMention(index, length int32) webhook.UserMentionee {
	return webhook.UserMentionee{Index: index, Length: length, IsSelf: true}
}

func TestStripSelfMentions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		text          string
		mentionees    []webhook.MentioneeInterface
		wantText      string
		wantMentioned bool
	}{
		{
			name:     "no mention object",
			text:     "US DE",
			wantText: "US DE",
		},
		{
			name:       "other user only",
			text:       "@Ann US",
			mentionees: []webhook.MentioneeInterface{webhook.UserMentionee{Index: 0, Length: 4, UserId: "U2"}},
			wantText:   "@Ann US",
		},
		{
			name:       "everyone mention is not the bot",
			text:       "@All US",
			mentionees: []webhook.MentioneeInterface{webhook.AllMentionee{Index: 0, Length: 4}},
			wantText:   "@All US",
		},
		{
			name:          "leading bot mention",
			text:          "@GeoBot US, DE",
			mentionees:    []webhook.MentioneeInterface{selfMention(0, 7)},
			wantText:      " US, DE",
			wantMentioned: true,
		},
		{
			name:          "bot mentioned twice around another user",
			text:          "@GeoBot @Ann PL @GeoBot",
			mentionees:    []webhook.MentioneeInterface{selfMention(16, 7), webhook.UserMentionee{Index: 8, Length: 4}, selfMention(0, 7)},
			wantText:      " @Ann PL ",
			wantMentioned: true,
		},
		{
			name:          "cyrillic before mention counts runes",
			text:          "Германия @GeoBot",
			mentionees:    []webhook.MentioneeInterface{selfMention(9, 7)},
			wantText:      "Германия ",
			wantMentioned: true,
		},
		{
			name:          "out of range span is clamped",
			text:          "@Geo",
			mentionees:    []webhook.MentioneeInterface{selfMention(0, 40)},
			wantText:      "",
			wantMentioned: true,
		},
		{
			name:          "overlapping spans",
			text:          "@GeoBot US",
			mentionees:    []webhook.MentioneeInterface{selfMention(0, 7), selfMention(3, 2)},
			wantText:      " US",
			wantMentioned: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := webhook.TextMessageContent{Text: tt.text}
			if tt.mentionees != nil {
				msg.Mention = &webhook.Mention{Mentionees: tt.mentionees}
			}

			got, mentioned := StripSelfMentions(msg)
			if got != tt.wantText || mentioned != tt.wantMentioned {
				t.Errorf("StripSelfMentions() = (%q, %v), want (%q, %v)", got, mentioned, tt.wantText, tt.wantMentioned)
			}
		})
	}
}
