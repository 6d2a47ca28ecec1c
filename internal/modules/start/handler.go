// Package start implements onboarding: /start, /help, the "Type GEOs Now"
// button, and the catch-all reply for messages no other module answers.
package start

import (
	"context"
	"fmt"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/geo-linebot-go/internal/bot"
	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// ModuleName identifies the module in logs and metrics.
const ModuleName = "start"

// PostbackPrefix is the prefix of postbacks owned by this module.
const PostbackPrefix = "start" + bot.PostbackSplitChar

const (
	postbackGeo = "geo"

	welcomeTemplate = "👋 Hi there! Welcome%s🚀 Type your GEOs (e.g., UK, DE, PL) and we'll hook you up with the right managers in seconds⚡️"
	enterGeosText   = "✍️ Please enter GEOs (e.g. AU, US, IT):"
	fallbackText    = "👋 Hi! I'm designed to help with GEO codes. Please send country codes like US, UK, AU etc. Type /start if you need help!"
	helpText        = "📖 How to use this bot\n" +
		" • Send one or more GEOs separated by spaces or commas, e.g. US, DE, Poland\n" +
		" • Country names in English or Russian and two-letter codes all work\n" +
		" • In group chats, mention the bot first\n" +
		" • Team managers can send /download to get their team's request log"
)

var commands = bot.NewCommands("start", "help")

// Handler answers onboarding commands and unknown messages.
type Handler struct {
	messages storage.MessageLogStore
	logger   *logger.Logger
	sender   *messaging_api.Sender
	welcome  string
	timeout  time.Duration
	now      func() time.Time
}

// NewHandler creates the start handler. brand, when set, is named in the
// welcome text. messages may be nil to skip logging unknown messages.
func NewHandler(messages storage.MessageLogStore, brand string, writeTimeout time.Duration, log *logger.Logger, sender *messaging_api.Sender) *Handler {
	where := ""
	if brand != "" {
		where = " to " + brand
	}
	return &Handler{
		messages: messages,
		logger:   log,
		sender:   sender,
		welcome:  fmt.Sprintf(welcomeTemplate, where),
		timeout:  writeTimeout,
		now:      time.Now,
	}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// PostbackPrefix returns "start$".
func (h *Handler) PostbackPrefix() string {
	return PostbackPrefix
}

// CanHandle matches /start and /help.
func (h *Handler) CanHandle(text string) bool {
	return commands.Match(text) != ""
}

// HandleMessage answers /start and /help. Anything else reaching this
// handler is an unknown message: it is logged and answered with a hint.
func (h *Handler) HandleMessage(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	switch commands.Match(req.Text) {
	case "start":
		return []messaging_api.MessageInterface{h.welcomeMessage()}
	case "help":
		return h.reply(helpText)
	}

	h.logMessage(ctx, req)
	return h.reply(fallbackText)
}

// HandlePostback answers the "Type GEOs Now" button.
func (h *Handler) HandlePostback(ctx context.Context, _ bot.Request, data string) []messaging_api.MessageInterface {
	if data == postbackGeo {
		return h.reply(enterGeosText)
	}
	h.logger.WithModule(ModuleName).WithField("data", data).WarnContext(ctx, "Unknown start postback")
	return nil
}

func (h *Handler) welcomeMessage() messaging_api.MessageInterface {
	return lineutil.NewTextMessageWithQuickReply(h.welcome, h.sender, lineutil.QuickReplyItem{
		Action: lineutil.NewPostbackActionWithDisplayText("Type GEOs Now", "Type GEOs Now", PostbackPrefix+postbackGeo),
	})
}

func (h *Handler) logMessage(ctx context.Context, req bot.Request) {
	if h.messages == nil {
		return
	}
	log := h.logger.WithModule(ModuleName)

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	err := h.messages.AppendMessage(ctx, storage.Message{
		UserID:      req.UserID,
		Username:    req.Username(ctx),
		Text:        req.Text,
		MessageDate: h.now().UTC(),
	})
	if err != nil {
		log.WithError(err).WarnContext(ctx, "Failed to log message")
		return
	}
	log.DebugContext(ctx, "Logged unknown message")
}

func (h *Handler) reply(text string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithSender(text, h.sender),
	}
}
