package bot

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/geo-linebot-go/internal/config"
	"github.com/garyellow/geo-linebot-go/internal/ctxutil"
	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/ratelimit"
)

// Commands dispatched on behalf of LINE events.
const (
	StartCommand = "/start"
	HelpCommand  = "/help"
)

const (
	rateLimitedText  = "⏳ You're sending messages too quickly. Please wait a moment and try again."
	tooLongText      = "❌ Your message is too long (over %d characters). Please shorten it and try again."
	invalidPostback  = "❌ Invalid action data. Please try again."
	expiredPostback  = "⚠️ This action has expired or is no longer available."
	nonTextPlacehold = "[%s message]"
)

// Processor handles the core logic of processing LINE events.
// It applies rate limits and sanitization, then dispatches to the registry.
type Processor struct {
	registry    *Registry
	userLimiter *ratelimit.KeyedLimiter
	names       NameResolver
	sender      *messaging_api.Sender
	logger      *logger.Logger

	webhookTimeout      time.Duration
	maxMessageLength    int
	maxPostbackDataSize int
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Registry    *Registry
	UserLimiter *ratelimit.KeyedLimiter // nil disables per-user limits
	Names       NameResolver            // nil leaves usernames empty
	Sender      *messaging_api.Sender
	Logger      *logger.Logger
	BotConfig   config.BotConfig
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{
		registry:            cfg.Registry,
		userLimiter:         cfg.UserLimiter,
		names:               cfg.Names,
		sender:              cfg.Sender,
		logger:              cfg.Logger,
		webhookTimeout:      cfg.BotConfig.WebhookTimeout,
		maxMessageLength:    cfg.BotConfig.MaxMessageLength,
		maxPostbackDataSize: cfg.BotConfig.MaxPostbackDataSize,
	}
}

// ProcessMessage handles a message event. Text in group chats is answered
// only when the bot is mentioned. Non-text messages are passed to the
// fallback handler in personal chats and ignored elsewhere.
func (p *Processor) ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	req := p.request(event.Source)
	ctx = ctxutil.WithChatID(ctx, req.ChatID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)

	textMsg, isText := event.Message.(webhook.TextMessageContent)
	if !isText {
		if !req.Personal {
			return nil, nil
		}
		if msgs, limited := p.checkUserRateLimit(req); limited {
			return msgs, nil
		}
		req.Text = fmt.Sprintf(nonTextPlacehold, event.Message.GetType())
		return p.dispatch(ctx, func(ctx context.Context) []messaging_api.MessageInterface {
			return p.registry.DispatchFallback(ctx, req)
		}), nil
	}

	text := textMsg.Text
	if !req.Personal {
		stripped, mentioned := StripSelfMentions(textMsg)
		if !mentioned {
			return nil, nil
		}
		// A bare mention asks for help.
		if text = normalizeWhitespace(stripped); text == "" {
			text = HelpCommand
		}
	}

	text = normalizeWhitespace(text)
	if text == "" {
		return nil, nil
	}

	if msgs, limited := p.checkUserRateLimit(req); limited {
		return msgs, nil
	}

	if n := utf8.RuneCountInString(text); p.maxMessageLength > 0 && n > p.maxMessageLength {
		p.logger.WithField("length", n).WarnContext(ctx, "Text message too long")
		return p.reply(fmt.Sprintf(tooLongText, p.maxMessageLength)), nil
	}

	req.Text = text
	return p.dispatch(ctx, func(ctx context.Context) []messaging_api.MessageInterface {
		return p.registry.DispatchMessage(ctx, req)
	}), nil
}

// ProcessPostback handles a postback event.
func (p *Processor) ProcessPostback(ctx context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error) {
	req := p.request(event.Source)
	ctx = ctxutil.WithChatID(ctx, req.ChatID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)

	if event.Postback == nil || event.Postback.Data == "" {
		p.logger.WarnContext(ctx, "Empty postback data")
		return nil, nil
	}
	data := event.Postback.Data
	if p.maxPostbackDataSize > 0 && len(data) > p.maxPostbackDataSize {
		p.logger.WithField("size", len(data)).WarnContext(ctx, "Postback data too long")
		return p.reply(invalidPostback), nil
	}

	if msgs, limited := p.checkUserRateLimit(req); limited {
		return msgs, nil
	}

	p.logger.WithField("data", data).DebugContext(ctx, "Received postback")

	msgs := p.dispatch(ctx, func(ctx context.Context) []messaging_api.MessageInterface {
		return p.registry.DispatchPostback(ctx, req, data)
	})
	if len(msgs) == 0 {
		return p.reply(expiredPostback), nil
	}
	return msgs, nil
}

// ProcessFollow answers a follow event with the start message.
func (p *Processor) ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	p.logger.InfoContext(ctx, "New user followed the bot")
	return p.processCommand(ctx, event.Source, StartCommand), nil
}

// ProcessJoin answers a join event (bot added to a group) with the start message.
func (p *Processor) ProcessJoin(ctx context.Context, event webhook.JoinEvent) ([]messaging_api.MessageInterface, error) {
	p.logger.InfoContext(ctx, "Bot joined a chat")
	return p.processCommand(ctx, event.Source, StartCommand), nil
}

func (p *Processor) processCommand(ctx context.Context, source webhook.SourceInterface, command string) []messaging_api.MessageInterface {
	req := p.request(source)
	req.Text = command
	ctx = ctxutil.WithChatID(ctx, req.ChatID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)
	return p.dispatch(ctx, func(ctx context.Context) []messaging_api.MessageInterface {
		return p.registry.DispatchMessage(ctx, req)
	})
}

// dispatch runs fn under the webhook timeout. The context keeps tracing
// values but not the parent's cancellation.
func (p *Processor) dispatch(ctx context.Context, fn func(context.Context) []messaging_api.MessageInterface) []messaging_api.MessageInterface {
	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()
	return fn(processCtx)
}

func (p *Processor) request(source webhook.SourceInterface) Request {
	chat := ChatOf(source)
	return Request{
		UserID:   chat.UserID,
		ChatID:   chat.ID,
		GroupID:  chat.GroupID,
		Personal: chat.Personal(),
		Names:    p.names,
	}
}

// checkUserRateLimit reports whether the chat exceeded its rate limit.
// Only personal chats are told about it; groups are dropped silently.
func (p *Processor) checkUserRateLimit(req Request) ([]messaging_api.MessageInterface, bool) {
	if p.userLimiter == nil || req.ChatID == "" {
		return nil, false
	}
	if p.userLimiter.Allow(req.ChatID) {
		return nil, false
	}

	logChatID := req.ChatID
	if len(logChatID) > 8 {
		logChatID = logChatID[:8] + "..."
	}
	p.logger.WithField("chat_id", logChatID).Warn("User rate limit exceeded")

	if req.Personal {
		return p.reply(rateLimitedText), true
	}
	return nil, true
}

func (p *Processor) reply(text string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithSender(text, p.sender),
	}
}
