// Package webhook receives LINE webhook callbacks and replies to the events
// they carry through the bot processor.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/geo-linebot-go/internal/config"
	"github.com/garyellow/geo-linebot-go/internal/ctxutil"
	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/metrics"
	"github.com/garyellow/geo-linebot-go/internal/ratelimit"
)

const truncatedText = "ℹ️ Some messages were left out because of the LINE reply limit."

// EventProcessor turns events into reply messages.
type EventProcessor interface {
	ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error)
	ProcessPostback(ctx context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error)
	ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error)
	ProcessJoin(ctx context.Context, event webhook.JoinEvent) ([]messaging_api.MessageInterface, error)
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	client        Client
	metrics       *metrics.Metrics
	logger        *logger.Logger
	processor     EventProcessor
	rateLimiter   *ratelimit.Bucket // shared by all reply calls
	sender        *messaging_api.Sender
	wg            sync.WaitGroup // WaitGroup for async event processing

	// LINE API constraints (from config.BotConfig)
	maxMessagesPerReply int
	maxEventsPerWebhook int
	minReplyTokenLength int
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	Client        Client
	BotConfig     config.BotConfig
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	Processor     EventProcessor
	Sender        *messaging_api.Sender
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Client == nil {
		return nil, errors.New("webhook: messaging client is required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("webhook: processor is required")
	}

	return &Handler{
		channelSecret:       cfg.ChannelSecret,
		client:              cfg.Client,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger,
		processor:           cfg.Processor,
		rateLimiter:         ratelimit.NewBucket(cfg.BotConfig.GlobalRateLimitRPS, cfg.BotConfig.GlobalRateLimitRPS),
		sender:              cfg.Sender,
		maxMessagesPerReply: cfg.BotConfig.MaxMessagesPerReply,
		maxEventsPerWebhook: cfg.BotConfig.MaxEventsPerWebhook,
		minReplyTokenLength: cfg.BotConfig.MinReplyTokenLength,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	// 1. Parse request
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			h.metrics.RecordHTTPError("invalid_signature", "webhook")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			h.metrics.RecordHTTPError("parse_error", "webhook")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// 2. Return 200 OK immediately (LINE requirement)
	c.Status(http.StatusOK)

	// 3. Process events asynchronously
	start := time.Now()

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}

	// Copy events to avoid race condition after HTTP response completes
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		processingCtx := context.Background()
		for _, event := range events {
			h.processEvent(processingCtx, event, start)
		}
	})
}

// processEvent answers one event. It runs on the async worker, after the
// HTTP response was sent.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface, batchStart time.Time) {
	env, ok := unpack(event)
	if !ok {
		h.logger.WithField("event_type", fmt.Sprintf("%T", event)).Debug("Unsupported event type")
		return
	}

	log := h.logger.WithField("event_type", env.kind)
	if env.id != "" {
		ctx = ctxutil.WithEventID(ctxutil.WithRequestID(ctx, env.id), env.id)
		log = log.WithRequestID(env.id)
	}
	if env.messageID != "" {
		ctx = ctxutil.WithMessageID(ctx, env.messageID)
	}
	if env.redelivery != nil {
		log = log.WithField("is_redelivery", *env.redelivery)
	}
	if env.timestamp > 0 {
		log = log.WithField("event_timestamp_ms", env.timestamp)
	}

	if env.showsLoading() && env.chat.ID != "" {
		if err := h.client.ShowLoading(ctx, env.chat.ID, config.LoadingAnimationSeconds); err != nil {
			log.WithError(err).Warn("Failed to show loading animation")
		}
	}

	start := time.Now()
	messages, err := h.dispatch(ctx, event)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).Error("Failed to handle event")
	}
	h.metrics.RecordWebhook(env.kind, status, elapsed.Seconds())

	if err == nil && len(messages) > 0 {
		h.reply(ctx, log, env, messages)
	}

	log.WithField("event_duration_ms", elapsed.Milliseconds()).
		WithField("batch_duration_ms", time.Since(batchStart).Milliseconds()).
		Info("Event processed")
}

func (h *Handler) dispatch(ctx context.Context, event webhook.EventInterface) ([]messaging_api.MessageInterface, error) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return h.processor.ProcessMessage(ctx, e)
	case webhook.PostbackEvent:
		return h.processor.ProcessPostback(ctx, e)
	case webhook.FollowEvent:
		return h.processor.ProcessFollow(ctx, e)
	case webhook.JoinEvent:
		return h.processor.ProcessJoin(ctx, e)
	}
	return nil, nil
}

func (h *Handler) reply(ctx context.Context, log *logger.Logger, env envelope, messages []messaging_api.MessageInterface) {
	if n := h.maxMessagesPerReply; len(messages) > n {
		log.WithField("message_count", len(messages)).WithField("limit", n).
			Warn("Message count exceeds limit; truncating")
		messages = append(messages[:n-1:n-1], lineutil.NewTextMessageWithSender(truncatedText, h.sender))
	}

	token := env.replyToken
	if len(token) < max(h.minReplyTokenLength, 1) {
		log.WithField("token_length", len(token)).Debug("Missing or malformed reply token")
		return
	}

	if !h.rateLimiter.Allow() {
		log.Warn("Global rate limit exceeded; waiting")
		h.metrics.RecordRateLimiterDrop("global")
		if err := h.rateLimiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("Gave up waiting for global rate limit")
			return
		}
	}

	err := h.client.Reply(ctx, token, messages)
	if err == nil {
		return
	}
	switch msg := err.Error(); {
	case strings.Contains(msg, "Invalid reply token"):
		log.WithError(err).Debug("Reply token already used or expired")
	case strings.Contains(msg, "rate limit"):
		log.WithError(err).Error("LINE rejected the reply: rate limited")
	default:
		log.WithError(err).WithField("reply_token", token[:min(len(token), 8)]+"...").Error("Failed to send reply")
	}
	h.metrics.RecordHTTPError("reply_failed", env.kind)
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
