// Package geo implements the GEO lookup module: free-text region names in,
// a grouped contact sheet out. Every message that is not a command ends up
// here.
package geo

import (
	"context"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/geo-linebot-go/internal/bot"
	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/requestlog"
)

// ModuleName identifies the module in logs and metrics.
const ModuleName = "geo"

// RequestLogger queues resolved requests. *requestlog.Logger implements it.
type RequestLogger interface {
	Log(ctx context.Context, req requestlog.Request) bool
}

// Handler answers GEO lists.
type Handler struct {
	pipeline   *Pipeline
	requestLog RequestLogger
	logger     *logger.Logger
	sender     *messaging_api.Sender
	now        func() time.Time
}

// NewHandler creates a GEO handler. requestLog may be nil.
func NewHandler(pipeline *Pipeline, requestLog RequestLogger, log *logger.Logger, sender *messaging_api.Sender) *Handler {
	return &Handler{
		pipeline:   pipeline,
		requestLog: requestLog,
		logger:     log,
		sender:     sender,
		now:        time.Now,
	}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// PostbackPrefix returns "" because GEO lookups have no postbacks.
func (h *Handler) PostbackPrefix() string {
	return ""
}

// CanHandle accepts any non-empty text that is not a command.
func (h *Handler) CanHandle(text string) bool {
	return text != "" && !bot.IsCommand(text)
}

// HandleMessage resolves the GEO list and replies with the contact sheet.
// Resolved requests are handed to the request log without waiting for it.
func (h *Handler) HandleMessage(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	log := h.logger.WithModule(ModuleName)

	var username string
	resolveName := func(ctx context.Context) string {
		if username == "" {
			username = req.Username(ctx)
		}
		return username
	}

	out := h.pipeline.Run(ctx, req.Text, resolveName)

	log.WithFields(map[string]any{
		"resolved":   len(out.Result.Resolved),
		"unresolved": len(out.Result.Unresolved),
		"skipped":    len(out.Result.Skipped),
		"rejected":   out.Rejected,
	}).DebugContext(ctx, "GEO request resolved")

	if out.Resolved() && h.requestLog != nil {
		queued := h.requestLog.Log(ctx, requestlog.Request{
			UserID:   req.UserID,
			Username: resolveName(ctx),
			Codes:    out.Result.Codes(),
			At:       h.now().UTC(),
		})
		if !queued {
			log.WarnContext(ctx, "Request log dropped a GEO request")
		}
	}

	if out.Text == "" {
		return nil
	}
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithSender(out.Text, h.sender),
	}
}

// HandlePostback ignores postbacks.
func (h *Handler) HandlePostback(context.Context, bot.Request, string) []messaging_api.MessageInterface {
	return nil
}
