// Package export implements /download: a team manager receives a link to a
// spreadsheet of the requests logged for their team.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/geo-linebot-go/internal/bot"
	"github.com/garyellow/geo-linebot-go/internal/export"
	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/ratelimit"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// ModuleName identifies the module in logs and metrics.
const ModuleName = "export"

const (
	notAuthorizedText  = "❌ You are not authorized to download any data."
	noRequestsText     = "📊 No requests found for your team."
	notConfiguredText  = "❌ Export storage is not configured."
	failedText         = "❌ Error generating report. Please try again later."
	quotaExceededText  = "⏳ You've reached today's download limit. Please try again tomorrow."
	downloadLinkFormat = "📊 Request data for team %s\n%s\n\nThe link expires in %d minutes."
)

var commands = bot.NewCommands("download")

// Store is what the module reads. *storage.DB implements it.
type Store interface {
	LookupTeamByManager(ctx context.Context, managerID string) (string, error)
	ListRequests(ctx context.Context, team string) ([]storage.Request, error)
}

// Publisher uploads a workbook and returns its link. *export.Publisher
// implements it.
type Publisher interface {
	Publish(ctx context.Context, team string, rows []storage.Request) (*export.Link, error)
}

// Recorder counts export outcomes. *metrics.Metrics implements it.
type Recorder interface {
	RecordExport(status string)
}

// Handler answers /download.
type Handler struct {
	store     Store
	publisher Publisher
	quota     *ratelimit.KeyedLimiter
	recorder  Recorder
	logger    *logger.Logger
	sender    *messaging_api.Sender
	timeout   time.Duration
	now       func() time.Time
}

// Config wires a Handler. Publisher nil means exports are not configured;
// Quota nil disables the daily limit.
type Config struct {
	Store     Store
	Publisher Publisher
	Quota     *ratelimit.KeyedLimiter
	Recorder  Recorder
	Logger    *logger.Logger
	Sender    *messaging_api.Sender
	Timeout   time.Duration // bounds building and uploading one workbook
}

// NewHandler creates an export handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		quota:     cfg.Quota,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		sender:    cfg.Sender,
		timeout:   cfg.Timeout,
		now:       time.Now,
	}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// PostbackPrefix returns "" because exports have no postbacks.
func (h *Handler) PostbackPrefix() string {
	return ""
}

// CanHandle matches /download.
func (h *Handler) CanHandle(text string) bool {
	return commands.Match(text) != ""
}

// HandleMessage exports the caller's team requests.
func (h *Handler) HandleMessage(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	log := h.logger.WithModule(ModuleName)

	team, err := h.store.LookupTeamByManager(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.InfoContext(ctx, "Download requested by a user without a team")
			h.record("unauthorized")
			return h.reply(notAuthorizedText)
		}
		log.WithError(err).ErrorContext(ctx, "Failed to look up manager team")
		h.record("error")
		return h.reply(failedText)
	}
	log = log.WithField("team", team)

	if h.publisher == nil {
		h.record("disabled")
		return h.reply(notConfiguredText)
	}

	rows, err := h.store.ListRequests(ctx, team)
	if err != nil {
		log.WithError(err).ErrorContext(ctx, "Failed to list requests")
		h.record("error")
		return h.reply(failedText)
	}
	if len(rows) == 0 {
		h.record("empty")
		return h.reply(noRequestsText)
	}

	if h.quota != nil && !h.quota.Allow(req.UserID) {
		log.WarnContext(ctx, "Export quota exhausted")
		h.record("quota")
		return h.reply(quotaExceededText)
	}

	publishCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	link, err := h.publisher.Publish(publishCtx, team, rows)
	if err != nil {
		log.WithError(err).ErrorContext(ctx, "Failed to publish export")
		h.record("error")
		return h.reply(failedText)
	}

	log.WithField("rows", link.Rows).InfoContext(ctx, "Export published")
	h.record("success")

	minutes := int(link.ExpiresAt.Sub(h.now()).Round(time.Minute).Minutes())
	text := fmt.Sprintf(downloadLinkFormat, team, link.URL, max(minutes, 1))
	msg := lineutil.NewTextMessageWithQuickReply(text, h.sender, lineutil.QuickReplyItem{
		Action: lineutil.NewURIAction("📥 Download", link.URL),
	})
	return []messaging_api.MessageInterface{msg}
}

// HandlePostback ignores postbacks.
func (h *Handler) HandlePostback(context.Context, bot.Request, string) []messaging_api.MessageInterface {
	return nil
}

func (h *Handler) record(status string) {
	if h.recorder != nil {
		h.recorder.RecordExport(status)
	}
}

func (h *Handler) reply(text string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithSender(text, h.sender),
	}
}
