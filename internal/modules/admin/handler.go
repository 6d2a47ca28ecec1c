// Package admin implements the directory maintenance commands available to
// the configured administrators: /add, /change, /delete and /assign.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/geo-linebot-go/internal/bot"
	apperrors "github.com/garyellow/geo-linebot-go/internal/errors"
	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/region"
	"github.com/garyellow/geo-linebot-go/internal/sliceutil"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// ModuleName identifies the module in logs and metrics.
const ModuleName = "admin"

const (
	cmdAdd    = "add"
	cmdChange = "change"
	cmdDelete = "delete"
	cmdAssign = "assign"
)

const (
	noPermissionText = "❌ You don't have permission to use this command."
	notFoundText     = "⚠️ Contact not found."
	usageAdd         = "⚠️ Format: /add Team1 new_contact new_manager_id"
	usageChange      = "⚠️ Format: /change Team1 old_contact old_manager_id new_contact new_manager_id"
	usageDelete      = "⚠️ Format: /delete Team1 contact manager_id"
	usageAssign      = "⚠️ Format: /assign Team1 contact GEO [GEO...]"
)

var commands = bot.NewCommands(cmdAdd, cmdChange, cmdDelete, cmdAssign)

// Authorizer decides who may run admin commands. *config.Config implements it.
type Authorizer interface {
	IsAdmin(userID string) bool
}

// Recorder counts command outcomes. *metrics.Metrics implements it.
type Recorder interface {
	RecordAdminCommand(command, status string)
}

// Handler runs admin commands against the directory.
type Handler struct {
	store    storage.DirectoryWriter
	auth     Authorizer
	resolver *region.Resolver
	recorder Recorder
	logger   *logger.Logger
	sender   *messaging_api.Sender
}

// NewHandler creates an admin handler. recorder may be nil.
func NewHandler(store storage.DirectoryWriter, auth Authorizer, resolver *region.Resolver, recorder Recorder, log *logger.Logger, sender *messaging_api.Sender) *Handler {
	return &Handler{
		store:    store,
		auth:     auth,
		resolver: resolver,
		recorder: recorder,
		logger:   log,
		sender:   sender,
	}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// PostbackPrefix returns "" because admin commands have no postbacks.
func (h *Handler) PostbackPrefix() string {
	return ""
}

// CanHandle matches /add, /change, /delete and /assign.
func (h *Handler) CanHandle(text string) bool {
	return commands.Match(text) != ""
}

// HandleMessage runs one admin command.
func (h *Handler) HandleMessage(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	cmd := commands.Match(req.Text)
	log := h.logger.WithModule(ModuleName).WithField("command", cmd)

	if !h.auth.IsAdmin(req.UserID) {
		log.WarnContext(ctx, "Admin command from non-admin user")
		h.record(cmd, "denied")
		return h.reply(noPermissionText)
	}

	args := bot.CommandArgs(req.Text)
	op := apperrors.NewOp(ModuleName, cmd)
	var (
		text string
		err  error
	)
	switch cmd {
	case cmdAdd:
		text, err = h.add(ctx, op, args)
	case cmdChange:
		text, err = h.change(ctx, op, args)
	case cmdDelete:
		text, err = h.delete(ctx, op, args)
	case cmdAssign:
		text, err = h.assign(ctx, op, args)
	}
	switch kind := apperrors.Kind(err); kind {
	case "":
		log.InfoContext(ctx, "Admin command applied")
		h.record(cmd, "success")
	case apperrors.KindNotFound:
		h.record(cmd, kind)
		text = notFoundText
	case apperrors.KindInternal:
		log.WithError(err).ErrorContext(ctx, "Admin command failed")
		h.record(cmd, kind)
		text = apperrors.ReplyText(err)
	default:
		h.record(cmd, kind)
		text = apperrors.ReplyText(err)
	}
	return h.reply(text)
}

// HandlePostback ignores postbacks.
func (h *Handler) HandlePostback(context.Context, bot.Request, string) []messaging_api.MessageInterface {
	return nil
}

func (h *Handler) add(ctx context.Context, op apperrors.Op, args []string) (string, error) {
	if len(args) != 3 {
		return "", op.Usage(usageAdd)
	}
	team, contact, managerID := args[0], args[1], args[2]
	if _, err := h.store.AddContact(ctx, team, contact, managerID); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return "", op.Failf(err, "⚠️ %s is already listed in %s.", contact, team)
		}
		return "", op.Fail(err, "❌ Error adding contact.")
	}
	return fmt.Sprintf("✅ Contact %s added to %s", contact, team), nil
}

func (h *Handler) change(ctx context.Context, op apperrors.Op, args []string) (string, error) {
	if len(args) != 5 {
		return "", op.Usage(usageChange)
	}
	team := args[0]
	if _, err := h.store.ChangeContact(ctx, team, args[1], args[2], args[3], args[4]); err != nil {
		return "", op.Fail(err, "❌ Error updating contact.")
	}
	return "✅ Contact updated for " + team, nil
}

func (h *Handler) delete(ctx context.Context, op apperrors.Op, args []string) (string, error) {
	if len(args) != 3 {
		return "", op.Usage(usageDelete)
	}
	team, contact, managerID := args[0], args[1], args[2]
	if _, err := h.store.DeleteContact(ctx, team, contact, managerID); err != nil {
		return "", op.Fail(err, "❌ Error deleting contact.")
	}
	return fmt.Sprintf("✅ Contact %s removed from %s", contact, team), nil
}

// assign resolves every GEO argument the same way lookups do, so the stored
// regions always match what users will type.
func (h *Handler) assign(ctx context.Context, op apperrors.Op, args []string) (string, error) {
	if len(args) < 3 {
		return "", op.Usage(usageAssign)
	}
	team, contact := args[0], args[1]

	res := h.resolver.ResolveAll(region.Tokenize(strings.Join(args[2:], " ")))
	if len(res.Unresolved) > 0 || len(res.Resolved) == 0 {
		return "", op.Usage("❌ Unknown GEO: "+strings.Join(slices.Concat(res.Unresolved, res.Skipped), ", "))
	}
	codes := sliceutil.Unique(res.Codes())

	if _, err := h.store.AssignRegions(ctx, team, contact, codes); err != nil {
		return "", op.Fail(err, "❌ Error assigning GEOs.")
	}
	return fmt.Sprintf("✅ %s in %s now serves %s", contact, team, strings.Join(codes, " ")), nil
}

func (h *Handler) record(cmd, status string) {
	if h.recorder != nil {
		h.recorder.RecordAdminCommand(cmd, status)
	}
}

func (h *Handler) reply(text string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithSender(text, h.sender),
	}
}
