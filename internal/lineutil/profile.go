package lineutil

import (
	"context"
	"log/slog"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// ProfileAPI is the subset of the messaging API used to fetch display names.
type ProfileAPI interface {
	GetProfile(userID string) (*messaging_api.UserProfileResponse, error)
	GetGroupMemberProfile(groupID, userID string) (*messaging_api.GroupUserProfileResponse, error)
}

// ProfileClient resolves user display names. Failures degrade to an empty
// name; a reply never waits longer than the configured timeout.
type ProfileClient struct {
	api     ProfileAPI
	timeout time.Duration
}

// NewProfileClient creates a profile client. A nil api disables lookups.
func NewProfileClient(api ProfileAPI, timeout time.Duration) *ProfileClient {
	return &ProfileClient{api: api, timeout: timeout}
}

// DisplayName returns the user's display name. groupID selects the group
// member profile endpoint, which works for users who are not friends of the bot.
func (c *ProfileClient) DisplayName(ctx context.Context, groupID, userID string) string {
	if c == nil || c.api == nil || userID == "" {
		return ""
	}

	type result struct {
		name string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		if groupID != "" {
			p, err := c.api.GetGroupMemberProfile(groupID, userID)
			if err != nil {
				done <- result{err: err}
				return
			}
			done <- result{name: p.DisplayName}
			return
		}
		p, err := c.api.GetProfile(userID)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{name: p.DisplayName}
	}()

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-done:
		if r.err != nil {
			slog.DebugContext(ctx, "failed to fetch profile",
				"error", r.err)
			return ""
		}
		return r.name
	case <-timeout:
		slog.DebugContext(ctx, "profile fetch timed out")
		return ""
	case <-ctx.Done():
		return ""
	}
}
