package webhook

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Client is the part of the LINE messaging API the webhook handler calls.
type Client interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(ctx context.Context, chatID string, seconds int32) error
}

// LineClient adapts the SDK client to Client.
type LineClient struct {
	api *messaging_api.MessagingApiAPI
}

// NewLineClient wraps api.
func NewLineClient(api *messaging_api.MessagingApiAPI) *LineClient {
	return &LineClient{api: api}
}

// Reply sends a reply message.
func (c *LineClient) Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// ShowLoading shows the loading animation in a personal chat.
func (c *LineClient) ShowLoading(ctx context.Context, chatID string, seconds int32) error {
	_, err := c.api.WithContext(ctx).ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}
