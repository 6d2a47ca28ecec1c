package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBotConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultBotConfig()

	assert.Equal(t, WebhookProcessing, cfg.WebhookTimeout)
	assert.Equal(t, lineMaxReplyMessages, cfg.MaxMessagesPerReply)
	assert.Equal(t, lineMaxPostbackData, cfg.MaxPostbackDataSize)
	assert.Less(t, cfg.GlobalRateLimitRPS, float64(lineMaxRPS))
	require.NoError(t, cfg.Validate())
}

func TestBotConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		modify  func(*BotConfig)
		wantErr string
	}{
		{"valid", func(*BotConfig) {}, ""},
		{"zero webhook timeout", func(c *BotConfig) { c.WebhookTimeout = 0 }, "webhook timeout"},
		{"negative webhook timeout", func(c *BotConfig) { c.WebhookTimeout = -time.Second }, "webhook timeout"},
		{"too many messages per reply", func(c *BotConfig) { c.MaxMessagesPerReply = 6 }, "messages per reply"},
		{"zero messages per reply", func(c *BotConfig) { c.MaxMessagesPerReply = 0 }, "messages per reply"},
		{"zero events per webhook", func(c *BotConfig) { c.MaxEventsPerWebhook = 0 }, "events per webhook"},
		{"zero message length", func(c *BotConfig) { c.MaxMessageLength = 0 }, "message length"},
		{"postback over LINE limit", func(c *BotConfig) { c.MaxPostbackDataSize = 301 }, "postback data size"},
		{"zero user burst", func(c *BotConfig) { c.UserRateLimitBurst = 0 }, "user burst"},
		{"zero refill", func(c *BotConfig) { c.UserRateLimitRefillPerSec = 0 }, "refill rate"},
		{"zero global rps", func(c *BotConfig) { c.GlobalRateLimitRPS = 0 }, "global RPS"},
		{"global rps over LINE limit", func(c *BotConfig) { c.GlobalRateLimitRPS = 150 }, "global RPS"},
		{"negative export limit", func(c *BotConfig) { c.ExportDailyLimit = -1 }, "export daily limit"},
		{"unlimited exports", func(c *BotConfig) { c.ExportDailyLimit = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultBotConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBotConfig_ValidateReportsAll(t *testing.T) {
	t.Parallel()
	cfg := DefaultBotConfig()
	cfg.WebhookTimeout = 0
	cfg.ExportDailyLimit = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "webhook timeout")
	assert.ErrorContains(t, err, "export daily limit")
}
