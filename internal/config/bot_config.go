package config

import (
	"errors"
	"fmt"
	"time"
)

// LINE Messaging API limits.
// https://developers.line.biz/en/reference/messaging-api/#rate-limits
const (
	lineMaxReplyMessages = 5
	lineMaxPostbackData  = 300
	lineMaxRPS           = 100
)

// BotConfig holds the per-event limits shared by the webhook handler and the
// bot processor.
type BotConfig struct {
	WebhookTimeout      time.Duration
	MaxMessagesPerReply int
	MaxEventsPerWebhook int
	MinReplyTokenLength int
	MaxMessageLength    int // runes
	MaxPostbackDataSize int // bytes

	UserRateLimitBurst        float64
	UserRateLimitRefillPerSec float64
	GlobalRateLimitRPS        float64
	ExportDailyLimit          int // 0 disables the limit
}

// DefaultBotConfig returns limits sized for a single bot channel.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		WebhookTimeout:      WebhookProcessing,
		MaxMessagesPerReply: lineMaxReplyMessages,
		MaxEventsPerWebhook: 100,
		MinReplyTokenLength: 10,
		MaxMessageLength:    2000,
		MaxPostbackDataSize: lineMaxPostbackData,

		UserRateLimitBurst:        10,
		UserRateLimitRefillPerSec: 0.5,
		GlobalRateLimitRPS:        lineMaxRPS * 0.8,
		ExportDailyLimit:          20,
	}
}

// Validate reports every out-of-range field.
func (c BotConfig) Validate() error {
	checks := []struct {
		bad bool
		msg string
	}{
		{c.WebhookTimeout <= 0, fmt.Sprintf("webhook timeout must be positive, got %v", c.WebhookTimeout)},
		{c.MaxMessagesPerReply < 1 || c.MaxMessagesPerReply > lineMaxReplyMessages,
			fmt.Sprintf("messages per reply must be 1-%d, got %d", lineMaxReplyMessages, c.MaxMessagesPerReply)},
		{c.MaxEventsPerWebhook < 1, fmt.Sprintf("events per webhook must be positive, got %d", c.MaxEventsPerWebhook)},
		{c.MaxMessageLength < 1, fmt.Sprintf("message length must be positive, got %d", c.MaxMessageLength)},
		{c.MaxPostbackDataSize < 0 || c.MaxPostbackDataSize > lineMaxPostbackData,
			fmt.Sprintf("postback data size must be 0-%d, got %d", lineMaxPostbackData, c.MaxPostbackDataSize)},
		{c.UserRateLimitBurst <= 0, fmt.Sprintf("user burst must be positive, got %g", c.UserRateLimitBurst)},
		{c.UserRateLimitRefillPerSec <= 0, fmt.Sprintf("user refill rate must be positive, got %g", c.UserRateLimitRefillPerSec)},
		{c.GlobalRateLimitRPS <= 0 || c.GlobalRateLimitRPS > lineMaxRPS,
			fmt.Sprintf("global RPS must be in (0, %d], got %g", lineMaxRPS, c.GlobalRateLimitRPS)},
		{c.ExportDailyLimit < 0, fmt.Sprintf("export daily limit cannot be negative, got %d", c.ExportDailyLimit)},
	}

	var errs []error
	for _, chk := range checks {
		if chk.bad {
			errs = append(errs, errors.New(chk.msg))
		}
	}
	return errors.Join(errs...)
}
