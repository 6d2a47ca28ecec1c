// Package ctxutil carries the chat tracing values (user, chat, request,
// webhook event and message ids) through a context.
package ctxutil

import "context"

type key uint8

const (
	userIDKey key = iota
	chatIDKey
	requestIDKey
	eventIDKey
	messageIDKey
)

// tracingKeys lists every key CopyTracing moves.
var tracingKeys = [...]key{userIDKey, chatIDKey, requestIDKey, eventIDKey, messageIDKey}

func get(ctx context.Context, k key) (string, bool) {
	v, ok := ctx.Value(k).(string)
	return v, ok
}

func value(ctx context.Context, k key) string {
	v, _ := get(ctx, k)
	return v
}

// WithUserID records the LINE user who sent the event.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the LINE user id, or "".
func GetUserID(ctx context.Context) string { return value(ctx, userIDKey) }

// WithChatID records the user, group or room the event came from.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

// GetChatID returns the chat id, or "".
func GetChatID(ctx context.Context) string { return value(ctx, chatIDKey) }

// WithRequestID records the id correlating logs of one HTTP request or event.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request id and whether one was set.
func GetRequestID(ctx context.Context) (string, bool) { return get(ctx, requestIDKey) }

// WithEventID records the LINE webhook event id.
func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDKey, eventID)
}

// GetEventID returns the webhook event id, or "".
func GetEventID(ctx context.Context) string { return value(ctx, eventIDKey) }

// WithMessageID records the LINE message id.
func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, messageIDKey, messageID)
}

// GetMessageID returns the message id, or "".
func GetMessageID(ctx context.Context) string { return value(ctx, messageIDKey) }

// PreserveTracing returns a fresh background context holding only the
// tracing values of ctx, so work that outlives the request (event replies,
// request logging) keeps its ids without keeping the request alive.
func PreserveTracing(ctx context.Context) context.Context {
	return CopyTracing(context.Background(), ctx)
}

// CopyTracing returns dst with the non-empty tracing values of src added.
func CopyTracing(dst, src context.Context) context.Context {
	for _, k := range tracingKeys {
		if v := value(src, k); v != "" {
			dst = context.WithValue(dst, k, v)
		}
	}
	return dst
}
