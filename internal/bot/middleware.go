package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/metrics"
	"github.com/garyellow/geo-linebot-go/internal/sentry"
)

// HandlerFunc runs one handler for one request.
type HandlerFunc func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Kind tells middlewares whether a message or a postback is being handled.
type Kind string

const (
	KindMessage  Kind = "message"
	KindPostback Kind = "postback"
)

type kindKey struct{}

// WithKind stores the dispatch kind in ctx.
func WithKind(ctx context.Context, k Kind) context.Context {
	return context.WithValue(ctx, kindKey{}, k)
}

// KindFrom returns the dispatch kind, defaulting to KindMessage.
func KindFrom(ctx context.Context) Kind {
	if k, ok := ctx.Value(kindKey{}).(Kind); ok {
		return k
	}
	return KindMessage
}

// LoggingMiddleware logs handler execution with timing and result info.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
			start := time.Now()

			log.WithField("module", h.Name()).
				WithField("kind", KindFrom(ctx)).
				WithField("text_length", len(req.Text)).
				DebugContext(ctx, "Handler started")

			msgs := next(ctx, h, req)

			log.WithField("module", h.Name()).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				WithField("msg_count", len(msgs)).
				DebugContext(ctx, "Handler completed")

			return msgs
		}
	}
}

// MetricsMiddleware records handler execution metrics.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
			start := time.Now()
			msgs := next(ctx, h, req)
			if m != nil {
				m.RecordHandler(h.Name(), string(KindFrom(ctx)), time.Since(start).Seconds())
			}
			return msgs
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers and answers with text.
func RecoveryMiddleware(log *logger.Logger, text string, sender *messaging_api.Sender) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, req Request) (msgs []messaging_api.MessageInterface) {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("module", h.Name()).
						WithField("panic", r).
						WithField("stack", string(debug.Stack())).
						ErrorContext(ctx, "Handler panicked")
					sentry.Capture(ctx, h.Name(), fmt.Errorf("panic in %s handler: %v", h.Name(), r))
					msgs = []messaging_api.MessageInterface{
						lineutil.NewTextMessageWithSender(text, sender),
					}
				}
			}()

			return next(ctx, h, req)
		}
	}
}
