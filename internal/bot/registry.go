package bot

import (
	"context"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Registry manages bot handlers and dispatches messages/postbacks.
// Handlers are tried in registration order.
type Registry struct {
	handlers    []Handler
	fallback    Handler
	middlewares []Middleware
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make([]Handler, 0),
	}
}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// SetFallback sets the handler for text no registered handler accepts.
func (r *Registry) SetFallback(h Handler) {
	r.fallback = h
}

// Use appends middlewares. The first one added is the outermost.
func (r *Registry) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// DispatchMessage dispatches a text message to the first handler that can handle it.
func (r *Registry) DispatchMessage(ctx context.Context, req Request) []messaging_api.MessageInterface {
	h := r.match(req.Text)
	if h == nil {
		return nil
	}
	return r.chain(func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
		return h.HandleMessage(ctx, req)
	})(WithKind(ctx, KindMessage), h, req)
}

// DispatchFallback sends req straight to the fallback handler.
func (r *Registry) DispatchFallback(ctx context.Context, req Request) []messaging_api.MessageInterface {
	if r.fallback == nil {
		return nil
	}
	return r.chain(func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
		return h.HandleMessage(ctx, req)
	})(WithKind(ctx, KindMessage), r.fallback, req)
}

// DispatchPostback dispatches a postback event based on the prefix.
func (r *Registry) DispatchPostback(ctx context.Context, req Request, data string) []messaging_api.MessageInterface {
	for _, h := range r.all() {
		prefix := h.PostbackPrefix()
		if prefix == "" || !strings.HasPrefix(data, prefix) {
			continue
		}
		payload := strings.TrimPrefix(data, prefix)
		return r.chain(func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
			return h.HandlePostback(ctx, req, payload)
		})(WithKind(ctx, KindPostback), h, req)
	}
	return nil
}

// GetHandler returns a handler by name.
func (r *Registry) GetHandler(name string) Handler {
	for _, h := range r.all() {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

func (r *Registry) match(text string) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(text) {
			return h
		}
	}
	return r.fallback
}

func (r *Registry) all() []Handler {
	if r.fallback == nil {
		return r.handlers
	}
	return append(r.handlers[:len(r.handlers):len(r.handlers)], r.fallback)
}

func (r *Registry) chain(final HandlerFunc) HandlerFunc {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		final = r.middlewares[i](final)
	}
	return final
}
