package bot

import (
	"context"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

func TestRegistry_DispatchMessage(t *testing.T) {
	t.Parallel()
	first := &mockHandler{name: "first", canHandle: false, reply: "first"}
	second := &mockHandler{name: "second", canHandle: true, reply: "second"}
	third := &mockHandler{name: "third", canHandle: true, reply: "third"}

	r := NewRegistry()
	r.Register(first)
	r.Register(second)
	r.Register(third)

	msgs := r.DispatchMessage(context.Background(), Request{Text: "US"})
	if got := textOf(t, msgs); got != "second" {
		t.Errorf("expected first matching handler, got %q", got)
	}
	if second.lastText != "US" {
		t.Errorf("handler received %q", second.lastText)
	}
}

func TestRegistry_Fallback(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register(&mockHandler{name: "none", canHandle: false})

	if msgs := r.DispatchMessage(context.Background(), Request{Text: "/unknown"}); msgs != nil {
		t.Errorf("expected nil without fallback, got %v", msgs)
	}

	fb := &mockHandler{name: "start", reply: "hi", postbackPrefix: "start$"}
	r.SetFallback(fb)

	if got := textOf(t, r.DispatchMessage(context.Background(), Request{Text: "/unknown"})); got != "hi" {
		t.Errorf("expected fallback reply, got %q", got)
	}
	if got := textOf(t, r.DispatchFallback(context.Background(), Request{Text: "[image message]"})); got != "hi" {
		t.Errorf("expected fallback reply, got %q", got)
	}
	if r.GetHandler("start") != fb {
		t.Error("GetHandler should find the fallback")
	}
	if r.GetHandler("missing") != nil {
		t.Error("GetHandler should return nil for unknown names")
	}
}

func TestRegistry_DispatchPostback(t *testing.T) {
	t.Parallel()
	start := &mockHandler{name: "start", postbackPrefix: "start$", reply: "start"}
	r := NewRegistry()
	r.Register(&mockHandler{name: "geo"})
	r.Register(start)

	got := textOf(t, r.DispatchPostback(context.Background(), Request{}, "start$geo"))
	if got != "start:geo" {
		t.Errorf("unexpected reply %q", got)
	}
	if start.lastPostback != "geo" {
		t.Errorf("prefix not stripped: %q", start.lastPostback)
	}
	if msgs := r.DispatchPostback(context.Background(), Request{}, "unknown$detail"); msgs != nil {
		t.Errorf("expected nil for unknown prefix, got %v", msgs)
	}
}

func TestRegistry_MiddlewareOrder(t *testing.T) {
	t.Parallel()
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
				order = append(order, name+":"+string(KindFrom(ctx)))
				return next(ctx, h, req)
			}
		}
	}

	r := NewRegistry()
	r.Use(mw("outer"), mw("inner"))
	r.Register(&mockHandler{name: "h", canHandle: true, postbackPrefix: "h$"})

	r.DispatchMessage(context.Background(), Request{Text: "x"})
	r.DispatchPostback(context.Background(), Request{}, "h$y")

	want := []string{"outer:message", "inner:message", "outer:postback", "inner:postback"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}
