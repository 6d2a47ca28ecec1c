package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyellow/geo-linebot-go/internal/ctxutil"
)

// tracingFields are copied from the context onto every record.
var tracingFields = []struct {
	key string
	get func(context.Context) string
}{
	{"user_id", ctxutil.GetUserID},
	{"chat_id", ctxutil.GetChatID},
	{"request_id", func(ctx context.Context) string {
		id, _ := ctxutil.GetRequestID(ctx)
		return id
	}},
	{"event_id", ctxutil.GetEventID},
	{"message_id", ctxutil.GetMessageID},
}

// tracingHandler adds the tracing values carried by ctx to each record.
type tracingHandler struct {
	next slog.Handler
}

func withTracing(next slog.Handler) slog.Handler {
	return tracingHandler{next: next}
}

func (h tracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h tracingHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, f := range tracingFields {
		if v := f.get(ctx); v != "" {
			r.AddAttrs(slog.String(f.key, v))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h tracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tracingHandler{next: h.next.WithAttrs(attrs)}
}

func (h tracingHandler) WithGroup(name string) slog.Handler {
	return tracingHandler{next: h.next.WithGroup(name)}
}

// fanout writes each record to every sink enabled for its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// AsyncOptions tunes the queue in front of the remote sink.
type AsyncOptions struct {
	BufferSize   int           // default 1024
	FlushTimeout time.Duration // default 5s, used when Shutdown's ctx has no deadline
}

type queued struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// queue is shared by a shipper and every handler derived from it.
type queue struct {
	items        chan queued
	flushTimeout time.Duration
	done         chan struct{}
	stopOnce     sync.Once
	stopped      atomic.Bool
	dropped      atomic.Uint64
}

func newQueue(opts AsyncOptions) *queue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 5 * time.Second
	}
	q := &queue{
		items:        make(chan queued, opts.BufferSize),
		flushTimeout: opts.FlushTimeout,
		done:         make(chan struct{}),
	}
	go q.drain()
	return q
}

func (q *queue) drain() {
	defer close(q.done)
	for it := range q.items {
		_ = it.h.Handle(it.ctx, it.rec)
	}
}

// push never blocks; a full queue drops the record.
func (q *queue) push(it queued) {
	if q.stopped.Load() {
		q.dropped.Add(1)
		return
	}
	select {
	case q.items <- it:
	default:
		q.dropped.Add(1)
	}
}

func (q *queue) stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.stopped.Store(true)
		close(q.items)
	})
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flushTimeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shipper hands records to a slow remote handler on a background goroutine
// so request paths never wait on the network.
type shipper struct {
	q    *queue
	next slog.Handler
}

func newShipper(next slog.Handler, opts AsyncOptions) *shipper {
	return &shipper{q: newQueue(opts), next: next}
}

func (s *shipper) Enabled(ctx context.Context, level slog.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s *shipper) Handle(ctx context.Context, r slog.Record) error {
	s.q.push(queued{ctx: ctxutil.PreserveTracing(ctx), rec: r.Clone(), h: s.next})
	return nil
}

func (s *shipper) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &shipper{q: s.q, next: s.next.WithAttrs(attrs)}
}

func (s *shipper) WithGroup(name string) slog.Handler {
	return &shipper{q: s.q, next: s.next.WithGroup(name)}
}

// Shutdown waits for queued records to be shipped. Records logged after
// Shutdown are counted as dropped.
func (s *shipper) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.q.stop(ctx)
}

// Dropped reports how many records never reached the remote sink.
func (s *shipper) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.q.dropped.Load()
}
