package requestlog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/garyellow/geo-linebot-go/internal/ctxutil"
	"github.com/garyellow/geo-linebot-go/internal/grouping"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// Recorder counts request log outcomes: "success", "error" or "dropped".
type Recorder interface {
	RecordRequestLog(status string)
}

// Config configures a Logger.
type Config struct {
	Mode          Mode
	AggregateTeam string        // extra team receiving every request; empty disables
	Timeout       time.Duration // per write
	Buffer        int           // queued requests before Log starts dropping
	Workers       int
	Recorder      Recorder
}

type job struct {
	ctx context.Context
	req Request
}

// Logger writes requests asynchronously. Log never blocks; a full queue or a
// stopped logger drops the request.
type Logger struct {
	dir   grouping.Directory
	store storage.RequestLogStore
	cfg   Config

	queue  chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// cancels in-flight writes when Shutdown runs out of time
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New starts a logger with cfg.Workers goroutines.
func New(dir grouping.Directory, store storage.RequestLogStore, cfg Config) *Logger {
	if cfg.Mode == "" {
		cfg.Mode = ModePerTeam
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	l := &Logger{
		dir:     dir,
		store:   store,
		cfg:     cfg,
		queue:   make(chan job, cfg.Buffer),
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	for range cfg.Workers {
		l.wg.Go(l.work)
	}
	return l
}

// Log enqueues req. It returns false if the request was dropped. Requests
// without resolved codes are ignored and reported as not queued.
func (l *Logger) Log(ctx context.Context, req Request) bool {
	if len(req.Codes) == 0 {
		return false
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		l.record("dropped")
		return false
	}

	select {
	case l.queue <- job{ctx: ctxutil.PreserveTracing(ctx), req: req}:
		return true
	default:
		l.record("dropped")
		slog.WarnContext(ctx, "request log queue full, dropping request",
			"codes", req.Codes)
		return false
	}
}

func (l *Logger) work() {
	for j := range l.queue {
		l.write(j)
	}
}

func (l *Logger) write(j job) {
	ctx, cancel := context.WithTimeout(l.baseCtx, l.cfg.Timeout)
	defer cancel()
	ctx = ctxutil.CopyTracing(ctx, j.ctx)

	defer func() {
		if r := recover(); r != nil {
			l.record("error")
			slog.ErrorContext(ctx, "panic while logging request",
				"panic", r)
		}
	}()

	rows, err := BuildRows(ctx, l.dir, j.req, l.cfg.Mode, l.cfg.AggregateTeam)
	if err == nil && len(rows) > 0 {
		err = l.store.AppendRequests(ctx, rows)
	}
	if err != nil {
		l.record("error")
		slog.ErrorContext(ctx, "failed to log request",
			"codes", j.req.Codes,
			"error", err)
		return
	}
	l.record("success")
	slog.DebugContext(ctx, "request logged",
		"rows", len(rows))
}

// Shutdown stops accepting requests and waits for queued ones to be written.
// If ctx expires first, in-flight writes are cancelled and ctx.Err() returned.
func (l *Logger) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.cancel()
		return nil
	case <-ctx.Done():
		l.cancel()
		<-done
		return errors.Join(errors.New("request log shutdown timed out"), ctx.Err())
	}
}

func (l *Logger) record(status string) {
	if l.cfg.Recorder != nil {
		l.cfg.Recorder.RecordRequestLog(status)
	}
}
