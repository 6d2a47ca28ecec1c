package ratelimit

import (
	"sync"
	"time"
)

// window approximates a rolling quota with two fixed slots: requests in the
// previous slot count in proportion to how much of it still overlaps the
// rolling period.
type window struct {
	mu    sync.Mutex
	limit int
	size  time.Duration
	start time.Time
	cur   int
	prev  int
	now   func() time.Time
}

// newWindow returns nil for a non-positive limit; a nil window allows everything.
func newWindow(limit int, size time.Duration, now func() time.Time) *window {
	if limit <= 0 {
		return nil
	}
	return &window{limit: limit, size: size, start: now(), now: now}
}

// count rolls the slots forward and returns the weighted request count. mu must be held.
func (w *window) count() float64 {
	t := w.now()
	if passed := int(t.Sub(w.start) / w.size); passed > 0 {
		w.prev = 0
		if passed == 1 {
			w.prev = w.cur
		}
		w.cur = 0
		w.start = w.start.Add(time.Duration(passed) * w.size)
	}
	overlap := 1 - float64(t.Sub(w.start))/float64(w.size)
	return float64(w.cur) + float64(w.prev)*min(max(overlap, 0), 1)
}

func (w *window) ready() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count() < float64(w.limit)
}

func (w *window) add() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count()
	w.cur++
}

// remaining returns the whole requests left, or -1 for an unlimited window.
func (w *window) remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return max(int(float64(w.limit)-w.count()), 0)
}

func (w *window) empty() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count() == 0
}
