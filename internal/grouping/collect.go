package grouping

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// Directory is the lookup the collector needs from the contact directory.
type Directory interface {
	LookupByRegion(ctx context.Context, code string) ([]storage.ContactEntry, error)
}

// LookupRecorder receives one observation per directory lookup.
type LookupRecorder interface {
	RecordDirectoryLookup(status string, duration time.Duration)
}

// Options bounds the parallel lookups.
type Options struct {
	Concurrency int           // max lookups in flight; <= 0 means one per region
	Timeout     time.Duration // per lookup; <= 0 disables
	Recorder    LookupRecorder
}

// Sets holds the contact set of every looked-up region.
type Sets struct {
	Contacts map[string][]string // region -> ordered, duplicate-free display strings
	Failed   []string            // regions whose lookup failed, in request order
}

// Empty returns the regions that were looked up fine but have no contacts.
func (s Sets) Empty(regions []string) []string {
	failed := make(map[string]struct{}, len(s.Failed))
	for _, code := range s.Failed {
		failed[code] = struct{}{}
	}
	var out []string
	for _, code := range regions {
		if _, ok := failed[code]; ok {
			continue
		}
		if len(s.Contacts[code]) == 0 {
			out = append(out, code)
		}
	}
	return out
}

// Collect looks up every region in parallel. A failed or timed-out lookup is
// logged, listed in Sets.Failed and treated as an empty set; it never fails
// the whole collection.
func Collect(ctx context.Context, regions []string, dir Directory, opts Options) Sets {
	sets := Sets{Contacts: make(map[string][]string, len(regions))}
	if len(regions) == 0 {
		return sets
	}

	var (
		mu     sync.Mutex
		failed = make([]bool, len(regions))
	)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, code := range regions {
		g.Go(func() error {
			contacts, err := lookup(gctx, dir, code, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[i] = true
				slog.WarnContext(ctx, "directory lookup failed",
					"region", code,
					"error", err)
				return nil
			}
			sets.Contacts[code] = contacts
			return nil
		})
	}
	_ = g.Wait()

	for i, code := range regions {
		if failed[i] {
			sets.Failed = append(sets.Failed, code)
		}
	}
	return sets
}

func lookup(ctx context.Context, dir Directory, code string, opts Options) ([]string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	entries, err := dir.LookupByRegion(ctx, code)
	if opts.Recorder != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		opts.Recorder.RecordDirectoryLookup(status, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	contacts := make([]string, 0, len(entries))
	for _, e := range entries {
		contacts = append(contacts, e.Display())
	}
	return Distinct(contacts), nil
}
