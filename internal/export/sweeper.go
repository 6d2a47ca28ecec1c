package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyellow/geo-linebot-go/internal/r2client"
)

// ObjectPruner lists and deletes stored workbooks. *r2client.Client
// implements it.
type ObjectPruner interface {
	ListObjects(ctx context.Context, prefix string) ([]r2client.Object, error)
	DeleteObject(ctx context.Context, key string) error
}

// Sweeper deletes published workbooks older than the retention period.
// Links expire long before that, so nothing reachable is removed.
type Sweeper struct {
	store     ObjectPruner
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewSweeper creates a sweeper for objects under prefix.
func NewSweeper(store ObjectPruner, prefix string, retention time.Duration) *Sweeper {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Sweeper{
		store:     store,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

// Sweep deletes expired workbooks and returns how many were removed. It
// keeps going after a failed delete and reports all failures together.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.store.ListObjects(ctx, s.prefix)
	if err != nil {
		return 0, fmt.Errorf("list exports: %w", err)
	}

	cutoff := s.now().Add(-s.retention)
	var (
		deleted int
		errs    []error
	)
	for _, o := range objects {
		if !strings.HasSuffix(o.Key, ".xlsx") || !o.LastModified.Before(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := s.store.DeleteObject(ctx, o.Key); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
