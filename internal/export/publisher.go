package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// ErrNoRequests is returned when a team has nothing to export.
var ErrNoRequests = errors.New("export: no requests")

// ObjectStore is the subset of the R2 client the publisher needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// Link is a published workbook.
type Link struct {
	URL       string
	Key       string
	FileName  string
	Rows      int
	ExpiresAt time.Time
}

// Publisher uploads workbooks under {prefix}/{team}/{uuid}.xlsx.
type Publisher struct {
	store  ObjectStore
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewPublisher creates a publisher. ttl bounds the lifetime of returned links.
func NewPublisher(store ObjectStore, prefix string, ttl time.Duration) *Publisher {
	return &Publisher{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Publish renders rows, uploads the workbook and returns a presigned link.
func (p *Publisher) Publish(ctx context.Context, team string, rows []storage.Request) (*Link, error) {
	if len(rows) == 0 {
		return nil, ErrNoRequests
	}

	buf, err := Workbook(rows)
	if err != nil {
		return nil, err
	}

	key := p.objectKey(team)
	if _, err := p.store.Upload(ctx, key, buf, ContentType); err != nil {
		return nil, fmt.Errorf("upload workbook: %w", err)
	}

	name := FileName(team)
	url, err := p.store.PresignGet(ctx, key, name, p.ttl)
	if err != nil {
		return nil, fmt.Errorf("presign workbook: %w", err)
	}

	return &Link{
		URL:       url,
		Key:       key,
		FileName:  name,
		Rows:      len(rows),
		ExpiresAt: p.now().Add(p.ttl),
	}, nil
}

func (p *Publisher) objectKey(team string) string {
	file := uuid.NewString() + ".xlsx"
	if p.prefix == "" {
		return path.Join(strings.ToLower(team), file)
	}
	return path.Join(p.prefix, strings.ToLower(team), file)
}
