package r2client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeR2 is a minimal path-style S3 server keeping objects in memory.
type fakeR2 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeR2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = data
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		if r.URL.Query().Get("list-type") == "2" {
			f.list(w, r)
			return
		}
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			}
			return
		}
		w.Header().Set("ETag", `"etag-1"`)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		if _, ok := f.objects[r.URL.Path]; !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeR2) get(path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[path]
}

func (f *fakeR2) list(w http.ResponseWriter, r *http.Request) {
	bucket := strings.Trim(r.URL.Path, "/")
	prefix := r.URL.Query().Get("prefix")

	var keys []string
	for path := range f.objects {
		key := strings.TrimPrefix(path, "/"+bucket+"/")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>", bucket, prefix, len(keys))
	for _, key := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><LastModified>2026-01-02T03:04:05.000Z</LastModified><Size>%d</Size></Contents>", key, len(f.objects["/"+bucket+"/"+key]))
	}
	b.WriteString("</ListBucketResult>")

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, b.String())
}

func newTestClient(t *testing.T) (*Client, *fakeR2) {
	t.Helper()
	fake := &fakeR2{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		Endpoint:    srv.URL,
		AccessKeyID: "test-key",
		SecretKey:   "test-secret",
		BucketName:  "exports",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func TestNew_RequiresAllFields(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), Config{Endpoint: "https://x", AccessKeyID: "k"})
	if err == nil {
		t.Fatal("expected error for incomplete config")
	}
	for _, field := range []string{"secret key", "bucket"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not name %q", err, field)
		}
	}
}

func TestEndpointFor(t *testing.T) {
	t.Parallel()
	if got := EndpointFor("abc123"); got != "https://abc123.r2.cloudflarestorage.com" {
		t.Errorf("EndpointFor() = %q", got)
	}
}

func TestUploadDelete(t *testing.T) {
	t.Parallel()
	c, fake := newTestClient(t)
	ctx := context.Background()

	etag, err := c.Upload(ctx, "exports/team1/a.xlsx", bytes.NewReader([]byte("workbook")), "application/octet-stream")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if etag != "etag-1" {
		t.Errorf("etag = %q, want etag-1", etag)
	}
	if got := string(fake.get("/exports/exports/team1/a.xlsx")); got != "workbook" {
		t.Errorf("stored %q path-style, want workbook", got)
	}

	if err := c.DeleteObject(ctx, "exports/team1/a.xlsx"); err != nil {
		t.Fatalf("DeleteObject() error = %v", err)
	}
	if fake.get("/exports/exports/team1/a.xlsx") != nil {
		t.Error("object still present after delete")
	}
	if err := c.DeleteObject(ctx, "missing"); err != nil {
		t.Errorf("DeleteObject(missing) error = %v", err)
	}
}

func TestPresignGet(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)

	link, err := c.PresignGet(context.Background(), "exports/team1/a.xlsx", "team1_requests.xlsx", 15*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet() error = %v", err)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", link, err)
	}
	if !strings.HasSuffix(u.Path, "/exports/exports/team1/a.xlsx") {
		t.Errorf("unexpected path %q", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Expires") != "900" {
		t.Errorf("X-Amz-Expires = %q, want 900", q.Get("X-Amz-Expires"))
	}
	if !strings.Contains(q.Get("response-content-disposition"), "team1_requests.xlsx") {
		t.Errorf("content disposition missing filename: %q", q.Get("response-content-disposition"))
	}
	if q.Get("X-Amz-Signature") == "" {
		t.Error("URL is not signed")
	}

	if _, err := c.PresignGet(context.Background(), "k", "", 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestListObjects(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)
	ctx := context.Background()

	for _, key := range []string{"exports/team1/a.xlsx", "exports/team2/b.xlsx", "other/c.txt"} {
		if _, err := c.Upload(ctx, key, bytes.NewReader([]byte("data")), ""); err != nil {
			t.Fatalf("Upload(%s) error = %v", key, err)
		}
	}

	objects, err := c.ListObjects(ctx, "exports/")
	if err != nil {
		t.Fatalf("ListObjects() error = %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2: %+v", len(objects), objects)
	}
	if objects[0].Key != "exports/team1/a.xlsx" || objects[0].Size != 4 {
		t.Errorf("objects[0] = %+v", objects[0])
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !objects[1].LastModified.Equal(want) {
		t.Errorf("LastModified = %v, want %v", objects[1].LastModified, want)
	}
}
