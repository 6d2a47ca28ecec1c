package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyellow/geo-linebot-go/internal/storage"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return "etag", nil
}

func (m *memoryStore) PresignGet(_ context.Context, key, filename string, ttl time.Duration) (string, error) {
	return "https://r2.test/" + key + "?name=" + filename + "&ttl=" + ttl.String(), nil
}

func sampleRows() []storage.Request {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []storage.Request{
		{Team: "team1", UserID: "U2", Username: "Bob", Geo: "US DE", RequestDate: at.Add(time.Hour)},
		{Team: "team1", UserID: "U1", Username: "", Geo: "0012", RequestDate: at},
	}
}

func TestWorkbook(t *testing.T) {
	t.Parallel()

	buf, err := Workbook(sampleRows())
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"U2", "Bob", "US DE", "2026-03-01 10:30:00"}, rows[1])
	assert.Equal(t, "0012", rows[2][2])

	typ, err := f.GetCellType(SheetName, "C3")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeNumber, typ, "codes must stay strings")
}

func TestWorkbook_Empty(t *testing.T) {
	t.Parallel()

	buf, err := Workbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFileName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "team1_requests.xlsx", FileName("Team1"))
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	p := NewPublisher(store, "/exports/", 15*time.Minute)
	fixed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	link, err := p.Publish(context.Background(), "Team1", sampleRows())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link.Key, "exports/team1/"), link.Key)
	assert.True(t, strings.HasSuffix(link.Key, ".xlsx"), link.Key)
	assert.Equal(t, "team1_requests.xlsx", link.FileName)
	assert.Equal(t, 2, link.Rows)
	assert.Equal(t, fixed.Add(15*time.Minute), link.ExpiresAt)
	assert.Contains(t, link.URL, link.Key)
	assert.Contains(t, link.URL, "name=team1_requests.xlsx")

	data, ok := store.objects[link.Key]
	require.True(t, ok)
	assert.Equal(t, ContentType, store.types[link.Key])
	_, err = excelize.OpenReader(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestPublisher_UniqueKeys(t *testing.T) {
	t.Parallel()

	p := NewPublisher(newMemoryStore(), "", time.Minute)
	a, err := p.Publish(context.Background(), "team1", sampleRows())
	require.NoError(t, err)
	b, err := p.Publish(context.Background(), "team1", sampleRows())
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
	assert.True(t, strings.HasPrefix(a.Key, "team1/"), a.Key)
}

func TestPublisher_Errors(t *testing.T) {
	t.Parallel()

	p := NewPublisher(newMemoryStore(), "exports", time.Minute)
	_, err := p.Publish(context.Background(), "team1", nil)
	assert.ErrorIs(t, err, ErrNoRequests)

	failing := newMemoryStore()
	failing.uploadErr = errors.New("boom")
	p = NewPublisher(failing, "exports", time.Minute)
	_, err = p.Publish(context.Background(), "team1", sampleRows())
	assert.ErrorContains(t, err, "upload workbook")
}
