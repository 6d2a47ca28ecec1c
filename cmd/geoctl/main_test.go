package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyellow/geo-linebot-go/internal/config"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// useConfig points loadConfig at a throwaway SQLite directory.
// Tests that call it must not run in parallel.
func useConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		LogLevel: "error",
		DataDir:  t.TempDir(),
		Geo: config.GeoConfig{
			MatchThreshold: 70,
			LookupWorkers:  4,
			LookupTimeout:  time.Second,
			MaxRegions:     12,
		},
	}
	prev := loadConfig
	loadConfig = func() (*config.Config, error) {
		c := *cfg
		return &c, nil
	}
	t.Cleanup(func() { loadConfig = prev })
	return cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveCmd(t *testing.T) {
	useConfig(t)

	out, err := run(t, "resolve", "US", "Germny", "xyz123")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "US\tUS\t100.0", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Germny\tDE\t"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "xyz123\tunresolved\t"), lines[2])
}

func TestValidateCmd(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		out, err := run(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "✅ embedded dictionary")
	})

	t.Run("conflicting variant", func(t *testing.T) {
		path := writeFile(t, "regions.yaml", "US: [USA, America]\nAM: [Armenia, america]\n")

		out, err := run(t, "validate", "--regions", path)
		require.Error(t, err)
		assert.Contains(t, out, `"America" is also a variant of AM`)
	})
}

const seedDoc = `
- team: Team1
  contacts: ["@a"]
  manager_ids: [U1]
  regions: [us, DE]
- team: Team2
  contacts: ["@b"]
  manager_ids: [U2]
  regions: [PL]
`

func TestSeedThenLookup(t *testing.T) {
	useConfig(t)

	out, err := run(t, "seed", writeFile(t, "seed.yaml", seedDoc))
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries imported")

	out, err = run(t, "lookup", "US,", "Germny")
	require.NoError(t, err)
	assert.Contains(t, out, "GEO: US, DE – Team1 – @a")
	assert.NotContains(t, out, "Team2")
}

func TestSeedCmd_UnknownRegion(t *testing.T) {
	useConfig(t)
	doc := "- team: Team1\n  contacts: [\"@a\"]\n  regions: [XX]\n"

	_, err := run(t, "seed", writeFile(t, "seed.yaml", doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown region "XX"`)

	_, err = run(t, "seed", "--allow-unknown", writeFile(t, "seed.yaml", doc))
	require.NoError(t, err)
}

func TestSeedBatch(t *testing.T) {
	t.Parallel()
	known := func(code string) bool { return code == "US" || code == "DE" }

	tests := []struct {
		name    string
		entries []seedEntry
		wantErr string
		want    []string
	}{
		{
			name:    "upper-cases regions",
			entries: []seedEntry{{Team: " Team1 ", Contacts: []string{"@a"}, Regions: []string{"us", "de"}}},
			want:    []string{"US", "DE"},
		},
		{
			name:    "missing team",
			entries: []seedEntry{{Contacts: []string{"@a"}}},
			wantErr: "entry 1: team is required",
		},
		{
			name:    "missing contacts",
			entries: []seedEntry{{Team: "Team1"}},
			wantErr: "at least one contact is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			batch, err := seedBatch(tt.entries, known, false)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, batch, 1)
			assert.Equal(t, "Team1", batch[0].Team)
			assert.Equal(t, tt.want, batch[0].Regions)
		})
	}
}

func TestExportCmd(t *testing.T) {
	cfg := useConfig(t)
	ctx := context.Background()

	db, err := storage.New(ctx, cfg.SQLitePath())
	require.NoError(t, err)
	require.NoError(t, db.AppendRequests(ctx, []storage.Request{
		{Team: "team1", UserID: "U1", Username: "Ann", Geo: "US DE", RequestDate: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}))
	require.NoError(t, db.Close())

	path := filepath.Join(t.TempDir(), "out", "team1.xlsx")
	out, err := run(t, "export", "Team1", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 requests written")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"U1", "Ann", "US DE"}, rows[1][:3])

	_, err = run(t, "export", "Team9", "--out", path)
	assert.ErrorContains(t, err, "no requests logged for team Team9")
}
