//go:build integration

package postgres

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/garyellow/geo-linebot-go/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("geo"),
		tcpostgres.WithUsername("geo"),
		tcpostgres.WithPassword("geo"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { testcontainers.CleanupContainer(t, container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	store, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Directory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveContactsBatch(ctx, []*storage.ContactEntry{
		{Team: "Team1", Contacts: []string{"@a"}, ManagerIDs: []string{"100"}, Regions: []string{"US", "DE"}},
		{Team: "Team2", Contacts: []string{"@b"}, ManagerIDs: []string{"200"}, Regions: []string{"DE"}},
	})
	if err != nil {
		t.Fatalf("SaveContactsBatch failed: %v", err)
	}

	got, err := store.LookupByRegion(ctx, "DE")
	if err != nil {
		t.Fatalf("LookupByRegion failed: %v", err)
	}
	var names []string
	for _, e := range got {
		names = append(names, e.Display())
	}
	if want := []string{"Team1 – @a", "Team2 – @b"}; !slices.Equal(names, want) {
		t.Errorf("LookupByRegion(DE) = %q, want %q", names, want)
	}

	team, err := store.LookupTeamByManager(ctx, "200")
	if err != nil || team != "Team2" {
		t.Errorf("LookupTeamByManager = %q, %v", team, err)
	}
	if _, err := store.LookupTeamByManager(ctx, "999"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := store.AddContact(ctx, "Team1", "@a", "101"); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
	if _, err := store.ChangeContact(ctx, "Team2", "@b", "200", "@c", "201"); err != nil {
		t.Errorf("ChangeContact failed: %v", err)
	}
	if _, err := store.AssignRegions(ctx, "Team2", "@c", []string{"IT"}); err != nil {
		t.Errorf("AssignRegions failed: %v", err)
	}
	if got, _ := store.LookupByRegion(ctx, "IT"); len(got) != 1 || got[0].Display() != "Team2 – @c" {
		t.Errorf("Unexpected IT lookup: %+v", got)
	}
	if _, err := store.DeleteContact(ctx, "Team2", "@c", "201"); err != nil {
		t.Errorf("DeleteContact failed: %v", err)
	}
	if _, err := store.DeleteContact(ctx, "Team2", "@c", "201"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_Requests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err := store.AppendRequests(ctx, []storage.Request{
		{Team: "Team1", UserID: "u1", Username: "Alice", Geo: "US", RequestDate: base},
		{Team: "Team1", UserID: "u2", Username: "Bob", Geo: "US DE", RequestDate: base.Add(time.Minute)},
	})
	if err != nil {
		t.Fatalf("AppendRequests failed: %v", err)
	}

	got, err := store.ListRequests(ctx, "TEAM1")
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if len(got) != 2 || got[0].Username != "Bob" || got[1].Team != "team1" {
		t.Errorf("Unexpected requests: %+v", got)
	}

	if err := store.AppendMessage(ctx, storage.Message{UserID: "u1", Text: "hello"}); err != nil {
		t.Errorf("AppendMessage failed: %v", err)
	}
}
