package storage

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func seedDirectory(t *testing.T, db *DB) {
	t.Helper()
	entries := []*ContactEntry{
		{Team: "Team1", Contacts: []string{"@a"}, ManagerIDs: []string{"100"}, Regions: []string{"US", "DE"}},
		{Team: "Team2", Contacts: []string{"@b", "@c"}, ManagerIDs: []string{"200", "201"}, Regions: []string{"DE"}},
		{Team: "Team3", Contacts: []string{"@d"}, ManagerIDs: []string{"300"}, Regions: []string{"AU"}},
	}
	if err := db.SaveContactsBatch(context.Background(), entries); err != nil {
		t.Fatalf("SaveContactsBatch failed: %v", err)
	}
}

func displays(entries []ContactEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Display()
	}
	return out
}

func TestContactEntry_Display(t *testing.T) {
	t.Parallel()
	e := ContactEntry{Team: "Team2", Contacts: []string{"@b", "@c"}}
	if got, want := e.Display(), "Team2 – @b, @c"; got != want {
		t.Errorf("Display() = %q, want %q", got, want)
	}
}

func TestLookupByRegion(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedDirectory(t, db)
	ctx := context.Background()

	tests := []struct {
		code string
		want []string
	}{
		{"DE", []string{"Team1 – @a", "Team2 – @b, @c"}},
		{"US", []string{"Team1 – @a"}},
		{"AU", []string{"Team3 – @d"}},
		{"IT", nil},
		{"de", nil}, // codes are matched exactly
	}

	for _, tt := range tests {
		got, err := db.LookupByRegion(ctx, tt.code)
		if err != nil {
			t.Fatalf("LookupByRegion(%s) failed: %v", tt.code, err)
		}
		if !slices.Equal(displays(got), tt.want) {
			t.Errorf("LookupByRegion(%s) = %q, want %q", tt.code, displays(got), tt.want)
		}
	}
}

func TestLookupTeamByManager(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedDirectory(t, db)
	ctx := context.Background()

	team, err := db.LookupTeamByManager(ctx, "201")
	if err != nil {
		t.Fatalf("LookupTeamByManager failed: %v", err)
	}
	if team != "Team2" {
		t.Errorf("Expected Team2, got %q", team)
	}

	if _, err := db.LookupTeamByManager(ctx, "999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddContact(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	entry, err := db.AddContact(ctx, "Team9", "@z", "900")
	if err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}
	if entry.ID == 0 {
		t.Error("Expected entry id to be set")
	}

	if _, err := db.AddContact(ctx, "Team9", "@z", "901"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	all, err := db.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if len(all) != 1 || len(all[0].Regions) != 0 {
		t.Errorf("Unexpected directory: %+v", all)
	}
}

func TestChangeContact(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedDirectory(t, db)
	ctx := context.Background()

	n, err := db.ChangeContact(ctx, "Team2", "@c", "201", "@x", "202")
	if err != nil {
		t.Fatalf("ChangeContact failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 entry changed, got %d", n)
	}

	got, err := db.LookupByRegion(ctx, "DE")
	if err != nil {
		t.Fatalf("LookupByRegion failed: %v", err)
	}
	if want := []string{"Team1 – @a", "Team2 – @b, @x"}; !slices.Equal(displays(got), want) {
		t.Errorf("After change got %q, want %q", displays(got), want)
	}
	if team, _ := db.LookupTeamByManager(ctx, "202"); team != "Team2" {
		t.Errorf("Expected new manager id to map to Team2, got %q", team)
	}

	// Wrong manager id
	if _, err := db.ChangeContact(ctx, "Team2", "@b", "999", "@y", "203"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteContact(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedDirectory(t, db)
	ctx := context.Background()

	if _, err := db.DeleteContact(ctx, "Team1", "@a", "999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	n, err := db.DeleteContact(ctx, "Team1", "@a", "100")
	if err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 entry deleted, got %d", n)
	}

	got, _ := db.LookupByRegion(ctx, "US")
	if len(got) != 0 {
		t.Errorf("Expected US to have no entries, got %q", displays(got))
	}
}

func TestAssignRegions(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedDirectory(t, db)
	ctx := context.Background()

	if _, err := db.AssignRegions(ctx, "Team3", "@d", []string{"IT", "FR"}); err != nil {
		t.Fatalf("AssignRegions failed: %v", err)
	}

	if got, _ := db.LookupByRegion(ctx, "AU"); len(got) != 0 {
		t.Errorf("Expected AU to be unassigned, got %q", displays(got))
	}
	got, _ := db.LookupByRegion(ctx, "FR")
	if want := []string{"Team3 – @d"}; !slices.Equal(displays(got), want) {
		t.Errorf("LookupByRegion(FR) = %q, want %q", displays(got), want)
	}

	if _, err := db.AssignRegions(ctx, "Team3", "@nobody", []string{"IT"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveContactsBatch_Upsert(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	seedDirectory(t, db)
	ctx := context.Background()

	err := db.SaveContactsBatch(ctx, []*ContactEntry{
		{Team: "Team3", Contacts: []string{"@d"}, ManagerIDs: []string{"301"}, Regions: []string{"NZ"}},
	})
	if err != nil {
		t.Fatalf("SaveContactsBatch failed: %v", err)
	}

	all, err := db.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 entries after upsert, got %d", len(all))
	}
	last := all[2]
	if !slices.Equal(last.ManagerIDs, []string{"301"}) || !slices.Equal(last.Regions, []string{"NZ"}) {
		t.Errorf("Upsert did not replace arrays: %+v", last)
	}

	if err := db.SaveContactsBatch(ctx, nil); err != nil {
		t.Errorf("Empty batch should be a no-op, got %v", err)
	}
}
