package grouping

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDistinct(t *testing.T) {
	t.Parallel()
	got := Distinct([]string{"US", "DE", "US", "IT", "DE"})
	if diff := cmp.Diff([]string{"US", "DE", "IT"}, got); diff != "" {
		t.Errorf("Distinct mismatch (-want +got):\n%s", diff)
	}
	if got := Distinct(nil); len(got) != 0 {
		t.Errorf("Distinct(nil) = %v, want empty", got)
	}
}

func TestGroup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		regions []string
		sets    map[string][]string
		want    []Entry
	}{
		{
			name:    "Disjoint teams",
			regions: []string{"A", "B", "C"},
			sets: map[string][]string{
				"A": {"T"},
				"B": {"T"},
				"C": {"U"},
			},
			want: []Entry{
				{Regions: []string{"A", "B"}, Contacts: []string{"T"}},
				{Regions: []string{"C"}, Contacts: []string{"U"}},
			},
		},
		{
			name:    "Nested coverage",
			regions: []string{"A", "B", "C"},
			sets: map[string][]string{
				"A": {"T"},
				"B": {"T", "U"},
				"C": {"T", "U"},
			},
			want: []Entry{
				{Regions: []string{"A", "B", "C"}, Contacts: []string{"T"}},
				{Regions: []string{"B", "C"}, Contacts: []string{"U"}},
			},
		},
		{
			name:    "Single region",
			regions: []string{"US"},
			sets:    map[string][]string{"US": {"Team1 – @a", "Team2 – @b"}},
			want: []Entry{
				{Regions: []string{"US"}, Contacts: []string{"Team1 – @a", "Team2 – @b"}},
			},
		},
		{
			name:    "Region without contacts",
			regions: []string{"US", "DE"},
			sets:    map[string][]string{"US": {"Team1 – @a"}, "DE": nil},
			want: []Entry{
				{Regions: []string{"US"}, Contacts: []string{"Team1 – @a"}},
			},
		},
		{
			name:    "Region missing from sets",
			regions: []string{"US", "DE"},
			sets:    map[string][]string{"DE": {"X"}},
			want: []Entry{
				{Regions: []string{"DE"}, Contacts: []string{"X"}},
			},
		},
		{
			name:    "Contacts keep first region order",
			regions: []string{"A", "B"},
			sets: map[string][]string{
				"A": {"Z", "Y", "X"},
				"B": {"X", "Y", "Z"},
			},
			want: []Entry{
				{Regions: []string{"A", "B"}, Contacts: []string{"Z", "Y", "X"}},
			},
		},
		{
			name:    "No regions",
			regions: nil,
			sets:    nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Group(tt.regions, tt.sets)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Group mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func partitionFixture() ([]string, map[string][]string) {
	regions := []string{"US", "DE", "IT", "FR", "AU"}
	sets := map[string][]string{
		"US": {"t1", "t2", "t5"},
		"DE": {"t1", "t3", "t5"},
		"IT": {"t1", "t2", "t3", "t4"},
		"FR": {"t4", "t5"},
		"AU": {},
	}
	return regions, sets
}

func TestGroup_Partition(t *testing.T) {
	t.Parallel()
	regions, sets := partitionFixture()
	entries := Group(regions, sets)

	seen := make(map[string]int)
	for _, e := range entries {
		if len(e.Contacts) == 0 {
			t.Errorf("entry %v has no contacts", e.Regions)
		}
		for _, c := range e.Contacts {
			seen[c]++
			// Every region of the entry must list the contact.
			for _, r := range e.Regions {
				if !slices.Contains(sets[r], c) {
					t.Errorf("contact %s emitted for %s which does not list it", c, r)
				}
			}
		}
	}

	for _, code := range regions {
		for _, c := range sets[code] {
			if seen[c] != 1 {
				t.Errorf("contact %s emitted %d times, want exactly 1", c, seen[c])
			}
		}
	}
}

func TestGroup_LargestCombination(t *testing.T) {
	t.Parallel()
	regions, sets := partitionFixture()

	owner := make(map[string][]string)
	for _, code := range regions {
		for _, c := range sets[code] {
			owner[c] = append(owner[c], code)
		}
	}

	for _, e := range Group(regions, sets) {
		for _, c := range e.Contacts {
			if diff := cmp.Diff(owner[c], e.Regions); diff != "" {
				t.Errorf("contact %s grouped under wrong regions (-want +got):\n%s", c, diff)
			}
		}
	}
}

func TestGroup_OrderInsensitive(t *testing.T) {
	t.Parallel()
	regions, sets := partitionFixture()

	// Compare entries as sets of (sorted regions, sorted contacts).
	normalize := func(entries []Entry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			r := slices.Sorted(slices.Values(e.Regions))
			c := slices.Sorted(slices.Values(e.Contacts))
			out[i] = strings.Join(r, ",") + "|" + strings.Join(c, ",")
		}
		return out
	}
	want := normalize(Group(regions, sets))

	reversed := slices.Clone(regions)
	slices.Reverse(reversed)
	rotated := append(slices.Clone(regions[2:]), regions[:2]...)

	for _, order := range [][]string{reversed, rotated} {
		got := normalize(Group(order, sets))
		if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
			t.Errorf("Group(%v) differs as a set (-want +got):\n%s", order, diff)
		}
	}
}

func TestCombinations(t *testing.T) {
	t.Parallel()
	var got [][]int
	combinations(4, 2, func(idx []int) {
		got = append(got, slices.Clone(idx))
	})
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("combinations(4, 2) mismatch (-want +got):\n%s", diff)
	}

	calls := 0
	combinations(3, 0, func([]int) { calls++ })
	combinations(2, 3, func([]int) { calls++ })
	if calls != 0 {
		t.Errorf("expected no combinations for invalid sizes, got %d", calls)
	}
}
