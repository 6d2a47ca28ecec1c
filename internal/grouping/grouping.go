// Package grouping finds which regions of a request share the same contacts.
//
// Given the contact set of every requested region, Group sweeps region
// combinations from the largest to the smallest and emits each contact once,
// under the largest combination whose regions all list it.
package grouping

import (
	"github.com/garyellow/geo-linebot-go/internal/sliceutil"
)

// Entry is one output line: regions that share the listed contacts.
type Entry struct {
	Regions  []string
	Contacts []string
}

// Distinct removes duplicate codes, keeping first-seen order.
func Distinct(codes []string) []string {
	return sliceutil.Unique(codes)
}

// Group computes the grouping for regions (already distinct) over sets.
//
// For r = k..1 it visits every r-sized combination of regions in
// lexicographic index order, intersects their contact sets, removes contacts
// emitted earlier and emits the rest if any remain. This is a greedy sweep,
// not a minimal cover. Contacts inside an entry keep the order they have in
// the combination's first region. Regions missing from sets count as empty.
func Group(regions []string, sets map[string][]string) []Entry {
	k := len(regions)
	if k == 0 {
		return nil
	}

	members := make([]map[string]struct{}, k)
	for i, code := range regions {
		m := make(map[string]struct{}, len(sets[code]))
		for _, c := range sets[code] {
			m[c] = struct{}{}
		}
		members[i] = m
	}

	used := make(map[string]struct{})
	var entries []Entry

	for r := k; r >= 1; r-- {
		combinations(k, r, func(idx []int) {
			var shared []string
			for _, c := range sets[regions[idx[0]]] {
				if _, done := used[c]; done {
					continue
				}
				if inAll(c, idx[1:], members) {
					shared = append(shared, c)
				}
			}
			shared = Distinct(shared)
			if len(shared) == 0 {
				return
			}

			combo := make([]string, r)
			for i, j := range idx {
				combo[i] = regions[j]
			}
			for _, c := range shared {
				used[c] = struct{}{}
			}
			entries = append(entries, Entry{Regions: combo, Contacts: shared})
		})
	}
	return entries
}

func inAll(contact string, idx []int, members []map[string]struct{}) bool {
	for _, j := range idx {
		if _, ok := members[j][contact]; !ok {
			return false
		}
	}
	return true
}

// combinations calls fn with every r-sized subset of [0, n) as an ascending
// index slice, in lexicographic order. The slice is reused between calls.
func combinations(n, r int, fn func(idx []int)) {
	if r <= 0 || r > n {
		return
	}
	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)

		i := r - 1
		for i >= 0 && idx[i] == n-r+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < r; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
