package sliceutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnique(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"no repeats", []string{"US", "DE"}, []string{"US", "DE"}},
		{"keeps first order", []string{"PL", "US", "PL", "DE", "US"}, []string{"PL", "US", "DE"}},
		{"case sensitive", []string{"us", "US"}, []string{"us", "US"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Unique(tt.in))
		})
	}
}

func TestUniqueBy(t *testing.T) {
	t.Parallel()
	type contact struct{ team, handle string }
	in := []contact{{"Team1", "@a"}, {"team1", "@b"}, {"Team2", "@c"}}

	got := UniqueBy(in, func(c contact) string { return strings.ToLower(c.team) })

	assert.Equal(t, []contact{{"Team1", "@a"}, {"Team2", "@c"}}, got)
}

func TestUniqueBy_DoesNotAlias(t *testing.T) {
	t.Parallel()
	in := []int{1, 2, 3}
	out := Unique(in)
	out[0] = 9
	assert.Equal(t, 1, in[0])
}
