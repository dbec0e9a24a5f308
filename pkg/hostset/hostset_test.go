package hostset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name   string
		groups [][]string
		want   []string
	}{
		{"no groups", nil, []string{}},
		{"only absent", [][]string{Of("", ""), {}}, []string{}},
		{"present absent present", [][]string{Of("a", "", "b")}, []string{"a", "b"}},
		{"duplicates across groups keep first", [][]string{Of("a", "b"), {"c", "a"}, Of("b")}, []string{"a", "b", "c"}},
		{"duplicates inside a list", [][]string{{"c1", "c2", "c1", "c2"}}, []string{"c1", "c2"}},
		{"empty list treated as absent", [][]string{{}, Of("m"), nil}, []string{"m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.groups...)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "")
		})
	}
}

func TestFlatten_NoDuplicatesRegardlessOfOrder(t *testing.T) {
	inputs := [][]string{
		{"x", "y", "x", "z", "y"},
		{"z", "z", "y", "x"},
		{"", "x", "", "x"},
	}
	for _, in := range inputs {
		got := Flatten(in)
		seen := map[string]bool{}
		for _, h := range got {
			assert.False(t, seen[h], "duplicate %s in %v", h, got)
			seen[h] = true
		}
	}
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, Without([]string{"a", "b", "c"}, "a"))
	assert.Equal(t, []string{"a", "b"}, Without([]string{"a", "b"}, "zzz"))
	assert.Equal(t, []string{}, Without([]string{"a"}, "a"))
}

func TestJoin(t *testing.T) {
	hosts := []string{"c0.example.com", "c1.example.com"}
	assert.Equal(t, "c0.example.com,c1.example.com", Join(hosts))
	assert.Equal(t, "", Join(nil))
}
