package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "Riverside Depot", b: "Riverside Depot", want: 1.0},
		{name: "case and whitespace insensitive", a: "  RIVERSIDE   Depot ", b: "riverside depot", want: 1.0},
		{name: "empty left", a: "", b: "riverside", want: 0.0},
		{name: "empty right", a: "riverside", b: "", want: 0.0},
		{name: "disjoint short strings", a: "ab", b: "xy", want: 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarityAbbreviation(t *testing.T) {
	// "depot" vs "dpt" is two deletions against a 15-char string.
	got := Similarity("Riverside Depot", "Riverside Dpt")
	assert.InDelta(t, 1-2.0/15.0, got, 1e-9)
	assert.Greater(t, got, 0.8)
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "Northgate Yard", "North Gate Yd"
	assert.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-9)
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"depot", "dpt", 2},
		{"a", "abcd", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance([]rune(tt.a), []rune(tt.b)), "editDistance(%q, %q)", tt.a, tt.b)
	}
}

func TestSimilarityCountsRunesNotBytes(t *testing.T) {
	// One accent substitution in a 13-rune name is distance 1, not the 2 a
	// byte-level comparison would report for the two-byte code point.
	assert.Equal(t, 1, editDistance([]rune("münchen depot"), []rune("munchen depot")))
	assert.InDelta(t, 1-1.0/13.0, Similarity("München Depot", "Munchen Depot"), 1e-9)
}
