package fuzzy

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"ABC", "abc", 0}, // case-insensitive
	}
	for _, c := range cases {
		if got := Distance(c.a, c.b); got != c.want {
			t.Fatalf("Distance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestRankPrefersShortPrefixCompletions(t *testing.T) {
	got := Rank("inv", []string{"investments", "invoice", "inv", "unrelated"}, 3)
	want := []string{"inv", "invoice", "investments"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank = %v, want %v", got, want)
	}
}

func TestRankLimit(t *testing.T) {
	tokens := []string{"aa", "ab", "ac", "ad"}
	if got := Rank("a", tokens, 2); len(got) != 2 {
		t.Fatalf("limit not applied: %v", got)
	}
	if got := Rank("a", tokens, 0); len(got) != 4 {
		t.Fatalf("zero limit should keep all: %v", got)
	}
}

func TestProperty_DistanceSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("distance_is_symmetric", prop.ForAll(
		func(a, b string) bool {
			return Distance(a, b) == Distance(b, a)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("distance_zero_iff_equal_normalized", prop.ForAll(
		func(a string) bool {
			return Distance(a, a) == 0
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
