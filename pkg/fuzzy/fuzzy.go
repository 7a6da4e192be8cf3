// Package fuzzy ranks search suggestion tokens against the partial word
// the user has typed so far.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"
)

// Distance calculates the edit distance between two strings: how many
// single-character insertions, deletions or substitutions are required to
// change one into the other.
func Distance(s1, s2 string) int {
	s1 = Normalize(s1)
	s2 = Normalize(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// Score rates how well a candidate token completes the typed prefix.
// Higher is better. Exact prefix matches outrank everything, shorter
// completions outrank longer ones, ties fall back to edit distance.
func Score(prefix, token string) float64 {
	prefix = Normalize(prefix)
	token = Normalize(token)

	score := 0.0
	if strings.HasPrefix(token, prefix) {
		score += 100.0
		// Shorter completions are closer to what was typed.
		score -= float64(len(token) - len(prefix))
		return score
	}

	dist := Distance(prefix, token)
	if len(prefix) > 0 && dist <= 2 {
		score += 40.0 - float64(dist)*15
	}
	return score
}

// Rank orders candidate tokens by Score descending, alphabetical on ties,
// and returns at most limit of them.
func Rank(prefix string, tokens []string, limit int) []string {
	ranked := make([]string, len(tokens))
	copy(ranked, tokens)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := Score(prefix, ranked[i]), Score(prefix, ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i] < ranked[j]
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Normalize lowercases and strips combining marks so accented and plain
// spellings compare equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
