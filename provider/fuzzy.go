package provider

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// TokenSortRatio scores the similarity of two strings from 0 to 100. Both
// inputs are lowercased and their whitespace-separated tokens sorted before
// comparison, so word order does not affect the score.
func TokenSortRatio(a, b string) int {
	a = tokenSort(a)
	b = tokenSort(b)

	if a == b {
		return 100
	}
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}

	// Substitutions count double so the score matches the classic
	// 2*matches/total sequence ratio.
	dist := matchr.Levenshtein(a, b)
	score := (total - 2*dist) * 100 / total
	if score < 0 {
		return 0
	}
	return score
}

func tokenSort(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
