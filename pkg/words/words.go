// Package words counts the distinct words of extracted book text.
package words

import (
	"regexp"
	"sort"
)

// wordPattern matches maximal runs of ASCII letters. Matching is
// case-sensitive, so "The" and "the" are different words.
var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// Analyze returns the number of distinct words in text.
func Analyze(text string) int {
	return len(distinct(text))
}

// Distinct returns the distinct words in text, sorted.
func Distinct(text string) []string {
	set := distinct(text)
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func distinct(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range wordPattern.FindAllString(text, -1) {
		set[w] = struct{}{}
	}
	return set
}
