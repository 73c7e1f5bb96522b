package dedup

import (
	"regexp"
	"strings"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

// normalizeTitle lowercases and collapses whitespace for comparison.
func normalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	return whitespaceExpr.ReplaceAllString(title, " ")
}

// editDistance computes the Levenshtein distance between two strings with
// unit-cost insert/delete/substitute, comparing by rune.
func editDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// titleSimilarity maps edit distance onto [0,1]; identical normalized
// strings score exactly 1.
func titleSimilarity(a, b string) float64 {
	na := normalizeTitle(a)
	nb := normalizeTitle(b)
	if na == nb {
		return 1
	}

	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}

	return 1 - float64(editDistance(na, nb))/float64(longest)
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

var urlExpr = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// extractURLs pulls absolute URLs embedded in body text, trailing
// punctuation trimmed, deduplicated in order of first appearance.
func extractURLs(body string) []string {
	matches := urlExpr.FindAllString(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?")
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}
	return urls
}

// sharedURL reports whether any absolute URL appears in both bodies.
func sharedURL(a, b string) bool {
	urlsA := extractURLs(a)
	if len(urlsA) == 0 {
		return false
	}

	set := make(map[string]struct{}, len(urlsA))
	for _, u := range urlsA {
		set[u] = struct{}{}
	}
	for _, u := range extractURLs(b) {
		if _, ok := set[u]; ok {
			return true
		}
	}
	return false
}
