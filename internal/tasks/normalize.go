package tasks

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// versionWords mark a bracketed suffix as a featuring credit or release variant.
const versionWords = `feat|ft|featuring|with|remaster|remastered|live|remix|mix|edit|version|deluxe|mono|stereo|acoustic|explicit|clean|bonus`

var (
	bracketTagRegex = regexp.MustCompile(`(?i)\s*[\(\[][^\)\]]*\b(?:` + versionWords + `)\b[^\)\]]*[\)\]]`)
	dashTagRegex    = regexp.MustCompile(`(?i)\s+-\s+[^-]*\b(?:remaster|remastered|live|remix|edit|version|mono|stereo|acoustic)\b.*$`)
	featClauseRegex = regexp.MustCompile(`(?i)\s+(?:feat|ft|featuring)\b\.?\s+.*$`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// normalizeTitle strips featuring clauses and version tags before the basic normalization.
//
// Tags are removed first because the brackets that delimit them do not survive punctuation stripping.
func normalizeTitle(title string) string {
	title = bracketTagRegex.ReplaceAllString(title, "")
	title = dashTagRegex.ReplaceAllString(title, "")
	title = featClauseRegex.ReplaceAllString(title, "")
	return normalize(title)
}

// normalize folds text to lowercase ASCII-like form: NFKD with combining marks dropped,
// punctuation replaced by spaces and whitespace collapsed.
func normalize(text string) string {
	text = norm.NFKD.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}

	text = punctRegex.ReplaceAllString(b.String(), " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(strings.ToLower(text))
}

// similarity returns a normalized similarity score [0.0, 1.0] using Levenshtein distance over runes.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes the edit distance between two rune slices.
func levenshtein(a, b []rune) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}
