// Package similarity compares person and entity names. The score tolerates
// reordered words, abbreviations and small typos, which is what registry
// names look like next to names typed into a pitch.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// VerifiedThreshold is the minimum similarity for a claimed name to be
	// accepted as the registered name.
	VerifiedThreshold = 0.8

	// WordMatchThreshold is the minimum word-level similarity for two words
	// to count as the same word.
	WordMatchThreshold = 0.8

	// containmentFloor is the minimum score given when one name contains the other.
	containmentFloor = 0.8

	wordWeight = 0.7
	editWeight = 0.3
)

// Similarity returns a score in [0,1] describing how alike two names are.
// It is symmetric and Similarity(a, a) == 1.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)

	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return containmentScore(na, nb)
	}

	wordsA, wordsB := strings.Fields(na), strings.Fields(nb)
	maxWords := max(len(wordsA), len(wordsB))

	// Count in both directions and keep the smaller count so repeated words on
	// one side cannot inflate the ratio.
	matched := min(countWordMatches(wordsA, wordsB), countWordMatches(wordsB, wordsA))
	wordRatio := float64(matched) / float64(maxWords)

	score := wordWeight*wordRatio + editWeight*EditRatio(na, nb)
	return clamp01(score)
}

// Verified reports whether a claimed name is close enough to the canonical
// registry name.
func Verified(claimed, canonical string) bool {
	return Similarity(claimed, canonical) >= VerifiedThreshold
}

// Normalize lowercases, folds accents, strips punctuation and collapses
// whitespace.
func Normalize(s string) string {
	folded, _, err := transform.String(accentFolder(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// accentFolder is rebuilt per call because transform chains are stateful.
func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// wordSimilarity scores two single words.
func wordSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentScore(a, b)
	}
	return EditRatio(a, b)
}

func countWordMatches(from, to []string) int {
	matches := 0
	for _, w1 := range from {
		for _, w2 := range to {
			if wordSimilarity(w1, w2) >= WordMatchThreshold {
				matches++
				break
			}
		}
	}
	return matches
}

func containmentScore(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	shorter, longer := min(la, lb), max(la, lb)
	if longer == 0 {
		return 1.0
	}
	return max(containmentFloor, float64(shorter)/float64(longer))
}

// EditRatio returns (maxLen - distance) / maxLen, or 1 for two empty strings.
func EditRatio(a, b string) float64 {
	longer := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longer == 0 {
		return 1.0
	}
	return float64(longer-Levenshtein(a, b)) / float64(longer)
}

// Levenshtein returns the edit distance between a and b with unit cost for
// insertions, deletions and substitutions. Transpositions cost two edits.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
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
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
