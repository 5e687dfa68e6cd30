package matcher

import "math"

// Distance is the Levenshtein edit distance between a and b counted in
// runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
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
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity scores a and b from 0 to 100 as
// round((1 - distance/maxLen) * 100). Two empty strings are 100% similar.
// Inputs are compared as given; callers normalise first.
func Similarity(a, b string) int {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 100
	}
	score := math.Round((1 - float64(Distance(a, b))/float64(maxLen)) * 100)
	return int(min(max(score, 0), 100))
}

// NameSimilarity normalises both names before scoring them.
func NameSimilarity(a, b string) int {
	return Similarity(Normalize(a), Normalize(b))
}
