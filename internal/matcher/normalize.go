// Package matcher detects duplicate and previously rejected suppliers by
// approximate name matching.
//
// Names are compared after normalisation (case, accents, punctuation and
// legal-entity suffixes removed) using edit distance scaled to a 0-100
// similarity score. Every function is pure and safe for concurrent use.
package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are dropped when they appear as whole words.
var legalSuffixes = map[string]struct{}{
	"ltd":          {},
	"limited":      {},
	"plc":          {},
	"llp":          {},
	"lp":           {},
	"llc":          {},
	"inc":          {},
	"incorporated": {},
	"corp":         {},
	"corporation":  {},
	"co":           {},
	"company":      {},
	"group":        {},
	"holdings":     {},
	"uk":           {},
	"gb":           {},
	"cic":          {},
}

// IsLegalSuffix reports whether word is stripped by Normalize.
func IsLegalSuffix(word string) bool {
	_, ok := legalSuffixes[strings.ToLower(word)]
	return ok
}

// Normalize lowercases name, folds accents, drops legal-entity suffixes,
// strips every other non-alphanumeric character and collapses whitespace.
//
// Suffixes are matched as whole words bounded by spaces or punctuation, so
// "Acme (UK) Ltd." loses both. Punctuation inside a word is removed rather
// than split on: "J.P. Morgan" and "JP Morgan" normalise alike.
func Normalize(name string) string {
	// transformers carry state, so the chain is built per call
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	notAlnum := func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	var kept []string
	for _, field := range strings.Fields(strings.ToLower(folded)) {
		var word strings.Builder
		for _, part := range strings.FieldsFunc(field, notAlnum) {
			if IsLegalSuffix(part) {
				continue
			}
			word.WriteString(part)
		}
		// "C.O." joins into a suffix of its own
		if word.Len() > 0 && !IsLegalSuffix(word.String()) {
			kept = append(kept, word.String())
		}
	}
	return strings.Join(kept, " ")
}
