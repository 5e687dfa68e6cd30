package matcher

import (
	"slices"
)

const (
	// DefaultThreshold is the minimum similarity kept when screening against
	// existing suppliers.
	DefaultThreshold = 75
	// WatchlistThreshold is the lower bar used for previously rejected
	// suppliers.
	WatchlistThreshold = 70

	exactMatchFloor     = 95
	highSimilarityFloor = 85
)

// Classification grades a kept match.
type Classification string

const (
	ExactMatch     Classification = "EXACT_MATCH"
	HighSimilarity Classification = "HIGH_SIMILARITY"
	PotentialMatch Classification = "POTENTIAL_MATCH"
)

// Classify grades a similarity score. Scores below the high-similarity floor
// are potential matches; the caller's threshold decides whether they are kept
// at all.
func Classify(similarity int) Classification {
	switch {
	case similarity >= exactMatchFloor:
		return ExactMatch
	case similarity >= highSimilarityFloor:
		return HighSimilarity
	default:
		return PotentialMatch
	}
}

// Source says which list a match came from.
type Source string

const (
	SourceSuppliers Source = "suppliers"
	SourceWatchlist Source = "watchlist"
)

// Entry is one name in a reference corpus. Reference is opaque to the
// matcher (a supplier number, a submission ID).
type Entry struct {
	Name      string `json:"name" yaml:"name"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// Match is a corpus entry that scored at or above the threshold.
type Match struct {
	Entry          Entry          `json:"entry"`
	Similarity     int            `json:"similarity"`
	Classification Classification `json:"classification"`
	Source         Source         `json:"source"`
}

// EntriesFromNames wraps bare names as corpus entries.
func EntriesFromNames(names []string) []Entry {
	out := make([]Entry, 0, len(names))
	for _, n := range names {
		out = append(out, Entry{Name: n})
	}
	return out
}

// FindMatches scores candidate against every corpus entry and returns those
// at or above threshold, most similar first. Equal scores keep corpus order.
// Names that normalise to nothing ("Ltd", "Limited") are equal to each other
// and share nothing with any other name.
func FindMatches(candidate string, corpus []Entry, threshold int) []Match {
	return findMatches(candidate, corpus, threshold, SourceSuppliers)
}

// CheckWatchlist runs FindMatches against a list of rejected supplier names
// at the watchlist threshold.
func CheckWatchlist(candidate string, names []string) []Match {
	return findMatches(candidate, EntriesFromNames(names), WatchlistThreshold, SourceWatchlist)
}

func findMatches(candidate string, corpus []Entry, threshold int, source Source) []Match {
	threshold = min(max(threshold, 0), 100)
	needle := Normalize(candidate)
	matches := []Match{}
	for _, entry := range corpus {
		hay := Normalize(entry.Name)
		score := Similarity(needle, hay)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{
			Entry:          entry,
			Similarity:     score,
			Classification: Classify(score),
			Source:         source,
		})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return b.Similarity - a.Similarity
	})
	return matches
}

// Thresholds configures a combined screen.
type Thresholds struct {
	Suppliers int `json:"suppliers"`
	Watchlist int `json:"watchlist"`
}

// DefaultThresholds returns the standard screening thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Suppliers: DefaultThreshold, Watchlist: WatchlistThreshold}
}

// Report is the result of screening one name against both lists.
type Report struct {
	Candidate  string  `json:"candidate"`
	Normalized string  `json:"normalized"`
	Suppliers  []Match `json:"suppliers"`
	Watchlist  []Match `json:"watchlist"`
}

// Screen checks candidate against existing suppliers and the watchlist.
func Screen(candidate string, suppliers []Entry, watchlist []Entry, th Thresholds) Report {
	return Report{
		Candidate:  candidate,
		Normalized: Normalize(candidate),
		Suppliers:  findMatches(candidate, suppliers, th.Suppliers, SourceSuppliers),
		Watchlist:  findMatches(candidate, watchlist, th.Watchlist, SourceWatchlist),
	}
}

// HasMatches reports whether either list produced a match.
func (r Report) HasMatches() bool {
	return len(r.Suppliers) > 0 || len(r.Watchlist) > 0
}

// Watchlisted reports whether the candidate resembles a rejected supplier.
func (r Report) Watchlisted() bool {
	return len(r.Watchlist) > 0
}

// Best returns the highest scoring match across both lists. Supplier matches
// win ties.
func (r Report) Best() (Match, bool) {
	var best Match
	found := false
	for _, m := range slices.Concat(r.Suppliers, r.Watchlist) {
		if !found || m.Similarity > best.Similarity {
			best, found = m, true
		}
	}
	return best, found
}
