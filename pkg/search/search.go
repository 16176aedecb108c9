// Package search provides full-text card lookup using Aho-Corasick.
// A single AC automaton built from card vocabulary serves query matching.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/cardfolio/gocard/internal/store"
)

// ============================================================================
// CANONICALIZER - Used for BOTH vocabulary compilation AND query scanning
// ============================================================================

// isJoiner returns true for punctuation that commonly appears INSIDE terms.
// Preserved during canonicalization so compound terms stay coherent.
// Examples: "O'Brien", "type-safe", "C#". Sentence periods are NOT
// joiners here: card text is prose, and "scope." must index as "scope".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '\u2019', '\u2018',
		'-', '\u2013', '\u2014',
		'_', '#', '&':
		return true
	default:
		return false
	}
}

// Canonicalize transforms text into a normalized form for matching.
// The same function is used for card vocabulary and incoming queries.
// Rules:
// - Fold to lowercase
// - Preserve letters, digits, and joiners
// - Replace all other characters with a single space
// - Collapse multiple spaces, trim leading/trailing spaces
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true

	for _, ch := range s {
		c := unicode.ToLower(ch)

		if c == '\u2019' || c == '\u2018' {
			c = '\''
		}
		if c == '\u2013' || c == '\u2014' {
			c = '-'
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else {
			if !lastWasSpace {
				out.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}

	result := out.String()
	if len(result) > 0 && result[len(result)-1] == ' ' {
		result = result[:len(result)-1]
	}
	return result
}

// ============================================================================
// Index - Aho-Corasick over card vocabulary
// ============================================================================

// Result is one card hit for a query, with the distinct matched terms.
type Result struct {
	Card  store.Card `json:"card"`
	Terms []string   `json:"terms"`
}

// Index matches free-text queries against card fronts and backs.
type Index struct {
	ac *ahocorasick.Automaton

	// Pattern index -> card IDs containing that term
	patternToIDs [][]string

	// All patterns in order (for AC builder)
	patterns []string

	// Card ID -> card snapshot at index time
	cards map[string]store.Card

	stopwordChecker *stopwords.Stopwords
}

// Build compiles an Index from a card set. The index is a snapshot:
// rebuild after mutations.
func Build(cards []*store.Card) (*Index, error) {
	idx := &Index{
		patternToIDs:    [][]string{},
		patterns:        []string{},
		cards:           make(map[string]store.Card, len(cards)),
		stopwordChecker: stopwords.MustGet("en"),
	}

	patternIndex := make(map[string]int)

	for _, c := range cards {
		idx.cards[c.ID] = *c

		for _, term := range idx.vocabulary(c.Front + " " + c.Back) {
			if pi, exists := patternIndex[term]; exists {
				idx.patternToIDs[pi] = appendUnique(idx.patternToIDs[pi], c.ID)
			} else {
				pi := len(idx.patterns)
				idx.patterns = append(idx.patterns, term)
				patternIndex[term] = pi
				idx.patternToIDs = append(idx.patternToIDs, []string{c.ID})
			}
		}
	}

	// Use LeftmostLongest so "machine learning" wins over "machine"
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(idx.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	idx.ac = automaton

	return idx, nil
}

// vocabulary extracts the distinct indexable terms of a card text:
// canonicalized tokens minus English stopwords.
func (idx *Index) vocabulary(text string) []string {
	words := strings.Fields(Canonicalize(text))

	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 || seen[w] {
			continue
		}
		if idx.stopwordChecker != nil && idx.stopwordChecker.Contains(w) {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Len reports how many cards the index covers.
func (idx *Index) Len() int {
	return len(idx.cards)
}

// Find scans a free-text query against the card vocabulary and returns
// matching cards ranked by the number of distinct terms hit, ties broken
// by card ID for stable output. A query of only stopwords or unknown
// words returns an empty slice.
func (idx *Index) Find(query string) []Result {
	if idx.ac == nil {
		return nil
	}

	haystack := []byte(Canonicalize(query))
	if len(haystack) == 0 {
		return []Result{}
	}

	// Every overlapping vocabulary hit counts; dedupe per card by term
	termsByCard := make(map[string]map[string]bool)
	for _, m := range idx.ac.FindAllOverlapping(haystack) {
		if !wholeToken(haystack, m.Start, m.End) {
			continue
		}
		term := idx.patterns[m.PatternID]
		for _, id := range idx.patternToIDs[m.PatternID] {
			if termsByCard[id] == nil {
				termsByCard[id] = make(map[string]bool)
			}
			termsByCard[id][term] = true
		}
	}

	results := make([]Result, 0, len(termsByCard))
	for id, terms := range termsByCard {
		r := Result{Card: idx.cards[id], Terms: make([]string, 0, len(terms))}
		for t := range terms {
			r.Terms = append(r.Terms, t)
		}
		sort.Strings(r.Terms)
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if len(results[i].Terms) != len(results[j].Terms) {
			return len(results[i].Terms) > len(results[j].Terms)
		}
		return results[i].Card.ID < results[j].Card.ID
	})

	return results
}

// wholeToken reports whether haystack[start:end] is bounded by token
// separators, so "go" does not fire inside "category".
func wholeToken(haystack []byte, start, end int) bool {
	if start > 0 && haystack[start-1] != ' ' {
		return false
	}
	if end < len(haystack) && haystack[end] != ' ' {
		return false
	}
	return true
}

func appendUnique(slice []string, item string) []string {
	for _, s := range slice {
		if s == item {
			return slice
		}
	}
	return append(slice, item)
}
