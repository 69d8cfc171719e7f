package repository

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// Matcher resolves a recognized label name against catalogue names.
// Exact matches on the normalized form always win. With Fuzzy set, the
// closest name within an edit budget of len/Divisor runes is accepted.
type Matcher struct {
	Fuzzy   bool
	Divisor int
}

// DefaultMatcher allows one edit per five runes of the query
func DefaultMatcher() Matcher {
	return Matcher{Fuzzy: true, Divisor: 5}
}

type namedRow struct {
	ID         string
	Name       string
	Normalized string
}

type scoredRow struct {
	row      namedRow
	distance int
	wordErr  float64
}

// Best picks the closest row for query, or false when none is in budget
func (m Matcher) Best(query string, rows []namedRow) (namedRow, bool) {
	norm := normalizeName(query)
	if norm == "" {
		return namedRow{}, false
	}
	for _, r := range rows {
		if r.Normalized == norm {
			return r, true
		}
	}
	if !m.Fuzzy {
		return namedRow{}, false
	}

	budget := m.budget(norm)
	if budget == 0 {
		return namedRow{}, false
	}

	queryWords := strings.Fields(norm)
	var scored []scoredRow
	for _, r := range rows {
		d := levenshtein.Distance(norm, r.Normalized)
		if d > budget {
			continue
		}
		wordErr, _ := wer.WER(strings.Fields(r.Normalized), queryWords)
		scored = append(scored, scoredRow{row: r, distance: d, wordErr: wordErr})
	}
	if len(scored) == 0 {
		return namedRow{}, false
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.wordErr != b.wordErr {
			return a.wordErr < b.wordErr
		}
		return a.row.Normalized < b.row.Normalized
	})
	return scored[0].row, true
}

func (m Matcher) budget(norm string) int {
	divisor := m.Divisor
	if divisor <= 0 {
		divisor = 5
	}
	return utf8.RuneCountInString(norm) / divisor
}

// normalizeName lowercases, trims surrounding punctuation and collapses spaces
func normalizeName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	for i, f := range fields {
		fields[i] = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '-' && r != '%'
		})
	}
	return strings.Join(strings.Fields(strings.Join(fields, " ")), " ")
}
