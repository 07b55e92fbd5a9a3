package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// ErrNotFound is returned by [Lookup] when no option is close enough.
var ErrNotFound = errors.New("catalog: no matching option")

// lookupThreshold is the minimum Jaro-Winkler score for a fuzzy match.
const lookupThreshold = 0.80

// Lookup resolves a user-typed name to an option of kind k. An exact
// case-insensitive match wins, then a unique substring match. Without any
// substring match the option with the highest Jaro-Winkler similarity above
// 0.80 is returned. Numeric input is treated as an ID.
func Lookup(k Kind, name string) (Option, error) {
	opts := Options(k)
	if opts == nil {
		return Option{}, fmt.Errorf("catalog: unknown option kind %q", k)
	}
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return Option{}, fmt.Errorf("%w: empty %s name", ErrNotFound, k)
	}

	if id, err := strconv.Atoi(query); err == nil {
		if o, ok := Find(k, id); ok {
			return o, nil
		}
		return Option{}, fmt.Errorf("%w: %s %d", ErrOutOfRange, k, id)
	}

	var contains []Option
	for _, o := range opts {
		lower := strings.ToLower(o.Name)
		if lower == query {
			return o, nil
		}
		if strings.Contains(lower, query) {
			contains = append(contains, o)
		}
	}
	switch len(contains) {
	case 0:
	case 1:
		return contains[0], nil
	default:
		return Option{}, fmt.Errorf("%w: %q is ambiguous among %d %s options", ErrNotFound, name, len(contains), k)
	}

	var (
		best      Option
		bestScore float64
	)
	for _, o := range opts {
		if s := similarity(query, strings.ToLower(o.Name)); s > bestScore {
			best, bestScore = o, s
		}
	}
	if bestScore >= lookupThreshold {
		return best, nil
	}
	return Option{}, fmt.Errorf("%w: %s %q", ErrNotFound, k, name)
}

// similarity scores the query against the full name and against each word of
// the name, returning the best score.
func similarity(query, name string) float64 {
	score := matchr.JaroWinkler(query, name, false)
	for _, tok := range strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '(' || r == ')' || r == '-'
	}) {
		if s := matchr.JaroWinkler(query, tok, false); s > score {
			score = s
		}
	}
	return score
}
