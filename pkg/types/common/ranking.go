package common

import (
	"sort"
	"strconv"
)

// Ranking is an explicit priority order over a fixed set of values. Earlier
// items rank higher. Every tie-break in the engine goes through a Ranking so
// that the order never depends on map iteration.
type Ranking[T comparable] struct {
	items []T
	rank  map[T]int
}

// NewRanking builds a Ranking from items in priority order. Duplicates keep
// their first position.
func NewRanking[T comparable](items ...T) Ranking[T] {
	r := Ranking[T]{rank: make(map[T]int, len(items))}
	for _, it := range items {
		if _, ok := r.rank[it]; ok {
			continue
		}
		r.rank[it] = len(r.items)
		r.items = append(r.items, it)
	}
	return r
}

// Items returns a copy of the ordered values.
func (r Ranking[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

func (r Ranking[T]) Len() int { return len(r.items) }

// Rank returns the position of v and whether v is known.
func (r Ranking[T]) Rank(v T) (int, bool) {
	i, ok := r.rank[v]
	return i, ok
}

func (r Ranking[T]) Contains(v T) bool {
	_, ok := r.rank[v]
	return ok
}

// Before reports whether a ranks strictly ahead of b. Known values rank
// ahead of unknown ones; two unknown values are unordered.
func (r Ranking[T]) Before(a, b T) bool {
	ia, oka := r.rank[a]
	ib, okb := r.rank[b]
	switch {
	case oka && okb:
		return ia < ib
	case oka:
		return true
	default:
		return false
	}
}

// SortStable sorts values in place by rank. Unknown values go last and keep
// their relative input order.
func (r Ranking[T]) SortStable(values []T) {
	sort.SliceStable(values, func(i, j int) bool { return r.Before(values[i], values[j]) })
}

// Filter returns the known values of values, sorted by rank.
func (r Ranking[T]) Filter(values []T) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		if r.Contains(v) {
			out = append(out, v)
		}
	}
	r.SortStable(out)
	return out
}

// NaturalLess compares two labels piecewise, treating digit runs as numbers,
// so that "3.9x39" sorts before "3.10x40" and "12x49" after "2x50".
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			si := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			sj := j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na, _ := strconv.Atoi(a[si:i])
			nb, _ := strconv.Atoi(b[sj:j])
			if na != nb {
				return na < nb
			}
			if i-si != j-sj {
				return i-si < j-sj
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
