// Package interaction aggregates receptor–transducer residue contacts observed
// in structural complexes into per-pair records and a segment matrix.
package interaction

import (
	"sort"
	"strings"

	"github.com/protwis/signprot/pkg/types/common"
)

// Type is a residue–residue interaction class.
type Type string

const (
	TypeIonic       Type = "ionic"
	TypeAromatic    Type = "aromatic"
	TypePolar       Type = "polar"
	TypeHydrophobic Type = "hydrophobic"
	TypeVanDerWaals Type = "van-der-waals"
)

// TypeOrder is the display priority of interaction types.
var TypeOrder = common.NewRanking(TypeIonic, TypeAromatic, TypePolar, TypeHydrophobic, TypeVanDerWaals)

// SortTypes deduplicates types and orders them by TypeOrder. Types outside
// TypeOrder are kept and appended in lexical order. Blank entries are dropped.
func SortTypes(types []Type) []Type {
	seen := make(map[Type]bool, len(types))
	known := make([]Type, 0, len(types))
	var unknown []Type
	for _, t := range types {
		t = Type(strings.ToLower(strings.TrimSpace(string(t))))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if TypeOrder.Contains(t) {
			known = append(known, t)
		} else {
			unknown = append(unknown, t)
		}
	}
	TypeOrder.SortStable(known)
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(known, unknown...)
}

// IsKnownType reports whether t is one of the five standard types.
func IsKnownType(t Type) bool { return TypeOrder.Contains(t) }
