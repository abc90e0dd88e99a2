package interaction

import (
	"sort"
	"strings"

	"github.com/protwis/signprot/pkg/types/common"
)

// ReceptorSegmentOrder is the fixed column order of receptor segments in the
// matrix: termini, helices and the loops between them.
var ReceptorSegmentOrder = common.NewRanking(
	"N", "1", "12", "2", "23", "3", "34", "4", "45", "5", "56", "6", "67", "7", "78", "8", "C",
)

// ReceptorSegmentOrderList returns ReceptorSegmentOrder as a slice.
func ReceptorSegmentOrderList() []string { return ReceptorSegmentOrder.Items() }

var receptorSegmentSlugs = map[string]string{
	"N-TERM": "N", "TM1": "1", "ICL1": "12", "TM2": "2", "ECL1": "23", "TM3": "3",
	"ICL2": "34", "TM4": "4", "ECL2": "45", "TM5": "5", "ICL3": "56", "TM6": "6",
	"ECL3": "67", "TM7": "7", "ICL4": "78", "H8": "8", "C-TERM": "C",
}

// ReceptorSegmentKey maps a receptor residue to its matrix column. The
// generic-number prefix ("34" of "34.50x50") wins; residues without one fall
// back to their segment slug.
func ReceptorSegmentKey(r ResidueRef) string {
	if i := strings.IndexAny(r.Label, ".x"); i > 0 {
		if key := r.Label[:i]; ReceptorSegmentOrder.Contains(key) {
			return key
		}
	}
	if key, ok := receptorSegmentSlugs[strings.ToUpper(r.Segment)]; ok {
		return key
	}
	return r.Segment
}

// SegmentRef is a transducer segment from the segment catalog.
type SegmentRef struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

// Cell groups the records of one receptor segment and one transducer segment.
type Cell struct {
	ReceptorSegment   string   `json:"receptor_segment"`
	TransducerSegment string   `json:"transducer_segment"`
	Types             []Type   `json:"types"`
	Records           []Record `json:"records"`
}

// Matrix is the receptor-segment by transducer-segment grouping of records.
type Matrix struct {
	ReceptorSegments   []string `json:"receptor"`
	TransducerSegments []string `json:"gprot"`
	Cells              []Cell   `json:"cells"`
}

// BuildMatrix groups records into cells. Rows follow ReceptorSegmentOrder and
// columns follow transducerSegments; segments absent from either order are
// appended in lexical order so no record is lost.
func BuildMatrix(records []Record, transducerSegments []SegmentRef) Matrix {
	slugs := make([]string, len(transducerSegments))
	for i, s := range transducerSegments {
		slugs[i] = s.Slug
	}
	transducerOrder := common.NewRanking(slugs...)

	type cellKey struct{ rec, sig string }
	cells := make(map[cellKey]*Cell)
	var keys []cellKey
	extraRec := map[string]bool{}
	extraSig := map[string]bool{}
	for _, r := range records {
		k := cellKey{rec: ReceptorSegmentKey(r.Receptor), sig: r.Signal.Segment}
		c, ok := cells[k]
		if !ok {
			c = &Cell{ReceptorSegment: k.rec, TransducerSegment: k.sig}
			cells[k] = c
			keys = append(keys, k)
		}
		c.Records = append(c.Records, r)
		c.Types = append(c.Types, r.Types...)
		if !ReceptorSegmentOrder.Contains(k.rec) {
			extraRec[k.rec] = true
		}
		if !transducerOrder.Contains(k.sig) {
			extraSig[k.sig] = true
		}
	}

	recOrder := common.NewRanking(append(ReceptorSegmentOrder.Items(), sortedKeys(extraRec)...)...)
	sigOrder := common.NewRanking(append(transducerOrder.Items(), sortedKeys(extraSig)...)...)

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].rec != keys[j].rec {
			return recOrder.Before(keys[i].rec, keys[j].rec)
		}
		return sigOrder.Before(keys[i].sig, keys[j].sig)
	})

	m := Matrix{
		ReceptorSegments:   recOrder.Items(),
		TransducerSegments: sigOrder.Items(),
		Cells:              make([]Cell, 0, len(keys)),
	}
	for _, k := range keys {
		c := cells[k]
		c.Types = SortTypes(c.Types)
		m.Cells = append(m.Cells, *c)
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
