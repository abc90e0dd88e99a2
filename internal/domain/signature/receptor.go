package signature

import (
	"sort"

	"github.com/protwis/signprot/pkg/types/common"
)

// Residue is one residue of a receptor sequence placed at a generic-numbering
// position. Residues without a generic number have an empty Label.
type Residue struct {
	Label          string `json:"label"`
	Segment        string `json:"segment"`
	AminoAcid      byte   `json:"amino_acid"`
	SequenceNumber int    `json:"sequence_number"`
}

// NumberingScheme identifies a residue numbering scheme such as "gpcrdba".
type NumberingScheme struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ReceptorSequence is a receptor with its generic-numbered residues.
type ReceptorSequence struct {
	EntryName       string          `json:"entry_name"`
	Name            string          `json:"name"`
	Family          string          `json:"family"`
	Species         string          `json:"species"`
	NumberingScheme NumberingScheme `json:"numbering_scheme"`
	Residues        []Residue       `json:"residues"`
}

// FamilyPrefix returns the class-level part of the family slug, its first
// three characters ("001" for "001_001_001_002").
func (r ReceptorSequence) FamilyPrefix() string {
	if len(r.Family) <= 3 {
		return r.Family
	}
	return r.Family[:3]
}

// residueIndex maps generic-number labels to residues. When a label repeats,
// the first residue wins.
func (r ReceptorSequence) residueIndex() map[string]Residue {
	idx := make(map[string]Residue, len(r.Residues))
	for _, res := range r.Residues {
		if res.Label == "" {
			continue
		}
		if _, ok := idx[res.Label]; !ok {
			idx[res.Label] = res
		}
	}
	return idx
}

// SegmentSpec is an ordered list of generic-numbering labels in one segment.
type SegmentSpec struct {
	Name      string   `json:"name"`
	Positions []string `json:"positions"`
}

// IgnoreMap excludes receptors at individual positions: label -> entry names.
type IgnoreMap map[string][]string

func (m IgnoreMap) ignored(label, entry string) bool {
	for _, e := range m[label] {
		if e == entry {
			return true
		}
	}
	return false
}

// ReceptorSegmentOrder is the canonical order of receptor segments.
var ReceptorSegmentOrder = common.NewRanking(
	"N-term", "TM1", "ICL1", "TM2", "ECL1", "TM3", "ICL2", "TM4",
	"ECL2", "TM5", "ICL3", "TM6", "ECL3", "TM7", "H8", "C-term",
)

// DeriveSegments builds the default scope from the receptors themselves: every
// labelled residue position, grouped by segment in canonical order (unknown
// segments follow in name order) and naturally ordered inside a segment.
func DeriveSegments(receptors []ReceptorSequence) []SegmentSpec {
	sorted := sortedReceptors(receptors)
	bySegment := make(map[string][]string)
	seen := make(map[string]bool)
	for _, r := range sorted {
		for _, res := range r.Residues {
			if res.Label == "" || seen[res.Label] {
				continue
			}
			seen[res.Label] = true
			bySegment[res.Segment] = append(bySegment[res.Segment], res.Label)
		}
	}

	names := make([]string, 0, len(bySegment))
	for name := range bySegment {
		names = append(names, name)
	}
	sort.Strings(names)
	ReceptorSegmentOrder.SortStable(names)

	out := make([]SegmentSpec, 0, len(names))
	for _, name := range names {
		labels := bySegment[name]
		sort.SliceStable(labels, func(i, j int) bool { return common.NaturalLess(labels[i], labels[j]) })
		out = append(out, SegmentSpec{Name: name, Positions: labels})
	}
	return out
}

// sortedReceptors returns receptors sorted by entry name and deduplicated,
// so results never depend on the caller's collection order. Copies sharing
// an entry name are ordered by their content first, which makes the
// surviving copy the same for any input order.
func sortedReceptors(receptors []ReceptorSequence) []ReceptorSequence {
	sorted := make([]ReceptorSequence, len(receptors))
	copy(sorted, receptors)
	sort.SliceStable(sorted, func(i, j int) bool { return receptorLess(sorted[i], sorted[j]) })

	out := make([]ReceptorSequence, 0, len(sorted))
	for _, r := range sorted {
		if n := len(out); n > 0 && out[n-1].EntryName == r.EntryName {
			continue
		}
		out = append(out, r)
	}
	return out
}

func receptorLess(a, b ReceptorSequence) bool {
	if a.EntryName != b.EntryName {
		return a.EntryName < b.EntryName
	}
	if a.Family != b.Family {
		return a.Family < b.Family
	}
	if a.Species != b.Species {
		return a.Species < b.Species
	}
	if a.NumberingScheme.Slug != b.NumberingScheme.Slug {
		return a.NumberingScheme.Slug < b.NumberingScheme.Slug
	}
	// the fuller copy wins
	if len(a.Residues) != len(b.Residues) {
		return len(a.Residues) > len(b.Residues)
	}
	for k := range a.Residues {
		ra, rb := a.Residues[k], b.Residues[k]
		switch {
		case ra.Label != rb.Label:
			return ra.Label < rb.Label
		case ra.AminoAcid != rb.AminoAcid:
			return ra.AminoAcid < rb.AminoAcid
		case ra.SequenceNumber != rb.SequenceNumber:
			return ra.SequenceNumber < rb.SequenceNumber
		}
	}
	return false
}
