package signature

import "strings"

// rec builds a receptor from "label:aa" pairs; segment is taken from the
// label prefix before the dot ("3.50x50" -> "TM3").
func rec(entry, family string, pairs ...string) ReceptorSequence {
	r := ReceptorSequence{
		EntryName:       entry,
		Name:            strings.ToUpper(entry),
		Family:          family,
		Species:         "Human",
		NumberingScheme: NumberingScheme{Slug: "gpcrdba", Name: "GPCRdb(A)"},
	}
	for i, p := range pairs {
		parts := strings.SplitN(p, ":", 2)
		r.Residues = append(r.Residues, Residue{
			Label:          parts[0],
			Segment:        segmentOf(parts[0]),
			AminoAcid:      parts[1][0],
			SequenceNumber: 100 + i,
		})
	}
	return r
}

func segmentOf(label string) string {
	if i := strings.IndexByte(label, '.'); i > 0 {
		return "TM" + label[:i]
	}
	return ""
}

func seg(name string, labels ...string) SegmentSpec {
	return SegmentSpec{Name: name, Positions: labels}
}

var hydroNegScheme = MustScheme("test", []GroupDef{
	{Feature: FeatureHydrophobic, Residues: "LIVM"},
	{Feature: FeatureNegative, Residues: "DE"},
})
