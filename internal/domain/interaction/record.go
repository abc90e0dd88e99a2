package interaction

import (
	"sort"

	"github.com/protwis/signprot/pkg/types/common"
)

// ResidueRef is a catalog residue taking part in an interaction.
type ResidueRef struct {
	ID             int64  `json:"id"`
	AminoAcid      string `json:"aa"`
	SequenceNumber int    `json:"pos"`
	Label          string `json:"gn"`
	Segment        string `json:"segment"`
}

// PairRow is one stored interaction between two residues of a structure.
// A pair with several interaction types appears as several rows.
type PairRow struct {
	InteractionID  int64
	StructureID    int64
	PDBCode        string
	ConformationID int64
	Transducer     string
	EntryName      string
	Res1           ResidueRef
	Res2           ResidueRef
	Type           Type
}

// ResidueSet is a set of catalog residue ids.
type ResidueSet map[int64]struct{}

// NewResidueSet builds a set from ids.
func NewResidueSet(ids ...int64) ResidueSet {
	s := make(ResidueSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s ResidueSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the ids in ascending order.
func (s ResidueSet) IDs() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Record is a receptor residue and a signal-protein residue in contact in
// one structure, with all observed interaction types.
type Record struct {
	ID             int64      `json:"int_id"`
	Types          []Type     `json:"int_ty"`
	PDBCode        string     `json:"pdb_id"`
	ConformationID int64      `json:"conf_id"`
	Transducer     string     `json:"gprot"`
	EntryName      string     `json:"entry_name"`
	Receptor       ResidueRef `json:"receptor"`
	Signal         ResidueRef `json:"signal"`
}

type recordKey struct {
	structure int64
	receptor  int64
	signal    int64
}

// Collect keeps the rows where exactly one residue is in signal and merges
// them per structure and residue pair. Rows with both residues in signal are
// intra-transducer contacts and are dropped, as are rows with neither. The
// returned conformation ids are sorted. Records are ordered by receptor
// label, signal label, PDB code and then residue ids.
func Collect(rows []PairRow, signal ResidueSet) ([]int64, []Record) {
	merged := make(map[recordKey]*Record)
	var keys []recordKey
	confs := make(map[int64]bool)

	for _, row := range rows {
		in1, in2 := signal.Has(row.Res1.ID), signal.Has(row.Res2.ID)
		if in1 == in2 {
			continue
		}
		receptor, sig := row.Res1, row.Res2
		if in1 {
			receptor, sig = row.Res2, row.Res1
		}
		key := recordKey{structure: row.StructureID, receptor: receptor.ID, signal: sig.ID}
		rec, ok := merged[key]
		if !ok {
			rec = &Record{
				ID:             row.InteractionID,
				PDBCode:        row.PDBCode,
				ConformationID: row.ConformationID,
				Transducer:     row.Transducer,
				EntryName:      row.EntryName,
				Receptor:       receptor,
				Signal:         sig,
			}
			merged[key] = rec
			keys = append(keys, key)
		} else if row.InteractionID < rec.ID {
			rec.ID = row.InteractionID
		}
		rec.Types = append(rec.Types, row.Type)
		confs[row.ConformationID] = true
	}

	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec := merged[k]
		rec.Types = SortTypes(rec.Types)
		records = append(records, *rec)
	}
	sort.SliceStable(records, func(i, j int) bool { return recordLess(records[i], records[j]) })

	ids := make([]int64, 0, len(confs))
	for id := range confs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, records
}

func recordLess(a, b Record) bool {
	if a.Receptor.Label != b.Receptor.Label {
		return common.NaturalLess(a.Receptor.Label, b.Receptor.Label)
	}
	if a.Signal.Label != b.Signal.Label {
		return common.NaturalLess(a.Signal.Label, b.Signal.Label)
	}
	if a.PDBCode != b.PDBCode {
		return a.PDBCode < b.PDBCode
	}
	if a.Receptor.ID != b.Receptor.ID {
		return a.Receptor.ID < b.Receptor.ID
	}
	return a.Signal.ID < b.Signal.ID
}
