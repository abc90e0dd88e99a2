package interaction

import (
	"strings"

	"github.com/protwis/signprot/pkg/errors"
)

// Effector names the transducer type of a complex.
type Effector string

const (
	EffectorGAlpha   Effector = "G alpha"
	EffectorArrestin Effector = "A"
)

// ParseEffector accepts "G alpha", "A" and "arrestin" in any case.
func ParseEffector(s string) (Effector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g alpha":
		return EffectorGAlpha, nil
	case "a", "arrestin":
		return EffectorArrestin, nil
	default:
		return "", errors.New(errors.ErrCodeUnknownEffector, "unknown effector").WithDetail(s)
	}
}

// ComplexEntryName is the catalog entry name of the transducer chain of a
// complex: the lower-cased PDB code with "_a" for G alpha subunits and
// "_arrestin" for arrestins.
func ComplexEntryName(pdb string, effector Effector) (string, error) {
	code := strings.ToLower(strings.TrimSpace(pdb))
	if code == "" {
		return "", errors.New(errors.ErrCodeValidation, "pdb code must not be empty")
	}
	switch effector {
	case EffectorGAlpha:
		return code + "_a", nil
	case EffectorArrestin:
		return code + "_arrestin", nil
	default:
		return "", errors.New(errors.ErrCodeUnknownEffector, "unknown effector").WithDetail(string(effector))
	}
}

// Database selects the transducer family shown by the interaction matrix.
type Database string

const (
	DatabaseGProtein Database = "gprotein"
	DatabaseArrestin Database = "arrestin"
)

// ParseDatabase parses a matrix database name. Empty selects G proteins.
func ParseDatabase(s string) (Database, error) {
	switch Database(strings.ToLower(strings.TrimSpace(s))) {
	case "", DatabaseGProtein:
		return DatabaseGProtein, nil
	case DatabaseArrestin:
		return DatabaseArrestin, nil
	default:
		return "", errors.New(errors.ErrCodeBadRequest, "unknown interaction database").WithDetail(s)
	}
}

// SegmentFamily is the segment catalog family of the database's transducers.
func (d Database) SegmentFamily() string {
	if d == DatabaseArrestin {
		return "Arrestin"
	}
	return "Alpha"
}

// Effector is the transducer chain type the database's complexes carry.
func (d Database) Effector() Effector {
	if d == DatabaseArrestin {
		return EffectorArrestin
	}
	return EffectorGAlpha
}

// Complex describes one receptor–transducer structure for the matrix.
type Complex struct {
	StructureID     int64  `json:"-"`
	PDBID           string `json:"pdb_id"`
	Name            string `json:"name"`
	EntryName       string `json:"entry_name"`
	Class           string `json:"class"`
	Family          string `json:"family"`
	ConformationID  int64  `json:"conf_id"`
	Organism        string `json:"organism"`
	Transducer      string `json:"gprot"`
	TransducerClass string `json:"gprot_class"`
}

// RemainingResidue is a generic-numbered residue of a touched conformation.
// Together with the records it fills the non-interacting matrix cells.
type RemainingResidue struct {
	ReceptorID int64  `json:"rec_id"`
	Name       string `json:"name"`
	EntryName  string `json:"entry_name"`
	PDBID      string `json:"pdb_id"`
	AminoAcid  string `json:"rec_aa"`
	Label      string `json:"rec_gn"`
}

// FilterRemaining drops residues without a generic number.
func FilterRemaining(in []RemainingResidue) []RemainingResidue {
	out := make([]RemainingResidue, 0, len(in))
	for _, r := range in {
		if r.Label != "" {
			out = append(out, r)
		}
	}
	return out
}
