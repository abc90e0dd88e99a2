package structure

import (
	"math"

	"github.com/protwis/signprot/internal/domain/interaction"
	"github.com/protwis/signprot/pkg/errors"
)

// Distance thresholds in Å.
const (
	IonicCutoff       = 4.0
	AromaticCutoff    = 4.5
	PolarCutoff       = 3.5
	HydrophobicCutoff = 4.5
	VanDerWaalsCutoff = 4.0
)

// Contact is a receptor residue close to a signal-protein residue.
type Contact struct {
	Receptor *Residue
	Signal   *Residue
	Distance float64
	Types    []interaction.Type
}

// Contacts pairs every residue of receptorChain with every residue of
// signalChain whose closest heavy atoms are within cutoff Å and classifies
// each pair. Pairs without any interaction type are dropped.
func Contacts(s *Structure, receptorChain, signalChain string, cutoff float64) ([]Contact, error) {
	rc, ok := s.Chain(receptorChain)
	if !ok {
		return nil, errors.New(errors.ErrCodeComplexIncomplete, "receptor chain not in structure").
			WithDetail(s.ID + ":" + receptorChain)
	}
	sc, ok := s.Chain(signalChain)
	if !ok {
		return nil, errors.New(errors.ErrCodeComplexIncomplete, "signal protein chain not in structure").
			WithDetail(s.ID + ":" + signalChain)
	}

	var out []Contact
	for _, r1 := range rc.Residues {
		for _, r2 := range sc.Residues {
			d := ResiduesDistance(r1, r2)
			if d > cutoff {
				continue
			}
			types := Classify(r1, r2)
			if len(types) == 0 {
				continue
			}
			out = append(out, Contact{Receptor: r1, Signal: r2, Distance: d, Types: types})
		}
	}
	return out, nil
}

func dist(a, b Atom) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ResiduesDistance is the distance of the closest heavy-atom pair, +Inf when
// either residue has no heavy atoms.
func ResiduesDistance(r1, r2 *Residue) float64 {
	best := math.Inf(1)
	for _, a1 := range r1.Atoms {
		if !a1.Heavy() {
			continue
		}
		for _, a2 := range r2.Atoms {
			if !a2.Heavy() {
				continue
			}
			if d := dist(a1, a2); d < best {
				best = d
			}
		}
	}
	return best
}

var (
	positiveAtoms = map[string]map[string]bool{
		"ARG": {"NE": true, "NH1": true, "NH2": true},
		"LYS": {"NZ": true},
		"HIS": {"ND1": true, "NE2": true},
	}
	negativeAtoms = map[string]map[string]bool{
		"ASP": {"OD1": true, "OD2": true},
		"GLU": {"OE1": true, "OE2": true},
	}
	ringAtoms = map[string]map[string]bool{
		"PHE": {"CG": true, "CD1": true, "CD2": true, "CE1": true, "CE2": true, "CZ": true},
		"TYR": {"CG": true, "CD1": true, "CD2": true, "CE1": true, "CE2": true, "CZ": true},
		"TRP": {"CG": true, "CD1": true, "NE1": true, "CD2": true, "CE2": true, "CE3": true, "CZ2": true, "CZ3": true, "CH2": true},
		"HIS": {"CG": true, "ND1": true, "CD2": true, "CE1": true, "NE2": true},
	}
	hydrophobicResidues = map[string]bool{
		"ALA": true, "VAL": true, "LEU": true, "ILE": true, "MET": true,
		"PHE": true, "TRP": true, "PRO": true, "CYS": true, "TYR": true,
	}
	backbone = map[string]bool{"N": true, "CA": true, "C": true, "O": true, "OXT": true}
)

// Classify returns the interaction types of a residue pair in TypeOrder.
// Van der Waals is only reported when no other type applies.
func Classify(r1, r2 *Residue) []interaction.Type {
	var types []interaction.Type
	if ionic(r1, r2) || ionic(r2, r1) {
		types = append(types, interaction.TypeIonic)
	}
	if anyPair(r1, r2, AromaticCutoff, func(a1, a2 Atom) bool {
		return ringAtoms[r1.Name][a1.Name] && ringAtoms[r2.Name][a2.Name]
	}) {
		types = append(types, interaction.TypeAromatic)
	}
	if anyPair(r1, r2, PolarCutoff, func(a1, a2 Atom) bool {
		return isPolarAtom(a1) && isPolarAtom(a2)
	}) {
		types = append(types, interaction.TypePolar)
	}
	if hydrophobicResidues[r1.Name] && hydrophobicResidues[r2.Name] && anyPair(r1, r2, HydrophobicCutoff, func(a1, a2 Atom) bool {
		return sideChainCarbon(a1) && sideChainCarbon(a2)
	}) {
		types = append(types, interaction.TypeHydrophobic)
	}
	if len(types) == 0 && anyPair(r1, r2, VanDerWaalsCutoff, func(a1, a2 Atom) bool { return true }) {
		types = append(types, interaction.TypeVanDerWaals)
	}
	return types
}

func ionic(pos, neg *Residue) bool {
	return anyPair(pos, neg, IonicCutoff, func(a1, a2 Atom) bool {
		return positiveAtoms[pos.Name][a1.Name] && negativeAtoms[neg.Name][a2.Name]
	})
}

func isPolarAtom(a Atom) bool { return a.Element == "N" || a.Element == "O" }

func sideChainCarbon(a Atom) bool { return a.Element == "C" && !backbone[a.Name] }

// anyPair reports whether some heavy-atom pair accepted by match lies within
// cutoff.
func anyPair(r1, r2 *Residue, cutoff float64, match func(a1, a2 Atom) bool) bool {
	for _, a1 := range r1.Atoms {
		if !a1.Heavy() {
			continue
		}
		for _, a2 := range r2.Atoms {
			if !a2.Heavy() || !match(a1, a2) {
				continue
			}
			if dist(a1, a2) <= cutoff {
				return true
			}
		}
	}
	return false
}
