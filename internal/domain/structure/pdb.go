// Package structure parses PDB coordinate files and finds classified
// residue contacts between two chains.
package structure

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/protwis/signprot/pkg/errors"
)

// Atom is one ATOM record.
type Atom struct {
	Serial  int
	Name    string
	Element string
	X, Y, Z float64
}

// Heavy reports whether the atom is not a hydrogen.
func (a Atom) Heavy() bool { return a.Element != "H" && a.Element != "D" }

// Residue groups the atoms of one residue of a chain.
type Residue struct {
	Chain         string
	Number        int
	InsertionCode string
	Name          string
	Atoms         []Atom
}

// OneLetter returns the one-letter code of the residue, 'X' when unknown.
func (r *Residue) OneLetter() byte {
	if c, ok := threeToOne[r.Name]; ok {
		return c
	}
	return 'X'
}

// Chain is an ordered list of residues.
type Chain struct {
	ID       string
	Residues []*Residue
}

// Structure holds the chains of the first model of a PDB file.
type Structure struct {
	ID     string
	Chains []*Chain
	byID   map[string]*Chain
}

// Chain returns the chain with the given id.
func (s *Structure) Chain(id string) (*Chain, bool) {
	c, ok := s.byID[id]
	return c, ok
}

var threeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"MSE": 'M', "HSD": 'H', "HSE": 'H', "HIE": 'H', "HID": 'H',
}

// minAtomLine is the shortest ATOM line that carries coordinates.
const minAtomLine = 54

// ParsePDB reads the ATOM records of the first model. HETATM records, and so
// waters and ligands, are ignored, as are alternate locations other than the
// first. Lines too short to hold coordinates are skipped.
func ParsePDB(id string, raw []byte) (*Structure, error) {
	s := &Structure{ID: strings.ToUpper(id), byID: make(map[string]*Chain)}
	var cur *Residue

	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	atoms := 0
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "ENDMDL") {
			break
		}
		if !strings.HasPrefix(line, "ATOM  ") || len(line) < minAtomLine {
			continue
		}
		if alt := line[16]; alt != ' ' && alt != 'A' && alt != '1' {
			continue
		}
		number, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
		if err != nil {
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		serial, _ := strconv.Atoi(strings.TrimSpace(line[6:11]))
		name := strings.TrimSpace(line[12:16])
		atom := Atom{Serial: serial, Name: name, Element: element(line, name), X: x, Y: y, Z: z}

		chainID := line[21:22]
		icode := strings.TrimSpace(line[26:27])
		resName := strings.TrimSpace(line[17:20])
		if cur == nil || cur.Chain != chainID || cur.Number != number || cur.InsertionCode != icode {
			chain, ok := s.byID[chainID]
			if !ok {
				chain = &Chain{ID: chainID}
				s.byID[chainID] = chain
				s.Chains = append(s.Chains, chain)
			}
			cur = &Residue{Chain: chainID, Number: number, InsertionCode: icode, Name: resName}
			chain.Residues = append(chain.Residues, cur)
		}
		cur.Atoms = append(cur.Atoms, atom)
		atoms++
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "read pdb").WithDetail(s.ID)
	}
	if atoms == 0 {
		return nil, errors.New(errors.ErrCodeStructureParse, "no ATOM records").WithDetail(s.ID)
	}
	return s, nil
}

// element reads columns 77-78 and falls back to the first letter of the atom
// name for files that leave them blank.
func element(line, name string) string {
	if len(line) >= 78 {
		if e := strings.TrimSpace(line[76:78]); e != "" {
			return strings.ToUpper(e)
		}
	}
	for i := 0; i < len(name); i++ {
		if c := name[i]; c >= 'A' && c <= 'Z' {
			return string(c)
		}
	}
	return ""
}
