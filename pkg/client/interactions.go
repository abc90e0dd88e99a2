package client

import (
	"context"
	"net/url"
)

// InteractionsClient reads receptor–transducer interactions of complexes.
type InteractionsClient struct {
	client *Client
}

// Effector values of InteractionsRequest.
const (
	EffectorGAlpha   = "G alpha"
	EffectorArrestin = "A"
)

// Transducer databases of the matrix.
const (
	DatabaseGProtein = "gprotein"
	DatabaseArrestin = "arrestin"
)

type InteractionsRequest struct {
	PDBCodes []string `json:"pdb_codes"`
	Effector string   `json:"effector"`
}

type ResidueRef struct {
	ID             int64  `json:"id"`
	AminoAcid      string `json:"aa"`
	SequenceNumber int    `json:"pos"`
	Label          string `json:"gn"`
	Segment        string `json:"segment"`
}

// Interaction is one receptor–transducer residue pair of a complex.
type Interaction struct {
	ID             int64      `json:"int_id"`
	Types          []string   `json:"int_ty"`
	PDBCode        string     `json:"pdb_id"`
	ConformationID int64      `json:"conf_id"`
	Transducer     string     `json:"gprot"`
	EntryName      string     `json:"entry_name"`
	Receptor       ResidueRef `json:"receptor"`
	Signal         ResidueRef `json:"signal"`
}

type RemainingResidue struct {
	ReceptorID int64  `json:"rec_id"`
	Name       string `json:"name"`
	EntryName  string `json:"entry_name"`
	PDBID      string `json:"pdb_id"`
	AminoAcid  string `json:"rec_aa"`
	Label      string `json:"rec_gn"`
}

type Interactions struct {
	RemainingResidues []RemainingResidue `json:"remaining_residues"`
	Interactions      []Interaction      `json:"interactions"`
}

type Complex struct {
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

// MatrixCell holds the interactions between one receptor segment and one
// transducer segment.
type MatrixCell struct {
	ReceptorSegment   string        `json:"receptor_segment"`
	TransducerSegment string        `json:"transducer_segment"`
	Types             []string      `json:"types"`
	Records           []Interaction `json:"records"`
}

type Matrix struct {
	ReceptorSegments   []string     `json:"receptor"`
	TransducerSegments []string     `json:"gprot"`
	Cells              []MatrixCell `json:"cells"`
}

type MatrixReport struct {
	Database  string    `json:"database"`
	Complexes []Complex `json:"complexes"`
	Matrix    Matrix    `json:"matrix"`
}

// List returns the interactions of the given complexes.
func (s *InteractionsClient) List(ctx context.Context, req *InteractionsRequest) (*Interactions, error) {
	var out Interactions
	if err := s.client.post(ctx, "/api/v1/interactions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Matrix returns the segment matrix of every complex of database.
func (s *InteractionsClient) Matrix(ctx context.Context, database string) (*MatrixReport, error) {
	var out MatrixReport
	path := "/api/v1/interactions/matrix?database=" + url.QueryEscape(database)
	if _, err := s.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
