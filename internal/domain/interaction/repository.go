package interaction

import (
	"context"
)

// Repository is the read-only interaction catalog.
type Repository interface {
	// ComplexStructureIDs returns the structure ids of the complexes whose
	// receptor entry names (lower-cased PDB codes) are given.
	ComplexStructureIDs(ctx context.Context, pdbCodes []string) ([]int64, error)

	// ConformationIDs resolves protein entry names to conformation ids.
	ConformationIDs(ctx context.Context, entryNames []string) ([]int64, error)

	// ResidueIDs returns every residue id of the given conformations.
	ResidueIDs(ctx context.Context, conformationIDs []int64) (ResidueSet, error)

	// PairRows returns interaction rows of the structures that touch at
	// least one residue of touching. One row per interaction type.
	PairRows(ctx context.Context, structureIDs []int64, touching ResidueSet) ([]PairRow, error)

	// RemainingResidues returns residues of the conformations with their
	// generic numbers. Residues without a generic number may be included.
	RemainingResidues(ctx context.Context, conformationIDs []int64) ([]RemainingResidue, error)

	// Complexes lists every receptor–transducer complex.
	Complexes(ctx context.Context) ([]Complex, error)

	// TransducerSegments returns the catalog segments of family in order.
	TransducerSegments(ctx context.Context, family string) ([]SegmentRef, error)
}

// ComplexStructure locates the two chains of one complex in its structure
// file together with the catalog conformations they map to.
type ComplexStructure struct {
	StructureID            int64
	PDBCode                string
	ReceptorChain          string
	SignalChain            string
	ReceptorConformationID int64
	SignalConformationID   int64
}

// CatalogResidue is a conformation residue keyed by sequence number.
type CatalogResidue struct {
	ID             int64
	SequenceNumber int
	AminoAcid      string
	Label          string
	Segment        string
}

// ComputedPair is a classified contact ready to persist.
type ComputedPair struct {
	StructureID int64
	Res1ID      int64
	Res2ID      int64
	Types       []Type
	Distance    float64
}

// BuildRepository feeds the complex interaction builder.
type BuildRepository interface {
	// ListComplexStructures returns all complexes, or only those whose PDB
	// codes are given.
	ListComplexStructures(ctx context.Context, pdbCodes []string) ([]ComplexStructure, error)

	// ConformationResidues returns the catalog residues of a conformation.
	ConformationResidues(ctx context.Context, conformationID int64) ([]CatalogResidue, error)
}

// Writer persists computed pairs.
type Writer interface {
	// ReplaceStructurePairs swaps every stored pair of the structure for
	// pairs and returns the number of rows written.
	ReplaceStructurePairs(ctx context.Context, structureID int64, pairs []ComputedPair) (int64, error)
}
