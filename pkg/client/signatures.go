package client

import (
	"context"
	"net/http"
)

// SignatureClient computes signatures and matches receptors against them.
type SignatureClient struct {
	client *Client
}

// ComputeRequest selects the receptor sets. Without ReferenceEntryNames the
// one-sided signature of EntryNames is computed.
type ComputeRequest struct {
	EntryNames          []string            `json:"entry_names"`
	ReferenceEntryNames []string            `json:"reference_entry_names,omitempty"`
	Segments            []string            `json:"segments,omitempty"`
	AllPositions        bool                `json:"all_positions,omitempty"`
	Ignore              map[string][]string `json:"ignore,omitempty"`
}

type FeatureValue struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// PositionFeatures is one signature position.
type PositionFeatures struct {
	Segment       string         `json:"segment"`
	Label         string         `json:"label"`
	Dominant      string         `json:"dominant"`
	DominantValue float64        `json:"dominant_value"`
	ContributorsA int            `json:"contributors_a"`
	ContributorsB int            `json:"contributors_b"`
	ConsensusAA   string         `json:"consensus_aa,omitempty"`
	Features      []FeatureValue `json:"features"`
}

// FeatureRegion is a run of consecutive positions of one segment sharing a
// dominant feature, covering [Start, End).
type FeatureRegion struct {
	Segment string   `json:"segment"`
	Feature string   `json:"feature"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Length  int      `json:"length"`
	Labels  []string `json:"labels"`
}

type SegmentFeatures struct {
	Segment   string             `json:"segment"`
	Regions   []FeatureRegion    `json:"regions"`
	Positions []PositionFeatures `json:"positions"`
}

type Signature struct {
	OneSided           bool               `json:"onesided"`
	Receptors          []string           `json:"receptors"`
	ReferenceReceptors []string           `json:"reference_receptors,omitempty"`
	Segments           []string           `json:"segments"`
	Positions          int                `json:"positions"`
	FeatUngrouped      []PositionFeatures `json:"feat_ungrouped"`
	Feat               []SegmentFeatures  `json:"feat"`
	Regions            []FeatureRegion    `json:"regions,omitempty"`
	NumberingSchemes   map[string]string  `json:"numbering_schemes"`
}

// MatchRequest selects the candidates and scoring parameters. A nil Cutoff
// uses the server default.
type MatchRequest struct {
	EntryNames        []string `json:"entry_names"`
	Cutoff            *float64 `json:"cutoff,omitempty"`
	Mode              string   `json:"mode,omitempty"`
	Family            string   `json:"family,omitempty"`
	FilteringParticle string   `json:"filtering_particle,omitempty"`
}

type ProteinScore struct {
	EntryName       string  `json:"entry_name"`
	Name            string  `json:"name"`
	Family          string  `json:"family"`
	Species         string  `json:"species"`
	Score           float64 `json:"score"`
	NormalizedScore float64 `json:"normalized_score"`
	ReferenceFamily bool    `json:"reference_family"`
}

type ConsensusPosition struct {
	Segment      string  `json:"segment"`
	Label        string  `json:"label"`
	Feature      string  `json:"feature"`
	Diff         float64 `json:"diff"`
	Contributors [2]int  `json:"contributors"`
}

// MatchReport is the ranked match result. Proteins are ordered by score,
// best first.
type MatchReport struct {
	Mode             string              `json:"mode"`
	Cutoff           float64             `json:"cutoff"`
	ReferenceFamily  string              `json:"reference_family"`
	FamilyConsensus  float64             `json:"family_consensus"`
	Proteins         []ProteinScore      `json:"proteins"`
	Consensus        []ConsensusPosition `json:"signature_consensus"`
	RelevantSegments []string            `json:"relevant_segments"`
	Schemes          map[string]string   `json:"schemes"`
}

// MatchParams are the parameters of the last match of the session.
type MatchParams struct {
	EntryNames        []string `json:"entry_names"`
	Cutoff            float64  `json:"cutoff"`
	Mode              string   `json:"mode"`
	FilteringParticle string   `json:"filtering_particle,omitempty"`
}

// Compute computes a signature and stores it in the client's session.
func (s *SignatureClient) Compute(ctx context.Context, req *ComputeRequest) (*Signature, error) {
	var out Signature
	if err := s.client.post(ctx, "/api/v1/signature", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Match scores candidates against the signature of the session.
func (s *SignatureClient) Match(ctx context.Context, req *MatchRequest) (*MatchReport, error) {
	var out MatchReport
	if err := s.client.post(ctx, "/api/v1/signature/match", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LastMatch returns nil when the session has not matched yet.
func (s *SignatureClient) LastMatch(ctx context.Context) (*MatchParams, error) {
	var out MatchParams
	status, err := s.client.get(ctx, "/api/v1/signature/match", &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &out, nil
}
