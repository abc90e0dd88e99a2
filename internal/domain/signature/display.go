package signature

// FeatureRegion is a maximal run of consecutive positions inside one segment
// that share a dominant feature. Start and End index the segment's positions
// as a half-open range.
type FeatureRegion struct {
	Segment string   `json:"segment"`
	Feature Feature  `json:"feature"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Length  int      `json:"length"`
	Labels  []string `json:"labels"`
}

// FeatureValue is the score of one feature at one position.
type FeatureValue struct {
	Feature Feature `json:"feature"`
	Value   float64 `json:"value"`
}

// PositionFeatures is the display form of a signature position.
type PositionFeatures struct {
	Segment       string         `json:"segment"`
	Label         string         `json:"label"`
	Dominant      Feature        `json:"dominant"`
	DominantValue float64        `json:"dominant_value"`
	ContributorsA int            `json:"contributors_a"`
	ContributorsB int            `json:"contributors_b"`
	ConsensusAA   string         `json:"consensus_aa,omitempty"`
	Features      []FeatureValue `json:"features"`
}

// SegmentFeatures groups display positions and regions of one segment.
type SegmentFeatures struct {
	Segment   string             `json:"segment"`
	Regions   []FeatureRegion    `json:"regions"`
	Positions []PositionFeatures `json:"positions"`
}

// PrepareDisplayDataOneSided splits every segment into feature regions.
// Positions without a dominant feature end the current run and are not part
// of any region. Runs never cross a segment boundary.
func (s *Signature) PrepareDisplayDataOneSided() []FeatureRegion {
	out := []FeatureRegion{}
	for _, seg := range s.segments {
		out = append(out, s.segmentRegions(seg)...)
	}
	return out
}

func (s *Signature) segmentRegions(seg SegmentSpec) []FeatureRegion {
	out := []FeatureRegion{}
	start := 0
	for i := 1; i <= len(seg.Positions); i++ {
		cur := s.dominantAt(seg.Positions[start])
		if i < len(seg.Positions) && s.dominantAt(seg.Positions[i]) == cur {
			continue
		}
		if cur != FeatureNone {
			out = append(out, FeatureRegion{
				Segment: seg.Name,
				Feature: cur,
				Start:   start,
				End:     i,
				Length:  i - start,
				Labels:  append([]string(nil), seg.Positions[start:i]...),
			})
		}
		start = i
	}
	return out
}

func (s *Signature) dominantAt(label string) Feature {
	if i, ok := s.index[label]; ok {
		return s.positions[i].Dominant
	}
	return FeatureNone
}

// Features returns every position with its per-feature values in scope order.
func (s *Signature) Features() []PositionFeatures {
	features := s.scheme.Features()
	out := make([]PositionFeatures, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, toPositionFeatures(features, p))
	}
	return out
}

func toPositionFeatures(features []Feature, p SignaturePosition) PositionFeatures {
	pf := PositionFeatures{
		Segment:       p.Segment,
		Label:         p.Label,
		Dominant:      p.Dominant,
		DominantValue: p.DominantDiff,
		ContributorsA: p.ContributorsA,
		ContributorsB: p.ContributorsB,
		ConsensusAA:   p.ConsensusAA,
		Features:      make([]FeatureValue, len(features)),
	}
	for i, f := range features {
		pf.Features[i] = FeatureValue{Feature: f, Value: p.Diffs[i]}
	}
	return pf
}

// GroupFeatures returns Features and feature regions grouped per segment.
func (s *Signature) GroupFeatures() []SegmentFeatures {
	features := s.scheme.Features()
	out := make([]SegmentFeatures, 0, len(s.segments))
	for _, seg := range s.segments {
		g := SegmentFeatures{
			Segment:   seg.Name,
			Regions:   s.segmentRegions(seg),
			Positions: make([]PositionFeatures, 0, len(seg.Positions)),
		}
		for _, label := range seg.Positions {
			g.Positions = append(g.Positions, toPositionFeatures(features, s.positions[s.index[label]]))
		}
		out = append(out, g)
	}
	return out
}
