package signature

import (
	"math"
)

// SignaturePosition is the contrast of two receptor sets at one position.
// Diffs are indexed by the scheme's feature order. For a one-sided signature
// they hold the raw frequencies of the single set.
type SignaturePosition struct {
	Segment       string    `json:"segment"`
	Label         string    `json:"label"`
	Diffs         []float64 `json:"diffs"`
	Dominant      Feature   `json:"dominant"`
	DominantDiff  float64   `json:"dominant_diff"`
	ContributorsA int       `json:"contributors_a"`
	ContributorsB int       `json:"contributors_b"`
	ConsensusAA   string    `json:"consensus_aa,omitempty"`
	ConsensusFreq float64   `json:"consensus_freq,omitempty"`
}

// HasDominant reports whether some feature separates the sets here.
func (p SignaturePosition) HasDominant() bool { return p.Dominant != FeatureNone }

// Signature is an immutable per-position feature contrast.
type Signature struct {
	scheme    *Scheme
	oneSided  bool
	segments  []SegmentSpec
	positions []SignaturePosition
	index     map[string]int
	numbering map[string]string
}

// Compute contrasts a against b. Only positions in both scopes are kept, in
// the scope order of a. Each feature scores freq_a - freq_b, where a side
// without contributors has frequency 0 for every feature.
func Compute(a, b *Alignment) *Signature {
	sig := newSignature(a.scheme, false, mergeNumbering(a.numbering, b.numbering))
	features := a.scheme.Features()
	for _, seg := range a.segments {
		kept := SegmentSpec{Name: seg.Name}
		for _, label := range seg.Positions {
			if !b.Has(label) {
				continue
			}
			diffs := make([]float64, len(features))
			for i, f := range features {
				diffs[i] = a.Frequency(label, f) - b.Frequency(label, f)
			}
			p := SignaturePosition{
				Segment:       seg.Name,
				Label:         label,
				Diffs:         diffs,
				ContributorsA: a.Contributors(label),
				ContributorsB: b.Contributors(label),
			}
			if aa, freq := a.consensusAminoAcid(label); aa != 0 {
				p.ConsensusAA, p.ConsensusFreq = string(aa), freq
			}
			sig.add(p)
			kept.Positions = append(kept.Positions, label)
		}
		if len(kept.Positions) > 0 {
			sig.segments = append(sig.segments, kept)
		}
	}
	return sig
}

// ComputeOneSided describes a single set: the diff of every feature is its
// raw frequency in a.
func ComputeOneSided(a *Alignment) *Signature {
	sig := Compute(a, emptyLike(a))
	sig.oneSided = true
	return sig
}

// emptyLike returns an alignment with the scope of a and no receptors.
func emptyLike(a *Alignment) *Alignment {
	return Build(a.segments, nil, nil, WithScheme(a.scheme))
}

func newSignature(scheme *Scheme, oneSided bool, numbering map[string]string) *Signature {
	return &Signature{
		scheme:    scheme,
		oneSided:  oneSided,
		index:     make(map[string]int),
		numbering: numbering,
	}
}

func (s *Signature) add(p SignaturePosition) {
	p.Dominant, p.DominantDiff = dominant(s.scheme.Features(), p.Diffs)
	s.index[p.Label] = len(s.positions)
	s.positions = append(s.positions, p)
}

// dominant picks the feature with the largest |diff|. Features are scanned in
// priority order and only a strictly larger magnitude replaces the current
// pick, so an exact tie keeps the earlier feature. A position where every
// diff is zero has no dominant feature.
func dominant(features []Feature, diffs []float64) (Feature, float64) {
	best := FeatureNone
	bestDiff := 0.0
	bestAbs := 0.0
	for i, f := range features {
		if i >= len(diffs) {
			break
		}
		if abs := math.Abs(diffs[i]); abs > bestAbs {
			best, bestDiff, bestAbs = f, diffs[i], abs
		}
	}
	return best, bestDiff
}

func mergeNumbering(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range a {
		out[k] = v
	}
	return out
}

func (s *Signature) Scheme() *Scheme { return s.scheme }

// OneSided reports whether the signature describes a single set.
func (s *Signature) OneSided() bool { return s.oneSided }

// Segments returns the common segments and their positions in order.
func (s *Signature) Segments() []SegmentSpec { return cloneSegments(s.segments) }

// SegmentNames returns the common segment names in order.
func (s *Signature) SegmentNames() []string {
	out := make([]string, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.Name
	}
	return out
}

// Positions returns a copy of every signature position in scope order.
func (s *Signature) Positions() []SignaturePosition {
	out := make([]SignaturePosition, len(s.positions))
	for i, p := range s.positions {
		p.Diffs = append([]float64(nil), p.Diffs...)
		out[i] = p
	}
	return out
}

// Position returns the signature at label.
func (s *Signature) Position(label string) (SignaturePosition, bool) {
	i, ok := s.index[label]
	if !ok {
		return SignaturePosition{}, false
	}
	p := s.positions[i]
	p.Diffs = append([]float64(nil), p.Diffs...)
	return p, true
}

// Diff returns the score of feature f at label, 0 when either is unknown.
func (s *Signature) Diff(label string, f Feature) float64 {
	i, ok := s.index[label]
	if !ok {
		return 0
	}
	fi, ok := s.scheme.Index(f)
	if !ok {
		return 0
	}
	return s.positions[i].Diffs[fi]
}

// NumberingSchemes returns slug -> name of the numbering schemes involved.
func (s *Signature) NumberingSchemes() map[string]string {
	out := make(map[string]string, len(s.numbering))
	for k, v := range s.numbering {
		out[k] = v
	}
	return out
}

func (s *Signature) Len() int { return len(s.positions) }
