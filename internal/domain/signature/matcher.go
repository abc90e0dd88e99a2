package signature

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/protwis/signprot/pkg/errors"
)

// MatchMode selects which signature positions take part in scoring.
type MatchMode string

const (
	// MatchDifferential scores positives and negatives of the signature.
	MatchDifferential MatchMode = "differential"
	// MatchOneSided drops positions whose dominant diff is negative.
	MatchOneSided MatchMode = "onesided"
)

func (m MatchMode) Valid() bool { return m == MatchDifferential || m == MatchOneSided }

// ParseMatchMode parses a mode name. Empty selects MatchDifferential.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MatchDifferential, nil
	case MatchDifferential, MatchOneSided:
		return m, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidMatchMode, "unknown match mode").WithDetail(s)
	}
}

// ResidueScore is one candidate residue scored at a relevant position.
type ResidueScore struct {
	Segment string  `json:"segment"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Max     float64 `json:"max"`
	Agrees  bool    `json:"agrees"`
}

// ObservedResidue is the residue a candidate carries at a relevant position.
type ObservedResidue struct {
	Segment   string  `json:"segment"`
	Label     string  `json:"label"`
	AminoAcid string  `json:"amino_acid"`
	Feature   Feature `json:"feature"`
}

// ProteinScore is one row of the match report.
type ProteinScore struct {
	EntryName       string  `json:"entry_name"`
	Name            string  `json:"name"`
	Family          string  `json:"family"`
	Species         string  `json:"species"`
	Score           float64 `json:"score"`
	NormalizedScore float64 `json:"normalized_score"`
	ReferenceFamily bool    `json:"reference_family"`
}

// ConsensusPosition is a signature position retained for scoring.
type ConsensusPosition struct {
	Segment      string  `json:"segment"`
	Label        string  `json:"label"`
	Feature      Feature `json:"feature"`
	Diff         float64 `json:"diff"`
	Contributors [2]int  `json:"contributors"`
}

// Matcher scores candidate receptors against a signature. Results are
// available after ScoreProteinClass.
type Matcher struct {
	sig        *Signature
	candidates []ReceptorSequence
	inOrder    []ReceptorSequence
	cutoff     float64

	mode             MatchMode
	referenceFamily  string
	familyConsensus  float64
	relevant         []SignaturePosition
	relevantSegments []SegmentSpec
	report           []ProteinScore
	scoresPos        map[string][]ResidueScore
	observed         map[string][]ObservedResidue
	signaturesPos    []PositionFeatures
}

// NewMatcher prepares scoring of candidates against sig. cutoff is the
// minimum |diff| a position needs to be scored and must lie in [0,1].
func NewMatcher(sig *Signature, candidates []ReceptorSequence, cutoff float64) (*Matcher, error) {
	if math.IsNaN(cutoff) || cutoff < 0 || cutoff > 1 {
		return nil, errors.New(errors.ErrCodeInvalidCutoff, "cutoff must be within [0,1]").
			WithDetail(fmt.Sprintf("cutoff=%v", cutoff))
	}
	if sig == nil {
		return nil, errors.New(errors.ErrCodeNoSignature, "no signature to match against")
	}
	return &Matcher{
		sig:        sig,
		candidates: sortedReceptors(candidates),
		inOrder:    append([]ReceptorSequence(nil), candidates...),
		cutoff:     cutoff,
		scoresPos:  map[string][]ResidueScore{},
		observed:   map[string][]ObservedResidue{},
	}, nil
}

// MajorityFamily returns the most frequent family prefix among candidates.
// A tie goes to the prefix encountered first in candidate order.
func MajorityFamily(candidates []ReceptorSequence) string {
	counts := make(map[string]int)
	var order []string
	for _, c := range candidates {
		p := c.FamilyPrefix()
		if p == "" {
			continue
		}
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}
	best, bestN := "", 0
	for _, p := range order {
		if counts[p] > bestN {
			best, bestN = p, counts[p]
		}
	}
	return best
}

// ScoreProteinClass scores every candidate and normalises scores against the
// reference family, the majority family when family is empty. Calling it
// again replaces the previous results.
func (m *Matcher) ScoreProteinClass(family string, mode MatchMode) error {
	if !mode.Valid() {
		return errors.New(errors.ErrCodeInvalidMatchMode, "unknown match mode").WithDetail(string(mode))
	}
	if family == "" {
		family = MajorityFamily(m.inOrder)
	}
	m.mode = mode
	m.referenceFamily = family
	m.familyConsensus = 0
	m.report = []ProteinScore{}
	m.scoresPos = map[string][]ResidueScore{}
	m.observed = map[string][]ObservedResidue{}
	m.selectRelevant()
	m.signaturesPos = []PositionFeatures{}

	if len(m.relevant) == 0 || len(m.candidates) == 0 {
		return nil
	}

	total := 0.0
	for _, p := range m.relevant {
		total += math.Abs(p.DominantDiff)
	}

	for _, c := range m.candidates {
		residues := c.residueIndex()
		sum := 0.0
		scores := make([]ResidueScore, 0, len(m.relevant))
		observed := make([]ObservedResidue, 0, len(m.relevant))
		for _, p := range m.relevant {
			res, ok := residues[p.Label]
			present := ok && !isGap(res.AminoAcid)
			feat := FeatureNone
			aa := "-"
			if present {
				feat = m.sig.scheme.Classify(res.AminoAcid)
				aa = string(upper(res.AminoAcid))
			}
			agrees := residueAgrees(p, present, feat)
			rs := ResidueScore{Segment: p.Segment, Label: p.Label, Max: math.Abs(p.DominantDiff), Agrees: agrees}
			if agrees {
				rs.Score = rs.Max
				sum += rs.Score
			}
			scores = append(scores, rs)
			observed = append(observed, ObservedResidue{Segment: p.Segment, Label: p.Label, AminoAcid: aa, Feature: feat})
		}
		m.scoresPos[c.EntryName] = scores
		m.observed[c.EntryName] = observed
		m.report = append(m.report, ProteinScore{
			EntryName:       c.EntryName,
			Name:            c.Name,
			Family:          c.Family,
			Species:         c.Species,
			Score:           100 * sum / total,
			ReferenceFamily: family != "" && c.FamilyPrefix() == family,
		})
	}

	m.normalise()
	sort.SliceStable(m.report, func(i, j int) bool {
		if m.report[i].Score != m.report[j].Score {
			return m.report[i].Score > m.report[j].Score
		}
		return m.report[i].EntryName < m.report[j].EntryName
	})

	candidateAlignment := Build(m.relevantSegments, m.candidates, nil, WithScheme(m.sig.scheme))
	features := m.sig.scheme.Features()
	for _, p := range ComputeOneSided(candidateAlignment).positions {
		m.signaturesPos = append(m.signaturesPos, toPositionFeatures(features, p))
	}
	return nil
}

// residueAgrees: a positive dominant diff asks for the dominant feature, a
// negative one for any classified residue without it. Gaps and unclassified
// residues never agree.
func residueAgrees(p SignaturePosition, present bool, feat Feature) bool {
	if !present || feat == FeatureNone {
		return false
	}
	if p.DominantDiff >= 0 {
		return feat == p.Dominant
	}
	return feat != p.Dominant
}

func (m *Matcher) selectRelevant() {
	m.relevant = nil
	m.relevantSegments = nil
	for _, seg := range m.sig.segments {
		kept := SegmentSpec{Name: seg.Name}
		for _, label := range seg.Positions {
			p := m.sig.positions[m.sig.index[label]]
			if !p.HasDominant() || math.Abs(p.DominantDiff) < m.cutoff {
				continue
			}
			if m.mode == MatchOneSided && p.DominantDiff < 0 {
				continue
			}
			m.relevant = append(m.relevant, p)
			kept.Positions = append(kept.Positions, label)
		}
		if len(kept.Positions) > 0 {
			m.relevantSegments = append(m.relevantSegments, kept)
		}
	}
}

// normalise scales scores by the best score of the reference family and
// records the family's mean score.
func (m *Matcher) normalise() {
	best, sum, n := 0.0, 0.0, 0
	for _, r := range m.report {
		if !r.ReferenceFamily {
			continue
		}
		n++
		sum += r.Score
		if r.Score > best {
			best = r.Score
		}
	}
	if n > 0 {
		m.familyConsensus = sum / float64(n)
	}
	for i := range m.report {
		if best > 0 {
			m.report[i].NormalizedScore = 100 * m.report[i].Score / best
		}
	}
}

// ProteinReport returns the scored candidates, best first.
func (m *Matcher) ProteinReport() []ProteinScore {
	return append([]ProteinScore{}, m.report...)
}

// ScoresPos returns per-position scores keyed by entry name.
func (m *Matcher) ScoresPos() map[string][]ResidueScore {
	out := make(map[string][]ResidueScore, len(m.scoresPos))
	for k, v := range m.scoresPos {
		out[k] = append([]ResidueScore(nil), v...)
	}
	return out
}

// ProteinSignatures returns the residues each candidate carries at the
// relevant positions.
func (m *Matcher) ProteinSignatures() map[string][]ObservedResidue {
	out := make(map[string][]ObservedResidue, len(m.observed))
	for k, v := range m.observed {
		out[k] = append([]ObservedResidue(nil), v...)
	}
	return out
}

// SignaturesPos returns the feature distribution of the candidates at every
// relevant position.
func (m *Matcher) SignaturesPos() []PositionFeatures {
	return append([]PositionFeatures{}, m.signaturesPos...)
}

// SignatureConsensus returns the signature filtered to the relevant positions.
func (m *Matcher) SignatureConsensus() []ConsensusPosition {
	out := make([]ConsensusPosition, 0, len(m.relevant))
	for _, p := range m.relevant {
		out = append(out, ConsensusPosition{
			Segment:      p.Segment,
			Label:        p.Label,
			Feature:      p.Dominant,
			Diff:         p.DominantDiff,
			Contributors: [2]int{p.ContributorsA, p.ContributorsB},
		})
	}
	return out
}

// RelevantGN returns the scored positions grouped per segment.
func (m *Matcher) RelevantGN() []SegmentSpec { return cloneSegments(m.relevantSegments) }

// RelevantSegments returns the names of segments with scored positions.
func (m *Matcher) RelevantSegments() []string {
	out := make([]string, len(m.relevantSegments))
	for i, s := range m.relevantSegments {
		out[i] = s.Name
	}
	return out
}

// Schemes returns the numbering schemes of the signature.
func (m *Matcher) Schemes() map[string]string { return m.sig.NumberingSchemes() }

func (m *Matcher) ReferenceFamily() string { return m.referenceFamily }

// FamilyConsensus is the mean score of the reference family.
func (m *Matcher) FamilyConsensus() float64 { return m.familyConsensus }

func (m *Matcher) Mode() MatchMode { return m.mode }

func (m *Matcher) Cutoff() float64 { return m.cutoff }
