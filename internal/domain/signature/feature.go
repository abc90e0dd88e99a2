// Package signature implements the sequence-signature engine: per-position
// feature distributions over receptor sets, the differential signature that
// contrasts two sets, and scoring of candidate receptors against it.
package signature

import (
	"fmt"
	"strings"
	"sync"

	"github.com/protwis/signprot/pkg/errors"
	"github.com/protwis/signprot/pkg/types/common"
)

// Feature is a physicochemical amino-acid class.
type Feature string

const (
	FeatureHydrophobic Feature = "hydrophobic"
	FeatureAromatic    Feature = "aromatic"
	FeaturePolarShort  Feature = "polar_short"
	FeaturePolarLong   Feature = "polar_long"
	FeatureNegative    Feature = "negative"
	FeaturePositive    Feature = "positive"
	FeatureSpecial     Feature = "special"

	// FeatureNone marks a gap or a residue the scheme does not classify.
	FeatureNone Feature = ""
)

// GroupDef assigns one-letter amino-acid codes to a feature.
type GroupDef struct {
	Feature  Feature `json:"feature"`
	Residues string  `json:"residues"`
}

// Scheme maps amino acids to features. The order of its groups is the
// tie-break priority: an earlier feature wins an exact tie.
type Scheme struct {
	name    string
	groups  []GroupDef
	order   common.Ranking[Feature]
	byAmino map[byte]int
}

// NewScheme validates groups and builds a Scheme. Every residue may belong to
// at most one group and feature names must be unique and non-empty.
func NewScheme(name string, groups []GroupDef) (*Scheme, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New(errors.ErrCodeInvalidScheme, "scheme name must not be empty")
	}
	if len(groups) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidScheme, "scheme needs at least one group").WithDetail("scheme=" + name)
	}

	s := &Scheme{
		name:    name,
		groups:  make([]GroupDef, 0, len(groups)),
		byAmino: make(map[byte]int),
	}
	features := make([]Feature, 0, len(groups))
	seen := make(map[Feature]bool, len(groups))
	for i, g := range groups {
		if g.Feature == FeatureNone {
			return nil, errors.New(errors.ErrCodeInvalidScheme, "feature name must not be empty").WithDetail("scheme=" + name)
		}
		if seen[g.Feature] {
			return nil, errors.New(errors.ErrCodeInvalidScheme, "duplicate feature").WithDetail(string(g.Feature))
		}
		seen[g.Feature] = true
		residues := strings.ToUpper(g.Residues)
		for j := 0; j < len(residues); j++ {
			aa := residues[j]
			if prev, dup := s.byAmino[aa]; dup && prev != i {
				return nil, errors.New(errors.ErrCodeInvalidScheme, "residue assigned to two features").
					WithDetail(fmt.Sprintf("%c in %s and %s", aa, groups[prev].Feature, g.Feature))
			}
			s.byAmino[aa] = i
		}
		s.groups = append(s.groups, GroupDef{Feature: g.Feature, Residues: residues})
		features = append(features, g.Feature)
	}
	s.order = common.NewRanking(features...)
	return s, nil
}

// MustScheme is NewScheme for package-level definitions.
func MustScheme(name string, groups []GroupDef) *Scheme {
	s, err := NewScheme(name, groups)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Scheme) Name() string { return s.name }

// Features returns the features in priority order.
func (s *Scheme) Features() []Feature { return s.order.Items() }

// Groups returns a copy of the group definitions.
func (s *Scheme) Groups() []GroupDef {
	out := make([]GroupDef, len(s.groups))
	copy(out, s.groups)
	return out
}

func (s *Scheme) Len() int { return len(s.groups) }

// Index returns the priority index of f.
func (s *Scheme) Index(f Feature) (int, bool) { return s.order.Rank(f) }

// Classify returns the feature of a one-letter amino-acid code. Gaps ('-'),
// unknown residues and codes outside the scheme yield FeatureNone.
func (s *Scheme) Classify(aa byte) Feature {
	if i, ok := s.byAmino[upper(aa)]; ok {
		return s.groups[i].Feature
	}
	return FeatureNone
}

// DefaultSchemeName names the built-in scheme.
const DefaultSchemeName = "default"

var defaultScheme = MustScheme(DefaultSchemeName, []GroupDef{
	{Feature: FeatureHydrophobic, Residues: "ACILMV"},
	{Feature: FeatureAromatic, Residues: "FWY"},
	{Feature: FeaturePolarShort, Residues: "NST"},
	{Feature: FeaturePolarLong, Residues: "Q"},
	{Feature: FeatureNegative, Residues: "DE"},
	{Feature: FeaturePositive, Residues: "HKR"},
	{Feature: FeatureSpecial, Residues: "GP"},
})

// DefaultScheme returns the built-in feature scheme. Glycine and proline are
// classified as FeatureSpecial, which ranks last.
func DefaultScheme() *Scheme { return defaultScheme }

var (
	registryMu sync.RWMutex
	registry   = map[string]*Scheme{DefaultSchemeName: defaultScheme}
)

// RegisterScheme makes s available to LookupScheme under its name.
func RegisterScheme(s *Scheme) {
	registryMu.Lock()
	registry[s.name] = s
	registryMu.Unlock()
}

// LookupScheme returns a registered scheme. An empty name means the default.
func LookupScheme(name string) (*Scheme, error) {
	if name == "" {
		return defaultScheme, nil
	}
	registryMu.RLock()
	s, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidScheme, "unknown feature scheme").WithDetail(name)
	}
	return s, nil
}
