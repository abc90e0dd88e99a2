package signature

import (
	"sort"
)

// Position is one generic-numbering position in alignment scope.
type Position struct {
	Segment string `json:"segment"`
	Label   string `json:"label"`
}

// Alignment holds per-position feature occurrence counts for one receptor set.
// It is immutable after Build.
type Alignment struct {
	scheme       *Scheme
	segments     []SegmentSpec
	positions    []Position
	index        map[string]int
	counts       [][]int
	contributors []int
	aminoCounts  []map[byte]int
	receptors    []string
	numbering    map[string]string
}

// BuildOption customises Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	scheme *Scheme
}

// WithScheme classifies residues with s instead of the default scheme.
func WithScheme(s *Scheme) BuildOption {
	return func(o *buildOptions) {
		if s != nil {
			o.scheme = s
		}
	}
}

// Build counts feature occurrences of receptors at every position of
// segments. With no segments the scope is derived from the receptors. A
// receptor without a residue at a position, or listed for that position in
// ignore, does not contribute there.
func Build(segments []SegmentSpec, receptors []ReceptorSequence, ignore IgnoreMap, opts ...BuildOption) *Alignment {
	o := buildOptions{scheme: DefaultScheme()}
	for _, opt := range opts {
		opt(&o)
	}

	sorted := sortedReceptors(receptors)
	if len(segments) == 0 {
		segments = DeriveSegments(sorted)
	}

	a := &Alignment{
		scheme:    o.scheme,
		index:     make(map[string]int),
		receptors: make([]string, 0, len(sorted)),
		numbering: make(map[string]string),
	}
	for _, seg := range segments {
		kept := SegmentSpec{Name: seg.Name}
		for _, label := range seg.Positions {
			if label == "" {
				continue
			}
			if _, dup := a.index[label]; dup {
				continue
			}
			a.index[label] = len(a.positions)
			a.positions = append(a.positions, Position{Segment: seg.Name, Label: label})
			kept.Positions = append(kept.Positions, label)
		}
		if len(kept.Positions) > 0 {
			a.segments = append(a.segments, kept)
		}
	}

	n := len(a.positions)
	a.counts = make([][]int, n)
	a.contributors = make([]int, n)
	a.aminoCounts = make([]map[byte]int, n)
	for i := range a.counts {
		a.counts[i] = make([]int, a.scheme.Len())
		a.aminoCounts[i] = make(map[byte]int)
	}

	for _, r := range sorted {
		a.receptors = append(a.receptors, r.EntryName)
		if r.NumberingScheme.Slug != "" {
			a.numbering[r.NumberingScheme.Slug] = r.NumberingScheme.Name
		}
		residues := r.residueIndex()
		for i, pos := range a.positions {
			res, ok := residues[pos.Label]
			if !ok || isGap(res.AminoAcid) || ignore.ignored(pos.Label, r.EntryName) {
				continue
			}
			// a residue the scheme does not classify counts as a gap
			aa := upper(res.AminoAcid)
			fi, ok := a.scheme.byAmino[aa]
			if !ok {
				continue
			}
			a.contributors[i]++
			a.aminoCounts[i][aa]++
			a.counts[i][fi]++
		}
	}
	return a
}

func isGap(aa byte) bool { return aa == 0 || aa == '-' || aa == '.' }

func upper(aa byte) byte {
	if aa >= 'a' && aa <= 'z' {
		return aa - ('a' - 'A')
	}
	return aa
}

func (a *Alignment) Scheme() *Scheme { return a.scheme }

// Segments returns the scope actually used, in order.
func (a *Alignment) Segments() []SegmentSpec { return cloneSegments(a.segments) }

// Positions returns the in-scope positions in scope order.
func (a *Alignment) Positions() []Position {
	out := make([]Position, len(a.positions))
	copy(out, a.positions)
	return out
}

// Receptors returns the contributing entry names in sorted order.
func (a *Alignment) Receptors() []string {
	out := make([]string, len(a.receptors))
	copy(out, a.receptors)
	return out
}

// NumberingSchemes returns slug -> name of the schemes seen on the receptors.
func (a *Alignment) NumberingSchemes() map[string]string {
	out := make(map[string]string, len(a.numbering))
	for k, v := range a.numbering {
		out[k] = v
	}
	return out
}

func (a *Alignment) Has(label string) bool {
	_, ok := a.index[label]
	return ok
}

// Contributors is the number of receptors with a residue at label.
// Out-of-scope labels report 0.
func (a *Alignment) Contributors(label string) int {
	i, ok := a.index[label]
	if !ok {
		return 0
	}
	return a.contributors[i]
}

// Count is the number of receptors whose residue at label has feature f.
func (a *Alignment) Count(label string, f Feature) int {
	i, ok := a.index[label]
	if !ok {
		return 0
	}
	fi, ok := a.scheme.Index(f)
	if !ok {
		return 0
	}
	return a.counts[i][fi]
}

// Frequency is Count divided by Contributors, or 0 without contributors.
func (a *Alignment) Frequency(label string, f Feature) float64 {
	c := a.Contributors(label)
	if c == 0 {
		return 0
	}
	return float64(a.Count(label, f)) / float64(c)
}

// AminoAcidCounts returns the amino-acid occurrence counts at label.
func (a *Alignment) AminoAcidCounts(label string) map[byte]int {
	i, ok := a.index[label]
	if !ok {
		return map[byte]int{}
	}
	out := make(map[byte]int, len(a.aminoCounts[i]))
	for k, v := range a.aminoCounts[i] {
		out[k] = v
	}
	return out
}

// consensusAminoAcid returns the most frequent amino acid at label and its
// frequency. Ties go to the alphabetically first residue.
func (a *Alignment) consensusAminoAcid(label string) (byte, float64) {
	i, ok := a.index[label]
	if !ok || a.contributors[i] == 0 {
		return 0, 0
	}
	keys := make([]byte, 0, len(a.aminoCounts[i]))
	for k := range a.aminoCounts[i] {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(x, y int) bool { return keys[x] < keys[y] })
	var best byte
	bestN := 0
	for _, k := range keys {
		if n := a.aminoCounts[i][k]; n > bestN {
			best, bestN = k, n
		}
	}
	return best, float64(bestN) / float64(a.contributors[i])
}

func cloneSegments(in []SegmentSpec) []SegmentSpec {
	out := make([]SegmentSpec, len(in))
	for i, s := range in {
		out[i] = SegmentSpec{Name: s.Name, Positions: append([]string(nil), s.Positions...)}
	}
	return out
}
