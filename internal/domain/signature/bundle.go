package signature

import (
	"encoding/json"
	"fmt"

	"github.com/protwis/signprot/pkg/errors"
)

// BundleSchemaVersion is the current session payload version. Payloads with
// any other version are rejected as stale.
const BundleSchemaVersion = 1

// SchemeDef is the serialised form of a feature scheme.
type SchemeDef struct {
	Name   string     `json:"name"`
	Groups []GroupDef `json:"groups"`
}

// Bundle is the minimal serialised signature. It carries everything a
// Matcher needs, so a decoded bundle rebuilds an equivalent Signature.
type Bundle struct {
	SchemaVersion    int                  `json:"schema_version"`
	OneSided         bool                 `json:"onesided"`
	FeatureScheme    SchemeDef            `json:"feature_scheme"`
	NumberingSchemes map[string]string    `json:"numbering_schemes"`
	CommonSegments   []string             `json:"common_segments"`
	CommonPositions  map[string][]string  `json:"common_positions"`
	DiffMatrix       map[string][]float64 `json:"diff_matrix"`
	Contributors     map[string][2]int    `json:"contributors"`
}

// PrepareSessionData produces the session bundle of s.
func (s *Signature) PrepareSessionData() *Bundle {
	b := &Bundle{
		SchemaVersion:    BundleSchemaVersion,
		OneSided:         s.oneSided,
		FeatureScheme:    SchemeDef{Name: s.scheme.Name(), Groups: s.scheme.Groups()},
		NumberingSchemes: s.NumberingSchemes(),
		CommonSegments:   s.SegmentNames(),
		CommonPositions:  make(map[string][]string, len(s.segments)),
		DiffMatrix:       make(map[string][]float64, len(s.positions)),
		Contributors:     make(map[string][2]int, len(s.positions)),
	}
	for _, seg := range s.segments {
		b.CommonPositions[seg.Name] = append([]string(nil), seg.Positions...)
	}
	for _, p := range s.positions {
		b.DiffMatrix[p.Label] = append([]float64(nil), p.Diffs...)
		b.Contributors[p.Label] = [2]int{p.ContributorsA, p.ContributorsB}
	}
	return b
}

// Encode serialises b to JSON.
func (b *Bundle) Encode() ([]byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode signature bundle")
	}
	return raw, nil
}

// DecodeBundle parses a session payload and rejects other schema versions.
func DecodeBundle(raw []byte) (*Bundle, error) {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStaleSession, "unreadable signature bundle")
	}
	if probe.SchemaVersion != BundleSchemaVersion {
		return nil, errors.New(errors.ErrCodeStaleSession, "signature bundle schema mismatch").
			WithDetail(fmt.Sprintf("got %d, want %d", probe.SchemaVersion, BundleSchemaVersion))
	}
	b := &Bundle{}
	if err := json.Unmarshal(raw, b); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStaleSession, "unreadable signature bundle")
	}
	return b, nil
}

// Signature rebuilds the signature described by b. Dominant features are
// recomputed from the diff matrix with the scheme's tie-break.
func (b *Bundle) Signature() (*Signature, error) {
	if b.SchemaVersion != BundleSchemaVersion {
		return nil, errors.New(errors.ErrCodeStaleSession, "signature bundle schema mismatch").
			WithDetail(fmt.Sprintf("got %d, want %d", b.SchemaVersion, BundleSchemaVersion))
	}
	scheme, err := NewScheme(b.FeatureScheme.Name, b.FeatureScheme.Groups)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStaleSession, "signature bundle feature scheme")
	}

	numbering := make(map[string]string, len(b.NumberingSchemes))
	for k, v := range b.NumberingSchemes {
		numbering[k] = v
	}
	sig := newSignature(scheme, b.OneSided, numbering)
	for _, name := range b.CommonSegments {
		labels := b.CommonPositions[name]
		kept := SegmentSpec{Name: name}
		for _, label := range labels {
			if _, dup := sig.index[label]; dup {
				continue
			}
			diffs, ok := b.DiffMatrix[label]
			if !ok {
				return nil, errors.New(errors.ErrCodeStaleSession, "signature bundle lacks diff row").WithDetail(label)
			}
			if len(diffs) != scheme.Len() {
				return nil, errors.New(errors.ErrCodeStaleSession, "signature bundle diff row width mismatch").
					WithDetail(fmt.Sprintf("%s: %d values for %d features", label, len(diffs), scheme.Len()))
			}
			c := b.Contributors[label]
			sig.add(SignaturePosition{
				Segment:       name,
				Label:         label,
				Diffs:         append([]float64(nil), diffs...),
				ContributorsA: c[0],
				ContributorsB: c[1],
			})
			kept.Positions = append(kept.Positions, label)
		}
		if len(kept.Positions) > 0 {
			sig.segments = append(sig.segments, kept)
		}
	}
	return sig, nil
}

// LoadSignature decodes raw and rebuilds its signature.
func LoadSignature(raw []byte) (*Signature, error) {
	b, err := DecodeBundle(raw)
	if err != nil {
		return nil, err
	}
	return b.Signature()
}
