package signature

import (
	"context"
)

// ReceptorRepository is the read-only contract of the receptor and residue
// catalog. The engine never writes to it.
type ReceptorRepository interface {
	// FindSequences loads receptors by entry name with their residues under
	// numberingScheme. Unknown entry names are skipped, not reported.
	FindSequences(ctx context.Context, entryNames []string, numberingScheme string) ([]ReceptorSequence, error)

	// DefaultSegments returns every generic-numbering position of
	// numberingScheme grouped by segment in canonical order.
	DefaultSegments(ctx context.Context, numberingScheme string) ([]SegmentSpec, error)

	// ResolveSegments expands segment slugs or single labels into
	// SegmentSpecs. Unknown names resolve to nothing.
	ResolveSegments(ctx context.Context, names []string, numberingScheme string) ([]SegmentSpec, error)
}

// SessionStore keeps one serialised signature and the last match parameters
// per session. Saving a signature replaces the previous one.
type SessionStore interface {
	SaveSignature(ctx context.Context, sessionID string, bundle *Bundle) error

	// LoadSignature returns errors.ErrCodeNoSignature when the session holds
	// no bundle and errors.ErrCodeStaleSession when it cannot be decoded.
	LoadSignature(ctx context.Context, sessionID string) (*Bundle, error)

	SaveMatchParams(ctx context.Context, sessionID string, params MatchParams) error
	LoadMatchParams(ctx context.Context, sessionID string) (*MatchParams, error)
}

// MatchParams are the transient request parameters kept next to the bundle.
type MatchParams struct {
	EntryNames        []string  `json:"entry_names"`
	Cutoff            float64   `json:"cutoff"`
	Mode              MatchMode `json:"mode"`
	FilteringParticle string    `json:"filtering_particle,omitempty"`
}
