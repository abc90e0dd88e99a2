// Package signature computes receptor signatures and matches candidates
// against the signature stored in the caller's session.
package signature

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/protwis/signprot/internal/config"
	domain "github.com/protwis/signprot/internal/domain/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/prometheus"
	"github.com/protwis/signprot/pkg/errors"
	"github.com/protwis/signprot/pkg/types/common"
)

// Service is the signature use-case surface shared by HTTP and CLI.
type Service interface {
	Compute(ctx context.Context, sessionID string, input *ComputeInput) (*ComputeResult, error)
	Match(ctx context.Context, sessionID string, input *MatchInput) (*MatchResult, error)
	LastMatch(ctx context.Context, sessionID string) (*domain.MatchParams, error)
}

// ComputeInput selects the receptor sets. Without reference entry names the
// one-sided signature of EntryNames is computed.
type ComputeInput struct {
	EntryNames          []string
	ReferenceEntryNames []string
	// Segments are segment slugs or single generic-number labels. Empty
	// derives the positions from the receptors themselves.
	Segments []string
	// AllPositions uses every position of the numbering scheme instead.
	AllPositions bool
	Ignore       map[string][]string
}

// ComputeResult is the display form of a signature.
type ComputeResult struct {
	OneSided           bool                      `json:"onesided"`
	Receptors          []string                  `json:"receptors"`
	ReferenceReceptors []string                  `json:"reference_receptors,omitempty"`
	Segments           []string                  `json:"segments"`
	Positions          int                       `json:"positions"`
	FeatUngrouped      []domain.PositionFeatures `json:"feat_ungrouped"`
	Feat               []domain.SegmentFeatures  `json:"feat"`
	Regions            []domain.FeatureRegion    `json:"regions,omitempty"`
	NumberingSchemes   map[string]string         `json:"numbering_schemes"`
}

// MatchInput selects candidates and scoring parameters.
type MatchInput struct {
	EntryNames []string
	// Cutoff is a fraction in [0,1]; nil uses the configured default.
	Cutoff            *float64
	Mode              string
	Family            string
	FilteringParticle string
}

// MatchResult is the match report.
type MatchResult struct {
	Mode              domain.MatchMode                    `json:"mode"`
	Cutoff            float64                             `json:"cutoff"`
	ReferenceFamily   string                              `json:"reference_family"`
	FamilyConsensus   float64                             `json:"family_consensus"`
	Proteins          []domain.ProteinScore               `json:"proteins"`
	ScoresPos         map[string][]domain.ResidueScore    `json:"scores_pos"`
	ProteinSignatures map[string][]domain.ObservedResidue `json:"protein_signatures"`
	SignaturesPos     []domain.PositionFeatures           `json:"signatures_pos"`
	Consensus         []domain.ConsensusPosition          `json:"signature_consensus"`
	RelevantSegments  []string                            `json:"relevant_segments"`
	RelevantGN        []domain.SegmentSpec                `json:"relevant_gn"`
	Schemes           map[string]string                   `json:"schemes"`
	FilteringParticle string                              `json:"filtering_particle,omitempty"`
}

type serviceImpl struct {
	receptors domain.ReceptorRepository
	sessions  domain.SessionStore
	cfg       config.SignatureConfig
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// NewService wires the signature use cases. metrics may be nil.
func NewService(receptors domain.ReceptorRepository, sessions domain.SessionStore, cfg config.SignatureConfig, logger logging.Logger, metrics *prometheus.AppMetrics) Service {
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &serviceImpl{
		receptors: receptors,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger.Named("signature"),
		metrics:   metrics,
	}
}

func (s *serviceImpl) Compute(ctx context.Context, sessionID string, input *ComputeInput) (res *ComputeResult, err error) {
	start := time.Now()
	kind := "onesided"
	if len(input.ReferenceEntryNames) > 0 {
		kind = "differential"
	}
	defer func() {
		positions := 0
		if res != nil {
			positions = res.Positions
		}
		s.metrics.RecordSignature(kind, positions, time.Since(start), err)
	}()

	if sessionID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "session id required")
	}
	setA := common.NormalizeEntryNames(input.EntryNames)
	setB := common.NormalizeEntryNames(input.ReferenceEntryNames)
	if len(setA) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "at least one entry name is required")
	}
	if err := s.checkLimit(len(setA) + len(setB)); err != nil {
		return nil, err
	}
	scheme, err := domain.LookupScheme(s.cfg.FeatureScheme)
	if err != nil {
		return nil, err
	}

	segments, err := s.segments(ctx, input)
	if err != nil {
		return nil, err
	}
	seqA, err := s.receptors.FindSequences(ctx, setA, s.cfg.NumberingScheme)
	if err != nil {
		return nil, err
	}
	alignA := domain.Build(segments, seqA, domain.IgnoreMap(input.Ignore), domain.WithScheme(scheme))

	var sig *domain.Signature
	var alignB *domain.Alignment
	if kind == "onesided" {
		sig = domain.ComputeOneSided(alignA)
	} else {
		seqB, err := s.receptors.FindSequences(ctx, setB, s.cfg.NumberingScheme)
		if err != nil {
			return nil, err
		}
		alignB = domain.Build(segments, seqB, domain.IgnoreMap(input.Ignore), domain.WithScheme(scheme))
		sig = domain.Compute(alignA, alignB)
	}

	if err := s.sessions.SaveSignature(ctx, sessionID, sig.PrepareSessionData()); err != nil {
		return nil, err
	}

	res = &ComputeResult{
		OneSided:         sig.OneSided(),
		Receptors:        alignA.Receptors(),
		Segments:         sig.SegmentNames(),
		Positions:        sig.Len(),
		FeatUngrouped:    sig.Features(),
		Feat:             sig.GroupFeatures(),
		NumberingSchemes: sig.NumberingSchemes(),
	}
	if alignB != nil {
		res.ReferenceReceptors = alignB.Receptors()
	} else {
		res.Regions = sig.PrepareDisplayDataOneSided()
	}
	s.logger.Info("Signature computed",
		logging.String("kind", kind),
		logging.Int("receptors", len(res.Receptors)),
		logging.Int("reference_receptors", len(res.ReferenceReceptors)),
		logging.Int("positions", res.Positions))
	return res, nil
}

func (s *serviceImpl) segments(ctx context.Context, input *ComputeInput) ([]domain.SegmentSpec, error) {
	switch {
	case input.AllPositions:
		return s.receptors.DefaultSegments(ctx, s.cfg.NumberingScheme)
	case len(input.Segments) > 0:
		names := make([]string, 0, len(input.Segments))
		for _, n := range input.Segments {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		segs, err := s.receptors.ResolveSegments(ctx, names, s.cfg.NumberingScheme)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			return nil, errors.New(errors.ErrCodeValidation, "no known segment or position selected").
				WithDetail(strings.Join(names, ","))
		}
		return segs, nil
	default:
		return nil, nil
	}
}

func (s *serviceImpl) checkLimit(n int) error {
	if s.cfg.MaxReceptors > 0 && n > s.cfg.MaxReceptors {
		return errors.New(errors.ErrCodeValidation, "too many receptors").
			WithDetail(fmt.Sprintf("%d > %d", n, s.cfg.MaxReceptors))
	}
	return nil
}

func (s *serviceImpl) Match(ctx context.Context, sessionID string, input *MatchInput) (res *MatchResult, err error) {
	start := time.Now()
	mode, err := domain.ParseMatchMode(orString(input.Mode, s.cfg.DefaultMode))
	if err != nil {
		return nil, err
	}
	candidates := common.NormalizeEntryNames(input.EntryNames)
	defer func() {
		s.metrics.RecordMatch(string(mode), len(candidates), time.Since(start), err)
	}()

	if sessionID == "" {
		return nil, errors.New(errors.ErrCodeNoSignature, "no signature in session")
	}
	if len(candidates) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "at least one candidate entry name is required")
	}
	if err := s.checkLimit(len(candidates)); err != nil {
		return nil, err
	}
	cutoff := s.cfg.DefaultCutoff
	if input.Cutoff != nil {
		cutoff = *input.Cutoff
	}

	bundle, err := s.sessions.LoadSignature(ctx, sessionID)
	s.metrics.RecordSessionLookup(err == nil)
	if err != nil {
		return nil, err
	}
	sig, err := bundle.Signature()
	if err != nil {
		return nil, err
	}

	seqs, err := s.receptors.FindSequences(ctx, candidates, s.cfg.NumberingScheme)
	if err != nil {
		return nil, err
	}
	m, err := domain.NewMatcher(sig, seqs, cutoff)
	if err != nil {
		return nil, err
	}
	if err := m.ScoreProteinClass(strings.TrimSpace(input.Family), mode); err != nil {
		return nil, err
	}

	params := domain.MatchParams{
		EntryNames:        candidates,
		Cutoff:            cutoff,
		Mode:              mode,
		FilteringParticle: input.FilteringParticle,
	}
	if err := s.sessions.SaveMatchParams(ctx, sessionID, params); err != nil {
		return nil, err
	}

	res = &MatchResult{
		Mode:              m.Mode(),
		Cutoff:            m.Cutoff(),
		ReferenceFamily:   m.ReferenceFamily(),
		FamilyConsensus:   m.FamilyConsensus(),
		Proteins:          m.ProteinReport(),
		ScoresPos:         m.ScoresPos(),
		ProteinSignatures: m.ProteinSignatures(),
		SignaturesPos:     m.SignaturesPos(),
		Consensus:         m.SignatureConsensus(),
		RelevantSegments:  m.RelevantSegments(),
		RelevantGN:        m.RelevantGN(),
		Schemes:           m.Schemes(),
		FilteringParticle: input.FilteringParticle,
	}
	s.logger.Info("Signature matched",
		logging.String("mode", string(mode)),
		logging.Float64("cutoff", cutoff),
		logging.Int("candidates", len(seqs)),
		logging.Int("relevant_positions", len(res.Consensus)))
	return res, nil
}

// LastMatch returns the parameters of the previous match, nil when the
// session has none.
func (s *serviceImpl) LastMatch(ctx context.Context, sessionID string) (*domain.MatchParams, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.sessions.LoadMatchParams(ctx, sessionID)
}

func orString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
