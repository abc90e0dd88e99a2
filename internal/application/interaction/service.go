// Package interaction serves receptor–transducer interaction data and builds
// it from complex structures.
package interaction

import (
	"context"
	"time"

	domain "github.com/protwis/signprot/internal/domain/interaction"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
	"github.com/protwis/signprot/pkg/types/common"
)

// MatrixCachePrefix prefixes every cached matrix key. The builder drops all
// keys under it after writing new pairs.
const MatrixCachePrefix = "matrix:"

const defaultMatrixTTL = time.Hour

// Cache is the part of the shared cache the interaction use cases need.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Service is the read side of the interaction catalog.
type Service interface {
	Interactions(ctx context.Context, input *InteractionsInput) (*InteractionsResult, error)
	Matrix(ctx context.Context, database string) (*MatrixResult, error)
}

// InteractionsInput selects complexes by PDB code and the transducer type
// whose chain is the signal side.
type InteractionsInput struct {
	PDBCodes []string
	Effector string
}

type InteractionsResult struct {
	RemainingResidues []domain.RemainingResidue `json:"remaining_residues"`
	Interactions      []domain.Record           `json:"interactions"`
}

// MatrixResult is the segment-by-segment overview of every complex of one
// transducer database.
type MatrixResult struct {
	Database  domain.Database  `json:"database"`
	Complexes []domain.Complex `json:"complexes"`
	Matrix    domain.Matrix    `json:"matrix"`
}

type serviceImpl struct {
	repo      domain.Repository
	cache     Cache
	matrixTTL time.Duration
	logger    logging.Logger
}

// Option configures the service.
type Option func(*serviceImpl)

// WithCache caches matrices. Without it every request hits the catalog.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.cache = c
		if ttl > 0 {
			s.matrixTTL = ttl
		}
	}
}

func NewService(repo domain.Repository, logger logging.Logger, opts ...Option) Service {
	s := &serviceImpl{
		repo:      repo,
		matrixTTL: defaultMatrixTTL,
		logger:    logger.Named("interaction"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *serviceImpl) Interactions(ctx context.Context, input *InteractionsInput) (*InteractionsResult, error) {
	effector, err := domain.ParseEffector(input.Effector)
	if err != nil {
		return nil, err
	}
	codes := common.NormalizeEntryNames(input.PDBCodes)
	if len(codes) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "at least one pdb code is required")
	}

	confs, records, err := s.collect(ctx, codes, effector)
	if err != nil {
		return nil, err
	}
	remaining := []domain.RemainingResidue{}
	if len(confs) > 0 {
		rows, err := s.repo.RemainingResidues(ctx, confs)
		if err != nil {
			return nil, err
		}
		remaining = domain.FilterRemaining(rows)
	}

	s.logger.Debug("Interactions collected",
		logging.Strings("pdb_codes", codes),
		logging.Int("records", len(records)),
		logging.Int("remaining", len(remaining)))
	return &InteractionsResult{RemainingResidues: remaining, Interactions: records}, nil
}

// collect resolves the signal chains of the complexes and gathers their
// receptor–signal pairs. Complexes without a catalogued signal chain yield
// no records.
func (s *serviceImpl) collect(ctx context.Context, codes []string, effector domain.Effector) ([]int64, []domain.Record, error) {
	signalNames := make([]string, 0, len(codes))
	for _, c := range codes {
		name, err := domain.ComplexEntryName(c, effector)
		if err != nil {
			return nil, nil, err
		}
		signalNames = append(signalNames, name)
	}

	signalConfs, err := s.repo.ConformationIDs(ctx, signalNames)
	if err != nil {
		return nil, nil, err
	}
	if len(signalConfs) == 0 {
		return nil, []domain.Record{}, nil
	}
	signal, err := s.repo.ResidueIDs(ctx, signalConfs)
	if err != nil {
		return nil, nil, err
	}
	structures, err := s.repo.ComplexStructureIDs(ctx, codes)
	if err != nil {
		return nil, nil, err
	}
	if len(structures) == 0 || len(signal) == 0 {
		return nil, []domain.Record{}, nil
	}
	rows, err := s.repo.PairRows(ctx, structures, signal)
	if err != nil {
		return nil, nil, err
	}
	confs, records := domain.Collect(rows, signal)
	if records == nil {
		records = []domain.Record{}
	}
	return confs, records, nil
}

func (s *serviceImpl) Matrix(ctx context.Context, database string) (*MatrixResult, error) {
	db, err := domain.ParseDatabase(database)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return s.buildMatrix(ctx, db)
	}

	var out MatrixResult
	err = s.cache.GetOrSet(ctx, MatrixCachePrefix+string(db), &out, s.matrixTTL, func(ctx context.Context) (interface{}, error) {
		return s.buildMatrix(ctx, db)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *serviceImpl) buildMatrix(ctx context.Context, db domain.Database) (*MatrixResult, error) {
	complexes, err := s.repo.Complexes(ctx)
	if err != nil {
		return nil, err
	}
	segments, err := s.repo.TransducerSegments(ctx, db.SegmentFamily())
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(complexes))
	for _, c := range complexes {
		codes = append(codes, c.PDBID)
	}
	codes = common.NormalizeEntryNames(codes)
	records := []domain.Record{}
	if len(codes) > 0 {
		if _, records, err = s.collect(ctx, codes, db.Effector()); err != nil {
			return nil, err
		}
	}
	if complexes == nil {
		complexes = []domain.Complex{}
	}

	s.logger.Info("Interaction matrix built",
		logging.String("database", string(db)),
		logging.Int("complexes", len(complexes)),
		logging.Int("records", len(records)))
	return &MatrixResult{
		Database:  db,
		Complexes: complexes,
		Matrix:    domain.BuildMatrix(records, segments),
	}, nil
}
