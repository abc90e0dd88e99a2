package signature

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/protwis/signprot/internal/config"
	domain "github.com/protwis/signprot/internal/domain/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

type MockReceptorRepository struct {
	mock.Mock
}

func (m *MockReceptorRepository) FindSequences(ctx context.Context, entryNames []string, scheme string) ([]domain.ReceptorSequence, error) {
	args := m.Called(ctx, entryNames, scheme)
	return args.Get(0).([]domain.ReceptorSequence), args.Error(1)
}

func (m *MockReceptorRepository) DefaultSegments(ctx context.Context, scheme string) ([]domain.SegmentSpec, error) {
	args := m.Called(ctx, scheme)
	return args.Get(0).([]domain.SegmentSpec), args.Error(1)
}

func (m *MockReceptorRepository) ResolveSegments(ctx context.Context, names []string, scheme string) ([]domain.SegmentSpec, error) {
	args := m.Called(ctx, names, scheme)
	return args.Get(0).([]domain.SegmentSpec), args.Error(1)
}

// memSessions is an in-memory session store with the same miss semantics as
// the Redis store.
type memSessions struct {
	mu      sync.Mutex
	bundles map[string][]byte
	params  map[string]domain.MatchParams
}

func newMemSessions() *memSessions {
	return &memSessions{bundles: map[string][]byte{}, params: map[string]domain.MatchParams{}}
}

func (m *memSessions) SaveSignature(ctx context.Context, id string, b *domain.Bundle) error {
	raw, err := b.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[id] = raw
	return nil
}

func (m *memSessions) LoadSignature(ctx context.Context, id string) (*domain.Bundle, error) {
	m.mu.Lock()
	raw, ok := m.bundles[id]
	m.mu.Unlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeNoSignature, "no signature in session")
	}
	return domain.DecodeBundle(raw)
}

func (m *memSessions) SaveMatchParams(ctx context.Context, id string, p domain.MatchParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params[id] = p
	return nil
}

func (m *memSessions) LoadMatchParams(ctx context.Context, id string) (*domain.MatchParams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.params[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func receptor(entry, family string, residues ...domain.Residue) domain.ReceptorSequence {
	return domain.ReceptorSequence{
		EntryName:       entry,
		Name:            entry,
		Family:          family,
		Species:         "Homo sapiens",
		NumberingScheme: domain.NumberingScheme{Slug: "gpcrdba", Name: "GPCRdb(A)"},
		Residues:        residues,
	}
}

func tm3(label string, aa byte) domain.Residue {
	return domain.Residue{Label: label, Segment: "TM3", AminoAcid: aa}
}

var (
	adrb2 = receptor("adrb2_human", "001_001_001_002", tm3("3.50x50", 'R'), tm3("3.51x51", 'L'))
	adrb1 = receptor("adrb1_human", "001_001_001_001", tm3("3.50x50", 'R'), tm3("3.51x51", 'V'))
	glp1r = receptor("glp1r_human", "002_001_001_001", tm3("3.50x50", 'E'), tm3("3.51x51", 'L'))
)

func testConfig() config.SignatureConfig {
	return config.SignatureConfig{
		NumberingScheme: "gpcrdba",
		FeatureScheme:   "default",
		DefaultCutoff:   0.4,
		DefaultMode:     "differential",
		MaxReceptors:    10,
	}
}

func newTestService(repo *MockReceptorRepository, sessions domain.SessionStore) Service {
	return NewService(repo, sessions, testConfig(), logging.NewNopLogger(), nil)
}

func ptr(f float64) *float64 { return &f }

func TestCompute_OneSided(t *testing.T) {
	repo := new(MockReceptorRepository)
	sessions := newMemSessions()
	svc := newTestService(repo, sessions)
	ctx := context.Background()

	repo.On("FindSequences", ctx, []string{"adrb2_human", "adrb1_human"}, "gpcrdba").
		Return([]domain.ReceptorSequence{adrb2, adrb1}, nil)

	res, err := svc.Compute(ctx, "s1", &ComputeInput{EntryNames: []string{" ADRB2_human", "adrb1_human", "adrb2_human"}})
	require.NoError(t, err)
	assert.True(t, res.OneSided)
	assert.Equal(t, []string{"adrb1_human", "adrb2_human"}, res.Receptors)
	assert.Equal(t, []string{"TM3"}, res.Segments)
	assert.Equal(t, 2, res.Positions)
	assert.Len(t, res.FeatUngrouped, 2)
	assert.NotNil(t, res.Regions)
	assert.Contains(t, sessions.bundles, "s1")
	repo.AssertExpectations(t)
}

func TestCompute_DifferentialWithSegments(t *testing.T) {
	repo := new(MockReceptorRepository)
	svc := newTestService(repo, newMemSessions())
	ctx := context.Background()

	segs := []domain.SegmentSpec{{Name: "TM3", Positions: []string{"3.50x50", "3.51x51"}}}
	repo.On("ResolveSegments", ctx, []string{"TM3"}, "gpcrdba").Return(segs, nil)
	repo.On("FindSequences", ctx, []string{"adrb2_human"}, "gpcrdba").Return([]domain.ReceptorSequence{adrb2}, nil)
	repo.On("FindSequences", ctx, []string{"glp1r_human"}, "gpcrdba").Return([]domain.ReceptorSequence{glp1r}, nil)

	res, err := svc.Compute(ctx, "s1", &ComputeInput{
		EntryNames:          []string{"adrb2_human"},
		ReferenceEntryNames: []string{"glp1r_human"},
		Segments:            []string{" TM3 ", ""},
	})
	require.NoError(t, err)
	assert.False(t, res.OneSided)
	assert.Equal(t, []string{"glp1r_human"}, res.ReferenceReceptors)
	assert.Nil(t, res.Regions)
	require.Len(t, res.FeatUngrouped, 2)
	// positive and negative tie at 3.50x50; the earlier feature wins
	assert.Equal(t, domain.FeatureNegative, res.FeatUngrouped[0].Dominant)
	assert.Equal(t, -1.0, res.FeatUngrouped[0].DominantValue)
	repo.AssertExpectations(t)
}

func TestCompute_AllPositions(t *testing.T) {
	repo := new(MockReceptorRepository)
	svc := newTestService(repo, newMemSessions())
	ctx := context.Background()

	repo.On("DefaultSegments", ctx, "gpcrdba").
		Return([]domain.SegmentSpec{{Name: "TM3", Positions: []string{"3.50x50"}}}, nil)
	repo.On("FindSequences", ctx, []string{"adrb2_human"}, "gpcrdba").Return([]domain.ReceptorSequence{adrb2}, nil)

	res, err := svc.Compute(ctx, "s1", &ComputeInput{EntryNames: []string{"adrb2_human"}, AllPositions: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Positions)
}

func TestCompute_Validation(t *testing.T) {
	repo := new(MockReceptorRepository)
	svc := newTestService(repo, newMemSessions())
	ctx := context.Background()

	_, err := svc.Compute(ctx, "s1", &ComputeInput{EntryNames: []string{" "}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	many := make([]string, 11)
	for i := range many {
		many[i] = string(rune('a'+i)) + "_human"
	}
	_, err = svc.Compute(ctx, "s1", &ComputeInput{EntryNames: many})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	repo.On("ResolveSegments", ctx, []string{"nope"}, "gpcrdba").Return([]domain.SegmentSpec{}, nil)
	_, err = svc.Compute(ctx, "s1", &ComputeInput{EntryNames: []string{"adrb2_human"}, Segments: []string{"nope"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = svc.Compute(ctx, "", &ComputeInput{EntryNames: []string{"adrb2_human"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestMatch_WithoutSignature(t *testing.T) {
	repo := new(MockReceptorRepository)
	svc := newTestService(repo, newMemSessions())

	_, err := svc.Match(context.Background(), "fresh", &MatchInput{EntryNames: []string{"adrb2_human"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoSignature))
	repo.AssertNotCalled(t, "FindSequences", mock.Anything, mock.Anything, mock.Anything)
}

func TestComputeThenMatch(t *testing.T) {
	repo := new(MockReceptorRepository)
	sessions := newMemSessions()
	svc := newTestService(repo, sessions)
	ctx := context.Background()

	repo.On("FindSequences", ctx, []string{"adrb2_human", "adrb1_human"}, "gpcrdba").
		Return([]domain.ReceptorSequence{adrb2, adrb1}, nil)
	repo.On("FindSequences", ctx, []string{"glp1r_human"}, "gpcrdba").
		Return([]domain.ReceptorSequence{glp1r}, nil)
	repo.On("FindSequences", ctx, []string{"glp1r_human", "adrb2_human", "adrb1_human"}, "gpcrdba").
		Return([]domain.ReceptorSequence{glp1r, adrb2, adrb1}, nil)

	_, err := svc.Compute(ctx, "s1", &ComputeInput{
		EntryNames:          []string{"adrb2_human", "adrb1_human"},
		ReferenceEntryNames: []string{"glp1r_human"},
	})
	require.NoError(t, err)

	res, err := svc.Match(ctx, "s1", &MatchInput{
		EntryNames:        []string{"glp1r_human", "adrb2_human", "adrb1_human"},
		Cutoff:            ptr(0.5),
		FilteringParticle: "Gs",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchDifferential, res.Mode)
	assert.Equal(t, 0.5, res.Cutoff)
	assert.Equal(t, "001", res.ReferenceFamily)
	assert.Equal(t, "Gs", res.FilteringParticle)
	require.Len(t, res.Proteins, 3)
	assert.Equal(t, "glp1r_human", res.Proteins[2].EntryName)
	assert.GreaterOrEqual(t, res.Proteins[0].Score, res.Proteins[1].Score)

	params, err := svc.LastMatch(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, params)
	assert.Equal(t, 0.5, params.Cutoff)
	assert.Equal(t, "Gs", params.FilteringParticle)

	none, err := svc.LastMatch(ctx, "other")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestMatch_InvalidParameters(t *testing.T) {
	repo := new(MockReceptorRepository)
	sessions := newMemSessions()
	svc := newTestService(repo, sessions)
	ctx := context.Background()

	_, err := svc.Match(ctx, "s1", &MatchInput{EntryNames: []string{"adrb2_human"}, Mode: "sideways"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMatchMode))

	repo.On("FindSequences", ctx, []string{"adrb2_human"}, "gpcrdba").Return([]domain.ReceptorSequence{adrb2}, nil)
	_, err = svc.Compute(ctx, "s1", &ComputeInput{EntryNames: []string{"adrb2_human"}})
	require.NoError(t, err)

	_, err = svc.Match(ctx, "s1", &MatchInput{EntryNames: []string{"adrb2_human"}, Cutoff: ptr(1.5)})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCutoff))
}
