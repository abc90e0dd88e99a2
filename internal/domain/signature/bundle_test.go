package signature

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protwis/signprot/pkg/errors"
)

func sampleSignature() *Signature {
	segments := []SegmentSpec{
		seg("TM3", "3.49x49", "3.50x50", "3.51x51"),
		seg("TM6", "6.30x30", "6.33x33"),
	}
	a := Build(segments, []ReceptorSequence{
		rec("a1", "001_001", "3.49x49:D", "3.50x50:R", "3.51x51:Y", "6.30x30:E", "6.33x33:A"),
		rec("a2", "001_001", "3.49x49:E", "3.50x50:R", "3.51x51:V", "6.30x30:E", "6.33x33:T"),
		rec("a3", "001_002", "3.49x49:D", "3.50x50:R", "3.51x51:Y", "6.30x30:K"),
	}, nil)
	b := Build(segments, []ReceptorSequence{
		rec("b1", "004_001", "3.49x49:S", "3.50x50:R", "3.51x51:L", "6.30x30:Q", "6.33x33:A"),
		rec("b2", "004_001", "3.49x49:N", "3.50x50:H", "3.51x51:I", "6.33x33:G"),
	}, nil)
	return Compute(a, b)
}

func TestBundle_RoundTripPreservesSignature(t *testing.T) {
	sig := sampleSignature()
	raw, err := sig.PrepareSessionData().Encode()
	require.NoError(t, err)

	back, err := LoadSignature(raw)
	require.NoError(t, err)

	assert.Equal(t, sig.Segments(), back.Segments())
	assert.Equal(t, sig.NumberingSchemes(), back.NumberingSchemes())
	assert.Equal(t, sig.Scheme().Groups(), back.Scheme().Groups())
	want := sig.Positions()
	got := back.Positions()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Diffs, got[i].Diffs, want[i].Label)
		assert.Equal(t, want[i].Dominant, got[i].Dominant, want[i].Label)
		assert.Equal(t, want[i].DominantDiff, got[i].DominantDiff, want[i].Label)
		assert.Equal(t, want[i].ContributorsA, got[i].ContributorsA, want[i].Label)
		assert.Equal(t, want[i].ContributorsB, got[i].ContributorsB, want[i].Label)
	}
}

func TestBundle_RoundTripMatchScoresIdentical(t *testing.T) {
	sig := sampleSignature()
	candidates := []ReceptorSequence{
		rec("c1", "001_003", "3.49x49:D", "3.50x50:R", "3.51x51:Y", "6.30x30:E", "6.33x33:A"),
		rec("c2", "004_002", "3.49x49:S", "3.50x50:K", "3.51x51:L"),
		rec("c3", "001_004", "3.49x49:E", "6.30x30:Q"),
		rec("c4", "001_001"),
	}
	raw, err := sig.PrepareSessionData().Encode()
	require.NoError(t, err)
	back, err := LoadSignature(raw)
	require.NoError(t, err)

	for _, mode := range []MatchMode{MatchDifferential, MatchOneSided} {
		for _, cutoff := range []float64{0, 0.3, 0.5, 1} {
			direct, err := NewMatcher(sig, candidates, cutoff)
			require.NoError(t, err)
			require.NoError(t, direct.ScoreProteinClass("", mode))

			rebuilt, err := NewMatcher(back, candidates, cutoff)
			require.NoError(t, err)
			require.NoError(t, rebuilt.ScoreProteinClass("", mode))

			assert.Equal(t, direct.ProteinReport(), rebuilt.ProteinReport(), "mode=%s cutoff=%v", mode, cutoff)
			assert.Equal(t, direct.ScoresPos(), rebuilt.ScoresPos())
			assert.Equal(t, direct.SignatureConsensus(), rebuilt.SignatureConsensus())
			assert.Equal(t, direct.FamilyConsensus(), rebuilt.FamilyConsensus())
		}
	}
}

func TestBundle_Fields(t *testing.T) {
	b := sampleSignature().PrepareSessionData()
	assert.Equal(t, BundleSchemaVersion, b.SchemaVersion)
	assert.False(t, b.OneSided)
	assert.Equal(t, DefaultSchemeName, b.FeatureScheme.Name)
	assert.Equal(t, []string{"TM3", "TM6"}, b.CommonSegments)
	assert.Equal(t, []string{"6.30x30", "6.33x33"}, b.CommonPositions["TM6"])
	assert.Len(t, b.DiffMatrix["3.50x50"], DefaultScheme().Len())
	assert.Equal(t, [2]int{3, 2}, b.Contributors["3.50x50"])
	assert.Equal(t, [2]int{2, 2}, b.Contributors["6.33x33"])
}

func TestDecodeBundle_RejectsStaleSchema(t *testing.T) {
	b := sampleSignature().PrepareSessionData()
	b.SchemaVersion = 0
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	_, err = DecodeBundle(raw)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))

	_, err = DecodeBundle([]byte(`{"common_positions": {"TM3": ["3.50x50"]}}`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))

	_, err = DecodeBundle([]byte(`not json`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))
}

func TestBundle_SignatureRejectsInconsistentPayload(t *testing.T) {
	b := sampleSignature().PrepareSessionData()
	b.DiffMatrix["3.50x50"] = []float64{1}
	_, err := b.Signature()
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))

	b = sampleSignature().PrepareSessionData()
	delete(b.DiffMatrix, "6.30x30")
	_, err = b.Signature()
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))

	b = sampleSignature().PrepareSessionData()
	b.FeatureScheme.Groups = nil
	_, err = b.Signature()
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))
}

func TestBundle_CustomSchemeTravelsWithPayload(t *testing.T) {
	segments := []SegmentSpec{seg("TM3", "3.50x50")}
	a := Build(segments, []ReceptorSequence{rec("a1", "001", "3.50x50:L")}, nil, WithScheme(hydroNegScheme))
	raw, err := ComputeOneSided(a).PrepareSessionData().Encode()
	require.NoError(t, err)

	back, err := LoadSignature(raw)
	require.NoError(t, err)
	assert.True(t, back.OneSided())
	assert.Equal(t, "test", back.Scheme().Name())
	assert.Equal(t, []Feature{FeatureHydrophobic, FeatureNegative}, back.Scheme().Features())
}
