package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_ExampleScenario(t *testing.T) {
	segments := []SegmentSpec{seg("TM3", "3.50x50")}
	a := Build(segments, []ReceptorSequence{
		rec("receptor1", "001", "3.50x50:L"),
		rec("receptor2", "001", "3.50x50:I"),
	}, nil, WithScheme(hydroNegScheme))
	b := Build(segments, []ReceptorSequence{
		rec("receptor3", "001", "3.50x50:D"),
	}, nil, WithScheme(hydroNegScheme))

	sig := Compute(a, b)
	require.Equal(t, 1, sig.Len())
	assert.Equal(t, 1.0, sig.Diff("3.50x50", FeatureHydrophobic))
	assert.Equal(t, -1.0, sig.Diff("3.50x50", FeatureNegative))

	p, ok := sig.Position("3.50x50")
	require.True(t, ok)
	assert.Equal(t, FeatureHydrophobic, p.Dominant)
	assert.Equal(t, 1.0, p.DominantDiff)
	assert.Equal(t, 2, p.ContributorsA)
	assert.Equal(t, 1, p.ContributorsB)
	assert.False(t, sig.OneSided())
}

func TestCompute_TieBreakPrefersEarlierFeature(t *testing.T) {
	segments := []SegmentSpec{seg("TM3", "3.50x50")}
	// hydrophobic: 1/2 - 0 = 0.5, negative: 0 - 1/2 = -0.5
	a := Build(segments, []ReceptorSequence{
		rec("a1", "001", "3.50x50:L"),
		rec("a2", "001", "3.50x50:K"),
	}, nil)
	b := Build(segments, []ReceptorSequence{
		rec("b1", "001", "3.50x50:D"),
		rec("b2", "001", "3.50x50:K"),
	}, nil)
	for i := 0; i < 10; i++ {
		p, _ := Compute(a, b).Position("3.50x50")
		assert.Equal(t, FeatureHydrophobic, p.Dominant)
		assert.Equal(t, 0.5, p.DominantDiff)
	}

	// Swapping sides flips signs but the tie still resolves to hydrophobic.
	p, _ := Compute(b, a).Position("3.50x50")
	assert.Equal(t, FeatureHydrophobic, p.Dominant)
	assert.Equal(t, -0.5, p.DominantDiff)
}

func TestCompute_MissingSideCountsAsZero(t *testing.T) {
	segments := []SegmentSpec{seg("TM3", "3.50x50")}
	a := Build(segments, []ReceptorSequence{rec("a1", "001", "3.50x50:W")}, nil)
	b := Build(segments, []ReceptorSequence{rec("b1", "001", "3.49x49:W")}, nil)

	p, ok := Compute(a, b).Position("3.50x50")
	require.True(t, ok)
	assert.Equal(t, 0, p.ContributorsB)
	assert.Equal(t, 1.0, p.Diffs[1])
	assert.Equal(t, FeatureAromatic, p.Dominant)
}

func TestCompute_OnlyPositionsInBothScopes(t *testing.T) {
	a := Build([]SegmentSpec{seg("TM3", "3.49x49", "3.50x50")}, nil, nil)
	b := Build([]SegmentSpec{seg("TM3", "3.50x50", "3.51x51")}, nil, nil)
	sig := Compute(a, b)
	assert.Equal(t, []SegmentSpec{{Name: "TM3", Positions: []string{"3.50x50"}}}, sig.Segments())
	assert.Equal(t, []string{"TM3"}, sig.SegmentNames())
}

func TestCompute_NoDominantWithoutData(t *testing.T) {
	segments := []SegmentSpec{seg("TM3", "3.50x50")}
	sig := Compute(Build(segments, nil, nil), Build(segments, nil, nil))
	p, ok := sig.Position("3.50x50")
	require.True(t, ok)
	assert.False(t, p.HasDominant())

	same := []ReceptorSequence{rec("a1", "001", "3.50x50:L")}
	p, _ = Compute(Build(segments, same, nil), Build(segments, same, nil)).Position("3.50x50")
	assert.False(t, p.HasDominant())
}

func TestComputeOneSided(t *testing.T) {
	segments := []SegmentSpec{seg("TM3", "3.50x50", "3.51x51")}
	a := Build(segments, []ReceptorSequence{
		rec("a1", "001", "3.50x50:L", "3.51x51:R"),
		rec("a2", "001", "3.50x50:L", "3.51x51:-"),
		rec("a3", "001", "3.50x50:D"),
		rec("a4", "001", "3.50x50:Y"),
	}, nil)
	sig := ComputeOneSided(a)
	assert.True(t, sig.OneSided())

	p, _ := sig.Position("3.50x50")
	assert.Equal(t, FeatureHydrophobic, p.Dominant)
	assert.Equal(t, 0.5, p.DominantDiff)
	assert.Equal(t, 0.25, sig.Diff("3.50x50", FeatureNegative))
	assert.Equal(t, "L", p.ConsensusAA)
	assert.Equal(t, 0.5, p.ConsensusFreq)

	p, _ = sig.Position("3.51x51")
	assert.Equal(t, FeaturePositive, p.Dominant)
	assert.Equal(t, 1.0, p.DominantDiff)
	assert.Equal(t, 1, p.ContributorsA)
}

func TestSignature_AccessorsReturnCopies(t *testing.T) {
	segments := []SegmentSpec{seg("TM3", "3.50x50")}
	sig := ComputeOneSided(Build(segments, []ReceptorSequence{rec("a1", "001", "3.50x50:L")}, nil))

	ps := sig.Positions()
	ps[0].Diffs[0] = 42
	assert.Equal(t, 1.0, sig.Diff("3.50x50", FeatureHydrophobic))

	segs := sig.Segments()
	segs[0].Positions[0] = "x"
	assert.Equal(t, "3.50x50", sig.Segments()[0].Positions[0])
	assert.Equal(t, map[string]string{"gpcrdba": "GPCRdb(A)"}, sig.NumberingSchemes())
	assert.Equal(t, 0.0, sig.Diff("unknown", FeatureHydrophobic))
}
