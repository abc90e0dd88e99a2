package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protwis/signprot/internal/domain/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

func sampleBundle(t *testing.T) *signature.Bundle {
	t.Helper()
	receptor := func(entry, aa string) signature.ReceptorSequence {
		return signature.ReceptorSequence{
			EntryName:       entry,
			Family:          "001_001_001_001",
			NumberingScheme: signature.NumberingScheme{Slug: "gpcrdba", Name: "GPCRdb(A)"},
			Residues: []signature.Residue{
				{Label: "3x50", Segment: "TM3", AminoAcid: aa[0], SequenceNumber: 131},
			},
		}
	}
	segments := []signature.SegmentSpec{{Name: "TM3", Positions: []string{"3x50"}}}
	aln := signature.Build(segments, []signature.ReceptorSequence{receptor("a_human", "R"), receptor("b_human", "K")}, nil)
	return signature.ComputeOneSided(aln).PrepareSessionData()
}

func TestSessionStore_SignatureRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, logging.NewNopLogger(), WithSessionPrefix("t:"), WithSessionTTL(time.Hour))
	ctx := context.Background()
	bundle := sampleBundle(t)

	require.NoError(t, store.SaveSignature(ctx, "s1", bundle))
	assert.True(t, mr.Exists("t:s1:signature"))

	mr.FastForward(30 * time.Minute)
	got, err := store.LoadSignature(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, bundle, got)
	// reading slides the expiry back to the full ttl
	assert.Equal(t, time.Hour, mr.TTL("t:s1:signature"))
}

func TestSessionStore_NoSignature(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, logging.NewNopLogger())

	_, err := store.LoadSignature(context.Background(), "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoSignature))
}

func TestSessionStore_ExpiredSignature(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, logging.NewNopLogger(), WithSessionTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.SaveSignature(ctx, "s1", sampleBundle(t)))
	mr.FastForward(2 * time.Minute)

	_, err := store.LoadSignature(ctx, "s1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoSignature))
}

func TestSessionStore_StalePayload(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, logging.NewNopLogger(), WithSessionPrefix("t:"))

	require.NoError(t, mr.Set("t:s1:signature", `{"schema_version":0}`))
	_, err := store.LoadSignature(context.Background(), "s1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))

	require.NoError(t, mr.Set("t:s2:signature", `not json`))
	_, err = store.LoadSignature(context.Background(), "s2")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleSession))
}

func TestSessionStore_ConcurrentLoads(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, logging.NewNopLogger())
	ctx := context.Background()
	bundle := sampleBundle(t)
	require.NoError(t, store.SaveSignature(ctx, "s1", bundle))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.LoadSignature(ctx, "s1")
			assert.NoError(t, err)
			assert.Equal(t, bundle.CommonPositions, got.CommonPositions)
		}()
	}
	wg.Wait()
}

func TestSessionStore_LoadSurvivesCancelledCaller(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, logging.NewNopLogger(), WithSessionTTL(time.Hour))
	bundle := sampleBundle(t)
	require.NoError(t, store.SaveSignature(context.Background(), "s1", bundle))
	mr.FastForward(30 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := store.LoadSignature(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, bundle, got)
	assert.Equal(t, time.Hour, mr.TTL(store.key("s1", signatureSuffix)))
}

func TestSessionStore_MatchParams(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, logging.NewNopLogger())
	ctx := context.Background()

	got, err := store.LoadMatchParams(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	params := signature.MatchParams{
		EntryNames:        []string{"adrb2_human"},
		Cutoff:            0.3,
		Mode:              signature.MatchOneSided,
		FilteringParticle: "Gs",
	}
	require.NoError(t, store.SaveMatchParams(ctx, "s1", params))
	got, err = store.LoadMatchParams(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, &params, got)
}
