//go:build integration

package repositories_test

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/domain/interaction"
	"github.com/protwis/signprot/internal/infrastructure/database/postgres"
	"github.com/protwis/signprot/internal/infrastructure/database/postgres/repositories"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
)

// startCatalog launches PostgreSQL 16, applies the catalog migrations and
// seeds one complex.
func startCatalog(t *testing.T) (config.PostgresConfig, *postgres.Connection) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "protwis_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	cfg := config.PostgresConfig{
		Host: host, Port: portNum, User: "test", Password: "test", DBName: "protwis_test", SSLMode: "disable",
	}
	var conn *postgres.Connection
	require.Eventually(t, func() bool {
		conn, err = postgres.NewConnection(cfg, logging.NewNopLogger())
		return err == nil
	}, 30*time.Second, time.Second)
	t.Cleanup(func() { _ = conn.Close() })

	dir, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, conn.RunMigrations(dir))

	seed := `
	INSERT INTO residue_generic_numbering_scheme (id, slug, name) VALUES (1, 'gpcrdba', 'GPCRdb(A)'), (2, 'cgn', 'CGN');
	INSERT INTO protein_segment (id, slug, category, proteinfamily, position_order) VALUES
	    (1, 'TM3', 'helix', 'GPCR', 6), (2, 'ICL2', 'loop', 'GPCR', 7), (3, 'H5', 'helix', 'Alpha', 20);
	INSERT INTO residue_generic_number (id, label, scheme_id, protein_segment_id) VALUES
	    (1, '3x50', 1, 1), (2, '34x51', 1, 2), (3, 'G.H5.23', 2, 3);
	INSERT INTO protein (id, entry_name, name, family_slug, family_name, class_name, species, residue_numbering_scheme_id) VALUES
	    (1, 'adrb2_human', 'β2', '001_001_003_008', 'Adrenoceptors', 'Class A', 'Homo sapiens', 1),
	    (2, '3sn6_a', 'Gs', '100_001_001_001', 'Gs', 'Gs family', 'Homo sapiens', 2);
	INSERT INTO protein_conformation (id, protein_id) VALUES (70, 1), (80, 2);
	INSERT INTO residue (id, protein_conformation_id, sequence_number, amino_acid, protein_segment_id, generic_number_id) VALUES
	    (1, 70, 131, 'R', 1, 1), (2, 70, 139, 'F', 2, 2), (3, 70, 1, 'M', NULL, NULL),
	    (100, 80, 391, 'Y', 3, 3);
	INSERT INTO structure (id, pdb_code, protein_conformation_id) VALUES (7, '3SN6', 70);
	INSERT INTO signprot_complex (structure_id, protein_id, receptor_chain, signal_chain, signal_conformation_id) VALUES (7, 2, 'R', 'A', 80);
	`
	_, err = conn.DB().ExecContext(ctx, seed)
	require.NoError(t, err)
	return cfg, conn
}

func TestCatalog_ReceptorSequences(t *testing.T) {
	_, conn := startCatalog(t)
	repo := repositories.NewPostgresReceptorRepo(conn, logging.NewNopLogger())
	ctx := context.Background()

	seqs, err := repo.FindSequences(ctx, []string{"adrb2_human", "missing_human"}, "gpcrdba")
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	require.Len(t, seqs[0].Residues, 3)
	assert.Equal(t, "", seqs[0].Residues[0].Label)
	assert.Equal(t, "3x50", seqs[0].Residues[1].Label)

	segs, err := repo.DefaultSegments(ctx, "gpcrdba")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "TM3", segs[0].Name)

	resolved, err := repo.ResolveSegments(ctx, []string{"34x51"}, "gpcrdba")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "ICL2", resolved[0].Name)
}

func TestCatalog_WriteAndReadInteractions(t *testing.T) {
	cfg, conn := startCatalog(t)
	ctx := context.Background()
	log := logging.NewNopLogger()

	pool, err := postgres.NewPool(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	// the seed uses explicit ids
	_, err = pool.Exec(ctx, `SELECT setval('interacting_residue_pair_id_seq', 1000)`)
	require.NoError(t, err)

	writer := repositories.NewInteractionWriter(pool, log)
	pairs := []interaction.ComputedPair{
		{StructureID: 7, Res1ID: 1, Res2ID: 100, Types: []interaction.Type{interaction.TypeIonic, interaction.TypePolar}, Distance: 3},
		{StructureID: 7, Res1ID: 2, Res2ID: 100, Types: []interaction.Type{interaction.TypeHydrophobic}, Distance: 4.1},
	}
	n, err := writer.ReplaceStructurePairs(ctx, 7, pairs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// replacing is idempotent
	_, err = writer.ReplaceStructurePairs(ctx, 7, pairs)
	require.NoError(t, err)

	repo := repositories.NewPostgresInteractionRepo(conn, log)
	structures, err := repo.ComplexStructureIDs(ctx, []string{"3sn6"})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, structures)

	confs, err := repo.ConformationIDs(ctx, []string{"3sn6_a"})
	require.NoError(t, err)
	signal, err := repo.ResidueIDs(ctx, confs)
	require.NoError(t, err)

	rows, err := repo.PairRows(ctx, structures, signal)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	touched, records := interaction.Collect(rows, signal)
	assert.Equal(t, []int64{70}, touched)
	require.Len(t, records, 2)
	assert.Equal(t, []interaction.Type{interaction.TypeIonic, interaction.TypePolar}, records[0].Types)

	remaining, err := repo.RemainingResidues(ctx, touched)
	require.NoError(t, err)
	assert.Len(t, interaction.FilterRemaining(remaining), 2)

	complexes, err := repo.Complexes(ctx)
	require.NoError(t, err)
	require.Len(t, complexes, 1)
	assert.Equal(t, "Gs", complexes[0].Transducer)

	segs, err := repo.TransducerSegments(ctx, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, []interaction.SegmentRef{{ID: 3, Slug: "H5"}}, segs)

	build := repositories.NewPostgresBuildRepo(conn, log)
	cs, err := build.ListComplexStructures(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, int64(80), cs[0].SignalConformationID)
}
