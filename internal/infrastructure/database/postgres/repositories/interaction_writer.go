package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/protwis/signprot/internal/domain/interaction"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

// txBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InteractionWriter replaces the computed pairs of a structure using COPY.
type InteractionWriter struct {
	db  txBeginner
	log logging.Logger
}

// NewInteractionWriter constructs a writer over a pgx pool.
func NewInteractionWriter(db txBeginner, log logging.Logger) *InteractionWriter {
	return &InteractionWriter{db: db, log: log}
}

var (
	pairColumns        = []string{"id", "referenced_structure_id", "res1_id", "res2_id", "distance"}
	interactionColumns = []string{"interacting_pair_id", "interaction_type"}
)

// ReplaceStructurePairs deletes the stored pairs of structureID, whose
// interactions cascade, and copies pairs in within one transaction. Pair
// ids are drawn from the sequence up front because COPY cannot return them.
// It returns the number of pairs written.
func (w *InteractionWriter) ReplaceStructurePairs(ctx context.Context, structureID int64, pairs []interaction.ComputedPair) (int64, error) {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM interacting_residue_pair WHERE referenced_structure_id = $1`, structureID); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete stored pairs")
	}

	var written int64
	if len(pairs) > 0 {
		var ids []int64
		if err := tx.QueryRow(ctx,
			`SELECT array_agg(nextval('interacting_residue_pair_id_seq')) FROM generate_series(1, $1)`,
			len(pairs)).Scan(&ids); err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to reserve pair ids")
		}
		if len(ids) != len(pairs) {
			return 0, errors.New(errors.ErrCodeDatabaseError, "reserved pair id count mismatch")
		}

		pairRows := make([][]interface{}, 0, len(pairs))
		var typeRows [][]interface{}
		for i, p := range pairs {
			pairRows = append(pairRows, []interface{}{ids[i], structureID, p.Res1ID, p.Res2ID, p.Distance})
			for _, t := range p.Types {
				typeRows = append(typeRows, []interface{}{ids[i], string(t)})
			}
		}

		written, err = tx.CopyFrom(ctx, pgx.Identifier{"interacting_residue_pair"}, pairColumns, pgx.CopyFromRows(pairRows))
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy residue pairs")
		}
		if len(typeRows) > 0 {
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"interaction"}, interactionColumns, pgx.CopyFromRows(typeRows)); err != nil {
				return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy interactions")
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	w.log.Debug("Replaced structure pairs",
		logging.Int64("structure_id", structureID),
		logging.Int64("pairs", written))
	return written, nil
}

var _ interaction.Writer = (*InteractionWriter)(nil)
