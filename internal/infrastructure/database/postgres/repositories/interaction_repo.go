package repositories

import (
	"context"

	"github.com/lib/pq"

	"github.com/protwis/signprot/internal/domain/interaction"
	"github.com/protwis/signprot/internal/infrastructure/database/postgres"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

type postgresInteractionRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

func newInteractionRepo(conn *postgres.Connection, log logging.Logger) *postgresInteractionRepo {
	return &postgresInteractionRepo{conn: conn, log: log, executor: conn.DB()}
}

// NewPostgresInteractionRepo reads stored complex interactions.
func NewPostgresInteractionRepo(conn *postgres.Connection, log logging.Logger) interaction.Repository {
	return newInteractionRepo(conn, log)
}

// NewPostgresBuildRepo reads the complex and residue data the interaction
// builder maps structure files onto.
func NewPostgresBuildRepo(conn *postgres.Connection, log logging.Logger) interaction.BuildRepository {
	return newInteractionRepo(conn, log)
}

func (r *postgresInteractionRepo) ComplexStructureIDs(ctx context.Context, pdbCodes []string) ([]int64, error) {
	if len(pdbCodes) == 0 {
		return []int64{}, nil
	}
	return queryInt64s(ctx, r.executor, "failed to resolve complex structures", `
		SELECT s.id
		FROM structure s
		JOIN signprot_complex c ON c.structure_id = s.id
		WHERE lower(s.pdb_code) = ANY($1)
		ORDER BY s.id`, pq.Array(pdbCodes))
}

func (r *postgresInteractionRepo) ConformationIDs(ctx context.Context, entryNames []string) ([]int64, error) {
	if len(entryNames) == 0 {
		return []int64{}, nil
	}
	return queryInt64s(ctx, r.executor, "failed to resolve conformations", `
		SELECT pc.id
		FROM protein_conformation pc
		JOIN protein p ON p.id = pc.protein_id
		WHERE p.entry_name = ANY($1)
		ORDER BY pc.id`, pq.Array(entryNames))
}

func (r *postgresInteractionRepo) ResidueIDs(ctx context.Context, conformationIDs []int64) (interaction.ResidueSet, error) {
	if len(conformationIDs) == 0 {
		return interaction.NewResidueSet(), nil
	}
	ids, err := queryInt64s(ctx, r.executor, "failed to load conformation residues", `
		SELECT id FROM residue WHERE protein_conformation_id = ANY($1)`, pq.Array(conformationIDs))
	if err != nil {
		return nil, err
	}
	return interaction.NewResidueSet(ids...), nil
}

const pairRowsQuery = `
	SELECT i.id, s.id, s.pdb_code, s.protein_conformation_id,
	       COALESCE(tp.name, ''), rp_p.entry_name,
	       r1.id, r1.amino_acid, r1.sequence_number, COALESCE(g1.label, ''), COALESCE(s1.slug, ''),
	       r2.id, r2.amino_acid, r2.sequence_number, COALESCE(g2.label, ''), COALESCE(s2.slug, ''),
	       i.interaction_type
	FROM interaction i
	JOIN interacting_residue_pair rp ON rp.id = i.interacting_pair_id
	JOIN structure s ON s.id = rp.referenced_structure_id
	JOIN protein_conformation rp_c ON rp_c.id = s.protein_conformation_id
	JOIN protein rp_p ON rp_p.id = rp_c.protein_id
	LEFT JOIN signprot_complex c ON c.structure_id = s.id
	LEFT JOIN protein tp ON tp.id = c.protein_id
	JOIN residue r1 ON r1.id = rp.res1_id
	LEFT JOIN residue_generic_number g1 ON g1.id = r1.generic_number_id
	LEFT JOIN protein_segment s1 ON s1.id = r1.protein_segment_id
	JOIN residue r2 ON r2.id = rp.res2_id
	LEFT JOIN residue_generic_number g2 ON g2.id = r2.generic_number_id
	LEFT JOIN protein_segment s2 ON s2.id = r2.protein_segment_id
	WHERE rp.referenced_structure_id = ANY($1)
	  AND (rp.res1_id = ANY($2) OR rp.res2_id = ANY($2))
	ORDER BY i.id`

func (r *postgresInteractionRepo) PairRows(ctx context.Context, structureIDs []int64, touching interaction.ResidueSet) ([]interaction.PairRow, error) {
	if len(structureIDs) == 0 || len(touching) == 0 {
		return []interaction.PairRow{}, nil
	}
	rows, err := r.executor.QueryContext(ctx, pairRowsQuery, pq.Array(structureIDs), pq.Array(touching.IDs()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load interactions")
	}
	defer rows.Close()

	out := []interaction.PairRow{}
	for rows.Next() {
		row, err := scanPairRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate interactions")
	}
	return out, nil
}

func scanPairRow(s scanner) (interaction.PairRow, error) {
	var (
		row interaction.PairRow
		typ string
	)
	err := s.Scan(&row.InteractionID, &row.StructureID, &row.PDBCode, &row.ConformationID,
		&row.Transducer, &row.EntryName,
		&row.Res1.ID, &row.Res1.AminoAcid, &row.Res1.SequenceNumber, &row.Res1.Label, &row.Res1.Segment,
		&row.Res2.ID, &row.Res2.AminoAcid, &row.Res2.SequenceNumber, &row.Res2.Label, &row.Res2.Segment,
		&typ)
	if err != nil {
		return row, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan interaction")
	}
	row.Type = interaction.Type(typ)
	return row, nil
}

func (r *postgresInteractionRepo) RemainingResidues(ctx context.Context, conformationIDs []int64) ([]interaction.RemainingResidue, error) {
	if len(conformationIDs) == 0 {
		return []interaction.RemainingResidue{}, nil
	}
	rows, err := r.executor.QueryContext(ctx, `
		SELECT r.id, p.name, p.entry_name, s.pdb_code, r.amino_acid, COALESCE(gn.label, '')
		FROM residue r
		JOIN protein_conformation pc ON pc.id = r.protein_conformation_id
		JOIN protein p ON p.id = pc.protein_id
		JOIN structure s ON s.protein_conformation_id = pc.id
		LEFT JOIN residue_generic_number gn ON gn.id = r.generic_number_id
		WHERE r.protein_conformation_id = ANY($1)
		ORDER BY r.id`, pq.Array(conformationIDs))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load remaining residues")
	}
	defer rows.Close()

	out := []interaction.RemainingResidue{}
	for rows.Next() {
		var rr interaction.RemainingResidue
		if err := rows.Scan(&rr.ReceptorID, &rr.Name, &rr.EntryName, &rr.PDBID, &rr.AminoAcid, &rr.Label); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan remaining residue")
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate remaining residues")
	}
	return out, nil
}

func (r *postgresInteractionRepo) Complexes(ctx context.Context) ([]interaction.Complex, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT s.id, s.pdb_code, p.name, p.entry_name, p.class_name, p.family_name,
		       s.protein_conformation_id, p.species, tp.name, tp.family_name
		FROM signprot_complex c
		JOIN structure s ON s.id = c.structure_id
		JOIN protein_conformation pc ON pc.id = s.protein_conformation_id
		JOIN protein p ON p.id = pc.protein_id
		JOIN protein tp ON tp.id = c.protein_id
		ORDER BY s.pdb_code`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list complexes")
	}
	defer rows.Close()

	out := []interaction.Complex{}
	for rows.Next() {
		var c interaction.Complex
		if err := rows.Scan(&c.StructureID, &c.PDBID, &c.Name, &c.EntryName, &c.Class, &c.Family,
			&c.ConformationID, &c.Organism, &c.Transducer, &c.TransducerClass); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan complex")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate complexes")
	}
	return out, nil
}

func (r *postgresInteractionRepo) TransducerSegments(ctx context.Context, family string) ([]interaction.SegmentRef, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT id, slug FROM protein_segment
		WHERE proteinfamily = $1
		ORDER BY position_order, id`, family)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load transducer segments")
	}
	defer rows.Close()

	out := []interaction.SegmentRef{}
	for rows.Next() {
		var s interaction.SegmentRef
		if err := rows.Scan(&s.ID, &s.Slug); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan segment")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate segments")
	}
	return out, nil
}

func (r *postgresInteractionRepo) ListComplexStructures(ctx context.Context, pdbCodes []string) ([]interaction.ComplexStructure, error) {
	if pdbCodes == nil {
		pdbCodes = []string{}
	}
	rows, err := r.executor.QueryContext(ctx, `
		SELECT s.id, s.pdb_code, c.receptor_chain, c.signal_chain,
		       s.protein_conformation_id, COALESCE(c.signal_conformation_id, 0)
		FROM signprot_complex c
		JOIN structure s ON s.id = c.structure_id
		WHERE cardinality($1::text[]) = 0 OR lower(s.pdb_code) = ANY($1)
		ORDER BY s.id`, pq.Array(pdbCodes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list complex structures")
	}
	defer rows.Close()

	out := []interaction.ComplexStructure{}
	for rows.Next() {
		var c interaction.ComplexStructure
		if err := rows.Scan(&c.StructureID, &c.PDBCode, &c.ReceptorChain, &c.SignalChain,
			&c.ReceptorConformationID, &c.SignalConformationID); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan complex structure")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate complex structures")
	}
	return out, nil
}

func (r *postgresInteractionRepo) ConformationResidues(ctx context.Context, conformationID int64) ([]interaction.CatalogResidue, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT r.id, r.sequence_number, r.amino_acid, COALESCE(gn.label, ''), COALESCE(ps.slug, '')
		FROM residue r
		LEFT JOIN residue_generic_number gn ON gn.id = r.generic_number_id
		LEFT JOIN protein_segment ps ON ps.id = r.protein_segment_id
		WHERE r.protein_conformation_id = $1
		ORDER BY r.sequence_number`, conformationID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load catalog residues")
	}
	defer rows.Close()

	out := []interaction.CatalogResidue{}
	for rows.Next() {
		var c interaction.CatalogResidue
		if err := rows.Scan(&c.ID, &c.SequenceNumber, &c.AminoAcid, &c.Label, &c.Segment); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan catalog residue")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate catalog residues")
	}
	return out, nil
}
