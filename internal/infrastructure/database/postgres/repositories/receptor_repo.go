package repositories

import (
	"context"

	"github.com/lib/pq"

	"github.com/protwis/signprot/internal/domain/signature"
	"github.com/protwis/signprot/internal/infrastructure/database/postgres"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

type postgresReceptorRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresReceptorRepo reads receptor sequences and generic-number
// positions from the catalog.
func NewPostgresReceptorRepo(conn *postgres.Connection, log logging.Logger) signature.ReceptorRepository {
	return &postgresReceptorRepo{conn: conn, log: log, executor: conn.DB()}
}

// Residues come from the first conformation of each protein, which holds the
// wild-type sequence. Labels are only filled for the requested scheme.
const findSequencesQuery = `
	SELECT p.entry_name, p.name, p.family_slug, p.species,
	       COALESCE(ns.slug, ''), COALESCE(ns.name, ''),
	       r.sequence_number, r.amino_acid,
	       COALESCE(ps.slug, ''), COALESCE(gn.label, '')
	FROM protein p
	JOIN protein_conformation pc ON pc.id = (
	    SELECT MIN(id) FROM protein_conformation WHERE protein_id = p.id)
	JOIN residue r ON r.protein_conformation_id = pc.id
	LEFT JOIN residue_generic_numbering_scheme ns ON ns.id = p.residue_numbering_scheme_id
	LEFT JOIN protein_segment ps ON ps.id = r.protein_segment_id
	LEFT JOIN residue_generic_number gn ON gn.id = r.generic_number_id
	    AND gn.scheme_id = (SELECT id FROM residue_generic_numbering_scheme WHERE slug = $2)
	WHERE p.entry_name = ANY($1)
	ORDER BY p.entry_name, r.sequence_number`

func (r *postgresReceptorRepo) FindSequences(ctx context.Context, entryNames []string, numberingScheme string) ([]signature.ReceptorSequence, error) {
	if len(entryNames) == 0 {
		return []signature.ReceptorSequence{}, nil
	}
	rows, err := r.executor.QueryContext(ctx, findSequencesQuery, pq.Array(entryNames), numberingScheme)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load receptor sequences")
	}
	defer rows.Close()

	out := []signature.ReceptorSequence{}
	for rows.Next() {
		var (
			rec signature.ReceptorSequence
			res signature.Residue
			aa  string
		)
		if err := rows.Scan(&rec.EntryName, &rec.Name, &rec.Family, &rec.Species,
			&rec.NumberingScheme.Slug, &rec.NumberingScheme.Name,
			&res.SequenceNumber, &aa, &res.Segment, &res.Label); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan receptor residue")
		}
		if aa != "" {
			res.AminoAcid = aa[0]
		}
		if n := len(out); n == 0 || out[n-1].EntryName != rec.EntryName {
			out = append(out, rec)
		}
		last := &out[len(out)-1]
		last.Residues = append(last.Residues, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate receptor residues")
	}
	r.log.Debug("Loaded receptor sequences",
		logging.Int("requested", len(entryNames)),
		logging.Int("found", len(out)),
		logging.String("numbering_scheme", numberingScheme))
	return out, nil
}

const schemePositionsQuery = `
	SELECT ps.slug, gn.label
	FROM residue_generic_number gn
	JOIN residue_generic_numbering_scheme ns ON ns.id = gn.scheme_id
	JOIN protein_segment ps ON ps.id = gn.protein_segment_id
	WHERE ns.slug = $1 AND ps.proteinfamily = 'GPCR'`

func (r *postgresReceptorRepo) DefaultSegments(ctx context.Context, numberingScheme string) ([]signature.SegmentSpec, error) {
	pairs, err := r.segmentLabels(ctx, schemePositionsQuery+`
	ORDER BY ps.position_order, ps.id`, numberingScheme)
	if err != nil {
		return nil, err
	}
	out := []signature.SegmentSpec{}
	index := make(map[string]int)
	for _, p := range pairs {
		i, ok := index[p.segment]
		if !ok {
			i = len(out)
			index[p.segment] = i
			out = append(out, signature.SegmentSpec{Name: p.segment})
		}
		out[i].Positions = append(out[i].Positions, p.label)
	}
	for i := range out {
		sortLabels(out[i].Positions)
	}
	return out, nil
}

// ResolveSegments keeps the order in which names first mention a segment. A
// segment slug expands to all of its positions; a label adds itself to its
// segment.
func (r *postgresReceptorRepo) ResolveSegments(ctx context.Context, names []string, numberingScheme string) ([]signature.SegmentSpec, error) {
	if len(names) == 0 {
		return []signature.SegmentSpec{}, nil
	}
	pairs, err := r.segmentLabels(ctx, schemePositionsQuery+`
	AND (ps.slug = ANY($2) OR gn.label = ANY($2))
	ORDER BY ps.position_order, ps.id`, numberingScheme, pq.Array(names))
	if err != nil {
		return nil, err
	}

	bySegment := make(map[string][]string)
	segmentOf := make(map[string]string)
	for _, p := range pairs {
		bySegment[p.segment] = append(bySegment[p.segment], p.label)
		segmentOf[p.label] = p.segment
	}

	out := []signature.SegmentSpec{}
	index := make(map[string]int)
	seen := make(map[string]bool)
	add := func(segment, label string) {
		i, ok := index[segment]
		if !ok {
			i = len(out)
			index[segment] = i
			out = append(out, signature.SegmentSpec{Name: segment})
		}
		if !seen[label] {
			seen[label] = true
			out[i].Positions = append(out[i].Positions, label)
		}
	}
	for _, name := range names {
		if labels, ok := bySegment[name]; ok {
			for _, l := range labels {
				add(name, l)
			}
		} else if segment, ok := segmentOf[name]; ok {
			add(segment, name)
		}
	}
	for i := range out {
		sortLabels(out[i].Positions)
	}
	return out, nil
}

type segmentLabel struct {
	segment string
	label   string
}

func (r *postgresReceptorRepo) segmentLabels(ctx context.Context, query string, args ...interface{}) ([]segmentLabel, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load segment positions")
	}
	defer rows.Close()

	var out []segmentLabel
	for rows.Next() {
		var p segmentLabel
		if err := rows.Scan(&p.segment, &p.label); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan segment position")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate segment positions")
	}
	return out, nil
}
