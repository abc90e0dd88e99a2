// Package repositories implements the catalog contracts of the signature and
// interaction domains on PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
	"sort"

	"github.com/protwis/signprot/pkg/errors"
	"github.com/protwis/signprot/pkg/types/common"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// queryInt64s runs a single-column id query.
func queryInt64s(ctx context.Context, ex queryExecutor, msg, query string, args ...interface{}) ([]int64, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
	}
	return ids, nil
}

func sortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool { return common.NaturalLess(labels[i], labels[j]) })
}
