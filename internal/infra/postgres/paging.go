package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/digcity/portal-tools/internal/logger"
)

// listPaged runs query with LIMIT $1 OFFSET $2 appended by the caller and
// keeps requesting pages until one comes back short.
func listPaged[T any](ctx context.Context, db DBTX, table, query string, pageSize int, scan func(pgx.Rows) (T, error)) ([]T, error) {
	log := logger.FromContext(ctx)

	var out []T
	for page, offset := 1, 0; ; page, offset = page+1, offset+pageSize {
		rows, err := db.Query(ctx, query, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("listPaged: %s page %d: %w", table, page, err)
		}

		n := 0
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("listPaged: %s page %d: scan: %w", table, page, err)
			}
			out = append(out, item)
			n++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("listPaged: %s page %d: %w", table, page, err)
		}

		log.Debug().Str("table", table).Int("page", page).Int("rows", n).Msg("Fetched page")

		if n < pageSize {
			return out, nil
		}
	}
}
