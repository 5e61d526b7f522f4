package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// isNoRows reports whether err means the query matched no rows. Both
// the pgx and database/sql sentinels appear depending on the call path.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
