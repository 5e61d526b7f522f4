package bunstore

import (
	"database/sql"
	"errors"
)

// isNoRows reports whether err means the query matched no rows. Bun
// surfaces the database/sql sentinel directly.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
