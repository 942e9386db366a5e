package postgres

import "github.com/jmoiron/sqlx"

// sqlxIn expands a `?`-placeholder slice argument into sqlx's IN-clause form.
func sqlxIn(query string, args ...any) (string, []any, error) {
	return sqlx.In(query, args...)
}
