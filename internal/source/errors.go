package source

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	mysqlNoSuchTable   = 1146
	postgresUndefTable = "42P01"
)

var tableNotFoundMarkers = []string{
	"TABLE_OR_VIEW_NOT_FOUND",
	"Table or view not found",
	"no such table",
	"SQLSTATE: 42P01",
}

// IsTableNotFound reports whether err is an engine's table-not-found
// condition. It only classifies; err is never altered.
func IsTableNotFound(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoSuchTable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == postgresUndefTable
	}

	msg := err.Error()
	for _, m := range tableNotFoundMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
