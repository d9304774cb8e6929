package postgres

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/retain/internal/sm2"
)

// placeholder returns a positional placeholder for PostgreSQL ($1, $2, ...)
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// placeholders returns n placeholders for PostgreSQL
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullDate renders an optional calendar date for a DATE column.
func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: sm2.FormatDate(*t), Valid: true}
}
