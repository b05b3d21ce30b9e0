package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs. Postgres driver
// errors contribute their SQLSTATE and the constraint that fired, which is
// how overlap and uniqueness violations show up in the request log.
type ErrorDump struct {
	Code         Code     `json:"code,omitempty"`
	Chain        []string `json:"chain,omitempty"`
	PGCode       string   `json:"pg_code,omitempty"`
	PGConstraint string   `json:"pg_constraint,omitempty"`
	PGTable      string   `json:"pg_table,omitempty"`
	PGDetail     string   `json:"pg_detail,omitempty"`
}

func Dump(err error) ErrorDump {
	var d ErrorDump
	if err == nil {
		return d
	}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", cur, cur))
	}

	// gorm's postgres driver surfaces pgx errors; cmd/migrate runs goose over
	// lib/pq.
	if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) {
		d.PGCode, d.PGConstraint, d.PGTable, d.PGDetail = pgErr.Code, pgErr.ConstraintName, pgErr.TableName, pgErr.Detail
	} else if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		d.PGCode, d.PGConstraint, d.PGTable, d.PGDetail = string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail
	}
	return d
}
