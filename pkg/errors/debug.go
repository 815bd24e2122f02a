package errors

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the flattened, log-friendly view of an error chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	SQLiteConstraint string `json:"sqlite_constraint,omitempty"`
}

var sqliteUniqueRe = regexp.MustCompile(`UNIQUE constraint failed: (.+)$`)

// Dump walks err and pulls out the typed code plus any driver detail. The
// first driver that recognizes the chain wins.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		d.Retryable = MetadataFor(typed.Code()).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	for _, extract := range []func(error, *ErrorDump) bool{pgxDetail, pqDetail, sqliteDetail} {
		if extract(err, &d) {
			break
		}
	}
	return d
}

func pgxDetail(err error, d *ErrorDump) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	d.PGCode, d.PGMessage, d.PGDetail = pgErr.Code, pgErr.Message, pgErr.Detail
	d.PGTable, d.PGColumn, d.PGConstraint = pgErr.TableName, pgErr.ColumnName, pgErr.ConstraintName
	return true
}

func pqDetail(err error, d *ErrorDump) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	d.PGCode, d.PGMessage, d.PGDetail = string(pqErr.Code), pqErr.Message, pqErr.Detail
	d.PGTable, d.PGColumn, d.PGConstraint = pqErr.Table, pqErr.Column, pqErr.Constraint
	return true
}

// sqlite only reports constraint failures in the message text, and typed
// errors hide their cause in Error(), so every link is checked.
func sqliteDetail(err error, d *ErrorDump) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if m := sqliteUniqueRe.FindStringSubmatch(e.Error()); m != nil {
			d.SQLiteConstraint = m[1]
			return true
		}
	}
	return false
}
