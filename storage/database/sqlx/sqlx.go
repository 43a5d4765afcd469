// Package sqlxrepos implements the repositories on PostgreSQL through sqlx, with queries built by squirrel.
package sqlxrepos

import (
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// postgres error codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func pqErrorCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool     { return pqErrorCode(err) == uniqueViolation }
func isForeignKeyViolation(err error) bool { return pqErrorCode(err) == foreignKeyViolation }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern returns a LIKE pattern matching s anywhere, with its wildcards escaped.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func paginate(sb squirrel.SelectBuilder, pr core.PageRequest) squirrel.SelectBuilder {
	return sb.Limit(uint64(pr.PerPage)).Offset(uint64(pr.Offset()))
}

// noRows is a predicate matching nothing.
var noRows = squirrel.Expr("1 = 0")
