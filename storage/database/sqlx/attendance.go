package sqlxrepos

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/storage/database"
)

const (
	recordColumns = "a.id, a.student_id, a.date::text AS date, a.status, a.notes, a.marked_by, a.created_at, a.updated_at, " +
		"s.name AS student_name, s.student_code, s.class_id, c.name AS class_name, COALESCE(u.name, '') AS marked_by_name"

	upsertConflict = "ON CONFLICT (student_id, date) DO UPDATE SET " +
		"status = EXCLUDED.status, notes = EXCLUDED.notes, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at " +
		"RETURNING (xmax = 0) AS inserted"
)

var recordOrdering = []core.DBOrdering{
	{Field: "a.date", Ascending: false},
	{Field: "a.id", Ascending: false},
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// recordsPredicate is the scope and filter predicate of q on the records aliased `a`,
// joined to their students aliased `s`. Listing, counting and summarizing share it.
func recordsPredicate(q attendance.Query) squirrel.And {
	pred := squirrel.And{}
	if !q.Scope.IsUnrestricted() {
		if q.Scope.IsEmpty() {
			pred = append(pred, noRows)
		} else {
			pred = append(pred, squirrel.Eq{"s.class_id": q.Scope.ClassIDs()})
		}
	}

	f := q.Filter
	if f.Date != "" {
		pred = append(pred, squirrel.Eq{"a.date": f.Date})
	}
	if f.ClassID != 0 {
		pred = append(pred, squirrel.Eq{"s.class_id": f.ClassID})
	}
	if f.Status != "" {
		pred = append(pred, squirrel.Eq{"a.status": string(f.Status)})
	}
	if f.DateFrom != "" {
		pred = append(pred, squirrel.GtOrEq{"a.date": f.DateFrom})
	}
	if f.DateTo != "" {
		pred = append(pred, squirrel.LtOrEq{"a.date": f.DateTo})
	}
	if f.StudentID != 0 {
		pred = append(pred, squirrel.Eq{"a.student_id": f.StudentID})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		pred = append(pred, squirrel.Eq{"a.status": statuses})
	}
	return pred
}

func recordsFrom(sb squirrel.SelectBuilder) squirrel.SelectBuilder {
	return sb.From("attendance a").Join("students s ON s.id = a.student_id")
}

func recordsQuery(q attendance.Query, pr core.PageRequest) squirrel.SelectBuilder {
	sb := recordsFrom(psql.Select(recordColumns)).
		Join("classes c ON c.id = s.class_id").
		LeftJoin("users u ON u.id = a.marked_by")
	return paginate(where(sb, recordsPredicate(q)).OrderBy(core.OrderBy(recordOrdering...)...), pr)
}

func recordsCountQuery(q attendance.Query) squirrel.SelectBuilder {
	return where(recordsFrom(psql.Select("COUNT(*)")), recordsPredicate(q))
}

func recordsSummaryQuery(q attendance.Query) squirrel.SelectBuilder {
	return where(recordsFrom(psql.Select("a.status", "COUNT(*) AS total")), recordsPredicate(q)).GroupBy("a.status")
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, q attendance.Query, pr core.PageRequest) ([]attendance.RecordDetail, int, error) {
	total, err := repo.CountRecords(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	query, args, err := recordsQuery(q, pr).ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}
	records := make([]attendance.RecordDetail, 0, pr.PerPage)
	if err = repo.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting records")
	}
	return records, total, nil
}

func (repo *attendanceRepository) SummarizeRecords(ctx context.Context, q attendance.Query) (map[attendance.Status]int, error) {
	query, args, err := recordsSummaryQuery(q).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []struct {
		Status attendance.Status `db:"status"`
		Total  int               `db:"total"`
	}
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "summarizing records")
	}
	counts := make(map[attendance.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (repo *attendanceRepository) CountRecords(ctx context.Context, q attendance.Query) (int, error) {
	query, args, err := recordsCountQuery(q).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var n int
	if err = repo.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting records")
	}
	return n, nil
}

func (repo *attendanceRepository) QueryStudentClassIDs(ctx context.Context, studentIDs []int64) (map[int64]int64, error) {
	classIDs := make(map[int64]int64, len(studentIDs))
	if len(studentIDs) == 0 {
		return classIDs, nil
	}
	query, args, err := psql.Select("id", "class_id").From("students").
		Where(squirrel.Eq{"id": studentIDs}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []struct {
		ID      int64 `db:"id"`
		ClassID int64 `db:"class_id"`
	}
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting student classes")
	}
	for _, row := range rows {
		classIDs[row.ID] = row.ClassID
	}
	return classIDs, nil
}

func upsertQuery(date string, e attendance.Entry, markedBy int64, at time.Time) squirrel.InsertBuilder {
	return psql.Insert("attendance").
		Columns("student_id", "date", "status", "notes", "marked_by", "created_at", "updated_at").
		Values(e.StudentID, date, string(e.Status), null.NewString(e.Notes, e.Notes != ""), markedBy, at, at).
		Suffix(upsertConflict)
}

func (repo *attendanceRepository) UpsertRecords(ctx context.Context, date string, entries []attendance.Entry, markedBy int64) (attendance.MarkResult, error) {
	res := attendance.MarkResult{Date: date}
	now := time.Now().UTC()

	err := database.WithinTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			query, args, err := upsertQuery(date, e, markedBy, now).ToSql()
			if err != nil {
				return errors.Wrap(err, "building query")
			}
			var inserted bool
			if err = tx.GetContext(ctx, &inserted, query, args...); err != nil {
				if isForeignKeyViolation(err) {
					return attendance.ErrStudentNotFound
				}
				return errors.Wrapf(err, "upserting record of student %d", e.StudentID)
			}
			if inserted {
				res.Created++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return attendance.MarkResult{}, err
	}
	return res, nil
}
