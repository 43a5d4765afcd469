package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

const studentColumns = "s.id, s.name, s.student_code, s.class_id, s.date_of_birth::text AS date_of_birth, " +
	"s.email, s.phone, s.address, s.created_at, s.updated_at"

var studentOrdering = []core.DBOrdering{
	{Field: "s.created_at", Ascending: false},
	{Field: "s.id", Ascending: false},
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

// studentsPredicate restricts the students aliased `s` to scope and filter.
func studentsPredicate(scope access.Scope, filter student.Filter) squirrel.And {
	pred := squirrel.And{}
	if !scope.IsUnrestricted() {
		if scope.IsEmpty() {
			pred = append(pred, noRows)
		} else {
			pred = append(pred, squirrel.Eq{"s.class_id": scope.ClassIDs()})
		}
	}
	if filter.ClassID != 0 {
		pred = append(pred, squirrel.Eq{"s.class_id": filter.ClassID})
	}
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		pred = append(pred, squirrel.Or{
			squirrel.ILike{"s.name": pattern},
			squirrel.ILike{"s.student_code": pattern},
		})
	}
	return pred
}

func where(sb squirrel.SelectBuilder, pred squirrel.And) squirrel.SelectBuilder {
	if len(pred) == 0 {
		return sb
	}
	return sb.Where(pred)
}

func studentsQuery(scope access.Scope, filter student.Filter, pr core.PageRequest) squirrel.SelectBuilder {
	sb := psql.Select(studentColumns, "c.name AS class_name").
		From("students s").
		Join("classes c ON c.id = s.class_id")
	return paginate(where(sb, studentsPredicate(scope, filter)).OrderBy(core.OrderBy(studentOrdering...)...), pr)
}

func studentsCountQuery(scope access.Scope, filter student.Filter) squirrel.SelectBuilder {
	return where(psql.Select("COUNT(*)").From("students s"), studentsPredicate(scope, filter))
}

func (repo *studentRepository) CheckStudentCodeUniqueness(ctx context.Context, code string, excludedID int64) error {
	q, args, err := psql.Select("COUNT(*)").From("students").
		Where("student_code = ?", code).
		Where("id <> ?", excludedID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var n int
	if err = repo.db.GetContext(ctx, &n, q, args...); err != nil {
		return errors.Wrap(err, "counting students")
	}
	if n > 0 {
		return student.ErrStudentCodeExists
	}
	return nil
}

func writeError(err error, action string) error {
	switch {
	case isUniqueViolation(err):
		return student.ErrStudentCodeExists
	case isForeignKeyViolation(err):
		return class.ErrNotFound
	}
	return errors.Wrap(err, action)
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q, args, err := psql.Insert("students").
		Columns("name", "student_code", "class_id", "date_of_birth", "email", "phone", "address", "created_at", "updated_at").
		Values(std.Name, std.StudentCode, std.ClassID, std.DateOfBirth, std.Email, std.Phone, std.Address, std.CreatedAt, std.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return student.Student{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &std.ID, q, args...); err != nil {
		return student.Student{}, writeError(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id int64) (student.Student, error) {
	q, args, err := psql.Select(studentColumns).From("students s").Where("s.id = ?", id).ToSql()
	if err != nil {
		return student.Student{}, errors.Wrap(err, "building query")
	}
	var std student.Student
	if err = repo.db.GetContext(ctx, &std, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return std, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q, args, err := psql.Update("students").
		Set("name", std.Name).
		Set("student_code", std.StudentCode).
		Set("class_id", std.ClassID).
		Set("date_of_birth", std.DateOfBirth).
		Set("email", std.Email).
		Set("phone", std.Phone).
		Set("address", std.Address).
		Set("updated_at", std.UpdatedAt).
		Where("id = ?", std.ID).
		ToSql()
	if err != nil {
		return student.Student{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return student.Student{}, writeError(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

// DeleteStudent relies on ON DELETE CASCADE for attendance.
func (repo *studentRepository) DeleteStudent(ctx context.Context, id int64) error {
	q, args, err := psql.Delete("students").Where("id = ?", id).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, scope access.Scope, filter student.Filter, pr core.PageRequest) ([]student.ListItem, int, error) {
	q, args, err := studentsCountQuery(scope, filter).ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}
	var total int
	if err = repo.db.GetContext(ctx, &total, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	if q, args, err = studentsQuery(scope, filter, pr).ToSql(); err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}
	items := make([]student.ListItem, 0, pr.PerPage)
	if err = repo.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting students")
	}
	return items, total, nil
}

func (repo *studentRepository) CountStudents(ctx context.Context, scope access.Scope) (int, error) {
	q, args, err := studentsCountQuery(scope, student.Filter{}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var n int
	if err = repo.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}
