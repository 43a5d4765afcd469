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
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/storage/database"
)

const (
	classColumns       = "c.id, c.name, c.grade, c.description, c.created_at, c.updated_at"
	classStudentsCount = "(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS students_count"
)

var classOrdering = []core.DBOrdering{
	{Field: "c.created_at", Ascending: false},
	{Field: "c.id", Ascending: false},
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{db: db}
}

// classScope restricts the classes aliased `c` to scope.
func classScope(sb squirrel.SelectBuilder, scope access.Scope) squirrel.SelectBuilder {
	if scope.IsUnrestricted() {
		return sb
	}
	if scope.IsEmpty() {
		return sb.Where(noRows)
	}
	return sb.Where(squirrel.Eq{"c.id": scope.ClassIDs()})
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q, args, err := psql.Insert("classes").
		Columns("name", "grade", "description", "created_at", "updated_at").
		Values(cls.Name, cls.Grade, cls.Description, cls.CreatedAt, cls.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return class.Class{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &cls.ID, q, args...); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *classRepository) GetClass(ctx context.Context, id int64) (class.Class, error) {
	q, args, err := psql.Select(classColumns).From("classes c").Where("c.id = ?", id).ToSql()
	if err != nil {
		return class.Class{}, errors.Wrap(err, "building query")
	}
	var cls class.Class
	if err = repo.db.GetContext(ctx, &cls, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "selecting class")
	}
	return cls, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q, args, err := psql.Update("classes").
		Set("name", cls.Name).
		Set("grade", cls.Grade).
		Set("description", cls.Description).
		Set("updated_at", cls.UpdatedAt).
		Where("id = ?", cls.ID).
		ToSql()
	if err != nil {
		return class.Class{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

// DeleteClass relies on ON DELETE CASCADE for students, attendance and assignments.
func (repo *classRepository) DeleteClass(ctx context.Context, id int64) error {
	q, args, err := psql.Delete("classes").Where("id = ?", id).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.ErrNotFound
	}
	return nil
}

func classesQuery(pr core.PageRequest) squirrel.SelectBuilder {
	return paginate(
		psql.Select(classColumns, classStudentsCount).From("classes c").OrderBy(core.OrderBy(classOrdering...)...),
		pr,
	)
}

type classTeacher struct {
	ClassID int64 `db:"class_id"`
	class.Teacher
}

func teachersQuery(classIDs []int64) squirrel.SelectBuilder {
	return psql.Select("tc.class_id", "u.id", "u.name", "u.email").
		From("teacher_classes tc").
		Join("users u ON u.id = tc.user_id").
		Where(squirrel.Eq{"tc.class_id": classIDs}).
		OrderBy("u.name ASC", "u.id ASC")
}

func (repo *classRepository) queryTeachers(ctx context.Context, classIDs []int64) (map[int64][]class.Teacher, error) {
	byClass := make(map[int64][]class.Teacher, len(classIDs))
	if len(classIDs) == 0 {
		return byClass, nil
	}
	q, args, err := teachersQuery(classIDs).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []classTeacher
	if err = repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting class teachers")
	}
	for _, row := range rows {
		byClass[row.ClassID] = append(byClass[row.ClassID], row.Teacher)
	}
	return byClass, nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, pr core.PageRequest) ([]class.ListItem, int, error) {
	total, err := repo.CountClasses(ctx)
	if err != nil {
		return nil, 0, err
	}

	q, args, err := classesQuery(pr).ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}
	items := make([]class.ListItem, 0, pr.PerPage)
	if err = repo.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting classes")
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	teachers, err := repo.queryTeachers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Teachers = teachers[items[i].ID]
		if items[i].Teachers == nil {
			items[i].Teachers = []class.Teacher{}
		}
	}
	return items, total, nil
}

func classOptionsQuery(scope access.Scope) squirrel.SelectBuilder {
	return classScope(psql.Select("c.id", "c.name").From("classes c"), scope).OrderBy("c.name ASC", "c.id ASC")
}

func (repo *classRepository) QueryClassOptions(ctx context.Context, scope access.Scope) ([]class.Option, error) {
	q, args, err := classOptionsQuery(scope).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	opts := make([]class.Option, 0)
	if err = repo.db.SelectContext(ctx, &opts, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting class options")
	}
	return opts, nil
}

func (repo *classRepository) QueryClassSummaries(ctx context.Context, scope access.Scope) ([]class.Summary, error) {
	sb := classScope(psql.Select("c.id", "c.name", classStudentsCount).From("classes c"), scope).
		OrderBy("c.name ASC", "c.id ASC")
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	sums := make([]class.Summary, 0)
	if err = repo.db.SelectContext(ctx, &sums, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting class summaries")
	}
	return sums, nil
}

func (repo *classRepository) QueryClassStudents(ctx context.Context, classID int64) ([]class.Student, error) {
	q, args, err := psql.Select("id", "name", "student_code").From("students").
		Where("class_id = ?", classID).
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	students := make([]class.Student, 0)
	if err = repo.db.SelectContext(ctx, &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting class students")
	}
	return students, nil
}

func (repo *classRepository) QueryClassTeachers(ctx context.Context, classID int64) ([]class.Teacher, error) {
	teachers, err := repo.queryTeachers(ctx, []int64{classID})
	if err != nil {
		return nil, err
	}
	if teachers[classID] == nil {
		return []class.Teacher{}, nil
	}
	return teachers[classID], nil
}

func (repo *classRepository) SetClassTeachers(ctx context.Context, classID int64, teacherIDs []int64) error {
	return database.WithinTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if len(teacherIDs) > 0 {
			q, args, err := psql.Select("COUNT(*)").From("users").
				Where(squirrel.Eq{"id": teacherIDs}).
				Where("role = ?", string(user.RoleTeacher)).
				ToSql()
			if err != nil {
				return errors.Wrap(err, "building query")
			}
			var n int
			if err = tx.GetContext(ctx, &n, q, args...); err != nil {
				return errors.Wrap(err, "counting teachers")
			}
			if n != len(teacherIDs) {
				return class.ErrInvalidTeacher
			}
		}

		q, args, err := psql.Delete("teacher_classes").Where("class_id = ?", classID).ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrap(err, "deleting class teachers")
		}
		if len(teacherIDs) == 0 {
			return nil
		}

		ib := psql.Insert("teacher_classes").Columns("user_id", "class_id")
		for _, id := range teacherIDs {
			ib = ib.Values(id, classID)
		}
		if q, args, err = ib.ToSql(); err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			if isForeignKeyViolation(err) {
				return class.ErrNotFound
			}
			return errors.Wrap(err, "inserting class teachers")
		}
		return nil
	})
}

func (repo *classRepository) CountClasses(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM classes"); err != nil {
		return 0, errors.Wrap(err, "counting classes")
	}
	return n, nil
}
