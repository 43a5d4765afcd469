package class

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("class not found")
	ErrInvalidTeacher = errors.New("invalid teacher selected")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id int64) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass deletes the class along with its students and their attendance.
		DeleteClass(ctx context.Context, id int64) error
		// QueryClasses returns a page of classes ordered by newest first, and the total count.
		QueryClasses(ctx context.Context, pr core.PageRequest) ([]ListItem, int, error)
		// QueryClassOptions returns the classes within scope ordered by name.
		QueryClassOptions(ctx context.Context, scope access.Scope) ([]Option, error)
		// QueryClassSummaries returns the classes within scope ordered by name, with their student counts.
		QueryClassSummaries(ctx context.Context, scope access.Scope) ([]Summary, error)
		QueryClassStudents(ctx context.Context, classID int64) ([]Student, error)
		QueryClassTeachers(ctx context.Context, classID int64) ([]Teacher, error)
		// SetClassTeachers replaces the teachers of the class.
		// Returns ErrInvalidTeacher if one of teacherIDs is not a teacher.
		SetClassTeachers(ctx context.Context, classID int64, teacherIDs []int64) error
		CountClasses(ctx context.Context) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) List(ctx context.Context, actor *user.Actor, page int) (core.Page[ListItem], error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return core.Page[ListItem]{}, err
	}
	pr := core.NewPageRequest(page, core.PerPageDefault)
	items, total, err := svc.repo.QueryClasses(ctx, pr)
	if err != nil {
		return core.Page[ListItem]{}, errors.Wrap(err, "querying classes")
	}
	return core.NewPage(items, pr, total), nil
}

func (svc *Service) Get(ctx context.Context, actor *user.Actor, id int64) (Detail, error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return Detail{}, err
	}
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	students, err := svc.repo.QueryClassStudents(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying class students")
	}
	teachers, err := svc.repo.QueryClassTeachers(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying class teachers")
	}
	if students == nil {
		students = []Student{}
	}
	if teachers == nil {
		teachers = []Teacher{}
	}
	return Detail{Class: cls, Students: students, Teachers: teachers}, nil
}

// Lookup returns the class with id, without authorization.
func (svc *Service) Lookup(ctx context.Context, id int64) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) Create(ctx context.Context, actor *user.Actor, nc NewClass) (Class, error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return Class{}, err
	}
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Class{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateClass(ctx, Class{
		Name:        nc.Name,
		Grade:       nullString(nc.Grade),
		Description: nullString(nc.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Update(ctx context.Context, actor *user.Actor, id int64, uc UpdateClass) (Class, error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return Class{}, err
	}
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	nc := NewClass(uc)
	nc.Clean()
	if err = svc.validate.Struct(nc); err != nil {
		return Class{}, err
	}

	cls.Name = nc.Name
	cls.Grade = nullString(nc.Grade)
	cls.Description = nullString(nc.Description)
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, actor *user.Actor, id int64) error {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id)
}

// SetTeachers replaces the teachers assigned to the class.
func (svc *Service) SetTeachers(ctx context.Context, actor *user.Actor, id int64, at AssignTeachers) ([]Teacher, error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := svc.repo.GetClass(ctx, id); err != nil {
		return nil, err
	}
	if err := svc.validate.Struct(at); err != nil {
		return nil, err
	}
	if err := svc.repo.SetClassTeachers(ctx, id, core.UniqueIDs(at.TeacherIDs)); err != nil {
		if errors.Cause(err) == ErrInvalidTeacher {
			return nil, core.NewValidationError(err, core.FieldError{Field: "teacher_ids", Error: err.Error()})
		}
		return nil, errors.Wrap(err, "setting class teachers")
	}
	teachers, err := svc.repo.QueryClassTeachers(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "querying class teachers")
	}
	if teachers == nil {
		teachers = []Teacher{}
	}
	return teachers, nil
}

// Options returns the classes the actor can see, for dropdowns.
func (svc *Service) Options(ctx context.Context, actor *user.Actor) ([]Option, error) {
	scope, err := access.ScopeFor(actor)
	if err != nil {
		return nil, err
	}
	return svc.OptionsIn(ctx, scope)
}

func (svc *Service) OptionsIn(ctx context.Context, scope access.Scope) ([]Option, error) {
	if scope.IsEmpty() {
		return []Option{}, nil
	}
	opts, err := svc.repo.QueryClassOptions(ctx, scope)
	if err != nil {
		return nil, errors.Wrap(err, "querying class options")
	}
	if opts == nil {
		opts = []Option{}
	}
	return opts, nil
}

// StudentsIn returns the students of the class ordered by name, none if the class is out of scope.
func (svc *Service) StudentsIn(ctx context.Context, scope access.Scope, classID int64) ([]Student, error) {
	if classID == 0 || !scope.Allows(classID) {
		return []Student{}, nil
	}
	students, err := svc.repo.QueryClassStudents(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

func (svc *Service) SummariesIn(ctx context.Context, scope access.Scope) ([]Summary, error) {
	if scope.IsEmpty() {
		return []Summary{}, nil
	}
	sums, err := svc.repo.QueryClassSummaries(ctx, scope)
	if err != nil {
		return nil, errors.Wrap(err, "querying class summaries")
	}
	if sums == nil {
		sums = []Summary{}
	}
	return sums, nil
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountClasses(ctx)
}
