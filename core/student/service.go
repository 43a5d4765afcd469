package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("student not found")
	ErrStudentCodeExists = errors.New("the student code has already been taken")
	errInvalidClass      = errors.New("the selected class is invalid")
)

type (
	Repository interface {
		// CheckStudentCodeUniqueness returns ErrStudentCodeExists if a student other than excludedID owns code.
		CheckStudentCodeUniqueness(ctx context.Context, code string, excludedID int64) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, id int64) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		// DeleteStudent deletes the student along with its attendance.
		DeleteStudent(ctx context.Context, id int64) error
		// QueryStudents returns a page of the students within scope matching filter, newest first, and the total count.
		QueryStudents(ctx context.Context, scope access.Scope, filter Filter, pr core.PageRequest) ([]ListItem, int, error)
		CountStudents(ctx context.Context, scope access.Scope) (int, error)
	}

	Service struct {
		repo       Repository
		classes    *class.Service
		attendance *attendance.Service
		validate   *validator.Validate
	}
)

func NewService(repo Repository, classes *class.Service, att *attendance.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, classes: classes, attendance: att, validate: validate}
}

// List returns the students visible to actor matching filter.
func (svc *Service) List(ctx context.Context, actor *user.Actor, filter Filter) (Listing, error) {
	scope, err := access.ScopeFor(actor)
	if err != nil {
		return Listing{}, err
	}
	filter.Clean()
	if err = svc.validate.Struct(filter); err != nil {
		return Listing{}, err
	}

	pr := core.NewPageRequest(filter.Page, core.PerPageDefault)
	var (
		items []ListItem
		total int
	)
	if !scope.IsEmpty() {
		if items, total, err = svc.repo.QueryStudents(ctx, scope, filter, pr); err != nil {
			return Listing{}, errors.Wrap(err, "querying students")
		}
	}
	classes, err := svc.classes.OptionsIn(ctx, scope)
	if err != nil {
		return Listing{}, err
	}
	filter.Page = pr.Page
	return Listing{
		Students: core.NewPage(items, pr, total),
		Classes:  classes,
		Filters:  filter,
	}, nil
}

// Get returns the student with its class and most recent attendance.
func (svc *Service) Get(ctx context.Context, actor *user.Actor, id int64) (Detail, error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return Detail{}, err
	}
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	cls, err := svc.classes.Lookup(ctx, std.ClassID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "finding student class")
	}
	q := attendance.Query{Scope: access.Unrestricted(), Filter: attendance.Filter{StudentID: std.ID}}
	page, err := svc.attendance.QueryPage(ctx, q, core.NewPageRequest(1, RecentRecordsCount))
	if err != nil {
		return Detail{}, err
	}
	return Detail{Student: std, Class: cls, Attendance: page.Data}, nil
}

func (svc *Service) validateStudent(ctx context.Context, ns NewStudent, excludedID int64) error {
	if err := svc.validate.Struct(ns); err != nil {
		return err
	}
	if _, err := svc.classes.Lookup(ctx, ns.ClassID); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return core.NewValidationError(errInvalidClass, core.FieldError{Field: "class_id", Error: errInvalidClass.Error()})
		}
		return errors.Wrap(err, "finding class")
	}
	if err := svc.repo.CheckStudentCodeUniqueness(ctx, ns.StudentCode, excludedID); err != nil {
		return uniquenessError(err)
	}
	return nil
}

func uniquenessError(err error) error {
	if errors.Cause(err) == ErrStudentCodeExists {
		return core.NewValidationError(ErrStudentCodeExists, core.FieldError{Field: "student_code", Error: ErrStudentCodeExists.Error()})
	}
	return err
}

func (svc *Service) Create(ctx context.Context, actor *user.Actor, ns NewStudent) (Student, error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return Student{}, err
	}
	ns.Clean()
	if err := svc.validateStudent(ctx, ns, 0); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	std := Student{CreatedAt: now, UpdatedAt: now}
	ns.apply(&std)
	std, err := svc.repo.CreateStudent(ctx, std)
	if err != nil {
		return Student{}, uniquenessError(err)
	}
	return std, nil
}

func (svc *Service) Update(ctx context.Context, actor *user.Actor, id int64, us UpdateStudent) (Student, error) {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return Student{}, err
	}
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	ns := NewStudent(us)
	ns.Clean()
	if err = svc.validateStudent(ctx, ns, id); err != nil {
		return Student{}, err
	}

	ns.apply(&std)
	std.UpdatedAt = time.Now().UTC()
	if std, err = svc.repo.UpdateStudent(ctx, std); err != nil {
		return Student{}, uniquenessError(err)
	}
	return std, nil
}

func (svc *Service) Delete(ctx context.Context, actor *user.Actor, id int64) error {
	if err := access.AuthorizeAdmin(actor); err != nil {
		return err
	}
	return svc.repo.DeleteStudent(ctx, id)
}

// CountIn counts the students within scope.
func (svc *Service) CountIn(ctx context.Context, scope access.Scope) (int, error) {
	if scope.IsEmpty() {
		return 0, nil
	}
	n, err := svc.repo.CountStudents(ctx, scope)
	return n, errors.Wrap(err, "counting students")
}
