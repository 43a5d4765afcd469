package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotTeacher         = errors.New("only teachers can be assigned to classes")
	ErrClassNotFound      = errors.New("class not found")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if a user other than excludedID owns email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedID int64) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers returns the users having role, all users if role is empty; ordered by name.
		QueryUsers(ctx context.Context, role Role) ([]User, error)
		QueryAssignedClassIDs(ctx context.Context, userID int64) ([]int64, error)
		// SetAssignedClassIDs replaces the classes assigned to the user.
		SetAssignedClassIDs(ctx context.Context, userID int64, classIDs []int64) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excludedID int64) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedID); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email, 0); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// QueryTeachers returns all teachers ordered by name.
func (svc *Service) QueryTeachers(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx, RoleTeacher)
}

// Authenticate returns the user matching the credentials, ErrInvalidCredentials otherwise.
func (svc *Service) Authenticate(ctx context.Context, login Login) (User, error) {
	if err := svc.validate.Struct(login); err != nil {
		return User{}, err
	}
	usr, err := svc.GetByEmail(ctx, login.Email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(login.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

// ResolveActor loads the user with id along with its assigned classes.
func (svc *Service) ResolveActor(ctx context.Context, id int64) (*Actor, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var classIDs []int64
	if usr.IsTeacher() {
		if classIDs, err = svc.repo.QueryAssignedClassIDs(ctx, usr.ID); err != nil {
			return nil, errors.Wrap(err, "querying assigned classes")
		}
	}
	return NewActor(usr, classIDs), nil
}

func (svc *Service) ResetPassword(ctx context.Context, email string, rp ResetPassword) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	rp.name, rp.email = usr.Name, usr.Email
	if err = svc.validate.Struct(rp); err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// AssignClasses replaces the classes of the teacher owning email.
func (svc *Service) AssignClasses(ctx context.Context, email string, classIDs []int64) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsTeacher() {
		return ErrNotTeacher
	}
	return svc.repo.SetAssignedClassIDs(ctx, usr.ID, core.UniqueIDs(classIDs))
}
