// Package testutil wires the services on the in-memory repositories and creates fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/dashboard"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Sup3r$ecret"

// NewValidate returns a validator with every validation of the app registered.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

type Env struct {
	DB         *inmemdb.DB
	Translator ut.Translator

	UserRepo       user.Repository
	ClassRepo      class.Repository
	StudentRepo    student.Repository
	AttendanceRepo attendance.Repository

	UserSvc       *user.Service
	ClassSvc      *class.Service
	StudentSvc    *student.Service
	AttendanceSvc *attendance.Service
	DashboardSvc  *dashboard.Service
}

// NewEnv returns the services wired on a fresh in-memory database.
func NewEnv() *Env {
	validate, translator := NewValidate()
	db := inmemdb.Open()
	env := &Env{
		DB:             db,
		Translator:     translator,
		UserRepo:       inmemdb.NewUserRepository(db),
		ClassRepo:      inmemdb.NewClassRepository(db),
		StudentRepo:    inmemdb.NewStudentRepository(db),
		AttendanceRepo: inmemdb.NewAttendanceRepository(db),
	}
	env.UserSvc = user.NewService(env.UserRepo, validate)
	env.ClassSvc = class.NewService(env.ClassRepo, validate)
	env.AttendanceSvc = attendance.NewService(env.AttendanceRepo, env.ClassSvc, validate)
	env.StudentSvc = student.NewService(env.StudentRepo, env.ClassSvc, env.AttendanceSvc, validate)
	env.DashboardSvc = dashboard.NewService(env.StudentSvc, env.ClassSvc, env.AttendanceSvc)
	return env
}

func CreateUser(t *testing.T, repo user.Repository, name, email string, role user.Role, pwd ...string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(pwd) > 0 {
		if err := usr.SetPassword(pwd[0]); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo class.Repository, name string, createdAt ...time.Time) class.Class {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	cls, err := repo.CreateClass(context.Background(), class.Class{Name: name, CreatedAt: tstamp, UpdatedAt: tstamp})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo student.Repository, name, code string, classID int64, createdAt ...time.Time) student.Student {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	std, err := repo.CreateStudent(context.Background(), student.Student{
		Name:        name,
		StudentCode: code,
		ClassID:     classID,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// AssignClasses assigns the teacher to classIDs and returns its Actor.
func AssignClasses(t *testing.T, repo user.Repository, teacher user.User, classIDs ...int64) *user.Actor {
	t.Helper()
	if err := repo.SetAssignedClassIDs(context.Background(), teacher.ID, classIDs); err != nil {
		t.Fatalf("AssignClasses() failed: %v", err)
	}
	return user.NewActor(teacher, classIDs)
}

func Mark(t *testing.T, svc *attendance.Service, actor *user.Actor, date string, entries ...attendance.Entry) attendance.MarkResult {
	t.Helper()
	res, err := svc.Mark(context.Background(), actor, attendance.MarkRequest{Date: date, Attendance: entries})
	if err != nil {
		t.Fatalf("Mark() failed: %v", err)
	}
	return res
}
