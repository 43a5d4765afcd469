package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/mahudhurio/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

var Roles = []Role{RoleAdmin, RoleTeacher}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Role         Role      `db:"role" json:"role"`
	PasswordHash []byte    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"` // UTC
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }

// Actor is the authenticated user acting on a request, with the classes it is assigned to.
// ClassIDs is only meaningful for teachers.
type Actor struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     Role    `json:"role"`
	ClassIDs []int64 `json:"class_ids"`
}

func NewActor(usr User, classIDs []int64) *Actor {
	if classIDs == nil {
		classIDs = []int64{}
	}
	return &Actor{
		ID:       usr.ID,
		Name:     usr.Name,
		Email:    usr.Email,
		Role:     usr.Role,
		ClassIDs: classIDs,
	}
}

func (a *Actor) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"notblank,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Role            Role   `json:"role" validate:"required,userrole"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

type ResetPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// user attributes the password is checked against
	name, email string
}

type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
