package class

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
)

type Class struct {
	ID          int64       `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Grade       null.String `db:"grade" json:"grade"`
	Description null.String `db:"description" json:"description"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"` // UTC
}

type Teacher struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

type Student struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	StudentCode string `db:"student_code" json:"student_code"`
}

// ListItem is a Class as shown in the class index.
type ListItem struct {
	Class
	StudentsCount int       `db:"students_count" json:"students_count"`
	Teachers      []Teacher `db:"-" json:"teachers"`
}

// Detail is a Class with its students and teachers.
type Detail struct {
	Class
	Students []Student `json:"students"`
	Teachers []Teacher `json:"teachers"`
}

// Option is a Class in a dropdown list.
type Option struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Summary is a Class with its number of students.
type Summary struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	StudentsCount int    `db:"students_count" json:"students_count"`
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string `json:"name" validate:"notblank,max=255"`
	Grade       string `json:"grade" validate:"max=50"`
	Description string `json:"description" validate:"max=1000"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Grade = core.CleanString(nc.Grade)
	nc.Description = core.CleanString(nc.Description)
}

// UpdateClass defines the information used to modify an existing Class; every field is replaced.
type UpdateClass NewClass

// AssignTeachers replaces the teachers of a Class.
type AssignTeachers struct {
	TeacherIDs []int64 `json:"teacher_ids" validate:"dive,gt=0"`
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
