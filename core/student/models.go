package student

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
)

// RecentRecordsCount is the number of attendance records shown with a student.
const RecentRecordsCount = 20

type Student struct {
	ID          int64       `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	StudentCode string      `db:"student_code" json:"student_code"` // unique
	ClassID     int64       `db:"class_id" json:"class_id"`
	DateOfBirth null.String `db:"date_of_birth" json:"date_of_birth"` // YYYY-MM-DD
	Email       null.String `db:"email" json:"email"`
	Phone       null.String `db:"phone" json:"phone"`
	Address     null.String `db:"address" json:"address"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"` // UTC
}

// ListItem is a Student as shown in listings.
type ListItem struct {
	Student
	ClassName string `db:"class_name" json:"class_name"`
}

// Detail is a Student with its class and most recent attendance.
type Detail struct {
	Student
	Class      class.Class               `json:"class"`
	Attendance []attendance.RecordDetail `json:"attendance"`
}

// Filter narrows students. Empty values do not filter.
type Filter struct {
	ClassID int64  `query:"class_id" json:"class_id,omitempty" validate:"gte=0"`
	Search  string `query:"search" json:"search,omitempty"` // case-insensitive, on name or student code
	Page    int    `query:"page" json:"page,omitempty"`
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search)
}

// Listing is a page of students with what is needed to filter them further.
type Listing struct {
	Students core.Page[ListItem] `json:"students"`
	Classes  []class.Option      `json:"classes"`
	Filters  Filter              `json:"filters"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name        string `json:"name" validate:"notblank,max=255"`
	StudentCode string `json:"student_code" validate:"notblank,max=50"`
	ClassID     int64  `json:"class_id" validate:"required,gt=0"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02,beforetoday"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	Phone       string `json:"phone" validate:"max=20"`
	Address     string `json:"address" validate:"max=500"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.StudentCode = core.CleanString(ns.StudentCode)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Address = core.CleanString(ns.Address)
}

func (ns NewStudent) apply(std *Student) {
	std.Name = ns.Name
	std.StudentCode = ns.StudentCode
	std.ClassID = ns.ClassID
	std.DateOfBirth = nullString(ns.DateOfBirth)
	std.Email = nullString(ns.Email)
	std.Phone = nullString(ns.Phone)
	std.Address = nullString(ns.Address)
}

// UpdateStudent defines the information used to modify an existing Student; every field is replaced.
type UpdateStudent NewStudent

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
