package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/class"
)

type Status string

// Statuses
const (
	StatusPresent    Status = "present"
	StatusPermission Status = "permission"
	StatusSick       Status = "sick"
	StatusLate       Status = "late"
	StatusAbsent     Status = "absent"
)

var (
	Statuses = []Status{StatusPresent, StatusPermission, StatusSick, StatusLate, StatusAbsent}

	// AbsenceStatuses are counted as absences on the dashboard.
	AbsenceStatuses = []Status{StatusAbsent, StatusSick, StatusLate}

	statusLabels = map[Status]string{
		StatusPresent:    "Present",
		StatusPermission: "Permission",
		StatusSick:       "Sick",
		StatusLate:       "Late",
		StatusAbsent:     "Absent",
	}
)

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string { return statusLabels[s] }

type StatusOption struct {
	Value Status `json:"value"`
	Label string `json:"label"`
}

func StatusOptions() []StatusOption {
	opts := make([]StatusOption, 0, len(Statuses))
	for _, s := range Statuses {
		opts = append(opts, StatusOption{Value: s, Label: s.Label()})
	}
	return opts
}

// Record is the attendance of one student on one date. (StudentID, Date) is unique.
type Record struct {
	ID        int64       `db:"id" json:"id"`
	StudentID int64       `db:"student_id" json:"student_id"`
	Date      string      `db:"date" json:"date"` // YYYY-MM-DD
	Status    Status      `db:"status" json:"status"`
	Notes     null.String `db:"notes" json:"notes"`
	MarkedBy  int64       `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"` // UTC
}

// RecordDetail is a Record along with its student, class and marker.
type RecordDetail struct {
	Record
	StudentName  string `db:"student_name" json:"student_name"`
	StudentCode  string `db:"student_code" json:"student_code"`
	ClassID      int64  `db:"class_id" json:"class_id"`
	ClassName    string `db:"class_name" json:"class_name"`
	MarkedByName string `db:"marked_by_name" json:"marked_by_name"`
}

// Filter narrows attendance records. Empty values do not filter.
type Filter struct {
	Date     string `query:"date" json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ClassID  int64  `query:"class_id" json:"class_id,omitempty" validate:"gte=0"`
	Status   Status `query:"status" json:"status,omitempty" validate:"omitempty,attstatus"`
	DateFrom string `query:"date_from" json:"date_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `query:"date_to" json:"date_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Page     int    `query:"page" json:"page,omitempty"`

	StudentID int64    `query:"-" json:"-"`
	Statuses  []Status `query:"-" json:"-"` // any of
}

func (f *Filter) Clean() {
	f.Date = core.CleanString(f.Date)
	f.Status = Status(core.CleanString(string(f.Status)))
	f.DateFrom = core.CleanString(f.DateFrom)
	f.DateTo = core.CleanString(f.DateTo)
}

// Query is a Filter restricted to a Scope. Listing, counting and summarizing share it.
type Query struct {
	Scope  access.Scope
	Filter Filter
}

// Entry is one student's attendance in a marking batch.
type Entry struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Status    Status `json:"status" validate:"required,attstatus"`
	Notes     string `json:"notes" validate:"max=500"`
}

// MarkRequest is a batch of attendance entries for one date.
type MarkRequest struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02,notfuture"`
	Attendance []Entry `json:"attendance" validate:"required,min=1,dive"`
}

func (mr *MarkRequest) Clean() {
	mr.Date = core.CleanString(mr.Date)
	for i := range mr.Attendance {
		mr.Attendance[i].Status = Status(core.CleanString(string(mr.Attendance[i].Status)))
		mr.Attendance[i].Notes = core.CleanString(mr.Attendance[i].Notes)
	}
}

// entries returns the batch with duplicate students collapsed to their last entry, in first-seen order.
func (mr *MarkRequest) entries() []Entry {
	pos := make(map[int64]int, len(mr.Attendance))
	out := make([]Entry, 0, len(mr.Attendance))
	for _, e := range mr.Attendance {
		if i, ok := pos[e.StudentID]; ok {
			out[i] = e
			continue
		}
		pos[e.StudentID] = len(out)
		out = append(out, e)
	}
	return out
}

type MarkResult struct {
	Date    string `json:"date"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// Listing is a page of records with what is needed to filter them further.
type Listing struct {
	Records  core.Page[RecordDetail] `json:"records"`
	Classes  []class.Option          `json:"classes"`
	Filters  Filter                  `json:"filters"`
	Statuses []StatusOption          `json:"statuses"`
}

type SheetRequest struct {
	Date    string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
	ClassID int64  `query:"class_id" json:"class_id" validate:"gte=0"`
}

// Sheet is what a marker needs to mark a class on a date.
type Sheet struct {
	Date            string                 `json:"date"`
	Classes         []class.Option         `json:"classes"`
	SelectedClassID int64                  `json:"selected_class_id,omitempty"`
	Students        []class.Student        `json:"students"`
	Records         map[int64]RecordDetail `json:"records"` // by student id
	Statuses        []StatusOption         `json:"statuses"`
}
