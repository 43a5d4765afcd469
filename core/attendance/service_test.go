package attendance_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/testutil"
)

type fixture struct {
	env      *testutil.Env
	admin    *user.Actor
	teacher  *user.Actor // assigned to classA
	idle     *user.Actor // assigned to nothing
	classA   int64
	classB   int64
	studentA int64 // in classA
	studentB int64 // in classA
	studentC int64 // in classB
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv()
	adminUsr := testutil.CreateUser(t, env.UserRepo, "Admin", "admin@school.test", user.RoleAdmin)
	teacherUsr := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher@school.test", user.RoleTeacher)
	idleUsr := testutil.CreateUser(t, env.UserRepo, "Idle", "idle@school.test", user.RoleTeacher)

	classA := testutil.CreateClass(t, env.ClassRepo, "Grade 1A")
	classB := testutil.CreateClass(t, env.ClassRepo, "Grade 1B")

	return fixture{
		env:      env,
		admin:    user.NewActor(adminUsr, nil),
		teacher:  testutil.AssignClasses(t, env.UserRepo, teacherUsr, classA.ID),
		idle:     user.NewActor(idleUsr, nil),
		classA:   classA.ID,
		classB:   classB.ID,
		studentA: testutil.CreateStudent(t, env.StudentRepo, "Maria", "STU1001", classA.ID).ID,
		studentB: testutil.CreateStudent(t, env.StudentRepo, "John", "STU1002", classA.ID).ID,
		studentC: testutil.CreateStudent(t, env.StudentRepo, "Amina", "STU1003", classB.ID).ID,
	}
}

func (f fixture) all(t *testing.T) []attendance.RecordDetail {
	t.Helper()
	q := attendance.Query{Scope: access.Unrestricted()}
	records, _, err := f.env.AttendanceRepo.QueryRecords(context.Background(), q, core.NewPageRequest(1, 1000))
	require.NoError(t, err)
	return records
}

func TestService_Mark_CreatesThenUpdates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.env.AttendanceSvc.Mark(ctx, f.admin, attendance.MarkRequest{
		Date: "2024-03-01",
		Attendance: []attendance.Entry{
			{StudentID: f.studentA, Status: attendance.StatusPresent},
			{StudentID: f.studentB, Status: attendance.StatusAbsent, Notes: "called in"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.MarkResult{Date: "2024-03-01", Created: 2}, res)

	res, err = f.env.AttendanceSvc.Mark(ctx, f.admin, attendance.MarkRequest{
		Date:       "2024-03-01",
		Attendance: []attendance.Entry{{StudentID: f.studentA, Status: attendance.StatusLate}},
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.MarkResult{Date: "2024-03-01", Updated: 1}, res)

	records := f.all(t)
	require.Len(t, records, 2)
	byStudent := make(map[int64]attendance.RecordDetail)
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}
	assert.Equal(t, attendance.StatusLate, byStudent[f.studentA].Status)
	assert.Equal(t, attendance.StatusAbsent, byStudent[f.studentB].Status)
	assert.Equal(t, "called in", byStudent[f.studentB].Notes.String)
	assert.Equal(t, "Admin", byStudent[f.studentA].MarkedByName)
}

func TestService_Mark_LatestWriteWins(t *testing.T) {
	f := setup(t)
	testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-01",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusSick, Notes: "flu"})
	testutil.Mark(t, f.env.AttendanceSvc, f.teacher, "2024-03-01",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusPermission})

	records := f.all(t)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StatusPermission, records[0].Status)
	assert.False(t, records[0].Notes.Valid)
	assert.Equal(t, f.teacher.ID, records[0].MarkedBy)
}

func TestService_Mark_DuplicateStudentsCollapseToLast(t *testing.T) {
	f := setup(t)
	res := testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-01",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusPresent},
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusAbsent},
	)
	assert.Equal(t, 1, res.Created)

	records := f.all(t)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StatusAbsent, records[0].Status)
}

func TestService_Mark_Rejected(t *testing.T) {
	f := setup(t)
	tomorrow := time.Now().AddDate(0, 0, 1).Format(core.DateLayout)

	tests := []struct {
		name       string
		actor      *user.Actor
		req        attendance.MarkRequest
		wantErr    error
		wantFields []string
	}{
		{
			name:    "anonymous",
			req:     attendance.MarkRequest{Date: "2024-03-01", Attendance: []attendance.Entry{{StudentID: f.studentA, Status: attendance.StatusPresent}}},
			wantErr: core.ErrUnauthenticated,
		},
		{
			name:  "one student outside the teacher's classes",
			actor: f.teacher,
			req: attendance.MarkRequest{Date: "2024-03-01", Attendance: []attendance.Entry{
				{StudentID: f.studentA, Status: attendance.StatusPresent},
				{StudentID: f.studentC, Status: attendance.StatusPresent},
			}},
			wantErr: core.ErrForbidden,
		},
		{
			name:    "teacher without classes",
			actor:   f.idle,
			req:     attendance.MarkRequest{Date: "2024-03-01", Attendance: []attendance.Entry{{StudentID: f.studentA, Status: attendance.StatusPresent}}},
			wantErr: core.ErrForbidden,
		},
		{
			name:    "teacher with an empty batch",
			actor:   f.teacher,
			req:     attendance.MarkRequest{Date: "2024-03-01"},
			wantErr: core.ErrForbidden,
		},
		{
			name:       "admin with an empty batch",
			actor:      f.admin,
			req:        attendance.MarkRequest{Date: "2024-03-01"},
			wantFields: []string{"attendance"},
		},
		{
			name:       "future date",
			actor:      f.admin,
			req:        attendance.MarkRequest{Date: tomorrow, Attendance: []attendance.Entry{{StudentID: f.studentA, Status: attendance.StatusPresent}}},
			wantFields: []string{"date"},
		},
		{
			name:       "malformed date",
			actor:      f.admin,
			req:        attendance.MarkRequest{Date: "01/03/2024", Attendance: []attendance.Entry{{StudentID: f.studentA, Status: attendance.StatusPresent}}},
			wantFields: []string{"date"},
		},
		{
			name:  "one unknown status",
			actor: f.teacher,
			req: attendance.MarkRequest{Date: "2024-03-01", Attendance: []attendance.Entry{
				{StudentID: f.studentA, Status: attendance.StatusPresent},
				{StudentID: f.studentB, Status: "truant"},
			}},
			wantFields: []string{"attendance[1].status"},
		},
		{
			name:  "status in the wrong case",
			actor: f.admin,
			req: attendance.MarkRequest{Date: "2024-03-01", Attendance: []attendance.Entry{
				{StudentID: f.studentA, Status: "PRESENT"},
			}},
			wantFields: []string{"attendance[0].status"},
		},
		{
			name:  "notes too long",
			actor: f.admin,
			req: attendance.MarkRequest{Date: "2024-03-01", Attendance: []attendance.Entry{
				{StudentID: f.studentA, Status: attendance.StatusPresent, Notes: string(make([]rune, 501))},
			}},
			wantFields: []string{"attendance[0].notes"},
		},
		{
			name:  "unknown student",
			actor: f.admin,
			req: attendance.MarkRequest{Date: "2024-03-01", Attendance: []attendance.Entry{
				{StudentID: f.studentA, Status: attendance.StatusPresent},
				{StudentID: 9999, Status: attendance.StatusPresent},
			}},
			wantFields: []string{"attendance[1].student_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.AttendanceSvc.Mark(context.Background(), tt.actor, tt.req)
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			} else {
				assert.ElementsMatch(t, tt.wantFields, errorFields(t, err))
			}
			assert.Empty(t, f.all(t), "nothing must be written")
		})
	}
}

func errorFields(t *testing.T, err error) []string {
	t.Helper()
	var fields []string
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			fields = append(fields, core.FieldName(fe))
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			fields = append(fields, fe.Field)
		}
	default:
		t.Fatalf("not a validation error: %v", err)
	}
	return fields
}

func TestService_List_TeacherScope(t *testing.T) {
	f := setup(t)
	testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-01",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusPresent},
		attendance.Entry{StudentID: f.studentB, Status: attendance.StatusAbsent},
		attendance.Entry{StudentID: f.studentC, Status: attendance.StatusAbsent},
	)
	ctx := context.Background()

	listing, err := f.env.AttendanceSvc.List(ctx, f.teacher, attendance.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Records.Total)
	for _, rec := range listing.Records.Data {
		assert.Equal(t, f.classA, rec.ClassID)
	}
	require.Len(t, listing.Classes, 1)
	assert.Equal(t, f.classA, listing.Classes[0].ID)
	assert.Len(t, listing.Statuses, len(attendance.Statuses))

	// filtering on a foreign class does not widen the scope
	listing, err = f.env.AttendanceSvc.List(ctx, f.teacher, attendance.Filter{ClassID: f.classB})
	require.NoError(t, err)
	assert.Empty(t, listing.Records.Data)

	listing, err = f.env.AttendanceSvc.List(ctx, f.idle, attendance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, listing.Records.Data)
	assert.Empty(t, listing.Classes)
	assert.Equal(t, 1, listing.Records.LastPage)

	listing, err = f.env.AttendanceSvc.List(ctx, f.admin, attendance.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Records.Total)

	_, err = f.env.AttendanceSvc.List(ctx, nil, attendance.Filter{})
	assert.Equal(t, core.ErrUnauthenticated, err)
}

func TestService_List_Filters(t *testing.T) {
	f := setup(t)
	testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-01",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusPresent},
		attendance.Entry{StudentID: f.studentC, Status: attendance.StatusAbsent},
	)
	testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-04",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusLate},
		attendance.Entry{StudentID: f.studentB, Status: attendance.StatusPresent},
	)
	testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-08",
		attendance.Entry{StudentID: f.studentB, Status: attendance.StatusSick},
	)

	tests := []struct {
		name      string
		filter    attendance.Filter
		wantTotal int
	}{
		{name: "no filter", filter: attendance.Filter{}, wantTotal: 5},
		{name: "empty values do not filter", filter: attendance.Filter{Date: " ", Status: ""}, wantTotal: 5},
		{name: "date", filter: attendance.Filter{Date: "2024-03-04"}, wantTotal: 2},
		{name: "class", filter: attendance.Filter{ClassID: f.classB}, wantTotal: 1},
		{name: "status", filter: attendance.Filter{Status: " present "}, wantTotal: 2},
		{name: "inclusive range", filter: attendance.Filter{DateFrom: "2024-03-01", DateTo: "2024-03-04"}, wantTotal: 4},
		{name: "open range", filter: attendance.Filter{DateFrom: "2024-03-05"}, wantTotal: 1},
		{name: "combined", filter: attendance.Filter{ClassID: f.classA, Status: attendance.StatusPresent, DateTo: "2024-03-02"}, wantTotal: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := f.env.AttendanceSvc.List(context.Background(), f.admin, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, listing.Records.Total)
			assert.Len(t, listing.Records.Data, tt.wantTotal)

			// newest date first
			for i := 1; i < len(listing.Records.Data); i++ {
				assert.GreaterOrEqual(t, listing.Records.Data[i-1].Date, listing.Records.Data[i].Date)
			}

			// summary counts the same rows
			summary, err := f.env.AttendanceSvc.Summary(context.Background(), f.admin, tt.filter)
			require.NoError(t, err)
			var total int
			for _, n := range summary {
				assert.NotZero(t, n)
				total += n
			}
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestService_List_InvalidFilter(t *testing.T) {
	f := setup(t)
	_, err := f.env.AttendanceSvc.List(context.Background(), f.admin, attendance.Filter{Status: "truant", DateFrom: "yesterday"})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"status", "date_from"}, errorFields(t, err))
}

func TestService_List_StatusIsCaseSensitive(t *testing.T) {
	f := setup(t)
	_, err := f.env.AttendanceSvc.List(context.Background(), f.admin, attendance.Filter{Status: "Absent"})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"status"}, errorFields(t, err))
}

func TestService_List_Pagination(t *testing.T) {
	f := setup(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		testutil.Mark(t, f.env.AttendanceSvc, f.admin, start.AddDate(0, 0, i).Format(core.DateLayout),
			attendance.Entry{StudentID: f.studentA, Status: attendance.StatusPresent})
	}

	listing, err := f.env.AttendanceSvc.List(context.Background(), f.admin, attendance.Filter{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Records.CurrentPage)
	assert.Equal(t, 2, listing.Records.LastPage)
	assert.Equal(t, 20, listing.Records.PerPage)
	assert.Equal(t, 25, listing.Records.Total)
	require.Len(t, listing.Records.Data, 5)
	assert.Equal(t, "2024-01-05", listing.Records.Data[0].Date)

	listing, err = f.env.AttendanceSvc.List(context.Background(), f.admin, attendance.Filter{Page: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Records.CurrentPage)
	assert.Equal(t, "2024-01-25", listing.Records.Data[0].Date)

	assert.NotPanics(t, func() {
		listing, err = f.env.AttendanceSvc.List(context.Background(), f.admin, attendance.Filter{Page: math.MaxInt})
	})
	require.NoError(t, err)
	assert.Empty(t, listing.Records.Data)
	assert.Equal(t, 25, listing.Records.Total)
	assert.Equal(t, 2, listing.Records.LastPage)
}

func TestService_Summary_TeacherScope(t *testing.T) {
	f := setup(t)
	testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-01",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusPresent},
		attendance.Entry{StudentID: f.studentB, Status: attendance.StatusAbsent},
		attendance.Entry{StudentID: f.studentC, Status: attendance.StatusAbsent},
	)
	ctx := context.Background()

	summary, err := f.env.AttendanceSvc.Summary(ctx, f.teacher, attendance.Filter{})
	require.NoError(t, err)
	assert.Equal(t, map[attendance.Status]int{attendance.StatusPresent: 1, attendance.StatusAbsent: 1}, summary)

	summary, err = f.env.AttendanceSvc.Summary(ctx, f.admin, attendance.Filter{})
	require.NoError(t, err)
	assert.Equal(t, map[attendance.Status]int{attendance.StatusPresent: 1, attendance.StatusAbsent: 2}, summary)

	summary, err = f.env.AttendanceSvc.Summary(ctx, f.idle, attendance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestService_Sheet(t *testing.T) {
	f := setup(t)
	testutil.Mark(t, f.env.AttendanceSvc, f.admin, "2024-03-01",
		attendance.Entry{StudentID: f.studentA, Status: attendance.StatusLate})
	ctx := context.Background()

	sheet, err := f.env.AttendanceSvc.Sheet(ctx, f.teacher, attendance.SheetRequest{Date: "2024-03-01", ClassID: f.classA})
	require.NoError(t, err)
	assert.Equal(t, f.classA, sheet.SelectedClassID)
	assert.Len(t, sheet.Classes, 1)
	require.Len(t, sheet.Students, 2)
	assert.Equal(t, "John", sheet.Students[0].Name) // by name
	require.Contains(t, sheet.Records, f.studentA)
	assert.Equal(t, attendance.StatusLate, sheet.Records[f.studentA].Status)
	assert.NotContains(t, sheet.Records, f.studentB)

	// foreign class
	sheet, err = f.env.AttendanceSvc.Sheet(ctx, f.teacher, attendance.SheetRequest{ClassID: f.classB})
	require.NoError(t, err)
	assert.Zero(t, sheet.SelectedClassID)
	assert.Empty(t, sheet.Students)
	assert.Equal(t, time.Now().Format(core.DateLayout), sheet.Date)
}
