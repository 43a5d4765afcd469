package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/testutil"
)

func TestService_Stats(t *testing.T) {
	env := testutil.NewEnv()
	admin := user.NewActor(testutil.CreateUser(t, env.UserRepo, "Admin", "admin@school.test", user.RoleAdmin), nil)
	teacherUsr := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher@school.test", user.RoleTeacher)
	clsA := testutil.CreateClass(t, env.ClassRepo, "Grade 1A")
	clsB := testutil.CreateClass(t, env.ClassRepo, "Grade 1B")
	teacher := testutil.AssignClasses(t, env.UserRepo, teacherUsr, clsA.ID)

	maria := testutil.CreateStudent(t, env.StudentRepo, "Maria", "STU1001", clsA.ID)
	john := testutil.CreateStudent(t, env.StudentRepo, "John", "STU1002", clsA.ID)
	amina := testutil.CreateStudent(t, env.StudentRepo, "Amina", "STU1003", clsB.ID)

	today := time.Now().Format(core.DateLayout)
	testutil.Mark(t, env.AttendanceSvc, admin, today,
		attendance.Entry{StudentID: maria.ID, Status: attendance.StatusPresent},
		attendance.Entry{StudentID: john.ID, Status: attendance.StatusSick},
		attendance.Entry{StudentID: amina.ID, Status: attendance.StatusAbsent},
	)
	testutil.Mark(t, env.AttendanceSvc, admin, "2024-03-01",
		attendance.Entry{StudentID: amina.ID, Status: attendance.StatusLate},
	)
	ctx := context.Background()

	t.Run("admin", func(t *testing.T) {
		stats, err := env.DashboardSvc.Stats(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, today, stats.Date)
		assert.Equal(t, 3, stats.TotalStudents)
		assert.Equal(t, 2, stats.TotalClasses)
		assert.Equal(t, 3, stats.TodayAttendance)
		require.NotNil(t, stats.TodayAbsences)
		assert.Equal(t, 2, *stats.TodayAbsences)
		assert.Nil(t, stats.Classes)
		assert.Len(t, stats.RecentAttendance, 4)
	})

	t.Run("teacher", func(t *testing.T) {
		stats, err := env.DashboardSvc.Stats(ctx, teacher)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalStudents)
		assert.Equal(t, 1, stats.TotalClasses)
		assert.Equal(t, 2, stats.TodayAttendance)
		assert.Nil(t, stats.TodayAbsences)
		require.Len(t, stats.Classes, 1)
		assert.Equal(t, 2, stats.Classes[0].StudentsCount)
		require.Len(t, stats.RecentAttendance, 2)
		for _, rec := range stats.RecentAttendance {
			assert.Equal(t, clsA.ID, rec.ClassID)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := env.DashboardSvc.Stats(ctx, nil)
		assert.Equal(t, core.ErrUnauthenticated, err)
	})
}
