package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/dashboard"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/testutil"
)

func Test_classApi(t *testing.T) {
	app := setup(t)
	adminUsr := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@school.test", user.RoleAdmin)
	teacherUsr := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher@school.test", user.RoleTeacher)
	clsA := testutil.CreateClass(t, app.ClassRepo, "Grade 1A")
	testutil.CreateClass(t, app.ClassRepo, "Grade 1B")
	testutil.AssignClasses(t, app.UserRepo, teacherUsr, clsA.ID)

	adminToken := app.token(t, adminUsr)
	teacherToken := app.token(t, teacherUsr)
	forbidden := marshallObj(t, httpErr{Error: "permission denied"})

	app.run(t, []httpTest{
		{name: "teacher cannot list", path: "/v1/classes", token: teacherToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "teacher cannot show", path: "/v1/classes/" + itoa(clsA.ID), token: teacherToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "teacher options", path: "/v1/classes/options", token: teacherToken, wantCode: http.StatusOK,
			wantData: marshallObj(t, []class.Option{{ID: clsA.ID, Name: clsA.Name}}),
		},
		{
			name: "name required", method: http.MethodPost, path: "/v1/classes", token: adminToken,
			body: []byte(`{"grade":"1"}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"name": "this field cannot be blank"}),
		},
		{name: "unknown", method: http.MethodDelete, path: "/v1/classes/9999", token: adminToken, wantCode: http.StatusNotFound},
	})

	t.Run("create, assign & delete", func(t *testing.T) {
		rec := app.do(httpTest{
			method: http.MethodPost, path: "/v1/classes", token: adminToken,
			body: marshallObj(t, class.NewClass{Name: "Grade 2A", Grade: "2"}),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var cls class.Class
		unmarshall(t, rec, &cls)
		assert.Equal(t, "2", cls.Grade.String)
		path := "/v1/classes/" + itoa(cls.ID)

		rec = app.do(httpTest{
			method: http.MethodPut, path: path + "/teachers", token: adminToken,
			body: marshallObj(t, class.AssignTeachers{TeacherIDs: []int64{teacherUsr.ID}}),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.do(httpTest{path: "/v1/users/me", token: teacherToken})
		var me user.Actor
		unmarshall(t, rec, &me)
		assert.ElementsMatch(t, []int64{clsA.ID, cls.ID}, me.ClassIDs)

		rec = app.do(httpTest{
			method: http.MethodPut, path: path + "/teachers", token: adminToken,
			body: marshallObj(t, class.AssignTeachers{TeacherIDs: []int64{adminUsr.ID}}),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(httpTest{path: "/v1/classes?page=1", token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var page core.Page[class.ListItem]
		unmarshall(t, rec, &page)
		assert.Equal(t, 3, page.Total)

		rec = app.do(httpTest{method: http.MethodDelete, path: path, token: adminToken})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(httpTest{path: path, token: adminToken})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_dashboardApi(t *testing.T) {
	app := setup(t)
	adminUsr := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@school.test", user.RoleAdmin)
	teacherUsr := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher@school.test", user.RoleTeacher)
	clsA := testutil.CreateClass(t, app.ClassRepo, "Grade 1A")
	testutil.CreateStudent(t, app.StudentRepo, "Maria", "STU1001", clsA.ID)

	rec := app.do(httpTest{path: "/v1/dashboard", token: app.token(t, adminUsr)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats dashboard.Stats
	unmarshall(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalStudents)
	require.NotNil(t, stats.TodayAbsences)

	// a teacher without classes sees nothing
	rec = app.do(httpTest{path: "/v1/dashboard", token: app.token(t, teacherUsr)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats = dashboard.Stats{}
	unmarshall(t, rec, &stats)
	assert.Zero(t, stats.TotalStudents)
	assert.Zero(t, stats.TotalClasses)
	assert.Empty(t, stats.RecentAttendance)
}
