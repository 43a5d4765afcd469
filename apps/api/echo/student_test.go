package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/testutil"
)

func Test_studentApi(t *testing.T) {
	app := setup(t)
	adminUsr := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@school.test", user.RoleAdmin)
	teacherUsr := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher@school.test", user.RoleTeacher)
	clsA := testutil.CreateClass(t, app.ClassRepo, "Grade 1A")
	clsB := testutil.CreateClass(t, app.ClassRepo, "Grade 1B")
	testutil.AssignClasses(t, app.UserRepo, teacherUsr, clsA.ID)
	maria := testutil.CreateStudent(t, app.StudentRepo, "Maria", "STU1001", clsA.ID)
	testutil.CreateStudent(t, app.StudentRepo, "Tomas", "STU-MAR-7", clsB.ID)

	adminToken := app.token(t, adminUsr)
	teacherToken := app.token(t, teacherUsr)
	forbidden := marshallObj(t, httpErr{Error: "permission denied"})
	notFound := marshallObj(t, httpErr{Error: "not found"})

	app.run(t, []httpTest{
		{name: "auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "teacher cannot show", path: "/v1/students/" + itoa(maria.ID), token: teacherToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "teacher cannot create", method: http.MethodPost, path: "/v1/students", token: teacherToken,
			body:     marshallObj(t, student.NewStudent{Name: "X", StudentCode: "X1", ClassID: clsA.ID}),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "unknown", path: "/v1/students/9999", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "bad id", path: "/v1/students/abc", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "duplicate code", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     marshallObj(t, student.NewStudent{Name: "Other", StudentCode: "STU1001", ClassID: clsA.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"student_code": "the student code has already been taken"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     []byte(`{"name":"  "}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"name":         "this field cannot be blank",
				"student_code": "this field cannot be blank",
				"class_id":     "this field is required",
			}),
		},
	})

	t.Run("search", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/students?search=mar", token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var listing student.Listing
		unmarshall(t, rec, &listing)
		assert.Equal(t, 2, listing.Students.Total)
		assert.Equal(t, "mar", listing.Filters.Search)
	})

	t.Run("teacher lists their students", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/students", token: teacherToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var listing student.Listing
		unmarshall(t, rec, &listing)
		require.Len(t, listing.Students.Data, 1)
		assert.Equal(t, maria.ID, listing.Students.Data[0].ID)
	})

	t.Run("create, update & delete", func(t *testing.T) {
		rec := app.do(httpTest{
			method: http.MethodPost, path: "/v1/students", token: adminToken,
			body: marshallObj(t, student.NewStudent{Name: "Amina", StudentCode: "STU1003", ClassID: clsB.ID, Phone: "+243 81 000 0000"}),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var std student.Student
		unmarshall(t, rec, &std)
		assert.Equal(t, "+243 81 000 0000", std.Phone.String)
		path := "/v1/students/" + itoa(std.ID)

		rec = app.do(httpTest{
			method: http.MethodPut, path: path, token: adminToken,
			body: marshallObj(t, student.UpdateStudent{Name: "Amina K.", StudentCode: "STU1003", ClassID: clsA.ID}),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshall(t, rec, &std)
		assert.Equal(t, "Amina K.", std.Name)
		assert.False(t, std.Phone.Valid)

		rec = app.do(httpTest{path: path, token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail student.Detail
		unmarshall(t, rec, &detail)
		assert.Equal(t, clsA.Name, detail.Class.Name)
		assert.Empty(t, detail.Attendance)

		rec = app.do(httpTest{method: http.MethodDelete, path: path, token: adminToken})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(httpTest{path: path, token: adminToken})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
