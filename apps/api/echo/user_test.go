package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/testutil"
)

func Test_home(t *testing.T) {
	app := setup(t)

	rec := app.do(httpTest{path: "/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Mahudhurio API!", rec.Body.String())

	var health struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	rec = app.do(httpTest{path: "/health-check"})
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &health)
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Timestamp)
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.UserRepo, "Maria", "maria@school.test", user.RoleTeacher, testutil.Password)
	failed := marshallObj(t, httpErr{Error: "invalid email or password"})

	app.run(t, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marshallObj(t, user.Login{Email: "maria@school.test", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: failed,
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/login",
			body:     marshallObj(t, user.Login{Email: "nobody@school.test", Password: testutil.Password}),
			wantCode: http.StatusBadRequest, wantData: failed,
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name: "malformed body", method: http.MethodPost, path: "/v1/users/login",
			body: []byte(`{"email":`), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := app.do(httpTest{
			method: http.MethodPost, path: "/v1/users/login",
			body: marshallObj(t, user.Login{Email: "Maria@School.test", Password: testutil.Password}),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.LoginResponse
		unmarshall(t, rec, &resp)
		require.NotEmpty(t, resp.Token)

		// the token authenticates
		rec = app.do(httpTest{path: "/v1/users/me", token: resp.Token})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin@school.test", user.RoleAdmin)
	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher@school.test", user.RoleTeacher)
	cls := testutil.CreateClass(t, app.ClassRepo, "Grade 1A")
	testutil.AssignClasses(t, app.UserRepo, teacher, cls.ID)

	expired := *app.conf
	expired.Server.JWTExpirationDelta = -time.Minute
	expiredToken, err := echoapi.GenerateToken(echoapi.GetUserClaims(admin, &expired), app.conf.SecretKey)
	require.NoError(t, err)
	forged, err := echoapi.GenerateToken(echoapi.GetUserClaims(admin, app.conf), "not the secret")
	require.NoError(t, err)
	ghost := app.token(t, user.User{ID: 9999, Role: user.RoleAdmin})
	invalid := marshallObj(t, httpErr{Error: "invalid or expired jwt"})

	app.run(t, []httpTest{
		{name: "auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "expired token", path: "/v1/users/me", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "forged token", path: "/v1/users/me", token: forged, wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "deleted user", path: "/v1/users/me", token: ghost, wantCode: http.StatusUnauthorized, wantData: invalid},
		{
			name: "admin", path: "/v1/users/me", token: app.token(t, admin), wantCode: http.StatusOK,
			wantData: marshallObj(t, user.NewActor(admin, nil)),
		},
		{
			name: "teacher with classes", path: "/v1/users/me", token: app.token(t, teacher), wantCode: http.StatusOK,
			wantData: marshallObj(t, user.NewActor(teacher, []int64{cls.ID})),
		},
	})
}
