package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

type (
	LoginResponse struct {
		Token string `json:"token"`
	}

	userApi struct {
		conf *core.Config
		svc  *user.Service
	}
)

func registerUserAPI(g *echo.Group, auth echo.MiddlewareFunc, conf *core.Config, svc *user.Service) {
	api := userApi{conf: conf, svc: svc}

	ug := g.Group("/users")
	ug.POST("/login", api.login)
	ug.GET("/me", api.me, auth)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data user.Login
	if err := bindBody(ctx, &data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, actor)
}
