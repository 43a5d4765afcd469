package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/class"
)

type (
	pageQuery struct {
		Page int `query:"page"`
	}

	classApi struct {
		svc *class.Service
	}
)

func registerClassAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *class.Service) {
	api := classApi{svc: svc}

	cg := g.Group("/classes", auth)
	cg.GET("/options", api.options, staffMiddleware())
	cg.GET("", api.list, adminMiddleware())
	cg.POST("", api.create, adminMiddleware())

	dg := cg.Group("/:id", adminMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.PUT("/teachers", api.setTeachers)
}

// Handlers

func (api *classApi) list(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var pq pageQuery
	if err = bindQuery(ctx, &pq); err != nil {
		return err
	}

	page, err := api.svc.List(ctx.Request().Context(), actor, pq.Page)
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *classApi) options(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	opts, err := api.svc.Options(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying class options")
	}
	return ctx.JSON(http.StatusOK, opts)
}

func (api *classApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data class.NewClass
	if err = bindBody(ctx, &data); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	detail, err := api.svc.Get(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *classApi) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data class.UpdateClass
	if err = bindBody(ctx, &data); err != nil {
		return err
	}

	cls, err := api.svc.Update(ctx.Request().Context(), actor, id, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) setTeachers(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data class.AssignTeachers
	if err = bindBody(ctx, &data); err != nil {
		return err
	}

	teachers, err := api.svc.SetTeachers(ctx.Request().Context(), actor, id, data)
	if err != nil {
		return errors.Wrap(err, "assigning teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}
