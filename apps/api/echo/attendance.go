package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type (
	// SummaryResponse is a listing along with the count of matching records per status.
	// Every status is present in Summary, zero included.
	SummaryResponse struct {
		attendance.Listing
		Summary map[attendance.Status]int `json:"summary"`
	}

	attendanceApi struct {
		svc *attendance.Service
	}
)

func registerAttendanceAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", auth, staffMiddleware())
	ag.GET("", api.list)
	ag.POST("", api.mark)
	ag.GET("/sheet", api.sheet)
	ag.GET("/summary", api.summary)
}

// Handlers

func (api *attendanceApi) list(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var filter attendance.Filter
	if err = bindQuery(ctx, &filter); err != nil {
		return err
	}

	listing, err := api.svc.List(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	return ctx.JSON(http.StatusOK, listing)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var filter attendance.Filter
	if err = bindQuery(ctx, &filter); err != nil {
		return err
	}

	listing, err := api.svc.List(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	counts, err := api.svc.Summary(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}

	summary := make(map[attendance.Status]int, len(attendance.Statuses))
	for _, status := range attendance.Statuses {
		summary[status] = counts[status]
	}
	return ctx.JSON(http.StatusOK, SummaryResponse{Listing: listing, Summary: summary})
}

func (api *attendanceApi) sheet(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var req attendance.SheetRequest
	if err = bindQuery(ctx, &req); err != nil {
		return err
	}

	sheet, err := api.svc.Sheet(ctx.Request().Context(), actor, req)
	if err != nil {
		return errors.Wrap(err, "building attendance sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data attendance.MarkRequest
	if err = bindBody(ctx, &data); err != nil {
		return err
	}

	res, err := api.svc.Mark(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, res)
}
