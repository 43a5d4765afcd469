package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

var errInvalidID = echo.NewHTTPError(http.StatusNotFound, "not found")

// pathID reads the positive integer id path parameter.
func pathID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

// bindQuery binds the query string only, whatever the request method.
func bindQuery(ctx echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, dst); err != nil {
		return errors.Wrap(err, "binding query params")
	}
	return nil
}

// bindBody binds the request body only, so that path and query params cannot leak into payloads.
func bindBody(ctx echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, dst); err != nil {
		return errors.Wrap(err, "binding request body")
	}
	return nil
}
