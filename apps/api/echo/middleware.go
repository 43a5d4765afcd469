package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/mahudhurio/core/user"
)

// roleMiddleware only lets actors having one of roles through.
// Class scoping is left to the services.
func roleMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getContextActor(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if actor.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin, user.RoleTeacher)
}
