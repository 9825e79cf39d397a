package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core/class"
)

const contextMemberKey = "member"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// classMemberMiddleware loads the membership of the authenticated user in the :class_id class.
// Non members get a 404 so class ids do not leak.
func classMemberMiddleware(svc *class.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			m, err := svc.Member(ctx.Request().Context(), claims.Email, ctx.Param("class_id"))
			if err != nil {
				if errors.Cause(err) == class.ErrNotMember {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class member")
			}
			ctx.Set(contextMemberKey, m)
			return next(ctx)
		}
	}
}

func getContextMember(ctx echo.Context) class.Member {
	m, _ := ctx.Get(contextMemberKey).(class.Member)
	return m
}

// helperMiddleware only lets through members who can work the help queue.
func helperMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if getContextMember(ctx).Role.CanHelp() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if getContextMember(ctx).Role.IsTeacher() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
