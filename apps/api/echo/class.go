package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/user"
)

type classApi struct {
	svc    *class.Service
	usrSvc user.Service
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *class.Service, usrSvc user.Service) {
	api := classApi{svc: svc, usrSvc: usrSvc}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.memberships)

	// admin endpoints
	admin := adminMiddleware()
	cg.POST("", api.create, admin)
	cg.GET("/google", api.courses, admin)
	cg.POST("/google/:google_id", api.importCourse, admin)
	cg.POST("/:class_id/resync", api.resync, admin)
}

// Handlers

func (api *classApi) memberships(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	items, err := api.svc.Memberships(ctx.Request().Context(), claims.Email)
	if err != nil {
		return errors.Wrap(err, "listing memberships")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *classApi) create(ctx echo.Context) error {
	var data NewClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	teacher := data.TeacherEmail
	if teacher == "" {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		teacher = claims.Email
	}

	cls, err := api.svc.Create(ctx.Request().Context(), data.ID, data.Name, teacher)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) courses(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	courses, err := api.svc.Courses(rctx)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	imported, err := api.svc.ImportedGoogleIDs(rctx)
	if err != nil {
		return errors.Wrap(err, "listing imported courses")
	}
	if courses == nil {
		courses = []class.Course{}
	}
	return ctx.JSON(http.StatusOK, CoursesResponse{Courses: courses, Imported: imported})
}

// importCourse creates the class with the authenticated admin as its teacher.
func (api *classApi) importCourse(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err := api.svc.ImportCourse(ctx.Request().Context(), ctx.Param("google_id"), usr.Email)
	if err != nil {
		return errors.Wrap(err, "importing course")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) resync(ctx echo.Context) error {
	if err := api.svc.ResyncCourse(ctx.Request().Context(), ctx.Param("class_id")); err != nil {
		return errors.Wrap(err, "resyncing course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func retrieveClass(svc *class.Service) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m := getContextMember(ctx)
		cls, err := svc.Get(ctx.Request().Context(), m.ClassID)
		if err != nil {
			return errors.Wrap(err, "finding class")
		}
		return ctx.JSON(http.StatusOK, class.Membership{Class: cls, Role: m.Role})
	}
}

type (
	NewClassRequest struct {
		ID           string `json:"id"`
		Name         string `json:"name" validate:"required"`
		TeacherEmail string `json:"teacher_email" validate:"omitempty,email"`
	}

	CoursesResponse struct {
		Courses  []class.Course `json:"courses"`
		Imported []string       `json:"imported"`
	}
)

func (nc *NewClassRequest) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.TeacherEmail = core.CleanString(nc.TeacherEmail, true /* lower */)
	return core.Validate.Struct(nc)
}

func studentStats(svc *class.Service) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ordering := new(Ordering)
		ordering.Bind(ctx)

		stats, err := svc.StudentStats(ctx.Request().Context(), getContextMember(ctx).ClassID, ordering.Orderings)
		if err != nil {
			return errors.Wrap(err, "computing student stats")
		}
		return ctx.JSON(http.StatusOK, stats)
	}
}
