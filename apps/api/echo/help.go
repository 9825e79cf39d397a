package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core/help"
)

type helpApi struct {
	svc *help.Service
}

// registerHelpAPI mounts the help queue under a class group whose members are
// already loaded by classMemberMiddleware.
func registerHelpAPI(cg *echo.Group, svc *help.Service) {
	api := helpApi{svc: svc}

	cg.POST("/help", api.request)
	cg.GET("/help/:id", api.retrieve)
	cg.GET("/queue", api.list(help.StatusQueued))
	cg.GET("/in-progress", api.list(help.StatusInProgress))
	cg.GET("/done", api.list(help.StatusDone))
	cg.GET("/discarded", api.list(help.StatusDiscarded))

	helper := helperMiddleware()
	cg.POST("/help/next", api.next, helper)
	cg.POST("/help/:id/take", api.take, helper)
	cg.POST("/help/:id/requeue", api.transition(svc.Requeue), helper)
	cg.POST("/help/:id/done", api.transition(svc.Finish), helper)
	cg.POST("/help/:id/reopen", api.transition(svc.Reopen), helper)
	cg.POST("/help/:id/discard", api.transition(svc.Discard), helper)
}

// Handlers

func (api *helpApi) request(ctx echo.Context) error {
	var data help.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}

	m := getContextMember(ctx)
	r, err := api.svc.Request(ctx.Request().Context(), m.Email, m.ClassID, data)
	if err != nil {
		return errors.Wrap(err, "requesting help")
	}
	return ctx.JSON(http.StatusCreated, r)
}

// retrieve lets students see their own requests only.
func (api *helpApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	m := getContextMember(ctx)
	r, err := api.svc.Get(ctx.Request().Context(), m.ClassID, id)
	if err != nil {
		return errors.Wrap(err, "finding help request")
	}
	if !m.Role.CanHelp() && r.Requester != m.Email {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *helpApi) list(status help.Status) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m := getContextMember(ctx)
		items, err := api.svc.List(ctx.Request().Context(), m.ClassID, status)
		if err != nil {
			return errors.Wrapf(err, "listing %s help requests", status)
		}
		return ctx.JSON(http.StatusOK, items)
	}
}

func (api *helpApi) next(ctx echo.Context) error {
	m := getContextMember(ctx)
	r, err := api.svc.Next(ctx.Request().Context(), m.ClassID, m.Email)
	if err != nil {
		if errors.Cause(err) == help.ErrEmptyQueue {
			return ctx.NoContent(http.StatusNoContent)
		}
		return errors.Wrap(err, "claiming next help request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *helpApi) take(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	m := getContextMember(ctx)
	r, err := api.svc.Take(ctx.Request().Context(), m.ClassID, id, m.Email)
	if err != nil {
		return errors.Wrap(err, "taking help request")
	}
	return ctx.JSON(http.StatusOK, r)
}

type transitionFunc func(ctx context.Context, classID string, id int64) (help.HelpRequest, error)

func (api *helpApi) transition(apply transitionFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := paramID(ctx, "id")
		if err != nil {
			return err
		}

		r, err := apply(ctx.Request().Context(), getContextMember(ctx).ClassID, id)
		if err != nil {
			return errors.Wrap(err, "updating help request")
		}
		return ctx.JSON(http.StatusOK, r)
	}
}
