package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/journal"
	"github.com/gigamonkey/help/core/user"
)

type journalApi struct {
	svc      *journal.Service
	classSvc *class.Service
	usrSvc   user.Service
}

func registerJournalAPI(cg *echo.Group, svc *journal.Service, classSvc *class.Service, usrSvc user.Service) {
	api := journalApi{svc: svc, classSvc: classSvc, usrSvc: usrSvc}

	cg.GET("/journal", api.myJournal)
	cg.POST("/journal", api.write)
	cg.GET("/journal/:user_id", api.journalOf)

	pg := cg.Group("/prompts", teacherMiddleware())
	pg.GET("", api.prompts)
	pg.POST("", api.createPrompt)
	pg.GET("/:id", api.prompt)
	pg.POST("/:id/close", api.closePrompt)
	pg.POST("/:id/again", api.promptAgain)
}

// Handlers

func (api *journalApi) myJournal(ctx echo.Context) error {
	m := getContextMember(ctx)
	j, err := api.svc.Journal(ctx.Request().Context(), m.Email, m.ClassID)
	if err != nil {
		return errors.Wrap(err, "getting journal")
	}
	return ctx.JSON(http.StatusOK, j)
}

// journalOf shows the journal of a class member to themselves or to a teacher of the class.
func (api *journalApi) journalOf(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	m := getContextMember(ctx)

	usr, err := api.usrSvc.GetByID(rctx, ctx.Param("user_id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if usr.Email != m.Email {
		if !m.Role.IsTeacher() {
			return errHttpForbidden
		}
		if _, err = api.classSvc.Member(rctx, usr.Email, m.ClassID); err != nil {
			return errors.Wrap(err, "finding class member")
		}
	}

	j, err := api.svc.Journal(rctx, usr.Email, m.ClassID)
	if err != nil {
		return errors.Wrap(err, "getting journal")
	}
	return ctx.JSON(http.StatusOK, j)
}

func (api *journalApi) write(ctx echo.Context) error {
	var data journal.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}

	m := getContextMember(ctx)
	if err := api.svc.Write(ctx.Request().Context(), m.Email, m.ClassID, data); err != nil {
		return errors.Wrap(err, "writing journal")
	}
	return api.myJournal(ctx)
}

func (api *journalApi) prompts(ctx echo.Context) error {
	lists, err := api.svc.Prompts(ctx.Request().Context(), getContextMember(ctx).ClassID)
	if err != nil {
		return errors.Wrap(err, "listing prompts")
	}
	return ctx.JSON(http.StatusOK, lists)
}

func (api *journalApi) createPrompt(ctx echo.Context) error {
	var data journal.NewPrompt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPrompt")
	}

	p, err := api.svc.CreatePrompt(ctx.Request().Context(), getContextMember(ctx).ClassID, data)
	if err != nil {
		return errors.Wrap(err, "creating prompt")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *journalApi) prompt(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	p, responses, err := api.svc.Prompt(ctx.Request().Context(), getContextMember(ctx).ClassID, id)
	if err != nil {
		return errors.Wrap(err, "finding prompt")
	}
	return ctx.JSON(http.StatusOK, PromptResponse{Prompt: p, Responses: responses})
}

func (api *journalApi) closePrompt(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	p, err := api.svc.ClosePrompt(ctx.Request().Context(), getContextMember(ctx).ClassID, id)
	if err != nil {
		return errors.Wrap(err, "closing prompt")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *journalApi) promptAgain(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	p, err := api.svc.PromptAgain(ctx.Request().Context(), getContextMember(ctx).ClassID, id)
	if err != nil {
		return errors.Wrap(err, "prompting again")
	}
	return ctx.JSON(http.StatusCreated, p)
}

type PromptResponse struct {
	Prompt    journal.Prompt     `json:"prompt"`
	Responses []journal.Response `json:"responses"`
}
