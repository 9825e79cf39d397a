package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gigamonkey/help/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}
	ord.Orderings = append(ord.Orderings, core.ParseOrdering(val[0])...)
}

// paramID parses the numeric path param name. Bad ids are answered like unknown ones.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
