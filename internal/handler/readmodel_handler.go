package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/coworkly/coworking-core/internal/dto"
	"github.com/coworkly/coworking-core/internal/service"
	"github.com/labstack/echo/v4"
)

type ReadModelHandler struct {
	readModels service.ReadModelService
	ledger     service.Ledger
}

func NewReadModelHandler(readModels service.ReadModelService, ledger service.Ledger) *ReadModelHandler {
	return &ReadModelHandler{readModels: readModels, ledger: ledger}
}

func (h *ReadModelHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/spaces", h.Spaces)
	e.GET("/api/v1/timeline", h.Timeline)
	e.GET("/api/v1/members/:id/history", h.MemberHistory)
	e.GET("/api/v1/members/:id/balance", h.MemberBalance)
}

func (h *ReadModelHandler) Spaces(c echo.Context) error {
	spaces, err := h.readModels.Spaces(c.Request().Context())
	if err != nil {
		return businessError(err)
	}
	return c.JSON(http.StatusOK, spaces)
}

func (h *ReadModelHandler) Timeline(c echo.Context) error {
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
	}
	if !to.After(from) {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be after from")
	}

	var viewerID uint
	if v := c.QueryParam("viewer_id"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid viewer_id")
		}
		viewerID = uint(parsed)
	}

	entries, err := h.readModels.Timeline(c.Request().Context(), from, to, viewerID)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, entries)
}

func (h *ReadModelHandler) MemberHistory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	history, err := h.readModels.History(c.Request().Context(), id)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, history)
}

// MemberBalance exposes the reconciliation view: cached balance next to the
// signed ledger sum, which must agree.
func (h *ReadModelHandler) MemberBalance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	rec, err := h.ledger.Reconcile(c.Request().Context(), id)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, dto.BalanceResponse{
		MemberID:   rec.MemberID,
		Balance:    rec.Balance,
		LedgerSum:  rec.LedgerSum,
		Consistent: rec.Consistent(),
	})
}
