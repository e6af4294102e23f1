package handler

import (
	"net/http"

	"github.com/coworkly/coworking-core/internal/dto"
	"github.com/coworkly/coworking-core/internal/service"
	"github.com/labstack/echo/v4"
)

type SubscriptionHandler struct {
	svc service.SubscriptionService
}

func NewSubscriptionHandler(svc service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

func (h *SubscriptionHandler) RegisterRoutes(e *echo.Echo) {
	subs := e.Group("/api/v1/subscriptions")
	subs.POST("", h.Issue)
	subs.POST("/purchase", h.IssueWithPayment)
	subs.GET("/:id", h.GetSubscription)
	subs.DELETE("/:id", h.CancelSubscription)
}

// Issue creates a subscription without charging: the payment happened out of
// band (e.g. a staff-granted pool).
func (h *SubscriptionHandler) Issue(c echo.Context) error {
	req, err := h.bindIssue(c)
	if err != nil {
		return err
	}

	sub, err := h.svc.Issue(c.Request().Context(), toIssueParams(req))
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToSubscriptionResponse(sub))
}

// IssueWithPayment charges the tariff price from the member balance in the
// same transaction that creates the subscription.
func (h *SubscriptionHandler) IssueWithPayment(c echo.Context) error {
	req, err := h.bindIssue(c)
	if err != nil {
		return err
	}

	sub, err := h.svc.IssueWithPayment(c.Request().Context(), toIssueParams(req))
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	sub, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, dto.ToSubscriptionResponse(sub))
}

// CancelSubscription is the staff path: optional partial refund, then the
// cancellation cascades to every confirmed booking on the subscription.
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.CancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sub, err := h.svc.Cancel(c.Request().Context(), id, req.RefundAmount)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, dto.ToSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) bindIssue(c echo.Context) (*dto.IssueSubscriptionRequest, error) {
	var req dto.IssueSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func toIssueParams(req *dto.IssueSubscriptionRequest) service.IssueParams {
	return service.IssueParams{
		MemberID:         req.MemberID,
		TariffID:         req.TariffID,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		RemainingMinutes: req.RemainingMinutes,
	}
}
