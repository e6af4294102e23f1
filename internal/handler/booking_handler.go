package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/coworkly/coworking-core/internal/dto"
	"github.com/coworkly/coworking-core/internal/models"
	"github.com/coworkly/coworking-core/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService

	// Edge policy from settings, enforced here rather than in the core:
	// the engine itself only cares about slot alignment and conflicts.
	minBookingMinutes   int
	maxBookingDaysAhead int
}

func NewBookingHandler(svc service.BookingService, minBookingMinutes, maxBookingDaysAhead int) *BookingHandler {
	return &BookingHandler{
		svc:                 svc,
		minBookingMinutes:   minBookingMinutes,
		maxBookingDaysAhead: maxBookingDaysAhead,
	}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	bookings := e.Group("/api/v1/bookings")
	bookings.POST("", h.CreateBooking)
	bookings.GET("/:id", h.GetBooking)
	bookings.DELETE("/:id", h.CancelBooking)
	bookings.POST("/:id/staff-cancel", h.StaffCancelBooking)
	bookings.PUT("/:id/participants", h.UpdateParticipants)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	bookingType, err := models.ParseBookingType(req.Type)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	switch bookingType {
	case models.BookingSubscription:
		if req.SubscriptionID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "subscription_id is required")
		}
	case models.BookingOneTime:
		if req.TariffID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "tariff_id is required")
		}
	}

	if minutes := int(req.EndTime.Sub(req.StartTime) / time.Minute); minutes < h.minBookingMinutes {
		return echo.NewHTTPError(http.StatusBadRequest, "booking is shorter than the minimum duration")
	}
	if req.StartTime.After(time.Now().AddDate(0, 0, h.maxBookingDaysAhead)) {
		return echo.NewHTTPError(http.StatusBadRequest, "booking is too far ahead")
	}

	booking, err := h.svc.Create(c.Request().Context(), service.CreateBookingParams{
		MemberID:       req.MemberID,
		SpaceID:        req.SpaceID,
		Type:           bookingType,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		SubscriptionID: req.SubscriptionID,
		TariffID:       req.TariffID,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	booking, err := h.svc.Cancel(c.Request().Context(), id, req.MemberID)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) StaffCancelBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.StaffCancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	booking, err := h.svc.StaffCancel(c.Request().Context(), id, service.StaffCancelParams{
		ReturnMinutes: req.ReturnMinutes,
		ReturnMoney:   req.ReturnMoney,
		RefundAmount:  req.RefundAmount,
	})
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) UpdateParticipants(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateParticipantsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	booking, err := h.svc.UpdateParticipants(c.Request().Context(), id, req.ActorID, req.Staff, req.ParticipantIDs)
	if err != nil {
		return businessError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}
