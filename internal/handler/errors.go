package handler

import (
	"errors"
	"net/http"

	"github.com/coworkly/coworking-core/internal/service"
	"github.com/labstack/echo/v4"
)

// businessError maps the service error taxonomy to HTTP statuses. Anything
// outside the taxonomy is an infrastructure failure and becomes a 500.
func businessError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrSubscriptionNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrTariffNotFound),
		errors.Is(err, service.ErrSpaceNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrSlotConflict),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInsufficientMinutes),
		errors.Is(err, service.ErrAlreadyCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrInvalidSlot),
		errors.Is(err, service.ErrSubscriptionNotEligible),
		errors.Is(err, service.ErrTariffNotEligible),
		errors.Is(err, service.ErrRefundExceedsPayment),
		errors.Is(err, service.ErrCancelWindowClosed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
