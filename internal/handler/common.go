// Package handler defines the HTTP handlers of the API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-seat-booking/internal/booking"
	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// getUserID extracts the user_id set by the JWT middleware and converts
// it to uint64.  JSON numbers arrive as float64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated request carries the admin role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// bookingError translates an engine error into a JSON response.  One
// mapping for every handler keeps status codes consistent across the
// hold, booking and cancellation endpoints.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrSeatNotFound),
		errors.Is(err, booking.ErrHoldNotFound),
		errors.Is(err, booking.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrSeatUnavailable),
		errors.Is(err, booking.ErrSeatConflict),
		errors.Is(err, booking.ErrHoldExpired),
		errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrTxConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrPassengerCount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrCancellationNotAllowed):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// bookingJSON shapes a booking for API responses.
func bookingJSON(b *model.Booking) echo.Map {
	m := echo.Map{
		"booking_ref":       b.BookingRef,
		"train_run_id":      b.TrainRunID,
		"from_station_code": b.FromStationCode,
		"to_station_code":   b.ToStationCode,
		"journey_date":      b.JourneyDate,
		"total_cents":       b.TotalCents,
		"num_passengers":    b.NumPassengers,
		"status":            b.Status,
		"payment_status":    b.PaymentStatus,
		"booking_time":      b.BookingTime,
	}
	if b.CancellationTime != nil {
		m["cancellation_time"] = *b.CancellationTime
	}
	return m
}
