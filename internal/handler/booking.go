package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-seat-booking/internal/booking"
	"github.com/iliyamo/railway-seat-booking/internal/model"
	"github.com/iliyamo/railway-seat-booking/internal/queue"
	"github.com/iliyamo/railway-seat-booking/internal/repository"
	queuepub "github.com/iliyamo/railway-seat-booking/internal/service"
)

// BookingHandler exposes the hold and booking lifecycle over HTTP.  It
// delegates every state change to the engine and only does transport
// concerns here: binding, auth extraction, status mapping, events.
type BookingHandler struct {
	Holds     *booking.HoldManager
	Bookings  *booking.Coordinator
	Canceller *booking.Canceller
	Store     *repository.BookingStore
}

func NewBookingHandler(h *booking.HoldManager, co *booking.Coordinator, ca *booking.Canceller, st *repository.BookingStore) *BookingHandler {
	if h == nil || co == nil || ca == nil || st == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Holds: h, Bookings: co, Canceller: ca, Store: st}
}

type createHoldReq struct {
	TrainRunID uint64   `json:"train_run_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
	TTLSeconds int      `json:"ttl_seconds"`
}

type passengerReq struct {
	Name   string  `json:"name"`
	Age    *int    `json:"age"`
	Gender *string `json:"gender"`
}

type finalizeReq struct {
	HoldID          uint64         `json:"hold_id"`
	FromStationCode string         `json:"from_station_code"`
	ToStationCode   string         `json:"to_station_code"`
	JourneyDate     string         `json:"journey_date"`
	Passengers      []passengerReq `json:"passengers"`
	PaymentMethod   string         `json:"payment_method"`
}

// CreateHold places a time-boxed claim on the requested seats.
func (h *BookingHandler) CreateHold(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createHoldReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TrainRunID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "train_run_id required"})
	}

	hold, err := h.Holds.CreateHold(c.Request().Context(), booking.CreateHoldInput{
		TrainRunID: req.TrainRunID,
		SeatIDs:    req.SeatIDs,
		UserID:     uid,
		TTL:        time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":      hold.ID,
		"hold_token":   hold.HoldToken,
		"train_run_id": hold.TrainRunID,
		"seat_ids":     hold.SeatIDs,
		"status":       hold.Status,
		"expires_at":   hold.ExpiresAt,
	})
}

// ReleaseHold releases the caller's hold.  Releasing a hold that has
// already expired or been consumed is reported as success.
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	holdID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || holdID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
	}
	if err := h.Holds.ReleaseHold(c.Request().Context(), holdID, uid); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "hold released"})
}

// Finalize turns a hold into a confirmed booking.
func (h *BookingHandler) Finalize(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req finalizeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.HoldID == 0 || req.FromStationCode == "" || req.ToStationCode == "" || req.JourneyDate == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold_id, from/to station codes and journey_date required"})
	}

	passengers := make([]booking.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, booking.Passenger{Name: p.Name, Age: p.Age, Gender: p.Gender})
	}

	b, err := h.Bookings.FinalizeBooking(c.Request().Context(), booking.FinalizeInput{
		HoldID:          req.HoldID,
		UserID:          uid,
		FromStationCode: req.FromStationCode,
		ToStationCode:   req.ToStationCode,
		JourneyDate:     req.JourneyDate,
		Passengers:      passengers,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return bookingError(c, err)
	}

	h.publishConfirmed(b)
	return c.JSON(http.StatusCreated, bookingJSON(b))
}

// List returns the caller's bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bs, err := h.Store.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(bs))
	for i := range bs {
		out = append(out, bookingJSON(&bs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get returns one booking with its passenger and seat details.  Admins
// may read any booking; customers only their own.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("ref")

	b, err := h.Store.BookingByRef(c.Request().Context(), ref)
	if err != nil {
		return bookingError(c, err)
	}
	if b.UserID != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	details, err := h.Store.BookingSeats(c.Request().Context(), b.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	seats := make([]echo.Map, 0, len(details))
	for _, d := range details {
		seats = append(seats, echo.Map{
			"seat_id":          d.SeatID,
			"seat_number":      d.SeatNumber,
			"coach_number":     d.CoachNumber,
			"seat_class":       d.SeatClass,
			"passenger_name":   d.PassengerName,
			"passenger_age":    d.PassengerAge,
			"passenger_gender": d.PassengerGender,
			"price_cents":      d.PriceCents,
		})
	}
	resp := bookingJSON(b)
	resp["seats"] = seats
	return c.JSON(http.StatusOK, resp)
}

// Cancel cancels a booking.  A second cancel of the same booking reports
// a conflict and changes nothing.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("ref")

	b, err := h.Canceller.CancelBooking(c.Request().Context(), ref, uid, isAdmin(c))
	if err != nil {
		return bookingError(c, err)
	}

	h.publishCancelled(b)
	return c.JSON(http.StatusOK, bookingJSON(b))
}

// publishConfirmed emits the booking.confirmed event.  Publication is
// best effort: the booking is already committed, a broker outage must
// not fail the request.
func (h *BookingHandler) publishConfirmed(b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	details, err := h.Store.BookingSeats(ctx, b.ID)
	labels := make([]string, 0, len(details))
	if err == nil {
		for _, d := range details {
			labels = append(labels, fmt.Sprintf("%s-%s", d.CoachNumber, d.SeatNumber))
		}
	}
	_ = queuepub.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
		BookingID:       b.ID,
		BookingRef:      b.BookingRef,
		UserID:          b.UserID,
		TrainRunID:      b.TrainRunID,
		FromStationCode: b.FromStationCode,
		ToStationCode:   b.ToStationCode,
		JourneyDate:     b.JourneyDate,
		SeatLabels:      labels,
		TotalCents:      b.TotalCents,
		ConfirmedAt:     b.BookingTime.UTC().Format(time.RFC3339),
	})
}

func (h *BookingHandler) publishCancelled(b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cancelledAt := ""
	if b.CancellationTime != nil {
		cancelledAt = b.CancellationTime.UTC().Format(time.RFC3339)
	}
	_ = queuepub.PublishBookingCancelled(ctx, queue.BookingCancelledEvent{
		BookingID:     b.ID,
		BookingRef:    b.BookingRef,
		UserID:        b.UserID,
		TrainRunID:    b.TrainRunID,
		SeatsReleased: b.NumPassengers,
		RefundCents:   b.TotalCents,
		CancelledAt:   cancelledAt,
	})
}
