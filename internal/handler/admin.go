package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-seat-booking/internal/model"
	"github.com/iliyamo/railway-seat-booking/internal/repository"
)

// AdminHandler serves the catalog management endpoints, restricted to
// the ADMIN role by the router.
type AdminHandler struct {
	Stations *repository.StationRepo
	Trains   *repository.TrainRepo
	Runs     *repository.TrainRunRepo
}

func NewAdminHandler(st *repository.StationRepo, tr *repository.TrainRepo, runs *repository.TrainRunRepo) *AdminHandler {
	if st == nil || tr == nil || runs == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Stations: st, Trains: tr, Runs: runs}
}

type createStationReq struct {
	Code string `json:"code"`
	Name string `json:"name"`
	City string `json:"city"`
}

// CreateStation adds a station to the network.
func (h *AdminHandler) CreateStation(c echo.Context) error {
	var req createStationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and name required"})
	}

	s := &model.Station{Code: req.Code, Name: req.Name, City: strings.TrimSpace(req.City)}
	if err := h.Stations.Create(c.Request().Context(), s); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "station code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create station failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": s.ID, "code": s.Code, "name": s.Name, "city": s.City})
}

type stopReq struct {
	StationCode   string `json:"station_code"`
	StopSequence  uint32 `json:"stop_sequence"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
}

type coachReq struct {
	SeatClass    string `json:"seat_class"`
	CoachCount   uint32 `json:"coach_count"`
	SeatsPerUnit uint32 `json:"seats_per_coach"`
	PriceCents   uint32 `json:"price_cents"`
}

type createTrainReq struct {
	Number          string     `json:"number"`
	Name            string     `json:"name"`
	FromStationCode string     `json:"from_station_code"`
	ToStationCode   string     `json:"to_station_code"`
	DepartureTime   string     `json:"departure_time"`
	ArrivalTime     string     `json:"arrival_time"`
	DurationMin     uint32     `json:"duration_min"`
	TrainType       string     `json:"train_type"`
	Stops           []stopReq  `json:"stops"`
	Coaches         []coachReq `json:"coaches"`
}

// CreateTrain registers a train with its route and coach layout.  The
// terminal stations must appear in the stop list so search by stop
// sequence also finds end-to-end journeys.
func (h *AdminHandler) CreateTrain(c echo.Context) error {
	var req createTrainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Number == "" || req.Name == "" || req.FromStationCode == "" || req.ToStationCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "number, name and terminal stations required"})
	}
	if len(req.Stops) < 2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least two stops required"})
	}
	if len(req.Coaches) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one coach block required"})
	}
	from := strings.ToUpper(strings.TrimSpace(req.FromStationCode))
	to := strings.ToUpper(strings.TrimSpace(req.ToStationCode))
	seenFrom, seenTo := false, false
	lastSeq := uint32(0)
	for _, s := range req.Stops {
		code := strings.ToUpper(strings.TrimSpace(s.StationCode))
		if s.StopSequence <= lastSeq {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "stop_sequence must be strictly increasing"})
		}
		lastSeq = s.StopSequence
		if code == from {
			seenFrom = true
		}
		if code == to {
			seenTo = true
		}
	}
	if !seenFrom || !seenTo {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "terminal stations must appear in stops"})
	}

	t := &model.Train{
		Number:          req.Number,
		Name:            req.Name,
		FromStationCode: from,
		ToStationCode:   to,
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		DurationMin:     req.DurationMin,
		TrainType:       req.TrainType,
	}
	stops := make([]model.TrainStop, 0, len(req.Stops))
	for _, s := range req.Stops {
		stops = append(stops, model.TrainStop{
			StationCode:   s.StationCode,
			StopSequence:  s.StopSequence,
			ArrivalTime:   s.ArrivalTime,
			DepartureTime: s.DepartureTime,
		})
	}
	layout := make([]model.CoachLayout, 0, len(req.Coaches))
	for _, cc := range req.Coaches {
		if cc.SeatClass == "" || cc.CoachCount == 0 || cc.SeatsPerUnit == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "coach blocks need seat_class, coach_count and seats_per_coach"})
		}
		layout = append(layout, model.CoachLayout{
			SeatClass:    cc.SeatClass,
			CoachCount:   cc.CoachCount,
			SeatsPerUnit: cc.SeatsPerUnit,
			PriceCents:   cc.PriceCents,
		})
	}

	if err := h.Trains.Create(c.Request().Context(), t, stops, layout); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "train number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create train failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": t.ID, "number": t.Number, "name": t.Name})
}

type createRunReq struct {
	TrainID uint64 `json:"train_id"`
	RunDate string `json:"run_date"` // YYYY-MM-DD
}

// CreateTrainRun schedules a run of a train on a date and materializes
// its full seat roster from the coach layout, all seats AVAILABLE.
func (h *AdminHandler) CreateTrainRun(c echo.Context) error {
	var req createRunReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TrainID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "train_id required"})
	}
	runDate, err := time.Parse("2006-01-02", req.RunDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "run_date must be YYYY-MM-DD"})
	}

	ctx := c.Request().Context()
	t, err := h.Trains.ByID(ctx, req.TrainID)
	if err != nil {
		if errors.Is(err, repository.ErrTrainNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "train not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	layout, err := h.Trains.CoachLayout(ctx, t.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	departsAt, err := departureInstant(runDate, t.DepartureTime)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invalid train departure time"})
	}
	run := &model.TrainRun{TrainID: t.ID, RunDate: req.RunDate, DepartsAt: departsAt}
	if err := h.Runs.CreateWithSeats(ctx, run, layout); err != nil {
		if errors.Is(err, repository.ErrRunExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "run already exists for that date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create run failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":              run.ID,
		"train_id":        run.TrainID,
		"run_date":        run.RunDate,
		"departs_at":      run.DepartsAt,
		"status":          run.Status,
		"total_seats":     run.TotalSeats,
		"available_seats": run.AvailableSeats,
	})
}

// departureInstant combines a run date with the train's HH:MM departure
// into a UTC instant.
func departureInstant(runDate time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(runDate.Year(), runDate.Month(), runDate.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
