package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-seat-booking/internal/repository"
)

// CatalogHandler serves the public read-only endpoints: stations, train
// search and availability snapshots.  These routes sit behind the Redis
// response cache; none of them takes locks.
type CatalogHandler struct {
	Stations *repository.StationRepo
	Trains   *repository.TrainRepo
	Runs     *repository.TrainRunRepo
}

func NewCatalogHandler(st *repository.StationRepo, tr *repository.TrainRepo, runs *repository.TrainRunRepo) *CatalogHandler {
	if st == nil || tr == nil || runs == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Stations: st, Trains: tr, Runs: runs}
}

// ListStations returns every station.
func (h *CatalogHandler) ListStations(c echo.Context) error {
	stations, err := h.Stations.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(stations))
	for _, s := range stations {
		out = append(out, echo.Map{"id": s.ID, "code": s.Code, "name": s.Name, "city": s.City})
	}
	return c.JSON(http.StatusOK, echo.Map{"stations": out})
}

// SearchTrains finds runs serving a leg on a date:
// GET /v1/trains/search?from=NDLS&to=BCT&date=2026-09-15
func (h *CatalogHandler) SearchTrains(c echo.Context) error {
	from := c.QueryParam("from")
	to := c.QueryParam("to")
	date := c.QueryParam("date")
	if from == "" || to == "" || date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from, to and date are required"})
	}
	if from == to {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from and to must differ"})
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}

	rows, err := h.Trains.Search(c.Request().Context(), repository.TrainSearchQuery{
		FromCode: from,
		ToCode:   to,
		Date:     date,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"results": rows, "count": len(rows)})
}

// Availability returns a snapshot of one run: per-class summary and the
// open seats.  The snapshot may lag concurrent holds slightly; any
// attempt to claim a seat re-checks under row locks.
func (h *CatalogHandler) Availability(c echo.Context) error {
	runID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || runID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train run id"})
	}

	run, classes, seats, err := h.Runs.Availability(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrTrainRunNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "train run not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"train_run_id":    run.ID,
		"train_id":        run.TrainID,
		"run_date":        run.RunDate,
		"departs_at":      run.DepartsAt,
		"status":          run.Status,
		"total_seats":     run.TotalSeats,
		"available_seats": run.AvailableSeats,
		"classes":         classes,
		"open_seats":      seats,
	})
}
