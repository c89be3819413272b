// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-seat-booking/internal/handler"
	"github.com/iliyamo/railway-seat-booking/internal/middleware"
	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints.  Register, login and
// refresh are open; logout needs a valid access token so the handler
// knows whose sessions to end.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))
}

// RegisterCatalog registers the public read-only endpoints.  cache may
// be nil (or a passthrough) when Redis is unavailable.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/stations", h.ListStations)
	g.GET("/trains/search", h.SearchTrains)
	g.GET("/train-runs/:id/availability", h.Availability)
}

// RegisterBooking registers the hold and booking lifecycle endpoints.
// Both customer and admin tokens are accepted; ownership is enforced in
// the handlers, with admins allowed to read and cancel any booking.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("/holds", h.CreateHold)
	g.DELETE("/holds/:id", h.ReleaseHold)
	g.POST("/bookings", h.Finalize)
	g.GET("/bookings", h.List)
	g.GET("/bookings/:ref", h.Get)
	g.POST("/bookings/:ref/cancel", h.Cancel)
}

// RegisterAdmin registers the catalog management endpoints, restricted
// to the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/stations", h.CreateStation)
	g.POST("/trains", h.CreateTrain)
	g.POST("/train-runs", h.CreateTrainRun)
}
