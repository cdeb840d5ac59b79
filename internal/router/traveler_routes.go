package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// RegisterTraveler registers the booking endpoints under /v1.  All routes
// require a valid JWT; admins may use them too.  Booking and cancelling are
// rate limited and invalidate the train cache on success.
func RegisterTraveler(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, cache *middleware.ResponseCache, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleTraveler, model.RoleAdmin),
	)
	invalidate := cache.InvalidateOnWrite()

	g.POST("/trains/:number/reservations", h.Book, limit, invalidate)
	g.GET("/my-reservations", h.ListMine)
	g.GET("/reservations/:pnr", h.Get)
	g.DELETE("/reservations/:pnr", h.Cancel, limit, invalidate)
}
