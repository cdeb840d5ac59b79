package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, cache *middleware.ResponseCache) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	invalidate := cache.InvalidateOnWrite()

	// ---- Trains ----
	g.POST("/trains", h.AddTrain, invalidate)
	g.PATCH("/trains/:number", h.ModifyTrain, invalidate)
	g.PUT("/trains/:number/seats", h.ResizeTrain, invalidate)
	g.DELETE("/trains/:number", h.RemoveTrain, invalidate)

	// ---- Reservations ----
	g.GET("/reservations", h.ListReservations)
}
