package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// Deps carries everything the route groups need.  A nil Cache or RateLimit
// disables that concern; a nil Store makes /healthz a liveness check only.
type Deps struct {
	Auth         *handler.AuthHandler
	Trains       *handler.TrainHandler
	Reservations *handler.ReservationHandler
	Admin        *handler.AdminHandler
	Store        handler.Pinger
	JWTSecret    string
	Cache        *middleware.ResponseCache
	RateLimit    echo.MiddlewareFunc
}

// Register wires every route group onto e.
func Register(e *echo.Echo, d Deps) {
	if d.RateLimit == nil {
		d.RateLimit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	RegisterRoutes(e, d.Store)
	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPublic(e, d.Trains, d.Cache)
	RegisterTraveler(e, d.Reservations, d.JWTSecret, d.Cache, d.RateLimit)
	RegisterAdmin(e, d.Admin, d.JWTSecret, d.Cache)
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, store handler.Pinger) {
	e.GET("/healthz", handler.Health(store))
}

// RegisterAuth registers the user registry endpoints.  Register and login
// live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleTraveler),
	)
}

// RegisterPublic registers unauthenticated browse endpoints.  Responses are
// cached in Redis when a cache is configured.
func RegisterPublic(e *echo.Echo, t *handler.TrainHandler, cache *middleware.ResponseCache) {
	cached := cache.Middleware()
	e.GET("/v1/trains", t.ListTrains, cached)
	e.GET("/v1/trains/:number", t.GetTrain, cached)
}
