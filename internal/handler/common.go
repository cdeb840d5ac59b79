// Package handler exposes the booking service over HTTP.  Handlers parse
// and validate transport input, call the service and translate its error
// kinds into status codes.  They hold no reservation state of their own.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// writeError maps a service error to its HTTP status.
func writeError(c echo.Context, err error) error {
	var shortfall *model.InsufficientInventoryError
	switch {
	case errors.As(err, &shortfall):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "not enough seats available",
			"requested": shortfall.Requested,
			"available": shortfall.Available,
		})
	case errors.Is(err, model.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrTrainNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "train not found"})
	case errors.Is(err, model.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, model.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, model.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, model.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	case errors.Is(err, model.ErrDuplicateID):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	}
	log.WithFields(log.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).WithError(err).Error("handler: request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// positiveParam reads a positive integer path parameter.
func positiveParam(c echo.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func badParam(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
}

// reservationView is the JSON shape of a reservation.
type reservationView struct {
	PNR            int                 `json:"pnr"`
	Owner          string              `json:"owner"`
	Train          model.TrainSnapshot `json:"train"`
	Passengers     []model.Passenger   `json:"passengers"`
	TotalFareCents int64               `json:"total_fare_cents"`
	CreatedAt      time.Time           `json:"created_at"`
}

func viewOf(r model.Reservation) reservationView {
	ps := r.Passengers
	if ps == nil {
		ps = []model.Passenger{}
	}
	return reservationView{
		PNR:            r.PNR,
		Owner:          r.Owner,
		Train:          r.Train,
		Passengers:     ps,
		TotalFareCents: r.TotalFareCents(),
		CreatedAt:      r.CreatedAt,
	}
}

func viewsOf(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, viewOf(r))
	}
	return out
}
