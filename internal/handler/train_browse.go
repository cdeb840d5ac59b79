package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/booking"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// TrainHandler serves the unauthenticated train browse endpoints.
type TrainHandler struct {
	Svc *booking.Service
}

func NewTrainHandler(svc *booking.Service) *TrainHandler {
	if svc == nil {
		panic("nil service passed to NewTrainHandler")
	}
	return &TrainHandler{Svc: svc}
}

// ListTrains handles GET /v1/trains?sort=number|fare|name.  Response JSON
// contains an "items" array.
func (h *TrainHandler) ListTrains(c echo.Context) error {
	key, err := model.ParseTrainSortKey(c.QueryParam("sort"))
	if err != nil {
		return writeError(c, err)
	}
	trains, err := h.Svc.ListTrains(c.Request().Context(), key)
	if err != nil {
		return writeError(c, err)
	}
	if trains == nil {
		trains = []model.Train{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": trains})
}

// GetTrain handles GET /v1/trains/:number.
func (h *TrainHandler) GetTrain(c echo.Context) error {
	number, ok := positiveParam(c, "number")
	if !ok {
		return badParam(c, "train number")
	}
	t, err := h.Svc.LookupTrain(c.Request().Context(), number)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
