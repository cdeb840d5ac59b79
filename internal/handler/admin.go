package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/booking"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// AdminHandler serves train management and the global reservation listing.
// Routes are guarded by RequireRole(ADMIN).
type AdminHandler struct {
	Svc *booking.Service
}

func NewAdminHandler(svc *booking.Service) *AdminHandler {
	if svc == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Svc: svc}
}

type addTrainReq struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	FareCents   int64  `json:"fare_cents"`
	TotalSeats  int    `json:"total_seats"`
}

// AddTrain handles POST /v1/admin/trains.
func (h *AdminHandler) AddTrain(c echo.Context) error {
	var req addTrainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	number, err := h.Svc.AddTrain(c.Request().Context(), model.Train{
		Number:      req.Number,
		Name:        req.Name,
		Source:      req.Source,
		Destination: req.Destination,
		FareCents:   req.FareCents,
		TotalSeats:  req.TotalSeats,
	})
	if err != nil {
		return writeError(c, err)
	}
	t, err := h.Svc.LookupTrain(c.Request().Context(), number)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// modifyTrainReq leaves a field unchanged when it is omitted.
type modifyTrainReq struct {
	FareCents  *int64 `json:"fare_cents"`
	TotalSeats *int   `json:"total_seats"`
}

// ModifyTrain handles PATCH /v1/admin/trains/:number.  Changing total_seats
// resets availability to the new total.
func (h *AdminHandler) ModifyTrain(c echo.Context) error {
	number, ok := positiveParam(c, "number")
	if !ok {
		return badParam(c, "train number")
	}
	var req modifyTrainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	err := h.Svc.ModifyTrain(c.Request().Context(), number, booking.TrainUpdate{
		FareCents:  req.FareCents,
		TotalSeats: req.TotalSeats,
	})
	if err != nil {
		return writeError(c, err)
	}
	return h.respondTrain(c, number)
}

type resizeReq struct {
	TotalSeats *int `json:"total_seats"`
}

// ResizeTrain handles PUT /v1/admin/trains/:number/seats.
func (h *AdminHandler) ResizeTrain(c echo.Context) error {
	number, ok := positiveParam(c, "number")
	if !ok {
		return badParam(c, "train number")
	}
	var req resizeReq
	if err := c.Bind(&req); err != nil || req.TotalSeats == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats required"})
	}
	if err := h.Svc.ResizeTrain(c.Request().Context(), number, *req.TotalSeats); err != nil {
		return writeError(c, err)
	}
	return h.respondTrain(c, number)
}

// RemoveTrain handles DELETE /v1/admin/trains/:number.
func (h *AdminHandler) RemoveTrain(c echo.Context) error {
	number, ok := positiveParam(c, "number")
	if !ok {
		return badParam(c, "train number")
	}
	if err := h.Svc.RemoveTrain(c.Request().Context(), number); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListReservations handles GET /v1/admin/reservations.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	rs, err := h.Svc.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewsOf(rs)})
}

func (h *AdminHandler) respondTrain(c echo.Context, number int) error {
	t, err := h.Svc.LookupTrain(c.Request().Context(), number)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
