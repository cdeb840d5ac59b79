package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/booking"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// ReservationHandler serves the authenticated booking endpoints.  The owner
// of every operation is the username from the access token.
type ReservationHandler struct {
	Svc *booking.Service
}

func NewReservationHandler(svc *booking.Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type bookReq struct {
	Passengers []model.Passenger `json:"passengers"`
}

// Book handles POST /v1/trains/:number/reservations.  It returns 201 with
// the reservation, 409 with the current availability when the train cannot
// seat everyone.
func (h *ReservationHandler) Book(c echo.Context) error {
	number, ok := positiveParam(c, "number")
	if !ok {
		return badParam(c, "train number")
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Svc.Book(c.Request().Context(), number, middleware.UserID(c), req.Passengers)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, viewOf(res))
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	rs, err := h.Svc.ListMine(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewsOf(rs)})
}

// Get handles GET /v1/reservations/:pnr.  Admins may read any reservation.
func (h *ReservationHandler) Get(c echo.Context) error {
	pnr, ok := positiveParam(c, "pnr")
	if !ok {
		return badParam(c, "pnr")
	}
	res, err := h.Svc.GetReservation(c.Request().Context(), pnr, middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(res))
}

// Cancel handles DELETE /v1/reservations/:pnr.  Only the owner may cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	pnr, ok := positiveParam(c, "pnr")
	if !ok {
		return badParam(c, "pnr")
	}
	if err := h.Svc.Cancel(c.Request().Context(), pnr, middleware.UserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
