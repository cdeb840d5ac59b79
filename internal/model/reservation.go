package model

import (
	"slices"
	"strings"
	"time"
)

// Gender is the single-letter category recorded for a passenger.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Passenger is a traveller listed on a reservation.  It has no identity of
// its own beyond its position in Reservation.Passengers.
type Passenger struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender Gender `json:"gender"`
}

// Validate checks a passenger record.  Gender is accepted in either case.
func (p Passenger) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return InvalidInputError("passenger name is required")
	}
	if tooLong(strings.TrimSpace(p.Name)) {
		return InvalidInputError("passenger name must be at most 100 characters")
	}
	if p.Age < 0 {
		return InvalidInputError("passenger age must not be negative")
	}
	switch Gender(strings.ToUpper(string(p.Gender))) {
	case GenderMale, GenderFemale, GenderOther:
		return nil
	}
	return InvalidInputError("passenger gender must be one of M, F, O")
}

// Normalize returns p with its name trimmed and gender upper-cased.
func (p Passenger) Normalize() Passenger {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = Gender(strings.ToUpper(string(p.Gender)))
	return p
}

// Reservation is a booked ticket.  It is created by the booking service and
// destroyed only by a cancellation from its owner.
//
// Fields:
//  PNR        – unique reservation identifier.
//  Owner      – username of the user who booked.
//  Train      – train attributes frozen at booking time.
//  Passengers – one entry per seat debited, in booking order.
//  CreatedAt  – booking timestamp (UTC).
type Reservation struct {
	PNR        int           `json:"pnr"`
	Owner      string        `json:"owner"`
	Train      TrainSnapshot `json:"train"`
	Passengers []Passenger   `json:"passengers"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Seats is the number of seats the reservation holds on its train.
func (r Reservation) Seats() int { return len(r.Passengers) }

// TotalFareCents is the snapshot fare multiplied by the passenger count.
func (r Reservation) TotalFareCents() int64 {
	return r.Train.FareCents * int64(len(r.Passengers))
}

// Clone returns a deep copy so callers never share the passenger slice with
// a ledger.
func (r Reservation) Clone() Reservation {
	r.Passengers = slices.Clone(r.Passengers)
	return r
}
