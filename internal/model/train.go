package model

import "unicode/utf8"

// Train describes a scheduled train and its seat inventory.  TrainNumber is
// the identity and never changes once the train is created.
//
// Fields:
//  Number         – unique train number.
//  Name           – display name, e.g. "Shatabdi Express".
//  Source         – departure station.
//  Destination    – arrival station.
//  FareCents      – per-passenger fare in paise/cents, never negative.
//  TotalSeats     – seat capacity.
//  AvailableSeats – seats not yet sold; 0 <= AvailableSeats <= TotalSeats.
//  InstanceID     – set when the train is added; a train removed and added
//                   again under the same number gets a new one.
type Train struct {
	Number         int    `json:"number"`
	Name           string `json:"name"`
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	FareCents      int64  `json:"fare_cents"`
	TotalSeats     int    `json:"total_seats"`
	AvailableSeats int    `json:"available_seats"`
	InstanceID     string `json:"-"`
}

// Snapshot freezes the attributes of t that a reservation carries.  The
// returned value shares nothing with t.
func (t Train) Snapshot() TrainSnapshot {
	return TrainSnapshot{
		Number:      t.Number,
		Name:        t.Name,
		Source:      t.Source,
		Destination: t.Destination,
		FareCents:   t.FareCents,
		InstanceID:  t.InstanceID,
	}
}

// MaxTextLen bounds names and station fields; the MySQL columns are
// VARCHAR(100).
const MaxTextLen = 100

func tooLong(s string) bool { return utf8.RuneCountInString(s) > MaxTextLen }

// Validate checks the administrative attributes of a new train.
func (t Train) Validate() error {
	switch {
	case t.Number <= 0:
		return InvalidInputError("train number must be positive")
	case t.Name == "":
		return InvalidInputError("train name is required")
	case t.Source == "" || t.Destination == "":
		return InvalidInputError("source and destination are required")
	case tooLong(t.Name), tooLong(t.Source), tooLong(t.Destination):
		return InvalidInputError("train name, source and destination must be at most 100 characters")
	case t.FareCents < 0:
		return InvalidInputError("fare must not be negative")
	case t.TotalSeats < 0:
		return InvalidInputError("total seats must not be negative")
	}
	return nil
}

// TrainSnapshot is the copy of a train's route and price frozen into a
// reservation at booking time.  Later fare edits do not touch it.
type TrainSnapshot struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	FareCents   int64  `json:"fare_cents"`
	InstanceID  string `json:"-"`
}

// TrainUpdate carries the optional fields of an administrative edit.  A nil
// field is left unchanged.  Setting TotalSeats resets availability to it.
type TrainUpdate struct {
	FareCents  *int64
	TotalSeats *int
}

// Validate rejects negative values and an update that changes nothing.
func (u TrainUpdate) Validate() error {
	switch {
	case u.FareCents != nil && *u.FareCents < 0:
		return InvalidInputError("fare must not be negative")
	case u.TotalSeats != nil && *u.TotalSeats < 0:
		return InvalidInputError("total seats must not be negative")
	case u.FareCents == nil && u.TotalSeats == nil:
		return InvalidInputError("nothing to update")
	}
	return nil
}

// Apply returns t with the update applied.
func (u TrainUpdate) Apply(t Train) Train {
	if u.FareCents != nil {
		t.FareCents = *u.FareCents
	}
	if u.TotalSeats != nil {
		t.TotalSeats = *u.TotalSeats
		t.AvailableSeats = *u.TotalSeats
	}
	return t
}

// TrainSortKey selects the ordering used when listing trains.
type TrainSortKey string

const (
	SortByNumber TrainSortKey = "number"
	SortByFare   TrainSortKey = "fare"
	SortByName   TrainSortKey = "name"
)

// ParseTrainSortKey maps a user supplied key to a TrainSortKey.  Empty input
// means SortByNumber.
func ParseTrainSortKey(s string) (TrainSortKey, error) {
	switch TrainSortKey(s) {
	case "", SortByNumber:
		return SortByNumber, nil
	case SortByFare, SortByName:
		return TrainSortKey(s), nil
	}
	return "", InvalidInputError("unknown sort key: " + s)
}
