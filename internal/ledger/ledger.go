// Package ledger is the in-memory store of live reservations keyed by pnr.
// Records are copied on the way in and on the way out, so a caller can never
// observe a reservation while another goroutine is writing it.  Listing
// returns reservations in ascending pnr order.
package ledger

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// Ledger maps pnr to reservation.  The zero value is not usable; call New.
type Ledger struct {
	mu      sync.RWMutex
	records map[int]model.Reservation
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{records: make(map[int]model.Reservation)}
}

// Insert stores r.  It returns ErrDuplicateID if the pnr is already live.
func (l *Ledger) Insert(_ context.Context, r model.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[r.PNR]; exists {
		return model.ErrDuplicateID
	}
	l.records[r.PNR] = r.Clone()
	return nil
}

// Contains reports whether pnr is currently live.
func (l *Ledger) Contains(_ context.Context, pnr int) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[pnr]
	return ok, nil
}

// Get returns a copy of the reservation.
func (l *Ledger) Get(_ context.Context, pnr int) (model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.records[pnr]
	if !ok {
		return model.Reservation{}, model.ErrReservationNotFound
	}
	return r.Clone(), nil
}

// Remove deletes the reservation and returns it so the caller can release
// its seats.
func (l *Ledger) Remove(_ context.Context, pnr int) (model.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[pnr]
	if !ok {
		return model.Reservation{}, model.ErrReservationNotFound
	}
	delete(l.records, pnr)
	return r, nil
}

// ListByOwner returns the owner's reservations in ascending pnr order.
func (l *Ledger) ListByOwner(_ context.Context, owner string) ([]model.Reservation, error) {
	return l.list(func(r model.Reservation) bool { return r.Owner == owner }), nil
}

// ListAll returns every live reservation in ascending pnr order.
func (l *Ledger) ListAll(_ context.Context) ([]model.Reservation, error) {
	return l.list(func(model.Reservation) bool { return true }), nil
}

func (l *Ledger) list(keep func(model.Reservation) bool) []model.Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for _, pnr := range slices.Sorted(maps.Keys(l.records)) {
		if r := l.records[pnr]; keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Len returns the number of live reservations.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
