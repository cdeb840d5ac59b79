// Package inventory keeps train records and their seat counters in memory.
// Each train has its own mutex so that the availability check and the debit
// in ReserveSeats happen as one step, while bookings on different trains
// never contend.  The index itself is guarded by a read/write mutex that is
// only held long enough to find or replace an entry.
package inventory

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/model"
)

type entry struct {
	mu    sync.RWMutex
	train model.Train
}

// Store is the in-memory seat inventory.  The zero value is not usable; call
// New.
type Store struct {
	mu     sync.RWMutex
	trains map[int]*entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{trains: make(map[int]*entry)}
}

func (s *Store) get(number int) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.trains[number]
	return e, ok
}

// AddTrain registers t with AvailableSeats set to TotalSeats.  It returns
// ErrDuplicateID when the number is already taken.
func (s *Store) AddTrain(_ context.Context, t model.Train) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.AvailableSeats = t.TotalSeats
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trains[t.Number]; exists {
		return model.ErrDuplicateID
	}
	s.trains[t.Number] = &entry{train: t}
	return nil
}

// RemoveTrain deletes a train.  Reservations already issued against it keep
// their snapshots; releasing their seats later becomes a no-op.
func (s *Store) RemoveTrain(_ context.Context, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trains[number]; !ok {
		return model.ErrTrainNotFound
	}
	delete(s.trains, number)
	return nil
}

// Lookup returns a copy of the train.
func (s *Store) Lookup(_ context.Context, number int) (model.Train, error) {
	e, ok := s.get(number)
	if !ok {
		return model.Train{}, model.ErrTrainNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.train, nil
}

// List returns copies of all trains in no particular order.
func (s *Store) List(_ context.Context) ([]model.Train, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.trains))
	for _, e := range s.trains {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.Train, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.train)
		e.mu.RUnlock()
	}
	return out, nil
}

// ReserveSeats debits count seats if at least that many are available.  On
// shortfall nothing changes and an *InsufficientInventoryError carrying the
// current availability is returned.
func (s *Store) ReserveSeats(_ context.Context, number, count int) error {
	if count <= 0 {
		return model.InvalidInputError("seat count must be positive")
	}
	e, ok := s.get(number)
	if !ok {
		return model.ErrTrainNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.train.AvailableSeats < count {
		return &model.InsufficientInventoryError{
			TrainNumber: number,
			Requested:   count,
			Available:   e.train.AvailableSeats,
		}
	}
	e.train.AvailableSeats -= count
	return nil
}

// ReleaseSeats credits count seats back.  The result is clamped to
// TotalSeats; the clamp is a failsafe against double release and is logged
// rather than reported, since the caller has nothing to undo.
func (s *Store) ReleaseSeats(_ context.Context, number, count int) error {
	if count < 0 {
		return model.InvalidInputError("seat count must not be negative")
	}
	e, ok := s.get(number)
	if !ok {
		return model.ErrTrainNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.train.AvailableSeats += count
	if e.train.AvailableSeats > e.train.TotalSeats {
		log.WithFields(log.Fields{
			"train":     number,
			"available": e.train.AvailableSeats,
			"total":     e.train.TotalSeats,
		}).Warn("inventory: release overflowed capacity, clamping")
		e.train.AvailableSeats = e.train.TotalSeats
	}
	return nil
}

// Modify applies u to the train in one step and returns the train as it was
// before and after.  Setting TotalSeats resets availability to the new
// capacity; seats held by live reservations are forgotten and the booking
// service logs how many were outstanding.
func (s *Store) Modify(_ context.Context, number int, u model.TrainUpdate) (before, after model.Train, err error) {
	if err := u.Validate(); err != nil {
		return model.Train{}, model.Train{}, err
	}
	e, ok := s.get(number)
	if !ok {
		return model.Train{}, model.Train{}, model.ErrTrainNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	before = e.train
	e.train = u.Apply(e.train)
	return before, e.train, nil
}
