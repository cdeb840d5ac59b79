// Package booking is the reservation core.  Service combines a seat
// inventory, a pnr allocator and a reservation ledger into Book and Cancel
// with all-or-nothing semantics, plus the administrative train operations.
//
// Locking: every mutation that touches a train's seat counters runs under
// that train's stripe lock, so a booking's check-and-debit and a
// cancellation's remove-and-release are each atomic with respect to other
// bookings and cancellations on the same train.  Pnr allocation and the
// ledger insert share allocMu, so two bookings can never be handed the same
// id.  Lock order is always train stripe, then allocMu, then the stores'
// own locks.  Events are published only after every lock is released.
package booking

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/pnr"
	"github.com/iliyamo/railway-reservation/internal/queue"
)

// Inventory owns train records and their seat counters.  ReserveSeats must
// check and debit in one atomic step.
type Inventory interface {
	AddTrain(ctx context.Context, t model.Train) error
	RemoveTrain(ctx context.Context, number int) error
	Lookup(ctx context.Context, number int) (model.Train, error)
	List(ctx context.Context) ([]model.Train, error)
	ReserveSeats(ctx context.Context, number, count int) error
	ReleaseSeats(ctx context.Context, number, count int) error
	Modify(ctx context.Context, number int, u model.TrainUpdate) (before, after model.Train, err error)
}

// Ledger owns live reservations keyed by pnr.  Listings are in ascending
// pnr order.
type Ledger interface {
	Insert(ctx context.Context, r model.Reservation) error
	Contains(ctx context.Context, pnr int) (bool, error)
	Get(ctx context.Context, pnr int) (model.Reservation, error)
	Remove(ctx context.Context, pnr int) (model.Reservation, error)
	ListByOwner(ctx context.Context, owner string) ([]model.Reservation, error)
	ListAll(ctx context.Context) ([]model.Reservation, error)
}

// Options tunes a Service.  Zero values select defaults.
type Options struct {
	LockStripes int
	Publisher   Publisher
	Now         func() time.Time
}

// Service is safe for concurrent use.
type Service struct {
	inventory Inventory
	ledger    Ledger
	allocator *pnr.Allocator
	locks     *trainLocks
	allocMu   sync.Mutex
	publisher Publisher
	now       func() time.Time
}

// NewService wires the stores together.  All dependencies must be non-nil.
func NewService(inv Inventory, led Ledger, alloc *pnr.Allocator, opts Options) *Service {
	if inv == nil || led == nil || alloc == nil {
		panic("nil dependency passed to booking.NewService")
	}
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		inventory: inv,
		ledger:    led,
		allocator: alloc,
		locks:     newTrainLocks(opts.LockStripes),
		publisher: opts.Publisher,
		now:       opts.Now,
	}
}

// Book reserves one seat per passenger on the train and records a
// reservation owned by userID.  The reservation carries a snapshot of the
// train taken while its lock was held.  On any failure no seats stay
// debited.
func (s *Service) Book(ctx context.Context, trainNumber int, userID string, passengers []model.Passenger) (model.Reservation, error) {
	if _, err := s.inventory.Lookup(ctx, trainNumber); err != nil {
		return model.Reservation{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return model.Reservation{}, model.InvalidInputError("requesting user is required")
	}
	if len(passengers) == 0 {
		return model.Reservation{}, model.InvalidInputError("at least one passenger is required")
	}
	normalized := make([]model.Passenger, len(passengers))
	for i, p := range passengers {
		if err := p.Validate(); err != nil {
			return model.Reservation{}, fmt.Errorf("passenger %d: %w", i+1, err)
		}
		normalized[i] = p.Normalize()
	}

	res, err := s.book(ctx, trainNumber, userID, normalized)
	if err != nil {
		return model.Reservation{}, err
	}
	log.WithFields(log.Fields{
		"pnr":   res.PNR,
		"train": trainNumber,
		"owner": userID,
		"seats": res.Seats(),
	}).Info("booking: reservation created")
	s.publish(reservationEvent(queue.EventReservationBooked, res, res.CreatedAt))
	return res.Clone(), nil
}

func (s *Service) book(ctx context.Context, trainNumber int, userID string, passengers []model.Passenger) (model.Reservation, error) {
	unlock := s.locks.lock(trainNumber)
	defer unlock()

	train, err := s.inventory.Lookup(ctx, trainNumber)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := s.inventory.ReserveSeats(ctx, trainNumber, len(passengers)); err != nil {
		return model.Reservation{}, err
	}
	res := model.Reservation{
		Owner:      userID,
		Train:      train.Snapshot(),
		Passengers: passengers,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.record(ctx, &res); err != nil {
		if rerr := s.inventory.ReleaseSeats(ctx, trainNumber, len(passengers)); rerr != nil {
			log.WithFields(log.Fields{
				"train": trainNumber,
				"seats": len(passengers),
			}).WithError(rerr).Error("booking: compensating seat release failed")
		}
		return model.Reservation{}, err
	}
	return res, nil
}

// record allocates a pnr and inserts res under allocMu.
func (s *Service) record(ctx context.Context, res *model.Reservation) error {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	n, err := s.allocator.Allocate(ctx, s.ledger.Contains)
	if err != nil {
		return fmt.Errorf("allocate pnr: %w", err)
	}
	res.PNR = n
	if err := s.ledger.Insert(ctx, *res); err != nil {
		if errors.Is(err, model.ErrDuplicateID) {
			log.WithField("pnr", n).Error("booking: allocated pnr already live in ledger")
		}
		return fmt.Errorf("record reservation %d: %w", n, err)
	}
	return nil
}

// maxCancelAttempts bounds the retry when a pnr is cancelled and reissued on
// a different train between the unlocked lookup and taking the train lock.
const maxCancelAttempts = 3

// Cancel removes the reservation and returns its seats to the train.  Only
// the owner may cancel.  If the train has since been removed the seat
// release is skipped, even when a new train now has the same number.
func (s *Service) Cancel(ctx context.Context, pnr int, userID string) error {
	var (
		removed model.Reservation
		done    bool
	)
	for attempt := 0; attempt < maxCancelAttempts && !done; attempt++ {
		current, err := s.ledger.Get(ctx, pnr)
		if err != nil {
			return err
		}
		if current.Owner != userID {
			return model.ErrForbidden
		}
		done, removed, err = s.cancelOnTrain(ctx, current.Train.Number, pnr, userID)
		if err != nil {
			return err
		}
	}
	if !done {
		return model.ErrReservationNotFound
	}
	log.WithFields(log.Fields{
		"pnr":   pnr,
		"train": removed.Train.Number,
		"owner": userID,
		"seats": removed.Seats(),
	}).Info("booking: reservation cancelled")
	s.publish(reservationEvent(queue.EventReservationCancelled, removed, s.now()))
	return nil
}

// release returns r's seats to its train.  A train removed and added again
// under the same number is a different train; its counters never held r's
// seats, so that case reports ErrTrainNotFound.  The train lock must be held.
func (s *Service) release(ctx context.Context, r model.Reservation) error {
	current, err := s.inventory.Lookup(ctx, r.Train.Number)
	if err != nil {
		return err
	}
	if current.InstanceID != r.Train.InstanceID {
		return model.ErrTrainNotFound
	}
	return s.inventory.ReleaseSeats(ctx, r.Train.Number, r.Seats())
}

// cancelOnTrain re-reads the reservation under the train lock.  It reports
// done=false when the pnr now belongs to another train.
func (s *Service) cancelOnTrain(ctx context.Context, trainNumber, pnr int, userID string) (bool, model.Reservation, error) {
	unlock := s.locks.lock(trainNumber)
	defer unlock()

	current, err := s.ledger.Get(ctx, pnr)
	if err != nil {
		return true, model.Reservation{}, err
	}
	if current.Train.Number != trainNumber {
		return false, model.Reservation{}, nil
	}
	if current.Owner != userID {
		return true, model.Reservation{}, model.ErrForbidden
	}
	removed, err := s.ledger.Remove(ctx, pnr)
	if err != nil {
		return true, model.Reservation{}, err
	}
	err = s.release(ctx, removed)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrTrainNotFound):
		log.WithFields(log.Fields{"pnr": pnr, "train": trainNumber}).
			Info("booking: train no longer exists, nothing to release")
	default:
		if ierr := s.ledger.Insert(ctx, removed); ierr != nil {
			log.WithField("pnr", pnr).WithError(ierr).Error("booking: could not restore reservation after failed release")
		}
		return true, model.Reservation{}, fmt.Errorf("release seats: %w", err)
	}
	return true, removed, nil
}

// GetReservation returns a reservation to its owner, or to any admin.
func (s *Service) GetReservation(ctx context.Context, pnr int, userID string, admin bool) (model.Reservation, error) {
	res, err := s.ledger.Get(ctx, pnr)
	if err != nil {
		return model.Reservation{}, err
	}
	if !admin && res.Owner != userID {
		return model.Reservation{}, model.ErrForbidden
	}
	return res, nil
}

// ListMine returns the caller's reservations in ascending pnr order.
func (s *Service) ListMine(ctx context.Context, userID string) ([]model.Reservation, error) {
	return s.ledger.ListByOwner(ctx, userID)
}

// ListAll returns every live reservation in ascending pnr order.
func (s *Service) ListAll(ctx context.Context) ([]model.Reservation, error) {
	return s.ledger.ListAll(ctx)
}

// AddTrain registers a new train with all of its seats available and
// returns its number.
func (s *Service) AddTrain(ctx context.Context, t model.Train) (int, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	if t.InstanceID == "" {
		t.InstanceID = uuid.NewString()
	}
	unlock := s.locks.lock(t.Number)
	defer unlock()
	if err := s.inventory.AddTrain(ctx, t); err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"train": t.Number, "seats": t.TotalSeats}).Info("booking: train added")
	return t.Number, nil
}

// RemoveTrain deletes a train.  Its live reservations remain in the ledger
// and can still be cancelled.
func (s *Service) RemoveTrain(ctx context.Context, number int) error {
	unlock := s.locks.lock(number)
	defer unlock()
	return s.inventory.RemoveTrain(ctx, number)
}

// ResizeTrain sets a new capacity and resets availability to it.  Seats held
// by live reservations on the train are no longer accounted for; the number
// discarded is logged and published.
func (s *Service) ResizeTrain(ctx context.Context, number, newTotal int) error {
	return s.ModifyTrain(ctx, number, TrainUpdate{TotalSeats: &newTotal})
}

// UpdateFare changes the fare charged to future bookings.
func (s *Service) UpdateFare(ctx context.Context, number int, fareCents int64) error {
	return s.ModifyTrain(ctx, number, TrainUpdate{FareCents: &fareCents})
}

// TrainUpdate carries the optional fields of an administrative edit.
type TrainUpdate = model.TrainUpdate

// ModifyTrain applies u under the train's lock.
func (s *Service) ModifyTrain(ctx context.Context, number int, u TrainUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}

	resized, outstanding, err := s.modify(ctx, number, u)
	if err != nil {
		return err
	}
	if u.TotalSeats != nil {
		if outstanding > 0 {
			log.WithFields(log.Fields{
				"train":       number,
				"outstanding": outstanding,
				"new_total":   resized.TotalSeats,
			}).Warn("booking: resize discarded seats held by live reservations")
		}
		s.publish(resizeEvent(resized, outstanding, s.now()))
	}
	return nil
}

func (s *Service) modify(ctx context.Context, number int, u TrainUpdate) (model.Train, int, error) {
	unlock := s.locks.lock(number)
	defer unlock()

	before, after, err := s.inventory.Modify(ctx, number, u)
	if err != nil {
		return model.Train{}, 0, err
	}
	outstanding := 0
	if u.TotalSeats != nil {
		outstanding = before.TotalSeats - before.AvailableSeats
	}
	return after, outstanding, nil
}

// LookupTrain returns the current state of a train.
func (s *Service) LookupTrain(ctx context.Context, number int) (model.Train, error) {
	return s.inventory.Lookup(ctx, number)
}

// ListTrains returns all trains ordered by key.  Ties keep train number
// order.
func (s *Service) ListTrains(ctx context.Context, key model.TrainSortKey) ([]model.Train, error) {
	trains, err := s.inventory.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(trains, func(a, b model.Train) int { return cmp.Compare(a.Number, b.Number) })
	switch key {
	case model.SortByFare:
		slices.SortStableFunc(trains, func(a, b model.Train) int { return cmp.Compare(a.FareCents, b.FareCents) })
	case model.SortByName:
		slices.SortStableFunc(trains, func(a, b model.Train) int { return strings.Compare(a.Name, b.Name) })
	}
	return trains, nil
}
