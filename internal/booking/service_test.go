package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/railway-reservation/internal/inventory"
	"github.com/iliyamo/railway-reservation/internal/ledger"
	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/pnr"
	"github.com/iliyamo/railway-reservation/internal/queue"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// failingLedger rejects every insert so the compensating release runs.
type failingLedger struct {
	*ledger.Ledger
}

func (failingLedger) Insert(context.Context, model.Reservation) error {
	return errors.New("disk full")
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, led Ledger, pub Publisher) (*Service, *inventory.Store) {
	t.Helper()
	alloc, err := pnr.New(pnr.Options{Min: 100000, Max: 999999})
	require.NoError(t, err)
	inv := inventory.New()
	svc := NewService(inv, led, alloc, Options{
		Publisher: pub,
		Now:       func() time.Time { return fixedNow },
	})
	return svc, inv
}

func addTrain(t *testing.T, svc *Service, number, seats int, fareCents int64) {
	t.Helper()
	_, err := svc.AddTrain(context.Background(), model.Train{
		Number:      number,
		Name:        "Shatabdi Express",
		Source:      "New Delhi",
		Destination: "Kanpur",
		FareCents:   fareCents,
		TotalSeats:  seats,
	})
	require.NoError(t, err)
}

func passengers(n int) []model.Passenger {
	out := make([]model.Passenger, n)
	for i := range out {
		out[i] = model.Passenger{Name: "Asha", Age: 30, Gender: "f"}
	}
	return out
}

func availableSeats(t *testing.T, svc *Service, number int) int {
	t.Helper()
	tr, err := svc.LookupTrain(context.Background(), number)
	require.NoError(t, err)
	return tr.AvailableSeats
}

func TestService_BookCancelScenario(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, ledger.New(), pub)
	addTrain(t, svc, 12049, 2, 150000)

	first, err := svc.Book(ctx, 12049, "alice", passengers(2))
	require.NoError(t, err)
	assert.Equal(t, 0, availableSeats(t, svc, 12049))
	assert.Equal(t, "alice", first.Owner)
	assert.Equal(t, model.GenderFemale, first.Passengers[0].Gender)
	assert.Equal(t, fixedNow, first.CreatedAt)
	assert.Equal(t, int64(300000), first.TotalFareCents())

	_, err = svc.Book(ctx, 12049, "alice", passengers(1))
	var shortfall *model.InsufficientInventoryError
	require.ErrorAs(t, err, &shortfall)
	assert.Equal(t, 0, shortfall.Available)
	assert.Equal(t, 1, shortfall.Requested)

	require.NoError(t, svc.Cancel(ctx, first.PNR, "alice"))
	assert.Equal(t, 2, availableSeats(t, svc, 12049))

	err = svc.Cancel(ctx, first.PNR, "bob")
	assert.ErrorIs(t, err, model.ErrReservationNotFound)

	assert.Equal(t, []string{queue.EventReservationBooked, queue.EventReservationCancelled}, pub.types())
}

func TestService_Book(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject an unknown train before validating passengers", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)

		_, err := svc.Book(ctx, 1, "alice", nil)

		assert.ErrorIs(t, err, model.ErrTrainNotFound)
	})

	t.Run("should reject an empty passenger list", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)

		_, err := svc.Book(ctx, 1, "alice", nil)

		assert.ErrorIs(t, err, model.ErrInvalidInput)
		assert.Equal(t, 5, availableSeats(t, svc, 1))
	})

	t.Run("should reject a bad passenger without debiting", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)
		ps := passengers(2)
		ps[1].Gender = "X"

		_, err := svc.Book(ctx, 1, "alice", ps)

		assert.ErrorIs(t, err, model.ErrInvalidInput)
		assert.Equal(t, 5, availableSeats(t, svc, 1))
	})

	t.Run("should reject a blank user", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)

		_, err := svc.Book(ctx, 1, "  ", passengers(1))

		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("should keep the fare snapshot after a fare change", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)
		res, err := svc.Book(ctx, 1, "alice", passengers(1))
		require.NoError(t, err)

		require.NoError(t, svc.UpdateFare(ctx, 1, 999))

		got, err := svc.GetReservation(ctx, res.PNR, "alice", false)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.Train.FareCents)
	})

	t.Run("should release seats when the ledger insert fails", func(t *testing.T) {
		svc, _ := newTestService(t, failingLedger{ledger.New()}, nil)
		addTrain(t, svc, 1, 5, 100)

		_, err := svc.Book(ctx, 1, "alice", passengers(3))

		require.Error(t, err)
		assert.Equal(t, 5, availableSeats(t, svc, 1))
	})

	t.Run("should succeed when the publisher fails", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		svc, _ := newTestService(t, ledger.New(), pub)
		addTrain(t, svc, 1, 5, 100)

		_, err := svc.Book(ctx, 1, "alice", passengers(1))

		require.NoError(t, err)
		assert.Equal(t, 4, availableSeats(t, svc, 1))
	})
}

func TestService_ConcurrentBookingNeverOversells(t *testing.T) {
	ctx := context.Background()
	const seats = 64
	svc, _ := newTestService(t, ledger.New(), nil)
	addTrain(t, svc, 22439, seats, 180050)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		pnrs = map[int]bool{}
		errs []error
	)
	for i := 0; i < seats; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Book(ctx, 22439, "alice", passengers(1))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			pnrs[res.PNR] = true
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, pnrs, seats)
	assert.Equal(t, 0, availableSeats(t, svc, 22439))

	_, err := svc.Book(ctx, 22439, "alice", passengers(1))
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)
}

func TestService_ConcurrentBookAndCancel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, ledger.New(), nil)
	addTrain(t, svc, 7, 10, 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Book(ctx, 7, "alice", passengers(2))
			if err != nil {
				return
			}
			_ = svc.Cancel(ctx, res.PNR, "alice")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, availableSeats(t, svc, 7))
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("should refuse a non-owner and leave seats debited", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)
		res, err := svc.Book(ctx, 1, "alice", passengers(2))
		require.NoError(t, err)

		err = svc.Cancel(ctx, res.PNR, "bob")

		assert.ErrorIs(t, err, model.ErrForbidden)
		assert.Equal(t, 3, availableSeats(t, svc, 1))
	})

	t.Run("should report an unknown pnr", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)

		assert.ErrorIs(t, svc.Cancel(ctx, 123456, "alice"), model.ErrReservationNotFound)
	})

	t.Run("should drop the reservation when its train is gone", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)
		res, err := svc.Book(ctx, 1, "alice", passengers(2))
		require.NoError(t, err)
		require.NoError(t, svc.RemoveTrain(ctx, 1))

		require.NoError(t, svc.Cancel(ctx, res.PNR, "alice"))

		_, err = svc.GetReservation(ctx, res.PNR, "alice", false)
		assert.ErrorIs(t, err, model.ErrReservationNotFound)
	})

	t.Run("should not credit a train re-added under the same number", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)
		old, err := svc.Book(ctx, 1, "alice", passengers(3))
		require.NoError(t, err)
		require.NoError(t, svc.RemoveTrain(ctx, 1))
		addTrain(t, svc, 1, 5, 100)
		_, err = svc.Book(ctx, 1, "bob", passengers(5))
		require.NoError(t, err)

		require.NoError(t, svc.Cancel(ctx, old.PNR, "alice"))

		assert.Equal(t, 0, availableSeats(t, svc, 1))
		_, err = svc.Book(ctx, 1, "carol", passengers(1))
		assert.ErrorIs(t, err, model.ErrInsufficientInventory)
		_, err = svc.GetReservation(ctx, old.PNR, "alice", false)
		assert.ErrorIs(t, err, model.ErrReservationNotFound)
	})

	t.Run("should tag each added train with a fresh instance", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 5, 100)
		first, err := svc.LookupTrain(ctx, 1)
		require.NoError(t, err)
		res, err := svc.Book(ctx, 1, "alice", passengers(1))
		require.NoError(t, err)
		require.NoError(t, svc.RemoveTrain(ctx, 1))
		addTrain(t, svc, 1, 5, 100)
		second, err := svc.LookupTrain(ctx, 1)
		require.NoError(t, err)

		assert.NotEmpty(t, first.InstanceID)
		assert.Equal(t, first.InstanceID, res.Train.InstanceID)
		assert.NotEqual(t, first.InstanceID, second.InstanceID)
	})
}

func TestService_GetAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, ledger.New(), nil)
	addTrain(t, svc, 1, 10, 100)

	a1, err := svc.Book(ctx, 1, "alice", passengers(1))
	require.NoError(t, err)
	b1, err := svc.Book(ctx, 1, "bob", passengers(1))
	require.NoError(t, err)
	a2, err := svc.Book(ctx, 1, "alice", passengers(1))
	require.NoError(t, err)

	_, err = svc.GetReservation(ctx, b1.PNR, "alice", false)
	assert.ErrorIs(t, err, model.ErrForbidden)

	got, err := svc.GetReservation(ctx, b1.PNR, "admin", true)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Owner)

	mine, err := svc.ListMine(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Less(t, mine[0].PNR, mine[1].PNR)
	assert.ElementsMatch(t, []int{a1.PNR, a2.PNR}, []int{mine[0].PNR, mine[1].PNR})

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_ModifyTrain(t *testing.T) {
	ctx := context.Background()

	t.Run("should reset availability on resize and publish discarded seats", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc, _ := newTestService(t, ledger.New(), pub)
		addTrain(t, svc, 1, 10, 100)
		_, err := svc.Book(ctx, 1, "alice", passengers(4))
		require.NoError(t, err)

		require.NoError(t, svc.ResizeTrain(ctx, 1, 20))

		tr, err := svc.LookupTrain(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 20, tr.TotalSeats)
		assert.Equal(t, 20, tr.AvailableSeats)
		require.Len(t, pub.events, 2)
		assert.Equal(t, queue.EventTrainResized, pub.events[1].Type)
		assert.Equal(t, 4, pub.events[1].DiscardedSeats)
	})

	t.Run("should apply fare and seats together", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 10, 100)
		fare, seats := int64(250), 3

		require.NoError(t, svc.ModifyTrain(ctx, 1, TrainUpdate{FareCents: &fare, TotalSeats: &seats}))

		tr, err := svc.LookupTrain(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(250), tr.FareCents)
		assert.Equal(t, 3, tr.TotalSeats)
	})

	t.Run("should reject invalid updates", func(t *testing.T) {
		svc, _ := newTestService(t, ledger.New(), nil)
		addTrain(t, svc, 1, 10, 100)

		assert.ErrorIs(t, svc.ResizeTrain(ctx, 1, -1), model.ErrInvalidInput)
		assert.ErrorIs(t, svc.UpdateFare(ctx, 1, -5), model.ErrInvalidInput)
		assert.ErrorIs(t, svc.ModifyTrain(ctx, 1, TrainUpdate{}), model.ErrInvalidInput)
		assert.ErrorIs(t, svc.ResizeTrain(ctx, 2, 5), model.ErrTrainNotFound)
	})
}

func TestService_RejectsOverlongText(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, ledger.New(), nil)
	addTrain(t, svc, 1, 5, 100)
	long := strings.Repeat("x", model.MaxTextLen+1)

	_, err := svc.Book(ctx, 1, "alice", []model.Passenger{{Name: long, Age: 30, Gender: "M"}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, 5, availableSeats(t, svc, 1))

	_, err = svc.AddTrain(ctx, model.Train{Number: 2, Name: "Local", Source: long, Destination: "B", TotalSeats: 1})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestService_ListTrains(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, ledger.New(), nil)
	for _, tr := range []model.Train{
		{Number: 15027, Name: "Maurya Express", Source: "Gorakhpur", Destination: "Hatia", FareCents: 75000, TotalSeats: 200},
		{Number: 12049, Name: "Shatabdi Express", Source: "New Delhi", Destination: "Kanpur", FareCents: 150000, TotalSeats: 100},
		{Number: 12951, Name: "Rajdhani Express", Source: "Mumbai", Destination: "New Delhi", FareCents: 150000, TotalSeats: 72},
	} {
		_, err := svc.AddTrain(ctx, tr)
		require.NoError(t, err)
	}

	numbers := func(trains []model.Train) []int {
		out := make([]int, len(trains))
		for i, tr := range trains {
			out[i] = tr.Number
		}
		return out
	}

	byNumber, err := svc.ListTrains(ctx, model.SortByNumber)
	require.NoError(t, err)
	assert.Equal(t, []int{12049, 12951, 15027}, numbers(byNumber))

	byFare, err := svc.ListTrains(ctx, model.SortByFare)
	require.NoError(t, err)
	assert.Equal(t, []int{15027, 12049, 12951}, numbers(byFare))

	byName, err := svc.ListTrains(ctx, model.SortByName)
	require.NoError(t, err)
	assert.Equal(t, []int{15027, 12951, 12049}, numbers(byName))
}

func TestService_AddTrainDuplicate(t *testing.T) {
	svc, _ := newTestService(t, ledger.New(), nil)
	addTrain(t, svc, 1, 10, 100)

	_, err := svc.AddTrain(context.Background(), model.Train{
		Number: 1, Name: "Other", Source: "A", Destination: "B", TotalSeats: 1,
	})

	assert.ErrorIs(t, err, model.ErrDuplicateID)
}

func TestStripeForTrain(t *testing.T) {
	for _, n := range []int{1, 12049, 22439, 999999} {
		s := stripeForTrain(n, 64)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 64)
		assert.Equal(t, s, stripeForTrain(n, 64))
	}
}
