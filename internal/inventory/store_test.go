package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/railway-reservation/internal/model"
)

func newTrain(number, seats int) model.Train {
	return model.Train{
		Number:      number,
		Name:        "Vande Bharat",
		Source:      "New Delhi",
		Destination: "Katra",
		FareCents:   180050,
		TotalSeats:  seats,
	}
}

func TestStore_AddTrain(t *testing.T) {
	ctx := context.Background()

	t.Run("should start with all seats available", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(22439, 80)))

		got, err := s.Lookup(ctx, 22439)
		require.NoError(t, err)
		assert.Equal(t, 80, got.AvailableSeats)
		assert.Equal(t, 80, got.TotalSeats)
	})

	t.Run("should reject duplicate train number", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(22439, 80)))

		err := s.AddTrain(ctx, newTrain(22439, 10))
		assert.ErrorIs(t, err, model.ErrDuplicateID)
	})

	t.Run("should reject negative fare", func(t *testing.T) {
		s := New()
		tr := newTrain(1, 1)
		tr.FareCents = -1

		err := s.AddTrain(ctx, tr)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

func TestStore_ReserveSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("should debit available seats", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(7, 5)))

		require.NoError(t, s.ReserveSeats(ctx, 7, 3))

		got, _ := s.Lookup(ctx, 7)
		assert.Equal(t, 2, got.AvailableSeats)
	})

	t.Run("should leave state untouched and report availability on shortfall", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(7, 2)))

		err := s.ReserveSeats(ctx, 7, 3)

		var insufficient *model.InsufficientInventoryError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, 2, insufficient.Available)
		assert.ErrorIs(t, err, model.ErrInsufficientInventory)
		got, _ := s.Lookup(ctx, 7)
		assert.Equal(t, 2, got.AvailableSeats)
	})

	t.Run("should fail for unknown train", func(t *testing.T) {
		err := New().ReserveSeats(ctx, 99, 1)
		assert.ErrorIs(t, err, model.ErrTrainNotFound)
	})

	t.Run("should reject non-positive count", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(7, 2)))
		assert.ErrorIs(t, s.ReserveSeats(ctx, 7, 0), model.ErrInvalidInput)
	})

	t.Run("should never oversell under concurrent debits", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(7, 50)))

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.ReserveSeats(ctx, 7, 1) == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, succeeded)
		got, _ := s.Lookup(ctx, 7)
		assert.Equal(t, 0, got.AvailableSeats)
	})
}

func TestStore_ReleaseSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("should credit seats back", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(7, 5)))
		require.NoError(t, s.ReserveSeats(ctx, 7, 4))

		require.NoError(t, s.ReleaseSeats(ctx, 7, 4))

		got, _ := s.Lookup(ctx, 7)
		assert.Equal(t, 5, got.AvailableSeats)
	})

	t.Run("should clamp at total seats", func(t *testing.T) {
		s := New()
		require.NoError(t, s.AddTrain(ctx, newTrain(7, 5)))
		require.NoError(t, s.ReserveSeats(ctx, 7, 1))

		require.NoError(t, s.ReleaseSeats(ctx, 7, 3))

		got, _ := s.Lookup(ctx, 7)
		assert.Equal(t, 5, got.AvailableSeats)
	})

	t.Run("should report missing train", func(t *testing.T) {
		err := New().ReleaseSeats(ctx, 1, 1)
		assert.ErrorIs(t, err, model.ErrTrainNotFound)
	})
}

func TestStore_Modify(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddTrain(ctx, newTrain(7, 10)))
	require.NoError(t, s.ReserveSeats(ctx, 7, 6))

	fare, seats := int64(99900), 20
	before, after, err := s.Modify(ctx, 7, model.TrainUpdate{FareCents: &fare, TotalSeats: &seats})

	require.NoError(t, err)
	assert.Equal(t, 4, before.AvailableSeats)
	assert.Equal(t, int64(99900), after.FareCents)
	assert.Equal(t, 20, after.TotalSeats)
	assert.Equal(t, 20, after.AvailableSeats, "resize resets availability")
	got, _ := s.Lookup(ctx, 7)
	assert.Equal(t, after, got)

	neg := -1
	_, _, err = s.Modify(ctx, 7, model.TrainUpdate{TotalSeats: &neg})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	got, _ = s.Lookup(ctx, 7)
	assert.Equal(t, after, got, "rejected update leaves the train untouched")

	_, _, err = s.Modify(ctx, 8, model.TrainUpdate{TotalSeats: &seats})
	assert.ErrorIs(t, err, model.ErrTrainNotFound)
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddTrain(ctx, newTrain(7, 10)))

	require.NoError(t, s.RemoveTrain(ctx, 7))
	_, err := s.Lookup(ctx, 7)
	assert.ErrorIs(t, err, model.ErrTrainNotFound)
	assert.ErrorIs(t, s.RemoveTrain(ctx, 7), model.ErrTrainNotFound)

	trains, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, trains)
}
