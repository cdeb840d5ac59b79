package repository

import (
	"context"
	"database/sql"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// TrainRepo is the MySQL seat inventory.  Seat counters are only changed
// inside a transaction that holds the train row with SELECT ... FOR UPDATE,
// so the availability check and the debit are atomic across processes too.
type TrainRepo struct {
	db *sql.DB
}

// NewTrainRepo returns a TrainRepo bound to db.
func NewTrainRepo(db *sql.DB) *TrainRepo { return &TrainRepo{db: db} }

const trainColumns = `number, name, source, destination, fare_cents, total_seats, available_seats, instance_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrain(row rowScanner) (model.Train, error) {
	var t model.Train
	err := row.Scan(&t.Number, &t.Name, &t.Source, &t.Destination, &t.FareCents, &t.TotalSeats, &t.AvailableSeats, &t.InstanceID)
	return t, err
}

// AddTrain inserts t with every seat available.
func (r *TrainRepo) AddTrain(ctx context.Context, t model.Train) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trains (`+trainColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Number, t.Name, t.Source, t.Destination, t.FareCents, t.TotalSeats, t.TotalSeats, t.InstanceID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.ErrDuplicateID
		}
		return err
	}
	return nil
}

// RemoveTrain deletes the train row.  Reservations keep their snapshot
// columns and are not touched.
func (r *TrainRepo) RemoveTrain(ctx context.Context, number int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trains WHERE number = ?`, number)
	if err != nil {
		return err
	}
	return requireAffected(res, model.ErrTrainNotFound)
}

// Lookup returns the train with the given number.
func (r *TrainRepo) Lookup(ctx context.Context, number int) (model.Train, error) {
	t, err := scanTrain(r.db.QueryRowContext(ctx,
		`SELECT `+trainColumns+` FROM trains WHERE number = ?`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Train{}, model.ErrTrainNotFound
	}
	return t, err
}

// List returns every train ordered by number.
func (r *TrainRepo) List(ctx context.Context) ([]model.Train, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+trainColumns+` FROM trains ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Train
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// lockCounters reads the seat counters of a train and locks its row for the
// rest of tx.
func lockCounters(ctx context.Context, tx *sql.Tx, number int) (total, available int, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT total_seats, available_seats FROM trains WHERE number = ? FOR UPDATE`, number).
		Scan(&total, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, model.ErrTrainNotFound
	}
	return total, available, err
}

// ReserveSeats debits count seats if that many are available.
func (r *TrainRepo) ReserveSeats(ctx context.Context, number, count int) error {
	if count <= 0 {
		return model.InvalidInputError("seat count must be positive")
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, available, err := lockCounters(ctx, tx, number)
		if err != nil {
			return err
		}
		if available < count {
			return &model.InsufficientInventoryError{
				TrainNumber: number,
				Requested:   count,
				Available:   available,
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE trains SET available_seats = ? WHERE number = ?`, available-count, number)
		return err
	})
}

// ReleaseSeats credits count seats back, clamped to the train's capacity.
func (r *TrainRepo) ReleaseSeats(ctx context.Context, number, count int) error {
	if count < 0 {
		return model.InvalidInputError("seat count must not be negative")
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		total, available, err := lockCounters(ctx, tx, number)
		if err != nil {
			return err
		}
		next := available + count
		if next > total {
			log.WithFields(log.Fields{
				"train":     number,
				"available": next,
				"total":     total,
			}).Warn("repository: release overflowed capacity, clamping")
			next = total
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE trains SET available_seats = ? WHERE number = ?`, next, number)
		return err
	})
}

// Modify applies u in one transaction that holds the train row, and returns
// the train as it was before and after.
func (r *TrainRepo) Modify(ctx context.Context, number int, u model.TrainUpdate) (before, after model.Train, err error) {
	if err := u.Validate(); err != nil {
		return model.Train{}, model.Train{}, err
	}
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := scanTrain(tx.QueryRowContext(ctx,
			`SELECT `+trainColumns+` FROM trains WHERE number = ? FOR UPDATE`, number))
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrTrainNotFound
		}
		if err != nil {
			return err
		}
		next := u.Apply(cur)
		if _, err := tx.ExecContext(ctx,
			`UPDATE trains SET fare_cents = ?, total_seats = ?, available_seats = ? WHERE number = ?`,
			next.FareCents, next.TotalSeats, next.AvailableSeats, number); err != nil {
			return err
		}
		before, after = cur, next
		return nil
	})
	if err != nil {
		return model.Train{}, model.Train{}, err
	}
	return before, after, nil
}

// requireAffected maps zero matched rows to notFound.  The DSN sets
// clientFoundRows, so an UPDATE that matches but changes nothing still
// counts as one row.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
