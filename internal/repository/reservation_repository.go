package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// ReservationRepo is the MySQL reservation ledger.  A reservation row holds
// the pnr, the owner and the train snapshot taken at booking time; its
// passengers live in reservation_passengers keyed by (pnr, position).  There
// is no foreign key to trains; a reservation outlives the removal of its
// train.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to db.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `pnr, owner, train_number, train_name, source, destination, fare_cents, train_instance_id, created_at`

func scanReservation(row rowScanner) (model.Reservation, error) {
	var r model.Reservation
	err := row.Scan(&r.PNR, &r.Owner, &r.Train.Number, &r.Train.Name, &r.Train.Source,
		&r.Train.Destination, &r.Train.FareCents, &r.Train.InstanceID, &r.CreatedAt)
	return r, err
}

// Insert stores r and its passengers in one transaction.  A pnr that is
// already live yields ErrDuplicateID.
func (r *ReservationRepo) Insert(ctx context.Context, res model.Reservation) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.PNR, res.Owner, res.Train.Number, res.Train.Name, res.Train.Source,
			res.Train.Destination, res.Train.FareCents, res.Train.InstanceID, res.CreatedAt.UTC())
		if err != nil {
			if isDuplicateKey(err) {
				return model.ErrDuplicateID
			}
			return err
		}
		return insertPassengersTx(ctx, tx, res.PNR, res.Passengers)
	})
}

// insertPassengersTx writes all passengers of a reservation in a single
// statement.  An empty slice is a no-op.
func insertPassengersTx(ctx context.Context, tx *sql.Tx, pnr int, passengers []model.Passenger) error {
	if len(passengers) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO reservation_passengers (pnr, position, name, age, gender) VALUES `)
	args := make([]any, 0, len(passengers)*5)
	for i, p := range passengers {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, pnr, i, p.Name, p.Age, string(p.Gender))
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// Contains reports whether pnr is live.
func (r *ReservationRepo) Contains(ctx context.Context, pnr int) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE pnr = ? LIMIT 1`, pnr).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the reservation with its passengers in booking order.
func (r *ReservationRepo) Get(ctx context.Context, pnr int) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE pnr = ?`, pnr))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, model.ErrReservationNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	byPNR, err := loadPassengers(ctx, r.db, []int{pnr})
	if err != nil {
		return model.Reservation{}, err
	}
	res.Passengers = byPNR[pnr]
	return res, nil
}

// Remove deletes the reservation and returns it as it was.
func (r *ReservationRepo) Remove(ctx context.Context, pnr int) (model.Reservation, error) {
	var removed model.Reservation
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := scanReservation(tx.QueryRowContext(ctx,
			`SELECT `+reservationColumns+` FROM reservations WHERE pnr = ? FOR UPDATE`, pnr))
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrReservationNotFound
		}
		if err != nil {
			return err
		}
		byPNR, err := loadPassengers(ctx, tx, []int{pnr})
		if err != nil {
			return err
		}
		res.Passengers = byPNR[pnr]
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_passengers WHERE pnr = ?`, pnr); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE pnr = ?`, pnr); err != nil {
			return err
		}
		removed = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return removed, nil
}

// ListByOwner returns the owner's reservations in ascending pnr order.
func (r *ReservationRepo) ListByOwner(ctx context.Context, owner string) ([]model.Reservation, error) {
	return r.list(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE owner = ? ORDER BY pnr`, owner)
}

// ListAll returns every live reservation in ascending pnr order.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY pnr`)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	pnrs := make([]int, len(out))
	for i, res := range out {
		pnrs[i] = res.PNR
	}
	byPNR, err := loadPassengers(ctx, r.db, pnrs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Passengers = byPNR[out[i].PNR]
	}
	return out, nil
}

// MaxPNR returns the highest live pnr, or 0 when the ledger is empty.  It
// seeds the allocator's fallback counter at startup.
func (r *ReservationRepo) MaxPNR(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(pnr), 0) FROM reservations`).Scan(&n)
	return n, err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadPassengers fetches passengers for all pnrs with a single IN query.
func loadPassengers(ctx context.Context, q queryer, pnrs []int) (map[int][]model.Passenger, error) {
	placeholders := make([]string, 0, len(pnrs))
	args := make([]any, 0, len(pnrs))
	for _, p := range pnrs {
		placeholders = append(placeholders, "?")
		args = append(args, p)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT pnr, name, age, gender FROM reservation_passengers
                  WHERE pnr IN (`+strings.Join(placeholders, ",")+`)
                  ORDER BY pnr, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int][]model.Passenger, len(pnrs))
	for rows.Next() {
		var (
			pnr    int
			p      model.Passenger
			gender string
		)
		if err := rows.Scan(&pnr, &p.Name, &p.Age, &gender); err != nil {
			return nil, err
		}
		p.Gender = model.Gender(gender)
		out[pnr] = append(out[pnr], p)
	}
	return out, rows.Err()
}
