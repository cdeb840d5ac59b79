// Package seed loads the demo timetable and accounts used in development.
package seed

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// Trains is the demo timetable.
func Trains() []model.Train {
	return []model.Train{
		{Number: 12049, Name: "Shatabdi Express", Source: "New Delhi", Destination: "Kanpur", FareCents: 150000, TotalSeats: 100},
		{Number: 12951, Name: "Rajdhani Express", Source: "Mumbai", Destination: "New Delhi", FareCents: 287000, TotalSeats: 72},
		{Number: 22439, Name: "Vande Bharat", Source: "New Delhi", Destination: "Katra", FareCents: 180050, TotalSeats: 80},
		{Number: 12301, Name: "Howrah Rajdhani", Source: "Kolkata", Destination: "New Delhi", FareCents: 295000, TotalSeats: 72},
		{Number: 15027, Name: "Maurya Express", Source: "Gorakhpur", Destination: "Hatia", FareCents: 75000, TotalSeats: 200},
	}
}

// Account is a demo login.
type Account struct {
	Username string
	Password string
	Role     model.Role
}

// Accounts are the demo logins.
func Accounts() []Account {
	return []Account{
		{Username: "admin", Password: "admin123", Role: model.RoleAdmin},
		{Username: "user", Password: "user123", Role: model.RoleTraveler},
	}
}

// TrainAdder is satisfied by booking.Service.
type TrainAdder interface {
	AddTrain(ctx context.Context, t model.Train) (int, error)
}

// UserEnsurer is satisfied by auth.Registry.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, username, password string, role model.Role) error
}

// Load adds the demo trains and accounts.  Entries that already exist are
// left alone, so Load can run on every start against a persistent store.
func Load(ctx context.Context, trains TrainAdder, users UserEnsurer) error {
	added := 0
	for _, t := range Trains() {
		if _, err := trains.AddTrain(ctx, t); err != nil {
			if errors.Is(err, model.ErrDuplicateID) {
				continue
			}
			return err
		}
		added++
	}
	for _, a := range Accounts() {
		if err := users.EnsureUser(ctx, a.Username, a.Password, a.Role); err != nil {
			return err
		}
	}
	log.WithField("trains_added", added).Info("seed: demo data loaded")
	return nil
}
