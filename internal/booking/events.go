package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/queue"
)

// Publisher delivers reservation events to downstream consumers.  Failures
// are logged by the service and never undo the operation that produced the
// event.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

const publishTimeout = 3 * time.Second

func reservationEvent(kind string, r model.Reservation, at time.Time) queue.ReservationEvent {
	return queue.ReservationEvent{
		ID:             uuid.NewString(),
		Type:           kind,
		PNR:            r.PNR,
		Owner:          r.Owner,
		TrainNumber:    r.Train.Number,
		TrainName:      r.Train.Name,
		Source:         r.Train.Source,
		Destination:    r.Train.Destination,
		Passengers:     r.Seats(),
		TotalFareCents: r.TotalFareCents(),
		OccurredAt:     at.UTC().Format(time.RFC3339),
	}
}

func resizeEvent(t model.Train, outstanding int, at time.Time) queue.ReservationEvent {
	return queue.ReservationEvent{
		ID:             uuid.NewString(),
		Type:           queue.EventTrainResized,
		TrainNumber:    t.Number,
		TrainName:      t.Name,
		Source:         t.Source,
		Destination:    t.Destination,
		TotalSeats:     t.TotalSeats,
		DiscardedSeats: outstanding,
		OccurredAt:     at.UTC().Format(time.RFC3339),
	}
}

// publish runs after all locks are released.  It detaches from the request
// context so a client disconnect does not drop the event.
func (s *Service) publish(ev queue.ReservationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.WithFields(log.Fields{
			"event": ev.Type,
			"pnr":   ev.PNR,
			"train": ev.TrainNumber,
		}).WithError(err).Warn("booking: publish event failed")
	}
}
