// Package queue defines message payloads exchanged over the message broker.
package queue

// DefaultQueueName is the durable queue reservation events are routed to.
const DefaultQueueName = "reservation.events"

// Event types carried in ReservationEvent.Type.
const (
	EventReservationBooked    = "reservation.booked"
	EventReservationCancelled = "reservation.cancelled"
	EventTrainResized         = "train.resized"
)

// ReservationEvent is published after a booking, a cancellation or a
// capacity reset has been applied.  It carries enough of the frozen train
// snapshot for consumers to log or notify without calling back into the
// service.
type ReservationEvent struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	PNR            int    `json:"pnr,omitempty"`
	Owner          string `json:"owner,omitempty"`
	TrainNumber    int    `json:"train_number"`
	TrainName      string `json:"train_name"`
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	Passengers     int    `json:"passengers,omitempty"`
	TotalFareCents int64  `json:"total_fare_cents,omitempty"`
	TotalSeats     int    `json:"total_seats,omitempty"`
	DiscardedSeats int    `json:"discarded_seats,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}
