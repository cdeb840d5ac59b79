package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// LogFileName is the file, inside Consumer.LogDir, that events are appended
// to.
const LogFileName = "reservations.log"

// Consumer reads reservation events from a durable queue and appends one
// human-readable line per event to LogDir/reservations.log.
type Consumer struct {
	URL    string
	Queue  string
	LogDir string
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial
// failures back off exponentially up to 30s; a dropped connection is
// re-established.  Messages that cannot be handled are rejected without
// requeue so the loop keeps moving.
func (c Consumer) Run(ctx context.Context) error {
	if c.Queue == "" {
		c.Queue = DefaultQueueName
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.WithError(err).Warnf("booking-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("booking-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				log.WithError(err).Warn("booking-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c Consumer) handleMessage(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	dir := c.LogDir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders ev as a single log line ending in a newline.
func FormatEvent(ev ReservationEvent) string {
	switch ev.Type {
	case EventReservationBooked, EventReservationCancelled:
		verb := "booked"
		if ev.Type == EventReservationCancelled {
			verb = "cancelled"
		}
		return fmt.Sprintf("[%s] Reservation %s | pnr=%d | owner=%s | train=%d \"%s\" | route=\"%s -> %s\" | passengers=%d | total=%d cents\n",
			ev.OccurredAt, verb, ev.PNR, ev.Owner, ev.TrainNumber, ev.TrainName, ev.Source, ev.Destination, ev.Passengers, ev.TotalFareCents)
	case EventTrainResized:
		return fmt.Sprintf("[%s] Train resized | train=%d \"%s\" | total_seats=%d | discarded=%d\n",
			ev.OccurredAt, ev.TrainNumber, ev.TrainName, ev.TotalSeats, ev.DiscardedSeats)
	}
	return fmt.Sprintf("[%s] Unknown event %q | id=%s\n", ev.OccurredAt, ev.Type, ev.ID)
}
