// Package queue_publisher publishes reservation events to RabbitMQ.  Errors
// are logged and returned so callers can ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	q "github.com/iliyamo/railway-reservation/internal/queue"
)

// Publisher keeps one connection and channel open and re-dials lazily after
// a failure.  It is safe for concurrent use.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New returns a Publisher for the given broker URL and queue.  No connection
// is made until the first Publish.
func New(url, queue string) *Publisher {
	if queue == "" {
		queue = q.DefaultQueueName
	}
	return &Publisher{url: url, queue: queue, dialTimeout: defaultDialTimeout}
}

// defaultDialTimeout bounds the TCP connect and the AMQP handshake.
const defaultDialTimeout = 3 * time.Second

// Publish sends ev as a persistent JSON message on the default exchange,
// routed to the queue.
func (p *Publisher) Publish(ctx context.Context, ev q.ReservationEvent) error {
	msg, err := publishing(ev, time.Now())
	if err != nil {
		log.WithError(err).Warn("rabbitmq: marshal event failed")
		return err
	}

	ch, err := p.channel(ctx)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: connect failed")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		if p.ch == ch {
			p.reset()
		}
		return err
	}
	return nil
}

func publishing(ev q.ReservationEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    id,
		Type:         ev.Type,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}

// channel returns the open channel, dialling and declaring the queue first
// when needed.  The dial runs without p.mu held and gives up after
// dialTimeout or at ctx's deadline, whichever is sooner.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		// Another publisher connected first.
		_ = ch.Close()
		_ = conn.Close()
		return p.ch, nil
	}
	p.reset()
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, nil, context.DeadlineExceeded
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// reset drops the current connection.  p.mu must be held.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
