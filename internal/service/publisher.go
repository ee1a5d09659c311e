// Package service holds business operations that sit between the HTTP
// handlers and the repositories, and the publisher for domain events.
// Publish errors are returned so callers can log and ignore them without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flick-backend/internal/queue"
)

// Publisher sends catalog events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.CatalogEvent) error
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.CatalogEvent) error { return nil }

// AMQPPublisher publishes each event as a persistent JSON message to the
// catalog queue.  Writes are rare, so a connection is opened per publish.
type AMQPPublisher struct {
	URL string
	Log *logrus.Entry
}

// Publish never panics; any error is logged and returned.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.CatalogEvent) error {
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.CatalogQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	); err != nil {
		p.Log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                 // default exchange
		queue.CatalogQueue, // routing key = queue name
		false,              // mandatory
		false,              // immediate
		pub,
	); err != nil {
		p.Log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// PublishAsync publishes ev in the background with its own timeout so a slow
// broker never delays the response.  Failures are only logged.
func PublishAsync(p Publisher, log *logrus.Entry, ev queue.CatalogEvent) {
	if p == nil {
		return
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil && log != nil {
			log.WithError(err).WithField("event", ev.Type).Warn("event not published")
		}
	}()
}
