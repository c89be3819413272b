// Package queue_publisher publishes booking lifecycle events to
// RabbitMQ after the owning database transaction has committed.
// Errors are logged and returned; callers treat publication as best
// effort and never fail the request over it.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/railway-seat-booking/internal/queue"
)

// PublishBookingConfirmed sends a BookingConfirmedEvent to the
// booking.confirmed queue.
func PublishBookingConfirmed(ctx context.Context, event q.BookingConfirmedEvent) error {
	return publish(ctx, q.BookingConfirmedQueue, event)
}

// PublishBookingCancelled sends a BookingCancelledEvent to the
// booking.cancelled queue.
func PublishBookingCancelled(ctx context.Context, event q.BookingCancelledEvent) error {
	return publish(ctx, q.BookingCancelledQueue, event)
}

// publish dials the broker, declares the durable queue and publishes
// one persistent JSON message.  A connection per publish keeps this
// free of shared channel state; booking volume does not justify a
// pooled channel here.
func publish(ctx context.Context, queueName string, event interface{}) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
