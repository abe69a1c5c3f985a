package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/streadway/amqp"

	"bankinghub/ledger"
)

const (
	TransferQueue = "transfer_queue"
)

// QueuedTransfer is the message asking a consumer to settle a transfer.
type QueuedTransfer struct {
	TransferID int64 `json:"transfer_id"`
}

// Dispatcher hands a due transfer over for settlement.
type Dispatcher interface {
	Dispatch(ctx context.Context, transferID int64) error
}

// inlineDispatcher settles transfers on the calling goroutine. It is used
// when no broker is configured.
type inlineDispatcher struct {
	ledger *ledger.Service
}

func (d inlineDispatcher) Dispatch(ctx context.Context, transferID int64) error {
	_, err := d.ledger.ProcessTransfer(ctx, transferID)
	return err
}

// RabbitMQ connection wrapper
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

// NewRabbitMQ dials the broker and declares the durable transfer queue.
func NewRabbitMQ(uri string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		TransferQueue, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare %s: %w", TransferQueue, err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
	}, nil
}

// Close connections
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

// PublishTransfer publishes a persistent settlement request.
func (r *RabbitMQ) PublishTransfer(qt QueuedTransfer) error {
	body, err := json.Marshal(qt)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.Publish(
		"",            // exchange
		TransferQueue, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
}

func (r *RabbitMQ) Dispatch(_ context.Context, transferID int64) error {
	if err := r.PublishTransfer(QueuedTransfer{TransferID: transferID}); err != nil {
		return fmt.Errorf("publish transfer %d: %w", transferID, err)
	}
	log.Printf("transfer %d queued", transferID)
	return nil
}

func (r *RabbitMQ) consume() (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.Consume(
		TransferQueue, // queue
		"",            // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
}
