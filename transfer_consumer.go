package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/streadway/amqp"

	"bankinghub/ledger"
	"bankinghub/models"
)

// TransferConsumer settles transfers taken off the queue.
type TransferConsumer struct {
	ledger   *ledger.Service
	rabbitMQ *RabbitMQ
}

// NewTransferConsumer creates a consumer settling transfers through led.
func NewTransferConsumer(led *ledger.Service, rabbitMQ *RabbitMQ) *TransferConsumer {
	return &TransferConsumer{ledger: led, rabbitMQ: rabbitMQ}
}

// Start consumes until ctx is cancelled or the delivery channel closes.
func (tc *TransferConsumer) Start(ctx context.Context) error {
	msgs, err := tc.rabbitMQ.consume()
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	log.Printf(" [*] Waiting for transfer messages on %s", TransferQueue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			tc.handle(ctx, d)
		}
	}
}

// handle acks settled or unknown transfers, drops malformed messages and
// requeues anything that failed for infrastructure reasons.
func (tc *TransferConsumer) handle(ctx context.Context, d amqp.Delivery) {
	var qt QueuedTransfer
	if err := json.Unmarshal(d.Body, &qt); err != nil {
		log.Printf("Error unmarshaling transfer message: %v", err)
		d.Nack(false, false)
		return
	}

	_, err := tc.ledger.ProcessTransfer(ctx, qt.TransferID)
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, models.ErrNotFound):
		log.Printf("Dropping message for unknown transfer %d", qt.TransferID)
		d.Ack(false)
	default:
		log.Printf("Error processing transfer: %v", err)
		d.Nack(false, true)
	}
}
