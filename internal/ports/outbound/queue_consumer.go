package outbound

import "context"

// QueueMessage is a single message pulled from the review-decision queue.
type QueueMessage struct {
	// MessageID uniquely identifies the message.
	MessageID string

	// ReceiptHandle is used to delete the message after processing.
	ReceiptHandle string

	// Body is the raw message payload.
	Body string
}

// QueueConsumer pulls review decisions submitted asynchronously, e.g. from a
// back-office tool that cannot call the HTTP API directly.
type QueueConsumer interface {
	// ReceiveMessages fetches up to maxMessages from the queue, blocking for
	// the consumer's long-poll window when the queue is empty.
	ReceiveMessages(ctx context.Context, maxMessages int) ([]QueueMessage, error)

	// DeleteMessage removes a processed message from the queue.
	DeleteMessage(ctx context.Context, receiptHandle string) error

	// Close releases consumer resources.
	Close() error
}
