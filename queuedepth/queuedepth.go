// Package queuedepth provides the queue-depth probe the sqs trigger
// strategy uses to read ApproximateNumberOfMessages (§4.4, §6).
package queuedepth

import "context"

// Client reads the approximate depth of a named queue.
type Client interface {
	ApproximateMessages(ctx context.Context, queueName string) (int, error)
}
