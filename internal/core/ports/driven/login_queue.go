package driven

import (
	"context"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// LoginHandler applies one login event. Returning an error leaves the stream
// entry pending so a later sweep retries it.
type LoginHandler func(ctx context.Context, ev domain.LoginEvent) error

// LoginQueue is the durable login-update stream (Redis Streams). Delivery is
// at-least-once within a consumer group; handlers must be idempotent.
type LoginQueue interface {
	// Publish appends a login event to the stream
	Publish(ctx context.Context, ev domain.LoginEvent) error

	// Consume reads new entries for this consumer, applies the handler and
	// acknowledges on success. Blocks up to block waiting for entries.
	// Returns the number of entries processed.
	Consume(ctx context.Context, block time.Duration, handler LoginHandler) (int, error)

	// ProcessPending re-claims and reprocesses this consumer's own pending
	// entries (delivered but not acknowledged)
	ProcessPending(ctx context.Context, handler LoginHandler) (int, error)

	// ReclaimOrphans claims pending entries across the whole group whose
	// owning consumer is no longer live, and processes them locally
	ReclaimOrphans(ctx context.Context, handler LoginHandler) (int, error)

	// RemoveConsumer deletes this consumer from the group on graceful
	// shutdown so peers can reclaim its pending entries immediately
	RemoveConsumer(ctx context.Context) error

	// Ping checks if the queue backend is healthy
	Ping(ctx context.Context) error
}
