package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/metrics"
)

const (
	// Stream names
	loginStream = "iduser:logins"
	loginGroup  = "iduser:login-workers"

	// Default consumer name prefix
	consumerPrefix = "login-worker-"

	// Claim timeout - how long before a pending entry may be claimed by
	// another consumer
	claimTimeout = 10 * time.Second

	// Consumers idle longer than this with no pending entries are removed
	// from the group during orphan sweeps
	deadConsumerIdle = 10 * time.Minute

	// Batch size for reads and pending scans
	readBatch = 10
)

// Verify interface compliance
var _ driven.LoginQueue = (*LoginQueue)(nil)

var (
	processConsumer     string
	processConsumerOnce sync.Once
)

// processConsumerName returns a consumer name that is stable for the lifetime
// of this process. Restarts get a fresh name; the old one's pending entries
// are picked up by the orphan sweep.
func processConsumerName() string {
	processConsumerOnce.Do(func() {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "unknown"
		}
		processConsumer = fmt.Sprintf("%s%s-%04x", consumerPrefix, host, rand.Intn(0x10000))
	})
	return processConsumer
}

// LoginQueue implements driven.LoginQueue using Redis Streams.
// A consumer group gives at-least-once delivery: entries stay pending until
// acknowledged, so a crashed consumer's work is recoverable.
type LoginQueue struct {
	client       *redis.Client
	consumerName string
	claimMinIdle time.Duration
	metrics      *metrics.Metrics
}

// NewLoginQueue creates a Redis Streams login queue and ensures the stream
// and consumer group exist. An empty consumerName selects the per-process
// default.
func NewLoginQueue(client *redis.Client, consumerName string, m *metrics.Metrics) (*LoginQueue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = processConsumerName()
	}

	q := &LoginQueue{
		client:       client,
		consumerName: consumerName,
		claimMinIdle: claimTimeout,
		metrics:      m,
	}

	ctx := context.Background()
	err := q.client.XGroupCreateMkStream(ctx, loginStream, loginGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// ConsumerName returns the name this instance registers in the group
func (q *LoginQueue) ConsumerName() string {
	return q.consumerName
}

// Publish appends a login event to the stream
func (q *LoginQueue) Publish(ctx context.Context, ev domain.LoginEvent) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: loginStream,
		Values: map[string]interface{}{
			"user_id":  ev.UserID,
			"eid_name": ev.EIDName,
			"login_ms": ev.LoginTime.UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish login event: %w", err)
	}
	return nil
}

// Consume reads new entries for this consumer and applies the handler.
// Successful entries are acknowledged and deleted; failed entries are left
// pending for the retry sweeps.
func (q *LoginQueue) Consume(ctx context.Context, block time.Duration, handler driven.LoginHandler) (int, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    loginGroup,
		Consumer: q.consumerName,
		Streams:  []string{loginStream, ">"},
		Count:    readBatch,
		Block:    block,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil // No entries available
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	var processed int
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if q.handleMessage(ctx, msg, handler, "processed") {
				processed++
			}
		}
	}
	return processed, nil
}

// ProcessPending re-claims and reprocesses this consumer's own pending
// entries. Entries younger than the claim timeout are left alone so an
// in-flight handler is not raced.
func (q *LoginQueue) ProcessPending(ctx context.Context, handler driven.LoginHandler) (int, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   loginStream,
		Group:    loginGroup,
		Start:    "-",
		End:      "+",
		Count:    readBatch,
		Idle:     q.claimMinIdle,
		Consumer: q.consumerName,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list pending entries: %w", err)
	}

	return q.claimAndProcess(ctx, pending, handler, "retried")
}

// ReclaimOrphans claims pending entries held by other consumers and processes
// them locally. An entry pending past the claim timeout means its owner
// crashed, was shut down, or is stuck; handlers are idempotent so stealing a
// stuck entry is harmless.
func (q *LoginQueue) ReclaimOrphans(ctx context.Context, handler driven.LoginHandler) (int, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: loginStream,
		Group:  loginGroup,
		Start:  "-",
		End:    "+",
		Count:  readBatch,
		Idle:   q.claimMinIdle,
	}).Result()
	if err != nil {
		if isStreamNotExistsError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list group pending entries: %w", err)
	}

	var orphaned []redis.XPendingExt
	for _, p := range pending {
		if p.Consumer != q.consumerName {
			orphaned = append(orphaned, p)
		}
	}

	reclaimed, err := q.claimAndProcess(ctx, orphaned, handler, "reclaimed")
	if err != nil {
		return reclaimed, err
	}

	q.removeDeadConsumers(ctx)
	return reclaimed, nil
}

// removeDeadConsumers drops consumers that have been idle for a long time and
// hold no pending entries. Live consumers re-register on their next read.
// Best effort only.
func (q *LoginQueue) removeDeadConsumers(ctx context.Context) {
	consumers, err := q.client.XInfoConsumers(ctx, loginStream, loginGroup).Result()
	if err != nil {
		return
	}
	for _, consumer := range consumers {
		if consumer.Name == q.consumerName {
			continue
		}
		if consumer.Pending == 0 && consumer.Idle >= deadConsumerIdle {
			q.client.XGroupDelConsumer(ctx, loginStream, loginGroup, consumer.Name)
		}
	}
}

// RemoveConsumer deletes this consumer from the group. Called on graceful
// shutdown so peers can reclaim any leftover pending entries immediately.
func (q *LoginQueue) RemoveConsumer(ctx context.Context) error {
	err := q.client.XGroupDelConsumer(ctx, loginStream, loginGroup, q.consumerName).Err()
	if err != nil && !isStreamNotExistsError(err) {
		return fmt.Errorf("failed to remove consumer: %w", err)
	}
	return nil
}

// Ping checks if the queue backend is healthy
func (q *LoginQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// claimAndProcess claims each pending entry for this consumer and applies
// the handler
func (q *LoginQueue) claimAndProcess(ctx context.Context, pending []redis.XPendingExt, handler driven.LoginHandler, outcome string) (int, error) {
	var processed int
	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   loginStream,
			Group:    loginGroup,
			Consumer: q.consumerName,
			MinIdle:  q.claimMinIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			// Someone else claimed it first, or it was acknowledged meanwhile
			continue
		}

		if q.handleMessage(ctx, claimed[0], handler, outcome) {
			processed++
		}
	}
	return processed, nil
}

// handleMessage applies the handler to one stream entry and acknowledges on
// success. Malformed entries are acknowledged and dropped; handler failures
// leave the entry pending.
func (q *LoginQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler driven.LoginHandler, outcome string) bool {
	ev, err := parseLoginMessage(msg)
	if err != nil {
		// Poison entry, nothing will ever process it
		q.ack(ctx, msg.ID)
		q.metrics.IncLoginEvent("failed")
		return false
	}

	if err := handler(ctx, ev); err != nil {
		q.metrics.IncLoginEvent("failed")
		return false
	}

	q.ack(ctx, msg.ID)
	q.metrics.IncLoginEvent(outcome)
	return true
}

func (q *LoginQueue) ack(ctx context.Context, msgID string) {
	pipe := q.client.Pipeline()
	pipe.XAck(ctx, loginStream, loginGroup, msgID)
	pipe.XDel(ctx, loginStream, msgID)
	pipe.Exec(ctx)
}

func parseLoginMessage(msg redis.XMessage) (domain.LoginEvent, error) {
	userID, ok := msg.Values["user_id"].(string)
	if !ok || userID == "" {
		return domain.LoginEvent{}, errors.New("missing user_id")
	}
	eidName, ok := msg.Values["eid_name"].(string)
	if !ok || eidName == "" {
		return domain.LoginEvent{}, errors.New("missing eid_name")
	}
	rawMs, ok := msg.Values["login_ms"].(string)
	if !ok {
		return domain.LoginEvent{}, errors.New("missing login_ms")
	}
	ms, err := strconv.ParseInt(rawMs, 10, 64)
	if err != nil {
		return domain.LoginEvent{}, fmt.Errorf("invalid login_ms: %w", err)
	}

	return domain.LoginEvent{
		UserID:    userID,
		EIDName:   eidName,
		LoginTime: time.UnixMilli(ms),
	}, nil
}

// Helper functions

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isStreamNotExistsError(err error) bool {
	return err != nil && (err.Error() == "ERR no such key" ||
		err.Error() == "NOGROUP No such consumer group" ||
		err.Error() == "ERR The XINFO subcommand requires the key to exist")
}
