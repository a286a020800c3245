package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driving"
)

// Worker drives the login-update pipeline. It consumes new stream entries,
// periodically retries its own pending entries, and periodically reclaims
// entries orphaned by dead consumers.
type Worker struct {
	queue  driven.LoginQueue
	users  driving.UserService
	store  driven.UserStore
	logger *slog.Logger

	// Configuration
	blockTimeout    time.Duration
	pendingInterval time.Duration
	orphanInterval  time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	Queue  driven.LoginQueue
	Users  driving.UserService
	Store  driven.UserStore
	Logger *slog.Logger

	BlockTimeout    time.Duration // How long a read blocks waiting for entries
	PendingInterval time.Duration // How often own pending entries are retried
	OrphanInterval  time.Duration // How often orphaned entries are reclaimed
}

// New creates a login pipeline worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}
	pendingInterval := cfg.PendingInterval
	if pendingInterval <= 0 {
		pendingInterval = time.Minute
	}
	orphanInterval := cfg.OrphanInterval
	if orphanInterval <= 0 {
		orphanInterval = 5 * time.Minute
	}

	return &Worker{
		queue:           cfg.Queue,
		users:           cfg.Users,
		store:           cfg.Store,
		logger:          logger,
		blockTimeout:    blockTimeout,
		pendingInterval: pendingInterval,
		orphanInterval:  orphanInterval,
	}
}

// Start begins the consume loop and the retry sweeps.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("login worker starting",
		"block_timeout", w.blockTimeout,
		"pending_interval", w.pendingInterval,
		"orphan_interval", w.orphanInterval,
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.consumeLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.sweepLoop(ctx)
	}()

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker and deregisters its consumer so a peer
// can pick up any leftover pending entries immediately.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.RemoveConsumer(ctx); err != nil {
		w.logger.Error("failed to deregister consumer", "error", err)
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("login worker stopped")
}

// Wait blocks until the worker loops exit.
func (w *Worker) Wait() {
	<-w.doneCh
}

// consumeLoop reads new stream entries until stopped.
func (w *Worker) consumeLoop(ctx context.Context) {
	w.logger.Info("consume loop started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("consume loop context cancelled")
			return
		case <-w.stopCh:
			w.logger.Info("consume loop stop signal received")
			return
		default:
		}

		processed, err := w.queue.Consume(ctx, w.blockTimeout, w.applyLogin)
		if err != nil {
			w.logger.Error("failed to consume login events", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}
		if processed > 0 {
			w.logger.Debug("login events processed", "count", processed)
		}
	}
}

// sweepLoop retries pending entries and reclaims orphans on their tickers.
// Both passes are skipped while the record store is unreachable; retrying
// against a downed store would only re-fail every pending entry.
func (w *Worker) sweepLoop(ctx context.Context) {
	pendingTicker := time.NewTicker(w.pendingInterval)
	defer pendingTicker.Stop()
	orphanTicker := time.NewTicker(w.orphanInterval)
	defer orphanTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case <-pendingTicker.C:
			if !w.storeReachable(ctx) {
				continue
			}
			retried, err := w.queue.ProcessPending(ctx, w.applyLogin)
			if err != nil {
				w.logger.Error("pending sweep failed", "error", err)
				continue
			}
			if retried > 0 {
				w.logger.Info("pending login events retried", "count", retried)
			}

		case <-orphanTicker.C:
			if !w.storeReachable(ctx) {
				continue
			}
			reclaimed, err := w.queue.ReclaimOrphans(ctx, w.applyLogin)
			if err != nil {
				w.logger.Error("orphan sweep failed", "error", err)
				continue
			}
			if reclaimed > 0 {
				w.logger.Info("orphaned login events reclaimed", "count", reclaimed)
			}
		}
	}
}

func (w *Worker) storeReachable(ctx context.Context) bool {
	if w.store == nil {
		return true
	}
	if err := w.store.Ping(ctx); err != nil {
		w.logger.Warn("record store unreachable, skipping sweep", "error", err)
		return false
	}
	return true
}

// applyLogin applies one login event to the user record. Events for records
// deleted since the login happened are dropped; everything else that fails
// stays pending for the next sweep.
func (w *Worker) applyLogin(ctx context.Context, ev domain.LoginEvent) error {
	_, err := w.users.RecordLogin(ctx, ev.UserID, ev.EIDName, ev.LoginTime)
	if err == domain.ErrRecordNotFound {
		w.logger.Warn("login event for unknown record dropped", "user_id", ev.UserID)
		return nil
	}
	if err != nil {
		w.logger.Error("failed to apply login event",
			"user_id", ev.UserID,
			"error", err,
		)
		return err
	}
	return nil
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health reports whether the loops are running and the queue backend is
// reachable.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
