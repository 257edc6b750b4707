package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mapgrove/mapsync/internal/adapter"
	"github.com/mapgrove/mapsync/internal/config"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/store"
	"github.com/mapgrove/mapsync/models"
)

const baseBackoff = time.Second

type syncWorker struct {
	queue    OperationQueue
	maps     store.MapRepository
	remote   adapter.RemoteAdapter
	resolver ConflictResolver
	events   *EventBus
	cfg      config.Workers
	logger   *logger.Logger

	reconnect chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncWorker creates the background worker that drains the operation
// queue against the remote backend. The worker is idle until Start is
// called.
func NewSyncWorker(
	queue OperationQueue,
	storages *store.Storages,
	remote adapter.RemoteAdapter,
	resolver ConflictResolver,
	events *EventBus,
	cfg config.Workers,
	logger *logger.Logger,
) SyncWorker {
	return &syncWorker{
		queue:     queue,
		maps:      storages.Maps,
		remote:    remote,
		resolver:  resolver,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		reconnect: make(chan struct{}, 1),
	}
}

// Start implements [SyncWorker]. It stops any previously running worker,
// then launches a goroutine that drains the queue whenever an operation is
// enqueued, on every SyncInterval tick, and on reconnect wake-ups. The
// goroutine exits when ctx is cancelled or Stop is called.
func (w *syncWorker) Start(ctx context.Context) {
	w.Stop()

	w.mu.Lock()
	workerCtx, cancel := context.WithCancel(w.logger.WithContext(ctx))
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.cfg.SyncInterval)
		defer t.Stop()

		for {
			select {
			case <-workerCtx.Done():
				return
			case <-t.C:
			case <-w.queue.Notify():
			case <-w.reconnect:
			}

			w.drain(workerCtx)
		}
	}()
}

// Stop implements [SyncWorker]. It cancels the background goroutine's
// context and blocks until the goroutine has fully exited. Safe to call
// when the worker is not running.
func (w *syncWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// Wake implements [SyncWorker].
func (w *syncWorker) Wake() {
	select {
	case w.reconnect <- struct{}{}:
	default:
	}
}

// drain processes one batch of ready operations. Failed operations go back
// to the queue with per-map exponential backoff; a map in hold-off never
// blocks the rest of the batch. On cancellation the entire unprocessed
// remainder of the batch is put back so no dequeued operation is lost.
func (w *syncWorker) drain(ctx context.Context) {
	batch := w.queue.DequeueReady(w.cfg.BatchSize, time.Now().UTC())

	for i, pending := range batch {
		if ctx.Err() != nil {
			for _, rest := range batch[i:] {
				w.queue.Requeue(rest, time.Time{})
			}
			return
		}

		w.process(ctx, pending)
	}
}

func (w *syncWorker) process(ctx context.Context, pending PendingOperation) {
	op := pending.Op
	log := w.logger.With().
		Str("map_id", op.MapID).
		Str("kind", string(op.Kind)).
		Logger()

	w.events.PublishStatus(models.SyncStatusChanged{MapID: op.MapID, Status: models.StatusSyncing})

	err := w.execute(ctx, op)
	switch {
	case err == nil:
		w.events.PublishStatus(models.SyncStatusChanged{MapID: op.MapID, Status: models.StatusClean})

	case errors.Is(err, adapter.ErrRevisionMismatch):
		// Divergence is not a failure; the resolver settles it.
		w.events.PublishStatus(models.SyncStatusChanged{MapID: op.MapID, Status: models.StatusConflicted})
		w.resolve(ctx, pending)

	case errors.Is(err, store.ErrMapNotFound):
		// The map was deleted locally after this operation was queued; a
		// delete operation for it is or will be queued instead.
		log.Debug().Msg("operation superseded by local delete")

	default:
		delay := w.backoffDelay(pending.Attempts)
		log.Warn().Err(err).
			Int("attempts", pending.Attempts+1).
			Dur("backoff", delay).
			Msg("sync attempt failed, requeueing")
		w.queue.Requeue(pending, time.Now().UTC().Add(delay))
		w.events.PublishStatus(models.SyncStatusChanged{MapID: op.MapID, Status: models.StatusPending})
	}
}

// execute performs the remote write for one operation. Create and update
// read the map's current local state rather than the queued snapshot:
// coalescing already promises that only the final state is sent.
func (w *syncWorker) execute(ctx context.Context, op models.SyncOperation) error {
	if op.Kind == models.OpDelete {
		return w.remote.DeleteFile(ctx, op.VaultID, op.MapID)
	}

	m, err := w.maps.GetMap(ctx, op.MapID)
	if err != nil {
		return err
	}

	payload := models.MapPayload{
		Map:          m,
		ModifiedTime: m.LocalModifiedAt,
	}

	revision, err := w.remote.WriteFile(ctx, m.VaultID, m.ID, payload, m.RemoteRevision)
	if err != nil {
		return err
	}

	// lastSyncedAt == localModifiedAt marks the map clean.
	return w.maps.MarkSynced(ctx, m.ID, m.LocalModifiedAt, revision)
}

func (w *syncWorker) resolve(ctx context.Context, pending PendingOperation) {
	local, err := w.maps.GetMap(ctx, pending.Op.MapID)
	if err != nil {
		if errors.Is(err, store.ErrMapNotFound) {
			return
		}
		w.queue.Requeue(pending, time.Now().UTC().Add(w.backoffDelay(pending.Attempts)))
		return
	}

	if err := w.resolver.Resolve(ctx, local); err != nil {
		w.logger.Warn().Err(err).
			Str("map_id", pending.Op.MapID).
			Msg("conflict resolution failed, requeueing")
		w.queue.Requeue(pending, time.Now().UTC().Add(w.backoffDelay(pending.Attempts)))
	}
}

// backoffDelay doubles per attempt from 1s up to the configured cap.
func (w *syncWorker) backoffDelay(attempts int) time.Duration {
	delay := baseBackoff << uint(attempts)
	if delay <= 0 || delay > w.cfg.MaxBackoff {
		return w.cfg.MaxBackoff
	}
	return delay
}
