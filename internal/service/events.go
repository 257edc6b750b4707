package service

import (
	"sync"

	"github.com/mapgrove/mapsync/models"
)

const eventBufferSize = 64

// EventBus fans sync notifications out to UI-layer subscribers. Publishing
// never blocks: a subscriber that stops draining its channel loses events
// rather than stalling the sync worker.
type EventBus struct {
	mu       sync.RWMutex
	statusCh []chan models.SyncStatusChanged
	confCh   []chan models.ConflictResolved
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// SubscribeStatus returns a channel receiving per-map sync status
// transitions.
func (b *EventBus) SubscribeStatus() <-chan models.SyncStatusChanged {
	ch := make(chan models.SyncStatusChanged, eventBufferSize)

	b.mu.Lock()
	b.statusCh = append(b.statusCh, ch)
	b.mu.Unlock()

	return ch
}

// SubscribeConflicts returns a channel receiving conflict-resolved
// notifications.
func (b *EventBus) SubscribeConflicts() <-chan models.ConflictResolved {
	ch := make(chan models.ConflictResolved, eventBufferSize)

	b.mu.Lock()
	b.confCh = append(b.confCh, ch)
	b.mu.Unlock()

	return ch
}

// PublishStatus delivers a status transition to all subscribers.
func (b *EventBus) PublishStatus(ev models.SyncStatusChanged) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.statusCh {
		select {
		case ch <- ev:
		default:
		}
	}
}

// PublishConflict delivers a conflict notification to all subscribers.
func (b *EventBus) PublishConflict(ev models.ConflictResolved) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.confCh {
		select {
		case ch <- ev:
		default:
		}
	}
}
