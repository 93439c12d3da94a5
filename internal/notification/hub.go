package notification

import (
	"context"
	"sync"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/logger"
)

// subscriptionBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind loses intermediate snapshots, not the final one.
const subscriptionBuffer = 16

// Snapshot is one full-state delivery: every active alert of a school.
type Snapshot []*domain.AlertState

// Subscription is one observer's handle on a school's status stream.
type Subscription struct {
	// C delivers snapshots until Unsubscribe.
	C <-chan Snapshot

	// schoolID keys the hub bucket the subscription belongs to.
	schoolID string
	// ch is the writable side of C.
	ch chan Snapshot
	// once guards channel close on unsubscribe.
	once sync.Once
}

// Hub fans status snapshots out to current subscribers, bucketed by school.
type Hub struct {
	// mu protects the subscriber buckets.
	mu sync.RWMutex
	// subs holds the active subscriptions per school.
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers an observer for the school's status stream.
func (h *Hub) Subscribe(schoolID string) *Subscription {
	ch := make(chan Snapshot, subscriptionBuffer)
	sub := &Subscription{
		C:        ch,
		schoolID: schoolID,
		ch:       ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	bucket, ok := h.subs[schoolID]
	if !ok {
		bucket = make(map[*Subscription]struct{})
		h.subs[schoolID] = bucket
	}

	bucket[sub] = struct{}{}

	return sub
}

// Unsubscribe releases the subscription. No deliveries happen after return;
// the channel is closed so range loops terminate.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()

	if bucket, ok := h.subs[sub.schoolID]; ok {
		delete(bucket, sub)

		if len(bucket) == 0 {
			delete(h.subs, sub.schoolID)
		}
	}

	h.mu.Unlock()

	sub.once.Do(func() {
		close(sub.ch)
	})
}

// Publish delivers the snapshot to every current subscriber of the school.
// A full subscriber buffer drops this delivery for that subscriber instead of
// blocking the caller.
func (h *Hub) Publish(ctx context.Context, schoolID string, snapshot Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[schoolID] {
		select {
		case sub.ch <- snapshot:
		default:
			logger.DebugKV(ctx, "Dropped status delivery for slow subscriber", "school_id", schoolID)
		}
	}
}

// SubscriberCount reports how many observers a school currently has.
func (h *Hub) SubscriberCount(schoolID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[schoolID])
}
