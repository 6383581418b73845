package app

import (
	"sync"

	"vocab-test-service/internal/domain"
)

// ProgressBroker fans out per-user test-progress snapshots to subscribers
// (the websocket transport). Publishing never blocks; a slow subscriber has
// its oldest pending snapshot dropped in favor of the newest.
type ProgressBroker struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.TestProgress]struct{}
}

func NewProgressBroker() *ProgressBroker {
	return &ProgressBroker{
		subscribers: make(map[string]map[chan domain.TestProgress]struct{}),
	}
}

// Subscribe returns a channel of progress snapshots for one user. The caller
// must invoke the returned cancel function to avoid leaks.
func (b *ProgressBroker) Subscribe(userID string) (<-chan domain.TestProgress, func()) {
	ch := make(chan domain.TestProgress, 8)

	b.mu.Lock()
	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[chan domain.TestProgress]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if subs, ok := b.subscribers[userID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(b.subscribers, userID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of userID.
func (b *ProgressBroker) Publish(userID string, progress domain.TestProgress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[userID] {
		select {
		case ch <- progress:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- progress
		}
	}
}
