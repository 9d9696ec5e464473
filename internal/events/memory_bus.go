package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for tests and single-node setups.
type MemoryBus struct {
	mu         sync.Mutex
	visitSubs  map[int]chan VisitChange
	statusSubs map[int]chan StatusUpdate
	nextID     int
}

var _ Bus = (*MemoryBus)(nil)

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		visitSubs:  make(map[int]chan VisitChange),
		statusSubs: make(map[int]chan StatusUpdate),
	}
}

func (b *MemoryBus) PublishVisitChange(ctx context.Context, change VisitChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.visitSubs {
		select {
		case ch <- change:
		default: // slow subscriber drops, same as pub/sub
		}
	}
	return nil
}

func (b *MemoryBus) PublishStatus(ctx context.Context, update StatusUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.statusSubs {
		select {
		case ch <- update:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) SubscribeVisitChanges(ctx context.Context) *Subscription[VisitChange] {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan VisitChange, 16)
	b.visitSubs[id] = ch
	errs := make(chan error)

	var once sync.Once
	return &Subscription[VisitChange]{
		Data: ch,
		Errs: errs,
		close: func() {
			once.Do(func() {
				b.mu.Lock()
				delete(b.visitSubs, id)
				b.mu.Unlock()
				close(ch)
				close(errs)
			})
		},
	}
}

func (b *MemoryBus) SubscribeStatus(ctx context.Context) *Subscription[StatusUpdate] {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan StatusUpdate, 16)
	b.statusSubs[id] = ch
	errs := make(chan error)

	var once sync.Once
	return &Subscription[StatusUpdate]{
		Data: ch,
		Errs: errs,
		close: func() {
			once.Do(func() {
				b.mu.Lock()
				delete(b.statusSubs, id)
				b.mu.Unlock()
				close(ch)
				close(errs)
			})
		},
	}
}
