package docstore

import (
	"context"
	"sync"
)

// ChangeFeed tells subscriptions that a collection was written to.
type ChangeFeed interface {
	Publish(ctx context.Context, collection string)
	// Listen returns a channel that receives a signal after writes to
	// collection. Signals are coalesced; the returned func stops listening.
	Listen(collection string) (<-chan struct{}, func())
}

type LocalFeed struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: make(map[string]map[chan struct{}]struct{})}
}

func (f *LocalFeed) Publish(_ context.Context, collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.listeners[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *LocalFeed) Listen(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.listeners[collection] == nil {
		f.listeners[collection] = make(map[chan struct{}]struct{})
	}
	f.listeners[collection][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners[collection], ch)
			if len(f.listeners[collection]) == 0 {
				delete(f.listeners, collection)
			}
		})
	}
}

func (f *LocalFeed) listenerCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[collection])
}
