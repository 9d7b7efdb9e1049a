package feed

import "sync"

// Broker fans states out to subscribers. Each subscriber holds at most one
// pending state; a slow reader skips intermediate states and sees the
// latest one.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan State]struct{}
	last   State
	has    bool
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan State]struct{})}
}

func (b *Broker) Publish(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last, b.has = s, true
	for ch := range b.subs {
		offer(ch, s)
	}
}

// Subscribe returns a channel that first yields the latest state, if any.
// The channel is closed by cancel or when the broker closes.
func (b *Broker) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	if b.has {
		ch <- b.last
	}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

func offer(ch chan State, s State) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}
