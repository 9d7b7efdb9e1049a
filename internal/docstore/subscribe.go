package docstore

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Subscribe delivers the result of q to fn once the subscription is
// established and again whenever the result set changes. Deliveries happen on
// a single goroutine, so fn is never called concurrently. The subscription
// ends when the returned Unsubscribe is called or ctx is cancelled.
func (s *GormStore) Subscribe(ctx context.Context, collection string, q Query, fn SnapshotFunc) (Unsubscribe, error) {
	if err := s.rules.Check(ctx, OpRead, collection); err != nil {
		return nil, err
	}
	if err := s.checkIndex(collection, q); err != nil {
		return nil, err
	}

	signal, stopListening := s.feed.Listen(collection)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer stopListening()

		var tick <-chan time.Time
		if s.poll > 0 {
			t := time.NewTicker(s.poll)
			defer t.Stop()
			tick = t.C
		}

		last, delivered := "", false
		for {
			docs, err := s.query(ctx, collection, q)
			if ctx.Err() != nil {
				return
			}
			switch {
			case err != nil:
				delivered = false
				fn(nil, err)
			case !delivered || fingerprint(docs) != last:
				last, delivered = fingerprint(docs), true
				fn(docs, nil)
			}

			select {
			case <-ctx.Done():
				return
			case <-signal:
			case <-tick:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func fingerprint(docs []*Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(d.ID)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(d.UpdateTime.UnixNano(), 10))
		b.WriteByte(';')
	}
	return b.String()
}
