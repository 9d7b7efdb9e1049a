package feed

import (
	"context"
	"sync"

	"jobmarket/internal/docstore"
	"jobmarket/internal/domain/listing"
)

const (
	DefaultWindow = 100
	DefaultLimit  = 20
)

// Source pushes the newest approved listings, at most window of them.
type Source interface {
	SubscribeApproved(ctx context.Context, window int, fn func([]*listing.Listing, error)) (docstore.Unsubscribe, error)
}

type Service struct {
	source       Source
	window       int
	defaultLimit int
}

func NewService(source Source, window, defaultLimit int) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Service{source: source, window: window, defaultLimit: defaultLimit}
}

func (s *Service) normalize(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = s.defaultLimit
	}
	if opts.Limit > s.window {
		opts.Limit = s.window
	}
	return opts
}

// Subscribe calls onSnapshot with the visible listings once the
// subscription is established and again whenever they may have changed.
// Cancelling ctx ends the subscription like calling the returned function.
func (s *Service) Subscribe(ctx context.Context, opts Options, onSnapshot func([]*listing.Listing, error)) (docstore.Unsubscribe, error) {
	opts = s.normalize(opts)
	return s.source.SubscribeApproved(ctx, s.window, func(ls []*listing.Listing, err error) {
		if err != nil {
			onSnapshot(nil, err)
			return
		}
		onSnapshot(ProjectVisible(ls, opts.Filter, opts.Limit), nil)
	})
}

// Feed keeps the current State of one subscription and publishes every new
// state on its broker.
type Feed struct {
	opts   Options
	broker *Broker

	mu    sync.Mutex
	state State

	unsubscribe docstore.Unsubscribe
	stop        func() bool
	closeOnce   sync.Once
}

// Open starts a feed. It is closed by Close or when ctx is cancelled.
func (s *Service) Open(ctx context.Context, opts Options) (*Feed, error) {
	f := &Feed{opts: s.normalize(opts), broker: NewBroker()}

	unsubscribe, err := s.source.SubscribeApproved(ctx, s.window, func(ls []*listing.Listing, err error) {
		if err != nil {
			f.dispatch(SubscriptionFailed{Err: err})
			return
		}
		f.dispatch(SnapshotReceived{Listings: ls})
	})
	if err != nil {
		f.broker.Close()
		return nil, err
	}
	f.unsubscribe = unsubscribe

	f.mu.Lock()
	f.stop = context.AfterFunc(ctx, f.Close)
	f.mu.Unlock()
	return f, nil
}

func (f *Feed) dispatch(ev Event) {
	f.mu.Lock()
	f.state = Reduce(f.state, f.opts, ev)
	s := f.state
	f.mu.Unlock()
	f.broker.Publish(s)
}

func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Updates streams states starting with the current one.
func (f *Feed) Updates() (<-chan State, func()) {
	return f.broker.Subscribe()
}

func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		stop := f.stop
		f.mu.Unlock()
		if stop != nil {
			stop()
		}
		f.unsubscribe()
		f.broker.Close()
	})
}
