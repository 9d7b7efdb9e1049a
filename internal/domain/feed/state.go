package feed

import "jobmarket/internal/domain/listing"

type Options struct {
	Filter listing.Filter
	Limit  int
}

// State is what a feed subscriber sees. Version increases with every event
// so consumers can drop stale states.
type State struct {
	Listings []*listing.Listing `json:"listings"`
	Version  int                `json:"version"`
	Ready    bool               `json:"ready"`
	Err      error              `json:"-"`
}

type Event interface {
	event()
}

// SnapshotReceived carries the full result of the server query.
type SnapshotReceived struct {
	Listings []*listing.Listing
}

// SubscriptionFailed reports a failed re-query. The last good listings are
// kept.
type SubscriptionFailed struct {
	Err error
}

func (SnapshotReceived) event()   {}
func (SubscriptionFailed) event() {}

// Reduce returns the state after ev. It never modifies s.
func Reduce(s State, opts Options, ev Event) State {
	next := State{Listings: s.Listings, Version: s.Version + 1, Ready: s.Ready}
	switch ev := ev.(type) {
	case SnapshotReceived:
		next.Listings = ProjectVisible(ev.Listings, opts.Filter, opts.Limit)
		next.Ready = true
	case SubscriptionFailed:
		next.Err = ev.Err
	}
	return next
}
