// Package feed is the live view of the public listing feed. The store pushes
// the newest approved listings as a whole on every change; the feed narrows
// each snapshot to what a client asked for and hands out the result as
// immutable states.
package feed

import "jobmarket/internal/domain/listing"

// ProjectVisible keeps the listings that are approved, active and match f,
// in snapshot order, and truncates to limit. A limit of zero or less keeps
// everything.
func ProjectVisible(snapshot []*listing.Listing, f listing.Filter, limit int) []*listing.Listing {
	out := make([]*listing.Listing, 0, len(snapshot))
	for _, l := range snapshot {
		if limit > 0 && len(out) == limit {
			break
		}
		if l.IsVisible() && f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
