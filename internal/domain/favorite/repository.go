package favorite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"jobmarket/internal/docstore"
	"jobmarket/internal/domain"
	"jobmarket/internal/domain/listing"
)

// Listings resolves the listing a favorite points at.
type Listings interface {
	Get(ctx context.Context, id string) (*listing.Listing, error)
}

type Repository struct {
	store    docstore.Store
	listings Listings
	now      func() time.Time
}

func NewRepository(store docstore.Store, listings Listings) *Repository {
	return &Repository{store: store, listings: listings, now: time.Now}
}

// Add favorites a listing for the user. Adding it again returns the
// existing favorite.
func (r *Repository) Add(ctx context.Context, userID, jobID string) (*Favorite, error) {
	if userID == "" {
		return nil, domain.Invalid("userId", "required")
	}
	if jobID == "" {
		return nil, domain.Invalid("jobId", "required")
	}

	f := &Favorite{ID: ID(userID, jobID), UserID: userID, JobID: jobID, CreatedAt: r.now().UTC()}
	err := r.store.CreateWithID(ctx, Collection, f.ID, docstore.Fields{
		"userId":    userID,
		"jobId":     jobID,
		"createdAt": f.CreatedAt,
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return r.Get(ctx, f.ID)
	}
	if err != nil {
		return nil, domain.StoreError("add favorite", err)
	}
	return f, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Favorite, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, domain.StoreError("get favorite", err)
	}
	f, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode favorite %s: %w", id, err)
	}
	return f, nil
}

func (r *Repository) Remove(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return domain.StoreError("remove favorite", err)
	}
	return nil
}

// ListForUser returns the user's favorites, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]*Favorite, error) {
	docs, err := r.store.Query(ctx, Collection, docstore.Query{
		Where:   []docstore.Predicate{docstore.Eq("userId", userID)},
		OrderBy: docstore.NewestFirst,
	})
	if errors.Is(err, docstore.ErrPermissionDenied) {
		return []*Favorite{}, nil
	}
	if err != nil {
		return nil, domain.StoreError("list favorites", err)
	}

	out := make([]*Favorite, 0, len(docs))
	for _, doc := range docs {
		f, err := fromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", doc.ID, err)
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// IsFavorited reports false when the caller may not read favorites.
func (r *Repository) IsFavorited(ctx context.Context, userID, jobID string) (bool, error) {
	_, err := r.store.Get(ctx, Collection, ID(userID, jobID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrPermissionDenied):
		return false, nil
	default:
		return false, domain.StoreError("check favorite", err)
	}
}

// ListWithListings joins each favorite with its listing. Favorites whose
// listing was deleted are skipped.
func (r *Repository) ListWithListings(ctx context.Context, userID string) ([]*WithListing, error) {
	favs, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*WithListing, 0, len(favs))
	for _, f := range favs {
		l, err := r.listings.Get(ctx, f.JobID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("favorite_orphaned favorite_id=%s job_id=%s", f.ID, f.JobID)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &WithListing{Favorite: *f, Listing: l})
	}
	return out, nil
}
