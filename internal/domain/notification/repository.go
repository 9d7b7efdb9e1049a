package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"jobmarket/internal/docstore"
	"jobmarket/internal/domain"
)

// deleteChunk bounds how many documents one retention batch removes.
const deleteChunk = 200

// Repository stores notifications. It does not check who is asking; the
// store's access rules and the HTTP layer decide that.
type Repository struct {
	store docstore.Store
	now   func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

func (r *Repository) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	if in.UserID == "" {
		return nil, domain.Invalid("userId", "required")
	}
	if !in.Type.Valid() {
		return nil, domain.Invalid("type", "unknown type")
	}

	created := in.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	n := &Notification{
		UserID:    in.UserID,
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		Payload:   in.Payload,
		CreatedAt: created.UTC(),
	}
	n.UpdatedAt = n.CreatedAt

	fields, err := docstore.FieldsOf(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	delete(fields, "updatedAt")
	fields["createdAt"] = n.CreatedAt

	id, err := r.store.Create(ctx, Collection, fields)
	if err != nil {
		return nil, domain.StoreError("create notification", err)
	}
	n.ID = id
	return n, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Notification, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, domain.StoreError("get notification", err)
	}
	n, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", id, err)
	}
	return n, nil
}

// ListForUser returns the user's notifications, newest first. Without the
// ordered index it falls back to an unordered read sorted here; a denied
// read yields an empty list.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]*Notification, error) {
	byUser := []docstore.Predicate{docstore.Eq("userId", userID)}

	docs, err := r.store.Query(ctx, Collection, docstore.Query{Where: byUser, OrderBy: docstore.NewestFirst})
	if errors.Is(err, docstore.ErrIndexRequired) {
		log.Printf("notification_list_fallback user_id=%s reason=index_required", userID)
		docs, err = r.store.Query(ctx, Collection, docstore.Query{Where: byUser})
	}
	if errors.Is(err, docstore.ErrPermissionDenied) {
		return []*Notification{}, nil
	}
	if err != nil {
		return nil, domain.StoreError("list notifications", err)
	}

	ns, err := decodeAll(docs)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(ns)
	return ns, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	docs, err := r.store.Query(ctx, Collection, docstore.Query{Where: unreadFor(userID)})
	if errors.Is(err, docstore.ErrPermissionDenied) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.StoreError("count unread", err)
	}
	return len(docs), nil
}

// MarkRead sets read once. Marking an already read notification keeps its
// original readAt.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	n, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	if err := r.store.Update(ctx, Collection, id, r.readFields()); err != nil {
		return domain.StoreError("mark read", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user in one batch.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) error {
	docs, err := r.store.Query(ctx, Collection, docstore.Query{Where: unreadFor(userID)})
	if err != nil {
		return domain.StoreError("mark all read", err)
	}
	if len(docs) == 0 {
		return nil
	}

	b := r.store.Batch()
	fields := r.readFields()
	for _, doc := range docs {
		b.Update(Collection, doc.ID, fields)
	}
	if err := b.Commit(ctx); err != nil {
		return domain.StoreError("mark all read", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return domain.StoreError("delete notification", err)
	}
	return nil
}

// Watch pushes the user's notifications, newest first, whenever they change.
func (r *Repository) Watch(ctx context.Context, userID string, fn func([]*Notification, error)) (docstore.Unsubscribe, error) {
	q := docstore.Query{Where: []docstore.Predicate{docstore.Eq("userId", userID)}}
	unsubscribe, err := r.store.Subscribe(ctx, Collection, q, func(docs []*docstore.Document, err error) {
		if err != nil {
			fn(nil, domain.StoreError("watch notifications", err))
			return
		}
		ns, err := decodeAll(docs)
		if err == nil {
			sortNewestFirst(ns)
		}
		fn(ns, err)
	})
	if err != nil {
		return nil, domain.StoreError("watch notifications", err)
	}
	return unsubscribe, nil
}

// DeleteOlderThan removes notifications created before cutoff and returns
// how many were removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	docs, err := r.store.Query(ctx, Collection, docstore.Query{
		Where: []docstore.Predicate{docstore.CreatedBefore(cutoff)},
	})
	if err != nil {
		return 0, domain.StoreError("delete old notifications", err)
	}

	deleted := 0
	for start := 0; start < len(docs); start += deleteChunk {
		end := min(start+deleteChunk, len(docs))
		b := r.store.Batch()
		for _, doc := range docs[start:end] {
			b.Delete(Collection, doc.ID)
		}
		if err := b.Commit(ctx); err != nil {
			return deleted, domain.StoreError("delete old notifications", err)
		}
		deleted += end - start
	}
	return deleted, nil
}

func (r *Repository) readFields() docstore.Fields {
	return docstore.Fields{"read": true, "readAt": r.now().UTC()}
}

func unreadFor(userID string) []docstore.Predicate {
	return []docstore.Predicate{docstore.Eq("userId", userID), docstore.Eq("read", false)}
}

func decodeAll(docs []*docstore.Document) ([]*Notification, error) {
	out := make([]*Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := fromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", doc.ID, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func sortNewestFirst(ns []*Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].ID < ns[j].ID
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
}
