package docstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"jobmarket/internal/database"
	"jobmarket/internal/session"
)

// stepClock returns a strictly increasing time on every call.
func stepClock() func() time.Time {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	var n int64
	return func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&n, 1)) * time.Second)
	}
}

func setupStore(t *testing.T, opts ...Option) *GormStore {
	t.Helper()
	db, err := database.Connect(database.MemoryDSN(t.Name()), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormStore(db, append([]Option{WithClock(stepClock())}, opts...)...)
}

type tag string

func TestCreateAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "listings", Fields{
		"id":         "ignored",
		"title":      "Go developer",
		"status":     tag("pending"),
		"isActive":   true,
		"headcount":  2,
		"applicants": []string{"u1", "u2", "u1"},
		"tags":       []string{},
		"payload":    map[string]any{"jobId": "j1", "rank": 3},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NotEqual(t, "ignored", id)

	doc, err := s.Get(ctx, "listings", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "Go developer", doc.Data["title"])
	assert.Equal(t, "pending", doc.Data["status"])
	assert.Equal(t, true, doc.Data["isActive"])
	assert.Equal(t, float64(2), doc.Data["headcount"])
	assert.Equal(t, []any{"u1", "u2"}, doc.Data["applicants"])
	assert.Equal(t, []any{}, doc.Data["tags"])
	assert.Equal(t, map[string]any{"jobId": "j1", "rank": float64(3)}, doc.Data["payload"])
	assert.False(t, doc.CreateTime.IsZero())

	var out struct {
		ID         string   `json:"id"`
		Title      string   `json:"title"`
		Applicants []string `json:"applicants"`
		Payload    struct {
			JobID string `json:"jobId"`
		} `json:"payload"`
	}
	require.NoError(t, doc.DataTo(&out))
	assert.Equal(t, id, out.ID)
	assert.Equal(t, []string{"u1", "u2"}, out.Applicants)
	assert.Equal(t, "j1", out.Payload.JobID)

	_, err = s.Get(ctx, "listings", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUsesCreatedAtField(t *testing.T) {
	s := setupStore(t)
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.Create(context.Background(), "notifications", Fields{"createdAt": at})
	require.NoError(t, err)

	doc, err := s.Get(context.Background(), "notifications", id)
	require.NoError(t, err)
	assert.True(t, at.Equal(doc.CreateTime), "got %s", doc.CreateTime)
}

func TestCreateWithIDRejectsDuplicates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateWithID(ctx, "favorites", "u1_j1", Fields{"note": "first"}))
	err := s.CreateWithID(ctx, "favorites", "u1_j1", Fields{"note": "second"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	doc, err := s.Get(ctx, "favorites", "u1_j1")
	require.NoError(t, err)
	assert.Equal(t, "first", doc.Data["note"])

	// same id in another collection is a different document
	require.NoError(t, s.CreateWithID(ctx, "other", "u1_j1", Fields{}))

	long := strings.Repeat("a", 254)
	require.NoError(t, s.CreateWithID(ctx, "user_emails", long, Fields{}))
	_, err = s.Get(ctx, "user_emails", long)
	require.NoError(t, err)
	assert.Error(t, s.CreateWithID(ctx, "user_emails", strings.Repeat("a", MaxIDLength+1), Fields{}))
}

func TestQueryPredicates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a, _ := s.Create(ctx, "listings", Fields{"status": "approved", "city": "34", "applicants": []string{"u1"}})
	b, _ := s.Create(ctx, "listings", Fields{"status": "approved", "city": "06", "applicants": []string{"u2"}})
	_, _ = s.Create(ctx, "listings", Fields{"status": "pending", "city": "34"})
	_, _ = s.Create(ctx, "notifications", Fields{"status": "approved"})

	docs, err := s.Query(ctx, "listings", Query{Where: []Predicate{Eq("status", tag("approved"))}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, ids(docs))

	docs, err = s.Query(ctx, "listings", Query{Where: []Predicate{Eq("status", "approved"), Eq("city", "34")}})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, ids(docs))

	docs, err = s.Query(ctx, "listings", Query{Where: []Predicate{ArrayContains("applicants", "u2")}})
	require.NoError(t, err)
	assert.Equal(t, []string{b}, ids(docs))

	// a scalar field never matches a membership predicate and vice versa
	docs, err = s.Query(ctx, "listings", Query{Where: []Predicate{ArrayContains("city", "34")}})
	require.NoError(t, err)
	assert.Empty(t, docs)
	docs, err = s.Query(ctx, "listings", Query{Where: []Predicate{Eq("applicants", "u1")}})
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = s.Query(ctx, "listings", Query{Where: []Predicate{Eq("payload", map[string]any{"a": 1})}})
	assert.Error(t, err)
}

func TestQueryOrderingAndIndexes(t *testing.T) {
	s := setupStore(t, WithIndexes(Index{Collection: "notifications", Fields: []string{"userId"}}))
	ctx := context.Background()

	first, _ := s.Create(ctx, "notifications", Fields{"userId": "u1"})
	second, _ := s.Create(ctx, "notifications", Fields{"userId": "u1"})
	third, _ := s.Create(ctx, "notifications", Fields{"userId": "u1"})

	docs, err := s.Query(ctx, "notifications", Query{Where: []Predicate{Eq("userId", "u1")}, OrderBy: NewestFirst})
	require.NoError(t, err)
	assert.Equal(t, []string{third, second, first}, ids(docs))

	docs, err = s.Query(ctx, "notifications", Query{OrderBy: OldestFirst, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, ids(docs))

	_, err = s.Query(ctx, "notifications", Query{Where: []Predicate{Eq("read", false)}, OrderBy: NewestFirst})
	assert.ErrorIs(t, err, ErrIndexRequired)

	// unordered queries never need an index
	docs, err = s.Query(ctx, "notifications", Query{Where: []Predicate{Eq("read", false)}})
	require.NoError(t, err)
	assert.Empty(t, docs)

	cut, err := s.Query(ctx, "notifications", Query{Where: []Predicate{CreatedBefore(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))}})
	require.NoError(t, err)
	assert.Len(t, cut, 3)
}

func TestUpdateMergesFields(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, "listings", Fields{"title": "old", "city": "34", "applicants": []string{"u1"}, "district": "Kadıköy"})
	before, _ := s.Get(ctx, "listings", id)

	require.NoError(t, s.Update(ctx, "listings", id, Fields{
		"title":      "new",
		"district":   nil,
		"applicants": []string{"u9"},
		"createdAt":  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	doc, err := s.Get(ctx, "listings", id)
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Data["title"])
	assert.Equal(t, "34", doc.Data["city"])
	assert.NotContains(t, doc.Data, "district")
	assert.Equal(t, []any{"u9"}, doc.Data["applicants"])
	assert.Equal(t, before.CreateTime, doc.CreateTime)
	assert.True(t, doc.UpdateTime.After(before.UpdateTime))

	docs, _ := s.Query(ctx, "listings", Query{Where: []Predicate{Eq("title", "old")}})
	assert.Empty(t, docs)
	docs, _ = s.Query(ctx, "listings", Query{Where: []Predicate{Eq("title", "new")}})
	assert.Len(t, docs, 1)

	err = s.Update(ctx, "listings", "missing", Fields{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddToSetFieldIsAtomicSetUnion(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, "listings", Fields{"applicants": []string{}})

	added, err := s.AddToSetField(ctx, "listings", id, "applicants", "u1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddToSetField(ctx, "listings", id, "applicants", "u1")
	require.NoError(t, err)
	assert.False(t, added)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.AddToSetField(ctx, "listings", id, "applicants", "u2")
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	doc, err := s.Get(ctx, "listings", id)
	require.NoError(t, err)
	assert.Equal(t, []any{"u1", "u2"}, doc.Data["applicants"])

	_, err = s.AddToSetField(ctx, "listings", "missing", "applicants", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, "favorites", Fields{"userId": "u1", "tags": []string{"a"}})
	require.NoError(t, s.Delete(ctx, "favorites", id))
	require.NoError(t, s.Delete(ctx, "favorites", id))

	_, err := s.Get(ctx, "favorites", id)
	assert.ErrorIs(t, err, ErrNotFound)
	docs, err := s.Query(ctx, "favorites", Query{Where: []Predicate{Eq("userId", "u1")}})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBatchCommitsAtomically(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a, _ := s.Create(ctx, "notifications", Fields{"read": false})
	b, _ := s.Create(ctx, "notifications", Fields{"read": false})

	err := s.Batch().
		Update("notifications", a, Fields{"read": true}).
		Update("notifications", "missing", Fields{"read": true}).
		Commit(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	doc, _ := s.Get(ctx, "notifications", a)
	assert.Equal(t, false, doc.Data["read"])

	require.NoError(t, s.Batch().
		Update("notifications", a, Fields{"read": true}).
		Update("notifications", b, Fields{"read": true}).
		Commit(ctx))

	unread, err := s.Query(ctx, "notifications", Query{Where: []Predicate{Eq("read", false)}})
	require.NoError(t, err)
	assert.Empty(t, unread)

	require.NoError(t, s.Batch().Delete("notifications", a).Commit(ctx))
	_, err = s.Get(ctx, "notifications", a)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Batch().Commit(ctx))
}

func TestRequireAuthRules(t *testing.T) {
	s := setupStore(t, WithRules(RequireAuth))

	_, err := s.Create(context.Background(), "listings", Fields{"title": "x"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	ctx := session.WithPrincipal(context.Background(), &session.Principal{ID: "u1", Role: session.RoleEmployer})
	id, err := s.Create(ctx, "listings", Fields{"title": "x"})
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "listings", id)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = s.Subscribe(context.Background(), "listings", Query{}, func([]*Document, error) {})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestPublicReadRules(t *testing.T) {
	s := setupStore(t, WithRules(PublicRead(RequireAuth, "listings")))
	anon := context.Background()
	ctx := session.WithPrincipal(anon, &session.Principal{ID: "u1", Role: session.RoleEmployer})

	id, err := s.Create(ctx, "listings", Fields{"title": "x"})
	require.NoError(t, err)

	_, err = s.Get(anon, "listings", id)
	assert.NoError(t, err)
	_, err = s.Create(anon, "listings", Fields{"title": "y"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = s.Query(anon, "notifications", Query{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("get", nil))

	err := classify("query", &pgconn.PgError{Code: "42501", Message: "permission denied for table documents"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	cause := errors.New("connection refused")
	err = classify("query", cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)

	err = classify("query", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.ErrorIs(t, classify("create", ErrAlreadyExists), ErrAlreadyExists)
}

func ids(docs []*Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
