package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"jobmarket/internal/database"
	"jobmarket/internal/docstore"
	"jobmarket/internal/domain"
)

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T, opts ...docstore.Option) *Repository {
	t.Helper()
	db, err := database.Connect(database.MemoryDSN(t.Name()), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, docstore.Migrate(db))

	repo := NewRepository(docstore.NewGormStore(db, opts...))
	n := 0
	repo.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return repo
}

func notify(t *testing.T, repo *Repository, userID, title string) *Notification {
	t.Helper()
	n, err := repo.Create(context.Background(), CreateInput{
		UserID:  userID,
		Title:   title,
		Message: title + " mesajı",
		Type:    TypeSystem,
	})
	require.NoError(t, err)
	return n
}

func TestCreate(t *testing.T) {
	repo := setupRepo(t, docstore.WithIndexes(Indexes...))
	ctx := context.Background()

	n, err := repo.Create(ctx, CreateInput{
		UserID:  "emp1",
		Title:   NewApplicationTitle,
		Message: "yeni başvuru",
		Type:    TypeApplication,
		Payload: &Payload{JobID: "job1", ApplicantID: "seek"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)

	got, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "emp1", got.UserID)
	assert.Equal(t, TypeApplication, got.Type)
	require.NotNil(t, got.Payload)
	assert.Equal(t, "job1", got.Payload.JobID)
	assert.Equal(t, "seek", got.Payload.ApplicantID)
	assert.Nil(t, got.ReadAt)
	assert.True(t, got.CreatedAt.Equal(n.CreatedAt))
}

func TestCreateInvalid(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateInput{Type: TypeSystem})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = repo.Create(ctx, CreateInput{UserID: "u1", Type: "promo"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListForUserNewestFirst(t *testing.T) {
	repo := setupRepo(t, docstore.WithIndexes(Indexes...))
	ctx := context.Background()

	first := notify(t, repo, "u1", "bir")
	second := notify(t, repo, "u1", "iki")
	notify(t, repo, "u2", "başkası")

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListForUserWithoutIndexFallsBack(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := notify(t, repo, "u1", "bir")
	second := notify(t, repo, "u1", "iki")

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestReadsDeniedYieldEmpty(t *testing.T) {
	deny := docstore.RuleFunc(func(_ context.Context, op docstore.Op, _ string) error {
		if op == docstore.OpRead {
			return docstore.ErrPermissionDenied
		}
		return nil
	})
	repo := setupRepo(t, docstore.WithRules(deny), docstore.WithIndexes(Indexes...))
	ctx := context.Background()

	notify(t, repo, "u1", "bir")

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	count, err := repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkRead(t *testing.T) {
	repo := setupRepo(t, docstore.WithIndexes(Indexes...))
	ctx := context.Background()

	n := notify(t, repo, "u1", "bir")
	notify(t, repo, "u1", "iki")

	count, err := repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.MarkRead(ctx, n.ID))
	got, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)
	require.NotNil(t, got.ReadAt)
	firstRead := *got.ReadAt

	require.NoError(t, repo.MarkRead(ctx, n.ID))
	got, err = repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)
	assert.True(t, got.ReadAt.Equal(firstRead))

	count, err = repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkReadMissing(t *testing.T) {
	repo := setupRepo(t)
	err := repo.MarkRead(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkAllRead(t *testing.T) {
	repo := setupRepo(t, docstore.WithIndexes(Indexes...))
	ctx := context.Background()

	for _, title := range []string{"bir", "iki", "üç"} {
		notify(t, repo, "u1", title)
	}
	other := notify(t, repo, "u2", "başkası")

	require.NoError(t, repo.MarkAllRead(ctx, "u1"))

	count, err := repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	for _, n := range list {
		assert.True(t, n.Read, n.ID)
	}

	got, err := repo.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.Read)

	// nothing left to mark
	require.NoError(t, repo.MarkAllRead(ctx, "u1"))
}

func TestDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	n := notify(t, repo, "u1", "bir")
	require.NoError(t, repo.Delete(ctx, n.ID))

	_, err := repo.Get(ctx, n.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, repo.Delete(ctx, n.ID))
}

func TestDeleteOlderThan(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < deleteChunk+5; i++ {
		_, err := repo.Create(ctx, CreateInput{
			UserID:    "u1",
			Title:     "eski",
			Type:      TypeSystem,
			CreatedAt: base.AddDate(0, 0, -60),
		})
		require.NoError(t, err)
	}
	fresh := notify(t, repo, "u1", "yeni")

	deleted, err := repo.DeleteOlderThan(ctx, base.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, deleteChunk+5, deleted)

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)
}

func TestCleanupService(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateInput{UserID: "u1", Type: TypeSystem, CreatedAt: base.AddDate(0, 0, -40)})
	require.NoError(t, err)
	notify(t, repo, "u1", "yeni")

	cleanup := NewCleanupService(repo, 30*24*time.Hour)
	cleanup.now = func() time.Time { return base }

	deleted, err := cleanup.CleanupOldNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestWatch(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	var (
		mu        sync.Mutex
		snapshots [][]*Notification
	)
	unsubscribe, err := repo.Watch(ctx, "u1", func(list []*Notification, err error) {
		assert.NoError(t, err)
		mu.Lock()
		snapshots = append(snapshots, list)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	latest := func() []*Notification {
		mu.Lock()
		defer mu.Unlock()
		if len(snapshots) == 0 {
			return nil
		}
		return snapshots[len(snapshots)-1]
	}

	require.Eventually(t, func() bool { return latest() != nil }, time.Second, 10*time.Millisecond)
	assert.Empty(t, latest())

	notify(t, repo, "u1", "bir")
	second := notify(t, repo, "u1", "iki")

	require.Eventually(t, func() bool { return len(latest()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, second.ID, latest()[0].ID)
}

func TestServiceNotifyNewApplication(t *testing.T) {
	repo := setupRepo(t, docstore.WithIndexes(Indexes...))
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.NotifyNewApplication(ctx, "emp1", "job1", "Backend Developer", "seek"))

	list, err := repo.ListForUser(ctx, "emp1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	n := list[0]
	assert.Equal(t, NewApplicationTitle, n.Title)
	assert.Equal(t, TypeApplication, n.Type)
	assert.Contains(t, n.Message, "Backend Developer")
	assert.Equal(t, &Payload{JobID: "job1", ApplicantID: "seek"}, n.Payload)
}
