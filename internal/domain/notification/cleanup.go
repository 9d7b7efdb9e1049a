package notification

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"jobmarket/internal/session"
)

// CleanupService removes notifications past their retention period.
type CleanupService struct {
	repo      *Repository
	retention time.Duration
	now       func() time.Time
}

func NewCleanupService(repo *Repository, retention time.Duration) *CleanupService {
	return &CleanupService{repo: repo, retention: retention, now: time.Now}
}

// CleanupOldNotifications deletes everything created before now-retention.
func (c *CleanupService) CleanupOldNotifications(ctx context.Context) (int, error) {
	startTime := time.Now()
	ctx = session.WithPrincipal(ctx, session.System())

	deleted, err := c.repo.DeleteOlderThan(ctx, c.now().Add(-c.retention))
	if err != nil {
		log.Printf("notification_cleanup_failed deleted=%d err=%v", deleted, err)
		return deleted, err
	}

	log.Printf("notification_cleanup_done deleted=%d retention=%s took=%s", deleted, c.retention, time.Since(startTime))
	return deleted, nil
}

// Schedule registers the cleanup on a cron scheduler using a standard cron
// expression or descriptor such as "@daily".
func (c *CleanupService) Schedule(ctx context.Context, scheduler *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := scheduler.AddFunc(spec, func() {
		if _, err := c.CleanupOldNotifications(ctx); err != nil {
			log.Printf("scheduled_cleanup_error err=%v", err)
		}
	})
	if err != nil {
		return 0, err
	}
	log.Printf("notification_cleanup_scheduled spec=%q retention=%s", spec, c.retention)
	return id, nil
}
