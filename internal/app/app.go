// Package app wires the storage layer and the domain services together for
// the binaries.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jobmarket/internal/config"
	"jobmarket/internal/database"
	"jobmarket/internal/docstore"
	"jobmarket/internal/domain/application"
	"jobmarket/internal/domain/favorite"
	"jobmarket/internal/domain/feed"
	"jobmarket/internal/domain/listing"
	"jobmarket/internal/domain/notification"
	"jobmarket/internal/domain/profile"
	"jobmarket/internal/refdata"
)

// Indexes lists every ordered query the services run.
func Indexes() []docstore.Index {
	var idx []docstore.Index
	idx = append(idx, listing.Indexes...)
	idx = append(idx, notification.Indexes...)
	idx = append(idx, favorite.Indexes...)
	return idx
}

// Rules lets anyone read listings; everything else needs a principal.
func Rules() docstore.Rules {
	return docstore.PublicRead(docstore.RequireAuth, listing.Collection)
}

// App is the dependency container shared by the server and the tools.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Store  *docstore.GormStore
	Ref    *refdata.Provider

	Profiles      *profile.Repository
	Listings      *listing.Repository
	Notifications *notification.Repository
	Favorites     *favorite.Repository
	Coordinator   *application.Coordinator
	Feed          *feed.Service
	Cleanup       *notification.CleanupService

	redisFeed *docstore.RedisFeed
}

type Option func(*options)

type options struct {
	logLevel logger.LogLevel
}

func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) { o.logLevel = level }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ref := refdata.Default()
	if cfg.RefdataFile != "" {
		var err error
		ref, err = refdata.Load(cfg.RefdataFile)
		if err != nil {
			return nil, fmt.Errorf("load reference data: %w", err)
		}
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{LogLevel: o.logLevel})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := docstore.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{Config: cfg, DB: db, Ref: ref}

	storeOpts := []docstore.Option{
		docstore.WithRules(Rules()),
		docstore.WithIndexes(Indexes()...),
		docstore.WithPollInterval(cfg.SubscriptionPoll),
	}
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		a.redisFeed = docstore.NewRedisFeed(a.Redis, "")
		storeOpts = append(storeOpts, docstore.WithChangeFeed(a.redisFeed))
	}
	a.Store = docstore.NewGormStore(db, storeOpts...)

	a.Profiles = profile.NewRepository(a.Store)
	roles := listing.ProfileRoles(a.Profiles)
	a.Listings = listing.NewRepository(a.Store, ref, roles)
	a.Notifications = notification.NewRepository(a.Store)
	a.Favorites = favorite.NewRepository(a.Store, a.Listings)
	a.Coordinator = application.NewCoordinator(a.Listings, a.Profiles, roles, notification.NewService(a.Notifications))
	a.Feed = feed.NewService(a.Listings, cfg.FeedServerWindow, cfg.FeedDefaultLimit)
	a.Cleanup = notification.NewCleanupService(a.Notifications, cfg.NotificationRetention)
	return a, nil
}

// RunChangeFeed relays changes made by other instances until ctx is done.
// Without Redis there is nothing to relay.
func (a *App) RunChangeFeed(ctx context.Context) {
	if a.redisFeed == nil {
		return
	}
	for {
		err := a.redisFeed.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("changefeed_relay_stopped err=%v retry_in=5s", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// Close waits for pending notifications and releases connections.
func (a *App) Close() error {
	a.Coordinator.Wait()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("redis_close_failed err=%v", err)
		}
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
