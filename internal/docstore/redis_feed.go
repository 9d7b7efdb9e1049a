package docstore

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const DefaultRedisChannel = "docstore:changes"

// RedisFeed fans change signals out to other API instances sharing the same
// database. Local listeners are signalled directly; remote ones through a
// Redis pub/sub channel carrying "<instance>|<collection>".
type RedisFeed struct {
	local    *LocalFeed
	client   *redis.Client
	channel  string
	instance string
}

func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisFeed{
		local:    NewLocalFeed(),
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, collection string) {
	f.local.Publish(ctx, collection)

	msg := f.instance + "|" + collection
	if err := f.client.Publish(context.WithoutCancel(ctx), f.channel, msg).Err(); err != nil {
		log.Printf("changefeed_publish_failed channel=%s collection=%s err=%v", f.channel, collection, err)
	}
}

func (f *RedisFeed) Listen(collection string) (<-chan struct{}, func()) {
	return f.local.Listen(collection)
}

// Run relays remote change signals to local listeners until ctx is done.
func (f *RedisFeed) Run(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			instance, collection, found := strings.Cut(msg.Payload, "|")
			if !found || instance == f.instance {
				continue
			}
			f.local.Publish(ctx, collection)
		}
	}
}
