package redis

import (
	"agenthelper/cmd/internal/domain/events"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/gommon/log"
	goredis "github.com/redis/go-redis/v9"
)

const (
	// ChannelPresence receives every online/offline transition.
	ChannelPresence = "presence:changes"

	lastStatusKeyPrefix = "presence:last:"
	lastStatusTTL       = 24 * time.Hour
)

// Publisher fans presence transitions out to other services (dashboards,
// routing) over Redis pub/sub. The database stays the source of truth.
type Publisher struct {
	client *goredis.Client
}

func NewPublisher(ctx context.Context, redisURL string) (*Publisher, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Infof("Connected to Redis at %s", opt.Addr)
	return &Publisher{client: client}, nil
}

// PresenceChanged publishes the event and keeps a short-lived snapshot of
// the last transition per user, both in a single pipeline round trip.
func (p *Publisher) PresenceChanged(ctx context.Context, evt *events.PresenceUpdated) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, ChannelPresence, data)
	pipe.Set(ctx, lastStatusKeyPrefix+strconv.FormatInt(evt.UserID, 10), data, lastStatusTTL)

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish presence event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
