package redis

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/events"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server, e.g. REDIS_URL=redis://localhost:6379/15.
func TestPublisher_PresenceChanged(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pub, err := NewPublisher(ctx, url)
	require.NoError(t, err)
	defer pub.Close()

	opt, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opt)
	defer client.Close()

	sub := client.Subscribe(ctx, ChannelPresence)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	evt := &events.PresenceUpdated{
		UserID:         4242,
		PreviousStatus: contract.StatusOffline,
		Status:         contract.StatusOnline,
		LastSeen:       "2024-05-01T09:00:00Z",
	}
	require.NoError(t, pub.PresenceChanged(ctx, evt))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got events.PresenceUpdated
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, *evt, got)

	stored, err := client.Get(ctx, "presence:last:4242").Result()
	require.NoError(t, err)
	assert.JSONEq(t, msg.Payload, stored)

	ttl, err := client.TTL(ctx, "presence:last:4242").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)
}

func TestNewPublisher_BadURL(t *testing.T) {
	_, err := NewPublisher(context.Background(), "http://not-redis")
	assert.Error(t, err)
}
