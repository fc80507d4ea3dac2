package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mirror writes presence state to Redis so other services can read who is
// online without holding a connection to this instance.
// Keys:
//   <prefix>:presence:<userID> -> {"status","last_seen"}
// Channel:
//   <prefix>:online -> JSON array of online user ids
type Mirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewMirror(client *redis.Client, prefix string, ttl time.Duration) *Mirror {
	return &Mirror{client: client, prefix: prefix, ttl: ttl}
}

func (m *Mirror) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", m.prefix, userID)
}

func (m *Mirror) SetOnline(ctx context.Context, userID string) error {
	return m.set(ctx, userID, "online", m.ttl)
}

func (m *Mirror) SetOffline(ctx context.Context, userID string) error {
	return m.set(ctx, userID, "offline", 0)
}

func (m *Mirror) set(ctx context.Context, userID, status string, ttl time.Duration) error {
	b, _ := json.Marshal(map[string]any{
		"status":    status,
		"last_seen": time.Now().Unix(),
	})
	return m.client.Set(ctx, m.key(userID), b, ttl).Err()
}

func (m *Mirror) PublishSnapshot(ctx context.Context, userIDs []string) error {
	b, _ := json.Marshal(userIDs)
	return m.client.Publish(ctx, m.prefix+":online", b).Err()
}
