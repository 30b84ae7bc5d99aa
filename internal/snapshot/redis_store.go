package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/med-dispatch/internal/models"
)

// RedisStore keeps the snapshot under a single key with a TTL so a stale
// session does not leak into the next shift.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(addr, password, key string) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, key: key, ttl: 12 * time.Hour}
}

func (r *RedisStore) Save(ctx context.Context, snap models.PersistedSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, b, r.ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context) (models.PersistedSnapshot, bool, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PersistedSnapshot{}, false, nil
	}
	if err != nil {
		return models.PersistedSnapshot{}, false, err
	}
	var snap models.PersistedSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return models.PersistedSnapshot{}, false, err
	}
	return snap, true, nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
