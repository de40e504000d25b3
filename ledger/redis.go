package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tonatisp/iagent-pay/types"
)

// DefaultRedisKey is the list that holds the records.
const DefaultRedisKey = "iagent-pay:ledger"

// RedisStore keeps JSON records in a Redis list.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	if addr == "" {
		return nil, types.NewError(types.ErrConfigError, "Redis ledger requires an address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisStoreFromClient(client, key), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Append(ctx context.Context, rec types.TransactionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode ledger record: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, raw).Err(); err != nil {
		return fmt.Errorf("append ledger record: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]types.TransactionRecord, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	out := make([]types.TransactionRecord, 0, len(items))
	for i, item := range items {
		var rec types.TransactionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode ledger item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Earliest reads the head of the list; records are appended in time order.
func (s *RedisStore) Earliest(ctx context.Context) (time.Time, bool, error) {
	item, err := s.client.LIndex(ctx, s.key, 0).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read ledger head: %w", err)
	}
	var rec types.TransactionRecord
	if err := json.Unmarshal([]byte(item), &rec); err != nil {
		return time.Time{}, false, fmt.Errorf("decode ledger head: %w", err)
	}
	return rec.Time(), true, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
