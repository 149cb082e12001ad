package kvstore

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	// redisKeyPrefix namespaces tracker keys inside a shared Redis.
	redisKeyPrefix = "nf:"

	// redisChangeChannel carries the list of paths touched by each commit.
	redisChangeChannel = "nf:changes"
)

// RedisStore is the Redis-backed Store implementation. The atomic batch is a
// MULTI/EXEC pipeline; change fanout rides a single pub/sub channel carrying
// the touched paths, with subscribers re-reading their prefix on each commit.
type RedisStore struct {
	client *redis.Client

	mu     sync.Mutex
	cancel []func()
	closed bool
}

// NewRedisStore creates a store on an existing client. The connection is
// verified with a ping.
func NewRedisStore(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Get returns the leaf at path, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+path).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(val), nil
}

// List scans every key under prefix and MGETs the values.
func (s *RedisStore) List(ctx context.Context, prefix string) (Snapshot, error) {
	pattern := redisKeyPrefix + prefix + "/*"

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	snap := make(Snapshot, len(keys))
	if len(keys) == 0 {
		return snap, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	rel := redisKeyPrefix + prefix + "/"
	for i, v := range vals {
		payload, ok := v.(string)
		if !ok {
			continue // deleted between SCAN and MGET
		}
		snap[strings.TrimPrefix(keys[i], rel)] = json.RawMessage(payload)
	}
	return snap, nil
}

// Update applies the batch as one MULTI/EXEC transaction. The change
// notification is published inside the same transaction, so subscribers only
// ever see committed state.
func (s *RedisStore) Update(ctx context.Context, writes map[string]any) error {
	raws, err := marshalWrites(writes)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(raws))
	pipe := s.client.TxPipeline()
	for path, raw := range raws {
		if raw == nil {
			pipe.Del(ctx, redisKeyPrefix+path)
		} else {
			pipe.Set(ctx, redisKeyPrefix+path, string(raw), 0)
		}
		paths = append(paths, path)
	}

	msg, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	pipe.Publish(ctx, redisChangeChannel, string(msg))

	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe delivers the current snapshot immediately, then re-reads the
// prefix after every commit that touches it.
func (s *RedisStore) Subscribe(prefix string, fn func(Snapshot)) (func(), error) {
	ctx, cancelCtx := context.WithCancel(context.Background())

	pubsub := s.client.Subscribe(ctx, redisChangeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, err
	}

	initial, err := s.List(ctx, prefix)
	if err != nil {
		pubsub.Close()
		cancelCtx()
		return nil, err
	}

	go func() {
		fn(initial)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var paths []string
				if err := json.Unmarshal([]byte(msg.Payload), &paths); err != nil {
					continue
				}
				touched := false
				for _, p := range paths {
					if underPrefix(p, prefix) {
						touched = true
						break
					}
				}
				if !touched {
					continue
				}
				snap, err := s.List(ctx, prefix)
				if err != nil {
					continue
				}
				fn(snap)
			}
		}
	}()

	cancel := func() {
		cancelCtx()
		pubsub.Close()
	}

	s.mu.Lock()
	s.cancel = append(s.cancel, cancel)
	s.mu.Unlock()

	return cancel, nil
}

// Close cancels every subscription and closes the client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancels := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	return s.client.Close()
}
