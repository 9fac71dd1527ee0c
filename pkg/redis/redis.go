package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// StreamMessage represents a message in Redis Stream
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

type RedisAdapter interface {
	// Key/value
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	Exist(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Hashes
	HSet(ctx context.Context, key string, field string, value interface{}) error
	HGet(ctx context.Context, key string, field string) ([]byte, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	HSetWithTTL(ctx context.Context, key string, fieldAndValues map[string]interface{}, ttl time.Duration) error

	// Streams
	XAdd(ctx context.Context, key string, values map[string]interface{}, maxLen int64) (string, error)
	XReadGroup(ctx context.Context, group, consumer, key, id string, count int64) ([]StreamMessage, error)
	XRevRange(ctx context.Context, key string, count int64) ([]StreamMessage, error)
	XAck(ctx context.Context, key, group string, ids ...string) error
	XGroupCreateMkStream(ctx context.Context, key, group, start string) error
	XLen(ctx context.Context, key string) (int64, error)
	XPending(ctx context.Context, key, group string) (*goredis.XPending, error)
	XPendingExt(ctx context.Context, key, group string, count int64) ([]goredis.XPendingExt, error)
	XClaim(ctx context.Context, key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error)

	Ping(ctx context.Context) error
	Client() goredis.UniversalClient
}

type redisAdapter struct {
	prefix   string
	Conn     goredis.UniversalClient
	ConnName string
}

var redisLock = &sync.RWMutex{}
var redisInstance map[string]RedisAdapter

// NewRedisAdapter returns the adapter registered under connName, creating and pinging a
// new connection the first time the name is seen.
func NewRedisAdapter(connName string, keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	redisLock.RLock()
	if adapter, ok := redisInstance[connName]; ok {
		redisLock.RUnlock()
		return adapter, nil
	}
	redisLock.RUnlock()

	c := goredis.NewUniversalClient(opts)
	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}

	redisLock.Lock()
	defer redisLock.Unlock()
	if redisInstance == nil {
		redisInstance = make(map[string]RedisAdapter)
	}
	if adapter, ok := redisInstance[connName]; ok {
		_ = c.Close()
		return adapter, nil
	}

	adapter := &redisAdapter{
		Conn:     c,
		prefix:   keysPrefix,
		ConnName: connName,
	}
	redisInstance[connName] = adapter

	return adapter, nil
}

func GetRedis(connName ...string) RedisAdapter {
	redisLock.RLock()
	defer redisLock.RUnlock()

	name := "default"
	if len(connName) > 0 && connName[0] != "" {
		name = connName[0]
	}

	if adapter, ok := redisInstance[name]; ok {
		return adapter
	}

	return redisInstance["default"]
}

func (r *redisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Conn.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *redisAdapter) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	cmd := r.Conn.SetNX(ctx, r.prefix+key, value, ttl)
	if err := cmd.Err(); err != nil {
		return false, err
	}
	return cmd.Val(), nil
}

var compareAndDelete = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CompareAndDelete removes key only while it still holds value.
func (r *redisAdapter) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := compareAndDelete.Run(ctx, r.Conn, []string{r.prefix + key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	st := r.Conn.Get(ctx, r.prefix+key)
	if err := st.Err(); err != nil {
		return nil, err
	}
	return st.Bytes()
}

func (r *redisAdapter) Del(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}
	return r.Conn.Del(ctx, prefixed...).Err()
}

func (r *redisAdapter) Exist(ctx context.Context, key string) (int64, error) {
	return r.Conn.Exists(ctx, r.prefix+key).Result()
}

func (r *redisAdapter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.Conn.Expire(ctx, r.prefix+key, ttl).Err()
}

func (r *redisAdapter) HSet(ctx context.Context, key string, field string, value interface{}) error {
	return r.Conn.HSet(ctx, r.prefix+key, field, value).Err()
}

func (r *redisAdapter) HGet(ctx context.Context, key string, field string) ([]byte, error) {
	return r.Conn.HGet(ctx, r.prefix+key, field).Bytes()
}

func (r *redisAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	st := r.Conn.HGetAll(ctx, r.prefix+key)
	if st.Err() != nil {
		return nil, st.Err()
	}
	return st.Val(), nil
}

func (r *redisAdapter) HDel(ctx context.Context, key string, fields ...string) error {
	return r.Conn.HDel(ctx, r.prefix+key, fields...).Err()
}

// HSetWithTTL writes all fields and refreshes the key expiry in one pipeline.
func (r *redisAdapter) HSetWithTTL(ctx context.Context, key string, fieldAndValues map[string]interface{}, ttl time.Duration) error {
	if len(fieldAndValues) == 0 {
		return nil
	}
	mainKey := r.prefix + key
	cmds, err := r.Conn.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, mainKey, fieldAndValues)
		if ttl > 0 {
			p.Expire(ctx, mainKey, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pipelined HSet: %w", err)
	}
	for _, c := range cmds {
		if c.Err() != nil {
			return fmt.Errorf("pipelined HSet: %w", c.Err())
		}
	}
	return nil
}

func (r *redisAdapter) XAdd(ctx context.Context, key string, values map[string]interface{}, maxLen int64) (string, error) {
	args := &goredis.XAddArgs{
		Stream: r.prefix + key,
		ID:     "*",
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	cmd := r.Conn.XAdd(ctx, args)
	if cmd.Err() != nil {
		return "", cmd.Err()
	}
	return cmd.Val(), nil
}

func (r *redisAdapter) XReadGroup(ctx context.Context, group, consumer, key, id string, count int64) ([]StreamMessage, error) {
	streams := r.Conn.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.prefix + key, id},
		Count:    count,
		Block:    -1,
	})
	if streams.Err() != nil {
		return nil, streams.Err()
	}

	var messages []StreamMessage
	for _, stream := range streams.Val() {
		messages = append(messages, toStreamMessages(stream.Messages)...)
	}
	return messages, nil
}

func (r *redisAdapter) XRevRange(ctx context.Context, key string, count int64) ([]StreamMessage, error) {
	cmd := r.Conn.XRevRangeN(ctx, r.prefix+key, "+", "-", count)
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}
	return toStreamMessages(cmd.Val()), nil
}

func (r *redisAdapter) XAck(ctx context.Context, key, group string, ids ...string) error {
	return r.Conn.XAck(ctx, r.prefix+key, group, ids...).Err()
}

func (r *redisAdapter) XGroupCreateMkStream(ctx context.Context, key, group, start string) error {
	return r.Conn.XGroupCreateMkStream(ctx, r.prefix+key, group, start).Err()
}

func (r *redisAdapter) XLen(ctx context.Context, key string) (int64, error) {
	return r.Conn.XLen(ctx, r.prefix+key).Result()
}

func (r *redisAdapter) XPending(ctx context.Context, key, group string) (*goredis.XPending, error) {
	return r.Conn.XPending(ctx, r.prefix+key, group).Result()
}

func (r *redisAdapter) XPendingExt(ctx context.Context, key, group string, count int64) ([]goredis.XPendingExt, error) {
	return r.Conn.XPendingExt(ctx, &goredis.XPendingExtArgs{
		Stream: r.prefix + key,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
}

func (r *redisAdapter) XClaim(ctx context.Context, key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	cmd := r.Conn.XClaim(ctx, &goredis.XClaimArgs{
		Stream:   r.prefix + key,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	})
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}
	return toStreamMessages(cmd.Val()), nil
}

func (r *redisAdapter) Ping(ctx context.Context) error {
	return r.Conn.Ping(ctx).Err()
}

func (r *redisAdapter) Client() goredis.UniversalClient {
	return r.Conn
}

func toStreamMessages(in []goredis.XMessage) []StreamMessage {
	out := make([]StreamMessage, 0, len(in))
	for _, msg := range in {
		out = append(out, StreamMessage{
			ID:     msg.ID,
			Values: msg.Values,
		})
	}
	return out
}

// NewClient opens a plain single-node client, used by tools and tests.
func NewClient(addr string) goredis.UniversalClient {
	return goredis.NewUniversalClient(&goredis.UniversalOptions{Addrs: []string{addr}})
}

// Wrap builds an adapter around an existing client without registering it.
func Wrap(c goredis.UniversalClient, keysPrefix string) RedisAdapter {
	return &redisAdapter{
		Conn:     c,
		prefix:   keysPrefix,
		ConnName: "wrapped",
	}
}
