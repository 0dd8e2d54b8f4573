package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisQueueKey      = "aichecker:jobs"
	DefaultRedisVisibility    = 20 * time.Minute
	redisProcessingSuffix     = ":processing"
	redisDeadlinesSuffix      = ":deadlines"
	redisReceiveCountSuffix   = ":receives"
	minRedisReapInterval      = time.Second
	redisReapIntervalFraction = 4
)

type redisAPI interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZAdd(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd
	ZAddNX(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

// RedisQueue is a list-backed queue with visibility deadlines. A received
// body is parked on the processing list and scored in a deadlines set; an
// unacked body whose deadline passes is pushed back for redelivery.
type RedisQueue struct {
	client     redisAPI
	key        string
	block      time.Duration
	visibility time.Duration
	now        func() time.Time

	mu       sync.Mutex
	lastReap time.Time
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	if strings.TrimSpace(addr) == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisQueue wraps client. An empty key selects DefaultRedisQueueKey and
// a non-positive visibility selects DefaultRedisVisibility. Visibility must
// exceed the job timeout or long jobs are delivered twice.
func NewRedisQueue(client redisAPI, key string, visibility time.Duration) *RedisQueue {
	if strings.TrimSpace(key) == "" {
		key = DefaultRedisQueueKey
	}
	if visibility <= 0 {
		visibility = DefaultRedisVisibility
	}
	return &RedisQueue{
		client:     client,
		key:        key,
		block:      5 * time.Second,
		visibility: visibility,
		now:        time.Now,
	}
}

// Send pushes a message onto the queue.
func (q *RedisQueue) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode redis message: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, string(payload)).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// Receive blocks for one message. It returns no deliveries when the block
// timeout passes without a message. Expired in-flight bodies are requeued
// first, at most every visibility/4.
func (q *RedisQueue) Receive(ctx context.Context) ([]Delivery, error) {
	if q.reapDue() {
		if _, err := q.Requeue(ctx); err != nil {
			return nil, err
		}
	}

	body, err := q.client.BRPopLPush(ctx, q.key, q.processingKey(), q.block).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis brpoplpush: %w", err)
	}

	deadline := q.now().Add(q.visibility)
	if err := q.client.ZAdd(ctx, q.deadlinesKey(), &redis.Z{Score: unixMillis(deadline), Member: body}).Err(); err != nil {
		return nil, fmt.Errorf("redis zadd: %w", err)
	}
	count, err := q.client.HIncrBy(ctx, q.receivesKey(), body, 1).Result()
	if err != nil || count < 1 {
		count = 1
	}

	return []Delivery{{
		Body:         body,
		ReceiveCount: int(count),
		Ack: func(ctx context.Context) error {
			if err := q.client.LRem(ctx, q.processingKey(), 1, body).Err(); err != nil {
				return fmt.Errorf("redis lrem: %w", err)
			}
			q.client.ZRem(ctx, q.deadlinesKey(), body)
			q.client.HDel(ctx, q.receivesKey(), body)
			return nil
		},
	}}, nil
}

// Requeue pushes in-flight bodies whose visibility deadline has passed back
// to the head of the queue and returns how many moved. Bodies still within
// their deadline stay with the worker that holds them. Processing entries
// with no deadline (a receiver died between BRPOPLPUSH and ZADD) get one
// starting now.
func (q *RedisQueue) Requeue(ctx context.Context) (int, error) {
	now := q.now()
	q.mu.Lock()
	q.lastReap = now
	q.mu.Unlock()

	expired, err := q.client.ZRangeByScore(ctx, q.deadlinesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(unixMillis(now), 'f', 0, 64),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zrangebyscore: %w", err)
	}

	moved := 0
	for _, body := range expired {
		removed, err := q.client.LRem(ctx, q.processingKey(), 1, body).Result()
		if err != nil {
			return moved, fmt.Errorf("redis lrem: %w", err)
		}
		q.client.ZRem(ctx, q.deadlinesKey(), body)
		if removed == 0 {
			// acked between the range read and the removal
			continue
		}
		if err := q.client.RPush(ctx, q.key, body).Err(); err != nil {
			return moved, fmt.Errorf("redis rpush: %w", err)
		}
		moved++
	}

	inFlight, err := q.client.LRange(ctx, q.processingKey(), 0, -1).Result()
	if err != nil {
		return moved, fmt.Errorf("redis lrange: %w", err)
	}
	if len(inFlight) > 0 {
		deadline := unixMillis(now.Add(q.visibility))
		members := make([]*redis.Z, 0, len(inFlight))
		for _, body := range inFlight {
			members = append(members, &redis.Z{Score: deadline, Member: body})
		}
		if err := q.client.ZAddNX(ctx, q.deadlinesKey(), members...).Err(); err != nil {
			return moved, fmt.Errorf("redis zadd nx: %w", err)
		}
	}
	return moved, nil
}

func (q *RedisQueue) reapDue() bool {
	interval := q.visibility / redisReapIntervalFraction
	if interval < minRedisReapInterval {
		interval = minRedisReapInterval
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now().Sub(q.lastReap) >= interval
}

func (q *RedisQueue) processingKey() string {
	return q.key + redisProcessingSuffix
}

func (q *RedisQueue) deadlinesKey() string {
	return q.key + redisDeadlinesSuffix
}

func (q *RedisQueue) receivesKey() string {
	return q.key + redisReceiveCountSuffix
}

func unixMillis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

var (
	_ Client   = (*RedisQueue)(nil)
	_ Consumer = (*RedisQueue)(nil)
)
