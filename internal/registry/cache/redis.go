// Package cache is a Redis read-through cache for Resolve. Entries are
// invalidated after any committed change to the cached record and expire
// after a TTL, so a lost invalidation is bounded.
//
// Each name also has a generation counter that Invalidate increments. A fill
// carries the generation seen at lookup time and is dropped if it changed, so
// a Resolve racing a transfer cannot write the pre-transfer record back.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"nameledger/internal/registry/metrics"
	"nameledger/internal/registry/models"
	"nameledger/pkg/platform/circuit"
	"nameledger/pkg/platform/sentinel"
)

const (
	keyPrefix  = "nameledger:resolve:"
	genPrefix  = keyPrefix + "gen:"
	defaultTTL = 30 * time.Second

	// generationTTL only has to outlast one Resolve between its lookup and
	// its fill.
	generationTTL = 24 * time.Hour
)

// fillScript sets KEYS[1] only while KEYS[2] still holds ARGV[1]. A missing
// generation reads as "0".
var fillScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCache stores resolved records as JSON under their name hash.
type RedisCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	breaker *circuit.Breaker
	metrics *metrics.Metrics
}

type Option func(*RedisCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *RedisCache) {
		c.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *RedisCache) {
		c.breaker = b
	}
}

func NewRedis(client redis.Cmdable, opts ...Option) *RedisCache {
	c := &RedisCache{
		client:  client,
		ttl:     defaultTTL,
		breaker: circuit.New("redis"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetRecord returns sentinel.ErrNotFound on a miss and sentinel.ErrUnavailable
// while Redis is considered down. The entry and its generation are read in one
// MGET.
func (c *RedisCache) GetRecord(ctx context.Context, nameHash string) (*models.Record, uint64, error) {
	if !c.breaker.Allow() {
		c.metrics.IncrementCacheLookup("skipped")
		return nil, 0, sentinel.ErrUnavailable
	}
	vals, err := c.client.MGet(ctx, keyPrefix+nameHash, genPrefix+nameHash).Result()
	if err != nil {
		c.breaker.RecordFailure()
		c.metrics.IncrementCacheLookup("error")
		return nil, 0, fmt.Errorf("redis mget: %w", err)
	}
	c.breaker.RecordSuccess()

	generation, err := parseGeneration(vals[1])
	if err != nil {
		c.metrics.IncrementCacheLookup("error")
		return nil, 0, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		c.metrics.IncrementCacheLookup("miss")
		return nil, generation, sentinel.ErrNotFound
	}

	var rec models.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.metrics.IncrementCacheLookup("error")
		return nil, 0, fmt.Errorf("decode cached record: %w", err)
	}
	c.metrics.IncrementCacheLookup("hit")
	return &rec, generation, nil
}

// SetRecord stores rec unless the name was invalidated after generation was
// read. A dropped fill is not an error.
func (c *RedisCache) SetRecord(ctx context.Context, rec *models.Record, generation uint64) error {
	if !c.breaker.Allow() {
		return sentinel.ErrUnavailable
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	hash := models.NameHash(rec.Name, rec.TLD)
	stored, err := fillScript.Run(ctx, c.client,
		[]string{keyPrefix + hash, genPrefix + hash},
		strconv.FormatUint(generation, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("redis fill: %w", err)
	}
	c.breaker.RecordSuccess()
	if stored == 0 {
		c.metrics.IncrementCacheLookup("stale_fill")
	}
	return nil
}

// Invalidate is attempted even while the breaker is open; a stale entry is
// worse than a slow call.
func (c *RedisCache) Invalidate(ctx context.Context, nameHash string) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genPrefix+nameHash)
		p.Expire(ctx, genPrefix+nameHash, generationTTL)
		p.Del(ctx, keyPrefix+nameHash)
		return nil
	})
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("redis invalidate: %w", err)
	}
	c.breaker.RecordSuccess()
	return nil
}

func parseGeneration(v any) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cache generation: %w", err)
	}
	return n, nil
}
