package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix    = "billing:summary:"
	summaryGenKeyPrefix = "billing:summary:gen:"
	summaryTTL          = 5 * time.Minute
	// summaryGenTTL must outlive any summary read still in flight.
	summaryGenTTL = 24 * time.Hour
)

// ErrCacheMiss is returned by SummaryCache.Get when nothing is cached.
var ErrCacheMiss = errors.New("billing: summary not cached")

// SummaryCache stores rendered billing summaries per user.
//
// Get also returns the user's invalidation generation. Set only stores a
// summary when the generation is still the one seen before the database
// read, so a summary built from pre-reconciliation rows is never cached
// after the reconciler invalidated the user.
type SummaryCache interface {
	Get(ctx context.Context, userID string) (*Summary, int64, error)
	Set(ctx context.Context, summary *Summary, generation int64) error
	Invalidate(ctx context.Context, userIDs ...string) error
}

// RedisSummaryCache keeps summaries as JSON strings in Redis.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSummaryCache(client *redis.Client) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, ttl: summaryTTL}
}

func summaryKey(userID string) string {
	return summaryKeyPrefix + userID
}

func summaryGenKey(userID string) string {
	return summaryGenKeyPrefix + userID
}

func (c *RedisSummaryCache) Get(ctx context.Context, userID string) (*Summary, int64, error) {
	vals, err := c.client.MGet(ctx, summaryKey(userID), summaryGenKey(userID)).Result()
	if err != nil {
		return nil, 0, err
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, ErrCacheMiss
	}
	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, gen, err
	}
	return &s, gen, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, summary *Summary, generation int64) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	genKey := summaryGenKey(summary.UserID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		gen, err := parseGeneration(current)
		if err != nil {
			return err
		}
		if gen != generation {
			// invalidated since the caller read the database
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, summaryKey(summary.UserID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, summaryGenKey(id))
			pipe.Expire(ctx, summaryGenKey(id), summaryGenTTL)
			pipe.Del(ctx, summaryKey(id))
		}
		return nil
	})
	return err
}

func parseGeneration(v interface{}) (int64, error) {
	switch g := v.(type) {
	case nil:
		return 0, nil
	case string:
		if g == "" {
			return 0, nil
		}
		return strconv.ParseInt(g, 10, 64)
	default:
		return 0, errors.New("billing: unexpected summary generation value")
	}
}
