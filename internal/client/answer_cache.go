package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pesio-ai/be-quote-approvals/internal/logger"
	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// NewRedisClient parses redisURL and checks the server is reachable.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

// CachedAnswerSource serves approval answers from Redis and falls back to the
// wrapped source on a miss. Cache failures are logged and never fail a fetch.
type CachedAnswerSource struct {
	next   preview.AnswerFetcher
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedAnswerSource wraps next with a Redis cache.
func NewCachedAnswerSource(next preview.AnswerFetcher, rdb *redis.Client, prefix string, ttl time.Duration, log *logger.Logger) *CachedAnswerSource {
	return &CachedAnswerSource{
		next:   next,
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
	}
}

func (c *CachedAnswerSource) key(quoteID, ruleID string) string {
	return c.prefix + quoteID + ":" + ruleID
}

// FetchApprovalAnswers returns cached answers when present, otherwise fetches
// and caches them.
func (c *CachedAnswerSource) FetchApprovalAnswers(ctx context.Context, quoteID, ruleID string) ([]preview.AnswerRecord, error) {
	key := c.key(quoteID, ruleID)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var answers []preview.AnswerRecord
		if jsonErr := json.Unmarshal(cached, &answers); jsonErr == nil {
			return answers, nil
		}
		c.log.Warn().Str("key", key).Msg("Discarding unreadable cached approval answers")
	case err != redis.Nil:
		c.log.Warn().Err(err).Str("key", key).Msg("Approval answer cache read failed")
	}

	answers, err := c.next.FetchApprovalAnswers(ctx, quoteID, ruleID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(answers)
	if err != nil {
		return answers, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Approval answer cache write failed")
	}
	return answers, nil
}

// Invalidate drops every cached answer list of a quote.
func (c *CachedAnswerSource) Invalidate(ctx context.Context, quoteID string) error {
	iter := c.rdb.Scan(ctx, 0, escapeGlob(c.prefix+quoteID+":")+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached answers: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cached answers: %w", err)
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// Ping checks if Redis is reachable
func (c *CachedAnswerSource) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
