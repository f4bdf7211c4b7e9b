package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// RedisStateRepository is the Redis implementation of
// repository.StateRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository. keyPrefix
// namespaces every key this repository touches.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "by:"
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

// --- Key helpers ---

func (r *RedisStateRepository) presenceKey(projectID uint) string {
	return fmt.Sprintf("%sproject:%d:presence", r.keyPrefix, projectID)
}

func (r *RedisStateRepository) relayChannel(projectID uint) string {
	return fmt.Sprintf("%sproject:%d:relay", r.keyPrefix, projectID)
}

func (r *RedisStateRepository) rateLimitKey(key string) string {
	return r.keyPrefix + "ratelimit:" + key
}

// --- Presence registry ---

func (r *RedisStateRepository) AddPresence(ctx context.Context, projectID uint, entry domain.PresenceEntry) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now().UTC()
	}
	entry.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal presence entry: %w", err)
	}
	key := r.presenceKey(projectID)
	if err := r.client.HSet(ctx, key, entry.ConnID, raw).Err(); err != nil {
		return fmt.Errorf("redis: add presence for project %d: %w", projectID, err)
	}
	return nil
}

func (r *RedisStateRepository) RemovePresence(ctx context.Context, projectID uint, connID string) error {
	if err := r.client.HDel(ctx, r.presenceKey(projectID), connID).Err(); err != nil {
		return fmt.Errorf("redis: remove presence %s for project %d: %w", connID, projectID, err)
	}
	return nil
}

// SetCursor updates an existing entry's cursor. Missing entries are
// ignored: a cursor update that races a disconnect is stale anyway.
func (r *RedisStateRepository) SetCursor(ctx context.Context, projectID uint, connID string, cursor *domain.CursorPosition) error {
	key := r.presenceKey(projectID)
	raw, err := r.client.HGet(ctx, key, connID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("redis: get presence %s for project %d: %w", connID, projectID, err)
	}
	var entry domain.PresenceEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return fmt.Errorf("redis: decode presence %s for project %d: %w", connID, projectID, err)
	}
	entry.Cursor = cursor
	entry.UpdatedAt = time.Now().UTC()
	updated, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal presence entry: %w", err)
	}
	if err := r.client.HSet(ctx, key, connID, updated).Err(); err != nil {
		return fmt.Errorf("redis: set cursor %s for project %d: %w", connID, projectID, err)
	}
	return nil
}

func (r *RedisStateRepository) ListPresence(ctx context.Context, projectID uint) ([]domain.PresenceEntry, error) {
	raw, err := r.client.HGetAll(ctx, r.presenceKey(projectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list presence for project %d: %w", projectID, err)
	}
	entries := make([]domain.PresenceEntry, 0, len(raw))
	for connID, val := range raw {
		var entry domain.PresenceEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			logrus.WithFields(logrus.Fields{"project_id": projectID, "conn_id": connID}).
				WithError(err).Warn("Dropping undecodable presence entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SweepStalePresence scans all presence hashes and removes entries last
// refreshed more than maxAge ago. Covers connections owned by a relay
// node that died without unregistering them.
func (r *RedisStateRepository) SweepStalePresence(ctx context.Context, maxAge time.Duration) (int, error) {
	pattern := r.keyPrefix + "project:*:presence"
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0

	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("redis: sweep presence read %s: %w", key, err)
		}
		for connID, val := range fields {
			var entry domain.PresenceEntry
			if err := json.Unmarshal([]byte(val), &entry); err != nil || entry.UpdatedAt.Before(cutoff) {
				if delErr := r.client.HDel(ctx, key, connID).Err(); delErr != nil {
					return removed, fmt.Errorf("redis: sweep presence delete %s/%s: %w", key, connID, delErr)
				}
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis: sweep presence scan: %w", err)
	}
	return removed, nil
}

func (r *RedisStateRepository) CleanupProjectState(ctx context.Context, projectID uint) error {
	if err := r.client.Del(ctx, r.presenceKey(projectID)).Err(); err != nil {
		return fmt.Errorf("redis: cleanup state for project %d: %w", projectID, err)
	}
	return nil
}

// --- Relay fan-out ---

func (r *RedisStateRepository) PublishRelay(ctx context.Context, projectID uint, frame domain.RelayFrame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("redis: marshal relay frame: %w", err)
	}
	if err := r.client.Publish(ctx, r.relayChannel(projectID), raw).Err(); err != nil {
		return fmt.Errorf("redis: publish relay frame for project %d: %w", projectID, err)
	}
	return nil
}

// SubscribeRelay subscribes to the project's relay channel and decodes
// frames onto the returned channel until the stop function is called.
func (r *RedisStateRepository) SubscribeRelay(ctx context.Context, projectID uint) (<-chan domain.RelayFrame, func(), error) {
	channel := r.relayChannel(projectID)
	pubsub := r.client.Subscribe(ctx, channel)
	// Force the subscription to be established before returning so a
	// frame published immediately after is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: subscribe relay for project %d: %w", projectID, err)
	}

	out := make(chan domain.RelayFrame, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var frame domain.RelayFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				logrus.WithField("project_id", projectID).
					WithError(err).Warn("Dropping undecodable relay frame")
				continue
			}
			select {
			case out <- frame:
			default:
				logrus.WithField("project_id", projectID).
					Warn("Relay subscription buffer full, dropping frame")
			}
		}
	}()

	stop := func() {
		if err := pubsub.Close(); err != nil {
			logrus.WithField("project_id", projectID).
				WithError(err).Warn("Error closing relay subscription")
		}
	}
	return out, stop, nil
}

// --- Rate limiting ---

// CheckRateLimit increments the window counter for key and reports
// whether the caller exceeded limit. INCR and EXPIRE run in one
// pipeline, following the same pattern the HTTP middleware relies on.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.rateLimitKey(key)
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit pipeline for %s: %w", key, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit count for %s: %w", key, err)
	}
	return count > int64(limit), nil
}
