// Package redis provides the Redis-backed cache for quota snapshots. The
// cache sits in front of the plan and usage tables so the hot path of every
// metered action reads one key instead of two queries.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/config"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/redis/go-redis/v9"
)

// snapshotKeyPrefix namespaces cached snapshots. One key per user.
const snapshotKeyPrefix = "parlo:quota:snapshot:"

// openTimeout bounds the connection check when the cache is created.
const openTimeout = 5 * time.Second

// SnapshotCache caches assembled quota snapshots in Redis. Entries carry a
// TTL capped at the next UTC midnight, so a cached snapshot can never
// outlive the daily reset it describes.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewSnapshotCache dials Redis with the given configuration and verifies
// the connection before returning. If logger is nil, a default logger will
// be used.
func NewSnapshotCache(cfg config.RedisConfig, logger *slog.Logger) (*SnapshotCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &SnapshotCache{
		client: client,
		ttl:    time.Duration(cfg.SnapshotTTLSeconds) * time.Second,
		logger: logger.With(slog.String("component", "snapshot_cache")),
		now:    time.Now,
	}, nil
}

// Get retrieves the cached snapshot for a user. The second return value is
// false on a cache miss. A corrupt entry is treated as a miss and evicted,
// so a bad write never wedges a user's quota reads.
func (c *SnapshotCache) Get(ctx context.Context, userID uuid.UUID) (quota.Snapshot, bool, error) {
	key := snapshotKey(userID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return quota.Snapshot{}, false, nil
		}
		return quota.Snapshot{}, false, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	var snap quota.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("evicting corrupt snapshot cache entry",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			c.logger.Warn("failed to evict corrupt snapshot cache entry",
				slog.String("user_id", userID.String()),
				slog.String("error", delErr.Error()))
		}
		return quota.Snapshot{}, false, nil
	}

	return snap, true, nil
}

// Set stores a snapshot for a user with the cache TTL, capped at the next
// UTC midnight.
func (c *SnapshotCache) Set(ctx context.Context, userID uuid.UUID, snap quota.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, snapshotKey(userID), data, c.ttlFor(c.now())).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}

	return nil
}

// Invalidate drops a user's cached snapshot. Called after every metered
// action and plan change so the next read reassembles from storage.
func (c *SnapshotCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, snapshotKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}

// ttlFor returns the configured TTL, shortened when the next UTC midnight
// is closer. The floor of one second keeps a just-before-midnight write
// from becoming a zero-TTL (never expiring) entry.
func (c *SnapshotCache) ttlFor(now time.Time) time.Duration {
	untilReset := domain.UsageDay(now).AddDate(0, 0, 1).Sub(now)

	ttl := c.ttl
	if untilReset < ttl {
		ttl = untilReset
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func snapshotKey(userID uuid.UUID) string {
	return snapshotKeyPrefix + userID.String()
}
