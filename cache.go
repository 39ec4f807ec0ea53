package accesskit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// GrantCache caches per-user raw grant sets in Redis so the authorization
// hot path avoids a ledger join on every check. Entries are written on
// read misses and invalidated synchronously by every mutation that can
// change a user's effective permissions; a stale entry would retain
// revoked privileges, so invalidation failures are surfaced to callers
// instead of being swallowed.
type GrantCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewGrantCache creates a GrantCache on an established Redis client. A ttl
// of zero uses the default of 5 minutes; the TTL is a backstop only, not
// the invalidation mechanism.
func NewGrantCache(client *redis.Client, ttl time.Duration) *GrantCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &GrantCache{
		client: client,
		ttl:    ttl,
		prefix: "accesskit:grants:",
	}
}

func (c *GrantCache) key(userID string) string {
	return c.prefix + userID
}

// Get returns the cached grant set for a user. The second return is false
// on miss or on any transport error; reads degrade to the database.
func (c *GrantCache) Get(ctx context.Context, userID string) ([]string, bool) {
	payload, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var grants []string
	if err := json.Unmarshal(payload, &grants); err != nil {
		return nil, false
	}
	return grants, true
}

// Set stores a user's grant set. An empty set is cached too: "no grants"
// is as valid an answer as any.
func (c *GrantCache) Set(ctx context.Context, userID string, grants []string) error {
	if grants == nil {
		grants = []string{}
	}
	payload, err := json.Marshal(grants)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID), payload, c.ttl).Err()
}

// Invalidate removes the cached grant sets of specific users.
func (c *GrantCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

// InvalidateAll removes every cached grant set. Used after role-level and
// catalog-level writes, where the set of affected users is not tracked.
func (c *GrantCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// invalidateUserGrants drops the given users' cache entries. The write has
// already committed when this runs, so a failure here is reported loudly:
// the caller gets an error even though the database is correct, and the
// TTL backstop bounds the exposure.
func (s *Service) invalidateUserGrants(ctx context.Context, userIDs ...string) error {
	if s.cache == nil || len(userIDs) == 0 {
		return nil
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.ErrorContext(ctx, "grant cache invalidation failed",
			"user_ids", userIDs,
			"error", err)
		return fmt.Errorf("accesskit: grant cache invalidation failed: %w", err)
	}
	return nil
}

// invalidateAllGrants drops every cached entry after a role- or
// catalog-level write.
func (s *Service) invalidateAllGrants(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.ErrorContext(ctx, "grant cache flush failed", "error", err)
		return fmt.Errorf("accesskit: grant cache invalidation failed: %w", err)
	}
	return nil
}
