package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dashboardKeySegment = "dashboard:"
	defaultDashboardTTL = 5 * time.Minute
)

func dashboardKey(studentID string, sessionID int) string {
	return fmt.Sprintf("%s:%d", studentID, sessionID)
}

// RedisDashboardCache stores student dashboards as JSON with a TTL
type RedisDashboardCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisDashboardCache creates a dashboard cache on an existing client
func NewRedisDashboardCache(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisDashboardCache {
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDashboardCache{
		client:    client,
		keyPrefix: keyPrefix + dashboardKeySegment,
		ttl:       ttl,
		logger:    logger,
	}
}

// Get decodes the cached dashboard into dst. A miss returns false.
func (c *RedisDashboardCache) Get(ctx context.Context, studentID string, sessionID int, dst any) (bool, error) {
	key := c.keyPrefix + dashboardKey(studentID, sessionID)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get dashboard from cache: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Dropping undecodable dashboard cache entry",
			zap.String("key", key),
			zap.Error(err))
		_ = c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set stores v for the cache TTL
func (c *RedisDashboardCache) Set(ctx context.Context, studentID string, sessionID int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+dashboardKey(studentID, sessionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dashboard in cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached dashboard for (student, session)
func (c *RedisDashboardCache) Invalidate(ctx context.Context, studentID string, sessionID int) error {
	if err := c.client.Del(ctx, c.keyPrefix+dashboardKey(studentID, sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate dashboard: %w", err)
	}
	return nil
}

// InMemoryDashboardCache keeps encoded dashboards in process memory.
// Values are stored as JSON so callers never share mutable state.
type InMemoryDashboardCache struct {
	mu      sync.RWMutex
	entries map[string]expiring[[]byte]
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDashboardCache creates an in-memory dashboard cache
func NewInMemoryDashboardCache(ttl time.Duration) *InMemoryDashboardCache {
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}
	return &InMemoryDashboardCache{
		entries: make(map[string]expiring[[]byte]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get decodes the cached dashboard into dst. A miss or expired entry returns false.
func (c *InMemoryDashboardCache) Get(_ context.Context, studentID string, sessionID int, dst any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[dashboardKey(studentID, sessionID)]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return false, nil
	}
	if err := json.Unmarshal(e.value, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached dashboard: %w", err)
	}
	return true, nil
}

// Set stores v for the cache TTL
func (c *InMemoryDashboardCache) Set(_ context.Context, studentID string, sessionID int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}

	c.mu.Lock()
	c.entries[dashboardKey(studentID, sessionID)] = expiring[[]byte]{value: data, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the cached dashboard for (student, session)
func (c *InMemoryDashboardCache) Invalidate(_ context.Context, studentID string, sessionID int) error {
	c.mu.Lock()
	delete(c.entries, dashboardKey(studentID, sessionID))
	c.mu.Unlock()
	return nil
}
