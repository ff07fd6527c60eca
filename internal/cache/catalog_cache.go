package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

const catalogKey = "archetype:catalog"

// CatalogStore is a read-through Redis cache in front of another store.
// Redis failures degrade to the underlying store.
type CatalogStore struct {
	next   store.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ store.Store = (*CatalogStore)(nil)

func NewCatalogStore(next store.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CatalogStore {
	return &CatalogStore{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CatalogStore) GetCatalog(ctx context.Context) (*catalog.Catalog, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	switch {
	case err == nil:
		var cat catalog.Catalog
		if jerr := json.Unmarshal(data, &cat); jerr == nil {
			return &cat, nil
		}
		c.logger.Warn("discarding undecodable cached catalog")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("catalog cache read failed", "error", err)
	}

	cat, err := c.next.GetCatalog(ctx)
	if err != nil || cat == nil {
		return cat, err
	}
	c.set(ctx, cat)
	return cat, nil
}

// SaveCatalog drops the cached copy before writing through, so a failed
// write or cache refresh never leaves a stale catalog behind.
func (c *CatalogStore) SaveCatalog(ctx context.Context, cat *catalog.Catalog) error {
	if err := c.invalidate(ctx); err != nil {
		c.logger.Warn("catalog cache invalidate failed", "error", err)
	}
	if err := c.next.SaveCatalog(ctx, cat); err != nil {
		return err
	}
	c.set(ctx, cat)
	return nil
}

func (c *CatalogStore) RecordCalibration(ctx context.Context, run *store.CalibrationRun) error {
	return c.next.RecordCalibration(ctx, run)
}

func (c *CatalogStore) ListCalibrations(ctx context.Context, limit int) ([]*store.CalibrationRun, error) {
	return c.next.ListCalibrations(ctx, limit)
}

// Close closes the underlying store. The Redis client belongs to the caller.
func (c *CatalogStore) Close() error {
	return c.next.Close()
}

func (c *CatalogStore) invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}

func (c *CatalogStore) set(ctx context.Context, cat *catalog.Catalog) {
	data, err := json.Marshal(cat)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "error", err)
	}
}
