package catalog

import (
	"context"
	"time"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// CachedRepository serves menu item reads from a TTL LRU and drops an
// entry once a write to that item through it has committed. Order pricing
// must not read through it: nothing here sees price edits.
type CachedRepository struct {
	Repository
	items *expirable.LRU[uuid.UUID, MenuItem]
}

func NewCachedRepository(inner Repository, size int, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		Repository: inner,
		items:      expirable.NewLRU[uuid.UUID, MenuItem](size, nil, ttl),
	}
}

func (c *CachedRepository) GetMenuItem(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	if m, ok := c.items.Get(id); ok {
		return &m, nil
	}

	m, err := c.Repository.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	c.items.Add(id, *m)
	return m, nil
}

func (c *CachedRepository) GetMenuItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*MenuItem, error) {
	out := make(map[uuid.UUID]*MenuItem, len(ids))
	var misses []uuid.UUID

	for _, id := range ids {
		if m, ok := c.items.Get(id); ok {
			out[id] = &m
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.Repository.GetMenuItems(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, m := range fetched {
		c.items.Add(id, *m)
		out[id] = m
	}

	logger.FromCtx(ctx).Debug("menu item cache lookup",
		zap.Int("hits", len(ids)-len(misses)),
		zap.Int("misses", len(misses)),
	)
	return out, nil
}

func (c *CachedRepository) IncrementSoldCount(ctx context.Context, id uuid.UUID, qty int) error {
	err := c.Repository.IncrementSoldCount(ctx, id, qty)
	c.invalidateAfterCommit(ctx, id)
	return err
}

func (c *CachedRepository) RecomputeAverageRating(ctx context.Context, id uuid.UUID, rating int) error {
	err := c.Repository.RecomputeAverageRating(ctx, id, rating)
	c.invalidateAfterCommit(ctx, id)
	return err
}

func (c *CachedRepository) invalidateAfterCommit(ctx context.Context, id uuid.UUID) {
	db.AfterCommit(ctx, func() { c.Invalidate(id) })
}

func (c *CachedRepository) Invalidate(id uuid.UUID) {
	c.items.Remove(id)
}

func (c *CachedRepository) Len() int {
	return c.items.Len()
}
