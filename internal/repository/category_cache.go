package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"blogcore/internal/domain/models"
	"blogcore/internal/lib/logger/sl"
	"blogcore/internal/metrics"
	redisapp "blogcore/internal/storage/redis"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// maxLocalTTL bounds how long a replica can serve a category another
// replica already changed, since writes only evict the local layer of the
// process that made them.
const maxLocalTTL = 30 * time.Second

func localTTL(ttl time.Duration) time.Duration {
	if ttl > maxLocalTTL {
		return maxLocalTTL
	}
	return ttl
}

// CachedCategoryRepo serves slug lookups from a process-local cache, then
// from redis when configured, then from the wrapped repository. Every write
// evicts the slugs it touches from both layers.
type CachedCategoryRepo struct {
	CategoryRepository

	log   *slog.Logger
	local *gocache.Cache
	rdb   *redisapp.Client
	ttl   time.Duration

	// writes counts evictions; a store read that overlaps one is not cached.
	writes atomic.Uint64
}

func NewCachedCategoryRepository(log *slog.Logger, inner CategoryRepository, rdb *redisapp.Client, ttl time.Duration) *CachedCategoryRepo {
	return &CachedCategoryRepo{
		CategoryRepository: inner,
		log:                log,
		local:              gocache.New(localTTL(ttl), 2*localTTL(ttl)),
		rdb:                rdb,
		ttl:                ttl,
	}
}

func (r *CachedCategoryRepo) GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error) {
	const op = "repository.category_cache.GetCategoryBySlug"

	log := r.log.With(slog.String("op", op), slog.String("slug", slug))

	if v, ok := r.local.Get(slug); ok {
		metrics.CategoryCacheLookups.WithLabelValues("local").Inc()
		return v.(models.Category), nil
	}

	if r.rdb != nil {
		data, err := r.rdb.Get(ctx, r.key(slug)).Bytes()
		switch {
		case err == nil:
			var category models.Category
			if err := json.Unmarshal(data, &category); err == nil {
				metrics.CategoryCacheLookups.WithLabelValues("redis").Inc()
				r.local.Set(slug, category, gocache.DefaultExpiration)
				return category, nil
			}
			log.Warn("dropping undecodable cache entry")
		case !errors.Is(err, redis.Nil):
			log.Warn("redis lookup failed", sl.Err(err))
		}
	}

	gen := r.writes.Load()

	category, err := r.CategoryRepository.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return models.Category{}, err
	}
	metrics.CategoryCacheLookups.WithLabelValues("db").Inc()

	if r.writes.Load() != gen {
		return category, nil
	}

	r.local.Set(slug, category, gocache.DefaultExpiration)

	if r.rdb != nil {
		data, err := json.Marshal(category)
		if err == nil {
			err = r.rdb.Set(ctx, r.key(slug), string(data), r.ttl).Err()
		}
		if err != nil {
			log.Warn("redis store failed", sl.Err(err))
		}
	}

	return category, nil
}

func (r *CachedCategoryRepo) SaveCategory(ctx context.Context, category models.Category) (models.Category, error) {
	saved, err := r.CategoryRepository.SaveCategory(ctx, category)
	if err != nil {
		return models.Category{}, err
	}

	r.evict(ctx, saved.Slug)

	return saved, nil
}

func (r *CachedCategoryRepo) UpdateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	slugs := []string{category.Slug}
	if old, err := r.CategoryRepository.GetCategoryByID(ctx, category.ID); err == nil && old.Slug != category.Slug {
		slugs = append(slugs, old.Slug)
	}

	updated, err := r.CategoryRepository.UpdateCategory(ctx, category)
	if err != nil {
		return models.Category{}, err
	}

	r.evict(ctx, slugs...)

	return updated, nil
}

func (r *CachedCategoryRepo) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	old, lookupErr := r.CategoryRepository.GetCategoryByID(ctx, categoryID)

	if err := r.CategoryRepository.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}

	if lookupErr == nil {
		r.evict(ctx, old.Slug)
	}

	return nil
}

func (r *CachedCategoryRepo) evict(ctx context.Context, slugs ...string) {
	const op = "repository.category_cache.evict"

	r.writes.Add(1)
	for _, slug := range slugs {
		r.local.Delete(slug)
	}

	if r.rdb == nil {
		return
	}

	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		keys = append(keys, r.key(slug))
	}

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.log.With(slog.String("op", op)).Warn("redis eviction failed", sl.Err(err))
	}
}

func (r *CachedCategoryRepo) key(slug string) string {
	return r.rdb.Key("category", slug)
}
