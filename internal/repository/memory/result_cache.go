package memory

import (
	"context"
	"encoding/json"
	"time"

	"doc-qa-be/internal/entity"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const resultKeyPrefix = "docqa:job:"

// ResultCache keeps terminal job payloads close at hand for pollers, so a
// finished job's status is served without a database round trip. Redis is
// optional: with no client configured the process-local cache serves alone.
type ResultCache struct {
	local *cache.Cache
	rdb   *redis.Client
	ttl   time.Duration
}

func NewResultCache(rdb *redis.Client) *ResultCache {
	return &ResultCache{
		local: cache.New(30*time.Minute, 10*time.Minute),
		rdb:   rdb,
		ttl:   30 * time.Minute,
	}
}

func (c *ResultCache) Put(ctx context.Context, job *entity.Job) {
	if job == nil || !job.Terminal() {
		return
	}
	c.local.Set(job.Id.String(), cloneJob(job), cache.DefaultExpiration)

	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	// Redis is best effort; the database remains the source of truth.
	_ = c.rdb.Set(ctx, resultKeyPrefix+job.Id.String(), raw, c.ttl).Err()
}

func (c *ResultCache) Get(ctx context.Context, id string) (*entity.Job, bool) {
	if x, found := c.local.Get(id); found {
		return cloneJob(x.(*entity.Job)), true
	}

	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, resultKeyPrefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	var job entity.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, false
	}
	c.local.Set(id, &job, cache.DefaultExpiration)
	return cloneJob(&job), true
}
