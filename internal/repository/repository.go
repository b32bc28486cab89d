// Package repository is the data access layer for the decision workers.
// Org-scoped configuration (profiles, rules, templates) is read through a
// Redis cache; decision outcomes are written back to Postgres. The engine
// packages never touch this layer.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"credit-workers/internal/common/database"
	"credit-workers/internal/common/logger"
)

// configCacheTTL bounds staleness of cached org configuration.
const configCacheTTL = 5 * time.Minute

type Repository struct {
	db         *sql.DB
	cache      *database.RedisClient
	es         *database.ElasticsearchClient
	emailIndex string
	logger     logger.Logger
}

// New builds a repository. cache and es may be nil; reads then go straight
// to Postgres.
func New(db *sql.DB, cache *database.RedisClient, es *database.ElasticsearchClient, emailIndex string, log logger.Logger) *Repository {
	if emailIndex == "" {
		emailIndex = "email_logs"
	}
	return &Repository{
		db:         db,
		cache:      cache,
		es:         es,
		emailIndex: emailIndex,
		logger:     log.WithFields(map[string]interface{}{"component": "repository"}),
	}
}

// cachedJSON reads a JSON document through the cache. On any cache error
// the loader runs and the result is written back best-effort.
func cachedJSON(ctx context.Context, r *Repository, key string, dest interface{}, load func(context.Context) (interface{}, error)) error {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, key)
		if err == nil {
			if err := json.Unmarshal([]byte(raw), dest); err == nil {
				return nil
			}
			// Corrupt entry: drop it and reload.
			_ = r.cache.Del(ctx, key)
		}
	}

	value, err := load(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(encoded, dest); err != nil {
		return err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, string(encoded), configCacheTTL); err != nil {
			r.logger.Warn("cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return nil
}

// InvalidateOrgConfig drops all cached configuration for an organization.
func (r *Repository) InvalidateOrgConfig(ctx context.Context, orgID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Del(ctx,
		profileCacheKey(orgID),
		targetingRulesCacheKey(orgID),
		templatesCacheKey(orgID),
		schedulingRulesCacheKey(orgID),
		retryConfigCacheKey(orgID),
		dunningStepsCacheKey(orgID),
	)
}
