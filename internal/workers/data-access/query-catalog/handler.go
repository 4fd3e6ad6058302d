// internal/workers/data-access/query-catalog/handler.go
package querycatalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"leadbot/internal/common/database"
	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/models"
	"leadbot/internal/workers/data-access/query-catalog/queries"
)

const (
	TaskType = "query-catalog"
)

var (
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
	ErrInvalidQueryType     = errors.New("INVALID_QUERY_TYPE")
)

// Handler reads the listings catalog from PostgreSQL. The three entity
// lists are cached in Redis; counts and price ranges always hit the
// database.
type Handler struct {
	config *Config
	db     *sql.DB
	redis  redis.Cmdable
	group  singleflight.Group
	logger logger.Logger
}

// NewHandler wires the catalog. rdb may be nil, which disables caching.
func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	queryType := QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, input.QueryType)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	data, rowCount, err := queries.Execute(ctx, h.db, queryType, queries.Params{
		AreaID:   input.AreaID,
		Criteria: input.Criteria,
	})
	if err != nil {
		if errors.Is(err, queries.ErrMissingParam) {
			return nil, err
		}
		return nil, h.wrap(ctx, err)
	}
	return &Output{
		Data:               data,
		RowCount:           rowCount,
		QueryExecutionTime: time.Since(start).Milliseconds(),
	}, nil
}

func (h *Handler) ListAreas(ctx context.Context) ([]models.CatalogEntry, error) {
	return h.cachedList(ctx, "areas", h.config.KeyPrefix+"areas", func(ctx context.Context) ([]models.CatalogEntry, error) {
		return queries.Areas(ctx, h.db)
	})
}

// ListProjects lists the projects of areaID, or every project when it is
// empty.
func (h *Handler) ListProjects(ctx context.Context, areaID string) ([]models.CatalogEntry, error) {
	key := h.config.KeyPrefix + "projects:" + areaID
	if areaID == "" {
		key = h.config.KeyPrefix + "projects:*all"
	}
	return h.cachedList(ctx, "projects", key, func(ctx context.Context) ([]models.CatalogEntry, error) {
		return queries.Projects(ctx, h.db, areaID)
	})
}

func (h *Handler) ListUnitTypes(ctx context.Context) ([]models.CatalogEntry, error) {
	return h.cachedList(ctx, "unit_types", h.config.KeyPrefix+"unit_types", func(ctx context.Context) ([]models.CatalogEntry, error) {
		return queries.UnitTypes(ctx, h.db)
	})
}

func (h *Handler) CountMatchingUnits(ctx context.Context, criteria models.UnitCriteria) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()
	n, err := queries.CountUnits(ctx, h.db, criteria)
	if err != nil {
		return 0, h.wrap(ctx, err)
	}
	return n, nil
}

func (h *Handler) PriceRange(ctx context.Context, criteria models.UnitCriteria) (models.PriceRange, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()
	r, err := queries.UnitPriceRange(ctx, h.db, criteria)
	if err != nil {
		return models.PriceRange{}, h.wrap(ctx, err)
	}
	return r, nil
}

func (h *Handler) AreaExists(ctx context.Context, areaID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()
	ok, err := queries.AreaExists(ctx, h.db, areaID)
	if err != nil {
		return false, h.wrap(ctx, err)
	}
	return ok, nil
}

// Warm loads the area and unit type lists plus every area's projects so
// the first turns of the day do not pay for the database round trips.
func (h *Handler) Warm(ctx context.Context) error {
	areas, err := h.ListAreas(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		_, err := h.ListUnitTypes(gctx)
		return err
	})
	for _, a := range areas {
		areaID := a.ID
		g.Go(func() error {
			_, err := h.ListProjects(gctx, areaID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	h.logger.Info("catalog cache warmed", map[string]interface{}{"areas": len(areas)})
	return nil
}

// Invalidate drops every cached list.
func (h *Handler) Invalidate(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}
	iter := h.redis.Scan(ctx, 0, h.config.KeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan catalog keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return h.redis.Del(ctx, keys...).Err()
}

func (h *Handler) cachedList(ctx context.Context, list, key string, load func(context.Context) ([]models.CatalogEntry, error)) ([]models.CatalogEntry, error) {
	if h.redis != nil {
		var entries []models.CatalogEntry
		err := database.GetJSON(ctx, h.redis, key, &entries)
		switch {
		case err == nil:
			metrics.CatalogCacheLookups.WithLabelValues(list, "hit").Inc()
			return entries, nil
		case errors.Is(err, redis.Nil):
			metrics.CatalogCacheLookups.WithLabelValues(list, "miss").Inc()
		default:
			metrics.CatalogCacheLookups.WithLabelValues(list, "error").Inc()
			h.logger.Warn("catalog cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	// Shared by every caller waiting on key; detached from their cancellation.
	ch := h.group.DoChan(key, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.config.Timeout)
		defer cancel()
		entries, err := load(qctx)
		if err != nil {
			return nil, h.wrap(qctx, err)
		}
		if h.redis != nil {
			if err := database.SetJSON(qctx, h.redis, key, entries, h.config.CacheTTL); err != nil {
				h.logger.Warn("catalog cache write failed", map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				})
			}
		}
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog %s: %w", list, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.CatalogEntry), nil
	}
}

func (h *Handler) wrap(ctx context.Context, err error) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return fmt.Errorf("%w: %w", apperrors.ErrExternalServiceUnavailable, ErrQueryTimeout)
	case context.Canceled:
		return fmt.Errorf("catalog query: %w", context.Canceled)
	}
	h.logger.Error("catalog query failed", map[string]interface{}{"error": err.Error()})
	return fmt.Errorf("%w: %w: %v", apperrors.ErrExternalServiceUnavailable, ErrQueryExecutionFailed, err)
}
