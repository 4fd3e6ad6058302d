// internal/workers/data-access/query-catalog/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leadbot/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

type QueryType string

const (
	QueryTypeAreas      QueryType = "areas"
	QueryTypeProjects   QueryType = "projects"
	QueryTypeUnitTypes  QueryType = "unit_types"
	QueryTypeUnitCount  QueryType = "unit_count"
	QueryTypePriceRange QueryType = "price_range"
	QueryTypeAreaExists QueryType = "area_exists"
)

type Params struct {
	AreaID   string
	Criteria models.UnitCriteria
}

// QueryFunc returns: data, rowCount, error
type QueryFunc func(ctx context.Context, db *sql.DB, p Params) (interface{}, int, error)

var Registry = map[QueryType]QueryFunc{
	QueryTypeAreas: func(ctx context.Context, db *sql.DB, _ Params) (interface{}, int, error) {
		rows, err := Areas(ctx, db)
		return rows, len(rows), err
	},
	QueryTypeProjects: func(ctx context.Context, db *sql.DB, p Params) (interface{}, int, error) {
		rows, err := Projects(ctx, db, p.AreaID)
		return rows, len(rows), err
	},
	QueryTypeUnitTypes: func(ctx context.Context, db *sql.DB, _ Params) (interface{}, int, error) {
		rows, err := UnitTypes(ctx, db)
		return rows, len(rows), err
	},
	QueryTypeUnitCount: func(ctx context.Context, db *sql.DB, p Params) (interface{}, int, error) {
		n, err := CountUnits(ctx, db, p.Criteria)
		return n, 1, err
	},
	QueryTypePriceRange: func(ctx context.Context, db *sql.DB, p Params) (interface{}, int, error) {
		r, err := UnitPriceRange(ctx, db, p.Criteria)
		return r, 1, err
	},
	QueryTypeAreaExists: func(ctx context.Context, db *sql.DB, p Params) (interface{}, int, error) {
		if p.AreaID == "" {
			return nil, 0, fmt.Errorf("%w: areaId", ErrMissingParam)
		}
		ok, err := AreaExists(ctx, db, p.AreaID)
		return ok, 1, err
	},
}

func Execute(ctx context.Context, db *sql.DB, queryType QueryType, p Params) (interface{}, int, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	return fn(ctx, db, p)
}
