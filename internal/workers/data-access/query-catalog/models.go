// internal/workers/data-access/query-catalog/models.go
package querycatalog

import (
	"leadbot/internal/models"
	"leadbot/internal/workers/data-access/query-catalog/queries"
)

type Input struct {
	QueryType string              `json:"queryType"`
	AreaID    string              `json:"areaId,omitempty"`
	Criteria  models.UnitCriteria `json:"criteria,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = queries.QueryType

var (
	QueryTypeAreas      = queries.QueryTypeAreas
	QueryTypeProjects   = queries.QueryTypeProjects
	QueryTypeUnitTypes  = queries.QueryTypeUnitTypes
	QueryTypeUnitCount  = queries.QueryTypeUnitCount
	QueryTypePriceRange = queries.QueryTypePriceRange
	QueryTypeAreaExists = queries.QueryTypeAreaExists
)
