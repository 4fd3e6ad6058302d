// internal/workers/data-access/query-catalog/queries/catalog.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"leadbot/internal/models"
)

func Areas(ctx context.Context, db *sql.DB) ([]models.CatalogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, name_ar
		FROM areas
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CatalogEntry{}
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ID, &e.PrimaryName, &e.SecondaryName); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Projects lists projects, restricted to one area when areaID is set.
func Projects(ctx context.Context, db *sql.DB, areaID string) ([]models.CatalogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, name_ar, COALESCE(area_id, '')
		FROM projects
		WHERE $1 = '' OR area_id = $1
		ORDER BY sort_order, name`, areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CatalogEntry{}
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ID, &e.PrimaryName, &e.SecondaryName, &e.ParentID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func UnitTypes(ctx context.Context, db *sql.DB) ([]models.CatalogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, name_ar
		FROM unit_types
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CatalogEntry{}
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ID, &e.PrimaryName, &e.SecondaryName); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func CountUnits(ctx context.Context, db *sql.DB, c models.UnitCriteria) (int, error) {
	where, args := unitFilter(c)
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM units WHERE "+where, args...).Scan(&n)
	return n, err
}

func UnitPriceRange(ctx context.Context, db *sql.DB, c models.UnitCriteria) (models.PriceRange, error) {
	where, args := unitFilter(c)
	var r models.PriceRange
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MIN(price), 0), COALESCE(MAX(price), 0), COUNT(*) FROM units WHERE "+where, args...).
		Scan(&r.Min, &r.Max, &r.Count)
	return r, err
}

func AreaExists(ctx context.Context, db *sql.DB, areaID string) (bool, error) {
	var ok bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM areas WHERE id = $1)`, areaID).Scan(&ok)
	return ok, err
}

// unitFilter builds the WHERE clause for available units matching c. Zero
// fields do not filter.
func unitFilter(c models.UnitCriteria) (string, []interface{}) {
	clauses := []string{"available = TRUE"}
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if c.AreaID != "" {
		add("area_id = $%d", c.AreaID)
	}
	if c.ProjectID != "" {
		add("project_id = $%d", c.ProjectID)
	}
	if c.UnitTypeID != "" {
		add("unit_type_id = $%d", c.UnitTypeID)
	}
	if c.BudgetMin > 0 {
		add("price >= $%d", c.BudgetMin)
	}
	if c.BudgetMax > 0 {
		add("price <= $%d", c.BudgetMax)
	}
	if c.SizeMin > 0 {
		add("size_sqm >= $%d", c.SizeMin)
	}
	if c.SizeMax > 0 {
		add("size_sqm <= $%d", c.SizeMax)
	}
	if c.Bedrooms > 0 {
		add("bedrooms = $%d", c.Bedrooms)
	}
	return strings.Join(clauses, " AND "), args
}
