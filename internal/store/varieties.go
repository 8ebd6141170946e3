package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/kalcki/internal/model"
)

const varietyColumns = `id, owner_id, name, germination_days, blackout_days, growing_days, seed_density, soak_hours,
	temp_min, temp_optimal, temp_max, humidity_min, humidity_optimal, humidity_max,
	expected_yield_per_tray, cost_per_kg, price_per_gram, other_costs_per_tray,
	notes, is_active, version, created_at, updated_at`

func scanVariety(row interface{ Scan(...any) error }) (*model.Variety, error) {
	v := &model.Variety{}
	var notes sql.NullString
	err := row.Scan(&v.ID, &v.OwnerID, &v.Name, &v.GerminationDays, &v.BlackoutDays, &v.GrowingDays,
		&v.SeedDensity, &v.SoakHours,
		&v.Temperature.Min, &v.Temperature.Optimal, &v.Temperature.Max,
		&v.Humidity.Min, &v.Humidity.Optimal, &v.Humidity.Max,
		&v.ExpectedYieldPerTray, &v.CostPerKg, &v.PricePerGram, &v.OtherCostsPerTray,
		&notes, &v.IsActive, &v.Version, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Notes = notes.String
	return v, nil
}

// varietyArgs returns the column values of the writable fields in schema order.
func varietyArgs(v *model.Variety) []any {
	return []any{
		v.Name, v.GerminationDays, v.BlackoutDays, v.GrowingDays, v.SeedDensity, v.SoakHours,
		v.Temperature.Min, v.Temperature.Optimal, v.Temperature.Max,
		v.Humidity.Min, v.Humidity.Optimal, v.Humidity.Max,
		v.ExpectedYieldPerTray, v.CostPerKg, v.PricePerGram, v.OtherCostsPerTray,
		nullString(v.Notes),
	}
}

func insertVariety(ctx context.Context, q querier, ownerID int64, in *model.VarietyInput) (int64, error) {
	var v model.Variety
	in.Apply(&v)

	args := append([]any{ownerID}, varietyArgs(&v)...)
	result, err := q.ExecContext(ctx,
		`INSERT INTO varieties (owner_id, name, germination_days, blackout_days, growing_days, seed_density, soak_hours,
		     temp_min, temp_optimal, temp_max, humidity_min, humidity_optimal, humidity_max,
		     expected_yield_per_tray, cost_per_kg, price_per_gram, other_costs_per_tray, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("creating variety: %w", err)
	}
	return result.LastInsertId()
}

// CreateVariety validates and stores a new variety for the owner.
func CreateVariety(ctx context.Context, db *sql.DB, ownerID int64, in model.VarietyInput) (*model.Variety, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := insertVariety(ctx, db, ownerID, &in)
	if err != nil {
		return nil, err
	}
	return GetVariety(ctx, db, ownerID, id)
}

// ImportVarieties validates every entry and stores them all in one
// transaction. Validation errors are reported per entry with an index prefix.
func ImportVarieties(ctx context.Context, db *sql.DB, ownerID int64, inputs []model.VarietyInput) ([]model.Variety, error) {
	verr := &model.ValidationError{}
	for i := range inputs {
		var ferr *model.ValidationError
		if err := inputs[i].Validate(); errors.As(err, &ferr) {
			for _, f := range ferr.Fields {
				verr.Add(fmt.Sprintf("varieties[%d].%s", i, f.Field), "%s", f.Message)
			}
		}
	}
	if len(inputs) == 0 {
		verr.Add("varieties", "at least one variety required")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(inputs))
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		for i := range inputs {
			id, err := insertVariety(ctx, tx, ownerID, &inputs[i])
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	varieties := make([]model.Variety, 0, len(ids))
	for _, id := range ids {
		v, err := GetVariety(ctx, db, ownerID, id)
		if err != nil {
			return nil, err
		}
		varieties = append(varieties, *v)
	}
	return varieties, nil
}

// GetVariety returns the owner's variety by ID, including deactivated ones.
func GetVariety(ctx context.Context, db *sql.DB, ownerID, id int64) (*model.Variety, error) {
	return getVariety(ctx, db, ownerID, id)
}

func getVariety(ctx context.Context, q querier, ownerID, id int64) (*model.Variety, error) {
	v, err := scanVariety(q.QueryRowContext(ctx,
		`SELECT `+varietyColumns+` FROM varieties WHERE id = ? AND owner_id = ?`, id, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("variety %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting variety: %w", err)
	}
	return v, nil
}

// ListVarieties returns the owner's varieties ordered by name. Deactivated
// varieties are included only on request.
func ListVarieties(ctx context.Context, db *sql.DB, ownerID int64, includeInactive bool) ([]model.Variety, error) {
	query := `SELECT ` + varietyColumns + ` FROM varieties WHERE owner_id = ?`
	if !includeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing varieties: %w", err)
	}
	defer rows.Close()

	varieties := []model.Variety{}
	for rows.Next() {
		v, err := scanVariety(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning variety: %w", err)
		}
		varieties = append(varieties, *v)
	}
	return varieties, rows.Err()
}

// UpdateVariety replaces the writable fields of a variety if version is still
// current. Trays already created keep their scheduled dates.
func UpdateVariety(ctx context.Context, db *sql.DB, ownerID, id, version int64, in model.VarietyInput) (*model.Variety, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var v model.Variety
	in.Apply(&v)

	err := versionedUpdate(ctx, db, "varieties", ownerID, id, version,
		`name = ?, germination_days = ?, blackout_days = ?, growing_days = ?, seed_density = ?, soak_hours = ?,
		 temp_min = ?, temp_optimal = ?, temp_max = ?, humidity_min = ?, humidity_optimal = ?, humidity_max = ?,
		 expected_yield_per_tray = ?, cost_per_kg = ?, price_per_gram = ?, other_costs_per_tray = ?, notes = ?`,
		varietyArgs(&v)...,
	)
	if err != nil {
		return nil, err
	}
	return GetVariety(ctx, db, ownerID, id)
}

// DeactivateVariety hides a variety from new trays. Existing trays keep
// referencing it.
func DeactivateVariety(ctx context.Context, db *sql.DB, ownerID, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE varieties SET is_active = 0, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND is_active = 1`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deactivating variety: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Already inactive is fine; a missing variety is not.
		if _, err := GetVariety(ctx, db, ownerID, id); err != nil {
			return err
		}
	}
	return nil
}
