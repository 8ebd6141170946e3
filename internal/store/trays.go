package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/kalcki/internal/model"
)

const trayColumns = `t.id, t.owner_id, t.variety_id, t.batch_id, t.seed_batch_id, t.seed_amount, t.tray_size, t.tray_area,
	t.status, t.location, t.growing_area, t.notes,
	t.seeding_date, t.blackout_end_date, t.expected_harvest_date, t.actual_harvest_date,
	t.planned_blackout_days, t.planned_growing_days, t.yield_weight, t.yield_quality,
	t.photo_mime, t.is_archived, t.version, t.created_at, t.updated_at, v.name`

const trayFrom = ` FROM trays t JOIN varieties v ON v.id = t.variety_id`

// TrayFilter narrows ListTrays. Zero values match everything except archived trays.
type TrayFilter struct {
	VarietyID       int64
	Status          string
	IncludeArchived bool
}

func scanTray(row interface{ Scan(...any) error }) (*model.Tray, error) {
	t := &model.Tray{}
	var seedBatchID sql.NullInt64
	var location, growingArea, notes, photoMime sql.NullString
	err := row.Scan(&t.ID, &t.OwnerID, &t.VarietyID, &t.BatchID, &seedBatchID, &t.SeedAmount, &t.TraySize, &t.TrayArea,
		&t.Status, &location, &growingArea, &notes,
		&t.SeedingDate, &t.BlackoutEndDate, &t.ExpectedHarvestDate, &t.ActualHarvestDate,
		&t.PlannedBlackoutDays, &t.PlannedGrowingDays, &t.YieldWeight, &t.YieldQuality,
		&photoMime, &t.IsArchived, &t.Version, &t.CreatedAt, &t.UpdatedAt, &t.VarietyName)
	if err != nil {
		return nil, err
	}
	if seedBatchID.Valid {
		t.SeedBatchID = &seedBatchID.Int64
	}
	t.Location = location.String
	t.GrowingArea = growingArea.String
	t.Notes = notes.String
	t.PhotoMime = photoMime.String
	t.Issues = []model.Issue{}
	return t, nil
}

// CreateTray stores a new tray in the seeding state. The variety must exist,
// be active and belong to the owner. Expected dates are derived from the
// variety once, here.
func CreateTray(ctx context.Context, db *sql.DB, ownerID int64, in model.TrayInput) (*model.Tray, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var id int64
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		variety, err := getVariety(ctx, tx, ownerID, in.VarietyID)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("variety %d does not exist: %w", in.VarietyID, model.ErrReferentialIntegrity)
		}
		if err != nil {
			return err
		}
		if !variety.IsActive {
			return fmt.Errorf("variety %d is inactive: %w", in.VarietyID, model.ErrReferentialIntegrity)
		}

		if in.SeedBatchID != nil {
			var varietyID int64
			err := tx.QueryRowContext(ctx,
				`SELECT variety_id FROM seed_batches WHERE id = ? AND owner_id = ?`, *in.SeedBatchID, ownerID,
			).Scan(&varietyID)
			if err == sql.ErrNoRows {
				return fmt.Errorf("seed batch %d does not exist: %w", *in.SeedBatchID, model.ErrReferentialIntegrity)
			}
			if err != nil {
				return fmt.Errorf("checking seed batch: %w", err)
			}
			if varietyID != in.VarietyID {
				return fmt.Errorf("seed batch %d is for another variety: %w", *in.SeedBatchID, model.ErrReferentialIntegrity)
			}
		}

		tray := &model.Tray{SeedingDate: in.SeedingDate.UTC()}
		tray.Schedule(variety.BlackoutDays, variety.GrowingDays)

		result, err := tx.ExecContext(ctx,
			`INSERT INTO trays (owner_id, variety_id, batch_id, seed_batch_id, seed_amount, tray_size, tray_area,
			     location, growing_area, notes, seeding_date, blackout_end_date, expected_harvest_date,
			     planned_blackout_days, planned_growing_days)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ownerID, in.VarietyID, in.BatchID, in.SeedBatchID, in.SeedAmount, in.TraySize, in.TrayArea,
			nullString(in.Location), nullString(in.GrowingArea), nullString(in.Notes),
			tray.SeedingDate, tray.BlackoutEndDate, tray.ExpectedHarvestDate,
			tray.PlannedBlackoutDays, tray.PlannedGrowingDays,
		)
		if err != nil {
			return fmt.Errorf("creating tray: %w", err)
		}
		id, _ = result.LastInsertId()

		return recordEvent(ctx, tx, id, "", model.StatusSeeding, "tray created", ownerID, now)
	})
	if err != nil {
		return nil, err
	}
	return GetTray(ctx, db, ownerID, id)
}

// GetTray returns the owner's tray by ID with its issue log.
func GetTray(ctx context.Context, db *sql.DB, ownerID, id int64) (*model.Tray, error) {
	return getTray(ctx, db, ownerID, id)
}

func getTray(ctx context.Context, q querier, ownerID, id int64) (*model.Tray, error) {
	t, err := scanTray(q.QueryRowContext(ctx,
		`SELECT `+trayColumns+trayFrom+` WHERE t.id = ? AND t.owner_id = ?`, id, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tray %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting tray: %w", err)
	}

	issues, err := loadIssues(ctx, q, `i.tray_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if list, ok := issues[id]; ok {
		t.Issues = list
	}
	return t, nil
}

// ListTrays returns the owner's trays matching the filter, oldest seeding first.
func ListTrays(ctx context.Context, db *sql.DB, ownerID int64, filter TrayFilter) ([]model.Tray, error) {
	query := `SELECT ` + trayColumns + trayFrom + ` WHERE t.owner_id = ?`
	args := []any{ownerID}

	if filter.VarietyID > 0 {
		query += ` AND t.variety_id = ?`
		args = append(args, filter.VarietyID)
	}
	if filter.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, filter.Status)
	}
	if !filter.IncludeArchived {
		query += ` AND t.is_archived = 0`
	}
	query += ` ORDER BY t.seeding_date, t.id`

	trays, err := queryTrays(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(trays) == 0 {
		return trays, nil
	}

	issues, err := loadIssues(ctx, db, `t.owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range trays {
		if list, ok := issues[trays[i].ID]; ok {
			trays[i].Issues = list
		}
	}
	return trays, nil
}

// queryTrays scans every row before returning so the caller may issue
// further queries on the same connection.
func queryTrays(ctx context.Context, q querier, query string, args ...any) ([]model.Tray, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing trays: %w", err)
	}
	defer rows.Close()

	trays := []model.Tray{}
	for rows.Next() {
		t, err := scanTray(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tray: %w", err)
		}
		trays = append(trays, *t)
	}
	return trays, rows.Err()
}

// UpdateTray changes the free-form fields of a tray. Lifecycle fields change
// only through ChangeTrayStatus.
func UpdateTray(ctx context.Context, db *sql.DB, ownerID, id int64, u model.TrayUpdate) (*model.Tray, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	err := versionedUpdate(ctx, db, "trays", ownerID, id, u.Version,
		`batch_id = ?, seed_amount = ?, location = ?, growing_area = ?, notes = ?`,
		u.BatchID, u.SeedAmount, nullString(u.Location), nullString(u.GrowingArea), nullString(u.Notes),
	)
	if err != nil {
		return nil, err
	}
	return GetTray(ctx, db, ownerID, id)
}

// ChangeTrayStatus moves a tray one step through its lifecycle and records
// the step in the tray history. Harvest results are stored with a move to
// harvested; the harvest date defaults to now.
func ChangeTrayStatus(ctx context.Context, db *sql.DB, ownerID, id int64, change model.StatusChange, now time.Time) (*model.Tray, error) {
	if err := change.Validate(); err != nil {
		return nil, err
	}

	err := inTx(ctx, db, func(tx *sql.Tx) error {
		tray, err := getTray(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if tray.Version != change.Version {
			return fmt.Errorf("tray %d at version %d: %w", id, change.Version, model.ErrConflict)
		}
		if err := model.CheckTransition(tray.Status, change.Status, tray.PlannedBlackoutDays); err != nil {
			return err
		}

		set := `status = ?`
		args := []any{change.Status}
		if change.Status == model.StatusHarvested {
			harvested := now.UTC()
			if change.HarvestDate != nil {
				harvested = change.HarvestDate.UTC()
			}
			set += `, actual_harvest_date = ?, yield_weight = ?, yield_quality = ?`
			args = append(args, harvested, *change.YieldWeight, *change.YieldQuality)
		}

		if err := versionedUpdate(ctx, tx, "trays", ownerID, id, change.Version, set, args...); err != nil {
			return err
		}
		return recordEvent(ctx, tx, id, tray.Status, change.Status, change.Note, ownerID, now.UTC())
	})
	if err != nil {
		return nil, err
	}
	return GetTray(ctx, db, ownerID, id)
}

// RescheduleTray recomputes the expected dates from the variety's current
// timing, optionally moving the seeding date. Finished trays keep their dates.
func RescheduleTray(ctx context.Context, db *sql.DB, ownerID, id, version int64, seedingDate *time.Time) (*model.Tray, error) {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		tray, err := getTray(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if tray.Terminal() {
			return fmt.Errorf("%w: cannot reschedule a %s tray", model.ErrInvalidTransition, tray.Status)
		}
		variety, err := getVariety(ctx, tx, ownerID, tray.VarietyID)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("variety %d does not exist: %w", tray.VarietyID, model.ErrReferentialIntegrity)
		}
		if err != nil {
			return err
		}

		if seedingDate != nil {
			tray.SeedingDate = seedingDate.UTC()
		}
		tray.Schedule(variety.BlackoutDays, variety.GrowingDays)

		return versionedUpdate(ctx, tx, "trays", ownerID, id, version,
			`seeding_date = ?, blackout_end_date = ?, expected_harvest_date = ?,
			 planned_blackout_days = ?, planned_growing_days = ?`,
			tray.SeedingDate, tray.BlackoutEndDate, tray.ExpectedHarvestDate,
			tray.PlannedBlackoutDays, tray.PlannedGrowingDays,
		)
	})
	if err != nil {
		return nil, err
	}
	return GetTray(ctx, db, ownerID, id)
}

// ArchiveTray hides a tray from default listings. Its data is kept.
func ArchiveTray(ctx context.Context, db *sql.DB, ownerID, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE trays SET is_archived = 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND is_archived = 0`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("archiving tray: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := GetTray(ctx, db, ownerID, id); err != nil {
			return err
		}
	}
	return nil
}

// SetTrayPhoto replaces the tray photo.
func SetTrayPhoto(ctx context.Context, db *sql.DB, ownerID, id int64, data []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE trays SET photo = ?, photo_mime = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ?`,
		data, mime, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("setting tray photo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tray %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetTrayPhoto returns the photo bytes and MIME type. A tray without a photo
// reports ErrNotFound.
func GetTrayPhoto(ctx context.Context, db *sql.DB, ownerID, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM trays WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows || (err == nil && len(data) == 0) {
		return nil, "", fmt.Errorf("photo of tray %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting tray photo: %w", err)
	}
	return data, mime.String, nil
}
