package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/kalcki/internal/model"
)

const seedBatchQuery = `SELECT s.id, s.owner_id, s.variety_id, s.supplier, s.lot_number, s.quantity_grams,
	       s.purchased_at, s.notes, s.created_at, v.name
	FROM seed_batches s
	JOIN varieties v ON v.id = s.variety_id`

func scanSeedBatch(row interface{ Scan(...any) error }) (*model.SeedBatch, error) {
	b := &model.SeedBatch{}
	var supplier, lot, notes sql.NullString
	err := row.Scan(&b.ID, &b.OwnerID, &b.VarietyID, &supplier, &lot, &b.QuantityGrams,
		&b.PurchasedAt, &notes, &b.CreatedAt, &b.VarietyName)
	if err != nil {
		return nil, err
	}
	b.Supplier = supplier.String
	b.LotNumber = lot.String
	b.Notes = notes.String
	return b, nil
}

// CreateSeedBatch records a seed purchase for one of the owner's varieties.
func CreateSeedBatch(ctx context.Context, db *sql.DB, ownerID int64, in model.SeedBatchInput) (*model.SeedBatch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var id int64
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := getVariety(ctx, tx, ownerID, in.VarietyID); errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("variety %d does not exist: %w", in.VarietyID, model.ErrReferentialIntegrity)
		} else if err != nil {
			return err
		}

		var purchased any
		if in.PurchasedAt != nil {
			purchased = in.PurchasedAt.UTC()
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO seed_batches (owner_id, variety_id, supplier, lot_number, quantity_grams, purchased_at, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ownerID, in.VarietyID, nullString(in.Supplier), nullString(in.LotNumber), in.QuantityGrams,
			purchased, nullString(in.Notes),
		)
		if err != nil {
			return fmt.Errorf("creating seed batch: %w", err)
		}
		id, _ = result.LastInsertId()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSeedBatch(ctx, db, ownerID, id)
}

// GetSeedBatch returns one of the owner's seed batches.
func GetSeedBatch(ctx context.Context, db *sql.DB, ownerID, id int64) (*model.SeedBatch, error) {
	b, err := scanSeedBatch(db.QueryRowContext(ctx,
		seedBatchQuery+` WHERE s.id = ? AND s.owner_id = ?`, id, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("seed batch %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting seed batch: %w", err)
	}
	return b, nil
}

// ListSeedBatches returns the owner's seed stock, optionally for one variety.
func ListSeedBatches(ctx context.Context, db *sql.DB, ownerID, varietyID int64) ([]model.SeedBatch, error) {
	query := seedBatchQuery + ` WHERE s.owner_id = ?`
	args := []any{ownerID}
	if varietyID > 0 {
		query += ` AND s.variety_id = ?`
		args = append(args, varietyID)
	}
	query += ` ORDER BY v.name COLLATE NOCASE, s.created_at, s.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing seed batches: %w", err)
	}
	defer rows.Close()

	batches := []model.SeedBatch{}
	for rows.Next() {
		b, err := scanSeedBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning seed batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

// AdjustSeedBatch adds delta grams to a batch (negative for usage or losses).
// The stock never drops below zero.
func AdjustSeedBatch(ctx context.Context, db *sql.DB, ownerID, id int64, delta float64) (*model.SeedBatch, error) {
	if delta == 0 {
		verr := &model.ValidationError{}
		verr.Add("delta", "must not be zero")
		return nil, verr
	}

	err := inTx(ctx, db, func(tx *sql.Tx) error {
		var quantity float64
		err := tx.QueryRowContext(ctx,
			`SELECT quantity_grams FROM seed_batches WHERE id = ? AND owner_id = ?`, id, ownerID,
		).Scan(&quantity)
		if err == sql.ErrNoRows {
			return fmt.Errorf("seed batch %d: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("checking seed batch: %w", err)
		}

		if quantity+delta < 0 {
			verr := &model.ValidationError{}
			verr.Add("delta", "insufficient stock: have %.2f g, need %.2f g", quantity, -delta)
			return verr
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE seed_batches SET quantity_grams = ? WHERE id = ? AND owner_id = ?`,
			quantity+delta, id, ownerID,
		)
		if err != nil {
			return fmt.Errorf("adjusting seed batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSeedBatch(ctx, db, ownerID, id)
}
