package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/kalcki/internal/db"
	"github.com/erazemk/kalcki/internal/model"
)

func TestSeedBatchStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newGrower(t, database, "grower")
	v := newVariety(t, database, owner, "Sunflower", 3, 7)

	purchased := seeded
	batch, err := CreateSeedBatch(ctx, database, owner, model.SeedBatchInput{
		VarietyID:     v.ID,
		Supplier:      " True Leaf ",
		LotNumber:     "L-42",
		QuantityGrams: 500,
		PurchasedAt:   &purchased,
	})
	if err != nil {
		t.Fatalf("CreateSeedBatch: %v", err)
	}
	if batch.Supplier != "True Leaf" || batch.VarietyName != "Sunflower" {
		t.Errorf("unexpected batch: %+v", batch)
	}
	if batch.PurchasedAt == nil || !batch.PurchasedAt.Equal(purchased) {
		t.Errorf("unexpected purchase date: %v", batch.PurchasedAt)
	}

	batch, err = AdjustSeedBatch(ctx, database, owner, batch.ID, -200)
	if err != nil {
		t.Fatalf("AdjustSeedBatch: %v", err)
	}
	if batch.QuantityGrams != 300 {
		t.Errorf("expected 300 g, got %v", batch.QuantityGrams)
	}

	_, err = AdjustSeedBatch(ctx, database, owner, batch.ID, -301)
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for overdraw, got %v", err)
	}
	if got, _ := GetSeedBatch(ctx, database, owner, batch.ID); got.QuantityGrams != 300 {
		t.Errorf("expected stock unchanged after overdraw, got %v", got.QuantityGrams)
	}

	if _, err := AdjustSeedBatch(ctx, database, owner, 999, 10); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSeedBatchRequiresOwnVariety(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := newGrower(t, database, "alice")
	bob := newGrower(t, database, "bob")
	v := newVariety(t, database, alice, "Pea", 0, 10)

	_, err := CreateSeedBatch(ctx, database, bob, model.SeedBatchInput{VarietyID: v.ID, QuantityGrams: 100})
	if !errors.Is(err, model.ErrReferentialIntegrity) {
		t.Errorf("expected ErrReferentialIntegrity, got %v", err)
	}
}

func TestListSeedBatches(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newGrower(t, database, "grower")
	pea := newVariety(t, database, owner, "Pea", 0, 10)
	basil := newVariety(t, database, owner, "Basil", 3, 14)

	CreateSeedBatch(ctx, database, owner, model.SeedBatchInput{VarietyID: pea.ID, QuantityGrams: 100})
	CreateSeedBatch(ctx, database, owner, model.SeedBatchInput{VarietyID: basil.ID, QuantityGrams: 50})

	all, err := ListSeedBatches(ctx, database, owner, 0)
	if err != nil {
		t.Fatalf("ListSeedBatches: %v", err)
	}
	if len(all) != 2 || all[0].VarietyName != "Basil" {
		t.Errorf("expected batches sorted by variety name, got %+v", all)
	}

	peas, _ := ListSeedBatches(ctx, database, owner, pea.ID)
	if len(peas) != 1 || peas[0].QuantityGrams != 100 {
		t.Errorf("expected one pea batch, got %+v", peas)
	}
}
