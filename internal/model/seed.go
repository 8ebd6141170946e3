package model

import (
	"strings"
	"time"
)

// SeedBatch is a purchased lot of seed for one variety.
type SeedBatch struct {
	ID            int64      `json:"id"`
	OwnerID       int64      `json:"ownerId"`
	VarietyID     int64      `json:"varietyId"`
	Supplier      string     `json:"supplier,omitempty"`
	LotNumber     string     `json:"lotNumber,omitempty"`
	QuantityGrams float64    `json:"quantityGrams"`
	PurchasedAt   *time.Time `json:"purchasedAt,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`

	// Joined fields (not always populated).
	VarietyName string `json:"varietyName,omitempty"`
}

// SeedBatchInput carries a new seed batch.
type SeedBatchInput struct {
	VarietyID     int64      `json:"varietyId"`
	Supplier      string     `json:"supplier"`
	LotNumber     string     `json:"lotNumber"`
	QuantityGrams float64    `json:"quantityGrams"`
	PurchasedAt   *time.Time `json:"purchasedAt"`
	Notes         string     `json:"notes"`
}

// Validate reports every violation.
func (in *SeedBatchInput) Validate() error {
	verr := &ValidationError{}
	if in.VarietyID <= 0 {
		verr.Add("varietyId", "required")
	}
	in.Supplier = strings.TrimSpace(in.Supplier)
	in.LotNumber = strings.TrimSpace(in.LotNumber)
	nonNegative(verr, "quantityGrams", in.QuantityGrams)
	return verr.Err()
}
