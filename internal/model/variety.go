package model

import (
	"strings"
	"time"
)

// Band is a min/optimal/max environment range. Unset bounds are nil.
type Band struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Optimal *float64 `json:"optimal,omitempty" yaml:"optimal,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Variety is a species or cultivar profile: growth timing, environment targets
// and economics.
type Variety struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"ownerId"`
	Name    string `json:"name"`

	GerminationDays float64 `json:"germinationDays"`
	BlackoutDays    int     `json:"blackoutDays"`
	GrowingDays     int     `json:"growingDays"`
	SeedDensity     float64 `json:"seedDensity"`
	SoakHours       float64 `json:"soakHours"`

	Temperature Band `json:"temperature"`
	Humidity    Band `json:"humidity"`

	ExpectedYieldPerTray float64 `json:"expectedYieldPerTray"`
	CostPerKg            float64 `json:"costPerKg"`
	PricePerGram         float64 `json:"pricePerGram"`
	OtherCostsPerTray    float64 `json:"otherCostsPerTray"`

	Notes     string    `json:"notes,omitempty"`
	IsActive  bool      `json:"isActive"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VarietyInput carries the writable variety fields. Required numeric fields are
// pointers so a missing value can be told apart from zero.
type VarietyInput struct {
	Name string `json:"name" yaml:"name"`

	GerminationDays *float64 `json:"germinationDays" yaml:"germination_days"`
	BlackoutDays    *int     `json:"blackoutDays" yaml:"blackout_days"`
	GrowingDays     *int     `json:"growingDays" yaml:"growing_days"`
	SeedDensity     *float64 `json:"seedDensity" yaml:"seed_density"`
	SoakHours       float64  `json:"soakHours" yaml:"soak_hours"`

	Temperature Band `json:"temperature" yaml:"temperature"`
	Humidity    Band `json:"humidity" yaml:"humidity"`

	ExpectedYieldPerTray float64 `json:"expectedYieldPerTray" yaml:"expected_yield_per_tray"`
	CostPerKg            float64 `json:"costPerKg" yaml:"cost_per_kg"`
	PricePerGram         float64 `json:"pricePerGram" yaml:"price_per_gram"`
	OtherCostsPerTray    float64 `json:"otherCostsPerTray" yaml:"other_costs_per_tray"`

	Notes string `json:"notes" yaml:"notes"`
}

// Validate checks the input and returns a *ValidationError listing every
// violation, or nil.
func (in *VarietyInput) Validate() error {
	verr := &ValidationError{}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		verr.Add("name", "required")
	}

	requireNonNegative(verr, "germinationDays", in.GerminationDays)
	requireNonNegativeInt(verr, "blackoutDays", in.BlackoutDays)
	requireNonNegativeInt(verr, "growingDays", in.GrowingDays)
	requireNonNegative(verr, "seedDensity", in.SeedDensity)

	nonNegative(verr, "soakHours", in.SoakHours)
	nonNegative(verr, "expectedYieldPerTray", in.ExpectedYieldPerTray)
	nonNegative(verr, "costPerKg", in.CostPerKg)
	nonNegative(verr, "pricePerGram", in.PricePerGram)
	nonNegative(verr, "otherCostsPerTray", in.OtherCostsPerTray)

	checkBand(verr, "temperature", in.Temperature)
	checkBand(verr, "humidity", in.Humidity)
	for _, b := range []struct {
		name string
		v    *float64
	}{
		{"humidity.min", in.Humidity.Min},
		{"humidity.optimal", in.Humidity.Optimal},
		{"humidity.max", in.Humidity.Max},
	} {
		if b.v != nil && (*b.v < 0 || *b.v > 100) {
			verr.Add(b.name, "must be between 0 and 100")
		}
	}

	return verr.Err()
}

// Apply copies validated input onto v.
func (in *VarietyInput) Apply(v *Variety) {
	v.Name = in.Name
	v.GerminationDays = deref(in.GerminationDays)
	v.BlackoutDays = derefInt(in.BlackoutDays)
	v.GrowingDays = derefInt(in.GrowingDays)
	v.SeedDensity = deref(in.SeedDensity)
	v.SoakHours = in.SoakHours
	v.Temperature = in.Temperature
	v.Humidity = in.Humidity
	v.ExpectedYieldPerTray = in.ExpectedYieldPerTray
	v.CostPerKg = in.CostPerKg
	v.PricePerGram = in.PricePerGram
	v.OtherCostsPerTray = in.OtherCostsPerTray
	v.Notes = in.Notes
}

// checkBand enforces min <= optimal <= max among the bounds that are set.
func checkBand(verr *ValidationError, name string, b Band) {
	if b.Min != nil && b.Optimal != nil && *b.Min > *b.Optimal {
		verr.Add(name+".optimal", "must not be below min")
	}
	if b.Optimal != nil && b.Max != nil && *b.Optimal > *b.Max {
		verr.Add(name+".max", "must not be below optimal")
	}
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		verr.Add(name+".max", "must not be below min")
	}
}

func requireNonNegative(verr *ValidationError, field string, v *float64) {
	if v == nil {
		verr.Add(field, "required")
		return
	}
	nonNegative(verr, field, *v)
}

func requireNonNegativeInt(verr *ValidationError, field string, v *int) {
	if v == nil {
		verr.Add(field, "required")
		return
	}
	if *v < 0 {
		verr.Add(field, "must not be negative")
	}
}

func nonNegative(verr *ValidationError, field string, v float64) {
	if v < 0 {
		verr.Add(field, "must not be negative")
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
