package model

import (
	"math"
	"strings"
	"time"
)

// Day is the unit of all tray date arithmetic.
const Day = 24 * time.Hour

// Tray statuses, in lifecycle order.
const (
	StatusSeeding   = "seeding"
	StatusBlackout  = "blackout"
	StatusGrowing   = "growing"
	StatusReady     = "ready"
	StatusHarvested = "harvested"
	StatusDiscarded = "discarded"
)

// Tray sizes.
const (
	TraySize1020   = "10x20"
	TraySize2020   = "20x20"
	TraySizeCustom = "custom"
)

// Issue types.
const (
	IssuePest          = "pest"
	IssueDisease       = "disease"
	IssueEnvironmental = "environmental"
	IssueOther         = "other"
)

// DefaultTrayArea returns the area in square inches for a standard tray size,
// or 0 for custom trays.
func DefaultTrayArea(size string) float64 {
	switch size {
	case TraySize1020:
		return 200
	case TraySize2020:
		return 400
	}
	return 0
}

// Tray is one physical batch of a variety moving through a growth cycle.
type Tray struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"ownerId"`
	VarietyID   int64  `json:"varietyId"`
	BatchID     string `json:"batchId"`
	SeedBatchID *int64 `json:"seedBatchId,omitempty"`

	SeedAmount float64 `json:"seedAmount"`
	TraySize   string  `json:"traySize"`
	TrayArea   float64 `json:"trayArea"`

	Status      string `json:"status"`
	Location    string `json:"location,omitempty"`
	GrowingArea string `json:"growingArea,omitempty"`
	Notes       string `json:"notes,omitempty"`

	SeedingDate         time.Time  `json:"seedingDate"`
	BlackoutEndDate     *time.Time `json:"blackoutEndDate"`
	ExpectedHarvestDate *time.Time `json:"expectedHarvestDate"`
	ActualHarvestDate   *time.Time `json:"actualHarvestDate"`

	// Variety timing captured when the expected dates were derived.
	PlannedBlackoutDays int `json:"plannedBlackoutDays"`
	PlannedGrowingDays  int `json:"plannedGrowingDays"`

	YieldWeight  *float64 `json:"yieldWeight"`
	YieldQuality *int     `json:"yieldQuality"`

	Issues []Issue `json:"issues"`

	PhotoMime  string    `json:"photoMime,omitempty"`
	IsArchived bool      `json:"isArchived"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Joined fields (not always populated).
	VarietyName string `json:"varietyName,omitempty"`
}

// Issue is one entry of a tray's issue log.
type Issue struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Description     string     `json:"description"`
	Severity        int        `json:"severity"`
	ReportDate      time.Time  `json:"reportDate"`
	Resolved        bool       `json:"resolved"`
	ResolutionDate  *time.Time `json:"resolutionDate,omitempty"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
}

// AgeInDays is the number of started days between seeding and now.
func (t *Tray) AgeInDays(now time.Time) int {
	return ceilDays(now.Sub(t.SeedingDate))
}

// DaysUntilHarvest returns nil without an expected harvest date, 0 once it has
// passed, and the number of started days remaining otherwise.
func (t *Tray) DaysUntilHarvest(now time.Time) *int {
	if t.ExpectedHarvestDate == nil {
		return nil
	}
	days := DaysUntil(*t.ExpectedHarvestDate, now)
	return &days
}

// DaysUntil returns 0 once date has passed and the number of started days
// remaining otherwise.
func DaysUntil(date, now time.Time) int {
	if now.After(date) {
		return 0
	}
	return ceilDays(date.Sub(now))
}

// Terminal reports whether the tray can no longer change status.
func (t *Tray) Terminal() bool {
	return IsTerminal(t.Status)
}

// Schedule derives the blackout end and expected harvest dates from the
// seeding date and the given variety timing, and records that timing on the
// tray. Later variety edits do not affect a tray unless Schedule is called again.
func (t *Tray) Schedule(blackoutDays, growingDays int) {
	t.PlannedBlackoutDays = blackoutDays
	t.PlannedGrowingDays = growingDays

	t.BlackoutEndDate = nil
	if blackoutDays > 0 {
		end := t.SeedingDate.AddDate(0, 0, blackoutDays)
		t.BlackoutEndDate = &end
	}
	harvest := t.SeedingDate.AddDate(0, 0, blackoutDays+growingDays)
	t.ExpectedHarvestDate = &harvest
}

// FindIssue returns the index of the issue with the given id, or -1.
func (t *Tray) FindIssue(id string) int {
	for i := range t.Issues {
		if t.Issues[i].ID == id {
			return i
		}
	}
	return -1
}

func ceilDays(d time.Duration) int {
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(float64(d) / float64(Day)))
}

// TrayInput carries the fields accepted when creating a tray.
type TrayInput struct {
	VarietyID   int64      `json:"varietyId"`
	BatchID     string     `json:"batchId"`
	SeedBatchID *int64     `json:"seedBatchId"`
	SeedAmount  float64    `json:"seedAmount"`
	TraySize    string     `json:"traySize"`
	TrayArea    float64    `json:"trayArea"`
	Location    string     `json:"location"`
	GrowingArea string     `json:"growingArea"`
	Notes       string     `json:"notes"`
	SeedingDate *time.Time `json:"seedingDate"`
}

// Validate normalises the input and reports every violation.
func (in *TrayInput) Validate() error {
	verr := &ValidationError{}

	if in.VarietyID <= 0 {
		verr.Add("varietyId", "required")
	}
	in.BatchID = strings.TrimSpace(in.BatchID)
	nonNegative(verr, "seedAmount", in.SeedAmount)
	if in.SeedingDate == nil || in.SeedingDate.IsZero() {
		verr.Add("seedingDate", "required")
	}

	if in.TraySize == "" {
		in.TraySize = TraySize1020
	}
	switch in.TraySize {
	case TraySize1020, TraySize2020:
		if in.TrayArea == 0 {
			in.TrayArea = DefaultTrayArea(in.TraySize)
		}
		if in.TrayArea < 0 {
			verr.Add("trayArea", "must be positive")
		}
	case TraySizeCustom:
		if in.TrayArea <= 0 {
			verr.Add("trayArea", "required for custom trays")
		}
	default:
		verr.Add("traySize", "must be one of 10x20, 20x20, custom")
	}

	return verr.Err()
}

// TrayUpdate carries the editable, non-lifecycle tray fields.
type TrayUpdate struct {
	Version     int64   `json:"version"`
	BatchID     string  `json:"batchId"`
	SeedAmount  float64 `json:"seedAmount"`
	Location    string  `json:"location"`
	GrowingArea string  `json:"growingArea"`
	Notes       string  `json:"notes"`
}

// Validate reports every violation.
func (u *TrayUpdate) Validate() error {
	verr := &ValidationError{}
	u.BatchID = strings.TrimSpace(u.BatchID)
	nonNegative(verr, "seedAmount", u.SeedAmount)
	return verr.Err()
}

// IssueInput carries a new issue report.
type IssueInput struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Severity    int        `json:"severity"`
	ReportDate  *time.Time `json:"reportDate"`
}

// Validate reports every violation.
func (in *IssueInput) Validate() error {
	verr := &ValidationError{}
	switch in.Type {
	case IssuePest, IssueDisease, IssueEnvironmental, IssueOther:
	default:
		verr.Add("type", "must be one of pest, disease, environmental, other")
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		verr.Add("description", "required")
	}
	if in.Severity < 1 || in.Severity > 5 {
		verr.Add("severity", "must be between 1 and 5")
	}
	return verr.Err()
}
