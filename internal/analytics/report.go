package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/erazemk/kalcki/internal/model"
)

// TrayFinancials is the outcome of one finished tray.
type TrayFinancials struct {
	TrayID      int64     `json:"trayId"`
	BatchID     string    `json:"batchId,omitempty"`
	VarietyID   int64     `json:"varietyId"`
	VarietyName string    `json:"varietyName"`
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
	Yield       float64   `json:"yield"`
	Quality     *int      `json:"quality"`
	Revenue     float64   `json:"revenue"`
	SeedCost    float64   `json:"seedCost"`
	OtherCosts  float64   `json:"otherCosts"`
	Margin      float64   `json:"margin"`
}

// VarietyRollup sums the finished trays of one variety.
type VarietyRollup struct {
	VarietyID      int64   `json:"varietyId"`
	VarietyName    string  `json:"varietyName"`
	Harvested      int     `json:"harvested"`
	Discarded      int     `json:"discarded"`
	Yield          float64 `json:"yield"`
	AverageQuality float64 `json:"averageQuality"`
	Revenue        float64 `json:"revenue"`
	SeedCost       float64 `json:"seedCost"`
	OtherCosts     float64 `json:"otherCosts"`
	Margin         float64 `json:"margin"`

	qualitySum, rated int
}

// Totals sums every finished tray in the report.
type Totals struct {
	Harvested  int     `json:"harvested"`
	Discarded  int     `json:"discarded"`
	Yield      float64 `json:"yield"`
	Revenue    float64 `json:"revenue"`
	SeedCost   float64 `json:"seedCost"`
	OtherCosts float64 `json:"otherCosts"`
	Margin     float64 `json:"margin"`
}

// Report is the production and financial report over a window.
type Report struct {
	Window    Window           `json:"window"`
	Trays     []TrayFinancials `json:"trays"`
	Varieties []VarietyRollup  `json:"varieties"`
	Totals    Totals           `json:"totals"`
}

// TrayOutcome computes the financials of one tray from its variety's prices.
//
//	revenue  = yieldWeight * pricePerGram
//	seedCost = seedAmount / 1000 * costPerKg
//	margin   = revenue - seedCost - otherCostsPerTray
//
// Discarded trays carry their costs with no revenue. Values are not rounded.
func TrayOutcome(t *model.Tray, v *model.Variety) TrayFinancials {
	f := TrayFinancials{
		TrayID:      t.ID,
		BatchID:     t.BatchID,
		VarietyID:   v.ID,
		VarietyName: v.Name,
		Status:      t.Status,
		Quality:     t.YieldQuality,
		SeedCost:    t.SeedAmount / 1000 * v.CostPerKg,
		OtherCosts:  v.OtherCostsPerTray,
	}
	if t.Status == model.StatusHarvested && t.YieldWeight != nil {
		f.Yield = *t.YieldWeight
		f.Revenue = f.Yield * v.PricePerGram
	}
	f.Margin = f.Revenue - f.SeedCost - f.OtherCosts
	return f
}

// reportDate is the date a finished tray is reported under: the harvest date,
// or the seeding date for discarded trays.
func reportDate(t *model.Tray) (time.Time, bool) {
	switch t.Status {
	case model.StatusHarvested:
		if t.ActualHarvestDate == nil {
			return time.Time{}, false
		}
		return *t.ActualHarvestDate, true
	case model.StatusDiscarded:
		return t.SeedingDate, true
	}
	return time.Time{}, false
}

// BuildReport computes per-tray financials for every finished tray in the
// window and rolls them up per variety. Every tray must reference one of the
// given varieties; a dangling reference fails with ErrReferentialIntegrity
// since its costs cannot be computed. Money is rounded to 2 decimals after
// summing.
func BuildReport(trays []model.Tray, varieties []model.Variety, w Window) (*Report, error) {
	byID := make(map[int64]*model.Variety, len(varieties))
	for i := range varieties {
		byID[varieties[i].ID] = &varieties[i]
	}

	report := &Report{Window: w, Trays: []TrayFinancials{}, Varieties: []VarietyRollup{}}
	rollups := map[int64]*VarietyRollup{}

	for i := range trays {
		t := &trays[i]
		date, finished := reportDate(t)
		if !finished || !w.Contains(date) {
			continue
		}
		v, ok := byID[t.VarietyID]
		if !ok {
			return nil, fmt.Errorf("tray %d references unknown variety %d: %w", t.ID, t.VarietyID, model.ErrReferentialIntegrity)
		}

		f := TrayOutcome(t, v)
		f.Date = date

		r, ok := rollups[v.ID]
		if !ok {
			r = &VarietyRollup{VarietyID: v.ID, VarietyName: v.Name}
			rollups[v.ID] = r
		}
		if t.Status == model.StatusHarvested {
			r.Harvested++
			report.Totals.Harvested++
			if t.YieldQuality != nil {
				r.qualitySum += *t.YieldQuality
				r.rated++
			}
		} else {
			r.Discarded++
			report.Totals.Discarded++
		}
		r.Yield += f.Yield
		r.Revenue += f.Revenue
		r.SeedCost += f.SeedCost
		r.OtherCosts += f.OtherCosts
		r.Margin += f.Margin

		report.Totals.Yield += f.Yield
		report.Totals.Revenue += f.Revenue
		report.Totals.SeedCost += f.SeedCost
		report.Totals.OtherCosts += f.OtherCosts
		report.Totals.Margin += f.Margin

		report.Trays = append(report.Trays, f)
	}

	for i := range report.Trays {
		roundFinancials(&report.Trays[i])
	}
	slices.SortStableFunc(report.Trays, func(a, b TrayFinancials) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.TrayID, b.TrayID)
	})

	for _, r := range rollups {
		if r.rated > 0 {
			r.AverageQuality = round2(float64(r.qualitySum) / float64(r.rated))
		}
		r.Yield = round2(r.Yield)
		r.Revenue = round2(r.Revenue)
		r.SeedCost = round2(r.SeedCost)
		r.OtherCosts = round2(r.OtherCosts)
		r.Margin = round2(r.Margin)
		report.Varieties = append(report.Varieties, *r)
	}
	slices.SortFunc(report.Varieties, func(a, b VarietyRollup) int {
		if c := strings.Compare(strings.ToLower(a.VarietyName), strings.ToLower(b.VarietyName)); c != 0 {
			return c
		}
		return cmp.Compare(a.VarietyID, b.VarietyID)
	})

	t := &report.Totals
	t.Yield = round2(t.Yield)
	t.Revenue = round2(t.Revenue)
	t.SeedCost = round2(t.SeedCost)
	t.OtherCosts = round2(t.OtherCosts)
	t.Margin = round2(t.Margin)

	return report, nil
}

func roundFinancials(f *TrayFinancials) {
	f.Yield = round2(f.Yield)
	f.Revenue = round2(f.Revenue)
	f.SeedCost = round2(f.SeedCost)
	f.OtherCosts = round2(f.OtherCosts)
	f.Margin = round2(f.Margin)
}
