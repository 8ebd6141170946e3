// Package analytics derives schedule, performance and financial views from a
// set of trays and their varieties. Every function is pure; callers load the
// trays (already filtered by owner, variety, status and archive flag) and pass
// the evaluation time explicitly.
package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/erazemk/kalcki/internal/model"
)

// Window is a half-open date range [From, To). A nil bound is unbounded.
type Window struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains reports whether t lies within the window.
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && !t.Before(*w.To) {
		return false
	}
	return true
}

// round2 rounds money and weights to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percent returns part/total as a percentage, 0 when total is 0.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

// Schedule event types.
const (
	EventBlackoutEnd = "blackout_end"
	EventHarvest     = "harvest"
)

// ScheduleEvent is an upcoming (or overdue) action on a tray.
type ScheduleEvent struct {
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	TrayID      int64     `json:"trayId"`
	BatchID     string    `json:"batchId,omitempty"`
	VarietyID   int64     `json:"varietyId"`
	VarietyName string    `json:"varietyName,omitempty"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	DaysUntil   int       `json:"daysUntil"`
	Overdue     bool      `json:"overdue"`
}

// Schedule projects the pending actions of the given trays: the end of
// blackout for trays not yet growing, and the harvest for every active tray.
// Events are ordered by date, then tray ID, and limited to the window.
func Schedule(trays []model.Tray, w Window, now time.Time) []ScheduleEvent {
	events := []ScheduleEvent{}
	add := func(t *model.Tray, kind string, date time.Time) {
		if !w.Contains(date) {
			return
		}
		events = append(events, ScheduleEvent{
			Date:        date,
			Type:        kind,
			TrayID:      t.ID,
			BatchID:     t.BatchID,
			VarietyID:   t.VarietyID,
			VarietyName: t.VarietyName,
			Status:      t.Status,
			Location:    t.Location,
			DaysUntil:   model.DaysUntil(date, now),
			Overdue:     now.After(date),
		})
	}

	for i := range trays {
		t := &trays[i]
		if t.Terminal() {
			continue
		}
		if t.BlackoutEndDate != nil && (t.Status == model.StatusSeeding || t.Status == model.StatusBlackout) {
			add(t, EventBlackoutEnd, *t.BlackoutEndDate)
		}
		if t.ExpectedHarvestDate != nil {
			add(t, EventHarvest, *t.ExpectedHarvestDate)
		}
	}

	slices.SortStableFunc(events, func(a, b ScheduleEvent) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.TrayID, b.TrayID)
	})
	return events
}

// PerformancePoint is one harvested tray in the yield/quality series.
type PerformancePoint struct {
	Date        string  `json:"date"`
	Yield       float64 `json:"yield"`
	Quality     int     `json:"quality"`
	TrayID      int64   `json:"trayId"`
	VarietyName string  `json:"varietyName,omitempty"`
}

// Performance returns the yield and quality of each harvested tray whose
// harvest date lies in the window, oldest first.
func Performance(trays []model.Tray, w Window) []PerformancePoint {
	type dated struct {
		at    time.Time
		point PerformancePoint
	}

	var rows []dated
	for i := range trays {
		t := &trays[i]
		if t.Status != model.StatusHarvested || t.ActualHarvestDate == nil || !w.Contains(*t.ActualHarvestDate) {
			continue
		}
		p := PerformancePoint{
			Date:        t.ActualHarvestDate.UTC().Format(time.DateOnly),
			TrayID:      t.ID,
			VarietyName: t.VarietyName,
		}
		if t.YieldWeight != nil {
			p.Yield = *t.YieldWeight
		}
		if t.YieldQuality != nil {
			p.Quality = *t.YieldQuality
		}
		rows = append(rows, dated{at: *t.ActualHarvestDate, point: p})
	}

	slices.SortStableFunc(rows, func(a, b dated) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return cmp.Compare(a.point.TrayID, b.point.TrayID)
	})

	points := make([]PerformancePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, r.point)
	}
	return points
}

// Summary counts trays per status and aggregates harvest outcomes.
type Summary struct {
	TotalTrays     int            `json:"totalTrays"`
	ActiveTrays    int            `json:"activeTrays"`
	ByStatus       map[string]int `json:"byStatus"`
	TotalYield     float64        `json:"totalYield"`
	AverageQuality float64        `json:"averageQuality"`
	SuccessRate    float64        `json:"successRate"`
}

// Summarize aggregates the given trays. The success rate is the share of
// harvested trays among finished (harvested or discarded) ones, in percent.
func Summarize(trays []model.Tray) Summary {
	s := Summary{
		ByStatus: map[string]int{
			model.StatusSeeding:   0,
			model.StatusBlackout:  0,
			model.StatusGrowing:   0,
			model.StatusReady:     0,
			model.StatusHarvested: 0,
			model.StatusDiscarded: 0,
		},
	}

	var qualitySum, rated int
	for i := range trays {
		t := &trays[i]
		s.TotalTrays++
		s.ByStatus[t.Status]++
		if !t.Terminal() {
			s.ActiveTrays++
		}
		if t.Status != model.StatusHarvested {
			continue
		}
		if t.YieldWeight != nil {
			s.TotalYield += *t.YieldWeight
		}
		if t.YieldQuality != nil {
			qualitySum += *t.YieldQuality
			rated++
		}
	}

	s.TotalYield = round2(s.TotalYield)
	if rated > 0 {
		s.AverageQuality = round2(float64(qualitySum) / float64(rated))
	}
	harvested := s.ByStatus[model.StatusHarvested]
	s.SuccessRate = percent(harvested, harvested+s.ByStatus[model.StatusDiscarded])
	return s
}
