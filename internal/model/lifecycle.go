package model

import (
	"fmt"
	"time"
)

// transitions lists the forward moves allowed from each non-terminal status.
// Discarding is handled separately since it is allowed from all of them.
var transitions = map[string][]string{
	StatusSeeding:  {StatusBlackout},
	StatusBlackout: {StatusGrowing},
	StatusGrowing:  {StatusReady},
	StatusReady:    {StatusHarvested},
}

// ValidStatus reports whether status is a known tray status.
func ValidStatus(status string) bool {
	switch status {
	case StatusSeeding, StatusBlackout, StatusGrowing, StatusReady, StatusHarvested, StatusDiscarded:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return status == StatusHarvested || status == StatusDiscarded
}

// CheckTransition validates a status change for a tray planned with the given
// number of blackout days. Trays without a blackout stage may go from seeding
// straight to growing. The returned error wraps ErrInvalidTransition.
func CheckTransition(from, to string, blackoutDays int) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if IsTerminal(from) {
		return fmt.Errorf("%w: tray is already %s", ErrInvalidTransition, from)
	}
	if from == to {
		return fmt.Errorf("%w: tray is already %s", ErrInvalidTransition, from)
	}
	if to == StatusDiscarded {
		return nil
	}
	if from == StatusSeeding && to == StatusGrowing && blackoutDays == 0 {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

// NextStatuses lists the statuses reachable from status.
func NextStatuses(status string, blackoutDays int) []string {
	if IsTerminal(status) {
		return nil
	}
	next := append([]string(nil), transitions[status]...)
	if status == StatusSeeding && blackoutDays == 0 {
		next = append(next, StatusGrowing)
	}
	return append(next, StatusDiscarded)
}

// StatusChange is a requested lifecycle step. Harvest results are only
// accepted together with a move to harvested.
type StatusChange struct {
	Version      int64      `json:"version"`
	Status       string     `json:"status"`
	Note         string     `json:"note"`
	YieldWeight  *float64   `json:"yieldWeight"`
	YieldQuality *int       `json:"yieldQuality"`
	HarvestDate  *time.Time `json:"actualHarvestDate"`
}

// Validate checks the harvest fields against the target status.
func (c *StatusChange) Validate() error {
	verr := &ValidationError{}
	if c.Status == "" {
		verr.Add("status", "required")
	}
	if c.Status == StatusHarvested {
		if c.YieldWeight == nil {
			verr.Add("yieldWeight", "required for harvest")
		} else if *c.YieldWeight < 0 {
			verr.Add("yieldWeight", "must not be negative")
		}
		if c.YieldQuality == nil {
			verr.Add("yieldQuality", "required for harvest")
		} else if *c.YieldQuality < 1 || *c.YieldQuality > 10 {
			verr.Add("yieldQuality", "must be between 1 and 10")
		}
	} else {
		if c.YieldWeight != nil {
			verr.Add("yieldWeight", "only allowed when harvesting")
		}
		if c.YieldQuality != nil {
			verr.Add("yieldQuality", "only allowed when harvesting")
		}
		if c.HarvestDate != nil {
			verr.Add("actualHarvestDate", "only allowed when harvesting")
		}
	}
	return verr.Err()
}
