package model

import (
	"errors"
	"testing"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from         string
		to           string
		blackoutDays int
		wantErr      bool
	}{
		{StatusSeeding, StatusBlackout, 3, false},
		{StatusBlackout, StatusGrowing, 3, false},
		{StatusGrowing, StatusReady, 3, false},
		{StatusReady, StatusHarvested, 3, false},

		// Skipping blackout only without a blackout stage.
		{StatusSeeding, StatusGrowing, 0, false},
		{StatusSeeding, StatusGrowing, 2, true},

		// Discarding from every non-terminal status.
		{StatusSeeding, StatusDiscarded, 3, false},
		{StatusBlackout, StatusDiscarded, 3, false},
		{StatusGrowing, StatusDiscarded, 3, false},
		{StatusReady, StatusDiscarded, 3, false},

		// Skips and reversals.
		{StatusSeeding, StatusReady, 0, true},
		{StatusGrowing, StatusHarvested, 3, true},
		{StatusReady, StatusGrowing, 3, true},
		{StatusBlackout, StatusSeeding, 3, true},

		// Terminal statuses.
		{StatusHarvested, StatusDiscarded, 3, true},
		{StatusDiscarded, StatusSeeding, 3, true},
		{StatusDiscarded, StatusDiscarded, 3, true},

		// Same status and unknown target.
		{StatusGrowing, StatusGrowing, 3, true},
		{StatusGrowing, "wilted", 3, true},
	}

	for _, tt := range tests {
		err := CheckTransition(tt.from, tt.to, tt.blackoutDays)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckTransition(%q, %q, %d) error = %v, wantErr %v", tt.from, tt.to, tt.blackoutDays, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("CheckTransition(%q, %q) error %v does not wrap ErrInvalidTransition", tt.from, tt.to, err)
		}
	}
}

func TestNextStatuses(t *testing.T) {
	got := NextStatuses(StatusSeeding, 0)
	want := []string{StatusBlackout, StatusGrowing, StatusDiscarded}
	if len(got) != len(want) {
		t.Fatalf("NextStatuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NextStatuses[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if next := NextStatuses(StatusHarvested, 0); next != nil {
		t.Errorf("expected no statuses after harvest, got %v", next)
	}
}

func TestStatusChangeValidate(t *testing.T) {
	weight := 150.0
	quality := 8
	badQuality := 11

	tests := []struct {
		name    string
		change  StatusChange
		wantErr bool
	}{
		{"harvest with results", StatusChange{Status: StatusHarvested, YieldWeight: &weight, YieldQuality: &quality}, false},
		{"harvest without weight", StatusChange{Status: StatusHarvested, YieldQuality: &quality}, true},
		{"harvest without quality", StatusChange{Status: StatusHarvested, YieldWeight: &weight}, true},
		{"harvest quality out of range", StatusChange{Status: StatusHarvested, YieldWeight: &weight, YieldQuality: &badQuality}, true},
		{"plain move", StatusChange{Status: StatusGrowing}, false},
		{"yield on plain move", StatusChange{Status: StatusReady, YieldWeight: &weight}, true},
		{"missing status", StatusChange{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.change.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
