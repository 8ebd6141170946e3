package model

import "time"

// TrayEvent records a tray lifecycle step.
type TrayEvent struct {
	ID         int64     `json:"id"`
	TrayID     int64     `json:"trayId"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	UserID     *int64    `json:"userId,omitempty"`

	// Joined fields (not always populated).
	BatchID     string `json:"batchId,omitempty"`
	VarietyName string `json:"varietyName,omitempty"`
	Username    string `json:"username,omitempty"`
}
