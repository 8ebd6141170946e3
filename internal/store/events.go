package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/kalcki/internal/model"
)

// recordEvent appends a lifecycle step to the tray history. from is empty for
// the creation event.
func recordEvent(ctx context.Context, q querier, trayID int64, from, to, note string, userID int64, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO tray_events (tray_id, from_status, to_status, note, occurred_at, user_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		trayID, nullString(from), to, nullString(note), at, userID,
	)
	if err != nil {
		return fmt.Errorf("recording tray event: %w", err)
	}
	return nil
}

const eventQuery = `SELECT e.id, e.tray_id, e.from_status, e.to_status, e.note, e.occurred_at, e.user_id,
	       t.batch_id, v.name, COALESCE(u.username, '')
	FROM tray_events e
	JOIN trays t ON t.id = e.tray_id
	JOIN varieties v ON v.id = t.variety_id
	LEFT JOIN users u ON u.id = e.user_id`

// ListTrayEvents returns the history of one tray, newest first.
func ListTrayEvents(ctx context.Context, db *sql.DB, ownerID, trayID int64) ([]model.TrayEvent, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trays WHERE id = ? AND owner_id = ?`, trayID, ownerID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking tray: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("tray %d: %w", trayID, model.ErrNotFound)
	}

	rows, err := db.QueryContext(ctx,
		eventQuery+` WHERE e.tray_id = ? AND t.owner_id = ? ORDER BY e.occurred_at DESC, e.id DESC`,
		trayID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tray events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecentEvents returns the owner's latest tray events across all trays.
func ListRecentEvents(ctx context.Context, db *sql.DB, ownerID int64, limit int) ([]model.TrayEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.QueryContext(ctx,
		eventQuery+` WHERE t.owner_id = ? ORDER BY e.occurred_at DESC, e.id DESC LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]model.TrayEvent, error) {
	events := []model.TrayEvent{}
	for rows.Next() {
		var e model.TrayEvent
		var from, note sql.NullString
		if err := rows.Scan(&e.ID, &e.TrayID, &from, &e.ToStatus, &note, &e.OccurredAt, &e.UserID,
			&e.BatchID, &e.VarietyName, &e.Username); err != nil {
			return nil, fmt.Errorf("scanning tray event: %w", err)
		}
		e.FromStatus = from.String
		e.Note = note.String
		events = append(events, e)
	}
	return events, rows.Err()
}
