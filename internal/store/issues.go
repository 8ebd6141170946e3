package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/kalcki/internal/model"
)

// loadIssues returns issues matching where, grouped by tray and kept in
// report order. where may reference the issue (i) and its tray (t).
func loadIssues(ctx context.Context, q querier, where string, args ...any) (map[int64][]model.Issue, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT i.tray_id, i.id, i.type, i.description, i.severity, i.report_date,
		        i.resolved, i.resolution_date, i.resolution_notes
		 FROM tray_issues i
		 JOIN trays t ON t.id = i.tray_id
		 WHERE `+where+`
		 ORDER BY i.tray_id, i.position`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	issues := make(map[int64][]model.Issue)
	for rows.Next() {
		var trayID int64
		var issue model.Issue
		var notes sql.NullString
		if err := rows.Scan(&trayID, &issue.ID, &issue.Type, &issue.Description, &issue.Severity, &issue.ReportDate,
			&issue.Resolved, &issue.ResolutionDate, &notes); err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		issue.ResolutionNotes = notes.String
		issues[trayID] = append(issues[trayID], issue)
	}
	return issues, rows.Err()
}

// AddIssue appends an issue to the tray's log. The report date defaults to now.
func AddIssue(ctx context.Context, db *sql.DB, ownerID, trayID, version int64, in model.IssueInput, now time.Time) (*model.Tray, *model.Issue, error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	issueID := uuid.NewString()
	reported := now.UTC()
	if in.ReportDate != nil {
		reported = in.ReportDate.UTC()
	}

	err := inTx(ctx, db, func(tx *sql.Tx) error {
		if err := versionedUpdate(ctx, tx, "trays", ownerID, trayID, version, ""); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO tray_issues (id, tray_id, position, type, description, severity, report_date)
			 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM tray_issues WHERE tray_id = ?), ?, ?, ?, ?)`,
			issueID, trayID, trayID, in.Type, in.Description, in.Severity, reported,
		)
		if err != nil {
			return fmt.Errorf("adding issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	tray, err := GetTray(ctx, db, ownerID, trayID)
	if err != nil {
		return nil, nil, err
	}
	issue := tray.Issues[tray.FindIssue(issueID)]
	return tray, &issue, nil
}

// ResolveIssue marks one issue resolved and leaves the rest of the log as is.
// Resolving an issue twice is a conflict.
func ResolveIssue(ctx context.Context, db *sql.DB, ownerID, trayID int64, issueID string, version int64, notes string, now time.Time) (*model.Tray, error) {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		if err := versionedUpdate(ctx, tx, "trays", ownerID, trayID, version, ""); err != nil {
			return err
		}

		var resolved bool
		err := tx.QueryRowContext(ctx,
			`SELECT resolved FROM tray_issues WHERE id = ? AND tray_id = ?`, issueID, trayID,
		).Scan(&resolved)
		if err == sql.ErrNoRows {
			return fmt.Errorf("issue %s: %w", issueID, model.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("checking issue: %w", err)
		}
		if resolved {
			return fmt.Errorf("issue %s is already resolved: %w", issueID, model.ErrConflict)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tray_issues SET resolved = 1, resolution_date = ?, resolution_notes = ?
			 WHERE id = ? AND tray_id = ?`,
			now.UTC(), nullString(notes), issueID, trayID,
		)
		if err != nil {
			return fmt.Errorf("resolving issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetTray(ctx, db, ownerID, trayID)
}
