package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Progress Queries
// =============================================================================

// IncrementProgress adds one completed day for userID and returns the new
// count. A first call creates the row with a count of 1.
//
// The read-modify-write happens inside a single upsert statement, so
// concurrent READ commands from the same user never lose an update.
func (db *DB) IncrementProgress(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("user id is required")
	}

	query := `
		INSERT INTO progress (user_id, days_completed, created_at, updated_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			days_completed = progress.days_completed + 1,
			updated_at = excluded.updated_at
		RETURNING days_completed
	`

	var days int
	if err := db.QueryRowContext(ctx, query, userID, time.Now().UTC()).Scan(&days); err != nil {
		return 0, fmt.Errorf("increment progress: %w", err)
	}

	return days, nil
}

// GetProgress returns the completed-day count for userID, or 0 for a user
// that has never sent READ.
func (db *DB) GetProgress(ctx context.Context, userID string) (int, error) {
	p, err := db.GetUserProgress(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return p.DaysCompleted, nil
}

// GetUserProgress returns the full progress row.
// Returns ErrNotFound if the user has no row.
func (db *DB) GetUserProgress(ctx context.Context, userID string) (*UserProgress, error) {
	query := `
		SELECT user_id, days_completed, created_at, updated_at
		FROM progress
		WHERE user_id = $1
	`

	var p UserProgress
	err := db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.DaysCompleted,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query progress: %w", err)
	}

	return &p, nil
}

// CountUsers returns the number of users with a progress row.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM progress").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// =============================================================================
// Dispatch Log Queries
// =============================================================================

// LogDispatch records one send attempt. ID and SentAt are filled in when empty.
func (db *DB) LogDispatch(ctx context.Context, entry *DispatchLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}

	query := `
		INSERT INTO dispatch_log (
			id, plan_date, plan_day, recipient, success, provider_id, error_message, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := db.ExecContext(ctx, query,
		entry.ID,
		entry.PlanDate,
		entry.PlanDay,
		entry.Recipient,
		entry.Success,
		entry.ProviderID,
		entry.ErrorMessage,
		entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("log dispatch: %w", err)
	}

	return nil
}

// GetRecentDispatchLogs returns the latest send attempts, newest first.
func (db *DB) GetRecentDispatchLogs(ctx context.Context, limit int) ([]DispatchLogEntry, error) {
	query := `
		SELECT id, plan_date, plan_day, recipient, success, provider_id, error_message, sent_at
		FROM dispatch_log
		ORDER BY sent_at DESC
		LIMIT $1
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatch logs: %w", err)
	}
	defer rows.Close()

	var logs []DispatchLogEntry

	for rows.Next() {
		var entry DispatchLogEntry
		var providerID, errorMessage sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.PlanDate,
			&entry.PlanDay,
			&entry.Recipient,
			&entry.Success,
			&providerID,
			&errorMessage,
			&entry.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch log row: %w", err)
		}

		if providerID.Valid {
			entry.ProviderID = &providerID.String
		}
		if errorMessage.Valid {
			entry.ErrorMessage = &errorMessage.String
		}

		logs = append(logs, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatch log rows: %w", err)
	}

	return logs, nil
}
