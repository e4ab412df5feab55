package repository

import (
	"context"
	"time"

	"studio_sales_backend/platform/apperr"

	"github.com/google/uuid"
)

// AvailabilityRule is a weekly opening of one calendar resource.
type AvailabilityRule struct {
	ID         uuid.UUID
	ResourceID string
	Weekday    int
	StartTime  time.Time
	EndTime    time.Time
	Timezone   string
	CreatedAt  time.Time
}

func (r *Repository) CreateAvailabilityRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error) {
	query := `
		INSERT INTO availability_rules
			(id, resource_id, weekday, start_time, end_time, timezone)
		VALUES
			($1, $2, $3, $4, $5, $6)
		RETURNING id, resource_id, weekday, start_time, end_time, timezone, created_at`

	var saved AvailabilityRule
	err := r.pool.QueryRow(ctx, query,
		rule.ID,
		rule.ResourceID,
		rule.Weekday,
		rule.StartTime,
		rule.EndTime,
		rule.Timezone,
	).Scan(
		&saved.ID,
		&saved.ResourceID,
		&saved.Weekday,
		&saved.StartTime,
		&saved.EndTime,
		&saved.Timezone,
		&saved.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListAvailabilityRules returns the rules of one resource, or of every
// resource when resourceID is empty.
func (r *Repository) ListAvailabilityRules(ctx context.Context, resourceID string) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource_id, weekday, start_time, end_time, timezone, created_at
		FROM availability_rules
		WHERE ($1 = '' OR resource_id = $1)
		ORDER BY resource_id, weekday, start_time
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]AvailabilityRule, 0)
	for rows.Next() {
		var rule AvailabilityRule
		if err := rows.Scan(&rule.ID, &rule.ResourceID, &rule.Weekday, &rule.StartTime, &rule.EndTime, &rule.Timezone, &rule.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) DeleteAvailabilityRule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("availability rule not found")
	}
	return nil
}
