package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studio_sales_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Appointment represents the appointment database model
type Appointment struct {
	ID         uuid.UUID `db:"id"`
	ResourceID string    `db:"resource_id"`
	ContactID  string    `db:"contact_id"`
	AssigneeID string    `db:"assignee_id"`
	Title      string    `db:"title"`
	Status     string    `db:"status"`
	Location   string    `db:"location"`
	StartTime  time.Time `db:"start_time"`
	EndTime    time.Time `db:"end_time"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Repository provides database operations for calendar resources.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `id, resource_id, contact_id, assignee_id, title, status, location, start_time, end_time, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.ResourceID,
		&a.ContactID,
		&a.AssigneeID,
		&a.Title,
		&a.Status,
		&a.Location,
		&a.StartTime,
		&a.EndTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an appointment.
func (r *Repository) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	query := `
		INSERT INTO appointments
			(id, resource_id, contact_id, assignee_id, title, status, location, start_time, end_time)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + appointmentColumns

	saved, err := scanAppointment(r.pool.QueryRow(ctx, query,
		appt.ID,
		appt.ResourceID,
		appt.ContactID,
		appt.AssigneeID,
		appt.Title,
		appt.Status,
		appt.Location,
		appt.StartTime,
		appt.EndTime,
	))
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return saved, nil
}

// GetByID loads one appointment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Update changes status and/or location. Nil leaves the column as is.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, status, location *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = COALESCE($2, status), location = COALESCE($3, location), updated_at = now()
		WHERE id = $1
	`, id, status, location)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

// ListBooked returns live appointments on a resource overlapping [from, to).
func (r *Repository) ListBooked(ctx context.Context, resourceID string, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE resource_id = $1
			AND status <> 'cancelled'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
