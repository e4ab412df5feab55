package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pipelineStatusOpen = "open"

// Store is the Postgres-backed CRM: contacts with a jsonb custom-field map and
// one open pipeline item per contact.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var (
	_ ports.CRM               = (*Store)(nil)
	_ ports.ConversationStore = (*Store)(nil)
)

const leadColumns = `id, first_name, last_name, phone, email, tags, fields, pipeline_stage, assigned_artist_id, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead   domain.Lead
		fields []byte
	)
	err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Phone,
		&lead.Email,
		&lead.Tags,
		&fields,
		&lead.PipelineStage,
		&lead.AssignedArtistID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Fields, err = decodeFields(fields)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("lead %s: %w", lead.ID, err)
	}
	return lead, nil
}

// GetLead loads one contact.
func (s *Store) GetLead(ctx context.Context, contactID string) (domain.Lead, error) {
	lead, err := scanLead(s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, contactID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp("crm.GetLead")
	}
	if err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// UpdateLead applies one field update atomically: cleared keys are removed,
// set keys merged, tags added and the stage moved. The open pipeline item
// follows the stage and the artist holding the lead.
func (s *Store) UpdateLead(ctx context.Context, contactID string, update *domain.FieldUpdate) (domain.Lead, error) {
	if update == nil || update.Empty() {
		return s.GetLead(ctx, contactID)
	}
	values := update.Set
	if values == nil {
		values = map[string]string{}
	}
	set, err := json.Marshal(values)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("encode field update: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET fields = (fields - $2::text[]) || $3::jsonb,
			tags = ARRAY(SELECT DISTINCT t FROM unnest(tags || $4::text[]) AS t ORDER BY t),
			pipeline_stage = COALESCE(NULLIF($5, ''), pipeline_stage),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, contactID, nonNil(update.Clear), set, nonNil(update.AddTags), update.PipelineStage))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp("crm.UpdateLead")
	}
	if err != nil {
		return domain.Lead{}, err
	}

	if err := syncPipelineItem(ctx, tx, lead); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// syncPipelineItem keeps the lead's open opportunity on the lead's stage and
// assigned to the artist holding it. Lost and booked leads close the item.
func syncPipelineItem(ctx context.Context, tx pgx.Tx, lead domain.Lead) error {
	assignee := lead.AssignedArtistID
	if artist := strings.TrimSpace(lead.Fields[domain.FieldHoldArtistID]); artist != "" {
		assignee = artist
	}
	status := pipelineStatusOpen
	if lead.PipelineStage == domain.PipelineStageLost {
		status = "lost"
	}

	tag, err := tx.Exec(ctx, `
		UPDATE pipeline_items
		SET stage = $2, assignee_id = COALESCE(NULLIF($3, ''), assignee_id), status = $4, updated_at = now()
		WHERE contact_id = $1 AND status = 'open'
	`, lead.ID, lead.PipelineStage, assignee, status)
	if err != nil {
		return fmt.Errorf("sync pipeline item: %w", err)
	}
	if tag.RowsAffected() > 0 || status != pipelineStatusOpen {
		return nil
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO pipeline_items (id, contact_id, assignee_id, stage, status)
		VALUES ($1, $2, $3, $4, 'open')
	`, uuid.New(), lead.ID, assignee, lead.PipelineStage)
	if err != nil {
		return fmt.Errorf("open pipeline item: %w", err)
	}
	return nil
}

// EnsureContact inserts a contact seen for the first time. Existing contacts
// only get missing name, phone and email filled in.
func (s *Store) EnsureContact(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	if strings.TrimSpace(lead.ID) == "" {
		return domain.Lead{}, apperr.Validation("contact id is required")
	}
	return scanLead(s.pool.QueryRow(ctx, `
		INSERT INTO leads (id, first_name, last_name, phone, email, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			first_name = CASE WHEN leads.first_name = '' THEN EXCLUDED.first_name ELSE leads.first_name END,
			last_name  = CASE WHEN leads.last_name = '' THEN EXCLUDED.last_name ELSE leads.last_name END,
			phone      = CASE WHEN leads.phone = '' THEN EXCLUDED.phone ELSE leads.phone END,
			email      = CASE WHEN leads.email = '' THEN EXCLUDED.email ELSE leads.email END,
			updated_at = now()
		RETURNING `+leadColumns, lead.ID, lead.FirstName, lead.LastName, lead.Phone, lead.Email, nonNil(lead.Tags)))
}

// ListOpenItems returns open pipeline items. Empty filter lists match everything.
func (s *Store) ListOpenItems(ctx context.Context, filter ports.ItemFilter) ([]ports.PipelineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contact_id, assignee_id, stage, updated_at
		FROM pipeline_items
		WHERE status = 'open'
			AND (cardinality($1::text[]) = 0 OR assignee_id = ANY($1::text[]))
			AND (cardinality($2::text[]) = 0 OR stage = ANY($2::text[]))
		ORDER BY updated_at DESC
	`, nonNil(filter.AssigneeIDs), nonNil(filter.Stages))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ports.PipelineItem, 0)
	for rows.Next() {
		var (
			item ports.PipelineItem
			id   uuid.UUID
		)
		if err := rows.Scan(&id, &item.ContactID, &item.AssigneeID, &item.Stage, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.ID = id.String()
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// ListLeadsWithOpenHolds returns contacts whose hold field, or any legacy
// alias of it, is non-empty.
func (s *Store) ListLeadsWithOpenHolds(ctx context.Context) ([]string, error) {
	keys := append([]string{domain.FieldHoldAppointmentID}, domain.FieldAliases(domain.FieldHoldAppointmentID)...)
	rows, err := s.pool.Query(ctx, `
		SELECT id
		FROM leads
		WHERE EXISTS (
			SELECT 1 FROM unnest($1::text[]) AS k
			WHERE btrim(COALESCE(fields ->> k, '')) <> ''
		)
		ORDER BY id
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// decodeFields reads the jsonb field map. Non-string values (numbers and
// booleans written by other CRM clients) are kept in their JSON text form.
func decodeFields(raw []byte) (map[string]string, error) {
	fields := map[string]string{}
	if len(raw) == 0 {
		return fields, nil
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	for k, v := range values {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			fields[k] = s
			continue
		}
		if string(v) == "null" {
			continue
		}
		fields[k] = string(v)
	}
	return fields, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func storedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
