package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, full_name, email, company_name, job_title, phone, website, service_types,
	budget, timeline, team_size, tech_stack, project_description, referral_source, contact_time,
	urgency_level, attachments, attachment_keys, selected_date, status, submitted_at, created_at, updated_at`

// Repository handles booking persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a bookings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.FullName, &b.Email, &b.CompanyName, &b.JobTitle, &b.Phone, &b.Website, &b.ServiceTypes,
		&b.Budget, &b.Timeline, &b.TeamSize, &b.TechStack, &b.ProjectDescription, &b.ReferralSource, &b.ContactTime,
		&b.UrgencyLevel, &b.Attachments, &b.AttachmentKeys, &b.SelectedDate, &b.Status, &b.SubmittedAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a booking and fills its id and timestamps.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	const q = `INSERT INTO bookings (id, full_name, email, company_name, job_title, phone, website, service_types,
		budget, timeline, team_size, tech_stack, project_description, referral_source, contact_time,
		urgency_level, attachments, attachment_keys, selected_date, status, submitted_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, b.FullName, b.Email, b.CompanyName, b.JobTitle, b.Phone, b.Website, b.ServiceTypes,
		b.Budget, b.Timeline, b.TeamSize, b.TechStack, b.ProjectDescription, b.ReferralSource, b.ContactTime,
		b.UrgencyLevel, b.Attachments, b.AttachmentKeys, b.SelectedDate, b.Status, b.SubmittedAt).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// List returns bookings newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status Status) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

// Get returns a booking by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

// UpdateStatus sets the status and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `UPDATE bookings SET status = $2, updated_at = NOW()
		WHERE id = $1 RETURNING `+bookingColumns, id, string(status)))
}

// Delete removes a booking.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
