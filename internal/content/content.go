// Package content stores the editable site sections managed from the back
// office (hero copy, services, testimonials and so on).
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("content section not found")
	ErrInvalidSection = errors.New("invalid section name")
	ErrInvalidData    = errors.New("section data must be a JSON object")
)

var sectionPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Section is one saved block of site content.
type Section struct {
	Name      string          `json:"section"`
	Data      json.RawMessage `json:"data"`
	UpdatedBy string          `json:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ValidateSection checks a section name.
func ValidateSection(name string) error {
	if !sectionPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSection, name)
	}
	return nil
}

// ValidateData checks that data is a JSON object.
func ValidateData(data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidData
	}
	return nil
}

// Store persists sections.
type Store interface {
	List(ctx context.Context) ([]Section, error)
	Get(ctx context.Context, name string) (*Section, error)
	Upsert(ctx context.Context, name string, data json.RawMessage, updatedBy string) (*Section, error)
}

// Repository handles content persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a content repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all sections ordered by name.
func (r *Repository) List(ctx context.Context) ([]Section, error) {
	rows, err := r.pool.Query(ctx, `SELECT section, data, updated_by, updated_at FROM content_sections ORDER BY section`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Section{}
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.Name, &s.Data, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Get returns a section by name.
func (r *Repository) Get(ctx context.Context, name string) (*Section, error) {
	var s Section
	err := r.pool.QueryRow(ctx, `SELECT section, data, updated_by, updated_at FROM content_sections WHERE section = $1`, name).
		Scan(&s.Name, &s.Data, &s.UpdatedBy, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert replaces the section's data.
func (r *Repository) Upsert(ctx context.Context, name string, data json.RawMessage, updatedBy string) (*Section, error) {
	const q = `INSERT INTO content_sections (section, data, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (section) DO UPDATE SET data = EXCLUDED.data, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING section, data, updated_by, updated_at`
	var s Section
	if err := r.pool.QueryRow(ctx, q, name, []byte(data), updatedBy).Scan(&s.Name, &s.Data, &s.UpdatedBy, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
