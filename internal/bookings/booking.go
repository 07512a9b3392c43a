// Package bookings is the server side of the bookings resource: stored
// inquiries, their review status, and the notifications a new one triggers.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/internal/booking"
	"github.com/ramsoftware/website-backend/internal/realtime"
	"github.com/ramsoftware/website-backend/pkg/queue"
)

// Status is the review state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var (
	ErrNotFound      = errors.New("booking not found")
	ErrInvalid       = errors.New("invalid booking")
	ErrInvalidStatus = errors.New("invalid booking status")
)

// Booking is a stored project inquiry.
type Booking struct {
	ID                 uuid.UUID `json:"id"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	CompanyName        string    `json:"company_name"`
	JobTitle           string    `json:"job_title"`
	Phone              string    `json:"phone"`
	Website            string    `json:"website"`
	ServiceTypes       []string  `json:"service_types"`
	Budget             string    `json:"budget"`
	Timeline           string    `json:"timeline"`
	TeamSize           string    `json:"team_size"`
	TechStack          string    `json:"tech_stack"`
	ProjectDescription string    `json:"project_description"`
	ReferralSource     string    `json:"referral_source"`
	ContactTime        string    `json:"contact_time"`
	UrgencyLevel       string    `json:"urgency_level"`
	Attachments        []string  `json:"attachments"`
	AttachmentKeys     []string  `json:"attachment_keys"`
	SelectedDate       string    `json:"selected_date"`
	Status             Status    `json:"status"`
	SubmittedAt        time.Time `json:"submitted_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FromPayload converts a wizard submission into an unsaved booking.
func FromPayload(p booking.Payload) *Booking {
	return &Booking{
		FullName:           strings.TrimSpace(p.FullName),
		Email:              strings.TrimSpace(p.Email),
		CompanyName:        strings.TrimSpace(p.CompanyName),
		JobTitle:           p.JobTitle,
		Phone:              p.Phone,
		Website:            p.Website,
		ServiceTypes:       nonNil(p.ServiceTypes),
		Budget:             p.Budget,
		Timeline:           p.Timeline,
		TeamSize:           p.TeamSize,
		TechStack:          p.TechStack,
		ProjectDescription: p.ProjectDescription,
		ReferralSource:     p.ReferralSource,
		ContactTime:        p.ContactTime,
		UrgencyLevel:       p.UrgencyLevel,
		Attachments:        nonNil(p.Attachments),
		AttachmentKeys:     nonNil(p.AttachmentKeys),
		SelectedDate:       p.SelectedDate,
		Status:             StatusPending,
		SubmittedAt:        p.SubmittedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (b *Booking) validate() error {
	switch {
	case b.FullName == "":
		return fmt.Errorf("%w: full name is required", ErrInvalid)
	case b.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalid)
	case b.CompanyName == "":
		return fmt.Errorf("%w: company name is required", ErrInvalid)
	case len(b.ServiceTypes) == 0:
		return fmt.Errorf("%w: at least one service type is required", ErrInvalid)
	case b.SelectedDate == "":
		return fmt.Errorf("%w: a consultation date is required", ErrInvalid)
	}
	if !booking.ValidEmail(b.Email) {
		return fmt.Errorf("%w: invalid email address", ErrInvalid)
	}
	return nil
}

func (b *Booking) notification() queue.BookingNotificationPayload {
	return queue.BookingNotificationPayload{
		BookingID:    b.ID.String(),
		FullName:     b.FullName,
		Email:        b.Email,
		CompanyName:  b.CompanyName,
		ServiceTypes: b.ServiceTypes,
		Budget:       b.Budget,
		Timeline:     b.Timeline,
		Urgency:      b.UrgencyLevel,
		SelectedDate: b.SelectedDate,
		Description:  b.ProjectDescription,
		Attachments:  b.Attachments,
		SubmittedAt:  b.SubmittedAt,
	}
}

// Store persists bookings. Repository is the Postgres implementation.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	List(ctx context.Context, status Status) ([]Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Notifier queues booking emails. *queue.Queue satisfies it.
type Notifier interface {
	EnqueueBookingNotification(ctx context.Context, payload queue.BookingNotificationPayload) error
	EnqueueBookingConfirmation(ctx context.Context, payload queue.BookingNotificationPayload) error
}

// Publisher pushes events to back-office clients. *realtime.Hub satisfies it.
type Publisher interface {
	Publish(room, event string, payload interface{})
}

// AttachmentSigner issues download links for stored attachments.
// *storage.S3 satisfies it.
type AttachmentSigner interface {
	AttachmentDownloadURL(ctx context.Context, key string) (string, error)
}

// Service holds the booking operations shared by the HTTP handler and the
// in-process submitter.
type Service struct {
	store    Store
	notifier Notifier
	events   Publisher
	signer   AttachmentSigner
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a booking service. notifier and events may be nil.
func NewService(store Store, notifier Notifier, events Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, events: events, now: time.Now, logger: logger}
}

// SetAttachmentSigner enables attachment download links.
func (s *Service) SetAttachmentSigner(signer AttachmentSigner) {
	s.signer = signer
}

// Create validates and stores a submission, then queues the team
// notification and the visitor confirmation. Queue failures are logged; the
// booking is kept.
func (s *Service) Create(ctx context.Context, p booking.Payload) (*Booking, error) {
	b := FromPayload(p)
	if err := b.validate(); err != nil {
		return nil, err
	}
	if b.SubmittedAt.IsZero() {
		b.SubmittedAt = s.now().UTC()
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("store booking: %w", err)
	}
	s.logger.Info("booking created",
		zap.String("booking_id", b.ID.String()),
		zap.String("email", b.Email),
		zap.String("selected_date", b.SelectedDate),
	)

	if s.notifier != nil {
		n := b.notification()
		if err := s.notifier.EnqueueBookingNotification(ctx, n); err != nil {
			s.logger.Error("enqueue booking notification", zap.String("booking_id", n.BookingID), zap.Error(err))
		}
		if err := s.notifier.EnqueueBookingConfirmation(ctx, n); err != nil {
			s.logger.Error("enqueue booking confirmation", zap.String("booking_id", n.BookingID), zap.Error(err))
		}
	}
	s.publish(realtime.EventBookingCreated, b)
	return b, nil
}

// List returns bookings, newest first. An empty status lists all.
func (s *Service) List(ctx context.Context, status Status) ([]Booking, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.store.List(ctx, status)
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

// AttachmentLink is a temporary download link for one attachment.
type AttachmentLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AttachmentURLs returns download links for the booking's stored attachments.
// Attachments that were never uploaded have no key and are skipped.
func (s *Service) AttachmentURLs(ctx context.Context, id uuid.UUID) ([]AttachmentLink, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	links := []AttachmentLink{}
	if s.signer == nil || len(b.AttachmentKeys) == 0 {
		return links, nil
	}
	for _, key := range b.AttachmentKeys {
		url, err := s.signer.AttachmentDownloadURL(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("sign attachment: %w", err)
		}
		links = append(links, AttachmentLink{Name: attachmentName(key), URL: url})
	}
	return links, nil
}

// attachmentName strips the folder and uuid prefix from a storage key.
func attachmentName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	if len(key) > 37 && key[36] == '-' {
		if _, err := uuid.Parse(key[:36]); err == nil {
			return key[37:]
		}
	}
	return key
}

// UpdateStatus moves a booking to status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	b, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking status updated", zap.String("booking_id", id.String()), zap.String("status", string(status)))
	s.publish(realtime.EventBookingUpdated, b)
	return b, nil
}

// Delete removes a booking.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("booking deleted", zap.String("booking_id", id.String()))
	s.publish(realtime.EventBookingUpdated, map[string]interface{}{"id": id, "deleted": true})
	return nil
}

func (s *Service) publish(event string, payload interface{}) {
	if s.events != nil {
		s.events.Publish(realtime.RoomAdmin, event, payload)
	}
}
