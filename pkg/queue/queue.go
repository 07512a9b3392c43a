package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for booking notification jobs.
	QueueNotifications = "worker:notifications"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeBookingNotification JobType = "booking_notification"
	JobTypeBookingConfirmation JobType = "booking_confirmation"
)

// BookingNotificationPayload is the payload for booking emails: the team
// notification and the visitor confirmation.
type BookingNotificationPayload struct {
	BookingID    string    `json:"booking_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	CompanyName  string    `json:"company_name"`
	ServiceTypes []string  `json:"service_types"`
	Budget       string    `json:"budget"`
	Timeline     string    `json:"timeline"`
	Urgency      string    `json:"urgency"`
	SelectedDate string    `json:"selected_date"`
	Description  string    `json:"description"`
	Attachments  []string  `json:"attachments"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob wraps payload in a fresh envelope.
func NewJob(typ JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

func (q *Queue) push(ctx context.Context, list string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// EnqueueBookingNotification enqueues the team notification for a booking.
func (q *Queue) EnqueueBookingNotification(ctx context.Context, payload BookingNotificationPayload) error {
	return q.enqueueBooking(ctx, JobTypeBookingNotification, payload)
}

// EnqueueBookingConfirmation enqueues the visitor confirmation for a booking.
func (q *Queue) EnqueueBookingConfirmation(ctx context.Context, payload BookingNotificationPayload) error {
	return q.enqueueBooking(ctx, JobTypeBookingConfirmation, payload)
}

func (q *Queue) enqueueBooking(ctx context.Context, typ JobType, payload BookingNotificationPayload) error {
	job, err := NewJob(typ, payload)
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueNotifications, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued booking job",
		zap.String("job_id", job.ID),
		zap.String("type", string(typ)),
		zap.String("booking_id", payload.BookingID),
	)
	return nil
}

// Dequeue blocks until a job is available or ctx is done. Returns job and key (queue name).
// A nil job with a nil error means nothing usable was popped.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueNotifications).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.push(ctx, QueueNotifications, job); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
