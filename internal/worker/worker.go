package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/pkg/notify"
	"github.com/ramsoftware/website-backend/pkg/queue"
)

// JobSource is the queue side the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor sends booking emails: the team notification and the
// visitor confirmation.
type NotificationProcessor struct {
	queue    JobSource
	sender   notify.Sender
	notifyTo []string
	backoff  time.Duration
	logger   *zap.Logger
}

// NewNotificationProcessor creates a notification processor. notifyTo are the
// team addresses that receive new-booking notifications.
func NewNotificationProcessor(q JobSource, sender notify.Sender, notifyTo []string, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{queue: q, sender: sender, notifyTo: notifyTo, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	var payload queue.BookingNotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var (
		msg notify.Message
		err error
	)
	switch job.Type {
	case queue.JobTypeBookingNotification:
		if len(p.notifyTo) == 0 {
			p.logger.Warn("no notification recipients configured", zap.String("booking_id", payload.BookingID))
			return nil
		}
		msg, err = notify.BookingNotification(payload, p.notifyTo)
	case queue.JobTypeBookingConfirmation:
		msg, err = notify.BookingConfirmation(payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err != nil {
		return err
	}

	id, err := p.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", job.Type, err)
	}
	p.logger.Info("booking email sent",
		zap.String("type", string(job.Type)),
		zap.String("booking_id", payload.BookingID),
		zap.String("message_id", id),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
