package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ramsoftware/website-backend/pkg/notify"
	"github.com/ramsoftware/website-backend/pkg/queue"
)

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*queue.Job, string, error) {
	q.mu.Lock()
	if len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		return job, queue.QueueNotifications, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return nil, "", ctx.Err()
}

func (q *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Attempt++
	q.retried = append(q.retried, job)
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "msg-1", nil
}

func job(t *testing.T, typ queue.JobType) *queue.Job {
	t.Helper()
	j, err := queue.NewJob(typ, queue.BookingNotificationPayload{
		BookingID: "b-1",
		FullName:  "Ada",
		Email:     "ada@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestProcessNotificationAndConfirmation(t *testing.T) {
	s := &fakeSender{}
	p := NewNotificationProcessor(&fakeQueue{}, s, []string{"team@ramsoftware.com"}, nil)

	if err := p.Process(context.Background(), job(t, queue.JobTypeBookingNotification)); err != nil {
		t.Fatal(err)
	}
	if err := p.Process(context.Background(), job(t, queue.JobTypeBookingConfirmation)); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 2 {
		t.Fatalf("sent = %d", len(s.sent))
	}
	if s.sent[0].To[0] != "team@ramsoftware.com" || s.sent[0].ReplyTo != "ada@example.com" {
		t.Errorf("notification = %+v", s.sent[0])
	}
	if s.sent[1].To[0] != "ada@example.com" {
		t.Errorf("confirmation = %+v", s.sent[1])
	}
}

func TestProcessRejectsUnknownType(t *testing.T) {
	p := NewNotificationProcessor(&fakeQueue{}, &fakeSender{}, nil, nil)
	if err := p.Process(context.Background(), job(t, "recording_upload")); err == nil {
		t.Error("unknown type accepted")
	}
}

func TestRunRetriesFailedJobs(t *testing.T) {
	q := &fakeQueue{jobs: []*queue.Job{job(t, queue.JobTypeBookingConfirmation)}}
	p := NewNotificationProcessor(q, &fakeSender{err: errors.New("rate limited")}, nil, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		q.mu.Lock()
		n := len(q.retried)
		q.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job was not retried")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	if q.retried[0].Attempt != 1 {
		t.Errorf("attempt = %d", q.retried[0].Attempt)
	}
}
