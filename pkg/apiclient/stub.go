package apiclient

import (
	"context"
	"sync"
	"time"
)

// StubMessage is the message every stub response carries.
const StubMessage = "API endpoint ready for backend integration"

// Call records one request received by a Stub.
type Call struct {
	Method   string
	Resource string
	Body     interface{}
}

// Stub is a Client that waits Delay and then always succeeds. The wait honours
// ctx cancellation.
type Stub struct {
	Delay time.Duration

	mu    sync.Mutex
	calls []Call
}

// NewStub creates a stub with the given simulated latency.
func NewStub(delay time.Duration) *Stub {
	return &Stub{Delay: delay}
}

func (s *Stub) Request(ctx context.Context, method, resource string, body interface{}) (Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Resource: resource, Body: body})
	s.mu.Unlock()

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Result{Success: true, Message: StubMessage}, nil
}

// Calls returns the requests received so far.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
