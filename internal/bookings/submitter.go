package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ramsoftware/website-backend/internal/booking"
	"github.com/ramsoftware/website-backend/pkg/apiclient"
)

// LocalSubmitter hands wizard submissions straight to the service, so a
// single binary can serve the form without calling itself over HTTP.
type LocalSubmitter struct {
	svc *Service
}

// NewLocalSubmitter creates a submitter backed by svc.
func NewLocalSubmitter(svc *Service) *LocalSubmitter {
	return &LocalSubmitter{svc: svc}
}

// Request accepts POST bookings. Validation failures come back as an
// unsuccessful result; storage failures as an error.
func (l *LocalSubmitter) Request(ctx context.Context, method, resource string, body interface{}) (apiclient.Result, error) {
	if method != http.MethodPost || resource != apiclient.ResourceBookings {
		return apiclient.Result{Success: false, Error: fmt.Sprintf("unsupported request %s %s", method, resource)}, nil
	}
	p, err := asPayload(body)
	if err != nil {
		return apiclient.Result{}, err
	}
	b, err := l.svc.Create(ctx, p)
	if errors.Is(err, ErrInvalid) {
		return apiclient.Result{Success: false, Error: err.Error()}, nil
	}
	if err != nil {
		return apiclient.Result{}, err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return apiclient.Result{}, fmt.Errorf("marshal booking: %w", err)
	}
	return apiclient.Result{Success: true, Data: data}, nil
}

func asPayload(body interface{}) (booking.Payload, error) {
	switch v := body.(type) {
	case booking.Payload:
		return v, nil
	case *booking.Payload:
		if v != nil {
			return *v, nil
		}
	}
	var p booking.Payload
	raw, err := json.Marshal(body)
	if err != nil {
		return p, fmt.Errorf("marshal body: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode booking payload: %w", err)
	}
	return p, nil
}
