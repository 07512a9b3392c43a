package booking

import (
	"context"
	"time"

	"github.com/ramsoftware/website-backend/pkg/apiclient"
)

// Submitter delivers a request to the site API. apiclient.HTTP and
// apiclient.Stub both satisfy it.
type Submitter interface {
	Request(ctx context.Context, method, resource string, body interface{}) (apiclient.Result, error)
}

// Payload is the inquiry sent to the bookings resource.
type Payload struct {
	FullName           string    `json:"fullName"`
	Email              string    `json:"email"`
	CompanyName        string    `json:"companyName"`
	JobTitle           string    `json:"jobTitle"`
	Phone              string    `json:"phone"`
	Website            string    `json:"website"`
	ServiceTypes       []string  `json:"serviceTypes"`
	Budget             string    `json:"budget"`
	Timeline           string    `json:"timeline"`
	TeamSize           string    `json:"teamSize"`
	TechStack          string    `json:"techStack"`
	ProjectDescription string    `json:"projectDescription"`
	ReferralSource     string    `json:"referralSource"`
	ContactTime        string    `json:"contactTime"`
	UrgencyLevel       string    `json:"urgencyLevel"`
	Attachments        []string  `json:"attachments"`
	AttachmentKeys     []string  `json:"attachmentKeys,omitempty"`
	SelectedDate       string    `json:"selectedDate"`
	SubmittedAt        time.Time `json:"submittedAt"`
}

// CharCounter describes the project description length indicator.
type CharCounter struct {
	Length int    `json:"length"`
	Level  string `json:"level"`
}

// Counter levels.
const (
	CounterShort = "short"
	CounterGood  = "good"
	CounterLong  = "long"
)

func counterFor(n int) CharCounter {
	switch {
	case n < 50:
		return CharCounter{Length: n, Level: CounterShort}
	case n < 200:
		return CharCounter{Length: n, Level: CounterGood}
	default:
		return CharCounter{Length: n, Level: CounterLong}
	}
}

// StepStatus is one entry of the progress header.
type StepStatus struct {
	Step  Step   `json:"step"`
	Title string `json:"title"`
	State string `json:"state"`
}

// Step header states.
const (
	StepDone     = "done"
	StepCurrent  = "current"
	StepUpcoming = "upcoming"
)

func stepStatuses(current Step) []StepStatus {
	out := make([]StepStatus, 0, TotalSteps)
	for s := Step1; s <= Step3; s++ {
		st := StepUpcoming
		switch {
		case s < current:
			st = StepDone
		case s == current:
			st = StepCurrent
		}
		out = append(out, StepStatus{Step: s, Title: s.Title(), State: st})
	}
	return out
}
