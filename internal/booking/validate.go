package booking

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrIncomplete     = errors.New("required fields missing or invalid")
	ErrNoServiceType  = errors.New("no service type selected")
	ErrNoDate         = errors.New("no call date selected")
	ErrSubmitFailed   = errors.New("submission failed")
	ErrHoneypot       = errors.New("honeypot field populated")
	ErrLastStep       = errors.New("already on the last step")
	ErrNotOnLastStep  = errors.New("submission is only available on the last step")
	ErrUnknownField   = errors.New("unknown field")
	ErrReadOnlyField  = errors.New("field is read-only")
	ErrWrongFieldKind = errors.New("operation does not match field kind")
	ErrClosed         = errors.New("booking form is closed")
)

// Notices shown to the visitor.
const (
	MsgIncomplete    = "Please fill in all required fields before continuing."
	MsgNoServiceType = "Please select at least one service type."
	MsgNoDate        = "Please select a date and time for your call."
	MsgSubmitFailed  = "Something went wrong. Please try again."
	MsgSubmitted     = "Your project inquiry has been submitted! We'll be in touch within 24 hours."
)

// Message maps a form error to the notice shown for it. Errors without a
// notice map to "".
func Message(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrHoneypot):
		return ""
	case errors.Is(err, ErrNoServiceType):
		return MsgNoServiceType
	case errors.Is(err, ErrIncomplete):
		return MsgIncomplete
	case errors.Is(err, ErrNoDate):
		return MsgNoDate
	case errors.Is(err, ErrSubmitFailed):
		return MsgSubmitFailed
	}
	return ""
}

const minPhoneLength = 10

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]+$`)
)

// ValidEmail reports whether s has the address shape the form accepts.
// The bookings service applies the same rule so a form that validates is
// never rejected on submit.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Reasons reported in FieldError.
const (
	ReasonRequired = "required"
	ReasonEmail    = "invalid email address"
	ReasonURL      = "invalid url"
	ReasonPhone    = "invalid phone number"
)

// FieldError marks a single invalid field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidationError is the aggregate failure of a step check. It unwraps to
// ErrIncomplete and, when the service-type group was empty, ErrNoServiceType.
type ValidationError struct {
	Step          Step
	Fields        []*FieldError
	NoServiceType bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d: %d invalid field(s): %v", e.Step, len(e.Fields), e.FieldNames())
}

func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrIncomplete}
	if e.NoServiceType {
		errs = append(errs, ErrNoServiceType)
	}
	return errs
}

// Messages lists the notices to show, most specific first.
func (e *ValidationError) Messages() []string {
	var out []string
	if e.NoServiceType {
		out = append(out, MsgNoServiceType)
	}
	return append(out, MsgIncomplete)
}

// FieldNames returns the names of the invalid fields.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// checkValue applies the required and format rules of f to a raw value. Format
// rules only run on non-empty values.
func checkValue(f Field, raw string) *FieldError {
	v := strings.TrimSpace(raw)
	if v == "" {
		if f.Required {
			return &FieldError{Field: f.Name, Reason: ReasonRequired}
		}
		return nil
	}
	switch f.Kind {
	case KindEmail:
		if !ValidEmail(v) {
			return &FieldError{Field: f.Name, Reason: ReasonEmail}
		}
	case KindURL:
		if !validURL(v) {
			return &FieldError{Field: f.Name, Reason: ReasonURL}
		}
	case KindTel:
		if !phonePattern.MatchString(v) || len(v) < minPhoneLength {
			return &FieldError{Field: f.Name, Reason: ReasonPhone}
		}
	}
	return nil
}

func validURL(v string) bool {
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}
