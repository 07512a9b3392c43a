package roster

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Member statuses.
const (
	StatusActive   = "Active"
	StatusAway     = "Away"
	StatusInactive = "Inactive"
)

var statuses = []string{StatusActive, StatusAway, StatusInactive}

// Member is one team member record.
type Member struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	Department string `json:"department"`
	Title      string `json:"title"`
	Phone      string `json:"phone"`
	JoinDate   string `json:"join_date"`
	LastActive string `json:"last_active"`
}

// Input is the create/edit form for a member.
type Input struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	Department string `json:"department"`
	Title      string `json:"title"`
	Phone      string `json:"phone"`
	JoinDate   string `json:"join_date"`
}

var (
	ErrNotFound             = errors.New("member not found")
	ErrInvalidMember        = errors.New("invalid member")
	ErrInvalidRole          = errors.New("unknown role")
	ErrConfirmationRequired = errors.New("bulk delete requires confirmation")
	ErrNoSelection          = errors.New("no members selected")
	ErrUnknownAction        = errors.New("unknown bulk action")
)

// InputError reports one invalid input field. Suggestion holds a "did you
// mean" role name when Field is "role".
type InputError struct {
	Field      string `json:"field"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e *InputError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Field, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *InputError) Unwrap() error {
	if e.Field == "role" {
		return ErrInvalidRole
	}
	return ErrInvalidMember
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func roleError(role string) *InputError {
	return &InputError{Field: "role", Reason: fmt.Sprintf("%q is not a role", role), Suggestion: suggestRole(role)}
}

// normalize trims the input, applies defaults and validates it.
func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	in.Status = strings.TrimSpace(in.Status)
	in.Department = strings.TrimSpace(in.Department)
	in.Title = strings.TrimSpace(in.Title)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Name == "" {
		return in, &InputError{Field: "name", Reason: "required"}
	}
	if !emailPattern.MatchString(in.Email) {
		return in, &InputError{Field: "email", Reason: "invalid email address"}
	}
	if in.Role == "" {
		in.Role = RoleViewer
	}
	if _, ok := LookupRole(in.Role); !ok {
		return in, roleError(in.Role)
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	status, ok := canonicalStatus(in.Status)
	if !ok {
		return in, &InputError{Field: "status", Reason: fmt.Sprintf("must be one of %s", strings.Join(statuses, ", "))}
	}
	in.Status = status
	return in, nil
}

func canonicalStatus(s string) (string, bool) {
	for _, st := range statuses {
		if strings.EqualFold(st, s) {
			return st, true
		}
	}
	return "", false
}

func (in Input) apply(m *Member) {
	m.Name = in.Name
	m.Email = in.Email
	m.Role = in.Role
	m.Status = in.Status
	m.Department = in.Department
	m.Title = in.Title
	m.Phone = in.Phone
	if in.JoinDate != "" {
		m.JoinDate = in.JoinDate
	}
}

// SeedMembers returns the demo roster loaded at startup.
func SeedMembers() []Member {
	return []Member{
		{ID: 1, Name: "Sarah Chen", Email: "sarah.chen@ramsoftware.com", Role: RoleAdmin, Status: StatusActive,
			Department: "Engineering", Title: "Chief Technology Officer", Phone: "+1 (555) 201-4410", JoinDate: "2019-03-15", LastActive: "Just now"},
		{ID: 2, Name: "Marcus Johnson", Email: "marcus.johnson@ramsoftware.com", Role: RoleManager, Status: StatusActive,
			Department: "Sales", Title: "Sales Director", Phone: "+1 (555) 201-4411", JoinDate: "2020-06-01", LastActive: "2 hours ago"},
		{ID: 3, Name: "Emily Rodriguez", Email: "emily.rodriguez@ramsoftware.com", Role: RoleEditor, Status: StatusActive,
			Department: "Marketing", Title: "Content Lead", Phone: "+1 (555) 201-4412", JoinDate: "2021-01-11", LastActive: "1 hour ago"},
		{ID: 4, Name: "David Kim", Email: "david.kim@ramsoftware.com", Role: RoleEditor, Status: StatusAway,
			Department: "Engineering", Title: "Senior Developer", Phone: "+1 (555) 201-4413", JoinDate: "2021-08-23", LastActive: "Yesterday"},
		{ID: 5, Name: "Priya Patel", Email: "priya.patel@ramsoftware.com", Role: RoleViewer, Status: StatusActive,
			Department: "Design", Title: "UX Designer", Phone: "+1 (555) 201-4414", JoinDate: "2022-02-07", LastActive: "30 minutes ago"},
		{ID: 6, Name: "James Wilson", Email: "james.wilson@ramsoftware.com", Role: RoleManager, Status: StatusInactive,
			Department: "Operations", Title: "Operations Manager", Phone: "+1 (555) 201-4415", JoinDate: "2020-11-30", LastActive: "3 weeks ago"},
		{ID: 7, Name: "Aisha Mohammed", Email: "aisha.mohammed@ramsoftware.com", Role: RoleViewer, Status: StatusAway,
			Department: "Support", Title: "Support Specialist", Phone: "+1 (555) 201-4416", JoinDate: "2023-04-17", LastActive: "3 days ago"},
		{ID: 8, Name: "Tom Becker", Email: "tom.becker@ramsoftware.com", Role: RoleEditor, Status: StatusActive,
			Department: "Design", Title: "Visual Designer", Phone: "+1 (555) 201-4417", JoinDate: "2023-09-04", LastActive: "5 hours ago"},
	}
}
