package roster

import "strings"

// Wildcard matches any role, department or status.
const Wildcard = "all"

// Criteria narrows the member list. Empty or "all" fields match anything.
type Criteria struct {
	Search     string `json:"search" form:"search"`
	Role       string `json:"role" form:"role"`
	Department string `json:"department" form:"department"`
	Status     string `json:"status" form:"status"`
}

func wild(v string) bool { return v == "" || v == Wildcard }

// Match reports whether m satisfies every criterion.
func (c Criteria) Match(m Member) bool {
	if q := strings.ToLower(strings.TrimSpace(c.Search)); q != "" {
		if !strings.Contains(strings.ToLower(m.Name), q) &&
			!strings.Contains(strings.ToLower(m.Email), q) &&
			!strings.Contains(strings.ToLower(m.Title), q) {
			return false
		}
	}
	if !wild(c.Role) && m.Role != c.Role {
		return false
	}
	if !wild(c.Department) && m.Department != c.Department {
		return false
	}
	if !wild(c.Status) && !strings.EqualFold(m.Status, c.Status) {
		return false
	}
	return true
}

// Filter returns the members matching c, in order. members is not modified.
func Filter(members []Member, c Criteria) []Member {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if c.Match(m) {
			out = append(out, m)
		}
	}
	return out
}
