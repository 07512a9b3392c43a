// Package roster is the admin team-management back office: a fixed role and
// permission table, the in-memory member collection with filtering, selection
// and bulk edits, and its HTTP surface.
package roster

import (
	"encoding/json"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Level is a permission level on a feature area, ordered None < Read < Write < Full.
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
	LevelFull
)

var levelNames = [...]string{"None", "Read", "Write", "Full"}

func (l Level) String() string {
	if l < LevelNone || l > LevelFull {
		return "None"
	}
	return levelNames[l]
}

// Label is the aggregate access label, e.g. "Write Access".
func (l Level) Label() string {
	if l == LevelNone {
		return "No Access"
	}
	return l.String() + " Access"
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Area is a feature area of the back office.
type Area string

const (
	AreaDashboard Area = "Dashboard"
	AreaBookings  Area = "Bookings"
	AreaContent   Area = "Content"
	AreaMedia     Area = "Media"
	AreaTeam      Area = "Team"
	AreaSettings  Area = "Settings"
)

// Areas lists the feature areas in display order.
var Areas = []Area{AreaDashboard, AreaBookings, AreaContent, AreaMedia, AreaTeam, AreaSettings}

// Role names.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleEditor  = "Editor"
	RoleViewer  = "Viewer"
)

// Role is one entry of the role table.
type Role struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Permissions map[Area]Level `json:"permissions"`
}

// Highest returns the strongest level the role holds on any area.
func (r Role) Highest() Level {
	top := LevelNone
	for _, l := range r.Permissions {
		if l > top {
			top = l
		}
	}
	return top
}

type roleDef struct {
	name        string
	description string
	levels      [6]Level // indexed like Areas
}

// The table is read-only; lookups hand out copies.
var roleTable = []roleDef{
	{RoleAdmin, "Full access to all features, team management and settings.",
		[6]Level{LevelFull, LevelFull, LevelFull, LevelFull, LevelFull, LevelFull}},
	{RoleManager, "Manages bookings and the team; can edit site content.",
		[6]Level{LevelRead, LevelFull, LevelWrite, LevelWrite, LevelWrite, LevelRead}},
	{RoleEditor, "Creates and edits site content and media.",
		[6]Level{LevelRead, LevelRead, LevelWrite, LevelWrite, LevelNone, LevelNone}},
	{RoleViewer, "Read-only access to the dashboard and published content.",
		[6]Level{LevelRead, LevelRead, LevelRead, LevelRead, LevelNone, LevelNone}},
}

func (d roleDef) role() Role {
	perms := make(map[Area]Level, len(Areas))
	for i, a := range Areas {
		perms[a] = d.levels[i]
	}
	return Role{Name: d.name, Description: d.description, Permissions: perms}
}

// Roles returns the role table in display order.
func Roles() []Role {
	out := make([]Role, 0, len(roleTable))
	for _, d := range roleTable {
		out = append(out, d.role())
	}
	return out
}

// LookupRole finds a role by exact name.
func LookupRole(name string) (Role, bool) {
	for _, d := range roleTable {
		if d.name == name {
			return d.role(), true
		}
	}
	return Role{}, false
}

// PermissionLevel returns the access label of a role: the highest level it
// holds, e.g. "Write Access" for Editor. Unknown roles have "No Access".
func PermissionLevel(role string) string {
	r, ok := LookupRole(role)
	if !ok {
		return LevelNone.Label()
	}
	return r.Highest().Label()
}

// MatrixRow is one role's line in the permission matrix.
type MatrixRow struct {
	Role   string  `json:"role"`
	Levels []Level `json:"levels"`
	Access string  `json:"access"`
}

// Matrix is the role by feature-area projection of the role table.
type Matrix struct {
	Areas []Area      `json:"areas"`
	Rows  []MatrixRow `json:"rows"`
}

// PermissionMatrix projects the role table.
func PermissionMatrix() Matrix {
	m := Matrix{Areas: append([]Area(nil), Areas...)}
	for _, d := range roleTable {
		m.Rows = append(m.Rows, MatrixRow{
			Role:   d.name,
			Levels: append([]Level(nil), d.levels[:]...),
			Access: d.role().Highest().Label(),
		})
	}
	return m
}

const maxSuggestDistance = 3

// suggestRole returns the closest role name to an unknown input, or "".
func suggestRole(input string) string {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, d := range roleTable {
		dist := levenshtein.ComputeDistance(in, strings.ToLower(d.name))
		if dist < bestDist {
			best, bestDist = d.name, dist
		}
	}
	return best
}
