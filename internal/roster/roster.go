package roster

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MaxActivity is how many activity entries are kept.
const MaxActivity = 50

// Bulk actions.
const (
	ActionDelete      = "delete"
	ActionSetActive   = "set-active"
	ActionSetInactive = "set-inactive"
	ActionSetViewer   = "set-viewer"
)

// Activity is one activity-log line.
type Activity struct {
	At      time.Time `json:"at"`
	Action  string    `json:"action"`
	Message string    `json:"message"`
	Count   int       `json:"count"`
}

// Stats are the counters shown above the member table.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Away        int `json:"away"`
	Inactive    int `json:"inactive"`
	Departments int `json:"departments"`
}

// Change is passed to the change listener after every mutation so views can
// re-render.
type Change struct {
	Action   string     `json:"action"`
	Stats    Stats      `json:"stats"`
	Activity []Activity `json:"activity"`
}

const changeActivityHead = 5

// Options configures a Roster.
type Options struct {
	Now      func() time.Time
	OnChange func(Change)
	Logger   *zap.Logger
}

// BulkResult describes a completed bulk action.
type BulkResult struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
	IDs    []int  `json:"ids"`
}

// Roster owns the member collection, the selection set and the activity log
// (thread-safe). The role table is separate and immutable.
type Roster struct {
	mu       sync.Mutex
	members  []Member
	selected map[int]bool
	activity []Activity
	nextID   int
	now      func() time.Time
	onChange func(Change)
	logger   *zap.Logger
}

// New creates a roster holding a copy of members.
func New(members []Member, opts Options) *Roster {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := &Roster{
		members:  append([]Member(nil), members...),
		selected: make(map[int]bool),
		nextID:   1,
		now:      opts.Now,
		onChange: opts.OnChange,
		logger:   opts.Logger,
	}
	for _, m := range r.members {
		if m.ID >= r.nextID {
			r.nextID = m.ID + 1
		}
	}
	return r
}

// SetOnChange replaces the change listener.
func (r *Roster) SetOnChange(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Roster) indexLocked(id int) int {
	for i, m := range r.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (r *Roster) logLocked(action, msg string, count int) {
	entry := Activity{At: r.now(), Action: action, Message: msg, Count: count}
	r.activity = append([]Activity{entry}, r.activity...)
	if len(r.activity) > MaxActivity {
		r.activity = r.activity[:MaxActivity]
	}
	r.logger.Info("roster changed", zap.String("action", action), zap.Int("count", count), zap.String("message", msg))
}

// changedLocked snapshots the view and returns a func that delivers it. The
// returned func must be called after the lock is released.
func (r *Roster) changedLocked(action string) func() {
	fn := r.onChange
	if fn == nil {
		return func() {}
	}
	head := r.activity
	if len(head) > changeActivityHead {
		head = head[:changeActivityHead]
	}
	ch := Change{Action: action, Stats: r.statsLocked(), Activity: append([]Activity(nil), head...)}
	return func() { fn(ch) }
}

// Members returns every member in order.
func (r *Roster) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Member(nil), r.members...)
}

// Get returns one member.
func (r *Roster) Get(id int) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return Member{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return r.members[i], nil
}

// Filtered returns the members matching c.
func (r *Roster) Filtered(c Criteria) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Filter(r.members, c)
}

// Create validates in and adds a member with the next id.
func (r *Roster) Create(in Input) (Member, error) {
	in, err := in.normalize()
	if err != nil {
		return Member{}, err
	}
	r.mu.Lock()
	m := Member{ID: r.nextID, LastActive: "Never", JoinDate: r.now().Format("2006-01-02")}
	r.nextID++
	in.apply(&m)
	r.members = append(r.members, m)
	r.logLocked("create", "Added "+m.Name, 1)
	notify := r.changedLocked("create")
	r.mu.Unlock()
	notify()
	return m, nil
}

// Update replaces the editable fields of a member. An empty role or status
// keeps the member's current value.
func (r *Roster) Update(id int, in Input) (Member, error) {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return Member{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	cur := r.members[i]
	if strings.TrimSpace(in.Role) == "" {
		in.Role = cur.Role
	}
	if strings.TrimSpace(in.Status) == "" {
		in.Status = cur.Status
	}
	in, err := in.normalize()
	if err != nil {
		r.mu.Unlock()
		return Member{}, err
	}
	in.apply(&r.members[i])
	m := r.members[i]
	r.logLocked("update", "Updated "+m.Name, 1)
	notify := r.changedLocked("update")
	r.mu.Unlock()
	notify()
	return m, nil
}

// SetRole changes one member's role.
func (r *Roster) SetRole(id int, role string) (Member, error) {
	if _, ok := LookupRole(role); !ok {
		return Member{}, roleError(role)
	}
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return Member{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	r.members[i].Role = role
	m := r.members[i]
	r.logLocked("set-role", fmt.Sprintf("Changed %s's role to %s", m.Name, role), 1)
	notify := r.changedLocked("set-role")
	r.mu.Unlock()
	notify()
	return m, nil
}

// Delete removes a member and drops it from the selection.
func (r *Roster) Delete(id int) error {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	name := r.members[i].Name
	r.members = append(r.members[:i:i], r.members[i+1:]...)
	delete(r.selected, id)
	r.logLocked(ActionDelete, "Removed "+name, 1)
	notify := r.changedLocked(ActionDelete)
	r.mu.Unlock()
	notify()
	return nil
}

// Toggle checks or unchecks one member.
func (r *Roster) Toggle(id int, checked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if checked {
		r.selected[id] = true
	} else {
		delete(r.selected, id)
	}
	return nil
}

// SelectAll checks or unchecks every member in the filtered view. Members
// outside the view keep their state.
func (r *Roster) SelectAll(c Criteria, checked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range Filter(r.members, c) {
		if checked {
			r.selected[m.ID] = true
		} else {
			delete(r.selected, m.ID)
		}
	}
}

// AllSelected is the state of the select-all box: true iff the filtered
// view is non-empty and all of it is selected.
func (r *Roster) AllSelected(c Criteria) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	view := Filter(r.members, c)
	if len(view) == 0 {
		return false
	}
	for _, m := range view {
		if !r.selected[m.ID] {
			return false
		}
	}
	return true
}

// Selection returns the selected ids in ascending order.
func (r *Roster) Selection() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.selected))
	for id := range r.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ClearSelection unchecks everything.
func (r *Roster) ClearSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = make(map[int]bool)
}

// Bulk applies action to the selected members visible under c. Delete needs
// confirmed. On success exactly one activity entry is logged and the
// selection is cleared.
func (r *Roster) Bulk(action string, c Criteria, confirmed bool) (BulkResult, error) {
	switch action {
	case ActionDelete, ActionSetActive, ActionSetInactive, ActionSetViewer:
	default:
		return BulkResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	r.mu.Lock()
	var ids []int
	for _, m := range Filter(r.members, c) {
		if r.selected[m.ID] {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		r.mu.Unlock()
		return BulkResult{}, ErrNoSelection
	}
	if action == ActionDelete && !confirmed {
		r.mu.Unlock()
		return BulkResult{}, ErrConfirmationRequired
	}

	target := make(map[int]bool, len(ids))
	for _, id := range ids {
		target[id] = true
	}
	var msg string
	switch action {
	case ActionDelete:
		kept := r.members[:0:0]
		for _, m := range r.members {
			if !target[m.ID] {
				kept = append(kept, m)
			}
		}
		r.members = kept
		msg = fmt.Sprintf("Deleted %s", plural(len(ids)))
	case ActionSetActive, ActionSetInactive:
		status := StatusActive
		if action == ActionSetInactive {
			status = StatusInactive
		}
		for i := range r.members {
			if target[r.members[i].ID] {
				r.members[i].Status = status
			}
		}
		msg = fmt.Sprintf("Set %s to %s", plural(len(ids)), status)
	case ActionSetViewer:
		for i := range r.members {
			if target[r.members[i].ID] {
				r.members[i].Role = RoleViewer
			}
		}
		msg = fmt.Sprintf("Changed %s to %s", plural(len(ids)), RoleViewer)
	}
	r.selected = make(map[int]bool)
	r.logLocked(action, msg, len(ids))
	notify := r.changedLocked(action)
	r.mu.Unlock()
	notify()

	return BulkResult{Action: action, Count: len(ids), IDs: ids}, nil
}

func plural(n int) string {
	if n == 1 {
		return "1 member"
	}
	return fmt.Sprintf("%d members", n)
}

// Activity returns up to limit entries, most recent first. limit <= 0 returns all.
func (r *Roster) Activity(limit int) []Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.activity
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]Activity(nil), out...)
}

// Departments returns the distinct non-empty departments, sorted.
func (r *Roster) Departments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.departmentsLocked()
}

func (r *Roster) departmentsLocked() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range r.members {
		if m.Department != "" && !seen[m.Department] {
			seen[m.Department] = true
			out = append(out, m.Department)
		}
	}
	sort.Strings(out)
	return out
}

// Stats counts members by status.
func (r *Roster) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Roster) statsLocked() Stats {
	s := Stats{Total: len(r.members), Departments: len(r.departmentsLocked())}
	for _, m := range r.members {
		switch m.Status {
		case StatusActive:
			s.Active++
		case StatusAway:
			s.Away++
		case StatusInactive:
			s.Inactive++
		}
	}
	return s
}
