// Package calendar holds the booking calendar state: the visible month grid,
// date availability, and the date plus time-slot selection.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	// GridCells is the number of cells in a rendered month (6 rows x 7 columns).
	GridCells = 42
	// DayLayout is the calendar-day format used for keys and values.
	DayLayout = "2006-01-02"
)

// TimeSlots are the call times offered for any selectable day.
var TimeSlots = []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}

var (
	ErrOtherMonth      = errors.New("date is outside the visible month")
	ErrUnavailable     = errors.New("date is unavailable")
	ErrNoDateSelected  = errors.New("no date selected")
	ErrUnknownTimeSlot = errors.New("time slot not offered")
)

// Month identifies a calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the following month, rolling the year over after December.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Prev returns the preceding month, rolling the year back before January.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Label formats the month as "March 2025".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day is one rendered grid cell.
type Day struct {
	Date          time.Time `json:"-"`
	Key           string    `json:"date"`
	Number        int       `json:"day"`
	IsOtherMonth  bool      `json:"is_other_month"`
	IsToday       bool      `json:"is_today"`
	IsUnavailable bool      `json:"is_unavailable"`
	IsSelected    bool      `json:"is_selected"`
}

// Disabled reports whether the cell rejects selection.
func (d Day) Disabled() bool {
	return d.IsOtherMonth || d.IsUnavailable
}

// Grid is a rendered month.
type Grid struct {
	Month Month          `json:"month"`
	Label string         `json:"label"`
	Days  [GridCells]Day `json:"days"`
}

// Calendar is the state behind the booking date picker. It is not safe for
// concurrent use; the owning form serializes access.
type Calendar struct {
	now      func() time.Time
	visible  Month
	blocked  map[string]struct{}
	selected time.Time
	hasDate  bool
	slot     string
}

// New creates a calendar showing the current month. now supplies both the
// current instant and, through its location, the caller's timezone.
func New(now func() time.Time, blocked ...time.Time) *Calendar {
	if now == nil {
		now = time.Now
	}
	c := &Calendar{
		now:     now,
		visible: MonthOf(now()),
		blocked: make(map[string]struct{}),
	}
	c.Block(blocked...)
	return c
}

// DefaultBlocked returns the standard block-list relative to now: the next two days.
func DefaultBlocked(now time.Time) []time.Time {
	today := civil(now, now.Location())
	return []time.Time{today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)}
}

func civil(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (c *Calendar) location() *time.Location {
	return c.now().Location()
}

func (c *Calendar) today() time.Time {
	return civil(c.now(), c.location())
}

// ParseDay parses a YYYY-MM-DD string as a calendar day in the calendar's timezone.
func (c *Calendar) ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, c.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// Block adds calendar days to the block-list.
func (c *Calendar) Block(dates ...time.Time) {
	for _, d := range dates {
		c.blocked[d.Format(DayLayout)] = struct{}{}
	}
}

// Blocked returns the block-list as sorted YYYY-MM-DD keys.
func (c *Calendar) Blocked() []string {
	out := make([]string, 0, len(c.blocked))
	for k := range c.blocked {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsDateUnavailable reports whether the calendar day of date is a weekend,
// before today, or blocked. Comparison is by calendar day.
func (c *Calendar) IsDateUnavailable(date time.Time) bool {
	d := civil(date, c.location())
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	if d.Before(c.today()) {
		return true
	}
	_, blocked := c.blocked[d.Format(DayLayout)]
	return blocked
}

// Visible returns the displayed month.
func (c *Calendar) Visible() Month { return c.visible }

// NextMonth shows the following month. The selection is untouched.
func (c *Calendar) NextMonth() Month {
	c.visible = c.visible.Next()
	return c.visible
}

// PrevMonth shows the preceding month. The selection is untouched.
func (c *Calendar) PrevMonth() Month {
	c.visible = c.visible.Prev()
	return c.visible
}

// Render builds the Monday-first 42-cell grid for the visible month.
func (c *Calendar) Render() Grid {
	loc := c.location()
	today := c.today()
	first := time.Date(c.visible.Year, c.visible.Month, 1, 0, 0, 0, 0, loc)
	offset := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -offset)

	g := Grid{Month: c.visible, Label: c.visible.Label()}
	for i := range g.Days {
		d := start.AddDate(0, 0, i)
		g.Days[i] = Day{
			Date:          d,
			Key:           d.Format(DayLayout),
			Number:        d.Day(),
			IsOtherMonth:  d.Month() != c.visible.Month,
			IsToday:       d.Equal(today),
			IsUnavailable: c.IsDateUnavailable(d),
			IsSelected:    c.hasDate && d.Equal(c.selected),
		}
	}
	return g
}

// Select picks a day of the visible month, replacing any previous selection and
// clearing the chosen time. It returns the time slots offered for the day.
func (c *Calendar) Select(date time.Time) ([]string, error) {
	d := civil(date, c.location())
	if MonthOf(d) != c.visible {
		return nil, fmt.Errorf("select %s: %w", d.Format(DayLayout), ErrOtherMonth)
	}
	if c.IsDateUnavailable(d) {
		return nil, fmt.Errorf("select %s: %w", d.Format(DayLayout), ErrUnavailable)
	}
	c.selected = d
	c.hasDate = true
	c.slot = ""
	return append([]string(nil), TimeSlots...), nil
}

// SelectTime picks one of the offered slots for the selected day and returns
// the combined YYYY-MM-DDTHH:MM value.
func (c *Calendar) SelectTime(slot string) (string, error) {
	if !c.hasDate {
		return "", ErrNoDateSelected
	}
	if !offered(slot) {
		return "", fmt.Errorf("select time %q: %w", slot, ErrUnknownTimeSlot)
	}
	c.slot = slot
	return c.Value(), nil
}

func offered(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Selected returns the selected day, if any.
func (c *Calendar) Selected() (time.Time, bool) {
	return c.selected, c.hasDate
}

// Slot returns the chosen time slot, or "".
func (c *Calendar) Slot() string { return c.slot }

// Value is "" with no selection, YYYY-MM-DD with a day only, and
// YYYY-MM-DDTHH:MM once a time is chosen.
func (c *Calendar) Value() string {
	if !c.hasDate {
		return ""
	}
	v := c.selected.Format(DayLayout)
	if c.slot != "" {
		v += "T" + c.slot
	}
	return v
}

// Restore re-applies a previously produced Value, showing its month. The
// selection is kept only if the day is still selectable.
func (c *Calendar) Restore(value string) error {
	if value == "" {
		c.Clear()
		return nil
	}
	day, slot := value, ""
	if len(value) > len(DayLayout) && value[len(DayLayout)] == 'T' {
		day, slot = value[:len(DayLayout)], value[len(DayLayout)+1:]
	}
	d, err := c.ParseDay(day)
	if err != nil {
		return err
	}
	prev := c.visible
	c.visible = MonthOf(d)
	if _, err := c.Select(d); err != nil {
		c.visible = prev
		return err
	}
	if slot != "" {
		if _, err := c.SelectTime(slot); err != nil {
			return err
		}
	}
	return nil
}

// Clear drops the selected day and time.
func (c *Calendar) Clear() {
	c.selected = time.Time{}
	c.hasDate = false
	c.slot = ""
}
