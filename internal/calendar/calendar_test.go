package calendar

import (
	"errors"
	"testing"
	"time"
)

// Wednesday 5 March 2025, mid-morning.
func fixedNow() time.Time {
	return time.Date(2025, time.March, 5, 10, 30, 0, 0, time.UTC)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRenderAlwaysFortyTwoCells(t *testing.T) {
	c := New(fixedNow)
	// Walk two full years from the current month.
	for i := 0; i < 24; i++ {
		g := c.Render()
		inMonth := 0
		for _, d := range g.Days {
			if d.IsOtherMonth {
				if d.Date.Month() == g.Month.Month {
					t.Errorf("%s: %s flagged other-month", g.Label, d.Key)
				}
				continue
			}
			inMonth++
			if d.Number != inMonth {
				t.Errorf("%s: day %d out of order at position %d", g.Label, d.Number, inMonth)
			}
		}
		if inMonth != g.Month.Days() {
			t.Errorf("%s: %d in-month cells, want %d", g.Label, inMonth, g.Month.Days())
		}
		if g.Days[0].Date.Weekday() != time.Monday {
			t.Errorf("%s: grid starts on %s", g.Label, g.Days[0].Date.Weekday())
		}
		c.NextMonth()
	}
}

func TestRenderMarch2025(t *testing.T) {
	c := New(fixedNow)
	g := c.Render()
	if g.Label != "March 2025" {
		t.Errorf("Label = %q", g.Label)
	}
	// 1 March 2025 is a Saturday: five February days lead.
	if g.Days[0].Key != "2025-02-24" || g.Days[5].Key != "2025-03-01" {
		t.Errorf("first cells = %s, %s", g.Days[0].Key, g.Days[5].Key)
	}
	if g.Days[41].Key != "2025-04-06" {
		t.Errorf("last cell = %s", g.Days[41].Key)
	}
	today := g.Days[9]
	if today.Key != "2025-03-05" || !today.IsToday {
		t.Errorf("today cell = %+v", today)
	}
	for i, d := range g.Days {
		if d.IsToday && i != 9 {
			t.Errorf("extra today cell %s", d.Key)
		}
	}
}

func TestIsDateUnavailable(t *testing.T) {
	c := New(fixedNow)
	c.Block(day(2025, time.March, 12))

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"yesterday", day(2025, time.March, 4), true},
		{"today", day(2025, time.March, 5), false},
		{"today late evening", time.Date(2025, time.March, 5, 23, 59, 0, 0, time.UTC), false},
		{"saturday", day(2025, time.March, 8), true},
		{"sunday", day(2025, time.March, 9), true},
		{"monday", day(2025, time.March, 10), false},
		{"blocked wednesday", day(2025, time.March, 12), true},
		{"blocked by calendar day not timestamp", time.Date(2025, time.March, 12, 16, 0, 0, 0, time.UTC), true},
		{"far past weekday", day(2020, time.January, 6), true},
		{"next year weekday", day(2026, time.January, 5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsDateUnavailable(tt.date); got != tt.want {
				t.Errorf("IsDateUnavailable(%s) = %v, want %v", tt.date.Format(DayLayout), got, tt.want)
			}
		})
	}
}

func TestDefaultBlocked(t *testing.T) {
	c := New(fixedNow, DefaultBlocked(fixedNow())...)
	got := c.Blocked()
	if len(got) != 2 || got[0] != "2025-03-06" || got[1] != "2025-03-07" {
		t.Errorf("Blocked = %v", got)
	}
	if !c.IsDateUnavailable(day(2025, time.March, 6)) {
		t.Error("tomorrow should be blocked")
	}
}

func TestNavigationRollsYearAndKeepsSelection(t *testing.T) {
	c := New(fixedNow)
	if _, err := c.Select(day(2025, time.March, 10)); err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i := 0; i < 10; i++ {
		c.NextMonth()
	}
	if got := c.Visible(); got != (Month{2026, time.January}) {
		t.Errorf("after 10 NextMonth: %+v", got)
	}
	if c.Value() != "2025-03-10" {
		t.Errorf("selection changed by navigation: %q", c.Value())
	}
	c.PrevMonth()
	if got := c.Visible(); got != (Month{2025, time.December}) {
		t.Errorf("PrevMonth: %+v", got)
	}
	jan := Month{2025, time.January}
	if jan.Prev() != (Month{2024, time.December}) {
		t.Errorf("January.Prev = %+v", jan.Prev())
	}
}

func TestSelectSingleCellAndTimeSlot(t *testing.T) {
	c := New(fixedNow)

	slots, err := c.Select(day(2025, time.March, 11))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(slots) != len(TimeSlots) {
		t.Errorf("slots = %v", slots)
	}
	if _, err := c.SelectTime("09:00"); err != nil {
		t.Fatalf("SelectTime: %v", err)
	}

	if _, err := c.Select(day(2025, time.March, 10)); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if c.Slot() != "" {
		t.Errorf("new day kept old time %q", c.Slot())
	}
	selected := 0
	for _, d := range c.Render().Days {
		if d.IsSelected {
			selected++
			if d.Key != "2025-03-10" {
				t.Errorf("selected cell = %s", d.Key)
			}
		}
	}
	if selected != 1 {
		t.Errorf("%d selected cells, want 1", selected)
	}

	v, err := c.SelectTime("14:00")
	if err != nil {
		t.Fatalf("SelectTime: %v", err)
	}
	if v != "2025-03-10T14:00" {
		t.Errorf("value = %q, want 2025-03-10T14:00", v)
	}
}

func TestSelectRejectsDisabledCells(t *testing.T) {
	c := New(fixedNow)
	if _, err := c.Select(day(2025, time.March, 8)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("weekend: err = %v", err)
	}
	if _, err := c.Select(day(2025, time.April, 1)); !errors.Is(err, ErrOtherMonth) {
		t.Errorf("filler cell: err = %v", err)
	}
	if _, ok := c.Selected(); ok {
		t.Error("rejected selection was applied")
	}
	if _, err := c.SelectTime("10:00"); !errors.Is(err, ErrNoDateSelected) {
		t.Errorf("time without date: err = %v", err)
	}
	_, _ = c.Select(day(2025, time.March, 10))
	if _, err := c.SelectTime("12:00"); !errors.Is(err, ErrUnknownTimeSlot) {
		t.Errorf("unknown slot: err = %v", err)
	}
}

func TestRestore(t *testing.T) {
	c := New(fixedNow)
	if err := c.Restore("2025-04-14T15:00"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if c.Visible() != (Month{2025, time.April}) || c.Value() != "2025-04-14T15:00" {
		t.Errorf("visible %+v value %q", c.Visible(), c.Value())
	}

	c = New(fixedNow)
	if err := c.Restore("2025-03-03"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("past date restore: err = %v", err)
	}
	if c.Value() != "" || c.Visible() != (Month{2025, time.March}) {
		t.Errorf("failed restore changed state: %q %+v", c.Value(), c.Visible())
	}
	if err := c.Restore("not-a-date"); err == nil {
		t.Error("expected parse error")
	}
}
