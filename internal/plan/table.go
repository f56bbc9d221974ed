package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// dateLayout is the ISO date format used in the plan file.
const dateLayout = "2006-01-02"

// Entry is one day of the plan.
type Entry struct {
	Day           int    `json:"day"`
	Date          string `json:"date"` // YYYY-MM-DD
	OldTestament  string `json:"old_testament"`
	NewTestament  string `json:"new_testament"`
	PsalmOrGospel string `json:"psalm_or_gospel"`
}

// Table is a loaded plan. It is never mutated after construction, so it
// can be shared between request handlers and the daily timer without locks.
type Table struct {
	entries []Entry
}

// NewTable wraps entries in a Table. The slice is copied.
func NewTable(entries []Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// Load reads a plan file written by WriteFile.
// A missing, unreadable or malformed file is an error; callers decide
// whether to continue with an empty table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	for i, e := range entries {
		if e.Day < 1 {
			return nil, fmt.Errorf("entry %d: day must be positive, got %d", i, e.Day)
		}
		if e.Date == "" {
			return nil, fmt.Errorf("entry %d: date is required", i)
		}
		if _, err := ParseDate(e.Date); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	return &Table{entries: entries}, nil
}

// EntryForDate returns the entry whose date matches d's calendar date in
// d's own location. The scan is linear; the table is small and static.
func (t *Table) EntryForDate(d time.Time) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	want := FormatDate(d)
	for _, e := range t.entries {
		if e.Date == want {
			return e, true
		}
	}
	return Entry{}, false
}

// EntryForDay returns the entry for a 1-based plan day.
func (t *Table) EntryForDay(day int) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	for _, e := range t.entries {
		if e.Day == day {
			return e, true
		}
	}
	return Entry{}, false
}

// Len reports the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Range returns the first and last dates, or empty strings for an empty table.
func (t *Table) Range() (first, last string) {
	if t.Len() == 0 {
		return "", ""
	}
	return t.entries[0].Date, t.entries[len(t.entries)-1].Date
}

// Entries returns a copy of the loaded entries.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return append([]Entry(nil), t.entries...)
}

// ErrInvalidDate is returned by ParseDate for non-ISO input.
var ErrInvalidDate = errors.New("invalid date, use YYYY-MM-DD")

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// FormatDate formats a date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}
