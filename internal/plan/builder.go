package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Days is the length of a generated plan.
const Days = 365

// Per-day chapter quotas for each section.
const (
	oldTestamentPerDay  = 2
	newTestamentPerDay  = 1
	psalmOrGospelPerDay = 1
)

// refSeparator joins multiple references inside one entry field.
const refSeparator = "; "

// DefaultAnchor is the first day of the published plan.
var DefaultAnchor = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Flatten expands books into "Book N" references, in book order then
// chapter order.
func Flatten(books []Book) []string {
	total := 0
	for _, b := range books {
		total += b.Chapters
	}

	refs := make([]string, 0, total)
	for _, b := range books {
		for ch := 1; ch <= b.Chapters; ch++ {
			refs = append(refs, b.Name+" "+strconv.Itoa(ch))
		}
	}
	return refs
}

// Build partitions the corpus into Days entries starting at anchor.
// A section that runs out of chapters leaves its field empty; the other
// sections keep going.
func Build(corpus Corpus, anchor time.Time) []Entry {
	ot := Flatten(corpus.OldTestament)
	nt := Flatten(corpus.NewTestament)
	pg := Flatten(corpus.PsalmOrGospel)

	// Calendar-day arithmetic at midnight UTC so DST in the caller's zone
	// cannot skip or repeat a date.
	start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)

	entries := make([]Entry, 0, Days)
	for i := 0; i < Days; i++ {
		entries = append(entries, Entry{
			Day:           i + 1,
			Date:          FormatDate(start.AddDate(0, 0, i)),
			OldTestament:  window(ot, i*oldTestamentPerDay, oldTestamentPerDay),
			NewTestament:  window(nt, i*newTestamentPerDay, newTestamentPerDay),
			PsalmOrGospel: window(pg, i*psalmOrGospelPerDay, psalmOrGospelPerDay),
		})
	}
	return entries
}

// window joins refs[start:start+n], clamped to the slice bounds.
func window(refs []string, start, n int) string {
	if start >= len(refs) {
		return ""
	}
	end := min(start+n, len(refs))
	return strings.Join(refs[start:end], refSeparator)
}

// WriteFile persists entries as indented JSON, replacing any previous plan.
// The data goes to a temporary file in the same directory which is then
// renamed over path, so readers never observe a partial plan.
func WriteFile(path string, entries []Entry) (err error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create plan directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".reading_plan-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write plan: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync plan: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close plan: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod plan: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace plan: %w", err)
	}
	return nil
}
