// Command plancheck reports how completely a generated reading plan covers
// its date range and its three sections.
//
// Usage:
//
//	go run ./cmd/plancheck -plan reading_plan.json
//	go run ./cmd/plancheck -plan reading_plan.json -o report.json
//
// It exits non-zero when the plan has structural problems: day numbers out
// of sequence, duplicate or missing dates.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zapponejosh/readingplan-bot/internal/plan"
)

// SectionStats tracks coverage for one section of the plan.
type SectionStats struct {
	Section    string `json:"section"`
	FilledDays int    `json:"filled_days"`
	EmptyDays  int    `json:"empty_days"`
	FirstEmpty int    `json:"first_empty_day,omitempty"` // 0 when every day is filled
}

// Report is the result of checking one plan.
type Report struct {
	Days      int            `json:"days"`
	FirstDate string         `json:"first_date"`
	LastDate  string         `json:"last_date"`
	Sections  []SectionStats `json:"sections"`
	Problems  []string       `json:"problems"`
	PerMonth  map[string]int `json:"per_month"`
}

func main() {
	planPath := flag.String("plan", "reading_plan.json", "Path of the generated plan")
	verbose := flag.Bool("v", false, "Verbose output (show each day)")
	outputFile := flag.String("o", "", "Output report to JSON file")
	flag.Parse()

	table, err := plan.Load(*planPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	entries := table.Entries()
	report := analyze(entries)

	fmt.Println("================================================================")
	fmt.Println("Reading Plan - Coverage Check")
	fmt.Println("================================================================")
	fmt.Printf("Plan:        %s\n", *planPath)
	fmt.Printf("Date Range:  %s to %s\n", report.FirstDate, report.LastDate)
	fmt.Printf("Total Days:  %d\n", report.Days)
	fmt.Println()

	if *verbose {
		for _, e := range entries {
			fmt.Printf("  %3d %s  OT: %-40s NT: %-22s PG: %s\n",
				e.Day, e.Date, e.OldTestament, e.NewTestament, e.PsalmOrGospel)
		}
		fmt.Println()
	}

	printSummary(report)

	if *outputFile != "" {
		if err := saveReport(*outputFile, report); err != nil {
			fmt.Printf("Error saving report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *outputFile)
	}

	if len(report.Problems) > 0 {
		os.Exit(1)
	}
}

func analyze(entries []plan.Entry) Report {
	report := Report{
		Days:     len(entries),
		PerMonth: make(map[string]int),
		Problems: []string{},
	}
	if len(entries) == 0 {
		report.Problems = append(report.Problems, "plan has no entries")
		return report
	}

	report.FirstDate = entries[0].Date
	report.LastDate = entries[len(entries)-1].Date

	sections := []struct {
		name  string
		field func(plan.Entry) string
	}{
		{"old_testament", func(e plan.Entry) string { return e.OldTestament }},
		{"new_testament", func(e plan.Entry) string { return e.NewTestament }},
		{"psalm_or_gospel", func(e plan.Entry) string { return e.PsalmOrGospel }},
	}
	for _, s := range sections {
		stats := SectionStats{Section: s.name}
		for _, e := range entries {
			if s.field(e) == "" {
				stats.EmptyDays++
				if stats.FirstEmpty == 0 {
					stats.FirstEmpty = e.Day
				}
			} else {
				stats.FilledDays++
			}
		}
		report.Sections = append(report.Sections, stats)
	}

	seen := make(map[string]int)
	var prev time.Time
	for i, e := range entries {
		if e.Day != i+1 {
			report.Problems = append(report.Problems,
				fmt.Sprintf("entry %d has day %d, want %d", i, e.Day, i+1))
		}
		if day, dup := seen[e.Date]; dup {
			report.Problems = append(report.Problems,
				fmt.Sprintf("date %s repeated on days %d and %d", e.Date, day, e.Day))
		}
		seen[e.Date] = e.Day

		d, err := plan.ParseDate(e.Date)
		if err != nil {
			report.Problems = append(report.Problems, err.Error())
			continue
		}
		if i > 0 && !prev.IsZero() && !d.Equal(prev.AddDate(0, 0, 1)) {
			report.Problems = append(report.Problems,
				fmt.Sprintf("day %d: date %s does not follow %s", e.Day, e.Date, plan.FormatDate(prev)))
		}
		prev = d
		report.PerMonth[d.Format("2006-01")]++
	}

	return report
}

func printSummary(r Report) {
	fmt.Println("Sections:")
	for _, s := range r.Sections {
		first := "-"
		if s.FirstEmpty > 0 {
			first = fmt.Sprintf("day %d", s.FirstEmpty)
		}
		fmt.Printf("  %-16s filled: %3d  empty: %3d  first empty: %s\n",
			s.Section, s.FilledDays, s.EmptyDays, first)
	}
	fmt.Println()

	if len(r.Problems) == 0 {
		fmt.Println("No structural problems. ✓")
		return
	}

	fmt.Printf("Problems (%d):\n", len(r.Problems))
	for _, p := range r.Problems {
		fmt.Printf("  • %s\n", p)
	}
	fmt.Println()
}

func saveReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
