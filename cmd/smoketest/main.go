// Command smoketest exercises a running bot server over HTTP.
//
// Usage:
//
//	go run ./cmd/smoketest -url http://localhost:8080
//	go run ./cmd/smoketest -url http://localhost:8080 -from whatsapp:+15550000000 -mutate
//
// Without -mutate it only sends commands that do not change progress.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type messageResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type entryResponse struct {
	Day           int    `json:"day"`
	Date          string `json:"date"`
	OldTestament  string `json:"old_testament"`
	NewTestament  string `json:"new_testament"`
	PsalmOrGospel string `json:"psalm_or_gospel"`
	Message       string `json:"message"`
}

type healthResponse struct {
	Status    string `json:"status"`
	PlanDays  int    `json:"plan_days"`
	PlanStart string `json:"plan_start"`
	PlanEnd   string `json:"plan_end"`
}

type rangeResponse struct {
	Readings []entryResponse `json:"readings"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	from         string
	mutate       bool
	client       *http.Client
	verbose      bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL, from string, mutate, verbose bool) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		from:    from,
		mutate:  mutate,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		verbose: verbose,
	}
}

func (tr *TestRunner) Run() {
	fmt.Println("==============================================")
	fmt.Println("Reading Plan Bot Smoke Test")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Println()

	health := tr.testHealth()
	tr.testRoot()
	tr.testToday()
	tr.testDates(health)
	tr.testEdgeCases()
	tr.testWebhook()

	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() healthResponse {
	tr.printSection("Health Check")

	var health healthResponse
	if err := tr.getJSON("/health", http.StatusOK, &health); err != nil {
		tr.recordError("Health", err.Error())
		return health
	}

	if health.Status != "healthy" {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
		return health
	}
	tr.recordSuccess(fmt.Sprintf("Health check passed (%d plan days, %s to %s)",
		health.PlanDays, health.PlanStart, health.PlanEnd))
	if health.PlanDays == 0 {
		tr.recordError("Plan", "server has an empty plan loaded")
	}
	return health
}

func (tr *TestRunner) testRoot() {
	var resp messageResponse
	if err := tr.getJSON("/", http.StatusOK, &resp); err != nil {
		tr.recordError("Root", err.Error())
		return
	}
	tr.recordSuccess(fmt.Sprintf("Root: %s", resp.Message))
}

func (tr *TestRunner) testToday() {
	tr.printSection("Today's Reading")

	var entry entryResponse
	if err := tr.getJSON("/reading/today", http.StatusOK, &entry); err != nil {
		tr.recordError("Today", err.Error())
		return
	}
	if entry.Message != "" {
		tr.recordSuccess(fmt.Sprintf("Today: %s", entry.Message))
		return
	}
	tr.recordSuccess(fmt.Sprintf("Today (%s): day %d", entry.Date, entry.Day))
	tr.printEntry(entry)
}

func (tr *TestRunner) testDates(health healthResponse) {
	tr.printSection("Specific Date Tests")

	if health.PlanStart == "" {
		tr.recordError("Dates", "plan range unknown, skipping")
		return
	}

	start, err := time.Parse("2006-01-02", health.PlanStart)
	if err != nil {
		tr.recordError("Dates", err.Error())
		return
	}

	cases := []struct {
		offset  int
		wantDay int
	}{
		{0, 1},
		{99, 100},
		{health.PlanDays - 1, health.PlanDays},
	}
	for _, tc := range cases {
		date := start.AddDate(0, 0, tc.offset).Format("2006-01-02")
		var entry entryResponse
		if err := tr.getJSON("/reading/"+date, http.StatusOK, &entry); err != nil {
			tr.recordError(date, err.Error())
			continue
		}
		if entry.Day != tc.wantDay {
			tr.recordError(date, fmt.Sprintf("Expected day %d, got %d", tc.wantDay, entry.Day))
			continue
		}
		tr.recordSuccess(fmt.Sprintf("%s: day %d", date, entry.Day))
		if tr.verbose {
			tr.printEntry(entry)
		}
	}

	before := start.AddDate(0, 0, -1).Format("2006-01-02")
	var missing entryResponse
	if err := tr.getJSON("/reading/"+before, http.StatusOK, &missing); err != nil {
		tr.recordError(before, err.Error())
	} else if missing.Day != 0 || missing.Message == "" {
		tr.recordError(before, "Expected a no-reading message before the plan starts")
	} else {
		tr.recordSuccess(fmt.Sprintf("%s: %s", before, missing.Message))
	}

	end := start.AddDate(0, 0, 6).Format("2006-01-02")
	var week rangeResponse
	if err := tr.getJSON(fmt.Sprintf("/reading/range?start=%s&end=%s", health.PlanStart, end), http.StatusOK, &week); err != nil {
		tr.recordError("Range (week)", err.Error())
	} else if len(week.Readings) != 7 {
		tr.recordError("Range (week)", fmt.Sprintf("Expected 7 days, got %d", len(week.Readings)))
	} else {
		tr.recordSuccess("Week range returned 7 days")
	}
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	checks := []struct {
		name   string
		path   string
		status int
	}{
		{"Invalid date format rejected", "/reading/invalid", http.StatusBadRequest},
		{"Range limit enforced", "/reading/range?start=2025-01-01&end=2025-12-31", http.StatusBadRequest},
		{"Invalid range rejected (end before start)", "/reading/range?start=2025-12-31&end=2025-01-01", http.StatusBadRequest},
		{"Missing end parameter rejected", "/reading/range?start=2025-01-01", http.StatusBadRequest},
		{"Webhook rejects GET", "/webhook", http.StatusMethodNotAllowed},
	}
	for _, c := range checks {
		resp, err := tr.client.Get(tr.baseURL + c.path)
		if err != nil {
			tr.recordError(c.name, err.Error())
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == c.status {
			tr.recordSuccess(c.name)
		} else {
			tr.recordError(c.name, fmt.Sprintf("HTTP %d, want %d", resp.StatusCode, c.status))
		}
	}
}

func (tr *TestRunner) testWebhook() {
	tr.printSection("Webhook Commands")

	commands := []string{"help", "remind", "stats"}
	if tr.mutate {
		commands = append(commands, "read", "stats")
	}
	for _, cmd := range commands {
		body, _ := json.Marshal(map[string]string{"Body": cmd, "From": tr.from})
		resp, err := tr.client.Post(tr.baseURL+"/webhook", "application/json", bytes.NewReader(body))
		if err != nil {
			tr.recordError("Webhook "+cmd, err.Error())
			continue
		}

		var msg messageResponse
		err = decodeResponse(resp, http.StatusOK, &msg)
		if err != nil {
			tr.recordError("Webhook "+cmd, err.Error())
			continue
		}
		tr.recordSuccess(fmt.Sprintf("%s → %s", strings.ToUpper(cmd), firstLine(msg.Message)))
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (tr *TestRunner) getJSON(path string, wantStatus int, v interface{}) error {
	resp, err := tr.client.Get(tr.baseURL + path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, wantStatus, v)
}

func decodeResponse(resp *http.Response, wantStatus int, v interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) printEntry(e entryResponse) {
	fmt.Printf("    Old Testament:     %s\n", e.OldTestament)
	fmt.Printf("    New Testament:     %s\n", e.NewTestament)
	fmt.Printf("    Psalms or Gospels: %s\n", e.PsalmOrGospel)
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
		return
	}
	fmt.Println("All checks passed! ✓")
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the bot server")
	from := flag.String("from", "whatsapp:+10000000000", "Sender address used for webhook commands")
	mutate := flag.Bool("mutate", false, "Also send READ, which increments the sender's progress")
	verbose := flag.Bool("v", false, "Verbose output (show reading details)")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the bot server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, *from, *mutate, *verbose)
	runner.Run()

	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
