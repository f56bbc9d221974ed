package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zapponejosh/readingplan-bot/internal/bot"
	"github.com/zapponejosh/readingplan-bot/internal/database"
	"github.com/zapponejosh/readingplan-bot/internal/plan"
)

// =============================================================================
// TEST SETUP HELPERS
// =============================================================================

type fakeSender struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []string
}

func (f *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return "", errors.New("recipient unreachable")
	}
	f.sent = append(f.sent, to)
	return "SM-" + to, nil
}

// testEnv holds a router wired to an in-memory database and a fixed clock.
type testEnv struct {
	db     *database.DB
	sender *fakeSender
	router http.Handler
}

// setupTest creates a fresh test environment. now fixes the current time.
func setupTest(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Quiet during tests
	}))

	db, err := database.Open(database.DefaultConfig(":memory:"), logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	table := plan.NewTable(plan.Build(plan.DefaultCorpus(), plan.DefaultAnchor))
	sender := &fakeSender{fail: map[string]bool{"+1000": true}}

	dispatcher := bot.NewDispatcher(table, []string{"+1000", "+2000"}, sender, time.UTC, logger,
		bot.WithRecorder(db),
		bot.WithClock(func() time.Time { return now }),
	)
	commands := bot.NewCommandHandler(db, logger)

	handlers := NewHandlers(db, table, commands, dispatcher, logger)

	return &testEnv{
		db:     db,
		sender: sender,
		router: SetupRoutes(handlers, logger),
	}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) get(path string) *httptest.ResponseRecorder {
	return env.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (env *testEnv) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return env.do(req)
}

func (env *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return env.do(req)
}

// parseResponse parses JSON response
func parseResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v, body: %s", err, rr.Body.String())
	}
}

var newYear = time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestRequestIDMiddleware(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/")
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("response missing request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1c2d7e-3b7a-4c2e-9f55-0a4b8e1d2c3f")
	rr = env.do(req)
	if got := rr.Header().Get(RequestIDHeader); got != "6f1c2d7e-3b7a-4c2e-9f55-0a4b8e1d2c3f" {
		t.Errorf("request id = %q, want inbound id reused", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rr = env.do(req)
	if got := rr.Header().Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Errorf("request id = %q, want fresh id", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(slog.Default())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	var resp MessageResponse
	parseResponse(t, rr, &resp)
	if resp.Code != "INTERNAL_ERROR" {
		t.Errorf("Code = %q, want INTERNAL_ERROR", resp.Code)
	}
}

// =============================================================================
// QUERY ENDPOINTS
// =============================================================================

func TestRoot(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rr.Code)
	}
	var resp MessageResponse
	parseResponse(t, rr, &resp)
	if resp.Message != MessageRunning {
		t.Errorf("Message = %q, want %q", resp.Message, MessageRunning)
	}
}

func TestHealthCheck(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rr.Code)
	}
	var resp struct {
		Status    string `json:"status"`
		PlanDays  int    `json:"plan_days"`
		PlanStart string `json:"plan_start"`
		PlanEnd   string `json:"plan_end"`
	}
	parseResponse(t, rr, &resp)
	if resp.Status != "healthy" || resp.PlanDays != plan.Days {
		t.Errorf("health = %+v", resp)
	}
	if resp.PlanStart != "2025-01-01" || resp.PlanEnd != "2025-12-31" {
		t.Errorf("plan range = %s..%s", resp.PlanStart, resp.PlanEnd)
	}
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	env := setupTest(t, newYear)
	env.db.DB.Close()

	rr := env.get("/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rr.Code)
	}
}

func TestGetTodayReading(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/reading/today")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rr.Code)
	}
	var entry plan.Entry
	parseResponse(t, rr, &entry)
	if entry.Day != 1 || entry.Date != "2025-01-01" {
		t.Errorf("entry = %+v, want day 1", entry)
	}
	if entry.OldTestament != "Genesis 1; Genesis 2" {
		t.Errorf("OldTestament = %q", entry.OldTestament)
	}
}

func TestGetTodayReading_OutOfRange(t *testing.T) {
	env := setupTest(t, time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC))

	rr := env.get("/reading/today")
	var resp MessageResponse
	parseResponse(t, rr, &resp)
	if resp.Message != MessageNoReading {
		t.Errorf("Message = %q, want %q", resp.Message, MessageNoReading)
	}
}

func TestGetDateReading(t *testing.T) {
	env := setupTest(t, newYear)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantDay    int
		wantMsg    string
	}{
		{"in range", "/reading/2025-04-10", http.StatusOK, 100, ""},
		{"trailing slash", "/reading/2025-01-02/", http.StatusOK, 2, ""},
		{"out of range", "/reading/2024-12-31", http.StatusOK, 0, MessageNoEntry},
		{"bad date", "/reading/10-04-2025", http.StatusBadRequest, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.get(tt.path)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d; body %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Day     int    `json:"day"`
				Message string `json:"message"`
			}
			parseResponse(t, rr, &body)
			if body.Day != tt.wantDay || body.Message != tt.wantMsg {
				t.Errorf("body = %+v, want day %d message %q", body, tt.wantDay, tt.wantMsg)
			}
		})
	}
}

func TestGetRangeReadings(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/reading/range?start=2024-12-30&end=2025-01-03")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Readings []plan.Entry `json:"readings"`
	}
	parseResponse(t, rr, &resp)
	if len(resp.Readings) != 3 {
		t.Fatalf("len(readings) = %d, want 3 (dates before the plan are skipped)", len(resp.Readings))
	}
	if resp.Readings[0].Day != 1 || resp.Readings[2].Day != 3 {
		t.Errorf("readings = %+v", resp.Readings)
	}

	bad := []string{
		"/reading/range?start=2025-01-01",
		"/reading/range?start=2025-01-05&end=2025-01-01",
		"/reading/range?start=2025-01-01&end=2025-03-01",
		"/reading/range?start=bad&end=2025-01-01",
	}
	for _, path := range bad {
		if rr := env.get(path); rr.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rr.Code)
		}
	}
}

// =============================================================================
// DISPATCH ENDPOINTS
// =============================================================================

func TestSendMessage(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/send_message")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rr.Code)
	}
	var resp struct {
		Message string `json:"message"`
		Sent    int    `json:"sent"`
		Failed  int    `json:"failed"`
	}
	parseResponse(t, rr, &resp)
	if resp.Sent != 1 || resp.Failed != 1 {
		t.Errorf("resp = %+v, want 1 sent 1 failed", resp)
	}
	if len(env.sender.sent) != 1 || env.sender.sent[0] != "+2000" {
		t.Errorf("sent = %v, want [+2000]", env.sender.sent)
	}

	// Both attempts are in the dispatch log.
	rr = env.get("/dispatches")
	var logs struct {
		Dispatches []database.DispatchLogEntry `json:"dispatches"`
		Limit      int                         `json:"limit"`
	}
	parseResponse(t, rr, &logs)
	if len(logs.Dispatches) != 2 || logs.Limit != 20 {
		t.Errorf("dispatches = %d, limit = %d", len(logs.Dispatches), logs.Limit)
	}

	rr = env.get("/dispatches?limit=1")
	parseResponse(t, rr, &logs)
	if len(logs.Dispatches) != 1 {
		t.Errorf("limited dispatches = %d, want 1", len(logs.Dispatches))
	}
}

func TestSendMessage_NoReading(t *testing.T) {
	env := setupTest(t, time.Date(2030, 1, 1, 6, 0, 0, 0, time.UTC))

	rr := env.get("/send_message")
	var resp struct {
		Message string `json:"message"`
		Sent    int    `json:"sent"`
	}
	parseResponse(t, rr, &resp)
	if resp.Message != MessageNoReading || resp.Sent != 0 {
		t.Errorf("resp = %+v", resp)
	}
	if len(env.sender.sent) != 0 {
		t.Errorf("sent = %v, want none", env.sender.sent)
	}
}

// =============================================================================
// WEBHOOK
// =============================================================================

func TestWebhook_JSON(t *testing.T) {
	env := setupTest(t, newYear)

	tests := []struct {
		body string
		want string
	}{
		{"READ", bot.ReplyRead},
		{" read ", bot.ReplyRead},
		{"STATS", "📊 You’ve completed 2 days!"},
		{"remind", bot.ReplyRemind},
		{"hello", bot.ReplyHelp},
	}
	for _, tt := range tests {
		rr := env.postJSON("/webhook", map[string]string{"Body": tt.body, "From": "whatsapp:+254700123456"})
		if rr.Code != http.StatusOK {
			t.Fatalf("POST %q status = %d, body %s", tt.body, rr.Code, rr.Body.String())
		}
		var resp MessageResponse
		parseResponse(t, rr, &resp)
		if resp.Message != tt.want {
			t.Errorf("POST %q message = %q, want %q", tt.body, resp.Message, tt.want)
		}
	}

	days, err := env.db.GetProgress(context.Background(), "+254700123456")
	if err != nil || days != 2 {
		t.Errorf("stored progress = %d, %v; want 2 under normalized id", days, err)
	}
}

func TestWebhook_Form(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.postForm("/webhook", url.Values{
		"Body": {"Read"},
		"From": {"whatsapp:+15551234567"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp MessageResponse
	parseResponse(t, rr, &resp)
	if resp.Message != bot.ReplyRead {
		t.Errorf("Message = %q", resp.Message)
	}

	if days, _ := env.db.GetProgress(context.Background(), "+15551234567"); days != 1 {
		t.Errorf("progress = %d, want 1", days)
	}
}

func TestWebhook_JSONWithoutContentType(t *testing.T) {
	env := setupTest(t, newYear)

	contentTypes := []string{"", "application/x-www-form-urlencoded", "text/plain; charset=utf-8"}
	for i, ct := range contentTypes {
		req := httptest.NewRequest(http.MethodPost, "/webhook",
			strings.NewReader(`{"Body":"READ","From":"whatsapp:+1555"}`))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		rr := env.do(req)
		if rr.Code != http.StatusOK {
			t.Fatalf("content type %q: Status = %d, body %s", ct, rr.Code, rr.Body.String())
		}
		var resp MessageResponse
		parseResponse(t, rr, &resp)
		if resp.Message != bot.ReplyRead {
			t.Errorf("content type %q: Message = %q, want %q", ct, resp.Message, bot.ReplyRead)
		}

		days, err := env.db.GetProgress(context.Background(), "+1555")
		if err != nil || days != i+1 {
			t.Errorf("content type %q: progress = %d, %v; want %d", ct, days, err, i+1)
		}
	}
}

func TestWebhook_StatsUnknownUser(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.postJSON("/webhook", map[string]string{"Body": "stats", "From": "whatsapp:+1999"})
	var resp MessageResponse
	parseResponse(t, rr, &resp)
	if resp.Message != bot.StatsReply(0) {
		t.Errorf("Message = %q, want %q", resp.Message, bot.StatsReply(0))
	}
}

func TestWebhook_InvalidJSON(t *testing.T) {
	env := setupTest(t, newYear)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := env.do(req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rr.Code)
	}
}

func TestWebhook_StoreFailure(t *testing.T) {
	env := setupTest(t, newYear)
	env.db.DB.Close()

	rr := env.postJSON("/webhook", map[string]string{"Body": "READ", "From": "whatsapp:+1555"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Status = %d, want 500", rr.Code)
	}
	var resp MessageResponse
	parseResponse(t, rr, &resp)
	if resp.Code != "INTERNAL_ERROR" || resp.Message == "" {
		t.Errorf("resp = %+v", resp)
	}

	// Help does not touch the store and still answers.
	rr = env.postJSON("/webhook", map[string]string{"Body": "?", "From": "whatsapp:+1555"})
	if rr.Code != http.StatusOK {
		t.Errorf("help status = %d, want 200", rr.Code)
	}
}

func TestWebhook_WrongMethod(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/webhook")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", rr.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := setupTest(t, newYear)

	rr := env.get("/nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rr.Code)
	}
}
