package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/readingplan-bot/internal/bot"
	"github.com/zapponejosh/readingplan-bot/internal/database"
	"github.com/zapponejosh/readingplan-bot/internal/logger"
	"github.com/zapponejosh/readingplan-bot/internal/plan"
)

// Messages returned by the query endpoints.
const (
	MessageRunning   = "✅ Bible Bot is running"
	MessageNoReading = "📅 No reading for today."
	MessageNoEntry   = "📅 No reading for this date."
)

const (
	maxRangeDays         = 31
	defaultDispatchLimit = 20
	maxDispatchLimit     = 100
	maxWebhookBody       = 1 << 20
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db         *database.DB
	table      *plan.Table
	commands   *bot.CommandHandler
	dispatcher *bot.Dispatcher
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *database.DB, table *plan.Table, commands *bot.CommandHandler, dispatcher *bot.Dispatcher, log *slog.Logger) *Handlers {
	return &Handlers{
		db:         db,
		table:      table,
		commands:   commands,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Root handles GET /
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	WriteMessage(w, MessageRunning)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.db.Health(ctx); err != nil {
		logger.FromContext(ctx, h.logger).Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	first, last := h.table.Range()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"plan_days":  h.table.Len(),
		"plan_start": first,
		"plan_end":   last,
	})
}

// GetTodayReading handles GET /reading/today
func (h *Handlers) GetTodayReading(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.dispatcher.Today()
	if !ok {
		WriteMessage(w, MessageNoReading)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// GetDateReading handles GET /reading/{date}
func (h *Handlers) GetDateReading(w http.ResponseWriter, r *http.Request) {
	dateStr := chi.URLParam(r, "date")

	date, err := plan.ParseDate(dateStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid date format: %s. Use YYYY-MM-DD", dateStr))
		return
	}

	entry, ok := h.table.EntryForDate(date)
	if !ok {
		WriteMessage(w, MessageNoEntry)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// GetRangeReadings handles GET /reading/range?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handlers) GetRangeReadings(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		WriteBadRequest(w, "Both start and end date parameters are required")
		return
	}

	startDate, err := plan.ParseDate(startStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid start date format: %s. Use YYYY-MM-DD", startStr))
		return
	}

	endDate, err := plan.ParseDate(endStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid end date format: %s. Use YYYY-MM-DD", endStr))
		return
	}

	if startDate.After(endDate) {
		WriteBadRequest(w, "Start date must be before or equal to end date")
		return
	}

	if startDate.AddDate(0, 0, maxRangeDays).Before(endDate) {
		WriteBadRequest(w, fmt.Sprintf("Date range cannot exceed %d days", maxRangeDays))
		return
	}

	readings := []plan.Entry{}
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		if entry, ok := h.table.EntryForDate(d); ok {
			readings = append(readings, entry)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"start":    startStr,
		"end":      endStr,
		"readings": readings,
	})
}

// SendMessage handles GET /send_message. It dispatches synchronously.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	res := h.dispatcher.SendDaily(r.Context())

	message := "✅ Daily reading sent"
	if !res.Found {
		message = MessageNoReading
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"date":    res.Date,
		"sent":    res.Sent,
		"failed":  res.Failed,
	})
}

// webhookRequest is an inbound message. Twilio posts it form-encoded;
// JSON is accepted with the same field names.
type webhookRequest struct {
	Body string `json:"Body"`
	From string `json:"From"`
}

// Webhook handles POST /webhook
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.logger)

	req, err := parseWebhook(r)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Info("inbound message", slog.String("from", req.From), slog.String("body", req.Body))

	reply, err := h.commands.Handle(ctx, req.From, req.Body)
	if err != nil {
		log.Error("command failed",
			slog.String("command", reply.Command.String()),
			slog.String("user_id", reply.UserID),
			slog.Any("error", err))
		WriteInternalError(w, "Failed to process command")
		return
	}

	WriteMessage(w, reply.Message)
}

// GetDispatches handles GET /dispatches?limit=N
func (h *Handlers) GetDispatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultDispatchLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxDispatchLimit {
			limit = l
		}
	}

	logs, err := h.db.GetRecentDispatchLogs(ctx, limit)
	if err != nil {
		logger.FromContext(ctx, h.logger).Error("failed to get dispatch log", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve dispatch log")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"dispatches": logs,
		"limit":      limit,
	})
}

func parseWebhook(r *http.Request) (webhookRequest, error) {
	var req webhookRequest

	if r.Body == nil {
		return req, fmt.Errorf("request body is empty")
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	r.Body.Close()
	if err != nil {
		return req, fmt.Errorf("read body: %w", err)
	}

	// Twilio posts form fields; everything else, including JSON sent with a
	// missing or generic content type, is decoded as JSON.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	isForm := mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
	if !isForm || bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, fmt.Errorf("decode json: %w", err)
		}
		return req, nil
	}

	if mediaType == "multipart/form-data" {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err := r.ParseMultipartForm(maxWebhookBody); err != nil {
			return req, err
		}
		req.Body = r.PostFormValue("Body")
		req.From = r.PostFormValue("From")
		return req, nil
	}

	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return req, err
	}
	req.Body = form.Get("Body")
	req.From = form.Get("From")
	return req, nil
}
