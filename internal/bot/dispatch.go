package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapponejosh/readingplan-bot/internal/database"
	"github.com/zapponejosh/readingplan-bot/internal/messaging"
	"github.com/zapponejosh/readingplan-bot/internal/plan"
)

// FormatMessage renders the daily reading message for entry.
func FormatMessage(e plan.Entry) string {
	return fmt.Sprintf(
		"📖 *Day %d Bible Reading*\n"+
			"📜 Old Testament: %s\n"+
			"📜 New Testament: %s\n"+
			"🎵 Psalms or Gospels: %s\n\n"+
			"_Reply with:_ READ | REMIND | STATS",
		e.Day, e.OldTestament, e.NewTestament, e.PsalmOrGospel,
	)
}

// DispatchRecorder stores the outcome of each send attempt.
type DispatchRecorder interface {
	LogDispatch(ctx context.Context, entry *database.DispatchLogEntry) error
}

// Result summarizes one dispatch run.
type Result struct {
	Date   string `json:"date"`
	Day    int    `json:"day,omitempty"`
	Found  bool   `json:"found"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}

// Dispatcher sends today's entry to every recipient.
type Dispatcher struct {
	table      *plan.Table
	recipients []string
	sender     messaging.Sender
	recorder   DispatchRecorder // optional
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder records every send attempt.
func WithRecorder(r DispatchRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher resolving "today" in loc.
func NewDispatcher(table *plan.Table, recipients []string, sender messaging.Sender, loc *time.Location, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		table:      table,
		recipients: append([]string(nil), recipients...),
		sender:     sender,
		location:   loc,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Today returns the entry for the current date in the dispatcher's zone.
func (d *Dispatcher) Today() (plan.Entry, bool) {
	return d.table.EntryForDate(d.now().In(d.location))
}

// Location is the zone "today" is resolved in.
func (d *Dispatcher) Location() *time.Location {
	return d.location
}

// SendDaily sends today's reading. It never fails as a whole: a missing
// entry is logged and per-recipient failures are counted.
func (d *Dispatcher) SendDaily(ctx context.Context) Result {
	return d.DispatchFor(ctx, d.now())
}

// DispatchFor sends the entry for the date of now (in the dispatcher's
// zone) to each recipient independently. Failures are not retried.
func (d *Dispatcher) DispatchFor(ctx context.Context, now time.Time) Result {
	date := now.In(d.location)
	res := Result{Date: plan.FormatDate(date)}

	entry, ok := d.table.EntryForDate(date)
	if !ok {
		d.logger.InfoContext(ctx, "no reading for date, nothing sent", slog.String("date", res.Date))
		return res
	}
	res.Found = true
	res.Day = entry.Day

	body := FormatMessage(entry)
	for _, to := range d.recipients {
		id, err := d.sender.Send(ctx, to, body)
		if err != nil {
			res.Failed++
			d.logger.ErrorContext(ctx, "send failed",
				slog.String("recipient", to),
				slog.Int("day", entry.Day),
				slog.String("error", err.Error()),
			)
		} else {
			res.Sent++
			d.logger.InfoContext(ctx, "reading sent",
				slog.String("recipient", to),
				slog.Int("day", entry.Day),
				slog.String("message_id", id),
			)
		}
		d.record(ctx, entry, to, id, err)
	}

	d.logger.InfoContext(ctx, "dispatch complete",
		slog.String("date", res.Date),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
	)
	return res
}

func (d *Dispatcher) record(ctx context.Context, entry plan.Entry, to, id string, sendErr error) {
	if d.recorder == nil {
		return
	}

	logEntry := &database.DispatchLogEntry{
		PlanDate:  entry.Date,
		PlanDay:   entry.Day,
		Recipient: to,
		Success:   sendErr == nil,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		logEntry.ErrorMessage = &msg
	} else if id != "" {
		logEntry.ProviderID = &id
	}

	if err := d.recorder.LogDispatch(ctx, logEntry); err != nil {
		d.logger.WarnContext(ctx, "failed to record dispatch",
			slog.String("recipient", to),
			slog.String("error", err.Error()),
		)
	}
}
