package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds a request, including a synchronous dispatch.
const requestTimeout = 60 * time.Second

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET  /                  liveness message
//	GET  /health            store health and loaded plan size
//	GET  /reading/today     today's entry
//	GET  /reading/range     entries between start and end (query params)
//	GET  /reading/{date}    entry for a YYYY-MM-DD date
//	GET  /send_message      dispatch today's reading now
//	POST /webhook           inbound command (form or JSON)
//	GET  /dispatches        recent dispatch attempts
func SetupRoutes(handlers *Handlers, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware())
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/", handlers.Root)
	r.Get("/health", handlers.HealthCheck)

	r.Route("/reading", func(r chi.Router) {
		r.Get("/today", handlers.GetTodayReading)
		r.Get("/range", handlers.GetRangeReadings)
		r.Get("/{date}", handlers.GetDateReading)
	})

	r.Get("/send_message", handlers.SendMessage)
	r.Post("/webhook", handlers.Webhook)
	r.Get("/dispatches", handlers.GetDispatches)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found", "NOT_FOUND")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	return r
}
