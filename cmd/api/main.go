// Package main is the entry point for the reading plan bot server.
//
// It loads the generated reading plan, opens the progress store, starts
// the daily dispatch timer and serves the webhook and query endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zapponejosh/readingplan-bot/internal/api"
	"github.com/zapponejosh/readingplan-bot/internal/bot"
	"github.com/zapponejosh/readingplan-bot/internal/config"
	"github.com/zapponejosh/readingplan-bot/internal/database"
	"github.com/zapponejosh/readingplan-bot/internal/logger"
	"github.com/zapponejosh/readingplan-bot/internal/messaging"
	"github.com/zapponejosh/readingplan-bot/internal/plan"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup structured logging
	log := logger.Setup(cfg)

	log.Info("starting reading plan bot",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.MessagingProvider),
		slog.String("timezone", cfg.Timezone),
		slog.String("dispatch_time", cfg.DispatchTime),
		slog.Int("recipients", len(cfg.Recipients)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("reading plan bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Progress store
	location := cfg.DatabasePath
	if cfg.DatabaseURL != "" {
		location = cfg.DatabaseURL
	}
	db, err := database.Open(database.DefaultConfig(location), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if applied > 0 {
		log.Info("applied migrations", slog.Int("count", applied))
	}

	// A missing plan is not fatal; lookups report no reading.
	table, err := plan.Load(cfg.PlanPath)
	if err != nil {
		log.Error("failed to load reading plan, continuing with an empty plan",
			slog.String("path", cfg.PlanPath),
			slog.Any("error", err),
		)
		table = plan.NewTable(nil)
	} else {
		first, last := table.Range()
		log.Info("reading plan loaded",
			slog.Int("days", table.Len()),
			slog.String("first", first),
			slog.String("last", last),
		)
	}

	sender, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("messaging: %w", err)
	}

	dispatcher := bot.NewDispatcher(table, cfg.Recipients, sender, cfg.Location(), log,
		bot.WithRecorder(db),
	)
	commands := bot.NewCommandHandler(db, log)

	hour, minute, err := cfg.DispatchClock()
	if err != nil {
		return err
	}
	scheduler, err := bot.NewScheduler(dispatcher, hour, minute, log)
	if err != nil {
		return err
	}
	scheduler.Start()

	handlers := api.NewHandlers(db, table, commands, dispatcher, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.SetupRoutes(handlers, log),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Shut down on a signal or when the listener fails.
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http server shutdown", slog.Any("error", err))
		}
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Warn("scheduler did not stop in time", slog.Any("error", err))
		}
		return nil
	})

	return g.Wait()
}
