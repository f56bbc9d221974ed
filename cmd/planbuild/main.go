// Command planbuild generates the 365-day reading plan file read by the server.
//
// Usage:
//
//	go run ./cmd/planbuild -out reading_plan.json -start 2025-01-01
//	go run ./cmd/planbuild -books books.yaml -out reading_plan.json
//
// The output replaces any existing plan. It is written to a temporary file
// first, so a failed run leaves the previous plan untouched.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/zapponejosh/readingplan-bot/internal/plan"
)

type options struct {
	out       string
	start     string
	booksPath string
}

func main() {
	var opts options
	flag.StringVar(&opts.out, "out", "reading_plan.json", "Path of the generated plan")
	flag.StringVar(&opts.start, "start", plan.FormatDate(plan.DefaultAnchor), "Date of day 1 (YYYY-MM-DD)")
	flag.StringVar(&opts.booksPath, "books", "", "Optional YAML book table replacing the built-in one")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := run(opts, logger); err != nil {
		logger.Error("plan generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	anchor, err := plan.ParseDate(opts.start)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}

	corpus := plan.DefaultCorpus()
	if opts.booksPath != "" {
		f, err := os.Open(opts.booksPath)
		if err != nil {
			return fmt.Errorf("open book table: %w", err)
		}
		defer f.Close()

		corpus, err = plan.LoadCorpus(f)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.booksPath, err)
		}
		logger.Info("using book table", slog.String("path", opts.booksPath))
	}

	logger.Debug("flattened corpus",
		slog.Int("old_testament", len(plan.Flatten(corpus.OldTestament))),
		slog.Int("new_testament", len(plan.Flatten(corpus.NewTestament))),
		slog.Int("psalm_or_gospel", len(plan.Flatten(corpus.PsalmOrGospel))),
	)

	entries := plan.Build(corpus, anchor)
	if err := plan.WriteFile(opts.out, entries); err != nil {
		return err
	}

	logger.Info("reading plan written",
		slog.String("path", opts.out),
		slog.Int("days", len(entries)),
		slog.String("first", entries[0].Date),
		slog.String("last", entries[len(entries)-1].Date),
	)
	return nil
}
