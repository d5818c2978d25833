package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/tou/pkg/holiday"
	"github.com/raterudder/tou/pkg/log"
)

// parseYears accepts "2025" or "2024-2026".
func parseYears(s string) (int, int, error) {
	from, to, found := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q: %w", from, err)
	}
	if !found {
		return start, start, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q: %w", to, err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("year range %q is reversed", s)
	}
	return start, end, nil
}

func main() {
	now := time.Now()
	baseURL := lflag.String("holiday-url", holiday.DefaultURL, "Base URL serving <year>.json holiday records")
	years := lflag.String("years", fmt.Sprintf("%d-%d", now.Year(), now.Year()+1), "Year or range of years to copy, e.g. 2025 or 2024-2026")
	fs := holiday.ConfiguredFirestore()
	lflag.Configure()

	if err := log.Configure(); err != nil {
		panic(err)
	}
	ctx := context.Background()

	start, end, err := parseYears(*years)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid years", slog.Any("error", err))
		os.Exit(1)
	}

	if err := fs.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to init firestore", slog.Any("error", err))
		os.Exit(1)
	}
	defer fs.Close()

	src := holiday.NewHTTPSource(*baseURL)
	for year := start; year <= end; year++ {
		records, err := src.Records(ctx, year)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to fetch holidays", slog.Int("year", year), slog.Any("error", err))
			os.Exit(1)
		}
		if err := fs.Upsert(ctx, records); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to store holidays", slog.Int("year", year), slog.Any("error", err))
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "seeded holidays", slog.Int("year", year), slog.Int("records", len(records)))
	}
}
