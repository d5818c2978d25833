package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/holiday"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/plans"
	"github.com/raterudder/tou/pkg/server"
)

func main() {
	// init packages
	src := holiday.Configured()
	cal := calendar.NewData(src)
	catalog := plans.Configured(cal)
	refresher := holiday.ConfiguredRefresher(cal)

	// init server
	srv := server.Configured(catalog, cal)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	if err := log.Configure(); err != nil {
		panic(err)
	}
	slog.Debug("logger configured")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// keeps the current and next year of holidays fresh in the background
	go refresher.Run(ctx)

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
