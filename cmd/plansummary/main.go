package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/plans"
)

func main() {
	file := lflag.String("plans-file", "", "YAML or JSON plans file to summarize, empty uses the built-in plans")
	output := lflag.String("output", "", "File to write the summary to, empty writes to stdout")
	lflag.Configure()

	if err := log.Configure(); err != nil {
		panic(err)
	}
	ctx := context.Background()

	decl, err := plans.DefaultDeclaration()
	if *file != "" {
		decl, err = plans.LoadFile(*file)
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load plans", slog.String("file", *file), slog.Any("error", err))
		os.Exit(1)
	}

	summary := plans.Summary(decl)
	if *output == "" {
		if _, err := os.Stdout.WriteString(summary); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := os.WriteFile(*output, []byte(summary), 0o644); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write summary", slog.String("output", *output), slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "wrote plans summary", slog.String("output", *output), slog.Int("plans", len(decl.Plans)))
}
