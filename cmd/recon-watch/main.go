package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledgerrecon/internal/cache"
	"ledgerrecon/internal/config"
	"ledgerrecon/internal/logger"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/source"
	"ledgerrecon/internal/storage"
	"ledgerrecon/internal/watch"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log := logger.NewWithOptions(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	set, err := rules.Load(cfg.RulesPath)
	must(err)
	memo, err := cache.New(cfg, db)
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	loader := source.New(ctx, cfg, memo, log)
	svc := watch.NewService(db, cfg, memo, loader, set, log)
	log.Info().Str("schedule", cfg.WatchSchedule).Strs("sources", cfg.WatchSources).Str("mail", cfg.WatchMailProvider).Msg("watch started")
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
