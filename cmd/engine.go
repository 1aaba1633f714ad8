package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tidylist/contactscan/internal/backup"
	"github.com/tidylist/contactscan/internal/classify"
	"github.com/tidylist/contactscan/internal/cleanup"
	"github.com/tidylist/contactscan/internal/dedupe"
	"github.com/tidylist/contactscan/internal/oplock"
	"github.com/tidylist/contactscan/internal/phone"
	"github.com/tidylist/contactscan/internal/scan"
	"github.com/tidylist/contactscan/internal/store"
)

// engine is the statically constructed dependency graph, built once per
// command invocation.
type engine struct {
	store    store.Store
	handler  phone.Handler
	pipeline *scan.Pipeline
	executor *cleanup.Executor
	ledger   *backup.Ledger
}

// openStore opens the configured backend and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store database_url is required for the postgres driver (CONTACTSCAN_STORE_DATABASE_URL)")
		}
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "sqlite", "":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildEngine wires the full dependency graph over an open store.
func buildEngine(s store.Store) *engine {
	handler := phone.NewLibHandler()
	text := classify.NewUnicodeTextAnalyzer()
	guard := &oplock.Guard{}

	pipeline := scan.NewPipeline(
		s, s,
		handler,
		classify.NewJunkClassifier(text),
		classify.NewSensitiveDetector(handler),
		classify.NewFormatAnalyzer(handler),
		dedupe.NewResolver(handler, cfg.Region, cfg.Dedupe.SimilarityThreshold),
		guard,
		scan.Config{DefaultRegion: cfg.Region, BatchSize: cfg.Scan.BatchSize},
	)

	ledger := backup.NewLedger(s, cfg.Backup.MaxAge(), cfg.Backup.MaxCount)
	executor := cleanup.NewExecutor(s, ledger, guard, cfg.Cleanup.MutationsPerSecond)

	return &engine{
		store:    s,
		handler:  handler,
		pipeline: pipeline,
		executor: executor,
		ledger:   ledger,
	}
}
