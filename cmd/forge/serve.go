package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/forge"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/mutator"
	"github.com/pflow-xyz/go-forge/server"
)

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (overrides FORGE_ADDR)")
	manifest := fs.String("manifest", "", "World manifest to load (overrides FORGE_MANIFEST)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge serve [options]

Run the crafting engine behind an HTTP API with a websocket event feed
on /ws.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  FORGE_ADDR            Listen address (default :8080)
  FORGE_ADMIN           Publisher administrator identity (default publisher)
  FORGE_OPEN_CREATION   Allow any caller to create item types
  FORGE_JOURNAL_PATH    SQLite journal file (default in-memory)
  FORGE_MANIFEST        World manifest loaded on boot
  FORGE_MUTATOR_BUDGET  Time budget per mutator call (default 250ms)
  FORGE_OTEL_ENDPOINT   OTLP endpoint for trace export

Examples:
  # In-memory world, open creation
  FORGE_OPEN_CREATION=true forge serve

  # Durable journal and a preloaded world
  FORGE_JOURNAL_PATH=journal.db forge serve --manifest world.yaml
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := server.FromEnv()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *manifest != "" {
		cfg.Manifest = *manifest
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := server.SetupTracing(ctx, "go-forge", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	var store journal.Store
	if cfg.JournalPath != "" {
		store, err = journal.NewSQLite(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		log.Info("journal opened", "path", cfg.JournalPath)
	} else {
		store = journal.NewMemory()
	}
	defer store.Close()

	feed := server.NewFeed(log)
	engine := forge.New(forge.Config{
		Admin:           cfg.Admin,
		CreationEnabled: cfg.OpenCreation,
		Journal:         server.Broadcast(store, feed),
		Logger:          log,
		MutatorBudget:   cfg.MutatorBudget,
	})

	if cfg.Manifest != "" {
		if err := loadWorld(ctx, engine, cfg.Admin, cfg.Manifest); err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		log.Info("manifest loaded", "path", cfg.Manifest,
			"atoms", engine.Atoms().Len(), "items", len(engine.Items()))
	}

	srv := server.New(engine, server.WithLogger(log), server.WithFeed(feed))
	httpServer := &http.Server{Addr: cfg.Addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(sctx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// loadWorld applies a manifest to a fresh engine: scripts first so item
// cross-checks resolve, then atoms, then item types in declaration
// order. Items marked frozen are frozen after creation so the journal
// records the transition.
func loadWorld(ctx context.Context, engine *forge.Engine, admin, path string) error {
	m, err := blueprint.LoadManifest(path)
	if err != nil {
		return err
	}

	scripts := make(map[string]string, len(m.Scripts))
	for _, s := range m.Scripts {
		scripts[s.ID] = s.Source
	}
	if err := mutator.CompileFromManifest(engine.Mutators(), scripts); err != nil {
		return err
	}

	for _, def := range m.Atoms {
		if err := engine.RegisterAtom(ctx, admin, def); err != nil {
			return fmt.Errorf("atom %q: %w", def.Name, err)
		}
	}

	for _, it := range m.Items {
		frozen := it.Frozen
		it.Frozen = false
		id, err := engine.CreateItem(ctx, admin, it)
		if err != nil {
			return fmt.Errorf("item %q: %w", it.Name, err)
		}
		if frozen {
			if err := engine.FreezeItem(ctx, admin, id); err != nil {
				return fmt.Errorf("item %q: %w", it.Name, err)
			}
		}
	}
	return nil
}
