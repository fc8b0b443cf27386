package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/traditional-medicine/mapcurator/internal/ai"
	"github.com/traditional-medicine/mapcurator/internal/config"
	"github.com/traditional-medicine/mapcurator/internal/core"
	_ "github.com/traditional-medicine/mapcurator/internal/core/systems" // Register all systems
	"github.com/traditional-medicine/mapcurator/internal/logging"
	"github.com/traditional-medicine/mapcurator/internal/lookup"
	"github.com/traditional-medicine/mapcurator/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"ai_enabled", cfg.AI.Enabled,
		"lookup_enabled", cfg.Lookup.Enabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	store := core.NewPGStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// AI justification client. Without a key, mappings get placeholder
	// justifications and curation continues.
	var justifier core.Justifier
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		justifier = ai.NewClient(ai.Config{
			APIKey:    cfg.AI.APIKey,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		})
	} else {
		slog.Warn("AI justifications disabled, placeholders will be stored")
	}

	// External classification lookup for entry enrichment.
	var resolver core.EntryResolver
	if cfg.Lookup.Enabled {
		resolver = lookup.NewClient(lookup.Config{
			BaseURL:      cfg.Lookup.BaseURL,
			TokenURL:     cfg.Lookup.TokenURL,
			ClientID:     cfg.Lookup.ClientID,
			ClientSecret: cfg.Lookup.ClientSecret,
			Scopes:       cfg.Lookup.Scopes,
			Timeout:      cfg.Lookup.Timeout,
		})
	}

	// One reference file per registered system, resolved against the
	// reference directory.
	sources := core.IngestSources{
		SuggestionFile: cfg.Ingestion.SuggestionFile,
		ReferenceFiles: make(map[core.System]string),
	}
	for _, profile := range core.AllProfiles() {
		sources.ReferenceFiles[profile.System] = filepath.Join(cfg.Ingestion.ReferenceDir, profile.ReferenceFile)
	}
	slog.Info("systems registered", "count", len(sources.ReferenceFiles))

	ingestor := core.NewIngestor(store, sources, cfg.Ingestion.SourceLabel)
	lifecycle := core.NewLifecycle(store, justifier)
	reset := core.NewResetManager(store, ingestor, cfg.Ingestion.ArtifactPaths)

	server := web.NewServer(web.Deps{
		Lifecycle: lifecycle,
		Enricher:  core.NewEnricher(store, resolver),
		Reset:     reset,
		Stats:     core.NewStats(store, reset),
	}, cfg.Server, cfg.Rate, cfg.Security)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if reset.Running() {
			slog.Warn("reset job still running, it will continue until done")
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
