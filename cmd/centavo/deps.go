package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"centavo/internal/domain/category"
	"centavo/internal/domain/mission"
	"centavo/internal/domain/notification"
	"centavo/internal/infrastructure/cache"
	"centavo/internal/infrastructure/crypto"
	"centavo/internal/infrastructure/postgres"
	"centavo/internal/infrastructure/remote"
	"centavo/internal/ledger"
	"centavo/internal/report"
	"centavo/internal/shared/config"
	"centavo/internal/shared/telemetry"
	"centavo/internal/syncqueue"
)

// Dependencies wires the full engine: durable cache, remote backend, sync
// queue, ledger store and the derived engines.
type Dependencies struct {
	Config   *config.Config
	Cache    cache.Store
	Queue    *syncqueue.Queue
	Store    *ledger.Store
	Reports  *report.Engine
	Missions *mission.Engine

	db           *postgres.DB
	shutdownOTel func(context.Context) error
}

func buildDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	deps := &Dependencies{Config: cfg}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:   cfg.Telemetry.ServiceName,
			OTLPEndpoint:  cfg.Telemetry.OTLPEndpoint,
			MetricsPort:   cfg.Telemetry.MetricsPort,
			UserID:        cfg.User.ID,
			RemoteBackend: cfg.Remote.Backend,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		deps.shutdownOTel = shutdown
	}

	var enc *crypto.Encryptor
	if cfg.Encryption.Key != "" {
		enc, err = crypto.NewEncryptor(cfg.Encryption.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
	}

	store, err := cache.NewSQLiteStore(cfg.Cache.Path, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", cfg.Cache.Path, err)
	}
	deps.Cache = store

	var remoteStore ledger.RemoteStore
	switch cfg.Remote.Backend {
	case config.RemotePostgres:
		db, err := postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		deps.db = db
		remoteStore = postgres.NewStore(db)
	default:
		remoteStore = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey)
	}

	resolver := category.NewResolver()
	if cfg.Category.KeywordsFile != "" {
		resolver, err = category.NewResolverFromFile(cfg.Category.KeywordsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load keyword dictionary: %w", err)
		}
	}

	queue := syncqueue.New(cfg.Sync.Workers, cfg.Sync.QueueSize)
	queue.Start()
	deps.Queue = queue

	deps.Store = ledger.NewStore(ledger.Options{
		Remote:   remoteStore,
		Cache:    store,
		Queue:    queue,
		Notifier: notification.LogNotifier{},
		Resolver: resolver,
	})
	deps.Reports = report.NewEngine()
	deps.Missions = mission.NewEngine(store, deps.Store, nil, cfg.User.ID)

	return deps, nil
}

func (d *Dependencies) Close() {
	if d.Queue != nil {
		d.Queue.Shutdown(10 * time.Second)
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			log.Printf("cache close: %v", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Printf("database close: %v", err)
		}
	}
	if d.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.shutdownOTel(ctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}
}
