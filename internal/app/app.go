package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sourcegraph/conc/pool"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/sportsdata-producer/db/migrations"
	"github.com/riskibarqy/sportsdata-producer/internal/config"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/inbox"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/jetstream"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/provider"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/sportsdata-producer/internal/interfaces/httpapi"
	"github.com/riskibarqy/sportsdata-producer/internal/observability"
	basecache "github.com/riskibarqy/sportsdata-producer/internal/platform/cache"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/resilience"
	"github.com/riskibarqy/sportsdata-producer/internal/schema"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

// App owns every long-running part of the producer.
type App struct {
	cfg        config.Config
	logger     *logging.Logger
	db         *sqlx.DB
	server     *http.Server
	relay      *outbox.Relay
	broker     *jetstream.Client
	subscriber *jetstream.Subscriber
	inbox      *inbox.Consumer
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	if cfg.MigrateOnStart {
		if err := migrate(cfg, logger); err != nil {
			return nil, err
		}
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger, db: db}

	ids := id.NewUUIDGenerator()
	writer := outbox.NewWriter(ids)

	var (
		venues           venue.Repository           = postgres.NewVenueRepository(db, writer)
		franchises       franchise.Repository       = postgres.NewFranchiseRepository(db, writer)
		franchiseSeasons franchiseseason.Repository = postgres.NewFranchiseSeasonRepository(db, writer)
	)
	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		venues = cache.NewVenueRepository(venues, store)
		franchises = cache.NewFranchiseRepository(franchises, store)
		franchiseSeasons = cache.NewFranchiseSeasonRepository(franchiseSeasons, store)
	}
	contests := postgres.NewContestRepository(db, writer)
	seasons := postgres.NewSeasonRepository(db, writer)
	outboxRepo := postgres.NewOutboxRepository(db, writer)

	fetcher := provider.NewClient(provider.ClientConfig{
		UserAgent:    cfg.ProviderUserAgent,
		Timeout:      cfg.ProviderTimeout,
		MaxRetries:   cfg.ProviderMaxRetries,
		RetryBackoff: cfg.ProviderRetryBackoff,
		CacheTTL:     cfg.ProviderCacheTTL,
		Logger:       logger.Named("provider"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ProviderCircuitEnabled,
			FailureThreshold: cfg.ProviderCircuitFailureCount,
			OpenTimeout:      cfg.ProviderCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ProviderCircuitHalfOpenMaxReq,
		},
	})

	documents := usecase.NewDocumentService(usecase.DocumentServiceDeps{
		Venues:           venues,
		Franchises:       franchises,
		FranchiseSeasons: franchiseSeasons,
		Seasons:          seasons,
		GroupSeasons:     postgres.NewGroupSeasonRepository(db, writer),
		Contests:         contests,
		Odds:             postgres.NewOddsRepository(db, writer),
		Events:           outboxRepo,
		Fetcher:          fetcher,
		IDs:              ids,
		Logger:           logger.Named("documents"),
	})

	deps := httpapi.HandlerDeps{
		Documents:  documents,
		Contests:   usecase.NewContestService(contests, franchiseSeasons, ids, logger.Named("contests")),
		Enrichment: usecase.NewEnrichmentService(franchiseSeasons, contests, ids, cfg.EnrichmentWorkers, logger.Named("enrichment")),
		Metrics:    usecase.NewMetricService(postgres.NewFranchiseSeasonMetricRepository(db), franchiseSeasons, ids, logger.Named("metrics")),
		Catalog:    usecase.NewCatalogService(franchises, franchiseSeasons, venues, seasons),
		Migrations: migrations.FS,
		Logger:     logger,
	}

	if cfg.NATSEnabled {
		if err := a.connectBroker(ctx, documents, ids); err != nil {
			_ = db.Close()
			return nil, err
		}
		deps.Outbox = a.relay
	}

	a.server = &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.NewHandler(deps), httpapi.RouterConfig{
			SwaggerEnabled:     cfg.SwaggerEnabled,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			InternalJobToken:   cfg.InternalJobToken,
		}, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return a, nil
}

func (a *App) connectBroker(ctx context.Context, documents *usecase.DocumentService, ids id.Generator) error {
	cfg := a.cfg
	eventsSubjects := []string{cfg.NATSSubjectPrefix + ".>"}

	broker, err := jetstream.Dial(jetstream.Config{
		URL:             cfg.NATSURL,
		ConnectionName:  cfg.NATSConnectionName,
		MaxReconnects:   cfg.NATSMaxReconnects,
		ReconnectWait:   cfg.NATSReconnectWait,
		EventsStream:    cfg.NATSEventsStream,
		EventsSubjects:  eventsSubjects,
		DocumentsStream: cfg.NATSDocumentsStream,
	}, jetstream.NewConnector(), a.logger.Named("nats"))
	if err != nil {
		return err
	}
	if err := broker.EnsureStream(ctx, cfg.NATSEventsStream, eventsSubjects, cfg.NATSDedupeWindow); err != nil {
		broker.Close()
		return err
	}
	if err := broker.EnsureStream(ctx, cfg.NATSDocumentsStream, []string{cfg.NATSDocumentsSubject}, cfg.NATSDedupeWindow); err != nil {
		broker.Close()
		return err
	}

	a.broker = broker
	a.relay = outbox.NewRelay(a.db, broker, outbox.RelayConfig{
		SubjectPrefix:   cfg.NATSSubjectPrefix,
		Workers:         cfg.RelayWorkers,
		ChunkSize:       cfg.RelayChunkSize,
		MaxStatesPerRun: cfg.RelayMaxStatesPerRun,
	}, a.logger.Named("outbox"))
	a.inbox = inbox.NewConsumer(
		postgres.NewInboxRepository(a.db, ids),
		cfg.InboxConsumerID,
		NewDocumentHandler(documents, a.logger.Named("inbox")),
		a.logger.Named("inbox"),
	)
	a.subscriber = broker.Subscriber(jetstream.SubscriberConfig{
		Stream:        cfg.NATSDocumentsStream,
		Durable:       cfg.NATSConsumerDurable,
		FilterSubject: cfg.NATSDocumentsSubject,
		AckWait:       cfg.NATSAckWait,
		MaxDeliver:    cfg.NATSMaxDeliver,
		MaxInFlight:   cfg.NATSMaxInFlight,
		NakDelay:      cfg.NATSNakDelay,
	})
	return nil
}

// Run serves HTTP and, when the broker is enabled, runs the outbox relay,
// the document subscriber and inbox cleanup until ctx is done or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	p.Go(func(ctx context.Context) error {
		a.logger.InfoContext(ctx, "http server starting", "addr", a.cfg.HTTPAddr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		a.logger.Info("http server stopped")
		return nil
	})

	if a.relay != nil {
		p.Go(func(ctx context.Context) error {
			var err error
			observability.WithComponent(ctx, "outbox-relay", func(ctx context.Context) {
				err = a.relay.Run(ctx, a.cfg.RelayInterval)
			})
			return ignoreCanceled(err)
		})
	}
	if a.subscriber != nil {
		p.Go(func(ctx context.Context) error {
			var err error
			observability.WithComponent(ctx, "document-consumer", func(ctx context.Context) {
				err = a.subscriber.Run(ctx, a.consumeDocument)
			})
			return ignoreCanceled(err)
		})
		p.Go(func(ctx context.Context) error {
			return a.runInboxCleanup(ctx)
		})
	}

	return p.Wait()
}

func (a *App) consumeDocument(ctx context.Context, msg inbox.Message) error {
	_, err := a.inbox.Handle(ctx, msg)
	return err
}

func (a *App) runInboxCleanup(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.InboxCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := a.inbox.Cleanup(ctx, a.cfg.InboxRetention); err != nil && ctx.Err() == nil {
				a.logger.WarnContext(ctx, "inbox cleanup failed", "error", err)
			}
		}
	}
}

// Close releases the broker and database connections.
func (a *App) Close() error {
	if a.broker != nil {
		a.broker.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.ServiceName),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	otelsql.ReportDBStatsMetrics(db.DB)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func migrate(cfg config.Config, logger *logging.Logger) error {
	runner, err := schema.NewRunner(migrations.FS, ".", normalizeDBURL(cfg.DBURL, cfg.ServiceName), logger.Named("migrate"))
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	defer runner.Close()

	changed, err := runner.Up()
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied on start", "changed", changed)
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
