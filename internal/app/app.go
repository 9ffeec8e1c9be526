// Package app initializes and holds the long-lived services: the
// store, locker, event publisher, page archive and provider clients.
// It is the dependency injection container the commands build on.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	guuid "github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/api"
	"github.com/leadtrail/leadtrail/internal/archive"
	"github.com/leadtrail/leadtrail/internal/archive/gcs"
	"github.com/leadtrail/leadtrail/internal/archive/local"
	"github.com/leadtrail/leadtrail/internal/clock/system"
	"github.com/leadtrail/leadtrail/internal/config"
	"github.com/leadtrail/leadtrail/internal/contacts"
	"github.com/leadtrail/leadtrail/internal/events"
	"github.com/leadtrail/leadtrail/internal/hunt"
	"github.com/leadtrail/leadtrail/internal/hunterio"
	uuidgen "github.com/leadtrail/leadtrail/internal/id/uuid"
	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/linkedin"
	lockmem "github.com/leadtrail/leadtrail/internal/locks/memory"
	lockpg "github.com/leadtrail/leadtrail/internal/locks/postgres"
	"github.com/leadtrail/leadtrail/internal/logging"
	"github.com/leadtrail/leadtrail/internal/metrics"
	"github.com/leadtrail/leadtrail/internal/registry"
	"github.com/leadtrail/leadtrail/internal/serp"
	"github.com/leadtrail/leadtrail/internal/snovio"
	storemem "github.com/leadtrail/leadtrail/internal/store/memory"
	storepg "github.com/leadtrail/leadtrail/internal/store/postgres"
	"github.com/leadtrail/leadtrail/internal/tasks"
	"github.com/leadtrail/leadtrail/internal/vat"
)

// App holds the shared, long-lived services for the service. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	logger    *zap.Logger
	cfg       config.Config
	store     lead.Store
	locker    lead.Locker
	publisher lead.Publisher
	archive   lead.BlobStore
	clock     lead.Clock
	ids       lead.IDGenerator

	gcsClient *storage.Client
	renderer  *hunt.ChromeRenderer
	hunter    *hunterio.Client
	snov      *snovio.Client
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Store returns the persistence provider.
func (a *App) Store() lead.Store { return a.store }

// Locker returns the singleton-task lock provider.
func (a *App) Locker() lead.Locker { return a.locker }

// NewApp creates and initializes the App from the Viper configuration.
// It fails fast when any critical service cannot be initialized.
func NewApp(ctx context.Context) (*App, error) {
	l := logging.L
	l.Info("initializing application services")

	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	metrics.Init()

	a := &App{
		logger: l,
		cfg:    cfg,
		clock:  system.New(),
		ids:    uuidgen.New(),
	}

	if err := a.initStoreAndLocks(ctx); err != nil {
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		return nil, err
	}
	if err := a.initArchive(ctx); err != nil {
		return nil, err
	}
	a.initOptionalClients()

	go serveMetrics(cfg.Metrics.Port, l)

	l.Info("application services initialized")
	return a, nil
}

func (a *App) initStoreAndLocks(ctx context.Context) error {
	provider := viper.GetString("database.provider")
	switch provider {
	case "postgres":
		pool, err := storepg.NewPool(ctx, storepg.Config{
			DSN:             viper.GetString("database.postgres.dsn"),
			MaxConns:        viper.GetInt32("database.postgres.max_conns"),
			MinConns:        viper.GetInt32("database.postgres.min_conns"),
			MaxConnLifetime: viper.GetDuration("database.postgres.max_conn_lifetime"),
		})
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		store, err := storepg.NewWithPool(pool)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		a.logger.Info("using postgres store")
		a.store = store

		switch locks := viper.GetString("locks.provider"); locks {
		case "", "postgres":
			a.locker = lockpg.New(pool, lockHolder(), a.clock)
		case "memory":
			a.locker = lockmem.New(a.clock)
		default:
			return fmt.Errorf("unknown locks provider: %s", locks)
		}
	case "memory":
		a.logger.Info("using in-memory store; data is lost on restart")
		a.store = storemem.New()
		a.locker = lockmem.New(a.clock)
	default:
		return fmt.Errorf("unknown database provider: %s", provider)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	switch provider := viper.GetString("events.provider"); provider {
	case "pubsub":
		projectID := viper.GetString("events.gcp.project_id")
		topicID := viper.GetString("events.gcp.topic_id")
		if projectID == "" || topicID == "" {
			return fmt.Errorf("events provider is 'pubsub' but project_id or topic_id is not set")
		}
		a.logger.Info("publishing stage events to pub/sub", zap.String("topic", topicID))
		pub, err := events.NewPubSubPublisher(ctx, projectID, topicID, a.logger)
		if err != nil {
			return fmt.Errorf("initialize events: %w", err)
		}
		a.publisher = pub
	case "", "noop":
		a.logger.Info("stage events disabled")
		a.publisher = events.Noop{}
	default:
		return fmt.Errorf("unknown events provider: %s", provider)
	}
	return nil
}

func (a *App) initArchive(ctx context.Context) error {
	switch provider := viper.GetString("archive.provider"); provider {
	case "gcs":
		bucket := viper.GetString("archive.gcs.bucket")
		if bucket == "" {
			return fmt.Errorf("archive provider is 'gcs' but archive.gcs.bucket is not set")
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("initialize archive: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: bucket})
		if err != nil {
			return fmt.Errorf("initialize archive: %w", err)
		}
		a.logger.Info("archiving crawled pages to gcs", zap.String("bucket", bucket))
		a.gcsClient = client
		a.archive = store
	case "local":
		store, err := local.New(local.Config{BaseDir: viper.GetString("archive.local.base_dir")})
		if err != nil {
			return fmt.Errorf("initialize archive: %w", err)
		}
		a.logger.Info("archiving crawled pages locally")
		a.archive = store
	case "", "noop":
		a.logger.Info("page archiving disabled")
		a.archive = archive.Noop{}
	default:
		return fmt.Errorf("unknown archive provider: %s", provider)
	}
	return nil
}

// initOptionalClients builds the quota-bearing provider clients when
// credentials are configured. Missing credentials just hide the
// corresponding quota from the API; the run command checks for them
// separately.
func (a *App) initOptionalClients() {
	if a.cfg.Hunter.APIKey != "" {
		client, err := hunterio.New(hunterio.Config{
			BaseURL: a.cfg.Hunter.BaseURL,
			APIKey:  a.cfg.Hunter.APIKey,
			Timeout: a.cfg.HTTPTimeout(),
		}, a.logger)
		if err == nil {
			a.hunter = client
		}
	}
	if a.cfg.Snov.ClientID != "" && a.cfg.Snov.ClientSecret != "" {
		client, err := snovio.New(snovio.Config{
			BaseURL:      a.cfg.Snov.BaseURL,
			ClientID:     a.cfg.Snov.ClientID,
			ClientSecret: a.cfg.Snov.ClientSecret,
			Timeout:      a.cfg.HTTPTimeout(),
		}, a.logger)
		if err == nil {
			a.snov = client
		}
	}
}

// Tasks builds the full pipeline task set. It requires the provider
// credentials and fails fast when any client cannot be constructed.
func (a *App) Tasks() ([]tasks.Task, error) {
	deps := tasks.Deps{
		Store:     a.store,
		IDs:       a.ids,
		Clock:     a.clock,
		Publisher: a.publisher,
		Logger:    a.logger,
	}

	registryClient, err := registry.New(registry.Config{
		BaseURL:   a.cfg.Registry.BaseURL,
		APIKey:    a.cfg.Registry.APIKey,
		UserAgent: a.cfg.HTTP.UserAgent,
		Timeout:   a.cfg.HTTPTimeout(),
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize registry client: %w", err)
	}

	vatClient, err := vat.New(vat.Config{
		SearchURL: a.cfg.VAT.SearchURL,
		ProxyURL:  a.cfg.VAT.ProxyURL,
		Timeout:   a.cfg.HTTPTimeout(),
		UserAgent: a.cfg.HTTP.UserAgent,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize vat client: %w", err)
	}

	serpClient, err := serp.New(serp.Config{
		BaseURL: a.cfg.SERP.BaseURL,
		APIKey:  a.cfg.SERP.APIKey,
		Timeout: a.cfg.HTTPTimeout(),
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize serp client: %w", err)
	}

	if a.hunter == nil {
		return nil, fmt.Errorf("hunter.api_key is required to run the pipeline")
	}
	if a.snov == nil {
		return nil, fmt.Errorf("snov.client_id and snov.client_secret are required to run the pipeline")
	}

	var renderer hunt.Renderer
	if a.cfg.Hunt.HeadlessFallback {
		a.renderer = hunt.NewChromeRenderer(a.cfg.HTTPTimeout())
		renderer = a.renderer
	}
	ranker := hunt.NewRanker(hunt.Config{
		MaxTargetPages:     a.cfg.Hunt.MaxTargetPages,
		MaxAdditionalPages: a.cfg.Hunt.MaxAdditionalPages,
		MaxConcurrentSites: a.cfg.Hunt.MaxConcurrentSites,
		Delay:              time.Duration(a.cfg.Hunt.DelaySeconds) * time.Second,
		Timeout:            a.cfg.HTTPTimeout(),
		UserAgent:          a.cfg.HTTP.UserAgent,
		HeadlessFallback:   a.cfg.Hunt.HeadlessFallback,
	}, a.logger, a.archive, renderer, a.clock)

	crawler := contacts.NewCrawler(contacts.Config{
		MaxPages:  a.cfg.Contacts.MaxPages,
		Timeout:   a.cfg.HTTPTimeout(),
		UserAgent: a.cfg.HTTP.UserAgent,
	}, a.logger, a.archive, a.clock)

	finder := linkedin.NewFinder(serpClient, a.logger)

	return []tasks.Task{
		tasks.NewRegistryTask(deps, registryClient, tasks.Schedule{
			BatchSize: a.cfg.Registry.BatchSize,
			Interval:  a.cfg.Interval(),
			LockTTL:   a.cfg.DefaultLockExpiry(),
		}, time.Duration(a.cfg.Registry.PauseSeconds)*time.Second),
		tasks.NewVATTask(deps, vatClient, tasks.Schedule{
			BatchSize: a.cfg.VAT.BatchSize,
			Interval:  a.cfg.Interval(),
			LockTTL:   a.cfg.VATLockExpiry(),
		}),
		tasks.NewHuntTask(deps, serpClient, ranker, tasks.Schedule{
			BatchSize: a.cfg.Hunt.BatchSize,
			Interval:  a.cfg.Interval(),
			LockTTL:   a.cfg.HuntLockExpiry(),
		}),
		tasks.NewContactsTask(deps, crawler, tasks.Schedule{
			BatchSize: a.cfg.Contacts.BatchSize,
			Interval:  a.cfg.ContactsInterval(),
			LockTTL:   a.cfg.ContactsLockExpiry(),
		}),
		tasks.NewLinkedInTask(deps, finder, tasks.Schedule{
			BatchSize: a.cfg.LinkedIn.BatchSize,
			Interval:  a.cfg.Interval(),
			LockTTL:   a.cfg.DefaultLockExpiry(),
		}),
		tasks.NewHunterTask(deps, a.hunter, tasks.Schedule{
			BatchSize: a.cfg.Hunter.BatchSize,
			Interval:  a.cfg.Interval(),
			LockTTL:   a.cfg.DefaultLockExpiry(),
		}),
		tasks.NewSnovTask(deps, a.snov, tasks.Schedule{
			BatchSize: a.cfg.Snov.BatchSize,
			Interval:  a.cfg.Interval(),
			LockTTL:   a.cfg.DefaultLockExpiry(),
		}),
		tasks.NewQuotaTask(deps, serpClient),
	}, nil
}

// APIServer builds the operational HTTP server. The hunter and snov
// quota providers are optional; nil hides them from /v1/quotas.
func (a *App) APIServer() *api.Server {
	var hunter api.HunterQuota
	if a.hunter != nil {
		hunter = a.hunter
	}
	var snov api.SnovBalance
	if a.snov != nil {
		snov = a.snov
	}
	return api.NewServer(a.store, a.ids, a.clock, a.cfg, hunter, snov)
}

// QuotaSnapshot is a point-in-time view of every provider balance.
// Hunter and Snov are nil when their credentials are not configured.
type QuotaSnapshot struct {
	SERP   lead.SERPQuota
	Hunter *hunterio.Quota
	Snov   *float64
}

// Quotas reads the stored search balance and polls the configured
// providers live.
func (a *App) Quotas(ctx context.Context) (QuotaSnapshot, error) {
	serpQuota, err := a.store.GetSERPQuota(ctx)
	if err != nil {
		return QuotaSnapshot{}, fmt.Errorf("read search quota: %w", err)
	}
	snap := QuotaSnapshot{SERP: serpQuota}

	if a.hunter != nil {
		quota, err := a.hunter.CheckQuota(ctx)
		if err != nil {
			return snap, fmt.Errorf("check hunter quota: %w", err)
		}
		snap.Hunter = &quota
	}
	if a.snov != nil {
		balance, err := a.snov.CheckBalance(ctx)
		if err != nil {
			return snap, fmt.Errorf("check snov balance: %w", err)
		}
		snap.Snov = &balance
	}
	return snap, nil
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing event publisher", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("error closing archive client", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	// Flush buffered log entries; stderr may already be gone, so this
	// is best effort.
	_ = a.logger.Sync()
}

// lockHolder identifies this node in the shared lease table.
func lockHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "leadtrail"
	}
	return host + "-" + guuid.NewString()
}

func serveMetrics(port int, l *zap.Logger) {
	if port <= 0 {
		port = 9090
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	addr := fmt.Sprintf(":%d", port)
	l.Info("starting metrics server", zap.String("addr", addr))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		l.Error("metrics server failed", zap.Error(err))
	}
}
