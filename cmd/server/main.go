// The atrium gateway serves every product site from one process: host-based
// routing, social login with replay-guarded callbacks, consent, and the ops
// endpoints. Business logic lives in the internal packages; main only wires.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"atrium/internal/audit"
	"atrium/internal/consent"
	"atrium/internal/email"
	"atrium/internal/identity"
	"atrium/internal/locale"
	"atrium/internal/oauth"
	"atrium/internal/oauthstate"
	"atrium/internal/platform/config"
	"atrium/internal/platform/httpserver"
	"atrium/internal/platform/logger"
	"atrium/internal/platform/metrics"
	"atrium/internal/platform/middleware"
	"atrium/internal/platform/postgres"
	platformredis "atrium/internal/platform/redis"
	"atrium/internal/platform/tracing"
	"atrium/internal/ratelimit"
	"atrium/internal/replayguard"
	"atrium/internal/seed"
	"atrium/internal/session"
	"atrium/internal/site"
	id "atrium/pkg/domain"
)

const stateSweepInterval = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogFormat, cfg.Server.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("gateway exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			return err
		}
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		log.Warn("no redis URL configured, replay guard and rate limits are per-process only")
	}

	// Stores: Postgres when a DSN is configured, memory otherwise. The
	// memory fallbacks keep local development dependency-free.
	var (
		siteStore     site.Store
		stateStore    oauthstate.Store
		identityStore identity.Store
		consentStore  consent.Store
		templateStore email.Store
	)
	if db != nil {
		siteStore = site.NewPostgresStore(db)
		stateStore = oauthstate.NewPostgresStore(db)
		identityStore = identity.NewPostgresStore(db)
		consentStore = consent.NewPostgresStore(db)
		templateStore = email.NewPostgresStore(db)
	} else {
		siteStore = site.NewMemoryStore()
		stateStore = oauthstate.NewMemoryStore()
		identityStore = identity.NewMemoryStore()
		consentStore = consent.NewMemoryStore()
		templateStore = email.NewMemoryStore()
	}

	registry, err := loadRegistry(ctx, cfg, siteStore, templateStore, identityStore, stateStore, log)
	if err != nil {
		return err
	}

	// Audit trail: always recorded in memory, fanned out to Kafka when
	// brokers are configured.
	auditMetrics := audit.NewMetrics()
	recorder := audit.NewRecorder(cfg.Audit.BufferSize, log, auditMetrics)
	memoryAudit := audit.NewMemoryPublisher()
	publisher := audit.Publisher(memoryAudit)
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(ctx, cfg.Audit)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = audit.Fanout{memoryAudit, kafka}
	}
	go recorder.Run(ctx, publisher)

	guard := newGuard(cfg.Guard, redisClient)
	sessions := session.NewManager(cfg.Session)
	mailer := email.NewService(templateStore, email.NewLogSender(log), log)
	oauthMetrics := oauth.NewMetrics()

	loginService := oauth.NewService(
		providerRegistry(cfg.OAuth),
		stateStore,
		guard,
		identityStore,
		sessions,
		recorder,
		mailer,
		log,
		oauthMetrics,
		cfg.OAuth.StateTTL,
		cfg.OAuth.CallbackBase,
	)
	consentService := consent.NewService(consentStore)

	limitStore := ratelimit.Store(ratelimit.NewMemoryStore())
	if redisClient != nil {
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
	}
	limiter := ratelimit.NewLimiter(limitStore, cfg.Limits.AuthPerWindow, cfg.Limits.AuthWindow)

	httpMetrics := metrics.New()
	dispatcher := site.NewDispatcher(registry, func(s *site.Site) chi.Router {
		return siteRouter(s, registry, cfg, log, httpMetrics, sessions, limiter, loginService, consentService)
	})

	gateway := httpserver.New(cfg.Server.Addr, otelhttp.NewHandler(dispatcher, "gateway"))
	ops := httpserver.New(cfg.Server.OpsAddr, opsRouter(db, redisClient))

	go sweepExpiredStates(ctx, loginService, log)

	errCh := make(chan error, 2)
	go func() {
		log.Info("gateway listening", "addr", cfg.Server.Addr, "sites", len(registry.All()))
		if err := gateway.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("ops listening", "addr", cfg.Server.OpsAddr)
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gateway.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ops.Shutdown(shutdownCtx)
}

// siteRouter builds the per-site middleware chain and mounts the handlers.
func siteRouter(
	s *site.Site,
	registry *site.Registry,
	cfg config.Config,
	log *slog.Logger,
	httpMetrics *metrics.Metrics,
	sessions *session.Manager,
	limiter *ratelimit.Limiter,
	loginService *oauth.Service,
	consentService *consent.Service,
) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metadata)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(httpMetrics))
	r.Use(site.Middleware(registry, s))
	r.Use(locale.NewNegotiator(s).Middleware)
	r.Use(consent.VisitorMiddleware(cfg.Session.Secure))
	r.Use(session.Middleware(sessions, s.SessionCookie, s.Key))

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, log, cfg.Limits.Disabled))
		oauth.NewHandler(loginService, sessions, s, log).Register(r)
	})
	consent.NewHandler(consentService, s, log).Register(r)

	return r
}

// loadRegistry reads the site table, seeding it first when empty so a fresh
// database boots into something usable.
func loadRegistry(
	ctx context.Context,
	cfg config.Config,
	siteStore site.Store,
	templateStore email.Store,
	identityStore identity.Store,
	stateStore oauthstate.Store,
	log *slog.Logger,
) (*site.Registry, error) {
	sites, err := siteStore.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		log.Info("site table empty, seeding fixtures")
		seeder := seed.New(siteStore, templateStore, identityStore, stateStore, log)
		if _, err := seeder.Run(ctx, seed.Options{}); err != nil {
			return nil, err
		}
		if sites, err = siteStore.List(ctx); err != nil {
			return nil, err
		}
	}
	return site.NewRegistry(sites, id.SiteKey(cfg.Server.DefaultSite))
}

// newGuard picks the distributed lock and slot backends when Redis is
// available, per-process ones otherwise.
func newGuard(cfg config.Guard, redisClient *platformredis.Client) *replayguard.Guard {
	guardCfg := replayguard.Config{
		LockTTL:      cfg.LockTTL,
		WaitBudget:   cfg.WaitBudget,
		PollInterval: cfg.PollInterval,
		SlotTTL:      cfg.SlotTTL,
	}
	if redisClient != nil {
		return replayguard.New(
			replayguard.NewRedisLocker(redisClient.Client),
			replayguard.NewRedisSlots(redisClient.Client),
			guardCfg,
			replayguard.NewMetrics(),
		)
	}
	return replayguard.New(
		replayguard.NewMemoryLocker(),
		replayguard.NewMemorySlots(),
		guardCfg,
		replayguard.NewMetrics(),
	)
}

// providerRegistry builds every provider that has credentials configured,
// plus the fake provider for local development when none do.
func providerRegistry(cfg config.OAuth) *oauth.Registry {
	var providers []oauth.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret))
	}
	if cfg.MicrosoftClientID != "" {
		providers = append(providers, oauth.NewMicrosoft(cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftTenant))
	}
	if cfg.FacebookClientID != "" {
		providers = append(providers, oauth.NewFacebook(cfg.FacebookClientID, cfg.FacebookClientSecret))
	}
	if cfg.LinkedInClientID != "" {
		providers = append(providers, oauth.NewLinkedIn(cfg.LinkedInClientID, cfg.LinkedInClientSecret))
	}
	if len(providers) == 0 {
		providers = append(providers, oauth.NewFake("fake"))
	}
	return oauth.NewRegistry(providers...)
}

func opsRouter(db *sql.DB, redisClient *platformredis.Client) chi.Router {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func sweepExpiredStates(ctx context.Context, loginService *oauth.Service, log *slog.Logger) {
	ticker := time.NewTicker(stateSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := loginService.CleanupExpiredStates(ctx)
			if err != nil {
				log.ErrorContext(ctx, "expired state sweep failed", "error", err.Error())
				continue
			}
			if removed > 0 {
				log.InfoContext(ctx, "swept expired oauth states", "removed", removed)
			}
		}
	}
}
