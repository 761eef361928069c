package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/upb/membership-backend/auth"
	"github.com/upb/membership-backend/config"
	"github.com/upb/membership-backend/middleware"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/repositories/postgres"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/services/audit"
	"github.com/upb/membership-backend/services/settings"
	"go.uber.org/zap"
)

const (
	// settingsCleanupInterval is how often expired cache entries are purged
	settingsCleanupInterval = time.Minute
	// limiterSweepInterval is how often idle login buckets are dropped
	limiterSweepInterval = 5 * time.Minute
	// auditStopTimeout bounds draining the audit queue on shutdown
	auditStopTimeout = 10 * time.Second
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Security
	Tokens *auth.TokenService
	Hasher *auth.Hasher

	// Background components
	Audit         *audit.Service
	SettingsCache *settings.Cache
	LoginLimiter  *middleware.IPRateLimiter
	Metrics       *middleware.Metrics

	// Services
	AuthService         *services.AuthService
	UserService         *services.UserService
	OrganizationService *services.OrganizationService
	GroupService        *services.GroupService
	SubscriptionService *services.SubscriptionService
	PaymentService      *services.PaymentService
	EventService        *services.EventService
	AccountingService   *services.AccountingService
	ReportService       *services.ReportService
	BrandingService     *services.BrandingService
	SettingsService     *services.SettingsService
	I18nService         *services.I18nService
	AuditLogService     *services.AuditLogService

	AuthMiddleware *middleware.AuthMiddleware

	stopCh chan struct{}
}

// NewDependencies connects to PostgreSQL and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := newDependencies(cfg, factory.GetDB(), logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	deps.RepoFactory = factory
	deps.Repos = factory.NewRepositories()
	deps.TxManager = factory.GetTransactionManager()
	deps.wire()

	if err := deps.start(); err != nil {
		_ = factory.Close()
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesWithDB wires everything on top of an existing pool, skipping connection and migration
func NewDependenciesWithDB(cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	deps, err := newDependencies(cfg, db, logger)
	if err != nil {
		return nil, err
	}
	deps.Repos = &repositories.Repositories{
		Organizations: postgres.NewOrganizationRepository(db, logger),
		Users:         postgres.NewUserRepository(db, logger),
		Roles:         postgres.NewRoleRepository(db, logger),
		Groups:        postgres.NewGroupRepository(db, logger),
		Subscriptions: postgres.NewSubscriptionRepository(db, logger),
		Payments:      postgres.NewPaymentRepository(db, logger),
		Events:        postgres.NewEventRepository(db, logger),
		Transactions:  postgres.NewAccountingRepository(db, logger),
		Settings:      postgres.NewSettingsRepository(db, logger),
		AuditLogs:     postgres.NewAuditRepository(db, logger),
	}
	deps.TxManager = postgres.NewTransactionManager(db, logger)
	deps.wire()

	if err := deps.start(); err != nil {
		return nil, err
	}
	return deps, nil
}

func newDependencies(cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is not configured")
	}
	return &Dependencies{
		Config:        cfg,
		DB:            db,
		Logger:        logger,
		Tokens:        auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenExpiry),
		Hasher:        auth.NewHasher(cfg.Auth.BcryptCost),
		SettingsCache: settings.NewCache(cfg.Settings.CacheSize, cfg.Settings.CacheTTL),
		LoginLimiter:  middleware.NewIPRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst, logger),
		Metrics:       middleware.NewMetrics(),
		stopCh:        make(chan struct{}),
	}, nil
}

// wire builds the services on top of the repositories
func (d *Dependencies) wire() {
	var auditLogger services.AuditLogger = services.NopAuditLogger{}
	if d.Config.Audit.Enabled {
		d.Audit = audit.NewService(d.Repos.AuditLogs, d.Logger, audit.Config{
			BufferSize:  d.Config.Audit.BufferSize,
			WorkerCount: d.Config.Audit.WorkerCount,
		})
		auditLogger = d.Audit
	}

	d.AuthService = services.NewAuthService(d.Repos, d.TxManager, d.Tokens, d.Hasher, auditLogger, d.Logger)
	d.UserService = services.NewUserService(d.Repos, d.TxManager, d.Hasher, auditLogger, d.Logger)
	d.OrganizationService = services.NewOrganizationService(d.Repos.Organizations, auditLogger, d.Logger)
	d.GroupService = services.NewGroupService(d.Repos, d.TxManager, auditLogger, d.Logger)
	d.SubscriptionService = services.NewSubscriptionService(d.Repos, auditLogger, d.Logger)
	d.PaymentService = services.NewPaymentService(d.Repos, auditLogger, d.Logger)
	d.EventService = services.NewEventService(d.Repos, d.TxManager, auditLogger, d.Logger)
	d.AccountingService = services.NewAccountingService(d.Repos.Transactions, auditLogger, d.Logger)
	d.ReportService = services.NewReportService(d.Repos.Transactions, d.Logger)
	d.BrandingService = services.NewBrandingService(d.Repos.Organizations, auditLogger, d.Logger)
	d.SettingsService = services.NewSettingsService(d.Repos.Organizations, d.Repos.Settings, d.SettingsCache, auditLogger, d.Logger)
	d.I18nService = services.NewI18nService(d.Repos.Users, d.Repos.Organizations, auditLogger, d.Logger)
	d.AuditLogService = services.NewAuditLogService(d.Repos.AuditLogs)

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService, d.Logger)
	d.registerMetrics()
}

// start launches the background workers
func (d *Dependencies) start() error {
	if d.Audit != nil {
		if err := d.Audit.Start(); err != nil {
			return fmt.Errorf("failed to start audit service: %w", err)
		}
	}
	d.SettingsCache.StartCleanupWorker(settingsCleanupInterval, d.stopCh)
	d.LoginLimiter.StartSweeper(limiterSweepInterval, d.stopCh)
	return nil
}

// registerMetrics exposes background component state next to the HTTP metrics
func (d *Dependencies) registerMetrics() {
	reg := d.Metrics.Registry()

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "settings_cache_entries",
			Help: "Organization settings currently cached.",
		}, func() float64 { return float64(d.SettingsCache.Stats().Size) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "login_rate_limiter_clients",
			Help: "Client IPs tracked by the login rate limiter.",
		}, func() float64 { return float64(d.LoginLimiter.Size()) }),
	)

	if d.Audit == nil {
		return
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "audit_pending_entries",
			Help: "Audit entries waiting to be written.",
		}, func() float64 { return float64(d.Audit.GetStats().PendingEntries) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Audit entries persisted.",
		}, func() float64 { return float64(d.Audit.GetStats().Written) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Audit entries dropped because the queue was full.",
		}, func() float64 { return float64(d.Audit.GetStats().Dropped) }),
	)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	close(d.stopCh)

	// Drain audit entries before the pool goes away
	if d.Audit != nil {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
