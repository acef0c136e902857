// Package app wires the application together: database, repositories,
// services, and handlers, selected by configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fakturly/fakturly/adapter/api"
	adminApplication "github.com/fakturly/fakturly/internal/admin/application"
	adminPersistence "github.com/fakturly/fakturly/internal/admin/infrastructure/persistence"
	billingApplication "github.com/fakturly/fakturly/internal/billing/application"
	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	billingPersistence "github.com/fakturly/fakturly/internal/billing/infrastructure/persistence"
	"github.com/fakturly/fakturly/internal/billing/infrastructure/xendit"
	contactsApplication "github.com/fakturly/fakturly/internal/contacts/application"
	contactsDomain "github.com/fakturly/fakturly/internal/contacts/domain"
	contactsPersistence "github.com/fakturly/fakturly/internal/contacts/infrastructure/persistence"
	identityApplication "github.com/fakturly/fakturly/internal/identity/application"
	identityDomain "github.com/fakturly/fakturly/internal/identity/domain"
	identityCache "github.com/fakturly/fakturly/internal/identity/infrastructure/cache"
	identityEmail "github.com/fakturly/fakturly/internal/identity/infrastructure/email"
	identityPersistence "github.com/fakturly/fakturly/internal/identity/infrastructure/persistence"
	invoicingCommands "github.com/fakturly/fakturly/internal/invoicing/application/commands"
	invoicingQueries "github.com/fakturly/fakturly/internal/invoicing/application/queries"
	invoicingDomain "github.com/fakturly/fakturly/internal/invoicing/domain"
	invoicingPersistence "github.com/fakturly/fakturly/internal/invoicing/infrastructure/persistence"
	"github.com/fakturly/fakturly/internal/notifications"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/database"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/eventbus"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/migrations"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
	"github.com/fakturly/fakturly/pkg/config"
	"github.com/fakturly/fakturly/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DBDriver database.Driver
	Pool     *pgxpool.Pool
	SQLiteDB *sql.DB

	// Redis
	RedisClient *redis.Client

	// Repositories
	UserRepo     identityDomain.UserRepository
	TokenRepo    identityDomain.TokenRepository
	SettingsRepo identityDomain.SettingsRepository
	ContactRepo  contactsDomain.ContactRepository
	InvoiceRepo  invoicingDomain.InvoiceRepository
	PaymentRepo  billingDomain.PaymentRepository
	OutboxRepo   outbox.Repository

	// Infrastructure
	UnitOfWork     sharedApplication.UnitOfWork
	EventPublisher eventbus.Publisher
	Health         *observability.HealthRegistry
	Mailer         identityApplication.Mailer

	// Services
	AuthService        *identityApplication.AuthService
	OAuthService       *identityApplication.OAuthService
	SettingsService    *identityApplication.SettingsService
	ContactService     *contactsApplication.Service
	BillingService     *billingApplication.Service
	EntitlementService *billingApplication.EntitlementService
	AdminService       *adminApplication.Service

	// Invoicing handlers
	CreateInvoiceHandler *invoicingCommands.CreateInvoiceHandler
	UpdateInvoiceHandler *invoicingCommands.UpdateInvoiceHandler
	DeleteInvoiceHandler *invoicingCommands.DeleteInvoiceHandler
	GetInvoiceHandler    *invoicingQueries.GetInvoiceHandler
	ListInvoicesHandler  *invoicingQueries.ListInvoicesHandler
}

// NewContainer builds the dependency graph from configuration. The
// database driver is detected from DATABASE_URL; an empty URL selects a
// local SQLite file for zero-config development.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		DBDriver: database.DetectDriver(cfg.DatabaseURL),
		Health:   observability.NewHealthRegistry(),
	}

	if err := c.connectDatabase(ctx); err != nil {
		return nil, err
	}
	c.buildRepositories()
	c.connectRedis()
	c.buildServices()
	c.registerHealthChecks()

	return c, nil
}

func (c *Container) connectDatabase(ctx context.Context) error {
	switch c.DBDriver {
	case database.DriverPostgres:
		pool, err := database.ConnectPostgres(ctx, c.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		c.Pool = pool
	default:
		path := c.Config.DatabaseURL
		if path == "" {
			path = "fakturly.db"
		}
		path = strings.TrimPrefix(path, "sqlite://")
		dbConn, err := database.ConnectSQLite(ctx, path)
		if err != nil {
			return fmt.Errorf("opening sqlite database: %w", err)
		}
		c.SQLiteDB = dbConn
	}
	return nil
}

func (c *Container) buildRepositories() {
	if c.DBDriver == database.DriverPostgres {
		c.UserRepo = identityPersistence.NewPostgresUserRepository(c.Pool)
		c.TokenRepo = identityPersistence.NewPostgresTokenRepository(c.Pool)
		c.SettingsRepo = identityPersistence.NewPostgresSettingsRepository(c.Pool)
		c.ContactRepo = contactsPersistence.NewPostgresContactRepository(c.Pool)
		c.InvoiceRepo = invoicingPersistence.NewPostgresInvoiceRepository(c.Pool)
		c.PaymentRepo = billingPersistence.NewPostgresPaymentRepository(c.Pool)
		c.OutboxRepo = outbox.NewPostgresRepository(c.Pool)
		c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(c.Pool)
		return
	}

	c.UserRepo = identityPersistence.NewSQLiteUserRepository(c.SQLiteDB)
	c.TokenRepo = identityPersistence.NewSQLiteTokenRepository(c.SQLiteDB)
	c.SettingsRepo = identityPersistence.NewSQLiteSettingsRepository(c.SQLiteDB)
	c.ContactRepo = contactsPersistence.NewSQLiteContactRepository(c.SQLiteDB)
	c.InvoiceRepo = invoicingPersistence.NewSQLiteInvoiceRepository(c.SQLiteDB)
	c.PaymentRepo = billingPersistence.NewSQLitePaymentRepository(c.SQLiteDB)
	c.OutboxRepo = outbox.NewSQLiteRepository(c.SQLiteDB)
	c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(c.SQLiteDB)
}

func (c *Container) connectRedis() {
	if c.Config.RedisURL == "" {
		return
	}
	opts, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid redis url, falling back to in-memory OTP store", "error", err)
		return
	}
	c.RedisClient = redis.NewClient(opts)
}

func (c *Container) buildServices() {
	cfg := c.Config

	var otps identityApplication.OTPStore
	if c.RedisClient != nil {
		otps = identityCache.NewRedisOTPStore(c.RedisClient)
	} else {
		otps = identityCache.NewMemoryOTPStore()
	}

	var mailer identityApplication.Mailer
	if cfg.SMTPAddr != "" {
		mailer = identityEmail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	} else {
		mailer = identityEmail.NewLogMailer(c.Logger)
	}
	c.Mailer = mailer

	c.AuthService = identityApplication.NewAuthService(
		c.UserRepo, c.TokenRepo, otps, mailer, c.OutboxRepo, c.UnitOfWork,
		identityApplication.AuthConfig{
			TokenTTL:      cfg.TokenTTL,
			ResetTokenTTL: cfg.ResetTokenTTL,
			OTPTTL:        cfg.OTPTTL,
			FrontendURL:   cfg.FrontendURL,
			AdminEmails:   splitCommaList(cfg.AdminEmails),
		},
		c.Logger,
	)

	if cfg.OAuthClientID != "" && cfg.OAuthClientSecret != "" && cfg.OAuthRedirectURL != "" {
		oauthSvc, err := identityApplication.NewOAuthService(
			"google",
			cfg.OAuthClientID,
			cfg.OAuthClientSecret,
			"https://accounts.google.com/o/oauth2/auth",
			"https://oauth2.googleapis.com/token",
			"https://www.googleapis.com/oauth2/v2/userinfo",
			cfg.OAuthRedirectURL,
			[]string{"openid", "email", "profile"},
			c.UserRepo, c.TokenRepo, c.OutboxRepo, c.UnitOfWork,
			cfg.TokenTTL,
		)
		if err != nil {
			c.Logger.Warn("oauth sign-in disabled", "error", err)
		} else {
			c.OAuthService = oauthSvc
		}
	}

	subscriptions := &subscriptionAdapter{users: c.UserRepo}
	c.EntitlementService = billingApplication.NewEntitlementService(subscriptions, subscriptions, &resourceCounter{
		contacts: c.ContactRepo,
		invoices: c.InvoiceRepo,
	})

	c.SettingsService = identityApplication.NewSettingsService(c.SettingsRepo, c.EntitlementService, c.UnitOfWork)
	c.ContactService = contactsApplication.NewService(c.ContactRepo, c.EntitlementService, c.OutboxRepo, c.UnitOfWork)

	c.CreateInvoiceHandler = invoicingCommands.NewCreateInvoiceHandler(c.InvoiceRepo, c.EntitlementService, c.OutboxRepo, c.UnitOfWork)
	c.UpdateInvoiceHandler = invoicingCommands.NewUpdateInvoiceHandler(c.InvoiceRepo, c.EntitlementService, c.OutboxRepo, c.UnitOfWork)
	c.DeleteInvoiceHandler = invoicingCommands.NewDeleteInvoiceHandler(c.InvoiceRepo, c.OutboxRepo, c.UnitOfWork)
	c.GetInvoiceHandler = invoicingQueries.NewGetInvoiceHandler(c.InvoiceRepo)
	c.ListInvoicesHandler = invoicingQueries.NewListInvoicesHandler(c.InvoiceRepo)

	gateway := xendit.NewClient(xendit.Config{
		BaseURL:   cfg.XenditBaseURL,
		SecretKey: cfg.XenditSecretKey,
	}, c.Logger)

	c.BillingService = billingApplication.NewService(
		c.PaymentRepo, gateway, subscriptions, c.OutboxRepo, c.UnitOfWork,
		billingApplication.ServiceConfig{
			PremiumPrice: decimal.NewFromInt(int64(cfg.PremiumPriceIDR)),
			FrontendURL:  cfg.FrontendURL,
		},
		c.Logger,
	)

	var stats interface {
		adminApplication.InvoiceCounter
		adminApplication.RevenueSource
	}
	if c.DBDriver == database.DriverPostgres {
		stats = adminPersistence.NewPostgresStatsRepository(c.Pool)
	} else {
		stats = adminPersistence.NewSQLiteStatsRepository(c.SQLiteDB)
	}
	c.AdminService = adminApplication.NewService(c.UserRepo, c.PaymentRepo, stats, stats, c.OutboxRepo, c.UnitOfWork, c.Logger)
}

func (c *Container) registerHealthChecks() {
	if c.Pool != nil {
		pool := c.Pool
		c.Health.Register("postgres", func(ctx context.Context) observability.HealthCheckResult {
			if err := pool.Ping(ctx); err != nil {
				return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: err.Error()}
			}
			return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
		})
	}
	if c.SQLiteDB != nil {
		dbConn := c.SQLiteDB
		c.Health.Register("sqlite", func(ctx context.Context) observability.HealthCheckResult {
			if err := dbConn.PingContext(ctx); err != nil {
				return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: err.Error()}
			}
			return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
		})
	}
	if c.RedisClient != nil {
		client := c.RedisClient
		c.Health.Register("redis", func(ctx context.Context) observability.HealthCheckResult {
			if err := client.Ping(ctx).Err(); err != nil {
				// OTP codes degrade to memory; the API stays up.
				return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: err.Error()}
			}
			return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
		})
	}
}

// RunMigrations applies pending schema migrations for the active driver.
func (c *Container) RunMigrations(ctx context.Context) error {
	if c.DBDriver == database.DriverPostgres {
		return migrations.RunPostgresMigrations(ctx, c.Pool)
	}
	return migrations.RunSQLiteMigrations(ctx, c.SQLiteDB)
}

// APIHandlers bundles the HTTP handlers for the API server.
func (c *Container) APIHandlers() api.Handlers {
	return api.Handlers{
		Auth: api.NewAuthHandler(api.AuthHandlerConfig{
			Auth:        c.AuthService,
			OAuth:       c.OAuthService,
			FrontendURL: c.Config.FrontendURL,
			Logger:      c.Logger,
		}),
		Invoices: api.NewInvoiceHandler(api.InvoiceHandlerConfig{
			CreateInvoice: c.CreateInvoiceHandler,
			UpdateInvoice: c.UpdateInvoiceHandler,
			DeleteInvoice: c.DeleteInvoiceHandler,
			GetInvoice:    c.GetInvoiceHandler,
			ListInvoices:  c.ListInvoicesHandler,
			Logger:        c.Logger,
		}),
		Contacts: api.NewContactHandler(c.ContactService, c.Logger),
		Settings: api.NewSettingsHandler(c.SettingsService, c.Logger),
		Billing: api.NewBillingHandler(api.BillingHandlerConfig{
			Service:       c.BillingService,
			CallbackToken: c.Config.XenditCallbackToken,
			Logger:        c.Logger,
		}),
		Admin: api.NewAdminHandler(c.AdminService, c.Logger),
	}
}

// NewEventPublisher connects the configured broker. Without RabbitMQ the
// relay drains into an in-process bus so event-driven side effects, such
// as subscription emails, still run in single-binary deployments.
func (c *Container) NewEventPublisher() eventbus.Publisher {
	if c.Config.RabbitMQURL == "" {
		bus := eventbus.NewInProcessEventBus(c.Logger)
		if mailer, ok := c.Mailer.(notifications.Mailer); ok {
			bus.RegisterConsumer(notifications.NewSubscriptionConsumer(c.UserRepo, mailer, c.Logger))
		}
		return bus
	}
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		c.Logger.Error("connecting to rabbitmq failed, events stay queued in the outbox", "error", err)
		return eventbus.NewNoopPublisher(c.Logger)
	}
	return publisher
}

// NewOutboxProcessor builds the relay that drains the outbox into the
// event bus.
func (c *Container) NewOutboxProcessor(publisher eventbus.Publisher) *outbox.Processor {
	cfg := outbox.DefaultProcessorConfig()
	cfg.PollInterval = c.Config.OutboxPollInterval
	cfg.BatchSize = c.Config.OutboxBatchSize
	cfg.MaxRetries = c.Config.OutboxMaxRetries
	return outbox.NewProcessor(c.OutboxRepo, publisher, cfg, c.Logger)
}

// Close releases all held connections.
func (c *Container) Close() error {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			return err
		}
	}
	if c.SQLiteDB != nil {
		return c.SQLiteDB.Close()
	}
	return nil
}

func splitCommaList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
