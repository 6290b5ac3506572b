// Package app wires configuration, storage and services into a runnable
// service instance shared by the HTTP server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rickar/cal/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-escalation/internal/api/http"
	"github.com/spec-kit/helpdesk-escalation/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-escalation/internal/auth"
	"github.com/spec-kit/helpdesk-escalation/internal/cache"
	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
	"github.com/spec-kit/helpdesk-escalation/internal/observability"
	"github.com/spec-kit/helpdesk-escalation/internal/persistence"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/service"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
	"github.com/spec-kit/helpdesk-escalation/internal/worker"
)

// Repositories groups the storage implementations in use.
type Repositories struct {
	Tickets  repository.TicketRepository
	Rules    repository.RuleRepository
	Agents   repository.AgentRepository
	Messages repository.TicketMessageRepository
	Audit    repository.AuditLogRepository
}

// App holds every long-lived component of a running instance.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Repos    Repositories
	Metrics  *observability.Metrics
	Tokens   *auth.TokenManager

	Tickets       *service.TicketService
	Assignment    *service.AssignmentService
	Escalations   *service.EscalationService
	Rules         *service.RuleService
	Agents        *service.AgentService
	Auth          *service.AuthService
	Audit         *service.AuditService
	Notifications *service.NotificationService

	Notifier  *worker.NotificationWorker
	Scheduler *worker.EscalationScheduler
}

// Build connects to the configured backends and constructs the services.
// Without a Postgres DSN an in-memory store is used; without Redis the
// status cache is disabled and the job lock is process local.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.Postgres = pg

	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool := pg.PoolHandle()
		a.Repos = Repositories{
			Tickets:  repository.NewTicketRepository(pool),
			Rules:    repository.NewRuleRepository(pool),
			Agents:   repository.NewAgentRepository(pool),
			Messages: repository.NewTicketMessageRepository(pool),
			Audit:    repository.NewAuditLogRepository(pool),
		}
	} else {
		logger.Warn("using in-memory storage; data is lost on restart")
		store := repository.NewMemoryStore()
		a.Repos = Repositories{
			Tickets:  store.Tickets(),
			Rules:    store.Rules(),
			Agents:   store.Agents(),
			Messages: store.Messages(),
			Audit:    store.AuditLogs(),
		}
	}

	a.Redis = persistence.NewRedis(cfg.Redis, logger)
	var (
		statusCache cache.StatusCache = cache.NoopStatusCache{}
		locker      cache.Locker      = cache.NewLocalLocker()
	)
	if a.Redis.Enabled() {
		statusCache = cache.NewRedisStatusCache(a.Redis.Client, cfg.Redis.StatusCacheTTL())
		locker = cache.NewRedisLocker(a.Redis.Client)
	}

	demand, err := DemandSource(cfg.SLA)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Metrics = observability.NewMetrics()
	a.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	dispatcher := events.NewInMemoryDispatcher()
	clock := sla.SystemClock

	a.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:  a.Repos.Tickets,
		MessageRepo: a.Repos.Messages,
		AuditRepo:   a.Repos.Audit,
		Demand:      demand,
		Clock:       clock,
		StatusCache: statusCache,
		Dispatcher:  dispatcher,
		Metrics:     a.Metrics,
		Logger:      logger,
	})
	a.Assignment = service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  a.Repos.Tickets,
		AgentRepo:   a.Repos.Agents,
		AuditRepo:   a.Repos.Audit,
		Clock:       clock,
		StatusCache: statusCache,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	a.Escalations = service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  a.Repos.Tickets,
		RuleRepo:    a.Repos.Rules,
		AgentRepo:   a.Repos.Agents,
		MessageRepo: a.Repos.Messages,
		AuditRepo:   a.Repos.Audit,
		Clock:       clock,
		Locker:      locker,
		LockTTL:     cfg.Escalation.LockTTL(),
		StatusCache: statusCache,
		Dispatcher:  dispatcher,
		Metrics:     a.Metrics,
		Logger:      logger,
	})
	a.Rules = service.NewRuleService(a.Repos.Rules, a.Repos.Audit, clock, logger)
	a.Agents = service.NewAgentService(a.Repos.Agents, cfg.Auth.BcryptCost)
	a.Auth = service.NewAuthService(cfg.Auth, a.Repos.Agents, a.Tokens, logger)
	a.Audit = service.NewAuditService(a.Repos.Audit)

	a.Notifications = service.NewNotificationService(logger, cfg.Notification)
	a.Notifier = worker.NewNotificationWorker(dispatcher, a.Notifications, 0, logger)

	if _, err := a.Auth.EnsureAdmin(ctx, cfg.Auth.SeedAdminEmail, cfg.Auth.SeedAdminPassword); err != nil {
		a.Close()
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	if cfg.Escalation.RulesFile != "" {
		if _, err := a.Rules.LoadRulesFromFile(ctx, cfg.Escalation.RulesFile); err != nil {
			a.Close()
			return nil, fmt.Errorf("load rules file: %w", err)
		}
	}

	if cfg.Escalation.SchedulerEnabled {
		loc, err := cfg.SLA.Location()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Scheduler, err = worker.NewEscalationScheduler(a.Escalations, cfg.Escalation.Schedule,
			cfg.Escalation.SystemActorID, loc, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// DemandSource selects the demand policy for new tickets. A positive fixed
// factor wins; otherwise the hourly heuristic applies, optionally wrapped in
// a business calendar that treats weekends and holidays as off-hours.
func DemandSource(cfg config.SLAConfig) (sla.DemandSource, error) {
	if cfg.FixedFactor > 0 {
		return sla.FixedDemand(cfg.FixedFactor), nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hourly := sla.NewHourlyDemand(loc)
	if cfg.PeakFactor > 0 {
		hourly.PeakFactor = cfg.PeakFactor
	}
	if cfg.OffHoursFactor > 0 {
		hourly.OffHoursFactor = cfg.OffHoursFactor
	}
	if cfg.NormalFactor > 0 {
		hourly.NormalFactor = cfg.NormalFactor
	}
	if !cfg.BusinessCalendar {
		return hourly, nil
	}

	parsed, err := cfg.ParsedHolidays()
	if err != nil {
		return nil, err
	}
	holidays := make([]*cal.Holiday, 0, len(parsed))
	for _, h := range parsed {
		holidays = append(holidays, sla.FixedHoliday(h.Name, h.Month, h.Day))
	}
	return sla.NewCalendarDemand(hourly, loc, hourly.OffHoursFactor, holidays...), nil
}

// HTTP builds the fiber application with middlewares and routes attached.
func (a *App) HTTP() *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:      a.Config.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	httptransport.RegisterMiddlewares(server, a.Logger, a.Metrics, a.Config.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(a.Config.App.Name, a.Config.App.Version, a.Postgres, a.Redis),
		Auth:           handlers.NewAuthHandler(a.Auth),
		Tickets:        handlers.NewTicketsHandler(a.Tickets, a.Assignment),
		Rules:          handlers.NewRulesHandler(a.Rules),
		Escalations:    handlers.NewEscalationsHandler(a.Escalations, a.Audit),
		Agents:         handlers.NewAgentsHandler(a.Agents),
		AuthMiddleware: auth.NewAuthMiddleware(a.Tokens, a.Repos.Agents),
		Metrics:        a.Metrics,
	})
	return server
}

// Start launches background workers.
func (a *App) Start(ctx context.Context) error {
	a.Notifier.Start(ctx)
	if a.Scheduler == nil {
		return nil
	}
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	a.Logger.Info("next escalation run", zap.Time("at", a.Scheduler.Next()))
	return nil
}

// Close stops workers and releases connections.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Notifier != nil {
		a.Notifier.Stop()
	}
	a.Redis.Close()
	a.Postgres.Close()
}
