package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/triage-service/internal/api/http"
	"github.com/opsdesk/triage-service/internal/api/http/handlers"
	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/mailer"
	"github.com/opsdesk/triage-service/internal/observability"
	"github.com/opsdesk/triage-service/internal/oracle"
	"github.com/opsdesk/triage-service/internal/persistence"
	"github.com/opsdesk/triage-service/internal/repository"
	"github.com/opsdesk/triage-service/internal/retrieval"
	"github.com/opsdesk/triage-service/internal/service"
	"github.com/opsdesk/triage-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	workflowStore := repository.NewWorkflowStore(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	sender := mailer.NewSender(cfg.SMTP, logger)
	oracles := oracle.NewHTTPClient(cfg.Oracle)
	retriever := retrieval.NewPGRetriever(pool)

	auditService := service.NewAuditService(auditRepo, logger)
	auditService.Register(dispatcher)
	notifyService := service.NewNotificationService(logger, cfg.Notify)
	notifyService.Register(dispatcher)

	responseDispatcher := service.NewResponseDispatcher(workflowStore, sender, dispatcher, logger)
	ticketService := service.NewTicketService(ticketRepo, responseRepo, approvalRepo, dispatcher, metrics, logger, cfg.Upload)
	triageService := service.NewTriageService(service.TriageDependencies{
		TicketRepo:    ticketRepo,
		WorkflowStore: workflowStore,
		Scorer:        oracles,
		Drafter:       oracles,
		Retriever:     retriever,
		Sender:        responseDispatcher,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Triage:        cfg.Triage,
		OracleTimeout: cfg.Oracle.Timeout(),
	})
	approvalService := service.NewApprovalService(ticketRepo, responseRepo, workflowStore, responseDispatcher, dispatcher, metrics, logger)
	dashboardService := service.NewDashboardService(dashboardRepo, redis, logger, cfg.Dashboard)

	autoSend := worker.NewAutoSendWorker(ticketRepo, responseRepo, responseDispatcher, logger, cfg.Worker)
	autoSend.Start()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Upload.MaxFileSizeBytes()) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:   handlers.NewTicketsHandler(ticketService, triageService, auditService),
		Approvals: handlers.NewApprovalsHandler(approvalService),
		Dashboard: handlers.NewDashboardHandler(dashboardService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	autoSend.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
