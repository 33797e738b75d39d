package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/handlers"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"github.com/ternarybob/sellersync/internal/services/batch"
	"github.com/ternarybob/sellersync/internal/services/browser"
	"github.com/ternarybob/sellersync/internal/services/credentials"
	"github.com/ternarybob/sellersync/internal/services/events"
	"github.com/ternarybob/sellersync/internal/services/extractor"
	"github.com/ternarybob/sellersync/internal/services/finance"
	"github.com/ternarybob/sellersync/internal/services/login"
	"github.com/ternarybob/sellersync/internal/services/profiles"
	"github.com/ternarybob/sellersync/internal/services/runs"
	"github.com/ternarybob/sellersync/internal/services/scheduler"
	"github.com/ternarybob/sellersync/internal/services/slots"
	"github.com/ternarybob/sellersync/internal/services/totp"
	"github.com/ternarybob/sellersync/internal/storage/badger"
)

// ScheduledBatchJob is the scheduler job name for cron-triggered batches
const ScheduledBatchJob = "scheduled_batch"

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB            *badger.BadgerDB
	ReportStorage interfaces.ReportStorage

	// Services
	EventService      interfaces.EventService
	CredentialStore   *credentials.Store
	CredentialLoader  *credentials.Loader
	ProfileController *profiles.Client
	Connector         *browser.Connector
	SlotAllocator     *slots.Allocator
	LoginService      *login.Service
	Extractor         *extractor.Extractor
	FinanceClient     *finance.Client
	Orchestrator      *batch.Orchestrator
	RunService        *runs.Service
	SchedulerService  *scheduler.Service

	// Handlers
	APIHandler         *handlers.APIHandler
	ProfileHandler     *handlers.ProfileHandler
	CredentialsHandler *handlers.CredentialsHandler
	LoginHandler       *handlers.LoginHandler
	RunsHandler        *handlers.RunsHandler
	SchedulerHandler   *handlers.SchedulerHandler
	WSHandler          *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.loadCredentials(); err != nil {
		app.Close()
		return nil, err
	}

	logger.Debug().
		Int("credentials", app.CredentialStore.Count()).
		Str("control_plane", cfg.ControlPlane.BaseURL).
		Bool("schedule_enabled", cfg.Schedule.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the run-history store
func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.ReportStorage = badger.NewReportStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Bool("in_memory", a.Config.Storage.Badger.InMemory).
		Msg("Storage layer initialized")
	return nil
}

// initServices builds the services in dependency order
func (a *App) initServices() error {
	cfg := a.Config

	a.EventService = events.NewService(a.Logger)
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return err
	}

	a.CredentialStore = credentials.NewStore(a.Logger)
	a.CredentialLoader = credentials.NewLoader(a.Logger)

	a.ProfileController = profiles.NewClient(a.Logger,
		profiles.WithBaseURL(cfg.ControlPlane.BaseURL),
		profiles.WithTimeout(cfg.ControlPlane.RequestTimeout.D()),
		profiles.WithRateLimit(cfg.ControlPlane.RateLimit),
	)
	a.Connector = browser.NewConnector(cfg.Browser, a.Logger)

	allocator, err := slots.NewAllocator(cfg.Windows, a.Logger)
	if err != nil {
		return fmt.Errorf("invalid window layout: %w", err)
	}
	a.SlotAllocator = allocator

	automaton := login.NewAutomaton(login.NewConfig(cfg), totp.NewProvider(cfg.TOTP, a.Logger), a.Logger)
	a.LoginService = login.NewService(
		a.CredentialStore,
		a.ProfileController,
		a.Connector,
		a.SlotAllocator,
		automaton,
		a.EventService,
		a.Logger,
	)

	a.Extractor = extractor.NewExtractor(a.Connector, extractor.NewConfig(cfg), a.Logger)
	a.FinanceClient = finance.NewClient(finance.NewConfig(cfg), a.Logger)
	a.Orchestrator = batch.NewOrchestrator(
		a.ProfileController,
		a.Extractor,
		a.FinanceClient,
		a.EventService,
		batch.NewOptions(cfg.Batch),
		a.Logger,
	)
	a.RunService = runs.NewService(a.Orchestrator, a.ProfileController, a.ReportStorage, a.EventService, a.Logger)

	a.SchedulerService = scheduler.NewService(a.Logger)
	if cfg.Schedule.Enabled {
		profileIDs := cfg.Schedule.ProfileIDs
		err := a.SchedulerService.RegisterJob(ScheduledBatchJob, cfg.Schedule.Cron, func() error {
			report, err := a.RunService.RunSync(context.Background(), runs.TriggerSchedule, profileIDs)
			if errors.Is(err, models.ErrRunActive) {
				a.Logger.Info().Msg("Scheduled batch skipped, a run is already in progress")
				return nil
			}
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d profiles failed", report.Failed, report.Total)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to register scheduled batch: %w", err)
		}
	}

	return nil
}

// loadCredentials reads the configured spreadsheet, if any
func (a *App) loadCredentials() error {
	path := a.Config.Credentials.File
	if path == "" {
		a.Logger.Debug().Msg("No credentials file configured")
		return nil
	}

	creds, err := a.CredentialLoader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	a.CredentialStore.ReplaceAll(creds)
	return nil
}

// InitHandlers builds the HTTP handlers; only the serve command needs them
func (a *App) InitHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ProfileHandler = handlers.NewProfileHandler(a.ProfileController, a.CredentialStore, a.Logger)
	a.CredentialsHandler = handlers.NewCredentialsHandler(a.CredentialStore, a.CredentialLoader, a.Logger)
	a.LoginHandler = handlers.NewLoginHandler(a.LoginService, a.Logger)
	a.RunsHandler = handlers.NewRunsHandler(a.RunService, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.RunService, a.Logger, &a.Config.WebSocket)
}

// StartScheduler starts cron scheduling when a schedule is configured
func (a *App) StartScheduler() error {
	if !a.Config.Schedule.Enabled {
		return nil
	}
	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.Logger.Info().Str("cron", a.Config.Schedule.Cron).Msg("Scheduled batches enabled")
	return nil
}

// Close releases all application resources. Background runs are allowed to finish first.
func (a *App) Close() error {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.RunService != nil {
		a.RunService.Wait()
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.ReportStorage != nil {
		if err := a.ReportStorage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Debug().Msg("Storage closed")
	}

	return nil
}
