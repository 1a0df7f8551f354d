package bootstrap

import (
	"context"
	"fmt"

	"github.com/rfcbot/rfcbot/internal/api"
	"github.com/rfcbot/rfcbot/internal/api/handler"
	"github.com/rfcbot/rfcbot/internal/command"
	"github.com/rfcbot/rfcbot/internal/github"
	"github.com/rfcbot/rfcbot/internal/pkg/config"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
	"github.com/rfcbot/rfcbot/internal/pkg/postgres"
	"github.com/rfcbot/rfcbot/internal/repository"
	"github.com/rfcbot/rfcbot/internal/service"
	"github.com/rfcbot/rfcbot/internal/teams"
)

type Application struct {
	Config   *config.Config
	Logger   *logger.Logger
	Postgres *postgres.Connection
	Migrator *postgres.Migrator

	Teams *teams.Config

	UserRepo        repository.UserRepository
	IssueRepo       repository.IssueRepository
	CommentRepo     repository.CommentRepository
	PullRequestRepo repository.PullRequestRepository
	ProposalRepo    repository.ProposalRepository
	ReviewRepo      repository.ReviewRepository
	ConcernRepo     repository.ConcernRepository
	FeedbackRepo    repository.FeedbackRepository
	SyncRepo        repository.SyncRepository

	Github          *github.Client
	ProposalService *service.ProposalService
	Reconciler      *service.Reconciler
	Dispatcher      *service.Dispatcher
	Ingester        *github.Ingester

	WebhookHandler *handler.WebhookHandler
	HTTPServer     *api.HTTPServer

	stopIngester context.CancelFunc
}

func New() (*Application, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	pg, err := postgres.New(log, &postgres.Config{
		Host:              cfg.DatabaseHost,
		Port:              cfg.DatabasePort,
		Username:          cfg.DatabaseUser,
		Password:          cfg.DatabasePassword,
		Database:          cfg.DatabaseName,
		Schema:            cfg.DatabaseSchema,
		SSLMode:           cfg.DatabaseSSLMode,
		MaxConns:          cfg.DatabaseMaxConns,
		MinConns:          cfg.DatabaseMinConns,
		MaxConnLifetime:   cfg.DatabaseMaxConnLifetime,
		MaxConnIdleTime:   cfg.DatabaseMaxConnIdleTime,
		HealthCheckPeriod: cfg.DatabaseHealthCheckPeriod,
		ConnectTimeout:    cfg.DatabaseConnectTimeout,
		AcquireTimeout:    cfg.DatabaseAcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection: %w", err)
	}

	return &Application{
		Config:   cfg,
		Logger:   log,
		Postgres: pg,
	}, nil
}

func (app *Application) Init(ctx context.Context) error {
	app.Logger.Info("initializing application")

	if err := app.Postgres.Connect(ctx); err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
		Timeout:   app.Config.DatabaseMigrationTimeout,
		TableName: app.Config.DatabaseMigrationTable,
		Enabled:   app.Config.DatabaseMigrationEnabled,
	}, app.Logger)

	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	roster, err := teams.Load(app.Config.TeamsConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load teams config: %w", err)
	}
	app.Teams = roster

	app.UserRepo = repository.NewUserRepo(app.Postgres.Pool(), app.Logger)
	app.IssueRepo = repository.NewIssueRepo(app.Postgres.Pool(), app.Logger)
	app.CommentRepo = repository.NewCommentRepo(app.Postgres.Pool(), app.Logger)
	app.PullRequestRepo = repository.NewPullRequestRepo(app.Postgres.Pool(), app.Logger)
	app.ProposalRepo = repository.NewProposalRepo(app.Postgres.Pool(), app.Logger)
	app.ReviewRepo = repository.NewReviewRepo(app.Postgres.Pool(), app.Logger)
	app.ConcernRepo = repository.NewConcernRepo(app.Postgres.Pool(), app.Logger)
	app.FeedbackRepo = repository.NewFeedbackRepo(app.Postgres.Pool(), app.Logger)
	app.SyncRepo = repository.NewSyncRepo(app.Postgres.Pool(), app.Logger)

	app.Github, err = github.NewClient(&github.Config{
		BaseURL:     app.Config.GithubBaseURL,
		AccessToken: app.Config.GithubToken,
		UserAgent:   app.Config.GithubUserAgent,
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	app.ProposalService = service.NewProposalService(
		app.ProposalRepo,
		app.ReviewRepo,
		app.ConcernRepo,
		app.FeedbackRepo,
		app.UserRepo,
		app.CommentRepo,
		app.Github,
		app.Teams,
		app.Logger,
	)
	app.Reconciler = service.NewReconciler(
		app.ProposalRepo,
		app.ReviewRepo,
		app.ConcernRepo,
		app.UserRepo,
		app.CommentRepo,
		app.IssueRepo,
		app.Github,
		app.Teams,
		app.ProposalService,
		app.Config.FCPDuration,
		app.Logger,
	)
	app.Dispatcher = service.NewDispatcher(
		command.NewParser(app.Config.BotMention),
		app.ProposalService,
		app.Reconciler,
		app.IssueRepo,
		app.UserRepo,
		app.Teams,
		app.Logger,
	)
	app.Ingester = github.NewIngester(
		app.Github,
		app.Dispatcher,
		app.UserRepo,
		app.IssueRepo,
		app.CommentRepo,
		app.PullRequestRepo,
		app.SyncRepo,
		app.Teams,
		app.Config.BotMention,
		app.Config.PollInterval,
		app.Logger,
	)

	if err := app.Ingester.EnsureRosterUsers(ctx); err != nil {
		return fmt.Errorf("failed to resolve team rosters: %w", err)
	}

	app.WebhookHandler = handler.NewWebhookHandler(
		app.Ingester,
		app.Config.GithubWebhookSecrets,
		app.Logger,
	)

	serverConfig := &api.ServerConfig{
		Host:         app.Config.ServerHost,
		Port:         app.Config.ServerPort,
		ReadTimeout:  app.Config.ServerReadTimeout,
		WriteTimeout: app.Config.ServerWriteTimeout,
		IdleTimeout:  app.Config.ServerIdleTimeout,
	}

	app.HTTPServer = api.NewHTTPServer(serverConfig, app.WebhookHandler, app.Logger)

	if err := app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	ingestCtx, cancel := context.WithCancel(context.Background())
	app.stopIngester = cancel
	go app.Ingester.Run(ingestCtx)

	app.Logger.Info("application initialized successfully")
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.stopIngester != nil {
		app.stopIngester()
	}

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	app.Postgres.Close()

	app.Logger.Info("application shutdown completed")
	return nil
}

func (app *Application) Health(ctx context.Context) error {
	if err := app.Postgres.Health(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	if err := app.Migrator.Health(ctx); err != nil {
		return fmt.Errorf("migrator health check failed: %w", err)
	}
	return nil
}
