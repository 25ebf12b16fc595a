package app

import (
	"context"
	"fmt"
	"time"

	"github.com/semmidev/custos/internal/adapter/compressor"
	"github.com/semmidev/custos/internal/adapter/database"
	"github.com/semmidev/custos/internal/adapter/process"
	"github.com/semmidev/custos/internal/adapter/storage"
	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/infrastructure/logger"
	"github.com/semmidev/custos/internal/infrastructure/metrics"
	"github.com/semmidev/custos/internal/infrastructure/scheduler"
	"github.com/semmidev/custos/internal/transport/httpapi"
	"github.com/semmidev/custos/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	metrics       *metrics.Metrics
	uploadTargets []usecase.UploadTarget
	backups       *usecase.Backup
}

// New wires storage, engines and use cases. Nothing is scheduled or served
// until Run.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(logger.Options{
		Service: cfg.App.Name,
		Level:   cfg.App.LogLevel,
		File:    cfg.App.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	localStorage, err := storage.NewLocal(cfg.Backup.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}
	log.Infof("Backup directory: %s (keeping %d)", localStorage.BasePath(), cfg.Backup.MaxBackups)

	m := metrics.New()
	uploadTargets := initializeUploadTargets(ctx, cfg, log)

	runner := process.NewExec()
	engines := func(engine string) (domain.Engine, error) {
		return database.New(engine, runner)
	}

	retention := usecase.NewRetention(localStorage, uploadTargets, log.Named("retention"), cfg.Backup.MaxBackups).
		WithMetrics(m)
	mirror := usecase.NewMirror(uploadTargets, compressor.NewGzip(), log.Named("mirror"), cfg.Backup.Compress)

	backups := usecase.NewBackup(
		cfg.Database.URL,
		engines,
		localStorage,
		retention,
		mirror,
		log.Named("backup"),
		usecase.WithMetrics(m),
	)

	return &App{
		config:        cfg,
		logger:        log,
		metrics:       m,
		uploadTargets: uploadTargets,
		backups:       backups,
	}, nil
}

func initializeUploadTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "gdrive":
			stor, err = storage.NewGDrive(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("Google Drive upload enabled (folder: %s)", targetCfg.FolderID)

		case "s3":
			stor, err = storage.NewS3(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("AWS S3 upload enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			stor, err = storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			log.Infof("Telegram upload enabled")

		case "local":
			// the backup directory is always used
			continue

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets
}

func (a *App) Backups() *usecase.Backup {
	return a.backups
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Run arms the scheduler and serves the admin API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s", a.config.App.Name)

	if err := a.backups.Ping(ctx); err != nil {
		a.logger.Warnf("Database is not reachable: %v", err)
	} else {
		a.logger.Infof("Connected to database")
	}

	sched := scheduler.New(scheduler.Options{
		Enabled:  a.config.Backup.AutoEnabled,
		Spec:     a.config.Backup.Schedule,
		Timezone: a.config.Backup.Timezone,
	}, a.backups.Execute, a.logger.Named("scheduler"), nil)
	a.metrics.SetSchedulerArmed(sched.State() == scheduler.Armed)
	defer func() {
		sched.Stop()
		a.metrics.SetSchedulerArmed(false)
	}()

	auth := httpapi.NewAuthenticator(a.config.HTTP.JWTSecret, a.config.HTTP.AllowedRoles)
	if !auth.Enabled() {
		a.logger.Warnf("JWT_SECRET is not set; every /api/backups request will be rejected")
	}

	router := httpapi.NewRouter(httpapi.RouterOptions{
		Backups:    a.backups,
		Scheduler:  sched,
		Auth:       auth,
		Metrics:    a.metrics,
		Logger:     a.logger.Named("http"),
		DriveOAuth: a.driveOAuth(),
	})
	server := httpapi.NewServer(a.config.HTTP.Addr, router, a.logger.Named("http"))

	a.logger.Infof("Backup destinations: local + %d remote target(s)", len(a.uploadTargets))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Infof("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *App) driveOAuth() *httpapi.DriveOAuth {
	secret := a.config.DriveOAuthClientSecret()
	if secret == "" {
		return nil
	}
	oauthCfg, err := storage.DriveOAuthConfig(secret)
	if err != nil {
		a.logger.Errorf("Google Drive OAuth helper disabled: %v", err)
		return nil
	}
	return httpapi.NewDriveOAuth(oauthCfg, a.logger.Named("oauth"))
}

func (a *App) Close() {
	a.logger.Close()
}
