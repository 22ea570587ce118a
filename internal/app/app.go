package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"eivu-go/internal/config"
	"eivu-go/internal/database"
	"eivu-go/internal/database/migrations"
	"eivu-go/internal/eivu"
	"eivu-go/internal/fs"
	"eivu-go/internal/gateway"
	"eivu-go/internal/metrics"
)

// EivuApp is the application layer between the CLI and IngestService.
// It constructs all dependencies from config and closes them on Close.
type EivuApp struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	gateway  eivu.RemoteGateway
	registry *prometheus.Registry
	metrics  *metrics.IngestMetrics
	service  *eivu.IngestService
	ingester *Ingester
	logger   *slog.Logger
	logFile  *os.File
}

// NewEivuApp creates a fully wired EivuApp from the given config.
// command identifies the CLI command being run and tags every log line.
// The caller must call Close when done.
func NewEivuApp(ctx context.Context, cfg *config.Config, command string) (*EivuApp, error) {
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	runID := command + "-" + time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date (run `eivu db migrate`): %w", err)
	}

	gw, err := gateway.NewGatewayFromConfig(ctx, cfg.Gateway)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.NewIngestMetrics(registry)

	adapter := &slogAdapter{l: logger}
	svc := eivu.NewIngestService(db, gw, adapter, eivu.RealClock{}, eivu.UUIDGenerator{}, m)
	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	return &EivuApp{
		cfg:      cfg,
		db:       db,
		gateway:  gw,
		registry: registry,
		metrics:  m,
		service:  svc,
		ingester: NewIngester(svc, gw, fsmgr, adapter, eivu.RealClock{}, m),
		logger:   logger,
		logFile:  logFile,
	}, nil
}

func openDatabase(cfg *config.Config) (*database.SQLiteDatabase, error) {
	if cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return database.NewDatabaseFromConfig(cfg.Database, cfg.InstanceID)
}

// MigrateDatabase applies pending migrations to the configured database and
// returns the resulting status.
func MigrateDatabase(cfg *config.Config) (migrations.Status, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return migrations.Status{}, err
	}
	return db.MigrationStatus()
}

// DatabaseStatus reports the schema version of the configured database.
func DatabaseStatus(cfg *config.Config) (migrations.Status, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	return db.MigrationStatus()
}

// Service returns the ingest service.
func (a *EivuApp) Service() *eivu.IngestService {
	return a.service
}

// Gatherer returns the registry holding the app's metrics.
func (a *EivuApp) Gatherer() prometheus.Gatherer {
	return a.registry
}

// Logger returns the app logger in the core's interface.
func (a *EivuApp) Logger() eivu.Logger {
	return &slogAdapter{l: a.logger}
}

// Config returns the config the app was built from.
func (a *EivuApp) Config() *config.Config {
	return a.cfg
}

// Ingest ingests every file under rawPath into the named bucket.
func (a *EivuApp) Ingest(ctx context.Context, rawPath string, opts IngestOptions) (*IngestRun, error) {
	return a.ingester.IngestDirectory(ctx, rawPath, opts)
}

// ValidateGateway checks that the configured gateway is usable.
func (a *EivuApp) ValidateGateway(ctx context.Context) error {
	if err := a.gateway.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("%w: %w", eivu.ErrRemoteGateway, err)
	}
	return nil
}

// BackupDatabase writes a consistent snapshot of the database to dest.
func (a *EivuApp) BackupDatabase(dest string) error {
	return a.db.BackupTo(dest)
}

// Close closes the database and the log file.
func (a *EivuApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
