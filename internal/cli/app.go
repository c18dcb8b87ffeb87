package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/attendkeeper/internal/config"
	"github.com/dmitrijs2005/attendkeeper/internal/engine"
	"github.com/dmitrijs2005/attendkeeper/internal/filex"
	"github.com/dmitrijs2005/attendkeeper/internal/geolocation"
	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/dmitrijs2005/attendkeeper/internal/repositories/markers"
	"github.com/dmitrijs2005/attendkeeper/internal/repositories/metadata"
	"github.com/dmitrijs2005/attendkeeper/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Remote is what the app needs from the ledger: records and the roster.
type Remote interface {
	ledger.Client
	ledger.RosterSource
}

// RemoteFactory builds the remote ledger for cfg.
type RemoteFactory func(ctx context.Context, cfg *config.Config) (Remote, error)

// HTTPRemote builds the spreadsheet ledger client from cfg.
func HTTPRemote(ctx context.Context, cfg *config.Config) (Remote, error) {
	if err := cfg.RequireLedger(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return ledger.NewHTTPClient(ctx, ledger.HTTPOptions{
		Endpoint:          cfg.LedgerURL,
		Token:             cfg.LedgerToken,
		Timeout:           cfg.LedgerTimeout,
		RequestsPerSecond: cfg.LedgerRPS,
		Burst:             cfg.LedgerBurst,
		Location:          loc,
	})
}

// App wires the engine to its storage, ledger and logger for one CLI run.
type App struct {
	config *config.Config
	log    logging.Logger
	engine *engine.Engine

	db  *sql.DB
	rdb *redis.Client
}

func NewApp(ctx context.Context, cfg *config.Config, newRemote RemoteFactory) (*App, error) {
	log, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	app := &App{config: cfg, log: log}
	if err := app.init(ctx, newRemote); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context, newRemote RemoteFactory) error {
	cfg := a.config

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	cutoff, err := cfg.CutoffTime()
	if err != nil {
		return err
	}

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return err
	}
	a.db, err = storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		a.log.Error(ctx, "error initializing database", "path", cfg.DatabasePath, "error", err)
		return err
	}

	var store markers.Repository
	switch cfg.MarkerBackend {
	case config.BackendRedis:
		a.rdb = markers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		store = markers.NewRedisRepository(a.rdb, cfg.MarkerTTL())
	default:
		store = markers.NewSQLiteRepository(a.db)
	}

	remote, err := newRemote(ctx, cfg)
	if err != nil {
		return err
	}

	a.engine, err = engine.New(engine.Deps{
		Ledger:      remote,
		Roster:      remote,
		Markers:     store,
		Cache:       metadata.NewSnapshotCache(a.db),
		Geolocation: geolocation.Unavailable{},
		Logger:      a.log,
	}, engine.Options{
		Site:                models.Coordinates{Lat: cfg.SiteLat, Lon: cfg.SiteLon},
		RadiusMeters:        cfg.SiteRadiusMeters,
		Location:            loc,
		Cutoff:              cutoff,
		LocationTimeout:     cfg.LocationTimeout,
		RequestTimeout:      cfg.LedgerTimeout,
		RefreshInterval:     cfg.RefreshInterval,
		ReconcileRetries:    uint64(max(cfg.ReconcileRetries, 0)),
		ReconcileBackoff:    cfg.ReconcileBackoff,
		MarkerRetentionDays: cfg.MarkerRetentionDays,
	})
	return err
}

// Close releases everything NewApp opened. Pending reconciliation retries
// are given up.
func (a *App) Close() error {
	var errs []error
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if s, ok := a.log.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return errors.Join(errs...)
}
