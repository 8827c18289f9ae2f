package backend

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/store"
	"financas/internal/store/memory"
	"financas/internal/store/notify"
	"financas/internal/store/postgres"
	"financas/internal/store/sheets"
	"financas/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	base   *slog.Logger
	logger *slog.Logger
}

// NewFactory creates a new backend factory. logger should not carry a
// component; the factory and the stores it builds add their own.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		base:   logger,
		logger: logger.With("component", "backend"),
	}
}

// CreateBackend opens the configured store and composes the delivery mode
// on top of it: the memory store pushes natively, the others are wrapped in
// a notify.Hub when push mode is on.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st      store.Store
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		st, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		st, cleanup, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		st, cleanup, err = f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		st, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Store: st, Cleanup: cleanup}
	_, native := st.(store.Watcher)
	switch {
	case config.Push && !native:
		opts := []notify.Option{notify.WithLogger(f.base)}
		if config.Publisher != nil {
			opts = append(opts, notify.WithPublisher(config.Publisher))
		}
		res.Hub = notify.New(st, opts...)
		res.Store = res.Hub
	case !config.Push && native:
		res.Store = pullOnly{st}
	}

	f.logger.Info("Storage backend ready",
		"backend", config.Type.String(),
		"push", config.Push,
		"hub", res.Hub != nil,
		"publisher", config.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (store.Store, error) {
	st, err := memory.NewFromFile(config.MemorySeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)
	return st, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (store.Store, CleanupFunc, error) {
	st, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return st, st.Close, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (store.Store, CleanupFunc, error) {
	st, err := postgres.Open(ctx, config.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return st, st.Close, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (store.Store, error) {
	creds := sheets.Credentials{
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuthClientJSON:    config.GoogleOAuthClientJSON,
		OAuthClientFile:    config.GoogleOAuthClientFile,
		OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
		OAuthTokenFile:     config.GoogleOAuthTokenFile,
	}
	opts, err := creds.ClientOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}
	st, err := sheets.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets store: %w", err)
	}
	return st, nil
}

// pullOnly hides the Watcher side of a store so sessions re-read after
// writes instead of waiting for notifications.
type pullOnly struct {
	store.Store
}

func (p pullOnly) Ping(ctx context.Context) error {
	if pg, ok := p.Store.(store.Pinger); ok {
		return pg.Ping(ctx)
	}
	return nil
}
