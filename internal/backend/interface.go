package backend

import (
	"context"

	"financas/internal/store"
	"financas/internal/store/notify"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result is the composed store plus whatever the caller has to close.
type Result struct {
	// Store is what sessions talk to. In push mode it also implements
	// store.Watcher.
	Store store.Store
	// Hub is set when a pull-based backend was wrapped for push delivery;
	// the change bus consumer refreshes it.
	Hub     *notify.Hub
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType
	// Push selects notification delivery to sessions.
	Push bool
	// Publisher, when set, announces mutations to other processes.
	Publisher notify.Publisher

	// Memory specific
	MemorySeedFile string

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
