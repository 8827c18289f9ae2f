package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"financas/internal/config"
	"financas/internal/store"
	"financas/internal/store/notify"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []notify.Change
}

func (p *recordingPublisher) Publish(_ context.Context, c notify.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func TestCreateBackend_Modes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name      string
		config    Config
		wantWatch bool
		wantHub   bool
	}{
		{"memory push", Config{Type: MemoryBackend, Push: true}, true, false},
		{"memory pull", Config{Type: MemoryBackend}, false, false},
		{"sqlite push", Config{Type: SQLiteBackend, Push: true, SQLiteDBPath: filepath.Join(dir, "push.db")}, true, true},
		{"sqlite pull", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "pull.db")}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(context.Background(), tt.config)
			if err != nil {
				t.Fatal(err)
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}
			_, watch := res.Store.(store.Watcher)
			if watch != tt.wantWatch {
				t.Errorf("watcher = %v, want %v", watch, tt.wantWatch)
			}
			if (res.Hub != nil) != tt.wantHub {
				t.Errorf("hub = %v, want %v", res.Hub != nil, tt.wantHub)
			}
			if _, ok := res.Store.(store.Pinger); !ok {
				t.Error("composed store lost Ping")
			}
		})
	}
}

func TestCreateBackend_PublisherWired(t *testing.T) {
	pub := &recordingPublisher{}
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		Push:         true,
		SQLiteDBPath: filepath.Join(t.TempDir(), "f.db"),
		Publisher:    pub,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if _, err := res.Store.Create(context.Background(), "metas/u1", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.changes) != 1 || pub.changes[0].Op != notify.OpCreate {
		t.Fatalf("changes = %+v", pub.changes)
	}
}

func TestCreateBackend_MemorySeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	doc := `{"metas":[{"descricao":"Viagem","alvo":1000,"atual":250,"progresso":25}]}`
	if err := os.WriteFile(seed, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, MemorySeedFile: seed})
	if err != nil {
		t.Fatal(err)
	}
	recs, err := res.Store.ReadAll(context.Background(), "metas")
	if err != nil || len(recs) != 1 {
		t.Fatalf("seeded records = %d, %v", len(recs), err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "redis"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without dsn", Config{Type: PostgresBackend}, true},
		{"postgres", Config{Type: PostgresBackend, PostgresDSN: "postgres://localhost/x"}, false},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"}, true},
		{"sheets with client but no token", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleOAuthClientJSON: "{}"}, true},
		{"sheets with service account", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleServiceAccountJSON: "{}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.config.Type == "redis" && err != nil && !strings.Contains(err.Error(), "valid: memory") {
				t.Errorf("error does not list the valid backends: %v", err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config accepted")
	}
	cfg := &config.Config{DataBackend: "postgres", PostgresDSN: "dsn", NotifyMode: config.NotifyPush}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if bc.Type != PostgresBackend || bc.PostgresDSN != "dsn" || !bc.Push {
		t.Errorf("backend config = %+v", bc)
	}
	_, err = FromAppConfig(&config.Config{DataBackend: "nope"})
	if err == nil {
		t.Fatal("invalid backend accepted")
	}
	if !strings.Contains(err.Error(), "memory, sqlite, postgres, sheets") {
		t.Errorf("error does not list the valid backends: %v", err)
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 4 || got[0] != "memory" || got[3] != "sheets" {
		t.Errorf("types = %v", got)
	}
}

func TestCreateBackend_LogsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	if _, err := NewFactory(logger).CreateBackend(context.Background(), Config{Type: MemoryBackend}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatal("nothing logged")
	}
	for _, line := range lines {
		if n := strings.Count(line, "component="); n != 1 {
			t.Errorf("%d component fields in %q", n, line)
		}
		if !strings.Contains(line, "component=backend") {
			t.Errorf("line without backend component: %q", line)
		}
	}
}
