package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/app"
	"financas/internal/cache"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/store"
	"financas/internal/store/memory"
	"financas/internal/store/notify"
)

type pullOnly struct {
	store.Store
}

type countingRefresher struct {
	mu    sync.Mutex
	all   int
	paths []store.Path
	err   error
}

func (r *countingRefresher) RefreshAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all++
	return r.err
}

func (r *countingRefresher) Refresh(_ context.Context, p store.Path) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, p)
	return r.err
}

type fixedCleaner int

func (f fixedCleaner) CleanExpired() int { return int(f) }

var (
	quiet = applog.NewText(io.Discard, 0, applog.ComponentWorker)
	now   = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	march = core.Scope{Year: 2024, Month: 3}
)

func testConfig() Config {
	return Config{ReloadSchedule: "@every 1h", CacheCleanupSchedule: "@every 1h"}
}

func newSessions(t *testing.T, st store.Store) *app.Sessions {
	t.Helper()
	s := app.NewSessions(st, 10, time.Hour, app.Options{Now: func() time.Time { return now }, Logger: quiet})
	t.Cleanup(s.Close)
	return s
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	sessions := newSessions(t, memory.New())
	for _, cfg := range []Config{
		{ReloadSchedule: "every minute", CacheCleanupSchedule: "@every 1m"},
		{ReloadSchedule: "@every 1m", CacheCleanupSchedule: ""},
	} {
		if _, err := NewScheduler(cfg, sessions, cache.NewManager(), nil, quiet); err == nil {
			t.Errorf("config %+v accepted", cfg)
		}
	}
}

func TestReloadSessions_PicksUpOutOfBandWrites(t *testing.T) {
	mem := memory.New()
	sessions := newSessions(t, pullOnly{mem})
	hub := &countingRefresher{}
	s, err := NewScheduler(testConfig(), sessions, cache.NewManager(), hub, quiet)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	c, err := sessions.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(map[string]any{
		"descricao": "Salário", "valor": 1000, "tipo": "receita", "categoria": "Salário", "data": "05/03/2024",
	})
	if _, err := mem.Create(ctx, store.Namespace{User: "u1"}.Income(march), data); err != nil {
		t.Fatal(err)
	}
	if len(c.Snapshot().Income) != 0 {
		t.Fatal("pull session saw the write before reload")
	}

	if n := s.ReloadSessions(ctx); n != 1 {
		t.Fatalf("reloaded %d sessions, want 1", n)
	}
	if got := c.Snapshot().Totals.TotalIncome; got.Cents != 100000 {
		t.Errorf("income after reload = %d cents", got.Cents)
	}
	if hub.all != 1 {
		t.Errorf("hub refreshed %d times", hub.all)
	}
	if reloads, failures := s.Stats(); reloads != 1 || failures != 0 {
		t.Errorf("stats = %d, %d", reloads, failures)
	}
}

func TestReloadSessions_SkipsPushSessions(t *testing.T) {
	sessions := newSessions(t, memory.New())
	s, err := NewScheduler(testConfig(), sessions, cache.NewManager(), nil, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.Get(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if n := s.ReloadSessions(context.Background()); n != 0 {
		t.Errorf("reloaded %d push sessions", n)
	}
}

func TestReloadSessions_HubFailureCounted(t *testing.T) {
	sessions := newSessions(t, memory.New())
	hub := &countingRefresher{err: errors.New("sheets quota exceeded")}
	s, err := NewScheduler(testConfig(), sessions, cache.NewManager(), hub, quiet)
	if err != nil {
		t.Fatal(err)
	}
	s.ReloadSessions(context.Background())
	if _, failures := s.Stats(); failures != 1 {
		t.Errorf("failures = %d", failures)
	}
}

func TestCleanCachesAndLifecycle(t *testing.T) {
	m := cache.NewManager()
	m.Register(fixedCleaner(2))
	m.Register(fixedCleaner(3))
	s, err := NewScheduler(testConfig(), newSessions(t, memory.New()), m, nil, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if n := s.CleanCaches(); n != 5 {
		t.Errorf("CleanCaches() = %d, want 5", n)
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() = %v", err)
	}
}

type fakeClient struct {
	mu        sync.Mutex
	published []*amqp.ChangeMessage
	incoming  []*amqp.ChangeMessage
	handled   []error
}

func (f *fakeClient) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeClient) ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error {
	for _, m := range f.incoming {
		f.handled = append(f.handled, handler(m))
	}
	return context.Canceled
}

func TestChangeBus_Publish(t *testing.T) {
	client := &fakeClient{}
	bus := NewChangeBus(client, quiet)

	err := bus.Publish(context.Background(), notify.Change{Path: "metas/u1", Op: notify.OpCreate, ID: "42"})
	if err != nil {
		t.Fatal(err)
	}
	if len(client.published) != 1 {
		t.Fatalf("published %d messages", len(client.published))
	}
	msg := client.published[0]
	if msg.Origin != bus.Origin() || msg.Path != "metas/u1" || msg.Op != "create" || msg.ID != "42" {
		t.Errorf("message = %+v", msg)
	}
}

func TestChangeBus_Run(t *testing.T) {
	client := &fakeClient{}
	bus := NewChangeBus(client, quiet)
	client.incoming = []*amqp.ChangeMessage{
		amqp.NewChangeMessage(bus.Origin(), "metas/u1", "create", "1"),
		amqp.NewChangeMessage("other", "despesas/u1/2024/3", "delete", "2"),
		amqp.NewChangeMessage("other", "despesas//x", "clear", ""),
	}
	target := &countingRefresher{}

	if err := bus.Run(context.Background(), target); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(target.paths) != 1 || target.paths[0] != "despesas/u1/2024/3" {
		t.Errorf("refreshed %v", target.paths)
	}
	for i, err := range client.handled {
		if err != nil {
			t.Errorf("message %d handler error %v", i, err)
		}
	}
}

func TestChangeBus_RefreshErrorRequeues(t *testing.T) {
	client := &fakeClient{}
	bus := NewChangeBus(client, quiet)
	client.incoming = []*amqp.ChangeMessage{amqp.NewChangeMessage("other", "metas/u1", "create", "1")}
	target := &countingRefresher{err: errors.New("backend down")}

	_ = bus.Run(context.Background(), target)
	if len(client.handled) != 1 || client.handled[0] == nil {
		t.Errorf("handler results = %v", client.handled)
	}
}
