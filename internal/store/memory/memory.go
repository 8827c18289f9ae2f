// Package memory is the push-based in-process backend. Subscribers receive
// the full collection on subscribe and after every change.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"financas/internal/store"
)

type Store struct {
	mu   sync.Mutex
	data map[store.Path][]store.Record
	last int64
	now  func() time.Time
	hub  *store.Broadcaster
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Watcher = (*Store)(nil)
	_ store.Pinger  = (*Store)(nil)
)

func New() *Store {
	return &Store{
		data: make(map[store.Path][]store.Record),
		now:  time.Now,
		hub:  store.NewBroadcaster(),
	}
}

// NewFromFile seeds the store from a JSON document mapping collection paths
// to arrays of records. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed map[string][]json.RawMessage
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	keys := make([]string, 0, len(seed))
	for k := range seed {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		p := store.Path(k)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("seed path %q: %w", k, err)
		}
		for _, item := range seed[k] {
			if _, err := s.Create(context.Background(), p, item); err != nil {
				return nil, fmt.Errorf("seed %q: %w", k, err)
			}
		}
	}
	return s, nil
}

// nextID returns a timestamp-based id, bumped when two creates land on the
// same nanosecond. Caller holds mu.
func (s *Store) nextID() string {
	n := s.now().UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 36)
}

func (s *Store) Create(_ context.Context, path store.Path, data json.RawMessage) (string, error) {
	if err := path.Validate(); err != nil {
		return "", err
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("create %s: invalid json", path)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	s.data[path] = append(s.data[path], store.Record{ID: id, Data: append(json.RawMessage(nil), data...)})
	s.hub.Publish(path, s.data[path])
	return id, nil
}

func (s *Store) Delete(_ context.Context, path store.Path, id string) error {
	if err := path.Validate(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.data[path]
	i := slices.IndexFunc(recs, func(r store.Record) bool { return r.ID == id })
	if i < 0 {
		return store.ErrNotFound
	}
	s.data[path] = slices.Delete(slices.Clone(recs), i, i+1)
	s.hub.Publish(path, s.data[path])
	return nil
}

func (s *Store) ReadAll(_ context.Context, path store.Path) ([]store.Record, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.CloneRecords(s.data[path]), nil
}

func (s *Store) RemoveAll(_ context.Context, path store.Path) error {
	if err := path.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, path)
	s.hub.Publish(path, nil)
	return nil
}

// Subscribe delivers the current collection immediately and then every
// replacement until the subscription is cancelled or ctx is done.
func (s *Store) Subscribe(ctx context.Context, path store.Path, onChange func([]store.Record)) (store.Subscription, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	l := s.hub.Add(path, onChange)
	l.Deliver(s.data[path])
	s.mu.Unlock()

	l.Bind(ctx)
	return l, nil
}

func (s *Store) Ping(context.Context) error { return nil }
