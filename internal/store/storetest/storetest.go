// Package storetest checks that a store.Store honours the storage contract.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"financas/internal/store"
)

// Run exercises s against the contract every backend shares: insertion
// order, single-record deletion, collection isolation and remove-all.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty collection", func(t *testing.T) {
		recs, err := s.ReadAll(ctx, "storetest/empty")
		if err != nil {
			t.Fatalf("read empty: %v", err)
		}
		if len(recs) != 0 {
			t.Fatalf("expected no records, got %d", len(recs))
		}
	})

	t.Run("create preserves order", func(t *testing.T) {
		p := store.Path("storetest/order")
		var ids []string
		for i := 0; i < 5; i++ {
			id, err := s.Create(ctx, p, raw(t, i))
			if err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
			if id == "" {
				t.Fatalf("create %d returned empty id", i)
			}
			ids = append(ids, id)
		}
		recs, err := s.ReadAll(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 5 {
			t.Fatalf("expected 5 records, got %d", len(recs))
		}
		seen := map[string]bool{}
		for i, r := range recs {
			if r.ID != ids[i] {
				t.Fatalf("position %d: id %s, want %s", i, r.ID, ids[i])
			}
			if seen[r.ID] {
				t.Fatalf("duplicate id %s", r.ID)
			}
			seen[r.ID] = true
			if got := value(t, r.Data); got != i {
				t.Fatalf("position %d holds %d", i, got)
			}
		}
	})

	t.Run("delete removes exactly one", func(t *testing.T) {
		p := store.Path("storetest/delete")
		var ids []string
		for i := 0; i < 3; i++ {
			id, err := s.Create(ctx, p, raw(t, i))
			if err != nil {
				t.Fatal(err)
			}
			ids = append(ids, id)
		}
		if err := s.Delete(ctx, p, ids[1]); err != nil {
			t.Fatalf("delete: %v", err)
		}
		recs, err := s.ReadAll(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 2 || recs[0].ID != ids[0] || recs[1].ID != ids[2] {
			t.Fatalf("unexpected records after delete: %+v", recs)
		}
		if err := s.Delete(ctx, p, ids[1]); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(ctx, p, "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("collections are isolated", func(t *testing.T) {
		a, b := store.Path("storetest/iso/2025/1"), store.Path("storetest/iso/2025/10")
		if _, err := s.Create(ctx, a, raw(t, 1)); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Create(ctx, b, raw(t, 10)); err != nil {
			t.Fatal(err)
		}
		recs, err := s.ReadAll(ctx, a)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 || value(t, recs[0].Data) != 1 {
			t.Fatalf("collection %s leaked records: %+v", a, recs)
		}
	})

	t.Run("remove all", func(t *testing.T) {
		p, other := store.Path("storetest/clear/a"), store.Path("storetest/clear/b")
		for i := 0; i < 3; i++ {
			if _, err := s.Create(ctx, p, raw(t, i)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := s.Create(ctx, other, raw(t, 9)); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveAll(ctx, p); err != nil {
			t.Fatalf("remove all: %v", err)
		}
		recs, err := s.ReadAll(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 0 {
			t.Fatalf("expected empty collection, got %d", len(recs))
		}
		recs, err = s.ReadAll(ctx, other)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 {
			t.Fatalf("sibling collection affected: %d records", len(recs))
		}
		if err := s.RemoveAll(ctx, "storetest/never-written"); err != nil {
			t.Fatalf("remove all on empty collection: %v", err)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		if _, err := s.Create(ctx, "", raw(t, 0)); !errors.Is(err, store.ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath, got %v", err)
		}
		if _, err := s.ReadAll(ctx, "a//b"); !errors.Is(err, store.ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath, got %v", err)
		}
	})
}

type item struct {
	N int `json:"n"`
}

func raw(t *testing.T, n int) json.RawMessage {
	t.Helper()
	b, err := store.Encode(item{N: n})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func value(t *testing.T, data json.RawMessage) int {
	t.Helper()
	var it item
	if err := json.Unmarshal(data, &it); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return it.N
}
