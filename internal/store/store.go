// Package store defines the persistence port shared by every backend.
//
// A backend keeps named collections of opaque JSON records addressed by a
// slash-joined Path. Backends only support create, delete, read-all and
// remove-all; there is no update in place.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidPath = errors.New("invalid collection path")
	ErrEmptyID     = errors.New("empty record id")
)

// Path addresses one collection, e.g. "despesas/u1/2025/3".
type Path string

// Join builds a Path from segments. Empty segments are skipped so optional
// parts (such as the user id when authentication is off) simply disappear.
func Join(segments ...string) Path {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(strings.TrimSpace(s), "/")
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return Path(strings.Join(parts, "/"))
}

func (p Path) String() string { return string(p) }

// Validate rejects empty paths and paths with empty or dot segments.
func (p Path) Validate() error {
	if p == "" {
		return ErrInvalidPath
	}
	for _, seg := range strings.Split(string(p), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}

// Record is one stored item with its backend-assigned id.
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type (
	Store interface {
		// Create appends data to the collection and returns the new id.
		Create(ctx context.Context, path Path, data json.RawMessage) (string, error)
		// Delete removes one record; ErrNotFound when the id is unknown.
		Delete(ctx context.Context, path Path, id string) error
		// ReadAll returns the collection in insertion order. A collection
		// that was never written is empty, not an error.
		ReadAll(ctx context.Context, path Path) ([]Record, error)
		// RemoveAll drops the whole collection.
		RemoveAll(ctx context.Context, path Path) error
	}

	// Watcher is implemented by push-based backends. onChange receives the
	// full collection once on subscribe and again after every change. A
	// write made through the same process returns only after its
	// subscribers have seen the change.
	Watcher interface {
		Subscribe(ctx context.Context, path Path, onChange func([]Record)) (Subscription, error)
	}

	Subscription interface {
		Unsubscribe()
	}

	// Pinger reports whether the backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Encode marshals v for Create.
func Encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// CloneRecords copies a slice of records so callers cannot alias backend state.
func CloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = Record{ID: r.ID, Data: append(json.RawMessage(nil), r.Data...)}
	}
	return out
}
