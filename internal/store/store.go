package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotFound is returned when no value exists at a path.
var ErrNotFound = errors.New("store: path not found")

// Increment marks a MultiPathUpdate value as an atomic numeric delta
// applied at the store rather than a client-computed overwrite.
type Increment float64

// Event describes a change delivered to subscribers. Path is the
// deepest path the writer named; subscribers filter by prefix.
type Event struct {
	Path string `json:"path"`
}

// Store is the shared realtime tree holding riders, drivers, rides,
// transactions and waitlist entries. Paths are slash-separated:
// the first two segments address an entity document
// ("rides/<id>"), deeper segments address fields within it
// ("riders/<id>/walletBalance").
//
// MultiPathUpdate applies every entry as one batched write: a nil
// value deletes the path, an Increment value adjusts a numeric field
// atomically, anything else overwrites. GuardedUpdate additionally
// checks every guard path against its expected value first and
// applies nothing when any guard fails; it is the compare-and-swap
// primitive ride acceptance is built on. Guard values must be
// scalars (a nil guard asserts the path is absent or empty).
type Store interface {
	Read(ctx context.Context, path string, into any) error
	Write(ctx context.Context, path string, value any) error
	Push(path string) string
	MultiPathUpdate(ctx context.Context, updates map[string]any) error
	GuardedUpdate(ctx context.Context, guards map[string]any, updates map[string]any) (bool, error)
	AtomicIncrement(ctx context.Context, path string, delta float64) error
	List(ctx context.Context, collection string) (map[string]json.RawMessage, error)
	Subscribe(prefix string, fn func(Event)) (unsubscribe func())
}

// splitPath breaks a path into the entity part (collection/id) and
// the field segments below it.
func splitPath(path string) (entity string, fields []string) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) <= 2 {
		return strings.Join(segs, "/"), nil
	}
	return segs[0] + "/" + segs[1], segs[2:]
}
