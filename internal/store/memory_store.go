package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same path and guard
// semantics as RedisStore. Used by tests and by single-node setups
// that run without Redis.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any

	subMu sync.Mutex
	subs  map[int]subscription
	nextS int
}

type subscription struct {
	prefix string
	fn     func(Event)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]any),
		subs: make(map[int]subscription),
	}
}

// normalize round-trips a value through JSON so stored documents look
// exactly like what a Redis read would decode.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MemoryStore) Read(ctx context.Context, path string, into any) error {
	s.mu.RLock()
	entity, fields := splitPath(path)
	doc, ok := s.docs[entity]
	if !ok {
		s.mu.RUnlock()
		return ErrNotFound
	}
	var cur any = doc
	for _, f := range fields {
		m, isMap := cur.(map[string]any)
		if !isMap {
			s.mu.RUnlock()
			return ErrNotFound
		}
		var present bool
		cur, present = m[f]
		if !present {
			s.mu.RUnlock()
			return ErrNotFound
		}
	}
	raw, err := json.Marshal(cur)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

func (s *MemoryStore) Write(ctx context.Context, path string, value any) error {
	return s.MultiPathUpdate(ctx, map[string]any{path: value})
}

func (s *MemoryStore) Push(path string) string {
	return uuid.NewString()
}

func (s *MemoryStore) MultiPathUpdate(ctx context.Context, updates map[string]any) error {
	ok, err := s.GuardedUpdate(ctx, nil, updates)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("store: unguarded update rejected")
	}
	return nil
}

func (s *MemoryStore) GuardedUpdate(ctx context.Context, guards map[string]any, updates map[string]any) (bool, error) {
	s.mu.Lock()
	for path, expect := range guards {
		entity, fields := splitPath(path)
		var cur any
		if doc, ok := s.docs[entity]; ok {
			cur = fieldAt(doc, fields)
		}
		if expect == nil {
			if cur != nil && cur != "" {
				s.mu.Unlock()
				return false, nil
			}
			continue
		}
		want, err := normalize(expect)
		if err != nil {
			s.mu.Unlock()
			return false, err
		}
		if cur == nil || cur != want {
			s.mu.Unlock()
			return false, nil
		}
	}
	paths := make([]string, 0, len(updates))
	for path, value := range updates {
		if err := s.apply(path, value); err != nil {
			s.mu.Unlock()
			return false, err
		}
		paths = append(paths, path)
	}
	s.mu.Unlock()
	s.notify(paths)
	return true, nil
}

func (s *MemoryStore) apply(path string, value any) error {
	entity, fields := splitPath(path)
	if len(fields) == 0 {
		if value == nil {
			delete(s.docs, entity)
			return nil
		}
		if _, isIncr := value.(Increment); isIncr {
			return fmt.Errorf("store: increment needs a field path, got %s", path)
		}
		norm, err := normalize(value)
		if err != nil {
			return err
		}
		doc, ok := norm.(map[string]any)
		if !ok {
			return fmt.Errorf("store: entity value at %s must be an object", path)
		}
		s.docs[entity] = doc
		return nil
	}
	doc, ok := s.docs[entity]
	if !ok {
		if value == nil {
			return nil
		}
		doc = make(map[string]any)
		s.docs[entity] = doc
	}
	cur := doc
	for _, f := range fields[:len(fields)-1] {
		next, isMap := cur[f].(map[string]any)
		if !isMap {
			next = make(map[string]any)
			cur[f] = next
		}
		cur = next
	}
	leaf := fields[len(fields)-1]
	switch v := value.(type) {
	case nil:
		delete(cur, leaf)
	case Increment:
		base, _ := cur[leaf].(float64)
		cur[leaf] = base + float64(v)
	default:
		norm, err := normalize(value)
		if err != nil {
			return err
		}
		cur[leaf] = norm
	}
	return nil
}

func fieldAt(doc map[string]any, fields []string) any {
	var cur any = doc
	for _, f := range fields {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[f]
	}
	return cur
}

func (s *MemoryStore) AtomicIncrement(ctx context.Context, path string, delta float64) error {
	return s.MultiPathUpdate(ctx, map[string]any{path: Increment(delta)})
}

func (s *MemoryStore) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]json.RawMessage)
	prefix := collection + "/"
	for entity, doc := range s.docs {
		if !strings.HasPrefix(entity, prefix) {
			continue
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(entity, prefix)] = raw
	}
	return out, nil
}

func (s *MemoryStore) Subscribe(prefix string, fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextS
	s.nextS++
	s.subs[id] = subscription{prefix: prefix, fn: fn}
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *MemoryStore) notify(paths []string) {
	s.subMu.Lock()
	subs := make([]subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()
	for _, sub := range subs {
		for _, p := range paths {
			if strings.HasPrefix(p, sub.prefix) {
				sub.fn(Event{Path: p})
			}
		}
	}
}
