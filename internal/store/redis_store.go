package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "rt:"
	changeChannel = "rt:changes"
)

// applyScript applies a batch of guarded path operations as one atomic
// unit. Entity documents are JSON strings under rt:<collection>/<id>;
// field operations decode the document, mutate it in place and write
// it back inside the same script execution. Returns 1 when all guards
// held and the batch was applied, 0 when a guard failed.
var applyScript = redis.NewScript(`
local spec = cjson.decode(ARGV[1])
local docs = {}
local dirty = {}

local function load(key)
  if docs[key] == nil then
    local raw = redis.call('GET', key)
    if raw then docs[key] = cjson.decode(raw) else docs[key] = false end
  end
  return docs[key]
end

local function fieldval(doc, fields)
  local cur = doc
  for i = 1, #fields do
    if type(cur) ~= 'table' then return nil end
    cur = cur[fields[i]]
  end
  return cur
end

for _, g in ipairs(spec.guards or {}) do
  local doc = load(g.key)
  local cur
  if doc ~= false then cur = fieldval(doc, g.fields or {}) end
  if g.absent then
    if cur ~= nil and cur ~= cjson.null and cur ~= '' then return 0 end
  else
    if cur == nil or cur ~= g.expect then return 0 end
  end
end

for _, op in ipairs(spec.ops or {}) do
  local fields = op.fields or {}
  if #fields == 0 then
    if op.op == 'del' then
      redis.call('DEL', op.key)
      docs[op.key] = false
    else
      docs[op.key] = op.value
      redis.call('SET', op.key, cjson.encode(op.value))
    end
    dirty[op.key] = nil
  else
    local doc = load(op.key)
    if doc == false then
      doc = {}
      docs[op.key] = doc
    end
    local cur = doc
    for i = 1, #fields - 1 do
      if type(cur[fields[i]]) ~= 'table' then cur[fields[i]] = {} end
      cur = cur[fields[i]]
    end
    local leaf = fields[#fields]
    if op.op == 'del' then
      cur[leaf] = nil
    elseif op.op == 'incr' then
      cur[leaf] = (tonumber(cur[leaf]) or 0) + op.value
    else
      cur[leaf] = op.value
    end
    dirty[op.key] = true
  end
end

for key in pairs(dirty) do
  redis.call('SET', key, cjson.encode(docs[key]))
end
return 1
`)

type luaGuard struct {
	Key    string   `json:"key"`
	Fields []string `json:"fields,omitempty"`
	Absent bool     `json:"absent,omitempty"`
	Expect any      `json:"expect,omitempty"`
}

type luaOp struct {
	Key    string   `json:"key"`
	Fields []string `json:"fields,omitempty"`
	Op     string   `json:"op"`
	Value  any      `json:"value,omitempty"`
}

type luaSpec struct {
	Guards []luaGuard `json:"guards,omitempty"`
	Ops    []luaOp    `json:"ops,omitempty"`
}

// RedisStore keeps the realtime tree in Redis, one JSON document per
// entity, with multi-path updates applied atomically server side and
// change fan-out over pub/sub.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Read(ctx context.Context, path string, into any) error {
	entity, fields := splitPath(path)
	raw, err := s.client.Get(ctx, keyPrefix+entity).Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store read %s: %w", path, err)
	}
	if len(fields) == 0 {
		return json.Unmarshal([]byte(raw), into)
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("store read %s: %w", path, err)
	}
	cur := doc
	for _, f := range fields {
		m, ok := cur.(map[string]any)
		if !ok {
			return ErrNotFound
		}
		cur, ok = m[f]
		if !ok {
			return ErrNotFound
		}
	}
	leaf, err := json.Marshal(cur)
	if err != nil {
		return err
	}
	return json.Unmarshal(leaf, into)
}

func (s *RedisStore) Write(ctx context.Context, path string, value any) error {
	return s.MultiPathUpdate(ctx, map[string]any{path: value})
}

// Push returns a fresh child id for a collection. Ids are minted
// client side so a booking can reference its ride id before the
// write lands.
func (s *RedisStore) Push(path string) string {
	return uuid.NewString()
}

func (s *RedisStore) MultiPathUpdate(ctx context.Context, updates map[string]any) error {
	ok, err := s.GuardedUpdate(ctx, nil, updates)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("store: unguarded update rejected")
	}
	return nil
}

func (s *RedisStore) GuardedUpdate(ctx context.Context, guards map[string]any, updates map[string]any) (bool, error) {
	spec := luaSpec{}
	for path, expect := range guards {
		entity, fields := splitPath(path)
		g := luaGuard{Key: keyPrefix + entity, Fields: fields}
		if expect == nil {
			g.Absent = true
		} else {
			g.Expect = expect
		}
		spec.Guards = append(spec.Guards, g)
	}
	paths := make([]string, 0, len(updates))
	for path, value := range updates {
		entity, fields := splitPath(path)
		op := luaOp{Key: keyPrefix + entity, Fields: fields}
		switch v := value.(type) {
		case nil:
			op.Op = "del"
		case Increment:
			op.Op = "incr"
			op.Value = float64(v)
		default:
			op.Op = "set"
			op.Value = value
		}
		spec.Ops = append(spec.Ops, op)
		paths = append(paths, path)
	}
	payload, err := json.Marshal(spec)
	if err != nil {
		return false, fmt.Errorf("store: encode update: %w", err)
	}
	res, err := applyScript.Run(ctx, s.client, []string{}, string(payload)).Int()
	if err != nil {
		return false, fmt.Errorf("store: apply update: %w", err)
	}
	if res != 1 {
		return false, nil
	}
	pipe := s.client.Pipeline()
	for _, p := range paths {
		pipe.Publish(ctx, changeChannel, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true, nil // change delivery is best effort
	}
	return true, nil
}

func (s *RedisStore) AtomicIncrement(ctx context.Context, path string, delta float64) error {
	return s.MultiPathUpdate(ctx, map[string]any{path: Increment(delta)})
}

func (s *RedisStore) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	match := keyPrefix + collection + "/*"
	var keys []string
	iter := s.client.Scan(ctx, 0, match, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("store list %s: %w", collection, err)
	}
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("store list %s: %w", collection, err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		id := strings.TrimPrefix(keys[i], keyPrefix+collection+"/")
		out[id] = json.RawMessage(raw)
	}
	return out, nil
}

// Subscribe delivers change events for paths under the given prefix.
// Delivery is at-most-once; consumers needing certainty re-read the
// store.
func (s *RedisStore) Subscribe(prefix string, fn func(Event)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := s.client.Subscribe(ctx, changeChannel)
	var once sync.Once
	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			if strings.HasPrefix(msg.Payload, prefix) {
				fn(Event{Path: msg.Payload})
			}
		}
	}()
	return func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
		})
	}
}
