package offline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Signal reports whether the realtime store is reachable and invokes
// callbacks on transitions. Callbacks run on the prober goroutine and
// must not block.
type Signal interface {
	IsOnline() bool
	OnOnline(fn func())
	OnOffline(fn func())
}

// RedisProbe derives connectivity from periodic PINGs against the
// store's Redis client.
type RedisProbe struct {
	client   *redis.Client
	interval time.Duration

	mu     sync.Mutex
	online bool
	onUp   []func()
	onDown []func()
}

func NewRedisProbe(client *redis.Client, interval time.Duration) *RedisProbe {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RedisProbe{client: client, interval: interval, online: true}
}

func (p *RedisProbe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *RedisProbe) OnOnline(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUp = append(p.onUp, fn)
}

func (p *RedisProbe) OnOffline(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDown = append(p.onDown, fn)
}

// Run probes until ctx is cancelled.
func (p *RedisProbe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *RedisProbe) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := p.client.Ping(pingCtx).Err()
	cancel()

	p.mu.Lock()
	was := p.online
	p.online = err == nil
	var fire []func()
	if !was && p.online {
		fire = append(fire, p.onUp...)
	} else if was && !p.online {
		fire = append(fire, p.onDown...)
	}
	p.mu.Unlock()

	if was && err != nil {
		log.Printf("Store connectivity lost: %v", err)
	}
	if !was && err == nil {
		log.Println("Store connectivity restored")
	}
	for _, fn := range fire {
		fn()
	}
}

// ManualSignal is a Signal toggled explicitly. Used in tests and by
// setups without a prober.
type ManualSignal struct {
	mu     sync.Mutex
	online bool
	onUp   []func()
	onDown []func()
}

func NewManualSignal(online bool) *ManualSignal {
	return &ManualSignal{online: online}
}

func (m *ManualSignal) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *ManualSignal) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUp = append(m.onUp, fn)
}

func (m *ManualSignal) OnOffline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDown = append(m.onDown, fn)
}

func (m *ManualSignal) Set(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	var fire []func()
	if !was && online {
		fire = append(fire, m.onUp...)
	} else if was && !online {
		fire = append(fire, m.onDown...)
	}
	m.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
}
