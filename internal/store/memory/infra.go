package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/predmarket/marketd/internal/domain"
)

// LockManager is an in-process domain.LockManager used when Redis is not
// configured.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]time.Time
	clock domain.Clock
}

// NewLockManager creates a LockManager using the given clock for TTL expiry.
func NewLockManager(clock domain.Clock) *LockManager {
	return &LockManager{locks: make(map[string]time.Time), clock: clock}
}

func (l *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if exp, ok := l.locks[key]; ok && exp.After(now) {
		return nil, domain.ErrLockHeld
	}
	l.locks[key] = now.Add(ttl)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locks, key)
	}, nil
}

// SignalBus is an in-process domain.SignalBus: fan-out channels plus an
// append-only stream per topic.
type SignalBus struct {
	mu      sync.Mutex
	subs    map[string][]chan []byte
	streams map[string][]domain.StreamMessage
	seq     map[string]int64
}

// NewSignalBus creates an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs:    make(map[string][]chan []byte),
		streams: make(map[string][]domain.StreamMessage),
		seq:     make(map[string]int64),
	}
}

func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			// Full buffer: drop rather than block the publisher.
		}
	}
	return nil
}

func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}()
	return ch, nil
}

func (b *SignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq[stream]++
	b.streams[stream] = append(b.streams[stream], domain.StreamMessage{
		ID:      strconv.FormatInt(b.seq[stream], 10),
		Payload: payload,
	})
	return nil
}

func (b *SignalBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var after int64
	if lastID != "" && lastID != "0" {
		n, err := strconv.ParseInt(lastID, 10, 64)
		if err != nil {
			return nil, domain.ErrNotFound
		}
		after = n
	}
	var out []domain.StreamMessage
	for _, msg := range b.streams[stream] {
		id, _ := strconv.ParseInt(msg.ID, 10, 64)
		if id <= after {
			continue
		}
		out = append(out, msg)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

// MarketCache is an in-process domain.MarketCache.
type MarketCache struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
}

// NewMarketCache creates an empty MarketCache.
func NewMarketCache() *MarketCache {
	return &MarketCache{markets: make(map[string]domain.Market)}
}

func (c *MarketCache) Set(_ context.Context, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markets[m.ID] = cloneMarket(m)
	return nil
}

func (c *MarketCache) Get(_ context.Context, id string) (domain.Market, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return cloneMarket(m), nil
}

func (c *MarketCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markets, id)
	return nil
}

// RateLimiter is an in-process sliding-window domain.RateLimiter.
type RateLimiter struct {
	mu    sync.Mutex
	hits  map[string][]time.Time
	clock domain.Clock
}

// NewRateLimiter creates a RateLimiter using the given clock.
func NewRateLimiter(clock domain.Clock) *RateLimiter {
	return &RateLimiter{hits: make(map[string][]time.Time), clock: clock}
}

func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	cutoff := now.Add(-window)
	kept := rl.hits[key][:0]
	for _, t := range rl.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= limit {
		rl.hits[key] = kept
		return false, nil
	}
	rl.hits[key] = append(kept, now)
	return true, nil
}

var (
	_ domain.LockManager = (*LockManager)(nil)
	_ domain.SignalBus   = (*SignalBus)(nil)
	_ domain.MarketCache = (*MarketCache)(nil)
	_ domain.RateLimiter = (*RateLimiter)(nil)
)
