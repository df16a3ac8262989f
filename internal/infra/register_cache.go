package infra

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cashpos/internal/model"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	registerListKey = "cache:registers"
	registerGenKey  = "cache:registers:gen"
	registerListTTL = 5 * time.Minute
)

// RedisRegisterCache shares the register list between API replicas.
// Cache failures are logged and treated as misses. Every Invalidate bumps a
// generation counter; SetRegisters only writes when the generation read before
// the load is still current, so a load racing a write never caches stale rows.
type RedisRegisterCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRegisterCache(rdb *redis.Client) *RedisRegisterCache {
	return &RedisRegisterCache{rdb: rdb, ttl: registerListTTL}
}

func (c *RedisRegisterCache) GetRegisters(ctx context.Context) ([]model.Register, bool) {
	raw, err := c.rdb.Get(ctx, registerListKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("register cache: get failed")
		}
		return nil, false
	}
	var regs []model.Register
	if err := json.Unmarshal(raw, &regs); err != nil {
		log.Warn().Err(err).Msg("register cache: corrupt entry")
		return nil, false
	}
	return regs, true
}

// Generation returns the current invalidation count, or -1 if Redis is
// unreachable (SetRegisters then skips the write).
func (c *RedisRegisterCache) Generation(ctx context.Context) int64 {
	gen, err := c.rdb.Get(ctx, registerGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		log.Warn().Err(err).Msg("register cache: generation read failed")
		return -1
	}
	return gen
}

func (c *RedisRegisterCache) SetRegisters(ctx context.Context, gen int64, regs []model.Register) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(regs)
	if err != nil {
		return
	}
	// WATCH aborts the write if another replica invalidates in between
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, registerGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, registerListKey, raw, c.ttl)
			return nil
		})
		return err
	}, registerGenKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		log.Warn().Err(err).Msg("register cache: set failed")
	}
}

func (c *RedisRegisterCache) Invalidate(ctx context.Context) {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, registerGenKey)
		p.Del(ctx, registerListKey)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("register cache: invalidate failed")
	}
}

// MemoryRegisterCache is the single-process fallback used when Redis is not configured.
type MemoryRegisterCache struct {
	mu  sync.Mutex
	gen int64
	c   *gocache.Cache
}

func NewMemoryRegisterCache() *MemoryRegisterCache {
	return &MemoryRegisterCache{c: gocache.New(registerListTTL, 10*time.Minute)}
}

func (m *MemoryRegisterCache) GetRegisters(_ context.Context) ([]model.Register, bool) {
	v, ok := m.c.Get(registerListKey)
	if !ok {
		return nil, false
	}
	regs := v.([]model.Register)
	out := make([]model.Register, len(regs))
	copy(out, regs)
	return out, true
}

func (m *MemoryRegisterCache) Generation(_ context.Context) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *MemoryRegisterCache) SetRegisters(_ context.Context, gen int64, regs []model.Register) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	stored := make([]model.Register, len(regs))
	copy(stored, regs)
	m.c.SetDefault(registerListKey, stored)
}

func (m *MemoryRegisterCache) Invalidate(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.c.Delete(registerListKey)
}
