// Package rediscache cachea decisiones de acceso en Redis con TTL corto.
// Implementa access.DecisionCache y el AccessCache de los servicios que
// mutan (invalidación por cliente). Todo es best-effort: si Redis falla,
// la decisión se recalcula contra la base.
package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "access:"

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New envuelve un cliente ya conectado. ttl <= 0 usa 30s.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// NewClient conecta a Redis y hace ping con timeout corto. Devuelve nil si
// no hay servidor: el caller degrada a operar sin cache.
func NewClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

func (c *Cache) GetDecision(ctx context.Context, key string) (bool, bool) {
	v, err := c.rdb.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, false
	}
	return v == "1", true
}

func (c *Cache) SetDecision(ctx context.Context, key string, allowed bool) {
	v := "0"
	if allowed {
		v = "1"
	}
	_ = c.rdb.Set(ctx, keyPrefix+key, v, c.ttl).Err()
}

// InvalidateClient borra todas las decisiones cacheadas del cliente. Las
// keys arrancan con el clientID justamente para poder barrer por prefijo.
func (c *Cache) InvalidateClient(ctx context.Context, clientID string) {
	if clientID == "" {
		return
	}
	iter := c.rdb.Scan(ctx, 0, keyPrefix+clientID+":*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.rdb.Del(ctx, iter.Val()).Err()
	}
}
