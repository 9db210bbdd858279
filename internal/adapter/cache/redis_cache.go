package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridwatt/energy-market/internal/domain"
	"github.com/gridwatt/energy-market/internal/port"
)

var _ port.Cache = (*RedisCache)(nil)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

func marketKey(id string) string { return "market:" + id }
func ledgerKey(id string) string { return "ledger:" + id }

func (c *RedisCache) SetMarket(ctx context.Context, m *domain.Market) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, marketKey(m.ID), b, c.ttl).Err()
}

func (c *RedisCache) GetMarket(ctx context.Context, id string) (*domain.Market, error) {
	b, err := c.client.Get(ctx, marketKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m domain.Market
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *RedisCache) SetLedger(ctx context.Context, snap *domain.LedgerSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ledgerKey(snap.MarketID), b, c.ttl).Err()
}

func (c *RedisCache) GetLedger(ctx context.Context, marketID string) (*domain.LedgerSnapshot, error) {
	b, err := c.client.Get(ctx, ledgerKey(marketID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.LedgerSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, marketID string) error {
	return c.client.Del(ctx, marketKey(marketID), ledgerKey(marketID)).Err()
}
