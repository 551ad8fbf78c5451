package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"clubebar/internal/dto"
)

const prefixo = "catalogo:"

type RedisCatalogoCache struct {
	client *redis.Client
}

func NewRedisCatalogoCache(client *redis.Client) *RedisCatalogoCache {
	return &RedisCatalogoCache{client: client}
}

func (c *RedisCatalogoCache) GetProdutos(ctx context.Context, key string) ([]dto.ProdutoResponse, bool, error) {
	var out []dto.ProdutoResponse
	ok, err := c.get(ctx, key, &out)
	return out, ok, err
}

func (c *RedisCatalogoCache) SetProdutos(ctx context.Context, key string, value []dto.ProdutoResponse, ttl time.Duration) error {
	return c.set(ctx, key, value, ttl)
}

func (c *RedisCatalogoCache) GetCategorias(ctx context.Context, key string) ([]dto.CategoriaResponse, bool, error) {
	var out []dto.CategoriaResponse
	ok, err := c.get(ctx, key, &out)
	return out, ok, err
}

func (c *RedisCatalogoCache) SetCategorias(ctx context.Context, key string, value []dto.CategoriaResponse, ttl time.Duration) error {
	return c.set(ctx, key, value, ttl)
}

func (c *RedisCatalogoCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, prefixo+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCatalogoCache) get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := c.client.Get(ctx, prefixo+key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCatalogoCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, prefixo+key, payload, ttl).Err()
}
