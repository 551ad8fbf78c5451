package cache

import (
	"context"
	"time"

	"clubebar/internal/dto"
)

// CatalogoCache stores the rendered catalog lists the register polls.
type CatalogoCache interface {
	GetProdutos(ctx context.Context, key string) ([]dto.ProdutoResponse, bool, error)
	SetProdutos(ctx context.Context, key string, value []dto.ProdutoResponse, ttl time.Duration) error
	GetCategorias(ctx context.Context, key string) ([]dto.CategoriaResponse, bool, error)
	SetCategorias(ctx context.Context, key string, value []dto.CategoriaResponse, ttl time.Duration) error
	// Invalidate drops every catalog entry; stock moves call it after commit.
	Invalidate(ctx context.Context) error
}

type NoopCatalogoCache struct{}

func (NoopCatalogoCache) GetProdutos(_ context.Context, _ string) ([]dto.ProdutoResponse, bool, error) {
	return nil, false, nil
}

func (NoopCatalogoCache) SetProdutos(_ context.Context, _ string, _ []dto.ProdutoResponse, _ time.Duration) error {
	return nil
}

func (NoopCatalogoCache) GetCategorias(_ context.Context, _ string) ([]dto.CategoriaResponse, bool, error) {
	return nil, false, nil
}

func (NoopCatalogoCache) SetCategorias(_ context.Context, _ string, _ []dto.CategoriaResponse, _ time.Duration) error {
	return nil
}

func (NoopCatalogoCache) Invalidate(_ context.Context) error { return nil }
