package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clubebar/internal/apierror"
	"clubebar/internal/cache"
	"clubebar/internal/dto"
	"clubebar/internal/model"
	"clubebar/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CatalogoService interface {
	ListarProdutos(ctx context.Context, apenasAtivos bool) ([]dto.ProdutoResponse, error)
	ListarCategorias(ctx context.Context) ([]dto.CategoriaResponse, error)
	ObterProduto(ctx context.Context, id uuid.UUID) (*model.Produto, error)
	// Invalidar drops cached lists after stock moved.
	Invalidar(ctx context.Context)
}

type catalogoService struct {
	repo  repository.CatalogoRepository
	cache cache.CatalogoCache
	ttl   time.Duration
}

// NewCatalogoService wires the read model. A nil cache falls back to no caching.
func NewCatalogoService(repo repository.CatalogoRepository, c cache.CatalogoCache, ttl time.Duration) CatalogoService {
	if c == nil {
		c = cache.NoopCatalogoCache{}
	}
	return &catalogoService{repo: repo, cache: c, ttl: ttl}
}

func (s *catalogoService) ListarProdutos(ctx context.Context, apenasAtivos bool) ([]dto.ProdutoResponse, error) {
	key := fmt.Sprintf("produtos:ativos=%t", apenasAtivos)
	if cached, ok, err := s.cache.GetProdutos(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalogo: cache read failed")
	} else if ok {
		return cached, nil
	}

	produtos, err := s.repo.ListProdutos(ctx, apenasAtivos)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProdutoResponse, 0, len(produtos))
	for _, p := range produtos {
		out = append(out, produtoToResponse(p))
	}

	if err := s.cache.SetProdutos(ctx, key, out, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalogo: cache write failed")
	}
	return out, nil
}

func (s *catalogoService) ListarCategorias(ctx context.Context) ([]dto.CategoriaResponse, error) {
	const key = "categorias"
	if cached, ok, err := s.cache.GetCategorias(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalogo: cache read failed")
	} else if ok {
		return cached, nil
	}

	categorias, err := s.repo.ListCategorias(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoriaResponse, 0, len(categorias))
	for _, c := range categorias {
		out = append(out, dto.CategoriaResponse{
			ID:        c.ID.String(),
			Nome:      c.Nome,
			Descricao: c.Descricao,
			Ativo:     c.Ativo,
			Ordem:     c.Ordem,
		})
	}

	if err := s.cache.SetCategorias(ctx, key, out, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalogo: cache write failed")
	}
	return out, nil
}

func (s *catalogoService) ObterProduto(ctx context.Context, id uuid.UUID) (*model.Produto, error) {
	p, err := s.repo.FindProduto(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("produto %s não encontrado", id)
	}
	return p, err
}

func (s *catalogoService) Invalidar(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("catalogo: cache invalidate failed")
	}
}

func produtoToResponse(p model.Produto) dto.ProdutoResponse {
	r := dto.ProdutoResponse{
		ID:              p.ID.String(),
		CategoriaID:     uuidPtrString(p.CategoriaID),
		Nome:            p.Nome,
		Descricao:       p.Descricao,
		Preco:           p.Preco,
		Unidade:         p.Unidade,
		EstoqueAtual:    p.EstoqueAtual,
		EstoqueMinimo:   p.EstoqueMinimo,
		ControlaEstoque: p.ControlaEstoque,
		Ativo:           p.Ativo,
	}
	if p.Categoria != nil {
		nome := p.Categoria.Nome
		r.CategoriaNome = &nome
	}
	return r
}
