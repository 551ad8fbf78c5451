package repository

import (
	"context"

	"clubebar/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogoRepository is the POS's read view of products and categories.
// The only writes are stock counters, which move with sales and cancels.
type CatalogoRepository interface {
	ListProdutos(ctx context.Context, apenasAtivos bool) ([]model.Produto, error)
	ListCategorias(ctx context.Context, apenasAtivas bool) ([]model.Categoria, error)
	FindProduto(ctx context.Context, id uuid.UUID) (*model.Produto, error)

	// Used inside transactions; callers must pass the tx instance
	FindProdutosTx(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]model.Produto, error)
	AjustarEstoqueTx(tx *gorm.DB, id uuid.UUID, delta int) error
}

type catalogoRepo struct{ db *gorm.DB }

func NewCatalogoRepository(db *gorm.DB) CatalogoRepository { return &catalogoRepo{db: db} }

func (r *catalogoRepo) ListProdutos(ctx context.Context, apenasAtivos bool) ([]model.Produto, error) {
	var list []model.Produto
	q := r.db.WithContext(ctx).Preload("Categoria")
	if apenasAtivos {
		q = q.Where("ativo = ?", true)
	}
	err := q.Order("nome ASC").Find(&list).Error
	return list, err
}

func (r *catalogoRepo) ListCategorias(ctx context.Context, apenasAtivas bool) ([]model.Categoria, error) {
	var list []model.Categoria
	q := r.db.WithContext(ctx)
	if apenasAtivas {
		q = q.Where("ativo = ?", true)
	}
	err := q.Order("ordem ASC, nome ASC").Find(&list).Error
	return list, err
}

func (r *catalogoRepo) FindProduto(ctx context.Context, id uuid.UUID) (*model.Produto, error) {
	var p model.Produto
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *catalogoRepo) FindProdutosTx(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]model.Produto, error) {
	var list []model.Produto
	if err := tx.Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.Produto, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// AjustarEstoqueTx adds delta to estoque_atual for products that track stock;
// it is a no-op for the rest.
func (r *catalogoRepo) AjustarEstoqueTx(tx *gorm.DB, id uuid.UUID, delta int) error {
	return tx.Model(&model.Produto{}).
		Where("id = ? AND controla_estoque = ?", id, true).
		Update("estoque_atual", gorm.Expr("estoque_atual + ?", delta)).Error
}
