package repository

import (
	"context"
	"time"

	"clubebar/internal/dto"
	"clubebar/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResumoVendas aggregates the paid orders tagged with one caixa.
type ResumoVendas struct {
	PorForma    map[model.FormaPagamento]decimal.Decimal
	TotalTroco  decimal.Decimal
	TotalVendas decimal.Decimal
	Quantidade  int64
}

type PedidoRepository interface {
	CreateTx(tx *gorm.DB, p *model.Pedido) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Pedido, error)
	// MarkCanceladoTx flips pago → cancelado; returns false when the row was
	// no longer pago.
	MarkCanceladoTx(tx *gorm.DB, id uuid.UUID, motivo string, at time.Time) (bool, error)
	List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error)
	ResumoPorCaixaTx(tx *gorm.DB, caixaID uuid.UUID) (*ResumoVendas, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) DB() *gorm.DB { return r.db }

// CreateTx inserts the order together with its Itens and Pagamentos.
func (r *pedidoRepo) CreateTx(tx *gorm.DB, p *model.Pedido) error {
	return tx.Create(p).Error
}

func (r *pedidoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.WithContext(ctx).
		Preload("Itens", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Pagamentos").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pedidoRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Where("pedido_id = ?", id).Find(&p.Itens).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("pedido_id = ?", id).Find(&p.Pagamentos).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pedidoRepo) MarkCanceladoTx(tx *gorm.DB, id uuid.UUID, motivo string, at time.Time) (bool, error) {
	res := tx.Model(&model.Pedido{}).
		Where("id = ? AND status = ?", id, model.PedidoPago).
		Updates(map[string]any{
			"status":              model.PedidoCancelado,
			"motivo_cancelamento": motivo,
			"cancelado_em":        at,
			"updated_at":          at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *pedidoRepo) List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var pedidos []model.Pedido
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Pedido{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AssociadoID != "" {
		q = q.Where("associado_id = ?", filter.AssociadoID)
	}
	if filter.CaixaID != "" {
		q = q.Where("caixa_id = ?", filter.CaixaID)
	}
	if filter.DataInicio != "" {
		q = q.Where("DATE(created_at) >= ?", filter.DataInicio)
	}
	if filter.DataFim != "" {
		q = q.Where("DATE(created_at) <= ?", filter.DataFim)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Itens").Preload("Pagamentos").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&pedidos).Error

	return pedidos, total, err
}

// ResumoPorCaixaTx sums tenders and totals over the paid orders of a caixa.
// Sums are rounded to centavos because some drivers return floating sums.
func (r *pedidoRepo) ResumoPorCaixaTx(tx *gorm.DB, caixaID uuid.UUID) (*ResumoVendas, error) {
	var formas []struct {
		Forma model.FormaPagamento
		Valor decimal.Decimal
		Troco decimal.Decimal
	}
	err := tx.Model(&model.Pagamento{}).
		Select("bar_pagamentos.forma_pagamento AS forma, "+
			"COALESCE(SUM(bar_pagamentos.valor), 0) AS valor, "+
			"COALESCE(SUM(bar_pagamentos.troco), 0) AS troco").
		Joins("JOIN bar_pedidos ON bar_pedidos.id = bar_pagamentos.pedido_id").
		Where("bar_pedidos.caixa_id = ? AND bar_pedidos.status = ?", caixaID, model.PedidoPago).
		Group("bar_pagamentos.forma_pagamento").
		Scan(&formas).Error
	if err != nil {
		return nil, err
	}

	var vendas struct {
		Total      decimal.Decimal
		Quantidade int64
	}
	err = tx.Model(&model.Pedido{}).
		Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS quantidade").
		Where("caixa_id = ? AND status = ?", caixaID, model.PedidoPago).
		Scan(&vendas).Error
	if err != nil {
		return nil, err
	}

	resumo := &ResumoVendas{
		PorForma:    make(map[model.FormaPagamento]decimal.Decimal, len(model.FormasPagamento)),
		TotalTroco:  decimal.Zero,
		TotalVendas: vendas.Total.Round(2),
		Quantidade:  vendas.Quantidade,
	}
	for _, f := range formas {
		resumo.PorForma[f.Forma] = f.Valor.Round(2)
		resumo.TotalTroco = resumo.TotalTroco.Add(f.Troco.Round(2))
	}
	return resumo, nil
}
