package repository

import (
	"context"

	"clubebar/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CaixaRepository interface {
	Create(ctx context.Context, c *model.Caixa) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Caixa, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Caixa, error)
	FindAbertoPorOperador(ctx context.Context, operadorID uuid.UUID) (*model.Caixa, error)
	// FindAbertoPorOperadorTx takes a shared lock so a concurrent close waits
	// for the order being tagged.
	FindAbertoPorOperadorTx(tx *gorm.DB, operadorID uuid.UUID) (*model.Caixa, error)
	// CloseTx writes the frozen totals only if the row is still aberto.
	CloseTx(tx *gorm.DB, c *model.Caixa) (bool, error)
	ListFechados(ctx context.Context, page, limit int) ([]model.Caixa, int64, error)

	CreateMovimentoTx(tx *gorm.DB, m *model.CaixaMovimento) error
	ListMovimentos(ctx context.Context, caixaID uuid.UUID) ([]model.CaixaMovimento, error)
	SumMovimentosTx(tx *gorm.DB, caixaID uuid.UUID) (map[model.TipoMovimentoCaixa]decimal.Decimal, error)
	DB() *gorm.DB
}

type caixaRepo struct{ db *gorm.DB }

func NewCaixaRepository(db *gorm.DB) CaixaRepository { return &caixaRepo{db: db} }

func (r *caixaRepo) DB() *gorm.DB { return r.db }

func (r *caixaRepo) Create(ctx context.Context, c *model.Caixa) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *caixaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	err := r.db.WithContext(ctx).
		Preload("Movimentos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caixaRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caixaRepo) FindAbertoPorOperador(ctx context.Context, operadorID uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	err := r.db.WithContext(ctx).
		Where("operador_id = ? AND status = ?", operadorID, model.CaixaAberto).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caixaRepo) FindAbertoPorOperadorTx(tx *gorm.DB, operadorID uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Where("operador_id = ? AND status = ?", operadorID, model.CaixaAberto).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caixaRepo) CloseTx(tx *gorm.DB, c *model.Caixa) (bool, error) {
	res := tx.Model(&model.Caixa{}).
		Where("id = ? AND status = ?", c.ID, model.CaixaAberto).
		Updates(map[string]any{
			"status":                model.CaixaFechado,
			"total_vendas":          c.TotalVendas,
			"total_dinheiro":        c.TotalDinheiro,
			"total_cartao_credito":  c.TotalCartaoCredito,
			"total_cartao_debito":   c.TotalCartaoDebito,
			"total_pix":             c.TotalPix,
			"total_carteirinha":     c.TotalCarteirinha,
			"total_cortesia":        c.TotalCortesia,
			"total_troco":           c.TotalTroco,
			"total_sangrias":        c.TotalSangrias,
			"total_suprimentos":     c.TotalSuprimentos,
			"saldo_final":           c.SaldoFinal,
			"saldo_conferido":       c.SaldoConferido,
			"diferenca":             c.Diferenca,
			"observacao_fechamento": c.ObservacaoFechamento,
			"fechado_em":            c.FechadoEm,
			"updated_at":            c.UpdatedAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *caixaRepo) ListFechados(ctx context.Context, page, limit int) ([]model.Caixa, int64, error) {
	var list []model.Caixa
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Caixa{}).Where("status = ?", model.CaixaFechado)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("fechado_em DESC").Offset((page - 1) * limit).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *caixaRepo) CreateMovimentoTx(tx *gorm.DB, m *model.CaixaMovimento) error {
	return tx.Create(m).Error
}

func (r *caixaRepo) ListMovimentos(ctx context.Context, caixaID uuid.UUID) ([]model.CaixaMovimento, error) {
	var movs []model.CaixaMovimento
	err := r.db.WithContext(ctx).Where("caixa_id = ?", caixaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *caixaRepo) SumMovimentosTx(tx *gorm.DB, caixaID uuid.UUID) (map[model.TipoMovimentoCaixa]decimal.Decimal, error) {
	var rows []struct {
		Tipo  model.TipoMovimentoCaixa
		Valor decimal.Decimal
	}
	err := tx.Model(&model.CaixaMovimento{}).
		Select("tipo, COALESCE(SUM(valor), 0) AS valor").
		Where("caixa_id = ?", caixaID).
		Group("tipo").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := map[model.TipoMovimentoCaixa]decimal.Decimal{
		model.MovimentoSangria:    decimal.Zero,
		model.MovimentoSuprimento: decimal.Zero,
	}
	for _, row := range rows {
		sums[row.Tipo] = row.Valor.Round(2)
	}
	return sums, nil
}
