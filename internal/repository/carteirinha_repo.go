package repository

import (
	"context"

	"clubebar/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CarteirinhaRepository owns the balance row and the movement history.
// There is deliberately no method that updates or deletes a movement, and no
// method that writes an absolute balance: saldo only moves by delta.
type CarteirinhaRepository interface {
	FindSaldo(ctx context.Context, associadoID uuid.UUID) (*model.CarteirinhaSaldo, error)
	FindSaldoTx(tx *gorm.DB, associadoID uuid.UUID) (*model.CarteirinhaSaldo, error)
	// EnsureSaldoTx creates the balance row at zero if it does not exist yet.
	EnsureSaldoTx(tx *gorm.DB, associadoID uuid.UUID) error
	IncrementTx(tx *gorm.DB, associadoID uuid.UUID, valor decimal.Decimal) error
	// DecrementIfCoveredTx subtracts valor only when saldo >= valor, in one
	// statement. It reports whether the row was changed.
	DecrementIfCoveredTx(tx *gorm.DB, associadoID uuid.UUID, valor decimal.Decimal) (bool, error)
	CreateMovimentoTx(tx *gorm.DB, m *model.CarteirinhaMovimento) error
	ListMovimentos(ctx context.Context, associadoID uuid.UUID, limit int) ([]model.CarteirinhaMovimento, error)
	// ListMovimentosCronologico returns the full history oldest first, for replay.
	ListMovimentosCronologico(ctx context.Context, associadoID uuid.UUID) ([]model.CarteirinhaMovimento, error)
	DB() *gorm.DB
}

type carteirinhaRepo struct{ db *gorm.DB }

func NewCarteirinhaRepository(db *gorm.DB) CarteirinhaRepository {
	return &carteirinhaRepo{db: db}
}

func (r *carteirinhaRepo) DB() *gorm.DB { return r.db }

func (r *carteirinhaRepo) FindSaldo(ctx context.Context, associadoID uuid.UUID) (*model.CarteirinhaSaldo, error) {
	return r.FindSaldoTx(r.db.WithContext(ctx), associadoID)
}

func (r *carteirinhaRepo) FindSaldoTx(tx *gorm.DB, associadoID uuid.UUID) (*model.CarteirinhaSaldo, error) {
	var s model.CarteirinhaSaldo
	if err := tx.Where("associado_id = ?", associadoID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *carteirinhaRepo) EnsureSaldoTx(tx *gorm.DB, associadoID uuid.UUID) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "associado_id"}},
		DoNothing: true,
	}).Create(&model.CarteirinhaSaldo{AssociadoID: associadoID, Saldo: decimal.Zero}).Error
}

func (r *carteirinhaRepo) IncrementTx(tx *gorm.DB, associadoID uuid.UUID, valor decimal.Decimal) error {
	return tx.Model(&model.CarteirinhaSaldo{}).
		Where("associado_id = ?", associadoID).
		Update("saldo", gorm.Expr("saldo + ?", valor)).Error
}

func (r *carteirinhaRepo) DecrementIfCoveredTx(tx *gorm.DB, associadoID uuid.UUID, valor decimal.Decimal) (bool, error) {
	res := tx.Model(&model.CarteirinhaSaldo{}).
		Where("associado_id = ? AND saldo >= ?", associadoID, valor).
		Update("saldo", gorm.Expr("saldo - ?", valor))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *carteirinhaRepo) CreateMovimentoTx(tx *gorm.DB, m *model.CarteirinhaMovimento) error {
	return tx.Create(m).Error
}

func (r *carteirinhaRepo) ListMovimentos(ctx context.Context, associadoID uuid.UUID, limit int) ([]model.CarteirinhaMovimento, error) {
	var movs []model.CarteirinhaMovimento
	err := r.db.WithContext(ctx).
		Where("associado_id = ?", associadoID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movs).Error
	return movs, err
}

func (r *carteirinhaRepo) ListMovimentosCronologico(ctx context.Context, associadoID uuid.UUID) ([]model.CarteirinhaMovimento, error) {
	var movs []model.CarteirinhaMovimento
	err := r.db.WithContext(ctx).
		Where("associado_id = ?", associadoID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}
