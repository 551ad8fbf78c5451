package repository

import (
	"context"

	"clubebar/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NFCeRepository interface {
	Create(ctx context.Context, n *model.NFCe) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NFCe, error)
	// FindAutorizadaByPedido returns gorm.ErrRecordNotFound when the pedido has
	// no authorized document.
	FindAutorizadaByPedido(ctx context.Context, pedidoID uuid.UUID) (*model.NFCe, error)
	// FindReaproveitavelByPedido returns the latest pendente/erro row, if any.
	FindReaproveitavelByPedido(ctx context.Context, pedidoID uuid.UUID) (*model.NFCe, error)
	ListByPedido(ctx context.Context, pedidoID uuid.UUID) ([]model.NFCe, error)
	Update(ctx context.Context, n *model.NFCe) error

	// Tx variants run inside the emission claim, under the pedido row lock.
	FindAutorizadaByPedidoTx(tx *gorm.DB, pedidoID uuid.UUID) (*model.NFCe, error)
	FindReaproveitavelByPedidoTx(tx *gorm.DB, pedidoID uuid.UUID) (*model.NFCe, error)
	SaveTx(tx *gorm.DB, n *model.NFCe) error
}

type nfceRepo struct{ db *gorm.DB }

func NewNFCeRepository(db *gorm.DB) NFCeRepository { return &nfceRepo{db: db} }

func (r *nfceRepo) Create(ctx context.Context, n *model.NFCe) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *nfceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.NFCe, error) {
	var n model.NFCe
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nfceRepo) FindAutorizadaByPedido(ctx context.Context, pedidoID uuid.UUID) (*model.NFCe, error) {
	return r.FindAutorizadaByPedidoTx(r.db.WithContext(ctx), pedidoID)
}

func (r *nfceRepo) FindAutorizadaByPedidoTx(tx *gorm.DB, pedidoID uuid.UUID) (*model.NFCe, error) {
	var n model.NFCe
	err := tx.
		Where("pedido_id = ? AND status = ?", pedidoID, model.NFCeAutorizada).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nfceRepo) FindReaproveitavelByPedido(ctx context.Context, pedidoID uuid.UUID) (*model.NFCe, error) {
	return r.FindReaproveitavelByPedidoTx(r.db.WithContext(ctx), pedidoID)
}

func (r *nfceRepo) FindReaproveitavelByPedidoTx(tx *gorm.DB, pedidoID uuid.UUID) (*model.NFCe, error) {
	var n model.NFCe
	err := tx.
		Where("pedido_id = ? AND status IN ?", pedidoID, []model.StatusNFCe{model.NFCePendente, model.NFCeErro}).
		Order("created_at DESC").
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nfceRepo) ListByPedido(ctx context.Context, pedidoID uuid.UUID) ([]model.NFCe, error) {
	var list []model.NFCe
	err := r.db.WithContext(ctx).Where("pedido_id = ?", pedidoID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *nfceRepo) Update(ctx context.Context, n *model.NFCe) error {
	return r.SaveTx(r.db.WithContext(ctx), n)
}

// SaveTx inserts or updates; gorm's Save picks by primary key.
func (r *nfceRepo) SaveTx(tx *gorm.DB, n *model.NFCe) error {
	return tx.Save(n).Error
}
