package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatusPedido: "aberto" | "pago" | "cancelado"
type StatusPedido string

const (
	PedidoAberto    StatusPedido = "aberto"
	PedidoPago      StatusPedido = "pago"
	PedidoCancelado StatusPedido = "cancelado"
)

// Pedido is a bar sale. Once pago, Itens and Pagamentos are never rewritten;
// the only transition left is the explicit cancel.
//
// Invariants kept by the commit path:
//   - Σ Itens.Subtotal == Subtotal
//   - Subtotal - Desconto == Total
//   - Σ Pagamentos.Valor - Σ Pagamentos.Troco == Total
type Pedido struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Numero      int64           `gorm:"not null;uniqueIndex"`
	AssociadoID *uuid.UUID      `gorm:"type:uuid;index"`
	OperadorID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	CaixaID     *uuid.UUID      `gorm:"type:uuid;index"`
	Status      StatusPedido    `gorm:"type:varchar(20);not null;default:'aberto';index"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Desconto    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Observacao  *string
	Mesa        *string `gorm:"type:varchar(20)"`
	// MotivoCancelamento is only set together with CanceladoEm.
	MotivoCancelamento *string
	PagoEm             *time.Time
	CanceladoEm        *time.Time
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time

	Itens      []ItemPedido `gorm:"foreignKey:PedidoID"`
	Pagamentos []Pagamento  `gorm:"foreignKey:PedidoID"`
}

func (Pedido) TableName() string { return "bar_pedidos" }

func (p *Pedido) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PagamentoPor returns the tender row for the given kind, if present.
func (p *Pedido) PagamentoPor(forma FormaPagamento) (*Pagamento, bool) {
	for i := range p.Pagamentos {
		if p.Pagamentos[i].Forma == forma {
			return &p.Pagamentos[i], true
		}
	}
	return nil, false
}

// ItemPedido is the immutable price/quantity snapshot taken at sale time.
type ItemPedido struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PedidoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProdutoID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProdutoNome    string          `gorm:"type:varchar(150);not null"`
	ProdutoNCM     string          `gorm:"column:produto_ncm;type:varchar(10)"`
	ProdutoCFOP    string          `gorm:"column:produto_cfop;type:varchar(4)"`
	ProdutoCST     string          `gorm:"column:produto_cst;type:varchar(4)"`
	ProdutoUnidade string          `gorm:"type:varchar(6)"`
	Quantidade     int             `gorm:"not null"`
	PrecoUnitario  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time
}

func (ItemPedido) TableName() string { return "bar_itens_pedido" }

func (i *ItemPedido) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Pagamento is one tender applied to a Pedido. Troco is only ever non-zero
// on the dinheiro row.
type Pagamento struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PedidoID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_bar_pagamentos_pedido_forma"`
	Forma             FormaPagamento  `gorm:"column:forma_pagamento;type:varchar(20);not null;uniqueIndex:idx_bar_pagamentos_pedido_forma"`
	Valor             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Troco             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ReferenciaExterna *string         `gorm:"type:varchar(100)"`
	CreatedAt         time.Time
}

func (Pagamento) TableName() string { return "bar_pagamentos" }

func (p *Pagamento) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
