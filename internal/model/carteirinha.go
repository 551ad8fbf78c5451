package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TipoMovimentoCarteirinha: "credito" | "debito"
type TipoMovimentoCarteirinha string

const (
	CarteirinhaCredito TipoMovimentoCarteirinha = "credito"
	CarteirinhaDebito  TipoMovimentoCarteirinha = "debito"
)

// CarteirinhaSaldo is the cached balance of a member's prepaid account.
// Created lazily on the first credit; only the ledger service writes to it.
type CarteirinhaSaldo struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AssociadoID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Saldo       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;check:chk_carteirinha_saldo_nao_negativo,saldo >= 0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CarteirinhaSaldo) TableName() string { return "carteirinha_saldos" }

func (s *CarteirinhaSaldo) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CarteirinhaMovimento is an append-only ledger entry.
// SaldoPosterior == SaldoAnterior ± Valor, and replaying the entries of an
// account in CreatedAt order must land on CarteirinhaSaldo.Saldo.
type CarteirinhaMovimento struct {
	ID             uuid.UUID                `gorm:"type:uuid;primaryKey"`
	AssociadoID    uuid.UUID                `gorm:"type:uuid;not null;index:idx_carteirinha_mov_associado,priority:1"`
	Tipo           TipoMovimentoCarteirinha `gorm:"type:varchar(10);not null"`
	Valor          decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
	SaldoAnterior  decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
	SaldoPosterior decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
	Descricao      *string
	PedidoID       *uuid.UUID      `gorm:"type:uuid;index"`
	OperadorID     *uuid.UUID      `gorm:"type:uuid"`
	FormaRecarga   *FormaPagamento `gorm:"type:varchar(20)"`
	CreatedAt      time.Time       `gorm:"index:idx_carteirinha_mov_associado,priority:2"`
}

func (CarteirinhaMovimento) TableName() string { return "carteirinha_movimentos" }

func (m *CarteirinhaMovimento) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
